package gen

//go:generate genny -in=doubly_linked.go -out=event_dl.go gen "Generic=Event"

// Event is one pending happening inside a simulated machine: at time When
// (microseconds of machine time), raise an interrupt on Line/Unit carrying
// Status.  Recv marks terminal receiver events, which have their own
// register half.
type Event struct {
	When   uint64
	Line   int
	Unit   int
	Recv   bool
	Status uint32
}
