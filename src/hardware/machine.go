package hardware

// Exception slot indices in a support structure: one pair of saved
// state/context per upcall reason.
const (
	ExcPageFault = 0 // TLB exceptions
	ExcGeneral   = 1 // everything else the nucleus passes up
)

// Context is a minimal resume point: where a support-level handler starts
// when an exception is passed up to it.  Loading a context is a one-shot
// transfer, not a call.
type Context struct {
	Stack  Word
	Status Word
	PC     Word
}

// Support is a process's support-level presence.  The nucleus never looks
// inside beyond copying a trapped state into the slot for the upcall
// reason and transferring to the matching context.
type Support struct {
	ExcState   [2]State
	ExcContext [2]Context
}

// Machine is the thin hardware shim the nucleus is written against.  The
// real machine would implement this over privileged instructions and the
// device bus; tests and the demo runner use the software machine in
// hardware/sim.
type Machine interface {
	// TrappedState returns the saved exception state for the trap being
	// handled, or nil if no trap is outstanding.
	TrappedState() *State

	// TOD returns microseconds since the machine powered on.
	TOD() uint64

	// SetTimer arms the processor-local preemption timer, in microseconds.
	// Writing it also acknowledges a pending quantum-expiry interrupt.
	SetTimer(us uint32)

	// Timer reads the time remaining on the preemption timer.
	Timer() uint32

	// SetIntervalTimer reloads the interval timer, acknowledging a pending
	// pseudo-clock interrupt.
	SetIntervalTimer(us uint32)

	// PendingMap returns the pending-interrupt bitmap for a device line,
	// one bit per unit.
	PendingMap(line int) Word

	// Device returns the register block for one device.
	Device(line, unit int) *DeviceRegister

	// FetchState reads a processor-state record out of machine memory.
	// Returns nil if the address maps nothing.
	FetchState(addr Word) *State

	// FetchSupport reads a support structure out of machine memory.
	FetchSupport(addr Word) *Support

	// FetchSemaphore resolves a semaphore address to its counter cell.
	FetchSemaphore(addr Word) *int32

	// LoadState hands the processor to the given state.  The state is
	// copied; control does not come back to the caller's logic, so this
	// must be the last thing a handler does.
	LoadState(*State)

	// WaitForInterrupt parks the processor until the next interrupt.
	WaitForInterrupt()

	// Halt is the clean, successful stop: the machine powers down.
	Halt(msg string)

	// Panic is the diagnostic stop for unrecoverable kernel bugs.
	Panic(msg string)
}
