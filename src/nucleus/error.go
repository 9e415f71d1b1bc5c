package nucleus

import "fmt"

const subsystemMask = 0x00ff_0000
const errorNumberMask = 0x0000_ffff

const NucNoError = NucError(0)

// Proc errors
const ProcSubsystem = 1
const ProcNoFreeProc = 1

var ErrorNoFreeProc = errorValue(ProcSubsystem, ProcNoFreeProc)

// Semaphore errors
const SemaSubsystem = 2
const SemaNoFreeDescriptor = 1
const SemaUnmappedAddress = 2

var ErrorNoFreeSemDesc = errorValue(SemaSubsystem, SemaNoFreeDescriptor)
var ErrorUnmappedSem = errorValue(SemaSubsystem, SemaUnmappedAddress)

// Scheduler errors
const SchedSubsystem = 3
const SchedDeadlock = 1

var ErrorDeadlock = errorValue(SchedSubsystem, SchedDeadlock)

// Trap errors
const TrapSubsystem = 4
const TrapBadCause = 1
const TrapNoState = 2
const TrapNoCurrent = 3

var ErrorBadTrapCause = errorValue(TrapSubsystem, TrapBadCause)
var ErrorNoTrappedState = errorValue(TrapSubsystem, TrapNoState)
var ErrorNoCurrentProc = errorValue(TrapSubsystem, TrapNoCurrent)

// NucError is a nucleus error value: subsystem in the third byte, error
// number in the low half word.
type NucError uint32

var errorMap map[NucError]string

func init() {
	errorMap = map[NucError]string{
		ErrorNoFreeProc:     "process control block arena is exhausted",
		ErrorNoFreeSemDesc:  "semaphore descriptor arena is exhausted",
		ErrorUnmappedSem:    "semaphore address maps no counter cell",
		ErrorDeadlock:       "processes exist but none are ready and none are blocked",
		ErrorBadTrapCause:   "unrecognized trap cause code",
		ErrorNoTrappedState: "trap taken with no saved state",
		ErrorNoCurrentProc:  "synchronous trap with no current process",
	}
}

// ErrorMessage renders a NucError for a diagnostic stop or a log line.
func ErrorMessage(e NucError) string {
	t, ok := errorMap[e]
	if !ok {
		return fmt.Sprintf("unknown nucleus error %#x", uint32(e))
	}
	return t
}

func errorValue(subsys uint8, errorNumber uint16) NucError {
	ss := subsystemMask & (uint32(subsys) << 16)
	en := errorNumberMask & uint32(errorNumber)
	return NucError(ss | en)
}
