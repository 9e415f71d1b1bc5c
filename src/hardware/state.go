package hardware

// Word is the machine word.  The processor is a 32 bit MIPS-like machine;
// everything the nucleus touches (registers, device fields, bus addresses)
// is one of these.
type Word uint32

// WordLen is the width of one instruction.  The saved PC is bumped by this
// after a syscall so the caller resumes past the trap instruction.
const WordLen = 4

// Register indices into State.Reg, o32 order.  The hardwired zero register
// is not saved, so 31 registers total.
const (
	RegAT = iota
	RegV0
	RegV1
	RegA0
	RegA1
	RegA2
	RegA3
	RegT0
	RegT1
	RegT2
	RegT3
	RegT4
	RegT5
	RegT6
	RegT7
	RegS0
	RegS1
	RegS2
	RegS3
	RegS4
	RegS5
	RegS6
	RegS7
	RegT8
	RegT9
	RegGP
	RegSP
	RegFP
	RegRA
	RegHI
	RegLO

	NumRegs // 31
)

// Exception codes, as decoded from the cause register.
const (
	ExcInterrupt       = 0
	ExcTLBMod          = 1
	ExcTLBInvalidLoad  = 2
	ExcTLBInvalidStore = 3
	ExcAddrErrLoad     = 4
	ExcAddrErrStore    = 5
	ExcBusErrFetch     = 6
	ExcBusErrData      = 7
	ExcSyscall         = 8
	ExcBreakpoint      = 9
	ExcReservedInstr   = 10
	ExcCoprocUnusable  = 11
	ExcOverflow        = 12
)

const (
	causeExcShift = 2
	causeExcMask  = Word(0x1f) << causeExcShift
	causeIPShift  = 8
)

// Status register bits.  Only the pieces the nucleus cares about: the
// previous-mode bit tells us whether the trapping code was in user mode,
// the interrupt-enable bits are carried opaquely in saved states.
const (
	StatusIEc Word = 1 << 0 // interrupts enabled, current
	StatusKUc Word = 1 << 1 // user mode, current
	StatusIEp Word = 1 << 2 // interrupts enabled, previous
	StatusKUp Word = 1 << 3 // user mode, previous
	StatusIM  Word = 0xff << 8
)

// State is the trapped-state record: the full processor snapshot the
// hardware drops at the start of the low-memory save area on every trap.
// This exact record is what gets copied into a process control block or a
// support structure's exception slot.
type State struct {
	EntryHI Word
	Cause   Word
	Status  Word
	PC      Word
	Reg     [NumRegs]Word
}

// ExcCode pulls the exception code out of the saved cause register.
func (s *State) ExcCode() int {
	return int((s.Cause & causeExcMask) >> causeExcShift)
}

// SetExcCode overwrites the exception code, leaving the pending-interrupt
// bits alone.  Used when a privileged syscall from user mode is rewritten
// into a reserved-instruction fault.
func (s *State) SetExcCode(code int) {
	s.Cause = (s.Cause &^ causeExcMask) | (Word(code) << causeExcShift)
}

// IntPending reports whether the given interrupt line is pending in the
// saved cause register.
func (s *State) IntPending(line int) bool {
	return s.Cause&(1<<uint(causeIPShift+line)) != 0
}

// SetIntPending raises the pending bit for a line in the cause register.
func (s *State) SetIntPending(line int) {
	s.Cause |= 1 << uint(causeIPShift+line)
}

// UserMode reports whether the state trapped out of user mode.
func (s *State) UserMode() bool {
	return s.Status&StatusKUp != 0
}
