package nucleus

import (
	"calm/src/hardware"
)

// Dispatch is the single trap entry point: the machine transfers here for
// every interrupt and exception after saving the offending state.  The
// cause code routes to the interrupt handler, the syscall handler, or the
// pass-up-or-die path; anything unrecognizable is a kernel bug and stops
// the machine.
func (k *Kernel) Dispatch() {
	old := k.machine.TrappedState()
	if old == nil {
		k.machine.Panic(ErrorMessage(ErrorNoTrappedState))
		return
	}

	// Bookkeeping that must happen exactly once per trap, before any
	// handler runs: the handlers may block the current process or tear
	// it down entirely.  The snapshot keeps the state the process will
	// resume from; the time fold charges it for the slice it just used.
	k.sliceRemaining = k.machine.Timer()
	if k.current != nil {
		k.current.cpuTime += k.machine.TOD() - k.sliceStart
		k.current.state = *old
	}

	switch old.ExcCode() {
	case hardware.ExcInterrupt:
		k.handleInterrupt(old)
	case hardware.ExcTLBMod, hardware.ExcTLBInvalidLoad, hardware.ExcTLBInvalidStore:
		k.passUpOrDie(hardware.ExcPageFault)
	case hardware.ExcSyscall:
		k.handleSyscall()
	case hardware.ExcAddrErrLoad, hardware.ExcAddrErrStore,
		hardware.ExcBusErrFetch, hardware.ExcBusErrData,
		hardware.ExcBreakpoint, hardware.ExcReservedInstr,
		hardware.ExcCoprocUnusable, hardware.ExcOverflow:
		k.passUpOrDie(hardware.ExcGeneral)
	default:
		k.machine.Panic(ErrorMessage(ErrorBadTrapCause))
	}
}
