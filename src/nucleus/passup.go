package nucleus

import (
	"calm/src/hardware"
	"calm/src/lib/trust"
)

// passUpOrDie is the contract for every exception the nucleus cannot
// service: if the current process registered a support structure, its
// trapped state is copied into the slot for the given reason and control
// transfers, one way, to the pre-registered context.  No support
// structure means the process and its whole subtree die.
func (k *Kernel) passUpOrDie(reason int) {
	p := k.current
	if p == nil {
		k.machine.Panic(ErrorMessage(ErrorNoCurrentProc))
		return
	}
	if p.support == nil {
		trust.Debugf("pass up: pid %d has no support level, dies", k.pid(p))
		k.terminate(p)
		k.current = nil
		k.Schedule()
		return
	}

	p.support.ExcState[reason] = p.state
	ctx := &p.support.ExcContext[reason]
	trust.Debugf("pass up: pid %d reason %d to pc %#x", k.pid(p), reason, ctx.PC)

	// a one-shot handoff, not a call: the handler starts fresh on its own
	// stack and the process stays current with its remaining quantum
	var st hardware.State
	st.PC = ctx.PC
	st.Status = ctx.Status
	st.Reg[hardware.RegSP] = ctx.Stack
	k.sliceStart = k.machine.TOD()
	k.machine.SetTimer(k.sliceRemaining)
	k.machine.LoadState(&st)
}
