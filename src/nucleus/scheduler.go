package nucleus

import (
	"calm/src/lib/trust"
)

// neverTimer parks the preemption timer effectively forever while the
// machine waits for an interrupt with nothing runnable.
const neverTimer = ^uint32(0)

// Schedule picks the next process and gives it the CPU.  It must be the
// last thing a handler calls: control leaves the kernel here, either into
// a process, into the waiting state, or into a machine stop.
//
// High-priority ready processes always go first.  Quantum expiry demotes
// to the low queue and nothing ever promotes back; processes that block
// re-enter the high queue when they wake, so interactive work stays ahead
// of compute-bound work on its own.
func (k *Kernel) Schedule() {
	p := k.takeReady(nil)
	if p == nil {
		k.idle()
		return
	}
	k.current = p
	trust.Debugf("schedule: pid %d gets the cpu", k.pid(p))
	k.sliceStart = k.machine.TOD()
	k.machine.SetTimer(k.cfg.Quantum)
	k.machine.LoadState(&p.state)
}

// takeReady removes and returns a specific Proc from whichever ready
// queue holds it, or, when p is nil, the next runnable by the priority
// policy.  Returns nil if p is on neither queue (or nothing is ready).
func (k *Kernel) takeReady(p *Proc) *Proc {
	if p == nil {
		if q := k.readyHigh.RemoveHead(); q != nil {
			return q
		}
		return k.readyLow.RemoveHead()
	}
	if k.readyHigh.Remove(p) != nil {
		return p
	}
	if k.readyLow.Remove(p) != nil {
		return p
	}
	return nil
}

// idle handles the empty-ready-queues cases: clean shutdown when no
// processes remain, a parked CPU while soft-blocked processes wait for
// hardware, and the diagnostic stop for true deadlock.
func (k *Kernel) idle() {
	if k.procCount == 0 {
		k.machine.Halt("no processes remain")
		return
	}
	if k.softBlocked > 0 {
		trust.Debugf("schedule: %d procs soft blocked, waiting for an interrupt",
			k.softBlocked)
		k.current = nil
		k.machine.SetTimer(neverTimer)
		k.machine.WaitForInterrupt()
		return
	}
	k.machine.Panic(ErrorMessage(ErrorDeadlock))
}

// resume hands the CPU back to p after a non-blocking kernel service,
// with whatever was left of its quantum when it trapped.
func (k *Kernel) resume(p *Proc) {
	k.sliceStart = k.machine.TOD()
	k.machine.SetTimer(k.sliceRemaining)
	k.machine.LoadState(&p.state)
}
