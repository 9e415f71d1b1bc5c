package nucleus

import (
	"calm/src/hardware"
	"calm/src/lib/trust"
)

// The eight kernel services.  The call number arrives in a0; values past
// SysGetSupportPtr belong to the support level and are passed up, never
// handled here.
const (
	SysCreateProcess    = 1
	SysTerminateProcess = 2
	SysPasseren         = 3
	SysVerhogen         = 4
	SysWaitIO           = 5
	SysGetCPUTime       = 6
	SysWaitClock        = 7
	SysGetSupportPtr    = 8
)

// errReturn is the negative result code for resource exhaustion, as seen
// by the caller in v0.
const errReturn = ^hardware.Word(0) // -1

// handleSyscall routes a syscall trap.  The saved PC is advanced past the
// trap instruction unconditionally and first: even a call that blocks or
// kills the caller leaves a saved state that resumes at the following
// instruction, because that state may be handed out again later.
func (k *Kernel) handleSyscall() {
	p := k.current
	if p == nil {
		k.machine.Panic(ErrorMessage(ErrorNoCurrentProc))
		return
	}
	p.state.PC += hardware.WordLen

	num := p.state.Reg[hardware.RegA0]
	if num < SysCreateProcess || num > SysGetSupportPtr {
		// the support level's business, not ours
		k.passUpOrDie(hardware.ExcGeneral)
		return
	}
	if p.state.UserMode() {
		// a privileged service from user mode becomes a reserved
		// instruction fault and takes the general exception road
		p.state.SetExcCode(hardware.ExcReservedInstr)
		k.passUpOrDie(hardware.ExcGeneral)
		return
	}

	switch num {
	case SysCreateProcess:
		k.sysCreateProcess(p)
	case SysTerminateProcess:
		k.sysTerminateProcess(p)
	case SysPasseren:
		k.sysPasseren(p)
	case SysVerhogen:
		k.sysVerhogen(p)
	case SysWaitIO:
		k.sysWaitIO(p)
	case SysGetCPUTime:
		p.state.Reg[hardware.RegV0] = hardware.Word(p.cpuTime)
		k.resume(p)
	case SysWaitClock:
		k.passeren(p, k.ClockSem(), true)
	case SysGetSupportPtr:
		p.state.Reg[hardware.RegV0] = p.supportAddr
		k.resume(p)
	}
}

// sysCreateProcess builds a child of the caller from a caller-supplied
// initial state, optionally attaches a support structure, and makes it
// ready.  The caller learns success (0) or exhaustion (-1) in v0 and
// keeps the CPU either way.
func (k *Kernel) sysCreateProcess(parent *Proc) {
	child := k.allocProc()
	if child == nil {
		trust.Warnf("create: %s", ErrorMessage(ErrorNoFreeProc))
		parent.state.Reg[hardware.RegV0] = errReturn
		k.resume(parent)
		return
	}

	st := k.machine.FetchState(parent.state.Reg[hardware.RegA1])
	if st == nil {
		k.machine.Panic("create with a state address that maps nothing")
		return
	}
	child.state = *st
	if addr := parent.state.Reg[hardware.RegA2]; addr != 0 {
		child.supportAddr = addr
		child.support = k.machine.FetchSupport(addr)
	}
	parent.insertChild(child)
	k.readyHigh.Insert(child)
	k.procCount++
	trust.Debugf("create: pid %d child of pid %d, %d procs live",
		k.pid(child), k.pid(parent), k.procCount)

	parent.state.Reg[hardware.RegV0] = 0
	k.resume(parent)
}

// sysTerminateProcess tears down the caller and, recursively, its whole
// subtree, then lets the scheduler find somebody else.
func (k *Kernel) sysTerminateProcess(p *Proc) {
	k.terminate(p)
	k.current = nil
	k.Schedule()
}

// terminate removes p's entire subtree, children before p itself.  Every
// PCB reachable from p leaves whatever queue, semaphore, and tree slot
// holds it and returns to the free arena before this returns.  Recursion
// depth is bounded by the arena size.
func (k *Kernel) terminate(p *Proc) {
	for !p.Leaf() {
		k.terminate(p.child.sibNext)
	}
	p.outChild()

	switch {
	case p == k.current:
		// running: it is on no queue at all
	case p.sem != nil:
		sem := p.sem
		if k.asl.OutBlocked(p) != nil {
			if k.isDeviceSem(sem) {
				// the interrupt it was waiting for will still V the
				// semaphore; only the soft-block accounting changes
				k.softBlocked--
			} else {
				// give back the count the blocked process was holding
				*sem++
			}
		}
	default:
		k.takeReady(p)
	}

	trust.Debugf("terminate: pid %d freed", k.pid(p))
	k.freeProc(p)
	k.procCount--
}

// sysPasseren is the P operation on the semaphore whose address is in a1.
func (k *Kernel) sysPasseren(p *Proc) {
	sem := k.machine.FetchSemaphore(p.state.Reg[hardware.RegA1])
	if sem == nil {
		k.machine.Panic(ErrorMessage(ErrorUnmappedSem))
		return
	}
	k.passeren(p, sem, k.isDeviceSem(sem))
}

// passeren decrements the semaphore and blocks p on it if the count went
// negative.  soft marks device/pseudo-clock waits for the idle-vs-deadlock
// accounting.
func (k *Kernel) passeren(p *Proc, sem *int32, soft bool) {
	*sem--
	if *sem >= 0 {
		k.resume(p)
		return
	}
	if !k.asl.InsertBlocked(sem, p) {
		// exhaustion is the caller's problem, not a kernel stop
		trust.Errorf("passeren: %s", ErrorMessage(ErrorNoFreeSemDesc))
		*sem++
		p.state.Reg[hardware.RegV0] = errReturn
		k.resume(p)
		return
	}
	if soft {
		k.softBlocked++
	}
	trust.Debugf("passeren: pid %d blocks on %p", k.pid(p), sem)
	k.current = nil
	k.Schedule()
}

// sysVerhogen is the V operation on the semaphore whose address is in a1.
func (k *Kernel) sysVerhogen(p *Proc) {
	sem := k.machine.FetchSemaphore(p.state.Reg[hardware.RegA1])
	if sem == nil {
		k.machine.Panic(ErrorMessage(ErrorUnmappedSem))
		return
	}
	k.verhogen(sem)
	k.resume(p)
}

// verhogen increments the semaphore and, if anybody was waiting, moves
// the head waiter to the high-priority ready queue.  Returns the waiter
// it woke so the interrupt handler can deliver a device status, nil when
// nobody was waiting (including a waiter already torn down by
// termination).
func (k *Kernel) verhogen(sem *int32) *Proc {
	*sem++
	if *sem > 0 {
		return nil
	}
	p := k.asl.RemoveBlocked(sem)
	if p == nil {
		return nil
	}
	k.readyHigh.Insert(p)
	return p
}

// sysWaitIO translates (line, unit, terminal-read flag) into a device
// semaphore and Ps it.  The caller sleeps until that device's interrupt
// delivers a status code into its v0.
func (k *Kernel) sysWaitIO(p *Proc) {
	line := int(p.state.Reg[hardware.RegA1])
	unit := int(p.state.Reg[hardware.RegA2])
	recv := p.state.Reg[hardware.RegA3] != 0

	if line < hardware.FirstDeviceLine || line > hardware.LineTerminal ||
		unit < 0 || unit >= hardware.DevPerLine ||
		(recv && line != hardware.LineTerminal) {
		// a nonsense wait is the caller's bug, handled like any other
		// illegal behavior: pass it up or kill it
		trust.Warnf("waitio: pid %d asked for bad device %d.%d", k.pid(p), line, unit)
		k.passUpOrDie(hardware.ExcGeneral)
		return
	}
	k.passeren(p, &k.devSem[deviceSemIndex(line, unit, recv)], true)
}
