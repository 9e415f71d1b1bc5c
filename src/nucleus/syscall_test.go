package nucleus

import (
	"testing"

	"calm/src/hardware"
	"calm/src/hardware/sim"
)

func TestCreateAndRendezvous(t *testing.T) {
	m, k := newRig(Config{})
	semAddr, cell := m.NewSemaphore(0)

	child := bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysVerhogen, semAddr, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}))
	parent := []sim.Step{
		sim.Syscall(SysCreateProcess, m.MapState(&child), 0, 0),
		sim.Syscall(SysPasseren, semAddr, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}

	k.Launch(bootState(m.AddProgram(parent)))
	expectCleanHalt(t, m, k, 200)
	if *cell != 0 {
		t.Errorf("semaphore ended at %d, want 0", *cell)
	}
}

func TestCreateExhaustion(t *testing.T) {
	m, k := newRig(Config{})
	semAddr, _ := m.NewSemaphore(0)

	child := bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysPasseren, semAddr, 0, 0),
	}))
	childAddr := m.MapState(&child)

	parent := make([]sim.Step, MaxProc)
	for i := range parent {
		parent[i] = sim.Syscall(SysCreateProcess, childAddr, 0, 0)
	}
	k.Launch(bootState(m.AddProgram(parent)))

	// the parent is pcb #20, so creations 1..19 succeed
	m.Run(MaxProc - 1)
	if got := m.CPU().Reg[hardware.RegV0]; got != 0 {
		t.Fatalf("create %d returned %#x, want 0", MaxProc-1, got)
	}
	if k.ProcCount() != MaxProc {
		t.Fatalf("%d procs live, want %d", k.ProcCount(), MaxProc)
	}

	m.RunOnce()
	if got := m.CPU().Reg[hardware.RegV0]; got != errReturn {
		t.Errorf("create past the arena returned %#x, want -1", got)
	}
	if k.ProcCount() != MaxProc {
		t.Errorf("failed create changed the process count to %d", k.ProcCount())
	}
}

func TestTerminateSubtree(t *testing.T) {
	m, k := newRig(Config{})
	semAddr, cell := m.NewSemaphore(0)

	child := bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysPasseren, semAddr, 0, 0),
	}))
	childAddr := m.MapState(&child)

	// three children block forever; the parent's own exit takes them along
	parent := []sim.Step{
		sim.Syscall(SysCreateProcess, childAddr, 0, 0),
		sim.Syscall(SysCreateProcess, childAddr, 0, 0),
		sim.Syscall(SysCreateProcess, childAddr, 0, 0),
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}
	k.Launch(bootState(m.AddProgram(parent)))
	expectCleanHalt(t, m, k, 500)
	if *cell != 0 {
		t.Errorf("semaphore at %d after killing its waiters, want 0", *cell)
	}
}

func TestMutexHandoff(t *testing.T) {
	m, k := newRig(Config{Quantum: 500})
	semAddr, cell := m.NewSemaphore(1)

	worker := bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysPasseren, semAddr, 0, 0),
		sim.Busy(300),
		sim.Busy(300),
		sim.Syscall(SysVerhogen, semAddr, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}))
	workerAddr := m.MapState(&worker)

	parent := []sim.Step{
		sim.Syscall(SysCreateProcess, workerAddr, 0, 0),
		sim.Syscall(SysCreateProcess, workerAddr, 0, 0),
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}
	k.Launch(bootState(m.AddProgram(parent)))
	expectCleanHalt(t, m, k, 1000)
	if *cell != 1 {
		t.Errorf("mutex ended at %d, want 1", *cell)
	}
}

func TestGetCPUTime(t *testing.T) {
	m, k := newRig(Config{})
	base := m.AddProgram([]sim.Step{
		sim.Busy(1200),
		sim.Syscall(SysGetCPUTime, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})
	k.Launch(bootState(base))

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == base+2*hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != 1200 {
		t.Errorf("cpu time %d, want 1200", got)
	}
}

func TestGetSupportPtrAndPassUp(t *testing.T) {
	m, k := newRig(Config{})

	handlerBase := m.AddProgram([]sim.Step{
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})
	sup := &hardware.Support{}
	sup.ExcContext[hardware.ExcGeneral] = hardware.Context{
		Stack:  0x8000,
		Status: hardware.StatusIEp,
		PC:     handlerBase,
	}
	supAddr := m.MapSupport(sup)

	childBase := m.AddProgram([]sim.Step{
		sim.Syscall(SysGetSupportPtr, 0, 0, 0),
		sim.Trap(hardware.ExcOverflow),
	})
	child := bootState(childBase)
	parent := []sim.Step{
		sim.Syscall(SysCreateProcess, m.MapState(&child), supAddr, 0),
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}
	k.Launch(bootState(m.AddProgram(parent)))

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == childBase+hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != supAddr {
		t.Errorf("support pointer %#x, want %#x", got, supAddr)
	}

	expectCleanHalt(t, m, k, 500)
	saved := &sup.ExcState[hardware.ExcGeneral]
	if saved.ExcCode() != hardware.ExcOverflow {
		t.Errorf("passed-up cause %d, want overflow", saved.ExcCode())
	}
	if saved.PC != childBase+hardware.WordLen {
		t.Errorf("passed-up PC %#x, want %#x", saved.PC, childBase+hardware.WordLen)
	}
}

func TestPassUpWithoutSupportDies(t *testing.T) {
	m, k := newRig(Config{})
	k.Launch(bootState(m.AddProgram([]sim.Step{
		sim.Trap(hardware.ExcAddrErrLoad),
	})))
	expectCleanHalt(t, m, k, 100)
}

func TestUnknownSyscallPassesUp(t *testing.T) {
	m, k := newRig(Config{})
	k.Launch(bootState(m.AddProgram([]sim.Step{
		sim.Syscall(11, 0, 0, 0),
	})))
	expectCleanHalt(t, m, k, 100)
}

func TestUserModeSyscallDies(t *testing.T) {
	m, k := newRig(Config{})
	semAddr, cell := m.NewSemaphore(1)

	entry := bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysPasseren, semAddr, 0, 0),
	}))
	entry.Status |= hardware.StatusKUp
	k.Launch(entry)
	expectCleanHalt(t, m, k, 100)
	if *cell != 1 {
		t.Errorf("user-mode P touched the semaphore: %d", *cell)
	}
}

func TestWaitIOBadDeviceDies(t *testing.T) {
	m, k := newRig(Config{})
	k.Launch(bootState(m.AddProgram([]sim.Step{
		sim.Syscall(SysWaitIO, 9, 0, 0),
	})))
	expectCleanHalt(t, m, k, 100)
}
