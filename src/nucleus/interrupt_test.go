package nucleus

import (
	"testing"

	"calm/src/hardware"
	"calm/src/hardware/sim"
)

func TestClockBroadcast(t *testing.T) {
	m, k := newRig(Config{})

	// three identical waiters with distinct text bases, so the wake order
	// is readable off the saved PCs
	waiterSteps := []sim.Step{
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}
	var bases [3]hardware.Word
	var states [3]hardware.State
	parent := make([]sim.Step, 0, 6)
	for i := range bases {
		bases[i] = m.AddProgram(waiterSteps)
		states[i] = bootState(bases[i])
		parent = append(parent,
			sim.Syscall(SysCreateProcess, m.MapState(&states[i]), 0, 0))
	}
	parent = append(parent,
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysWaitClock, 0, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	)
	parentBase := m.AddProgram(parent)
	k.Launch(bootState(parentBase))

	// all four end up asleep on the pseudo-clock before the first tick
	runUntil(t, m, 100, func() bool { return k.SoftBlocked() == 4 })
	if got := *k.ClockSem(); got != -4 {
		t.Errorf("clock counter %d with four sleepers, want -4", got)
	}

	// the tick wakes everybody in blocking order: the parent blocked first
	// and is scheduled, the waiters line up behind it in creation order
	runUntil(t, m, 100, func() bool {
		return k.SoftBlocked() == 0 && k.Current() != nil
	})
	if got := k.Current().state.PC; got != parentBase+4*hardware.WordLen {
		t.Errorf("first wake runs PC %#x, want the parent at %#x",
			got, parentBase+4*hardware.WordLen)
	}
	var woken []hardware.Word
	if h := k.readyHigh.Head(); h != nil {
		for p := h; ; p = p.next {
			woken = append(woken, p.state.PC)
			if p.next == h {
				break
			}
		}
	}
	if len(woken) != 3 {
		t.Fatalf("%d procs on the high queue after the tick, want 3", len(woken))
	}
	for i, pc := range woken {
		if want := bases[i] + hardware.WordLen; pc != want {
			t.Errorf("wake %d has PC %#x, want %#x", i, pc, want)
		}
	}

	expectCleanHalt(t, m, k, 500)
	if got := *k.ClockSem(); got != 0 {
		t.Errorf("clock counter %d after the last tick, want 0", got)
	}
	if k.SoftBlocked() != 0 {
		t.Errorf("%d procs still soft blocked after halt", k.SoftBlocked())
	}
}

func TestDeviceStatusReturn(t *testing.T) {
	m, k := newRig(Config{})
	base := m.AddProgram([]sim.Step{
		sim.DeviceOp(hardware.LineDisk, 2, false, 3000, 0x2a),
		sim.Syscall(SysWaitIO, hardware.LineDisk, 2, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})
	k.Launch(bootState(base))

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == base+2*hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != 0x2a {
		t.Errorf("device status in v0 is %#x, want 0x2a", got)
	}
	if k.SoftBlocked() != 0 {
		t.Errorf("soft block count %d after the wake, want 0", k.SoftBlocked())
	}
	if m.Device(hardware.LineDisk, 2).Status != hardware.DevReady {
		t.Errorf("device not back to ready after the acknowledge")
	}
	expectCleanHalt(t, m, k, 100)
}

func TestTerminalHalves(t *testing.T) {
	m, k := newRig(Config{})
	recvStatus := hardware.CharReceived | hardware.Word('z')<<8
	m.PostDeviceEvent(8000, hardware.LineTerminal, 0, true, recvStatus)

	base := m.AddProgram([]sim.Step{
		sim.DeviceOp(hardware.LineTerminal, 0, false, 2000, hardware.CharTransmitted),
		sim.Syscall(SysWaitIO, hardware.LineTerminal, 0, 0),
		sim.Syscall(SysWaitIO, hardware.LineTerminal, 0, 1),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})
	k.Launch(bootState(base))

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == base+2*hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != hardware.CharTransmitted {
		t.Errorf("transmit status %#x, want %#x", got, hardware.CharTransmitted)
	}

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == base+3*hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != recvStatus {
		t.Errorf("receive status %#x, want %#x", got, recvStatus)
	}
	expectCleanHalt(t, m, k, 100)
}

func TestTerminalTransmitErrorStatus(t *testing.T) {
	m, k := newRig(Config{})

	// a transmit that fails still completes on the transmit side: the
	// error code must reach the transmit waiter, not the receiver path
	base := m.AddProgram([]sim.Step{
		sim.DeviceOp(hardware.LineTerminal, 0, false, 2000, 0x4),
		sim.Syscall(SysWaitIO, hardware.LineTerminal, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})
	k.Launch(bootState(base))

	runUntil(t, m, 100, func() bool {
		return m.Running() && m.CPU().PC == base+2*hardware.WordLen
	})
	if got := m.CPU().Reg[hardware.RegV0]; got != 0x4 {
		t.Errorf("transmit error status %#x, want 0x4", got)
	}
	expectCleanHalt(t, m, k, 100)
}

func TestQuantumRerunsPreemptedStep(t *testing.T) {
	m, k := newRig(Config{Quantum: 5000})
	k.Launch(bootState(m.AddProgram([]sim.Step{
		sim.Busy(3000),
		sim.Busy(3000),
		sim.Busy(3000),
		sim.Busy(3000),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	})))
	expectCleanHalt(t, m, k, 200)

	// three preemptions each burn 2000us of a step that then reruns whole
	if m.TOD() != 18000 {
		t.Errorf("clock at %dus, want 18000", m.TOD())
	}
}

func TestDemotionLetsFreshWorkIn(t *testing.T) {
	m, k := newRig(Config{Quantum: 5000})
	doneAddr, done := m.NewSemaphore(0)

	child := bootState(m.AddProgram([]sim.Step{
		sim.Busy(3000),
		sim.Busy(3000),
		sim.Syscall(SysVerhogen, doneAddr, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}))
	// the parent waits for the child before exiting: its own exit would
	// take the whole subtree along
	parent := []sim.Step{
		sim.Syscall(SysCreateProcess, m.MapState(&child), 0, 0),
		sim.Busy(4000),
		sim.Busy(4000),
		sim.Syscall(SysPasseren, doneAddr, 0, 0),
		sim.Syscall(SysTerminateProcess, 0, 0, 0),
	}
	k.Launch(bootState(m.AddProgram(parent)))
	expectCleanHalt(t, m, k, 200)

	// the parent's expiry at 5000 demotes it, so the fresh high-priority
	// child runs until its own expiry at 10000; the low queue then finishes
	// parent (rerun 4000, then block at 14000) and child (rerun 3000)
	if m.TOD() != 17000 {
		t.Errorf("clock at %dus, want 17000", m.TOD())
	}
	if *done != 0 {
		t.Errorf("rendezvous semaphore at %d, want 0", *done)
	}
}
