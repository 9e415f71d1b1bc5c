package sim

import (
	"calm/src/gen"
	"calm/src/hardware"
)

// StepKind discriminates program steps.
type StepKind int

const (
	// StepSyscall raises a syscall trap with a0..a3 filled in.
	StepSyscall StepKind = iota
	// StepBusy burns CPU time; the quantum may run out first, in which
	// case the step runs again in full after the process is rescheduled.
	StepBusy
	// StepTrap raises an arbitrary exception.
	StepTrap
	// StepDeviceOp starts a device operation that completes, with an
	// interrupt, after a delay.  The program usually waits for it next.
	StepDeviceOp
)

// Step is one unit of a scripted program.
type Step struct {
	Kind StepKind

	Num        int // syscall number or exception code
	A1, A2, A3 hardware.Word

	Us uint64 // busy time

	Line, Unit int // device op
	Recv       bool
	Delay      uint64
	Status     hardware.Word
}

// Syscall builds a syscall step.
func Syscall(num int, a1, a2, a3 hardware.Word) Step {
	return Step{Kind: StepSyscall, Num: num, A1: a1, A2: a2, A3: a3}
}

// Busy builds a compute step of the given microseconds.
func Busy(us uint64) Step {
	return Step{Kind: StepBusy, Us: us}
}

// Trap builds a step that raises the given exception code.
func Trap(code int) Step {
	return Step{Kind: StepTrap, Num: code}
}

// DeviceOp builds a step that kicks off a device operation.
func DeviceOp(line, unit int, recv bool, delay uint64, status hardware.Word) Step {
	return Step{Kind: StepDeviceOp, Line: line, Unit: unit, Recv: recv,
		Delay: delay, Status: status}
}

const progShift = 20

// AddProgram registers a scripted program and returns its text base: an
// initial state with PC at the base starts at step zero, and each
// word-length of PC is one step.
func (m *Machine) AddProgram(steps []Step) hardware.Word {
	m.progs = append(m.progs, steps)
	return hardware.Word(len(m.progs)) << progShift
}

func (m *Machine) locate(pc hardware.Word) ([]Step, int) {
	i := int(pc>>progShift) - 1
	if i < 0 || i >= len(m.progs) {
		return nil, 0
	}
	return m.progs[i], int(pc&(1<<progShift-1)) / hardware.WordLen
}

// PostDeviceEvent schedules a device completion after delay microseconds:
// the status lands in the unit's register and its interrupt goes pending.
// The event list is kept ordered by time.
func (m *Machine) PostDeviceEvent(delay uint64, line, unit int, recv bool, status hardware.Word) {
	when := m.tod + delay
	var ev *gen.Event
	for n := m.events.First(); n != nil; n = n.Next() {
		if n.Value().When > when {
			ev = m.events.InsertBefore(n)
			break
		}
	}
	if ev == nil {
		ev = m.events.Append()
	}
	ev.When = when
	ev.Line = line
	ev.Unit = unit
	ev.Recv = recv
	ev.Status = uint32(status)
}

// Run drives the machine for at most budget iterations (traps delivered
// plus steps executed).  It returns the number of iterations used;
// whether that was a clean halt is the Halted/Failed pair's business.
func (m *Machine) Run(budget int) int {
	used := 0
	for used < budget {
		if !m.RunOnce() {
			break
		}
		used++
	}
	return used
}

// RunOnce makes one unit of progress: deliver one interrupt, execute one
// program step, or advance time to the next scheduled event.  Returns
// false when the machine is halted or can make no progress at all.
func (m *Machine) RunOnce() bool {
	if m.halted {
		return false
	}
	if m.pendingAny() && (m.running || m.waiting) {
		m.deliverInterrupt()
		return true
	}
	if m.running {
		m.execStep()
		return true
	}
	if m.waiting {
		return m.advanceToNextEvent()
	}
	return false
}

func (m *Machine) pendingAny() bool {
	if m.pltPending || m.intervalPending {
		return true
	}
	for _, bits := range m.pending {
		if bits != 0 {
			return true
		}
	}
	return false
}

func (m *Machine) execStep() {
	prog, idx := m.locate(m.cpu.PC)
	if prog == nil || idx >= len(prog) {
		// the program ran off its text: a fetch fault
		m.raise(hardware.ExcBusErrFetch)
		return
	}
	st := prog[idx]
	switch st.Kind {
	case StepSyscall:
		m.trapped = m.cpu
		m.trapped.Cause = 0
		m.trapped.SetExcCode(hardware.ExcSyscall)
		m.trapped.Reg[hardware.RegA0] = hardware.Word(st.Num)
		m.trapped.Reg[hardware.RegA1] = st.A1
		m.trapped.Reg[hardware.RegA2] = st.A2
		m.trapped.Reg[hardware.RegA3] = st.A3
		m.cpu = m.trapped // the registers are the processor's, not the trap's
		m.dispatch()
	case StepTrap:
		m.raise(st.Num)
	case StepDeviceOp:
		reg := m.Device(st.Line, st.Unit)
		if st.Line == hardware.LineTerminal && !st.Recv {
			reg.Data0 = hardware.DevBusy
		} else {
			reg.Status = hardware.DevBusy
		}
		m.PostDeviceEvent(st.Delay, st.Line, st.Unit, st.Recv, st.Status)
		m.cpu.PC += hardware.WordLen
	case StepBusy:
		m.busy(st.Us)
	}
}

// busy burns CPU time.  If the preemption timer runs out first the step
// does not complete and the PC stays put.
func (m *Machine) busy(us uint64) {
	if m.plt <= us {
		m.advanceTime(m.plt)
		m.plt = 0
		m.pltPending = true
		return
	}
	m.plt -= us
	m.advanceTime(us)
	m.cpu.PC += hardware.WordLen
}

func (m *Machine) raise(code int) {
	m.trapped = m.cpu
	m.trapped.Cause = 0
	m.trapped.SetExcCode(code)
	m.dispatch()
}

// deliverInterrupt raises an interrupt trap carrying every pending line
// in the cause register.  The kernel services the highest-priority one;
// the rest stay pending and come right back.
func (m *Machine) deliverInterrupt() {
	if m.running {
		m.trapped = m.cpu
	} else {
		m.trapped = hardware.State{} // the parked processor's state
	}
	m.trapped.Cause = 0
	if m.pltPending {
		m.trapped.SetIntPending(hardware.LineLocalTimer)
	}
	if m.intervalPending {
		m.trapped.SetIntPending(hardware.LineIntervalTimer)
	}
	for l, bits := range m.pending {
		if bits != 0 {
			m.trapped.SetIntPending(hardware.FirstDeviceLine + l)
		}
	}
	m.dispatch()
}

func (m *Machine) dispatch() {
	if m.handler == nil {
		m.Panic("trap with no handler installed")
		return
	}
	m.running = false
	m.hasTrap = true
	m.handler()
	m.hasTrap = false
	m.sweepAcks()
}

// sweepAcks retires device interrupts the kernel acknowledged during the
// last trap: acked registers go back to ready and their pending bits
// clear once neither terminal half is outstanding.
func (m *Machine) sweepAcks() {
	for l := range m.pending {
		bits := m.pending[l]
		if bits == 0 {
			continue
		}
		for u := 0; u < hardware.DevPerLine; u++ {
			if bits&(1<<uint(u)) == 0 {
				continue
			}
			reg := &m.devs[l][u]
			if hardware.FirstDeviceLine+l == hardware.LineTerminal {
				if m.termTransm[u] && reg.Data1 == hardware.CmdAck {
					m.termTransm[u] = false
					reg.Data1 = hardware.CmdReset
					reg.Data0 = hardware.DevReady
				}
				if m.termRecv[u] && reg.Command == hardware.CmdAck {
					m.termRecv[u] = false
					reg.Command = hardware.CmdReset
					reg.Status = hardware.DevReady
				}
				if !m.termTransm[u] && !m.termRecv[u] {
					m.pending[l] &^= 1 << uint(u)
				}
			} else if reg.Command == hardware.CmdAck {
				reg.Command = hardware.CmdReset
				reg.Status = hardware.DevReady
				m.pending[l] &^= 1 << uint(u)
			}
		}
	}
}

// advanceTime moves the TOD clock, firing any events and the interval
// timer that come due along the way.
func (m *Machine) advanceTime(us uint64) {
	m.tod += us
	if m.interval != 0 && m.tod >= m.interval {
		m.interval = 0
		m.intervalPending = true
	}
	for {
		n := m.events.First()
		if n == nil || n.Value().When > m.tod {
			return
		}
		m.applyEvent(m.events.RemoveFirst())
	}
}

func (m *Machine) applyEvent(e *gen.Event) {
	l := e.Line - hardware.FirstDeviceLine
	reg := &m.devs[l][e.Unit]
	if e.Line == hardware.LineTerminal {
		if e.Recv {
			reg.Status = hardware.Word(e.Status)
			m.termRecv[e.Unit] = true
		} else {
			reg.Data0 = hardware.Word(e.Status)
			m.termTransm[e.Unit] = true
		}
	} else {
		reg.Status = hardware.Word(e.Status)
	}
	m.pending[l] |= 1 << uint(e.Unit)
}

// advanceToNextEvent is the parked-processor path: skip time ahead to
// whatever happens next.  A wait with nothing scheduled can never wake,
// which is a machine-level stop.
func (m *Machine) advanceToNextEvent() bool {
	next := uint64(0)
	have := false
	if m.interval != 0 {
		next = m.interval
		have = true
	}
	if n := m.events.First(); n != nil {
		if !have || n.Value().When < next {
			next = n.Value().When
			have = true
		}
	}
	if !have {
		m.Panic("processor parked with nothing scheduled to wake it")
		return false
	}
	if next > m.tod {
		m.advanceTime(next - m.tod)
	} else {
		m.advanceTime(0)
	}
	return true
}
