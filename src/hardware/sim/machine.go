package sim

import (
	"calm/src/gen"
	"calm/src/hardware"
	"calm/src/lib/trust"
)

// Machine is a software rendition of the hardware interface: a virtual
// time-of-day clock, the two timers, forty device register blocks with
// pending bitmaps, and a time-ordered event list driving interrupt
// delivery.  Programs are scripts whose saved PC indexes the next step,
// so the kernel's own PC bookkeeping is what moves them forward.
//
// Machine time only advances while a process burns CPU or while the
// processor is parked waiting for an interrupt; kernel handling is free.
type Machine struct {
	handler func()

	cpu     hardware.State
	running bool
	waiting bool
	halted  bool
	failed  bool
	stopMsg string

	trapped hardware.State
	hasTrap bool

	tod             uint64
	plt             uint64
	pltPending      bool
	interval        uint64 // expiry TOD, 0 when unarmed
	intervalPending bool

	devs    [hardware.NumDeviceLines][hardware.DevPerLine]hardware.DeviceRegister
	pending [hardware.NumDeviceLines]hardware.Word

	// terminal sub-devices share their unit's pending bit
	termTransm [hardware.DevPerLine]bool
	termRecv   [hardware.DevPerLine]bool

	events gen.EventDoublyLinkedList

	progs [][]Step

	states   map[hardware.Word]*hardware.State
	supports map[hardware.Word]*hardware.Support
	sems     map[hardware.Word]*int32
	nextAddr hardware.Word
}

// New returns a powered-on machine with every device idle and ready.
func New() *Machine {
	m := &Machine{
		events:   gen.NewEventDoublyLinkedList(),
		states:   make(map[hardware.Word]*hardware.State),
		supports: make(map[hardware.Word]*hardware.Support),
		sems:     make(map[hardware.Word]*int32),
		nextAddr: 0x2000_0000,
		plt:      ^uint64(0),
	}
	for l := range m.devs {
		for u := range m.devs[l] {
			m.devs[l][u].Status = hardware.DevReady
			m.devs[l][u].Data0 = hardware.DevReady
		}
	}
	return m
}

// SetTrapHandler registers the kernel's dispatch entry point.  Every trap
// the machine raises lands there.
func (m *Machine) SetTrapHandler(fn func()) {
	m.handler = fn
}

// Halted reports whether the machine has stopped, cleanly or not.
func (m *Machine) Halted() bool { return m.halted }

// Failed reports a diagnostic stop (kernel panic or a stuck machine).
func (m *Machine) Failed() bool { return m.failed }

// StopMessage returns the reason the machine stopped.
func (m *Machine) StopMessage() string { return m.stopMsg }

// Running reports whether a process state is loaded on the processor.
func (m *Machine) Running() bool { return m.running }

// Waiting reports whether the processor is parked for an interrupt.
func (m *Machine) Waiting() bool { return m.waiting }

// CPU exposes the loaded processor state, for tests and the demo runner.
func (m *Machine) CPU() *hardware.State { return &m.cpu }

//
// hardware.Machine
//

func (m *Machine) TrappedState() *hardware.State {
	if !m.hasTrap {
		return nil
	}
	return &m.trapped
}

func (m *Machine) TOD() uint64 { return m.tod }

func (m *Machine) SetTimer(us uint32) {
	m.plt = uint64(us)
	m.pltPending = false
}

func (m *Machine) Timer() uint32 {
	if m.plt > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(m.plt)
}

func (m *Machine) SetIntervalTimer(us uint32) {
	m.interval = m.tod + uint64(us)
	m.intervalPending = false
}

func (m *Machine) PendingMap(line int) hardware.Word {
	if line < hardware.FirstDeviceLine || line > hardware.LineTerminal {
		return 0
	}
	return m.pending[line-hardware.FirstDeviceLine]
}

func (m *Machine) Device(line, unit int) *hardware.DeviceRegister {
	return &m.devs[line-hardware.FirstDeviceLine][unit]
}

func (m *Machine) FetchState(addr hardware.Word) *hardware.State {
	return m.states[addr]
}

func (m *Machine) FetchSupport(addr hardware.Word) *hardware.Support {
	return m.supports[addr]
}

func (m *Machine) FetchSemaphore(addr hardware.Word) *int32 {
	return m.sems[addr]
}

func (m *Machine) LoadState(s *hardware.State) {
	m.cpu = *s
	m.running = true
	m.waiting = false
}

func (m *Machine) WaitForInterrupt() {
	m.running = false
	m.waiting = true
}

func (m *Machine) Halt(msg string) {
	trust.Infof("machine halt: %s", msg)
	m.halted = true
	m.stopMsg = msg
}

func (m *Machine) Panic(msg string) {
	trust.Errorf("machine panic: %s", msg)
	m.halted = true
	m.failed = true
	m.stopMsg = msg
}

//
// machine memory registration
//

// MapState places a processor-state record in machine memory and returns
// its address, suitable for a create-process argument.
func (m *Machine) MapState(st *hardware.State) hardware.Word {
	addr := m.alloc()
	m.states[addr] = st
	return addr
}

// MapSupport places a support structure in machine memory.
func (m *Machine) MapSupport(sup *hardware.Support) hardware.Word {
	addr := m.alloc()
	m.supports[addr] = sup
	return addr
}

// NewSemaphore allocates a semaphore cell in machine memory and returns
// its address along with the cell itself.
func (m *Machine) NewSemaphore(value int32) (hardware.Word, *int32) {
	addr := m.alloc()
	cell := new(int32)
	*cell = value
	m.sems[addr] = cell
	return addr, cell
}

func (m *Machine) alloc() hardware.Word {
	addr := m.nextAddr
	m.nextAddr += 0x100
	return addr
}
