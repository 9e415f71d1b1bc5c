package nucleus

import (
	"unsafe"

	"calm/src/hardware"
	"calm/src/lib/trust"
)

// Config carries the tunables the nucleus needs at boot.  Zero fields fall
// back to the defaults.
type Config struct {
	// Quantum is the CPU time slice in microseconds.
	Quantum uint32
	// ClockTick is the pseudo-clock period in microseconds.
	ClockTick uint32
}

// DefaultConfig is a 5ms quantum against a 100ms pseudo-clock.
var DefaultConfig = Config{Quantum: 5000, ClockTick: 100000}

// Kernel is the whole of the nucleus's state: the PCB arena, the active
// semaphore list, the two ready queues, the device semaphore table, and
// the current process.  It is built once at boot and never torn down.
// There is exactly one logical CPU, so none of this is locked; atomicity
// comes from the machine only delivering traps between instructions.
type Kernel struct {
	machine hardware.Machine
	cfg     Config

	procTable [MaxProc]Proc
	freeList  ProcQueue
	asl       ASL

	readyHigh ProcQueue
	readyLow  ProcQueue
	current   *Proc

	// procCount is live processes; softBlocked is the subset blocked on a
	// device or pseudo-clock semaphore, which is what separates "waiting
	// for hardware" from deadlock when the ready queues drain.
	procCount   int
	softBlocked int

	devSem [hardware.NumSemaphores]int32

	// sliceStart stamps the TOD when the current process got the CPU;
	// sliceRemaining is its unspent quantum, captured on trap entry.
	sliceStart     uint64
	sliceRemaining uint32
}

// New builds a kernel over the given machine.  Nothing runs until Launch.
func New(m hardware.Machine, cfg Config) *Kernel {
	if cfg.Quantum == 0 {
		cfg.Quantum = DefaultConfig.Quantum
	}
	if cfg.ClockTick == 0 {
		cfg.ClockTick = DefaultConfig.ClockTick
	}
	k := &Kernel{machine: m, cfg: cfg}
	for i := MaxProc - 1; i >= 0; i-- {
		k.freeList.Insert(&k.procTable[i])
	}
	k.asl.init()
	return k
}

// Launch creates the first process from the given entry state, arms the
// pseudo-clock, and starts scheduling.  The entry state's instruction
// pointer is handed down by whoever boots us.
func (k *Kernel) Launch(entry hardware.State) {
	p := k.allocProc()
	if p == nil {
		k.machine.Panic(ErrorMessage(ErrorNoFreeProc))
		return
	}
	p.state = entry
	k.procCount = 1
	k.readyHigh.Insert(p)
	k.machine.SetIntervalTimer(k.cfg.ClockTick)
	trust.Infof("nucleus up: %d pcbs, %d device semaphores, quantum %dus",
		MaxProc, hardware.NumDeviceSems, k.cfg.Quantum)
	k.Schedule()
}

// ProcCount returns the number of live processes.
func (k *Kernel) ProcCount() int {
	return k.procCount
}

// SoftBlocked returns the number of processes blocked on a device or the
// pseudo-clock.
func (k *Kernel) SoftBlocked() int {
	return k.softBlocked
}

// Current returns the running process, nil between scheduling decisions.
func (k *Kernel) Current() *Proc {
	return k.current
}

// ClockSem returns the pseudo-clock's counter cell.
func (k *Kernel) ClockSem() *int32 {
	return &k.devSem[hardware.ClockSemIndex]
}

// deviceSemIndex maps an interrupt line, a unit number, and the terminal
// read/write sub-case into the flat device semaphore table:
// (line - firstDeviceLine) * devicesPerLine + unit, with terminal read
// slots one full line-width past the terminal write slots.
func deviceSemIndex(line, unit int, recv bool) int {
	idx := (line-hardware.FirstDeviceLine)*hardware.DevPerLine + unit
	if recv {
		idx += hardware.DevPerLine
	}
	return idx
}

// isDeviceSem reports whether sem lives inside the device semaphore table
// (the pseudo-clock included).  Blocking on one of those is a soft block.
func (k *Kernel) isDeviceSem(sem *int32) bool {
	first := uintptr(unsafe.Pointer(&k.devSem[0]))
	last := uintptr(unsafe.Pointer(&k.devSem[len(k.devSem)-1]))
	a := uintptr(unsafe.Pointer(sem))
	return a >= first && a <= last
}
