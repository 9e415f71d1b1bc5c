package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	tty "github.com/mattn/go-tty"

	"calm/src/hardware"
	"calm/src/hardware/sim"
	"calm/src/lib/trust"
	"calm/src/nucleus"
)

// config is the demo runner's knobs.  A JSON file fills it in, flags
// override.
type config struct {
	QuantumUs   uint32 `json:"quantum_us"`
	ClockTickUs uint32 `json:"clock_tick_us"`
	Demo        string `json:"demo"`
	MaxTraps    int    `json:"max_traps"`
	Log         string `json:"log"`
}

func loadConfig(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(cfg)
}

func main() {
	cfg := config{Demo: "pingpong", MaxTraps: 4000, Log: "info"}

	cfgPath := flag.String("config", "", "JSON config file")
	demo := flag.String("demo", "", "demo workload: pingpong, clock, terminal")
	traps := flag.Int("traps", 0, "machine iteration budget")
	logLevel := flag.String("log", "", "log level: debug, info, warn, error")
	flag.Parse()

	if *cfgPath != "" {
		if err := loadConfig(*cfgPath, &cfg); err != nil {
			trust.Fatalf(2, "config %s: %v", *cfgPath, err)
		}
	}
	if *demo != "" {
		cfg.Demo = *demo
	}
	if *traps != 0 {
		cfg.MaxTraps = *traps
	}
	if *logLevel != "" {
		cfg.Log = *logLevel
	}

	switch cfg.Log {
	case "debug":
		trust.SetLevel(trust.DebugMask | trust.InfoMask | trust.WarnMask | trust.ErrorMask | trust.StatsMask)
	case "info":
		trust.SetLevel(trust.InfoMask | trust.WarnMask | trust.ErrorMask | trust.StatsMask)
	case "warn":
		trust.SetLevel(trust.WarnMask | trust.ErrorMask | trust.StatsMask)
	case "error":
		trust.SetLevel(trust.ErrorMask | trust.StatsMask)
	default:
		trust.Fatalf(2, "unknown log level %q", cfg.Log)
	}

	m := sim.New()
	k := nucleus.New(m, nucleus.Config{Quantum: cfg.QuantumUs, ClockTick: cfg.ClockTickUs})
	m.SetTrapHandler(k.Dispatch)

	var boot hardware.State
	switch cfg.Demo {
	case "pingpong":
		boot = buildPingPong(m)
	case "clock":
		boot = buildClock(m)
	case "terminal":
		boot = buildTerminal(m)
	default:
		trust.Fatalf(2, "unknown demo %q", cfg.Demo)
	}

	k.Launch(boot)
	used := m.Run(cfg.MaxTraps)

	trust.Statsf("run", "demo %s: %d iterations, %d procs left, stop: %s",
		cfg.Demo, used, k.ProcCount(), m.StopMessage())
	if m.Failed() {
		os.Exit(1)
	}
}

// stateFor makes a kernel-mode, interrupts-on initial state starting at
// a program's text base.
func stateFor(base hardware.Word) hardware.State {
	return hardware.State{PC: base, Status: hardware.StatusIEp}
}

// buildPingPong sets up two players trading a mutex semaphore while the
// parent sleeps on the pseudo-clock, then tears everything down.
func buildPingPong(m *sim.Machine) hardware.State {
	semAddr, _ := m.NewSemaphore(1)

	pingSt := stateFor(m.AddProgram(player(semAddr, 4)))
	pongSt := stateFor(m.AddProgram(player(semAddr, 4)))
	pingAddr := m.MapState(&pingSt)
	pongAddr := m.MapState(&pongSt)

	parent := []sim.Step{
		sim.Syscall(nucleus.SysCreateProcess, pingAddr, 0, 0),
		sim.Syscall(nucleus.SysCreateProcess, pongAddr, 0, 0),
		sim.Syscall(nucleus.SysWaitClock, 0, 0, 0),
		sim.Syscall(nucleus.SysWaitClock, 0, 0, 0),
		sim.Syscall(nucleus.SysTerminateProcess, 0, 0, 0),
	}
	return stateFor(m.AddProgram(parent))
}

func player(sem hardware.Word, rounds int) []sim.Step {
	var steps []sim.Step
	for i := 0; i < rounds; i++ {
		steps = append(steps,
			sim.Syscall(nucleus.SysPasseren, sem, 0, 0),
			sim.Busy(700),
			sim.Syscall(nucleus.SysVerhogen, sem, 0, 0),
		)
	}
	return append(steps, sim.Syscall(nucleus.SysTerminateProcess, 0, 0, 0))
}

// buildClock puts three children to sleep on the pseudo-clock a few
// times each, exercising the broadcast wake.
func buildClock(m *sim.Machine) hardware.State {
	waiter := []sim.Step{
		sim.Syscall(nucleus.SysWaitClock, 0, 0, 0),
		sim.Syscall(nucleus.SysWaitClock, 0, 0, 0),
		sim.Syscall(nucleus.SysWaitClock, 0, 0, 0),
		sim.Syscall(nucleus.SysTerminateProcess, 0, 0, 0),
	}

	parent := make([]sim.Step, 0, 8)
	for i := 0; i < 3; i++ {
		st := stateFor(m.AddProgram(waiter))
		parent = append(parent,
			sim.Syscall(nucleus.SysCreateProcess, m.MapState(&st), 0, 0))
	}
	for i := 0; i < 4; i++ {
		parent = append(parent, sim.Syscall(nucleus.SysWaitClock, 0, 0, 0))
	}
	parent = append(parent, sim.Syscall(nucleus.SysTerminateProcess, 0, 0, 0))
	return stateFor(m.AddProgram(parent))
}

// buildTerminal reads a few keys from the host keyboard, schedules them
// as terminal receive interrupts, and scripts a process that waits for
// each one and echoes it back through the transmitter.
func buildTerminal(m *sim.Machine) hardware.State {
	t, err := tty.Open()
	if err != nil {
		trust.Fatalf(1, "terminal demo needs a tty: %v", err)
	}
	defer t.Close()

	fmt.Println("type a few keys, enter to finish:")
	var keys []rune
	for {
		r, err := t.ReadRune()
		if err != nil || r == '\r' || r == '\n' {
			break
		}
		fmt.Printf("%c", r)
		keys = append(keys, r)
		if len(keys) == 32 {
			break
		}
	}
	fmt.Println()

	// keys arrive 20ms apart on terminal 0
	for i, r := range keys {
		m.PostDeviceEvent(uint64(i+1)*20000, hardware.LineTerminal, 0, true,
			hardware.CharReceived|hardware.Word(r)<<8)
	}

	prog := make([]sim.Step, 0, 3*len(keys)+1)
	for range keys {
		prog = append(prog,
			sim.Syscall(nucleus.SysWaitIO, hardware.LineTerminal, 0, 1),
			sim.DeviceOp(hardware.LineTerminal, 0, false, 1000, hardware.CharTransmitted),
			sim.Syscall(nucleus.SysWaitIO, hardware.LineTerminal, 0, 0),
		)
	}
	prog = append(prog, sim.Syscall(nucleus.SysTerminateProcess, 0, 0, 0))
	return stateFor(m.AddProgram(prog))
}
