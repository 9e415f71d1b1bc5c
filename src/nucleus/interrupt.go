package nucleus

import (
	"calm/src/hardware"
	"calm/src/lib/trust"
)

// handleInterrupt services the highest-priority pending interrupt line:
// quantum expiry first, then the pseudo-clock, then the device lines in
// descending priority.  One source per dispatch; anything else still
// pending raises again the moment interrupts are back on.
func (k *Kernel) handleInterrupt(old *hardware.State) {
	switch {
	case old.IntPending(hardware.LineLocalTimer):
		k.quantumExpired()
		return
	case old.IntPending(hardware.LineIntervalTimer):
		k.clockTick()
	default:
		line := -1
		for l := hardware.FirstDeviceLine; l <= hardware.LineTerminal; l++ {
			if old.IntPending(l) {
				line = l
				break
			}
		}
		if line < 0 {
			k.machine.Panic("interrupt dispatch with nothing pending")
			return
		}
		k.deviceInterrupt(line)
	}

	// resume the interrupted process with its remaining quantum, or go
	// pick somebody else if there isn't one
	if k.current == nil {
		k.Schedule()
		return
	}
	k.resume(k.current)
}

// quantumExpired acknowledges the preemption timer and demotes the
// running process to the low-priority queue.  Demotion is one way: the
// only road back to the high queue is blocking and waking up.
func (k *Kernel) quantumExpired() {
	if k.current == nil {
		k.machine.Panic("quantum expiry with no current process")
		return
	}
	k.machine.SetTimer(k.cfg.Quantum)
	trust.Debugf("quantum expired: pid %d demoted", k.pid(k.current))
	k.readyLow.Insert(k.current)
	k.current = nil
	k.Schedule()
}

// clockTick reloads the interval timer and performs the broadcast wake:
// every process waiting on the pseudo-clock becomes ready, in blocking
// order, and the counter snaps back to zero.  This is deliberately not a
// chain of V operations.
func (k *Kernel) clockTick() {
	k.machine.SetIntervalTimer(k.cfg.ClockTick)
	clock := k.ClockSem()
	woken := 0
	for p := k.asl.RemoveBlocked(clock); p != nil; p = k.asl.RemoveBlocked(clock) {
		k.readyHigh.Insert(p)
		k.softBlocked--
		woken++
	}
	*clock = 0
	if woken > 0 {
		trust.Debugf("pseudo-clock tick: woke %d waiters", woken)
	}
}

// deviceInterrupt finds the interrupting unit on the line, acknowledges
// its register, and Vs the matching device semaphore.  If a process was
// waiting for the operation, the device's status code lands in its return
// register.
func (k *Kernel) deviceInterrupt(line int) {
	bitmap := k.machine.PendingMap(line)
	if bitmap == 0 {
		k.machine.Panic("device line pending with an empty bitmap")
		return
	}
	unit := 0
	for bitmap&(1<<uint(unit)) == 0 {
		unit++
	}

	reg := k.machine.Device(line, unit)
	var status hardware.Word
	recv := false
	if line == hardware.LineTerminal {
		// the transmitter side wins when both halves are up; any transmit
		// status past ready/busy is a completion, error codes included
		ts := reg.TransmStatus() & hardware.TermStatusMask
		if ts != hardware.DevReady && ts != hardware.DevBusy {
			status = reg.TransmStatus()
			reg.AckTransm()
		} else {
			status = reg.Status
			reg.AckRecv()
			recv = true
		}
	} else {
		status = reg.Status
		reg.Ack()
	}

	idx := deviceSemIndex(line, unit, recv)
	if p := k.verhogen(&k.devSem[idx]); p != nil {
		p.state.Reg[hardware.RegV0] = status
		k.softBlocked--
		trust.Debugf("device %d.%d done, status %#x, pid %d unblocked",
			line, unit, status, k.pid(p))
	}
}
