package hardware

// Interrupt lines, highest priority first after the two timers.  Line 0
// (inter-processor) never fires on a single-CPU machine.
const (
	LineInterProcessor = 0
	LineLocalTimer     = 1 // quantum expiry
	LineIntervalTimer  = 2 // pseudo-clock tick
	LineDisk           = 3
	LineFlash          = 4
	LineNetwork        = 5
	LinePrinter        = 6
	LineTerminal       = 7

	NumLines = 8
)

// Device bus geometry.  Five device lines with eight units each; terminals
// are split into transmit and receive sub-devices, so they occupy a second
// line-width of semaphores past the transmit slots.
const (
	FirstDeviceLine = LineDisk
	NumDeviceLines  = 5
	DevPerLine      = 8

	NumDevices    = NumDeviceLines * DevPerLine // 40 register blocks
	NumDeviceSems = NumDevices + DevPerLine     // terminal receive extra

	// ClockSemIndex is the pseudo-clock's slot, one past the last device.
	ClockSemIndex = NumDeviceSems

	NumSemaphores = NumDeviceSems + 1
)

// Device status and command codes.
const (
	DevNotInstalled Word = 0
	DevReady        Word = 1
	DevBusy         Word = 3

	CharTransmitted Word = 5
	CharReceived    Word = 5

	CmdReset Word = 0
	CmdAck   Word = 1

	// TermStatusMask isolates the status code of a terminal sub-device;
	// the upper bytes carry the character.
	TermStatusMask Word = 0xff
)

// DeviceRegister is one device's register block on the memory-mapped bus.
// Plain devices use Status/Command, with Data0/Data1 device specific.
// Terminals overlay the block with two independent sub-devices: the
// receiver in Status/Command and the transmitter in Data0/Data1.
type DeviceRegister struct {
	Status  Word
	Command Word
	Data0   Word
	Data1   Word
}

// TransmStatus reads the terminal transmitter's status field.
func (d *DeviceRegister) TransmStatus() Word { return d.Data0 }

// AckTransm acknowledges a terminal transmitter interrupt.
func (d *DeviceRegister) AckTransm() { d.Data1 = CmdAck }

// AckRecv acknowledges a terminal receiver interrupt.
func (d *DeviceRegister) AckRecv() { d.Command = CmdAck }

// Ack acknowledges a plain (non-terminal) device interrupt.
func (d *DeviceRegister) Ack() { d.Command = CmdAck }
