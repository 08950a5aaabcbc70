package domain

import "time"

// Timing defaults. These are compiled defaults that can be overridden via
// configuration.
const (
	// SpinThreshold is how long before a deadline the event loop stops
	// sleeping and starts yielding in a tight loop. Sleeping alone is only
	// accurate to the scheduler quantum.
	SpinThreshold = 2 * time.Millisecond

	// SessionLead is the delay between building a session and entering its
	// root step, so the first onset is not already late.
	SessionLead = 50 * time.Millisecond

	// Trigger stress test: 1000 cycles of 1 ms, 5 ms apart.
	StressCount = 1000
	StressMask  = 0xFF
	StressHold  = 1 * time.Millisecond
	StressOnset = 5 * time.Millisecond
)

// Device limits.
const (
	MaxPortNumber  = 16 // highest /dev/parportN accepted
	NumPins        = 8  // data lines on a parallel port or DLP-IO8-G
	DLPBaudRate    = 9600
	DLPPingTimeout = 500 * time.Millisecond
)

// Process lifecycle.
const (
	GracefulShutdownTimeout = 10 * time.Second
	ShutdownDrainDelay      = 200 * time.Millisecond
	ShutdownHTTPTimeout     = 2 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
)

// Driver identifies a parallel port implementation.
type Driver string

const (
	DriverPPDev  Driver = "ppdev"
	DriverDLPIO8 Driver = "dlpio8"
	DriverMemory Driver = "memory"
)

// IsValidDriver checks if a driver name is supported.
func IsValidDriver(d Driver) bool {
	return d == DriverPPDev || d == DriverDLPIO8 || d == DriverMemory
}

// IsHardware reports whether the driver talks to a real device.
func (d Driver) IsHardware() bool {
	return d == DriverPPDev || d == DriverDLPIO8
}

// LogFormat identifies an event log output format.
type LogFormat string

const (
	LogFormatJSONL LogFormat = "jsonl"
	LogFormatCSV   LogFormat = "csv"
)

// IsValidLogFormat checks if an event log format is supported.
func IsValidLogFormat(f LogFormat) bool {
	return f == LogFormatJSONL || f == LogFormatCSV
}
