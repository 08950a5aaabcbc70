package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Time arithmetic
	ErrClockMismatch   = errors.New("time points belong to different clocks")
	ErrDurationRange   = errors.New("duration out of range")
	ErrInvalidDuration = errors.New("duration must be positive")

	// Step state machine
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrLoopConfig        = errors.New("loop never terminates")
	ErrNoSuchLoop        = errors.New("no enclosing loop at that depth")
	ErrStepHasParent     = errors.New("step already has a parent")
	ErrStepExists        = errors.New("step name already exists")
	ErrNoSuchStep        = errors.New("no step with that name")
	ErrInvalidIndex      = errors.New("step index out of range")

	// Parallel port
	ErrPortOpen            = errors.New("unable to open port")
	ErrPortClosed          = errors.New("port is closed")
	ErrPortDirection       = errors.New("port direction does not allow this operation")
	ErrPortIO              = errors.New("port I/O failed")
	ErrInvalidPin          = errors.New("pin out of range")
	ErrUnsupportedPlatform = errors.New("parallel port not supported on this platform")

	// Trigger scheduling
	ErrPortNotOpen = errors.New("trigger port is not open")
	ErrTriggerBusy = errors.New("a trigger cycle is already pending")

	// Experiment definitions
	ErrInvalidExperiment = errors.New("invalid experiment definition")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
	ErrInvalidConfig  = errors.New("invalid configuration value")
)

// configurationErrors are detected before anything runs and are fixed by
// changing parameters, definitions or environment.
var configurationErrors = []error{
	ErrLoopConfig,
	ErrInvalidExperiment,
	ErrConfigRequired,
	ErrInvalidConfig,
	ErrDurationRange,
}

// protocolErrors indicate a control-flow bug in the calling code.
var protocolErrors = []error{
	ErrInvalidTransition,
	ErrStepHasParent,
	ErrPortClosed,
	ErrPortDirection,
	ErrPortNotOpen,
	ErrTriggerBusy,
	ErrInvalidDuration,
	ErrClockMismatch,
	ErrInvalidPin,
}

// IsConfigurationError returns true for bad loop parameters, experiment
// definitions or configuration values.
func IsConfigurationError(err error) bool {
	return isAny(err, configurationErrors)
}

// IsProtocolError returns true for programmer errors such as writing to a
// closed port, leaving a step twice or scheduling on a busy trigger.
func IsProtocolError(err error) bool {
	return isAny(err, protocolErrors)
}

// IsResourceError returns true if the error came from the OS or the device:
// open/ioctl failures, permission problems, busy devices, failed I/O.
// Resource errors are not fatal to the process.
func IsResourceError(err error) bool {
	return errors.Is(err, ErrPortOpen) ||
		errors.Is(err, ErrPortIO) ||
		errors.Is(err, ErrUnsupportedPlatform)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
