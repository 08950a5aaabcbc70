// Package errmap maps domain errors to process exit codes.
package errmap

import (
	"context"
	"errors"

	"github.com/aelexs/psykit/internal/domain"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitResource    = 3
	ExitProtocol    = 4
	ExitInterrupted = 130
)

// exitMappings maps error classes to exit codes.
// Order matters: first match wins.
var exitMappings = []struct {
	match func(error) bool
	code  int
	class string
}{
	{func(err error) bool { return errors.Is(err, context.Canceled) }, ExitInterrupted, "interrupted"},
	{domain.IsConfigurationError, ExitConfig, "configuration"},
	{domain.IsResourceError, ExitResource, "resource"},
	{domain.IsProtocolError, ExitProtocol, "protocol"},
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, m := range exitMappings {
		if m.match(err) {
			return m.code
		}
	}
	return ExitFailure
}

// Class names the error class of err for log output, "" for nil.
func Class(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range exitMappings {
		if m.match(err) {
			return m.class
		}
	}
	return "internal"
}
