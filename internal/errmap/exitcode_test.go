package errmap_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/errmap"
	"github.com/aelexs/psykit/internal/parport"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantClass string
	}{
		// Nil error
		{"nil error", nil, errmap.ExitOK, ""},

		// Configuration errors
		{"ErrInvalidConfig", domain.ErrInvalidConfig, errmap.ExitConfig, "configuration"},
		{"ErrConfigRequired", domain.ErrConfigRequired, errmap.ExitConfig, "configuration"},
		{"ErrLoopConfig", domain.ErrLoopConfig, errmap.ExitConfig, "configuration"},
		{"ErrInvalidExperiment", domain.ErrInvalidExperiment, errmap.ExitConfig, "configuration"},
		{"ErrDurationRange", domain.ErrDurationRange, errmap.ExitConfig, "configuration"},

		// Resource errors
		{"ErrPortOpen", domain.ErrPortOpen, errmap.ExitResource, "resource"},
		{"ErrPortIO", domain.ErrPortIO, errmap.ExitResource, "resource"},
		{"ErrUnsupportedPlatform", domain.ErrUnsupportedPlatform, errmap.ExitResource, "resource"},
		{
			"OpenError",
			&parport.OpenError{Device: "/dev/parport0", Step: "claim", Err: errors.New("device busy")},
			errmap.ExitResource, "resource",
		},

		// Protocol errors
		{"ErrTriggerBusy", domain.ErrTriggerBusy, errmap.ExitProtocol, "protocol"},
		{"ErrPortNotOpen", domain.ErrPortNotOpen, errmap.ExitProtocol, "protocol"},
		{"ErrInvalidTransition", domain.ErrInvalidTransition, errmap.ExitProtocol, "protocol"},
		{"ErrClockMismatch", domain.ErrClockMismatch, errmap.ExitProtocol, "protocol"},

		// Interruption
		{"context.Canceled", context.Canceled, errmap.ExitInterrupted, "interrupted"},

		// Unknown errors
		{"unknown error", errors.New("something unexpected"), errmap.ExitFailure, "internal"},
		{"deadline", context.DeadlineExceeded, errmap.ExitFailure, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, errmap.ExitCode(tt.err))
			assert.Equal(t, tt.wantClass, errmap.Class(tt.err))
		})
	}
}

func TestExitCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("enter %q: %w", "block", domain.ErrLoopConfig)
	assert.Equal(t, errmap.ExitConfig, errmap.ExitCode(wrapped))

	doubleWrapped := fmt.Errorf("run session: %w", fmt.Errorf("write: %w", domain.ErrPortIO))
	assert.Equal(t, errmap.ExitResource, errmap.ExitCode(doubleWrapped))
}

func TestExitCodeInterruptWins(t *testing.T) {
	err := errors.Join(context.Canceled, domain.ErrPortIO)
	assert.Equal(t, errmap.ExitInterrupted, errmap.ExitCode(err))
}
