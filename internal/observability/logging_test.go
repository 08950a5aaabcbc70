package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aelexs/psykit/internal/observability"
)

func TestRedactingHandler(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		shouldRedact bool
	}{
		{"participant_name is redacted", "participant_name", "Jane Roe", true},
		{"date_of_birth is redacted", "date_of_birth", "1990-01-01", true},
		{"email is redacted", "email", "jane@example.org", true},
		{"upload_token is redacted", "upload_token", "tok123", true},
		{"session_id not redacted", "session_id", "sess-1", false},
		{"mask not redacted", "mask", "255", false},
		{"port not redacted", "port", "/dev/parport0", false},
		{"error not redacted", "error", "device busy", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := observability.NewRedactingHandler(&buf, nil)
			logger := slog.New(handler)

			logger.Info("test", tt.key, tt.value)
			output := buf.String()

			if tt.shouldRedact {
				assert.Contains(t, output, "[REDACTED]", "expected %s to be redacted", tt.key)
				assert.NotContains(t, output, tt.value, "expected actual value to not appear for %s", tt.key)
			} else {
				assert.Contains(t, output, tt.value, "expected %s value to appear", tt.key)
				assert.NotContains(t, output, "[REDACTED]", "expected %s to not be redacted", tt.key)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("adds service and session context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "psytrigger",
			Environment: "test",
			SessionID:   "sess-1",
			Output:      &buf,
		})
		logger.Info("hello", "participant_name", "Jane")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "psytrigger", entry["service"])
		assert.Equal(t, "test", entry["environment"])
		assert.Equal(t, "sess-1", entry["session_id"])
		assert.Equal(t, "[REDACTED]", entry["participant_name"])
		assert.Same(t, logger, slog.Default())
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{
			Level:  "error",
			Format: "text",
			Output: &buf,
		})
		logger.Info("dropped")
		assert.Empty(t, buf.String())
		logger.Error("kept")
		assert.Contains(t, buf.String(), "kept")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, observability.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, observability.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel("bogus"))
}

func TestWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	assert.Same(t, base, observability.WithTraceID(context.Background(), base))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	observability.WithTraceID(ctx, base).Info("traced")
	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
}

func TestLoggerFromContext(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	observability.LoggerFromContext(context.Background()).Info("untraced")
	assert.NotContains(t, buf.String(), "trace_id")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "session")
	defer span.End()

	buf.Reset()
	observability.LoggerFromContext(ctx).Info("traced")
	assert.Contains(t, buf.String(), `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
}
