// Package runner provides the shared process lifecycle for psykit binaries.
// Every cmd/ binary delegates to runner.Run for signal handling, config
// loading, observability init, the optional status endpoint, and shutdown.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/psykit/internal/config"
	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/observability"
)

// Version is reported to telemetry backends.
const Version = "0.1.0"

// Env is what a binary's Main receives once the process is set up.
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	SessionID domain.SessionID
}

// Params configures a binary's lifecycle.
type Params struct {
	// Name identifies the binary (e.g. "psyrun", "psytrigger").
	Name string

	// Main does the binary's work. Its context is cancelled on SIGINT or
	// SIGTERM; returning ends the process lifecycle.
	Main func(ctx context.Context, env Env) error
}

// Run executes the full lifecycle: signal handling, config loading,
// observability initialization, Main, and ordered shutdown. The /healthz
// status server runs when status.http_port is set or ln is non-nil (ln
// enables port-0 testing).
func Run(ctx context.Context, p Params, ln net.Listener) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	serviceName := p.Name
	if cfg.OTEL.ServiceName != "" {
		serviceName = cfg.OTEL.ServiceName
	}

	env := Env{Config: cfg, SessionID: domain.GenerateSessionID()}
	env.Logger = observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: p.Name,
		Environment: cfg.Environment,
		SessionID:   env.SessionID.String(),
	})
	logger := env.Logger

	// --- Startup order: telemetry -> status server -> Main ---

	tel, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	if ln == nil && cfg.Status.HTTPPort > 0 {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.Status.HTTPPort))
		if err != nil {
			shutdownTelemetry(logger, tel)
			return fmt.Errorf("listen: %w", err)
		}
	}

	var shuttingDown atomic.Bool
	var server *http.Server
	if ln != nil {
		server = &http.Server{
			Handler:      statusHandler(p.Name, env.SessionID, &shuttingDown),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	// --- Structured concurrency via errgroup ---
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if server != nil {
		g.Go(func() error {
			logger.Info("starting status server",
				slog.String("addr", ln.Addr().String()),
				slog.String("environment", cfg.Environment),
			)
			if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return serveErr
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(done)
		return p.Main(gctx, env)
	})

	// Shutdown runs once Main returns or the context is cancelled.
	// Order is the reverse of startup: status server -> telemetry.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Info("received shutdown signal, starting graceful shutdown")
		case <-done:
		}

		if server != nil {
			shuttingDown.Store(true)
			time.Sleep(domain.ShutdownDrainDelay)

			httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
			defer httpCancel()
			if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
				logger.Error("status server shutdown error", slog.String("error", shutdownErr.Error()))
			}
		}

		// Main must be done before telemetry flushes its last spans.
		<-done
		shutdownTelemetry(logger, tel)

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

func shutdownTelemetry(logger *slog.Logger, tel *observability.Telemetry) {
	otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
	defer otelCancel()
	if err := tel.Shutdown(otelCtx); err != nil {
		logger.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
	}
}

func statusHandler(name string, id domain.SessionID, shuttingDown *atomic.Bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q,"session_id":%q}`, name, id.String())
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"running","service":%q,"session_id":%q}`, name, id.String())
	})
	return mux
}
