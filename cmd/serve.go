package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/focusbot/internal/config"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/recurring"
	"github.com/teemow/focusbot/internal/server"
)

func newServeCmd() *cobra.Command {
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the reminder scheduler and the metrics server",
		Long: `Run the focusbot server.

The HTTP API serves free slots, bookings, today's tasks and the shared timer
state. The reminder scheduler checks today's events every check interval and
sends one reminder per event to the saved chat shortly before it starts.
Prometheus metrics are served on a dedicated port.

Configuration is read from the config file, then FOCUSBOT_* environment
variables, then the flags below.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := afero.NewOsFs()
			cfg, err := loadConfig(cmd, fsys, osLookup)
			if err != nil {
				return err
			}
			if noMetrics {
				cfg.Metrics.Enabled = false
			}
			return runServe(cmd.Context(), cfg, fsys)
		},
	}

	cmd.Flags().String("listen", "", "HTTP API listen address (default :8080)")
	cmd.Flags().String("signal-user", "", "signal-cli account sending reminders")
	cmd.Flags().String("chat-id", "", "Initial reminder chat (phone number or group name)")
	cmd.Flags().String("metrics-addr", "", "Metrics server address (default :9090)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the metrics server")
	addCalendarFlags(cmd.Flags())
	addStateFlags(cmd.Flags())

	return cmd
}

func runServe(parent context.Context, cfg *config.Config, fsys afero.Fs) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.ApplyEnv(osLookup); err != nil {
		return fmt.Errorf("invalid instrumentation environment: %w", err)
	}
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	a, err := newApp(ctx, cfg, fsys, logger, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := recurring.NewRunner(logger, metrics)
	for _, job := range a.scheduler(metrics).Jobs() {
		if err := runner.Add(job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}

	api := server.NewAPIServer(cfg.Listen, a.sc)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && instrConfig.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	logger.Info("starting focusbot",
		slog.String("version", version),
		slog.String("calendar", cfg.Calendar.Backend),
		slog.String("state", cfg.State.Backend),
		slog.String("timezone", a.loc.String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(api.Start)
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		var errs []error
		if err := api.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	logger.Info("focusbot stopped")
	return err
}
