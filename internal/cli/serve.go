package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/bump"
	"github.com/loomkit/loom/internal/logging"
	"github.com/loomkit/loom/internal/metrics"
	"github.com/loomkit/loom/internal/regen"
	"github.com/loomkit/loom/internal/trigger"
)

// NewServeCommand creates the serve command: the long-running daemon that
// sweeps on an interval, drains the regeneration queue with a worker
// pool, and serves Prometheus metrics.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run the regeneration daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.cfg

	logLevel := cfg.Log.Level
	if opts.Verbose {
		logLevel = "debug"
	}
	log := logging.New(logging.Config{Level: logLevel, Pretty: cfg.Log.Pretty})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc := regen.NewService(e.store, regen.TemplateGenerator{},
		regen.WithLogger(log),
		regen.WithMetrics(m),
		regen.WithClassifier(bump.New(cfg.BumpThreshold)),
	)

	queue := trigger.NewQueue(cfg.QueueCapacity)
	cooldown := trigger.NewCooldown(cfg.Cooldown.Std(), nil)
	engine := trigger.NewEngine(e.store, e.detector, queue, cooldown, nil, log, m)
	pool := trigger.NewPool(queue, svc, cooldown, cfg.Workers, cfg.RequestTimeout.Std(), log, m)
	sweeper := trigger.NewSweeper(e.store, engine, cfg.SweepInterval.Std(), log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	pool.Start(ctx)
	sweepDone := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(sweepDone)
	}()

	log.Info().
		Str("db", cfg.DBPath).
		Int("workers", cfg.Workers).
		Dur("sweep_interval", cfg.SweepInterval.Std()).
		Msg("daemon started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	queue.Close()
	pool.Wait()
	<-sweepDone

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
	}
	return nil
}
