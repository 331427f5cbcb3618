package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pool-transcoder/internal/health"
	"pool-transcoder/internal/metrics"
	"pool-transcoder/internal/scheduler"
	"pool-transcoder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the internal HTTP API",
	Long: `Runs a transcode cycle followed by a recheck pass every schedule.interval and
serves on server.listen_addr:

  POST /v1/runs/transcode[?project=<id>]
  POST /v1/runs/recheck[?project=<id>]
  GET  /v1/projects/{id}/transcoding-status
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		// The meter provider must exist before the engine creates its instruments.
		metricsHandler, shutdownMetrics, err := metrics.InitMetrics()
		if err != nil {
			return err
		}
		defer shutdownMetrics(context.Background())

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		sched := scheduler.New(a.engine, a.cfg.Schedule.Interval, a.logger)
		sched.Start(ctx)

		srv := server.New(
			a.cfg.Server.ListenAddr,
			sched,
			a.engine,
			health.NewSampler(500*time.Millisecond),
			metricsHandler,
			a.logger,
		)
		err = srv.Run(ctx)
		a.logger.Info("Shutting down", zap.Error(err))
		return err
	},
}
