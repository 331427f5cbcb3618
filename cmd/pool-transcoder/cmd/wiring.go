package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pool-transcoder/internal/cache"
	"pool-transcoder/internal/client"
	"pool-transcoder/internal/config"
	"pool-transcoder/internal/events"
	"pool-transcoder/internal/logging"
	"pool-transcoder/internal/metrics"
	"pool-transcoder/internal/store/postgres"
	"pool-transcoder/internal/transcoder"
)

// app holds the wired dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *postgres.Store
	engine  *transcoder.Engine
	closers []func() error
}

func loadConfig(requireJobService bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if requireJobService {
		err = cfg.Validate()
	} else if cfg.DatabaseURL == "" {
		err = errors.New("database_url is required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApp connects the store and the optional cache and event publisher.
func newApp(ctx context.Context, requireJobService bool) (*app, error) {
	cfg, logger, err := loadConfig(requireJobService)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	a.store, err = postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	opts := []transcoder.Option{}

	if cfg.Redis.Addr != "" {
		stats, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.StatsTTL)
		if err != nil {
			// The cache is an optimisation; run without it.
			logger.Warn("Status cache unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.closers = append(a.closers, stats.Close)
			opts = append(opts, transcoder.WithStatsCache(stats))
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, transcoder.WithPublisher(pub))
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	opts = append(opts, transcoder.WithMetrics(recorder))

	a.engine = transcoder.NewEngine(
		a.store,
		connector(cfg.JobService, logger),
		tuning(cfg.Transcode),
		transcoder.OutputLayout{Destination: cfg.Output.Destination, PublicURL: cfg.Output.PublicURL},
		logger,
		opts...,
	)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.logger.Sync()
}

// connector resolves the account endpoint on every invocation.
func connector(cfg config.JobServiceConfig, logger *zap.Logger) transcoder.Connector {
	return func(ctx context.Context) (transcoder.JobService, error) {
		c, err := client.Dial(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func tuning(c config.TranscodeConfig) transcoder.Tuning {
	return transcoder.Tuning{
		BatchSize:        c.BatchSize,
		WindowSize:       c.WindowSize,
		PollInterval:     c.PollInterval,
		MaxPollAttempts:  c.MaxPollAttempts,
		CallDelay:        c.CallDelay,
		RateLimitBackoff: c.RateLimitBackoff,
		MaxHeight:        c.MaxHeight,
		OrphanTimeout:    c.OrphanTimeout,
	}
}
