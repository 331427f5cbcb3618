package transcoder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/internal/events"
	"pool-transcoder/internal/metrics"
	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

// JobService is the external asynchronous transcoding API.
type JobService interface {
	CreateJob(ctx context.Context, spec *models.JobSpec) (*models.JobHandle, error)
	GetJob(ctx context.Context, jobID string) (*models.JobState, error)
}

// Connector resolves the job service for one invocation. Failing to connect
// is the only setup failure an entry point reports as unsuccessful.
type Connector func(ctx context.Context) (JobService, error)

// StatsCache caches per-project status snapshots.
type StatsCache interface {
	Get(ctx context.Context, projectID uuid.UUID) (models.PoolStats, bool, error)
	Set(ctx context.Context, projectID uuid.UUID, stats models.PoolStats) error
	Invalidate(ctx context.Context, projectID uuid.UUID) error
}

// Tuning holds the orchestration constants. Tests shrink the durations.
type Tuning struct {
	BatchSize        int
	WindowSize       int
	PollInterval     time.Duration
	MaxPollAttempts  int
	CallDelay        time.Duration
	RateLimitBackoff time.Duration
	MaxHeight        int
	OrphanTimeout    time.Duration
}

// DefaultTuning matches the job service's documented throttling limits.
func DefaultTuning() Tuning {
	return Tuning{
		BatchSize:        20,
		WindowSize:       5,
		PollInterval:     15 * time.Second,
		MaxPollAttempts:  60,
		CallDelay:        500 * time.Millisecond,
		RateLimitBackoff: 5 * time.Second,
		MaxHeight:        720,
		OrphanTimeout:    time.Hour,
	}
}

// Engine drives pool video transcoding against the job service.
type Engine struct {
	store      store.VideoStore
	connect    Connector
	tuning     Tuning
	layout     OutputLayout
	reconciler *Reconciler
	cache      StatsCache
	metrics    *metrics.Recorder
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Engine)

func WithStatsCache(c StatsCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.reconciler.events = p }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now, used for orphan detection in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the pipeline. Zero counts fall back to DefaultTuning; zero
// durations disable the corresponding wait.
func NewEngine(s store.VideoStore, connect Connector, tuning Tuning, layout OutputLayout, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		connect: connect,
		tuning:  tuning.withDefaults(),
		layout:  layout,
		logger:  logger,
		now:     time.Now,
	}
	e.reconciler = &Reconciler{
		store:  s,
		events: events.Nop{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reconciler.cache = e.cache
	e.reconciler.metrics = e.metrics
	e.reconciler.now = e.now
	return e
}

// Reconciler exposes the success/failure persistence paths.
func (e *Engine) Reconciler() *Reconciler {
	return e.reconciler
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.BatchSize <= 0 {
		t.BatchSize = d.BatchSize
	}
	if t.WindowSize <= 0 {
		t.WindowSize = d.WindowSize
	}
	if t.MaxPollAttempts <= 0 {
		t.MaxPollAttempts = d.MaxPollAttempts
	}
	if t.MaxHeight <= 0 {
		t.MaxHeight = d.MaxHeight
	}
	return t
}
