// Package scheduler runs transcode cycles on a fixed interval and serialises
// them with on-demand triggers from the HTTP surface.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/pkg/models"
)

// ErrBusy is returned when a cycle is already running in this process.
var ErrBusy = errors.New("a transcoding cycle is already running")

// Runner is the pipeline the scheduler drives.
type Runner interface {
	ProcessPoolVideos(ctx context.Context, projectID *uuid.UUID) models.RunSummary
	CheckProcessingVideos(ctx context.Context, projectID *uuid.UUID) models.RecheckSummary
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
}

func New(runner Runner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the ticker loop in the background. Each tick runs a
// transcode cycle followed by a recheck pass; ticks that find a cycle
// already running are skipped.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Stopping scheduler")
				return
			case <-ticker.C:
				if _, _, err := s.RunOnce(ctx); errors.Is(err, ErrBusy) {
					s.logger.Info("Previous cycle still running, skipping tick")
				}
			}
		}
	}()
}

// RunOnce runs a transcode cycle and then a recheck pass across all projects.
func (s *Scheduler) RunOnce(ctx context.Context) (models.RunSummary, models.RecheckSummary, error) {
	if !s.mu.TryLock() {
		return models.RunSummary{}, models.RecheckSummary{}, ErrBusy
	}
	defer s.mu.Unlock()

	run := s.runner.ProcessPoolVideos(ctx, nil)
	s.logResult("Scheduled transcode cycle", run.Success, run.Message, run.Error)

	recheck := s.runner.CheckProcessingVideos(ctx, nil)
	s.logResult("Scheduled recheck", recheck.Success, recheck.Message, recheck.Error)

	return run, recheck, nil
}

// StartProcess runs a transcode cycle for projectID in the background.
// ctx must outlive the caller's request.
func (s *Scheduler) StartProcess(ctx context.Context, projectID *uuid.UUID) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	go func() {
		defer s.mu.Unlock()
		run := s.runner.ProcessPoolVideos(ctx, projectID)
		s.logResult("Triggered transcode cycle", run.Success, run.Message, run.Error)
	}()
	return nil
}

// StartRecheck runs a recheck pass for projectID in the background.
func (s *Scheduler) StartRecheck(ctx context.Context, projectID *uuid.UUID) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	go func() {
		defer s.mu.Unlock()
		recheck := s.runner.CheckProcessingVideos(ctx, projectID)
		s.logResult("Triggered recheck", recheck.Success, recheck.Message, recheck.Error)
	}()
	return nil
}

func (s *Scheduler) logResult(msg string, ok bool, message, errMsg string) {
	if !ok {
		s.logger.Error(msg+" failed", zap.String("error", errMsg))
		return
	}
	s.logger.Info(msg+" finished", zap.String("message", message))
}
