package transcoder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pool-transcoder/internal/ratelimit"
	"pool-transcoder/pkg/models"
)

const msgConnectFailed = "Failed to connect to the transcoding service"

// ProcessPoolVideos runs one scan, submit and monitor cycle. Only setup
// failures make the summary unsuccessful; per-video failures are reported
// in Results.Failed.
func (e *Engine) ProcessPoolVideos(ctx context.Context, projectID *uuid.UUID) models.RunSummary {
	summary := models.RunSummary{
		Results: models.ResultSet{
			Successful: []models.JobResult{},
			Failed:     []models.JobResult{},
		},
	}

	svc, err := e.connect(ctx)
	if err != nil {
		e.logger.Error("Failed to connect to job service", zap.Error(err))
		summary.Message = msgConnectFailed
		summary.Error = err.Error()
		return summary
	}

	videos, err := e.FindEligibleVideos(ctx, projectID)
	if err != nil {
		e.logger.Error("Failed to scan for eligible videos", zap.Error(err))
		summary.Message = "Failed to load pool videos"
		summary.Error = err.Error()
		return summary
	}

	summary.Success = true
	if len(videos) == 0 {
		summary.Message = "No videos need transcoding"
		return summary
	}

	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))
	log.Info("Starting transcode run", zap.Int("videos", len(videos)))

	// Every window is submitted before polling starts, so one polling budget
	// bounds the whole run.
	limiter := ratelimit.New(e.tuning.CallDelay)
	windows := Windows(videos, e.tuning.WindowSize)
	jobs := make([]TranscodeJob, 0, len(videos))
	for i, window := range windows {
		log.Debug("Submitting window",
			zap.Int("window", i+1),
			zap.Int("of", len(windows)),
			zap.Int("size", len(window)),
		)
		for _, v := range window {
			if err := limiter.Wait(ctx); err != nil {
				job := newJob(v)
				job.fail(msgNotSubmitted)
				jobs = append(jobs, job)
				continue
			}
			jobs = append(jobs, e.submit(ctx, svc, runID, v))
		}
	}

	for _, r := range e.monitor(ctx, svc, limiter, jobs) {
		if r.Success {
			summary.Results.Successful = append(summary.Results.Successful, r)
		} else {
			summary.Results.Failed = append(summary.Results.Failed, r)
		}
	}

	// Claims moved rows out of ready; refresh the cached counts once per project.
	seen := make(map[uuid.UUID]bool)
	for _, v := range videos {
		if !seen[v.ProjectID] {
			seen[v.ProjectID] = true
			e.reconciler.invalidate(context.WithoutCancel(ctx), v.ProjectID)
		}
	}

	summary.Results.Total = len(videos)
	summary.Message = fmt.Sprintf("Processed %d videos: %d successful, %d failed",
		len(videos), len(summary.Results.Successful), len(summary.Results.Failed))
	log.Info("Transcode run finished",
		zap.Int("successful", len(summary.Results.Successful)),
		zap.Int("failed", len(summary.Results.Failed)),
	)
	return summary
}

// PoolTranscodingStatus reports per-status counts for a project, served from
// the stats cache when one is configured.
func (e *Engine) PoolTranscodingStatus(ctx context.Context, projectID uuid.UUID) models.StatusSnapshot {
	log := e.logger.With(zap.String("project_id", projectID.String()))

	if e.cache != nil {
		stats, ok, err := e.cache.Get(ctx, projectID)
		if err != nil {
			log.Warn("Status cache read failed", zap.Error(err))
		} else if ok {
			return models.StatusSnapshot{Success: true, Stats: stats}
		}
	}

	stats, err := e.store.CountByStatus(ctx, projectID)
	if err != nil {
		log.Error("Failed to count pool videos", zap.Error(err))
		return models.StatusSnapshot{Error: err.Error()}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, projectID, stats); err != nil {
			log.Warn("Status cache write failed", zap.Error(err))
		}
	}
	return models.StatusSnapshot{Success: true, Stats: stats}
}
