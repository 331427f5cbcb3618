package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pool-transcoder/internal/ratelimit"
	"pool-transcoder/pkg/models"
)

const msgStillProcessing = "Job still processing - check later"

// monitor polls the active jobs of a run until each resolves or the
// polling budget runs out. Jobs that failed at submission are passed through.
// Jobs still running at the end are reported as failed but left untouched in
// the store for a later recheck.
func (e *Engine) monitor(ctx context.Context, svc JobService, limiter *ratelimit.Limiter, jobs []TranscodeJob) []models.JobResult {
	done := make([]TranscodeJob, 0, len(jobs))
	var active []TranscodeJob
	for _, job := range jobs {
		if job.Active() {
			active = append(active, job)
		} else {
			done = append(done, job)
		}
	}

	for attempt := 1; attempt <= e.tuning.MaxPollAttempts && len(active) > 0; attempt++ {
		if err := ratelimit.Sleep(ctx, e.tuning.PollInterval); err != nil {
			break
		}
		e.logger.Debug("Polling transcode jobs",
			zap.Int("attempt", attempt),
			zap.Int("active", len(active)),
		)

		remaining := make([]TranscodeJob, 0, len(active))
		for i, job := range active {
			if ctx.Err() != nil {
				remaining = append(remaining, active[i:]...)
				break
			}
			job = e.pollJob(ctx, svc, limiter, job)
			if job.Active() {
				remaining = append(remaining, job)
			} else {
				done = append(done, job)
			}
		}
		active = remaining
	}

	for _, job := range active {
		e.logger.Warn("Job still processing after polling budget",
			zap.String("pool_video_id", job.PoolVideoID.String()),
			zap.String("job_id", job.JobID),
		)
		job.fail(msgStillProcessing)
		done = append(done, job)
	}

	results := make([]models.JobResult, 0, len(done))
	for _, job := range done {
		results = append(results, job.result())
	}
	return results
}

// pollJob queries one job and reconciles it when terminal. The returned job is
// still Active when the remote job is running or the query did not succeed.
func (e *Engine) pollJob(ctx context.Context, svc JobService, limiter *ratelimit.Limiter, job TranscodeJob) TranscodeJob {
	log := e.logger.With(
		zap.String("pool_video_id", job.PoolVideoID.String()),
		zap.String("job_id", job.JobID),
	)

	if err := limiter.Wait(ctx); err != nil {
		return job
	}

	state, err := svc.GetJob(ctx, job.JobID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTooManyRequests):
			e.metrics.Poll(ctx, "rate_limited")
			log.Warn("Job service throttled status query, backing off",
				zap.Duration("backoff", e.tuning.RateLimitBackoff),
			)
			_ = limiter.Backoff(ctx, e.tuning.RateLimitBackoff)
		case errors.Is(err, models.ErrUnknownJobStatus):
			e.metrics.Poll(ctx, "error")
			log.Error("Job service reported an unrecognised status", zap.Error(err))
		default:
			e.metrics.Poll(ctx, "error")
			log.Warn("Failed to query job status", zap.Error(err))
		}
		return job
	}

	writeCtx := context.WithoutCancel(ctx)
	switch state.Status {
	case models.JobComplete:
		e.metrics.Poll(ctx, "complete")
		if err := e.reconciler.OnComplete(writeCtx, job, job.OutputURL); err != nil {
			log.Error("Failed to reconcile completed job", zap.Error(err))
			job.fail(err.Error())
			return job
		}
		job.Status = JobSucceeded
	case models.JobError, models.JobCanceled:
		e.metrics.Poll(ctx, "failed")
		reason := failureReason(state)
		if err := e.reconciler.OnFailure(writeCtx, job, reason); err != nil {
			log.Error("Failed to reconcile failed job", zap.Error(err))
		}
		job.fail(reason)
	case models.JobSubmitted, models.JobProgressing:
		e.metrics.Poll(ctx, "running")
		log.Debug("Job still running", zap.Int("percent_complete", state.PercentComplete))
	default:
		e.metrics.Poll(ctx, "error")
		log.Error("Unhandled job status", zap.String("status", string(state.Status)))
	}
	return job
}

func failureReason(state *models.JobState) string {
	if state.ErrorMessage != "" {
		return state.ErrorMessage
	}
	return fmt.Sprintf("Job %s", strings.ToLower(string(state.Status)))
}
