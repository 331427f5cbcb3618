package transcoder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

const (
	msgClaimLost      = "video was claimed by another run"
	msgNoJobID        = "job service returned no job id"
	msgNotSubmitted   = "run cancelled before submission"
	msgOrphanedSubmit = "submission interrupted before a job was created"
)

// submit claims v, creates its remote job and records the handle. Every path
// that leaves the video claimed without a handle ends in FailClaim, so the
// video is never processing without a job id once submit returns.
func (e *Engine) submit(ctx context.Context, svc JobService, runID string, v store.PoolVideo) TranscodeJob {
	job := newJob(v)
	log := e.logger.With(
		zap.String("pool_video_id", v.ID.String()),
		zap.String("run_id", runID),
	)

	if err := e.store.Claim(ctx, v.ID, runID, e.now()); err != nil {
		if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrNotFound) {
			log.Info("Video no longer eligible, skipping")
			e.metrics.Submission(ctx, "skipped")
			job.fail(msgClaimLost)
			return job
		}
		log.Error("Failed to claim video", zap.Error(err))
		e.metrics.Submission(ctx, "failed")
		job.fail(fmt.Sprintf("failed to claim video: %v", err))
		return job
	}

	spec, outputURL := BuildJobSpec(v, e.tuning.MaxHeight, e.layout)
	handle, err := svc.CreateJob(ctx, spec)
	if err == nil {
		err = checkHandle(handle)
	}
	// The claim must be resolved even if the run is being cancelled.
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Warn("Job submission failed", zap.Error(err))
		return e.failSubmission(writeCtx, job, runID, err.Error())
	}

	if err := e.store.AttachJob(writeCtx, v.ID, runID, handle.ID, outputURL); err != nil {
		log.Error("Failed to record job handle",
			zap.String("job_id", handle.ID),
			zap.Error(err),
		)
		return e.failSubmission(writeCtx, job, runID, fmt.Sprintf("failed to record job %s: %v", handle.ID, err))
	}

	job.JobID = handle.ID
	job.OutputURL = outputURL
	e.metrics.Submission(ctx, "started")
	log.Info("Transcode job submitted",
		zap.String("job_id", handle.ID),
		zap.Int("height", spec.Outputs[0].Height),
		zap.String("output_url", outputURL),
	)
	return job
}

func (e *Engine) failSubmission(ctx context.Context, job TranscodeJob, runID, reason string) TranscodeJob {
	e.metrics.Submission(ctx, "failed")
	job.fail(reason)
	if err := e.store.FailClaim(ctx, job.PoolVideoID, runID, reason, e.now()); err != nil {
		// Left processing without a handle; recheck recovers it after the orphan timeout.
		e.logger.Error("Failed to record submission failure",
			zap.String("pool_video_id", job.PoolVideoID.String()),
			zap.Error(err),
		)
		return job
	}
	e.metrics.Outcome(ctx, "error")
	e.reconciler.invalidate(ctx, job.ProjectID)
	return job
}

func checkHandle(h *models.JobHandle) error {
	if h == nil || h.ID == "" {
		return errors.New(msgNoJobID)
	}
	if h.Status == models.JobError || h.Status == models.JobCanceled {
		return fmt.Errorf("job %s was rejected with status %s", h.ID, h.Status)
	}
	return nil
}

func (j *TranscodeJob) fail(reason string) {
	j.Status = JobFailed
	j.Error = reason
}
