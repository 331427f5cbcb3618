package transcoder

import (
	"github.com/google/uuid"

	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

// JobStatus is the in-run view of a submission.
type JobStatus string

const (
	JobStarted   JobStatus = "started"
	JobSucceeded JobStatus = "success"
	JobFailed    JobStatus = "failed"
)

// TranscodeJob tracks one submission within a run. A job without a JobID
// failed before a remote job existed.
type TranscodeJob struct {
	PoolVideoID uuid.UUID
	ProjectID   uuid.UUID
	JobID       string
	OutputURL   string
	OriginalURL string
	Status      JobStatus
	Error       string
}

// Active reports whether the job still needs polling.
func (j TranscodeJob) Active() bool {
	return j.Status == JobStarted && j.JobID != ""
}

func (j TranscodeJob) result() models.JobResult {
	r := models.JobResult{
		PoolVideoID: j.PoolVideoID.String(),
		Success:     j.Status == JobSucceeded,
		Error:       j.Error,
	}
	if r.Success {
		r.TranscodedURL = j.OutputURL
	}
	return r
}

func newJob(v store.PoolVideo) TranscodeJob {
	return TranscodeJob{
		PoolVideoID: v.ID,
		ProjectID:   v.ProjectID,
		OriginalURL: v.VideoURL,
		Status:      JobStarted,
	}
}

// jobFromVideo rebuilds the in-run view of a video left in processing.
func jobFromVideo(v store.PoolVideo, m store.ProcessingMeta) TranscodeJob {
	return TranscodeJob{
		PoolVideoID: v.ID,
		ProjectID:   v.ProjectID,
		JobID:       m.JobID,
		OutputURL:   m.OutputURL,
		OriginalURL: v.VideoURL,
		Status:      JobStarted,
	}
}
