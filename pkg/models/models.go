package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTooManyRequests marks a rejection by the job service's request-rate throttle.
	ErrTooManyRequests = errors.New("job service: too many requests")

	// ErrUnknownJobStatus is returned when the job service reports a status outside JobStatus.
	ErrUnknownJobStatus = errors.New("job service: unknown job status")
)

// JobStatus is the remote lifecycle state of a transcoding job.
type JobStatus string

const (
	JobSubmitted   JobStatus = "SUBMITTED"
	JobProgressing JobStatus = "PROGRESSING"
	JobComplete    JobStatus = "COMPLETE"
	JobError       JobStatus = "ERROR"
	JobCanceled    JobStatus = "CANCELED"
)

// ParseJobStatus rejects anything the job service is not documented to send.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobSubmitted, JobProgressing, JobComplete, JobError, JobCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJobStatus, s)
}

func (s *JobStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseJobStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Terminal reports whether the job will never change state again.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobError || s == JobCanceled
}

// Payload for POST /v1/jobs
type JobSpec struct {
	Input        InputSpec         `json:"input"`
	Outputs      []OutputSpec      `json:"outputs"` // Target renditions
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// InputSpec defines where the job service reads the source media.
type InputSpec struct {
	SourceURL string `json:"source_url"`
	Format    string `json:"format,omitempty"` // e.g. "avi", "mov", "mp4"
}

// OutputSpec defines a single output rendition.
type OutputSpec struct {
	Destination  string `json:"destination"` // Prefix without extension, the service appends ".mp4"
	Container    string `json:"container"`   // "MP4"
	VideoCodec   string `json:"video_codec"` // "H_264"
	Height       int    `json:"height"`
	Bitrate      int    `json:"bitrate_bps"`
	AudioCodec   string `json:"audio_codec"`
	AudioBitrate int    `json:"audio_bitrate_bps"`
}

// JobHandle is returned by a successful submission.
type JobHandle struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

// JobState is the answer to a status query.
type JobState struct {
	ID              string    `json:"id"`
	Status          JobStatus `json:"status"`
	PercentComplete int       `json:"jobPercentComplete"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
}

// Endpoint is one entry of GET /v1/endpoints.
type Endpoint struct {
	URL string `json:"url"`
}

type EndpointsResponse struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// CreateJobResponse keeps the status as sent so that an unfamiliar status
// does not hide the ID of a job that was created.
type CreateJobResponse struct {
	Job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"job"`
}

type GetJobResponse struct {
	Job JobState `json:"job"`
}
