// Package store defines the pool video record and the persistence contract
// the transcoding pipeline mutates.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the persisted lifecycle state of a pool video.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

// ParseStatus maps a stored status column onto Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusReady, StatusProcessing, StatusError:
		return st, nil
	}
	return "", fmt.Errorf("unknown pool video status %q", s)
}

// PoolVideo is an uploaded inspection video waiting in a project's pool.
type PoolVideo struct {
	ID                  uuid.UUID
	ProjectID           uuid.UUID
	UserID              uuid.UUID
	VideoURL            string
	Status              Status
	Meta                Metadata
	OriginalFilename    string
	Format              string
	FileSize            int64
	Height              int
	AssignedToSectionID *uuid.UUID
}

// Metadata is the status-specific attribute bag. Exactly one of
// ReadyMeta, ProcessingMeta or ErrorMeta backs each status.
type Metadata interface {
	status() Status
}

// ReadyMeta is carried by ready videos, both before and after transcoding.
type ReadyMeta struct {
	NeedsTranscoding bool       `json:"needsTranscoding"`
	OriginalURL      string     `json:"original_url,omitempty"`
	TranscodedURL    string     `json:"transcoded_url,omitempty"`
	TranscodedAt     *time.Time `json:"transcodedAt,omitempty"`
	Transcoded       bool       `json:"transcoded,omitempty"`
	Format           string     `json:"format,omitempty"`
	Codec            string     `json:"codec,omitempty"`
}

// ProcessingMeta tracks a submitted (or about to be submitted) job.
type ProcessingMeta struct {
	NeedsTranscoding   bool      `json:"needsTranscoding"`
	RunID              string    `json:"runId,omitempty"`
	JobID              string    `json:"jobId,omitempty"`
	OutputURL          string    `json:"outputUrl,omitempty"`
	TranscodeStartedAt time.Time `json:"transcodeStartedAt"`
}

// ErrorMeta keeps the processing fields for forensics and adds the failure.
type ErrorMeta struct {
	ProcessingMeta
	TranscodeError    string    `json:"transcodeError"`
	TranscodeFailedAt time.Time `json:"transcodeFailedAt"`
}

func (ReadyMeta) status() Status      { return StatusReady }
func (ProcessingMeta) status() Status { return StatusProcessing }
func (ErrorMeta) status() Status      { return StatusError }

// TranscodedReadyMeta is the full replacement written when a job completes.
func TranscodedReadyMeta(originalURL, transcodedURL string, at time.Time) ReadyMeta {
	at = at.UTC()
	return ReadyMeta{
		NeedsTranscoding: false,
		OriginalURL:      originalURL,
		TranscodedURL:    transcodedURL,
		TranscodedAt:     &at,
		Transcoded:       true,
		Format:           "mp4",
		Codec:            "h264",
	}
}

// DecodeMetadata picks the variant for status and decodes raw into it.
// Empty or null raw yields the zero value of the variant.
func DecodeMetadata(status Status, raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	var (
		meta Metadata
		err  error
	)
	switch status {
	case StatusReady:
		var m ReadyMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case StatusProcessing:
		var m ProcessingMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case StatusError:
		var m ErrorMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	default:
		return nil, fmt.Errorf("unknown pool video status %q", status)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", status, err)
	}
	return meta, nil
}

// EncodeMetadata serializes any variant to its stored JSON form.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// NeedsTranscoding reports the eligibility flag regardless of variant.
func (v PoolVideo) NeedsTranscoding() bool {
	switch m := v.Meta.(type) {
	case ReadyMeta:
		return m.NeedsTranscoding
	case ProcessingMeta:
		return m.NeedsTranscoding
	case ErrorMeta:
		return m.NeedsTranscoding
	}
	return false
}

// Processing returns the processing metadata when the video is processing.
func (v PoolVideo) Processing() (ProcessingMeta, bool) {
	m, ok := v.Meta.(ProcessingMeta)
	return m, ok && v.Status == StatusProcessing
}

// Eligible mirrors the scanner filter: ready, flagged and unclaimed.
func (v PoolVideo) Eligible() bool {
	return v.Status == StatusReady && v.NeedsTranscoding() && v.AssignedToSectionID == nil
}
