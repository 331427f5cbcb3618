package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeMetadata_PicksVariantByStatus(t *testing.T) {
	raw := []byte(`{"needsTranscoding":true,"jobId":"job-1","outputUrl":"https://cdn/x.mp4","runId":"r1","transcodeStartedAt":"2026-01-02T03:04:05Z","uploadedBy":"app"}`)

	meta, err := DecodeMetadata(StatusProcessing, raw)
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}
	m, ok := meta.(ProcessingMeta)
	if !ok {
		t.Fatalf("expected ProcessingMeta, got %T", meta)
	}
	if m.JobID != "job-1" || m.RunID != "r1" || !m.NeedsTranscoding {
		t.Errorf("unexpected processing meta: %+v", m)
	}
	if m.TranscodeStartedAt.IsZero() {
		t.Error("transcodeStartedAt not decoded")
	}
}

func TestDecodeMetadata_ErrorKeepsJobFields(t *testing.T) {
	raw := []byte(`{"needsTranscoding":true,"jobId":"job-1","transcodeError":"network down","transcodeFailedAt":"2026-01-02T03:04:05Z"}`)

	meta, err := DecodeMetadata(StatusError, raw)
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}
	m := meta.(ErrorMeta)
	if m.TranscodeError != "network down" || m.JobID != "job-1" {
		t.Errorf("unexpected error meta: %+v", m)
	}
}

func TestDecodeMetadata_NullAndUnknown(t *testing.T) {
	meta, err := DecodeMetadata(StatusReady, nil)
	if err != nil {
		t.Fatalf("DecodeMetadata(nil) failed: %v", err)
	}
	if meta.(ReadyMeta).NeedsTranscoding {
		t.Error("empty metadata must not need transcoding")
	}

	if _, err := DecodeMetadata(Status("archived"), []byte(`{}`)); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestTranscodedReadyMeta_Encoding(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b, err := EncodeMetadata(TranscodedReadyMeta("https://raw/a.avi", "https://cdn/a.mp4", at))
	if err != nil {
		t.Fatalf("EncodeMetadata failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"needsTranscoding": false,
		"original_url":     "https://raw/a.avi",
		"transcoded_url":   "https://cdn/a.mp4",
		"transcodedAt":     "2026-03-01T12:00:00Z",
		"transcoded":       true,
		"format":           "mp4",
		"codec":            "h264",
	}
	if len(got) != len(want) {
		t.Errorf("got keys %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestPoolVideo_Eligible(t *testing.T) {
	v := PoolVideo{Status: StatusReady, Meta: ReadyMeta{NeedsTranscoding: true}}
	if !v.Eligible() {
		t.Error("flagged ready video should be eligible")
	}
	v.Status = StatusError
	if v.Eligible() {
		t.Error("errored video must not be eligible")
	}
}
