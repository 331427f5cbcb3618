package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseJobStatus_Known(t *testing.T) {
	for _, s := range []string{"SUBMITTED", "PROGRESSING", "COMPLETE", "ERROR", "CANCELED"} {
		got, err := ParseJobStatus(s)
		if err != nil {
			t.Fatalf("ParseJobStatus(%q) failed: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("got %q, want %q", got, s)
		}
	}
}

func TestParseJobStatus_Unknown(t *testing.T) {
	_, err := ParseJobStatus("PAUSED")
	if !errors.Is(err, ErrUnknownJobStatus) {
		t.Errorf("expected ErrUnknownJobStatus, got %v", err)
	}
}

func TestGetJobResponse_RejectsUnknownStatus(t *testing.T) {
	var resp GetJobResponse
	err := json.Unmarshal([]byte(`{"job":{"id":"j1","status":"ARCHIVED"}}`), &resp)
	if !errors.Is(err, ErrUnknownJobStatus) {
		t.Errorf("expected ErrUnknownJobStatus, got %v", err)
	}
}

func TestGetJobResponse_Decode(t *testing.T) {
	var resp GetJobResponse
	body := `{"job":{"id":"j1","status":"ERROR","jobPercentComplete":40,"errorMessage":"bad input"}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Job.Status != JobError || resp.Job.ErrorMessage != "bad input" || resp.Job.PercentComplete != 40 {
		t.Errorf("unexpected job state: %+v", resp.Job)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	if JobProgressing.Terminal() || JobSubmitted.Terminal() {
		t.Error("running statuses must not be terminal")
	}
	if !JobComplete.Terminal() || !JobError.Terminal() || !JobCanceled.Terminal() {
		t.Error("COMPLETE, ERROR and CANCELED must be terminal")
	}
}
