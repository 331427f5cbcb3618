package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"pool-transcoder/internal/health"
	"pool-transcoder/internal/scheduler"
	"pool-transcoder/pkg/models"
)

type mockRuns struct {
	err      error
	process  []*uuid.UUID
	rechecks int
}

func (m *mockRuns) StartProcess(ctx context.Context, projectID *uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.process = append(m.process, projectID)
	return nil
}

func (m *mockRuns) StartRecheck(ctx context.Context, projectID *uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.rechecks++
	return nil
}

type mockStatus struct {
	snap models.StatusSnapshot
	got  uuid.UUID
}

func (m *mockStatus) PoolTranscodingStatus(ctx context.Context, projectID uuid.UUID) models.StatusSnapshot {
	m.got = projectID
	return m.snap
}

type mockHealth struct {
	stats health.Stats
	err   error
}

func (m mockHealth) GetStats(context.Context) (health.Stats, error) {
	return m.stats, m.err
}

func newTestServer(t *testing.T, runs Runs, status StatusReader, sampler HealthSampler) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics\n"))
	})
	return New("127.0.0.1:0", runs, status, sampler, metrics, zaptest.NewLogger(t)).Handler()
}

func TestTranscode_Started(t *testing.T) {
	runs := &mockRuns{}
	h := newTestServer(t, runs, &mockStatus{}, mockHealth{})
	project := uuid.New()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs/transcode?project="+project.String(), nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(runs.process) != 1 || *runs.process[0] != project {
		t.Errorf("unexpected process calls: %v", runs.process)
	}
}

func TestTranscode_Busy(t *testing.T) {
	h := newTestServer(t, &mockRuns{err: scheduler.ErrBusy}, &mockStatus{}, mockHealth{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs/transcode", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRecheck_InvalidProject(t *testing.T) {
	runs := &mockRuns{}
	h := newTestServer(t, runs, &mockStatus{}, mockHealth{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs/recheck?project=nope", nil))

	if rec.Code != http.StatusBadRequest || runs.rechecks != 0 {
		t.Errorf("status = %d, rechecks = %d", rec.Code, runs.rechecks)
	}
}

func TestRecheck_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &mockRuns{}, &mockStatus{}, mockHealth{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/recheck", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestStatus_OK(t *testing.T) {
	status := &mockStatus{snap: models.StatusSnapshot{Success: true, Stats: models.PoolStats{Total: 5, Ready: 3, Processing: 2}}}
	h := newTestServer(t, &mockRuns{}, status, mockHealth{})
	project := uuid.New()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects/"+project.String()+"/transcoding-status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.StatusSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stats != status.snap.Stats || status.got != project {
		t.Errorf("unexpected snapshot %+v for %s", got, status.got)
	}
}

func TestStatus_Failure(t *testing.T) {
	status := &mockStatus{snap: models.StatusSnapshot{Error: "db down"}}
	h := newTestServer(t, &mockRuns{}, status, mockHealth{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects/"+uuid.NewString()+"/transcoding-status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &mockRuns{}, &mockStatus{}, mockHealth{stats: health.Stats{CPUPercent: 95, IsBusy: true}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)
	if rec.Code != http.StatusOK || body["status"] != "busy" || body["cpu_percent"] != 95.0 {
		t.Errorf("status = %d, body = %v", rec.Code, body)
	}
}

func TestHealthz_SamplerError(t *testing.T) {
	h := newTestServer(t, &mockRuns{}, &mockStatus{}, mockHealth{err: errors.New("no /proc")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	h := newTestServer(t, &mockRuns{}, &mockStatus{}, mockHealth{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics\n" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body)
	}
}
