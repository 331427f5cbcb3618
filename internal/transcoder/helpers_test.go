package transcoder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"pool-transcoder/internal/store"
	"pool-transcoder/internal/store/memory"
	"pool-transcoder/pkg/models"
)

var testLayout = OutputLayout{
	Destination: "s3://pool-bucket/transcoded",
	PublicURL:   "https://cdn.example.com/transcoded",
}

// step is one scripted answer to a status query.
type step struct {
	status models.JobStatus
	err    error
	msg    string
}

func progressing(n int) []step {
	s := make([]step, n)
	for i := range s {
		s[i] = step{status: models.JobProgressing}
	}
	return s
}

var (
	complete    = step{status: models.JobComplete}
	rateLimited = step{err: fmt.Errorf("get job: %w", models.ErrTooManyRequests)}
)

// fakeJobService answers status queries from a script; the last step repeats.
// Jobs without a script complete on the first poll.
type fakeJobService struct {
	mu        sync.Mutex
	createErr error
	handle    *models.JobHandle
	script    []step
	scripts   map[string][]step
	specs     []*models.JobSpec
	polls     map[string]int
	calls     []time.Time
	ops       []string
	next      int
}

func newFakeJobService() *fakeJobService {
	return &fakeJobService{
		scripts: make(map[string][]step),
		polls:   make(map[string]int),
	}
}

func (f *fakeJobService) CreateJob(ctx context.Context, spec *models.JobSpec) (*models.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, time.Now())
	f.ops = append(f.ops, "create")
	f.specs = append(f.specs, spec)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.handle != nil {
		h := *f.handle
		return &h, nil
	}
	f.next++
	return &models.JobHandle{ID: fmt.Sprintf("job-%d", f.next), Status: models.JobSubmitted}, nil
}

func (f *fakeJobService) GetJob(ctx context.Context, jobID string) (*models.JobState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, time.Now())
	f.ops = append(f.ops, "poll:"+jobID)
	n := f.polls[jobID]
	f.polls[jobID]++

	script := f.script
	if s, ok := f.scripts[jobID]; ok {
		script = s
	}
	if len(script) == 0 {
		return &models.JobState{ID: jobID, Status: models.JobComplete, PercentComplete: 100}, nil
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	st := script[n]
	if st.err != nil {
		return nil, st.err
	}
	return &models.JobState{ID: jobID, Status: st.status, ErrorMessage: st.msg}, nil
}

func (f *fakeJobService) pollCount(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[jobID]
}

// opIndex returns the position of the nth (1-based) occurrence of op.
func (f *fakeJobService) opIndex(op string, nth int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.ops {
		if o == op {
			if nth--; nth == 0 {
				return i
			}
		}
	}
	return -1
}

func (f *fakeJobService) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func connectTo(svc JobService) Connector {
	return func(context.Context) (JobService, error) { return svc, nil }
}

func fastTuning() Tuning {
	return Tuning{
		BatchSize:       20,
		WindowSize:      5,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 60,
		MaxHeight:       720,
		OrphanTimeout:   time.Hour,
	}
}

func newTestEngine(t *testing.T, s store.VideoStore, svc JobService, tuning Tuning, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(s, connectTo(svc), tuning, testLayout, zaptest.NewLogger(t), opts...)
}

func eligibleVideo(project uuid.UUID, name string, height int) store.PoolVideo {
	return store.PoolVideo{
		ProjectID:        project,
		UserID:           uuid.New(),
		VideoURL:         "https://raw.example.com/uploads/" + name,
		Status:           store.StatusReady,
		Meta:             store.ReadyMeta{NeedsTranscoding: true},
		OriginalFilename: name,
		Format:           "avi",
		Height:           height,
	}
}

func mustGet(t *testing.T, s store.VideoStore, id uuid.UUID) store.PoolVideo {
	t.Helper()
	v, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", id, err)
	}
	return *v
}

// seed stores n eligible videos in project and returns their ids in order.
func seed(s *memory.Store, project uuid.UUID, n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = s.Put(eligibleVideo(project, fmt.Sprintf("clip%d.avi", i+1), 1080))
	}
	return ids
}
