// Package memory is an in-process VideoStore with the same guarded
// transitions as the PostgreSQL store.
//
// Metadata is held as typed variants, so a claim replaces the ready-phase
// metadata with a fresh ProcessingMeta. The PostgreSQL store merges into the
// JSONB document instead and keeps unrelated ready-phase keys such as format.
// Both clear jobId and outputUrl on claim.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

// Store keeps videos in insertion order.
type Store struct {
	mu     sync.Mutex
	order  []uuid.UUID
	videos map[uuid.UUID]store.PoolVideo
}

var _ store.VideoStore = (*Store)(nil)

func New() *Store {
	return &Store{videos: make(map[uuid.UUID]store.PoolVideo)}
}

// Put inserts or replaces a video. A zero id is assigned a new one.
func (s *Store) Put(v store.PoolVideo) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if _, ok := s.videos[v.ID]; !ok {
		s.order = append(s.order, v.ID)
	}
	s.videos[v.ID] = v
	return v.ID
}

func (s *Store) FindEligible(ctx context.Context, projectID *uuid.UUID, limit int) ([]store.PoolVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.PoolVideo
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		v := s.videos[id]
		if !v.Eligible() || !inProject(v, projectID) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) FindProcessing(ctx context.Context, projectID *uuid.UUID) ([]store.PoolVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.PoolVideo
	for _, id := range s.order {
		v := s.videos[id]
		if v.Status == store.StatusProcessing && inProject(v, projectID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*store.PoolVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) Claim(ctx context.Context, id uuid.UUID, runID string, startedAt time.Time) error {
	return s.update(id, func(v *store.PoolVideo) bool {
		if !v.Eligible() {
			return false
		}
		v.Status = store.StatusProcessing
		v.Meta = store.ProcessingMeta{
			NeedsTranscoding:   true,
			RunID:              runID,
			TranscodeStartedAt: startedAt.UTC(),
		}
		return true
	})
}

func (s *Store) AttachJob(ctx context.Context, id uuid.UUID, runID, jobID, outputURL string) error {
	return s.update(id, func(v *store.PoolVideo) bool {
		m, ok := v.Processing()
		if !ok || m.RunID != runID {
			return false
		}
		m.JobID = jobID
		m.OutputURL = outputURL
		v.Meta = m
		return true
	})
}

func (s *Store) FailClaim(ctx context.Context, id uuid.UUID, runID, reason string, at time.Time) error {
	return s.update(id, func(v *store.PoolVideo) bool {
		m, ok := v.Processing()
		if !ok || m.RunID != runID {
			return false
		}
		fail(v, m, reason, at)
		return true
	})
}

func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, jobID, videoURL string, meta store.ReadyMeta) error {
	return s.update(id, func(v *store.PoolVideo) bool {
		m, ok := v.Processing()
		if !ok || m.JobID != jobID {
			return false
		}
		v.VideoURL = videoURL
		v.Status = store.StatusReady
		v.Meta = meta
		return true
	})
}

func (s *Store) FailJob(ctx context.Context, id uuid.UUID, jobID, reason string, at time.Time) error {
	return s.update(id, func(v *store.PoolVideo) bool {
		m, ok := v.Processing()
		if !ok || m.JobID != jobID {
			return false
		}
		fail(v, m, reason, at)
		return true
	})
}

func (s *Store) CountByStatus(ctx context.Context, projectID uuid.UUID) (models.PoolStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.PoolStats
	for _, v := range s.videos {
		if v.ProjectID != projectID {
			continue
		}
		stats.Total++
		switch v.Status {
		case store.StatusReady:
			stats.Ready++
		case store.StatusProcessing:
			stats.Processing++
		case store.StatusError:
			stats.Error++
		}
		if v.NeedsTranscoding() {
			stats.NeedsTranscoding++
		}
	}
	return stats, nil
}

// update applies fn under the lock; fn returning false means the guard failed.
func (s *Store) update(id uuid.UUID, fn func(v *store.PoolVideo) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return store.ErrNotFound
	}
	if !fn(&v) {
		return store.ErrStale
	}
	s.videos[id] = v
	return nil
}

func fail(v *store.PoolVideo, m store.ProcessingMeta, reason string, at time.Time) {
	v.Status = store.StatusError
	v.Meta = store.ErrorMeta{
		ProcessingMeta:    m,
		TranscodeError:    reason,
		TranscodeFailedAt: at.UTC(),
	}
}

func inProject(v store.PoolVideo, projectID *uuid.UUID) bool {
	return projectID == nil || v.ProjectID == *projectID
}
