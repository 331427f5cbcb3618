package transcoder

import (
	"context"

	"github.com/google/uuid"

	"pool-transcoder/internal/store"
)

// FindEligibleVideos returns at most one batch of videos that are ready,
// flagged for transcoding and not assigned to a section.
func (e *Engine) FindEligibleVideos(ctx context.Context, projectID *uuid.UUID) ([]store.PoolVideo, error) {
	videos, err := e.store.FindEligible(ctx, projectID, e.tuning.BatchSize)
	if err != nil {
		return nil, err
	}
	// The store filters already; re-check so a lenient backend cannot leak rows.
	eligible := videos[:0]
	for _, v := range videos {
		if v.Eligible() {
			eligible = append(eligible, v)
		}
	}
	if len(eligible) > e.tuning.BatchSize {
		eligible = eligible[:e.tuning.BatchSize]
	}
	return eligible, nil
}

// Windows splits videos into consecutive groups of at most size.
func Windows(videos []store.PoolVideo, size int) [][]store.PoolVideo {
	if size <= 0 {
		size = 1
	}
	var out [][]store.PoolVideo
	for start := 0; start < len(videos); start += size {
		end := start + size
		if end > len(videos) {
			end = len(videos)
		}
		out = append(out, videos[start:end])
	}
	return out
}
