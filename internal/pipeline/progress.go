package pipeline

import (
	"context"
	"log"

	"facetrace/internal/database"
)

// fallbackInterval is used when the frame total is unknown and percent
// progress cannot be computed.
const fallbackInterval = 30

// progressTracker persists frame progress at a coarse interval so the
// status endpoint stays useful without a write per frame.
type progressTracker struct {
	repo     *database.VideoRepository
	videoID  string
	total    int
	interval int
	last     float64
	notify   func(processed, total int)
}

func newProgressTracker(repo *database.VideoRepository, videoID string, total int, notify func(processed, total int)) *progressTracker {
	interval := fallbackInterval
	if total > 0 {
		interval = total / 20
		if interval < 1 {
			interval = 1
		}
	}
	return &progressTracker{
		repo:     repo,
		videoID:  videoID,
		total:    total,
		interval: interval,
		notify:   notify,
	}
}

// Update records that processed frames have been consumed. Persistence
// failures are logged and swallowed; progress is advisory.
func (t *progressTracker) Update(ctx context.Context, processed int) {
	defer func() {
		if t.notify != nil {
			t.notify(processed, t.total)
		}
	}()
	if processed%t.interval != 0 && processed != t.total {
		return
	}

	percent := 0.0
	if t.total > 0 {
		percent = float64(processed) / float64(t.total) * 100
		if percent > 100 {
			percent = 100
		}
	}
	if percent < t.last {
		return
	}
	t.last = percent

	if err := t.repo.UpdateProgress(ctx, t.videoID, processed, t.total, percent); err != nil && ctx.Err() == nil {
		log.Printf("[SCAN] Video %s: failed to persist progress: %v", t.videoID, err)
	}
}
