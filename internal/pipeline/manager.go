package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"sync"

	"facetrace/internal/config"
	"facetrace/internal/database"
	"facetrace/internal/models"
	"facetrace/internal/report"
	"facetrace/internal/storage"
)

// Manager owns the background scan jobs: one goroutine per video, with a
// cancel handle kept for the lifetime of the scan.
type Manager struct {
	processor *Processor
	videos    *database.VideoRepository
	uploads   storage.Storage
	outputs   storage.Storage

	mu     sync.RWMutex
	active map[string]context.CancelFunc
}

func NewManager(processor *Processor, videos *database.VideoRepository, uploads, outputs storage.Storage) *Manager {
	return &Manager{
		processor: processor,
		videos:    videos,
		uploads:   uploads,
		outputs:   outputs,
		active:    make(map[string]context.CancelFunc),
	}
}

// Start launches the scan for an uploaded video in the background. It
// rejects videos that are not in uploaded state or already being scanned.
func (m *Manager) Start(videoID string) error {
	job, err := m.videos.GetByID(context.Background(), videoID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusUploaded {
		return fmt.Errorf("video %s is %s, expected %s", videoID, job.Status, models.StatusUploaded)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if _, running := m.active[videoID]; running {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("video %s is already being scanned", videoID)
	}
	m.active[videoID] = cancel
	m.mu.Unlock()

	go m.run(ctx, cancel, job)
	return nil
}

// Cancel aborts a running scan. The job finishes its current frame, keeps
// its partial detection log, and lands in failed state.
func (m *Manager) Cancel(videoID string) error {
	m.mu.RLock()
	cancel, ok := m.active[videoID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no running scan for video %s", videoID)
	}
	cancel()
	return nil
}

// Running reports whether a scan goroutine is active for the video.
func (m *Manager) Running(videoID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[videoID]
	return ok
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, job *models.Video) {
	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.active, job.ID)
		m.mu.Unlock()
	}()

	sourcePath, err := m.uploads.AbsPath(job.StoredFilename)
	if err != nil {
		m.fail(job.ID, err)
		return
	}

	if err := m.processor.Run(ctx, job, sourcePath); err != nil {
		m.fail(job.ID, err)
		return
	}

	if err := Finalize(m.videos, m.outputs, job.ID); err != nil {
		m.fail(job.ID, err)
	}
}

// Finalize renders and stores the report for a processed job, then moves
// it to completed.
func Finalize(videos *database.VideoRepository, outputs storage.Storage, videoID string) error {
	// Re-read the job: the scan persisted the summary and frame counts.
	job, err := videos.GetByID(context.Background(), videoID)
	if err != nil {
		return err
	}

	html, err := report.Generate(job)
	if err != nil {
		return err
	}
	reportRel := path.Join(config.ReportsDir, videoID+".html")
	if _, err := outputs.SaveBytes(reportRel, html); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	return videos.Complete(context.Background(), videoID, reportRel)
}

// fail records the terminal failure reason. Cancellation is surfaced as a
// plain "cancelled" rather than the context error text.
func (m *Manager) fail(videoID string, cause error) {
	reason := cause.Error()
	if errors.Is(cause, context.Canceled) {
		reason = "cancelled"
	}
	log.Printf("[SCAN] Video %s failed: %v", videoID, cause)
	if err := m.videos.SetFailed(context.Background(), videoID, reason); err != nil {
		log.Printf("[SCAN] Video %s: failed to record failure: %v", videoID, err)
	}
}
