package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"facetrace/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `id, filename, stored_filename, content_type, size, status,
	processed_frames, total_frames, progress, processing_time_seconds,
	annotated_path, report_path, error, summary, created_at, updated_at`

func (r *VideoRepository) Insert(ctx context.Context, video *models.Video) error {
	summary, err := json.Marshal(video.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.db.conn.ExecContext(ctx, query,
		video.ID, video.Filename, video.StoredFilename, video.ContentType, video.Size,
		video.Status, video.ProcessedFrames, video.TotalFrames, video.Progress,
		video.ProcessingTimeSeconds, video.AnnotatedPath, video.ReportPath,
		video.Error, string(summary), video.CreatedAt, video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) scanVideo(scan func(dest ...any) error) (*models.Video, error) {
	video := &models.Video{}
	var summary string
	err := scan(
		&video.ID, &video.Filename, &video.StoredFilename, &video.ContentType, &video.Size,
		&video.Status, &video.ProcessedFrames, &video.TotalFrames, &video.Progress,
		&video.ProcessingTimeSeconds, &video.AnnotatedPath, &video.ReportPath,
		&video.Error, &summary, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(summary), &video.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	row := r.db.conn.QueryRowContext(ctx, query, id)
	video, err := r.scanVideo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) List(ctx context.Context) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC, id`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := r.scanVideo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// UpdateStatus moves a job between states. Terminal states are never left:
// the guard refuses to overwrite completed or failed.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE videos SET status = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ('completed', 'failed')`

	_, err := r.db.conn.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// UpdateProgress persists a progress checkpoint. The WHERE clause keeps the
// persisted value monotonically non-decreasing even if a stale writer
// races a fresher one.
func (r *VideoRepository) UpdateProgress(ctx context.Context, id string, processedFrames, totalFrames int, progress float64) error {
	query := `
		UPDATE videos
		SET processed_frames = $1, total_frames = $2, progress = $3, updated_at = $4
		WHERE id = $5 AND progress <= $3`

	_, err := r.db.conn.ExecContext(ctx, query,
		processedFrames, totalFrames, progress, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// SetScanResults records the outcome of a fully scanned video and moves the
// job to processed. Report generation still follows before completion.
func (r *VideoRepository) SetScanResults(ctx context.Context, id string, annotatedPath string, summary models.Summary, processedFrames, totalFrames int, processingTime float64) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE videos
		SET status = $1, annotated_path = $2, summary = $3, processed_frames = $4,
			total_frames = $5, progress = 100, processing_time_seconds = $6, updated_at = $7
		WHERE id = $8 AND status NOT IN ('completed', 'failed')`

	_, err = r.db.conn.ExecContext(ctx, query,
		models.StatusProcessed, annotatedPath, string(raw),
		processedFrames, totalFrames, processingTime, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set scan results: %w", err)
	}
	return nil
}

// Complete records the report artifact and moves the job to its terminal
// completed state.
func (r *VideoRepository) Complete(ctx context.Context, id, reportPath string) error {
	query := `
		UPDATE videos SET status = $1, report_path = $2, updated_at = $3
		WHERE id = $4 AND status NOT IN ('completed', 'failed')`

	_, err := r.db.conn.ExecContext(ctx, query,
		models.StatusCompleted, reportPath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete video: %w", err)
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.conn.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// SetFailed marks a job failed with a coarse reason. Detections already
// logged stay in place; partial results remain queryable.
func (r *VideoRepository) SetFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE videos SET status = $1, error = $2, updated_at = $3
		WHERE id = $4 AND status NOT IN ('completed', 'failed')`

	_, err := r.db.conn.ExecContext(ctx, query,
		models.StatusFailed, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark video failed: %w", err)
	}
	return nil
}
