package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"facetrace/internal/models"
)

// DetectionRepository is the append-only detection log. Rows are immutable
// once written; the only delete removes a whole video's log with the video.
type DetectionRepository struct {
	db *DB
}

func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (r *DetectionRepository) Insert(ctx context.Context, detection *models.Detection) error {
	if detection.ID == "" {
		detection.ID = uuid.New().String()
	}
	if detection.CreatedAt.IsZero() {
		detection.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO detections (
			id, video_id, person_id, person_name, timestamp, frame_index,
			box_left, box_top, box_right, box_bottom, confidence, snapshot_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.conn.ExecContext(ctx, query,
		detection.ID,
		detection.VideoID,
		detection.PersonID,
		detection.PersonName,
		detection.Timestamp,
		detection.FrameIndex,
		detection.Box.Left,
		detection.Box.Top,
		detection.Box.Right,
		detection.Box.Bottom,
		detection.Confidence,
		detection.SnapshotPath,
		detection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

// ListByVideo returns a video's detections ordered by frame index. The
// order is by position in the stream, not by insertion order.
func (r *DetectionRepository) ListByVideo(ctx context.Context, videoID string) ([]*models.Detection, error) {
	query := `
		SELECT id, video_id, person_id, person_name, timestamp, frame_index,
			   box_left, box_top, box_right, box_bottom, confidence, snapshot_path, created_at
		FROM detections
		WHERE video_id = $1
		ORDER BY frame_index, person_id, id`

	rows, err := r.db.conn.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []*models.Detection
	for rows.Next() {
		d := &models.Detection{}
		if err := rows.Scan(
			&d.ID, &d.VideoID, &d.PersonID, &d.PersonName, &d.Timestamp, &d.FrameIndex,
			&d.Box.Left, &d.Box.Top, &d.Box.Right, &d.Box.Bottom,
			&d.Confidence, &d.SnapshotPath, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

func (r *DetectionRepository) CountByVideo(ctx context.Context, videoID string) (int, error) {
	var count int
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM detections WHERE video_id = $1`, videoID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

func (r *DetectionRepository) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM detections WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
