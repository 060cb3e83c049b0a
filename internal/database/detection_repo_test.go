package database

import (
	"context"
	"testing"

	"facetrace/internal/models"
)

func insertDetection(t *testing.T, repo *DetectionRepository, videoID, personID string, frameIndex int) *models.Detection {
	t.Helper()
	d := &models.Detection{
		VideoID:    videoID,
		PersonID:   personID,
		PersonName: "Person 1",
		Timestamp:  float64(frameIndex) / 24.0,
		FrameIndex: frameIndex,
		Box:        models.Box{Left: 10, Top: 20, Right: 110, Bottom: 140},
	}
	if err := repo.Insert(context.Background(), d); err != nil {
		t.Fatalf("Failed to insert detection: %v", err)
	}
	return d
}

func TestDetectionRepository_InsertAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDetectionRepository(db)

	// Inserted out of frame order; the list must come back ordered.
	insertDetection(t, repo, "video-1", "person-a", 7)
	insertDetection(t, repo, "video-1", "person-a", 2)
	insertDetection(t, repo, "video-1", "person-b", 5)
	insertDetection(t, repo, "video-2", "person-a", 1)

	detections, err := repo.ListByVideo(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("Failed to list detections: %v", err)
	}

	if len(detections) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(detections))
	}
	for i := 1; i < len(detections); i++ {
		if detections[i].FrameIndex < detections[i-1].FrameIndex {
			t.Errorf("Detections out of frame order: %d before %d",
				detections[i-1].FrameIndex, detections[i].FrameIndex)
		}
	}
	if detections[0].Box.Right != 110 {
		t.Errorf("Box not round-tripped: %+v", detections[0].Box)
	}
}

func TestDetectionRepository_NullConfidence(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDetectionRepository(db)
	ctx := context.Background()

	conf := 0.92
	withConf := &models.Detection{
		VideoID: "video-1", PersonID: "p", PersonName: "Person 1",
		FrameIndex: 1, Confidence: &conf,
	}
	without := &models.Detection{
		VideoID: "video-1", PersonID: "p", PersonName: "Person 1",
		FrameIndex: 2,
	}
	if err := repo.Insert(ctx, withConf); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := repo.Insert(ctx, without); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	detections, err := repo.ListByVideo(ctx, "video-1")
	if err != nil {
		t.Fatalf("Failed to list detections: %v", err)
	}
	if detections[0].Confidence == nil || *detections[0].Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %v", detections[0].Confidence)
	}
	if detections[1].Confidence != nil {
		t.Errorf("Expected nil confidence, got %v", *detections[1].Confidence)
	}
}

func TestDetectionRepository_CountAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDetectionRepository(db)
	ctx := context.Background()

	insertDetection(t, repo, "video-1", "person-a", 1)
	insertDetection(t, repo, "video-1", "person-a", 2)

	count, err := repo.CountByVideo(ctx, "video-1")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	if err := repo.DeleteByVideo(ctx, "video-1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	count, err = repo.CountByVideo(ctx, "video-1")
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected count 0 after delete, got %d", count)
	}
}
