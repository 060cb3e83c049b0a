package database

import (
	"context"
	"testing"
	"time"

	"facetrace/internal/models"
)

func TestVideoRepository_InsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("clip.mp4", "abc123.mp4", "video/mp4", 1024)
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if retrieved.Filename != "clip.mp4" {
		t.Errorf("Expected filename clip.mp4, got %s", retrieved.Filename)
	}
	if retrieved.Status != models.StatusUploaded {
		t.Errorf("Expected status uploaded, got %s", retrieved.Status)
	}
	if retrieved.Summary.PerPerson == nil {
		t.Error("Expected empty summary, got nil per-person list")
	}
}

func TestVideoRepository_List_NewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video1 := models.NewVideo("first.mp4", "a.mp4", "video/mp4", 1)
	video2 := models.NewVideo("second.mp4", "b.mp4", "video/mp4", 2)
	video2.CreatedAt = video1.CreatedAt.Add(10 * time.Millisecond)

	if err := repo.Insert(ctx, video1); err != nil {
		t.Fatalf("Failed to insert video1: %v", err)
	}
	if err := repo.Insert(ctx, video2); err != nil {
		t.Fatalf("Failed to insert video2: %v", err)
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("Expected 2 videos, got %d", len(videos))
	}
	if videos[0].ID != video2.ID {
		t.Errorf("Expected newest first, got %s", videos[0].Filename)
	}
}

func TestVideoRepository_ProgressMonotonic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("clip.mp4", "abc.mp4", "video/mp4", 1)
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	if err := repo.UpdateProgress(ctx, video.ID, 50, 100, 50); err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}
	// A stale writer must not move the persisted value backwards.
	if err := repo.UpdateProgress(ctx, video.ID, 30, 100, 30); err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if retrieved.Progress != 50 {
		t.Errorf("Expected progress to stay at 50, got %.2f", retrieved.Progress)
	}
	if retrieved.ProcessedFrames != 50 {
		t.Errorf("Expected processed_frames 50, got %d", retrieved.ProcessedFrames)
	}
}

func TestVideoRepository_TerminalStatesStick(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("clip.mp4", "abc.mp4", "video/mp4", 1)
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	if err := repo.SetFailed(ctx, video.ID, "cancelled"); err != nil {
		t.Fatalf("Failed to fail video: %v", err)
	}
	if err := repo.UpdateStatus(ctx, video.ID, models.StatusProcessing); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if retrieved.Status != models.StatusFailed {
		t.Errorf("Expected terminal failed status, got %s", retrieved.Status)
	}
	if retrieved.Error != "cancelled" {
		t.Errorf("Expected error reason cancelled, got %q", retrieved.Error)
	}
}

func TestVideoRepository_ScanResultsAndComplete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("clip.mp4", "abc.mp4", "video/mp4", 1)
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	summary := models.Summary{
		TotalDetections: 4,
		UniquePeople:    2,
		PerPerson: []models.PersonSummary{
			{PersonID: "p1", Name: "Person 1", Appearances: 3, Details: []models.Appearance{}},
			{PersonID: "p2", Name: "Person 2", Appearances: 1, Details: []models.Appearance{}},
		},
	}

	if err := repo.SetScanResults(ctx, video.ID, "videos/abc.mp4", summary, 10, 10, 2.5); err != nil {
		t.Fatalf("Failed to set scan results: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if retrieved.Status != models.StatusProcessed {
		t.Errorf("Expected status processed, got %s", retrieved.Status)
	}
	if retrieved.Progress != 100 {
		t.Errorf("Expected progress 100, got %.2f", retrieved.Progress)
	}
	if retrieved.Summary.UniquePeople != 2 {
		t.Errorf("Expected 2 unique people, got %d", retrieved.Summary.UniquePeople)
	}

	if err := repo.Complete(ctx, video.ID, "reports/abc.html"); err != nil {
		t.Fatalf("Failed to complete video: %v", err)
	}
	retrieved, err = repo.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if retrieved.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", retrieved.Status)
	}
	if retrieved.ReportPath != "reports/abc.html" {
		t.Errorf("Expected report path, got %q", retrieved.ReportPath)
	}
}
