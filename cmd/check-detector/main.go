// check-detector verifies that the detection backend is reachable and
// prints scan statistics from the database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"facetrace/internal/config"
	"facetrace/internal/detect"
)

func main() {
	cfg := config.Load()

	fmt.Println("Checking detection backend")
	fmt.Println("==========================")
	fmt.Printf("URL:  %s\n", cfg.DetectorURL)
	fmt.Printf("Mode: %s\n", cfg.DetectorMode)

	detector := detect.NewRemoteDetector(detect.RemoteConfig{
		Endpoint: cfg.DetectorURL,
		Mode:     detect.Mode(cfg.DetectorMode),
		Upsample: cfg.DetectionUpsample,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := detector.CheckHealth(ctx); err != nil {
		fmt.Printf("Backend: NOT READY (%v)\n", err)
		os.Exit(1)
	}
	fmt.Println("Backend: ready, model loaded")

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	var videoCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM videos").Scan(&videoCount); err != nil {
		fmt.Println("No videos table yet (nothing scanned)")
		return
	}
	fmt.Printf("\nVideos: %d\n", videoCount)

	var peopleCount, detectionCount int
	db.QueryRow("SELECT COUNT(*) FROM people").Scan(&peopleCount)
	db.QueryRow("SELECT COUNT(*) FROM detections").Scan(&detectionCount)
	fmt.Printf("People: %d\n", peopleCount)
	fmt.Printf("Detections: %d\n", detectionCount)

	rows, err := db.Query(`
		SELECT filename, status, progress, error
		FROM videos
		ORDER BY created_at DESC
		LIMIT 5`)
	if err != nil {
		return
	}
	defer rows.Close()

	fmt.Println("\nRecent videos:")
	for rows.Next() {
		var filename, status, errText string
		var progress float64
		if err := rows.Scan(&filename, &status, &progress, &errText); err != nil {
			continue
		}
		line := fmt.Sprintf("  %s [%s] %.0f%%", filename, status, progress)
		if errText != "" {
			line += " error: " + errText
		}
		fmt.Println(line)
	}
}
