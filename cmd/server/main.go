package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"facetrace/internal/api"
	"facetrace/internal/config"
	"facetrace/internal/database"
	"facetrace/internal/detect"
	"facetrace/internal/pipeline"
	"facetrace/internal/storage"
)

func main() {
	cfg := config.Load()

	uploads, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.Fatal("Failed to initialize upload storage:", err)
	}
	outputs, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		log.Fatal("Failed to initialize output storage:", err)
	}

	db, err := database.NewDB(database.Config{
		Type:       cfg.DBType,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.DBPath,
	})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	log.Printf("Running database migrations from %s", cfg.MigrationsPath)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	videos := database.NewVideoRepository(db)
	people := database.NewPersonRepository(db)
	detections := database.NewDetectionRepository(db)

	detector := detect.NewRemoteDetector(detect.RemoteConfig{
		Endpoint: cfg.DetectorURL,
		Mode:     detect.Mode(cfg.DetectorMode),
		Upsample: cfg.DetectionUpsample,
	})
	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := detector.CheckHealth(healthCtx); err != nil {
		log.Printf("Warning: detection backend not reachable at %s: %v", cfg.DetectorURL, err)
	}
	cancel()

	processor := pipeline.NewProcessor(pipeline.Config{
		MatchThreshold:         cfg.MatchThreshold,
		MinFaceAreaRatio:       cfg.MinFaceAreaRatio,
		ConfidenceThreshold:    cfg.ConfidenceThreshold,
		FrameSampleRate:        cfg.FrameSampleRate,
		OutputScale:            cfg.OutputScale,
		SnapshotFormat:         cfg.SnapshotFormat,
		MaxEmbeddingsPerPerson: cfg.MaxEmbeddingsPerPerson,
	}, detector, people, detections, videos, outputs)

	app := &api.App{
		Uploads:       uploads,
		Outputs:       outputs,
		DB:            db,
		Videos:        videos,
		People:        people,
		Detections:    detections,
		Manager:       pipeline.NewManager(processor, videos, uploads, outputs),
		MaxUploadSize: cfg.MaxUploadSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Upload directory: %s", cfg.UploadDir)
	log.Printf("Output directory: %s", cfg.OutputDir)
	log.Printf("Database type: %s", cfg.DBType)
	if cfg.DBType == "postgres" {
		log.Printf("Database connection: %s@%s:%d/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	} else {
		log.Printf("Database path: %s", cfg.DBPath)
	}
	log.Printf("Detector: %s (%s mode)", cfg.DetectorURL, cfg.DetectorMode)

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
