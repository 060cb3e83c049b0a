// scan-video runs a one-shot scan of a local video file against the same
// database and output layout the server uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"facetrace/internal/config"
	"facetrace/internal/database"
	"facetrace/internal/detect"
	"facetrace/internal/models"
	"facetrace/internal/pipeline"
	"facetrace/internal/storage"
)

var opts struct {
	input       string
	detectorURL string
	mode        string
	threshold   float64
	sampleRate  int
	scale       float64
}

var rootCmd = &cobra.Command{
	Use:   "scan-video",
	Short: "Scan a video for people and produce an annotated copy and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Path to video file")
	rootCmd.Flags().StringVar(&opts.detectorURL, "detector", "", "Detection backend URL (default from DETECTOR_URL)")
	rootCmd.Flags().StringVar(&opts.mode, "mode", "", "Detection mode: embedding or track (default from DETECTOR_MODE)")
	rootCmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", -1, "Face match distance threshold (default from MATCH_THRESHOLD)")
	rootCmd.Flags().IntVarP(&opts.sampleRate, "nth-frame", "n", 0, "Analyze every Nth frame (default from FRAME_SAMPLE_RATE)")
	rootCmd.Flags().Float64Var(&opts.scale, "scale", -1, "Output video scale factor (default from OUTPUT_SCALE)")
	rootCmd.MarkFlagRequired("input")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runScan(ctx context.Context) error {
	cfg := config.Load()
	if opts.detectorURL != "" {
		cfg.DetectorURL = opts.detectorURL
	}
	if opts.mode != "" {
		cfg.DetectorMode = opts.mode
	}
	if opts.threshold >= 0 {
		cfg.MatchThreshold = opts.threshold
	}
	if opts.sampleRate > 0 {
		cfg.FrameSampleRate = opts.sampleRate
	}
	if opts.scale > 0 {
		cfg.OutputScale = opts.scale
	}

	input, err := filepath.Abs(opts.input)
	if err != nil {
		return err
	}
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input not readable: %w", err)
	}

	outputs, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to initialize output storage: %w", err)
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
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	detector := detect.NewRemoteDetector(detect.RemoteConfig{
		Endpoint: cfg.DetectorURL,
		Mode:     detect.Mode(cfg.DetectorMode),
		Upsample: cfg.DetectionUpsample,
	})
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = detector.CheckHealth(healthCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("detection backend not ready at %s: %w", cfg.DetectorURL, err)
	}

	videos := database.NewVideoRepository(db)
	people := database.NewPersonRepository(db)
	detections := database.NewDetectionRepository(db)

	processor := pipeline.NewProcessor(pipeline.Config{
		MatchThreshold:         cfg.MatchThreshold,
		MinFaceAreaRatio:       cfg.MinFaceAreaRatio,
		ConfidenceThreshold:    cfg.ConfidenceThreshold,
		FrameSampleRate:        cfg.FrameSampleRate,
		OutputScale:            cfg.OutputScale,
		SnapshotFormat:         cfg.SnapshotFormat,
		MaxEmbeddingsPerPerson: cfg.MaxEmbeddingsPerPerson,
	}, detector, people, detections, videos, outputs)

	var bar *progressbar.ProgressBar
	processor.OnProgress = func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Scanning"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(processed)
	}

	stat, _ := os.Stat(input)
	job := models.NewVideo(filepath.Base(input), input, "video/mp4", stat.Size())
	if err := videos.Insert(ctx, job); err != nil {
		return fmt.Errorf("failed to register video: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Video ID: %s\n", job.ID)

	if err := processor.Run(ctx, job, input); err != nil {
		reason := err.Error()
		if errors.Is(err, context.Canceled) {
			reason = "cancelled"
		}
		videos.SetFailed(context.Background(), job.ID, reason)
		return fmt.Errorf("scan failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if err := pipeline.Finalize(videos, outputs, job.ID); err != nil {
		videos.SetFailed(context.Background(), job.ID, err.Error())
		return fmt.Errorf("failed to finalize scan: %w", err)
	}

	done, err := videos.GetByID(context.Background(), job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Detections: %d\n", done.Summary.TotalDetections)
	fmt.Printf("Unique people: %d\n", done.Summary.UniquePeople)
	for _, p := range done.Summary.PerPerson {
		fmt.Printf("  %s: %d appearances\n", p.Name, p.Appearances)
	}
	fmt.Printf("Annotated video: %s\n", filepath.Join(cfg.OutputDir, done.AnnotatedPath))
	fmt.Printf("Report: %s\n", filepath.Join(cfg.OutputDir, done.ReportPath))
	return nil
}
