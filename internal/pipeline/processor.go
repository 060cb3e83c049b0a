package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"path"
	"time"

	"facetrace/internal/annotate"
	"facetrace/internal/config"
	"facetrace/internal/database"
	"facetrace/internal/detect"
	"facetrace/internal/models"
	"facetrace/internal/resolve"
	"facetrace/internal/storage"
	"facetrace/internal/video"
)

// FrameSource yields decoded frames strictly in stream order.
type FrameSource interface {
	Next() (image.Image, error)
	Close() error
}

// FrameSink consumes annotated output frames in order.
type FrameSink interface {
	WriteFrame(img image.Image) error
	Close() error
}

// Config carries the pipeline knobs; see internal/config for defaults and
// the effect of each.
type Config struct {
	MatchThreshold         float64
	MinFaceAreaRatio       float64
	ConfidenceThreshold    float64
	FrameSampleRate        int
	OutputScale            float64
	SnapshotFormat         string
	MaxEmbeddingsPerPerson int
}

// Processor runs one video scan end to end: decode, detect, filter,
// resolve, record evidence, annotate, track progress, aggregate.
type Processor struct {
	cfg        Config
	detector   detect.Detector
	people     *database.PersonRepository
	detections *database.DetectionRepository
	videos     *database.VideoRepository
	store      storage.Storage

	// OnProgress, when set, is called after every processed frame. The
	// CLI uses it to drive its progress bar.
	OnProgress func(processed, total int)
}

func NewProcessor(
	cfg Config,
	detector detect.Detector,
	people *database.PersonRepository,
	detections *database.DetectionRepository,
	videos *database.VideoRepository,
	store storage.Storage,
) *Processor {
	if cfg.FrameSampleRate < 1 {
		cfg.FrameSampleRate = 1
	}
	if cfg.OutputScale <= 0 {
		cfg.OutputScale = 1.0
	}
	return &Processor{
		cfg:        cfg,
		detector:   detector,
		people:     people,
		detections: detections,
		videos:     videos,
		store:      store,
	}
}

// Run scans the video at sourcePath for the given job. It returns after
// the job has been moved to processed with its scan results persisted;
// report generation and completion are the caller's concern. On error the
// job is left in processing state for the caller to fail.
func (p *Processor) Run(ctx context.Context, job *models.Video, sourcePath string) error {
	if err := p.videos.UpdateStatus(ctx, job.ID, models.StatusProcessing); err != nil {
		return err
	}

	info, err := video.Probe(sourcePath)
	if err != nil {
		return fmt.Errorf("unreadable video: %w", err)
	}

	reader, err := video.NewReader(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}

	annotatedRel := path.Join(config.AnnotatedDir, job.ID+".mp4")
	annotatedAbs, err := p.store.AbsPath(annotatedRel)
	if err != nil {
		return err
	}
	writer, err := video.NewWriter(annotatedAbs, info.FPS)
	if err != nil {
		reader.Close()
		return fmt.Errorf("failed to start output encoder: %w", err)
	}

	start := time.Now()
	processed, err := p.scan(ctx, job, reader, writer, info)

	// Encoder shutdown errors are fatal even on an otherwise clean scan:
	// without the annotated video the job has no deliverable.
	if closeErr := writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closeErr := reader.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	detections, err := p.detections.ListByVideo(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to read detection log: %w", err)
	}
	summary := Aggregate(detections)

	elapsed := time.Since(start).Seconds()
	if err := p.videos.SetScanResults(ctx, job.ID, annotatedRel, summary, processed, info.TotalFrames, elapsed); err != nil {
		return err
	}

	log.Printf("[SCAN] Video %s: %d frames, %d detections, %d people in %.2fs",
		job.ID, processed, summary.TotalDetections, summary.UniquePeople, elapsed)
	return nil
}

// scan is the frame loop. It returns the number of frames consumed, which
// on cancellation is the durable partial progress.
func (p *Processor) scan(ctx context.Context, job *models.Video, src FrameSource, sink FrameSink, info video.Info) (int, error) {
	roster, err := p.loadRoster(ctx)
	if err != nil {
		return 0, err
	}
	resolver := resolve.NewResolver(p.detector.Mode(), p.cfg.MatchThreshold, p.cfg.MaxEmbeddingsPerPerson)
	filter := detect.Filter{
		MinAreaRatio:  p.cfg.MinFaceAreaRatio,
		MinConfidence: p.cfg.ConfidenceThreshold,
	}
	evidence := &evidenceRecorder{store: p.store, format: p.cfg.SnapshotFormat}
	progress := newProgressTracker(p.videos, job.ID, info.TotalFrames, p.OnProgress)

	frameIndex := 0
	for {
		select {
		case <-ctx.Done():
			return frameIndex, ctx.Err()
		default:
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// One bad frame never aborts the scan.
			log.Printf("[SCAN] Video %s frame %d: %v", job.ID, frameIndex, err)
			frameIndex++
			progress.Update(ctx, frameIndex)
			continue
		}

		timestamp := float64(frameIndex) / info.FPS
		annotated := annotate.ToRGBA(frame)

		if frameIndex%p.cfg.FrameSampleRate == 0 {
			if err := p.processFrame(ctx, job, frame, annotated, frameIndex, timestamp, roster, resolver, filter, evidence); err != nil {
				return frameIndex, err
			}
		}

		if err := sink.WriteFrame(annotate.Scale(annotated, p.cfg.OutputScale)); err != nil {
			return frameIndex, fmt.Errorf("output encoder failed: %w", err)
		}

		frameIndex++
		progress.Update(ctx, frameIndex)
	}

	return frameIndex, nil
}

// processFrame runs detection through evidence recording for one frame,
// drawing accepted detections onto the annotated copy.
func (p *Processor) processFrame(
	ctx context.Context,
	job *models.Video,
	frame image.Image,
	annotated *image.RGBA,
	frameIndex int,
	timestamp float64,
	roster *resolve.Roster,
	resolver *resolve.Resolver,
	filter detect.Filter,
	evidence *evidenceRecorder,
) error {
	bounds := frame.Bounds()

	candidates, err := p.detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Backend hiccup on one frame: skip it, keep scanning.
		log.Printf("[SCAN] Video %s frame %d: detection failed: %v", job.ID, frameIndex, err)
		return nil
	}

	for _, candidate := range candidates {
		if !filter.Accept(candidate, bounds.Dx(), bounds.Dy()) {
			continue
		}

		resolution, err := resolver.Resolve(candidate, roster)
		if err != nil {
			// A resolution failure means the candidate violates the mode
			// contract; that is a logic bug, not a data problem.
			return fmt.Errorf("resolver error: %w", err)
		}

		// The person row must exist before any detection references it.
		if resolution.NewPerson != nil {
			if err := p.people.Create(ctx, resolution.NewPerson); err != nil {
				return fmt.Errorf("failed to create person: %w", err)
			}
		} else if resolution.EnrichWith != nil {
			if err := p.people.AppendEmbedding(ctx, resolution.PersonID, resolution.EnrichWith, p.cfg.MaxEmbeddingsPerPerson); err != nil {
				log.Printf("[SCAN] Video %s: failed to enrich person %s: %v", job.ID, resolution.PersonID, err)
			}
		}
		roster.Apply(resolution)

		box := candidate.Box.Clamp(bounds.Dx(), bounds.Dy())

		snapshotPath, err := evidence.Record(frame, box, job.ID, resolution.PersonID, frameIndex)
		if err != nil {
			// Degraded but useful: the detection row is still written.
			log.Printf("[SCAN] Video %s frame %d: snapshot failed: %v", job.ID, frameIndex, err)
			snapshotPath = ""
		}

		detection := &models.Detection{
			VideoID:      job.ID,
			PersonID:     resolution.PersonID,
			PersonName:   resolution.PersonName,
			Timestamp:    timestamp,
			FrameIndex:   frameIndex,
			Box:          box,
			Confidence:   candidate.Confidence,
			SnapshotPath: snapshotPath,
		}
		if err := p.detections.Insert(ctx, detection); err != nil {
			return fmt.Errorf("failed to append detection: %w", err)
		}

		annotate.MarkDetection(annotated, box, resolution.PersonName)
	}
	return nil
}

// loadRoster seeds resolution state. Embedding mode starts from the shared
// persistent roster; track ids are video-scoped, so track mode always
// starts empty.
func (p *Processor) loadRoster(ctx context.Context) (*resolve.Roster, error) {
	if p.detector.Mode() != detect.ModeEmbedding {
		return resolve.NewRoster(nil), nil
	}
	people, err := p.people.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return resolve.NewRoster(people), nil
}
