package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path"

	"facetrace/internal/config"
	"facetrace/internal/models"
	"facetrace/internal/storage"
)

const snapshotJPEGQuality = 90

// evidenceRecorder crops detection regions out of source frames and stores
// them under snapshots/<video>/<person>/<frame>.<ext>.
type evidenceRecorder struct {
	store  storage.Storage
	format string // "jpg" or "png"
}

func (e *evidenceRecorder) Record(frame image.Image, box models.Box, videoID, personID string, frameIndex int) (string, error) {
	bounds := frame.Bounds()
	clamped := box.Clamp(bounds.Dx(), bounds.Dy())
	if clamped.Width() <= 0 || clamped.Height() <= 0 {
		return "", fmt.Errorf("degenerate crop region %+v", box)
	}

	crop := image.NewRGBA(image.Rect(0, 0, clamped.Width(), clamped.Height()))
	src := image.Pt(bounds.Min.X+clamped.Left, bounds.Min.Y+clamped.Top)
	draw.Draw(crop, crop.Bounds(), frame, src, draw.Src)

	var buf bytes.Buffer
	var err error
	switch e.format {
	case "png":
		err = png.Encode(&buf, crop)
	default:
		err = jpeg.Encode(&buf, crop, &jpeg.Options{Quality: snapshotJPEGQuality})
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	rel := path.Join(config.SnapshotsDir, videoID, personID, fmt.Sprintf("%d.%s", frameIndex, e.ext()))
	if _, err := e.store.SaveBytes(rel, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}
	return rel, nil
}

func (e *evidenceRecorder) ext() string {
	if e.format == "png" {
		return "png"
	}
	return "jpg"
}
