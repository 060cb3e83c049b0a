package detect

import (
	"context"
	"image"

	"facetrace/internal/models"
)

// Mode selects how candidates are keyed for identity resolution.
type Mode string

const (
	// ModeEmbedding backends return a biometric embedding per candidate.
	ModeEmbedding Mode = "embedding"
	// ModeTrack backends return a tracker-assigned id stable within one
	// video.
	ModeTrack Mode = "track"
)

// Candidate is one raw detection from a backend, before filtering and
// resolution. Exactly one of Embedding and TrackID is populated, matching
// the backend's mode.
type Candidate struct {
	Box        models.Box
	Confidence *float64
	Embedding  []float64
	TrackID    *int
}

// Detector is the external detection capability. Implementations must be
// deterministic for a given frame and configuration.
type Detector interface {
	Mode() Mode
	Detect(ctx context.Context, frame image.Image) ([]Candidate, error)
}
