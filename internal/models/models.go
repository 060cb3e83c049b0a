package models

import (
	"time"

	"github.com/google/uuid"
)

// Video job status values. completed and failed are terminal.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Box is a detection bounding box in source-frame pixel coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (b Box) Width() int  { return b.Right - b.Left }
func (b Box) Height() int { return b.Bottom - b.Top }
func (b Box) Area() int   { return b.Width() * b.Height() }

// Clamp returns the box restricted to a frame of the given dimensions.
func (b Box) Clamp(frameWidth, frameHeight int) Box {
	if b.Left < 0 {
		b.Left = 0
	}
	if b.Top < 0 {
		b.Top = 0
	}
	if b.Right > frameWidth {
		b.Right = frameWidth
	}
	if b.Bottom > frameHeight {
		b.Bottom = frameHeight
	}
	return b
}

// Person is a resolved identity. In embedding mode it is shared across
// videos and its reference embeddings may grow over time; in track mode it
// is scoped to a single video and carries no embeddings.
type Person struct {
	ID         string
	Name       string
	Embeddings [][]float64
	CreatedAt  time.Time
}

func NewPerson(name string, embedding []float64) *Person {
	p := &Person{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if embedding != nil {
		p.Embeddings = [][]float64{embedding}
	}
	return p
}

// Detection is one accepted sighting of a person in one frame. Rows are
// append-only; the referenced person always exists before the row is
// written.
type Detection struct {
	ID           string
	VideoID      string
	PersonID     string
	PersonName   string
	Timestamp    float64
	FrameIndex   int
	Box          Box
	Confidence   *float64
	SnapshotPath string
	CreatedAt    time.Time
}

// Appearance is one sighting as listed in a video summary.
type Appearance struct {
	Timestamp    float64 `json:"timestamp"`
	FrameIndex   int     `json:"frame_index"`
	Box          Box     `json:"bounding_box"`
	SnapshotPath string  `json:"snapshot_path,omitempty"`
}

type PersonSummary struct {
	PersonID    string       `json:"person_id"`
	Name        string       `json:"name"`
	Appearances int          `json:"appearances"`
	Details     []Appearance `json:"details"`
}

// Summary is the per-video aggregate. It is recomputed wholesale from the
// detection log, never patched incrementally.
type Summary struct {
	TotalDetections int             `json:"total_detections"`
	UniquePeople    int             `json:"unique_people"`
	PerPerson       []PersonSummary `json:"per_person"`
}

func EmptySummary() Summary {
	return Summary{PerPerson: []PersonSummary{}}
}

// Video is one scan job and its denormalized results.
type Video struct {
	ID                    string
	Filename              string
	StoredFilename        string
	ContentType           string
	Size                  int64
	Status                string
	ProcessedFrames       int
	TotalFrames           int
	Progress              float64
	ProcessingTimeSeconds float64
	AnnotatedPath         string
	ReportPath            string
	Error                 string
	Summary               Summary
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewVideo(filename, storedFilename, contentType string, size int64) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:             uuid.New().String(),
		Filename:       filename,
		StoredFilename: storedFilename,
		ContentType:    contentType,
		Size:           size,
		Status:         StatusUploaded,
		Summary:        EmptySummary(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
