package detect

// Plausible height/width range for a detected face or person region.
const (
	minAspect = 0.33
	maxAspect = 4.0
)

// Filter rejects implausible candidate regions before resolution. It is a
// pure predicate over the box, frame dimensions, and optional confidence,
// so the same candidate always filters the same way.
type Filter struct {
	// MinAreaRatio is the smallest accepted box area as a fraction of the
	// frame area. The boundary is inclusive: a box exactly at the ratio
	// passes.
	MinAreaRatio float64
	// MinConfidence rejects candidates the backend scored below it.
	// Candidates without a confidence score are not confidence-filtered.
	MinConfidence float64
}

func (f Filter) Accept(c Candidate, frameWidth, frameHeight int) bool {
	w := c.Box.Width()
	h := c.Box.Height()
	if w <= 0 || h <= 0 || frameWidth <= 0 || frameHeight <= 0 {
		return false
	}

	areaRatio := float64(w*h) / float64(frameWidth*frameHeight)
	if areaRatio < f.MinAreaRatio {
		return false
	}

	aspect := float64(h) / float64(w)
	if aspect < minAspect || aspect > maxAspect {
		return false
	}

	if c.Confidence != nil && *c.Confidence < f.MinConfidence {
		return false
	}
	return true
}
