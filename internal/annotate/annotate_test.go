package annotate

import (
	"image"
	"testing"

	"facetrace/internal/models"
)

func TestDrawBox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	box := models.Box{Left: 10, Top: 20, Right: 50, Bottom: 60}

	DrawBox(img, box, BoxColor, 2)

	if got := img.RGBAAt(30, 20); got != BoxColor {
		t.Errorf("Expected box color on top edge, got %v", got)
	}
	if got := img.RGBAAt(10, 40); got != BoxColor {
		t.Errorf("Expected box color on left edge, got %v", got)
	}
	if got := img.RGBAAt(30, 40); got == BoxColor {
		t.Error("Box interior should not be filled")
	}
}

func TestDrawBox_OutOfBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	box := models.Box{Left: -10, Top: -10, Right: 80, Bottom: 80}

	// Must not panic when the box extends past the frame.
	DrawBox(img, box, BoxColor, 2)
}

func TestMarkDetection_LabelNearTopEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	box := models.Box{Left: 5, Top: 2, Right: 60, Bottom: 40}

	// Label anchor would land above the frame; it gets clamped inside.
	MarkDetection(img, box, "Person 1")
}

func TestScale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))

	scaled := Scale(img, 0.7)
	bounds := scaled.Bounds()
	if bounds.Dx() != 70 || bounds.Dy() != 42 {
		t.Errorf("Expected 70x42, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestScale_OddDimensionsRoundedToEven(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 101, 61))

	scaled := Scale(img, 0.5)
	bounds := scaled.Bounds()
	if bounds.Dx()%2 != 0 || bounds.Dy()%2 != 0 {
		t.Errorf("Expected even dimensions, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestScale_IdentityFactor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))

	scaled := Scale(img, 1.0)
	if scaled.Bounds() != img.Bounds() {
		t.Errorf("Expected unchanged bounds, got %v", scaled.Bounds())
	}
}
