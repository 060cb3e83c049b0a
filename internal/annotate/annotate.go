package annotate

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"facetrace/internal/models"
)

// BoxColor is the identity box and label color on annotated frames.
var BoxColor = color.RGBA{0, 255, 0, 255}

var labelBackground = color.RGBA{0, 0, 0, 180}

// ToRGBA returns a mutable copy of the frame for drawing.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// DrawBox draws a rectangle outline clamped to the image bounds.
func DrawBox(img *image.RGBA, box models.Box, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		for x := box.Left; x <= box.Right && x < bounds.Max.X; x++ {
			if x < 0 {
				continue
			}
			if box.Top+t >= 0 && box.Top+t < bounds.Max.Y {
				img.Set(x, box.Top+t, c)
			}
			if box.Bottom-t >= 0 && box.Bottom-t < bounds.Max.Y {
				img.Set(x, box.Bottom-t, c)
			}
		}
		for y := box.Top; y <= box.Bottom && y < bounds.Max.Y; y++ {
			if y < 0 {
				continue
			}
			if box.Left+t >= 0 && box.Left+t < bounds.Max.X {
				img.Set(box.Left+t, y, c)
			}
			if box.Right-t >= 0 && box.Right-t < bounds.Max.X {
				img.Set(box.Right-t, y, c)
			}
		}
	}
}

// DrawLabel draws text with a dark backing strip so it stays readable on
// any frame content. The anchor is the text baseline's top-left corner.
func DrawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, labelBackground)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}

// MarkDetection draws one resolved detection: its box plus the person's
// name above it.
func MarkDetection(img *image.RGBA, box models.Box, name string) {
	DrawBox(img, box, BoxColor, 2)
	DrawLabel(img, box.Left, box.Top-12, name, BoxColor)
}

// Scale resizes a frame by the given factor. Output dimensions are rounded
// down to even numbers since common video encoders require them.
func Scale(img image.Image, factor float64) *image.RGBA {
	if factor <= 0 || factor == 1.0 {
		return ToRGBA(img)
	}

	bounds := img.Bounds()
	w := evenDim(float64(bounds.Dx()) * factor)
	h := evenDim(float64(bounds.Dy()) * factor)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)
	return scaled
}

func evenDim(v float64) int {
	n := int(v)
	if n < 2 {
		return 2
	}
	return n - n%2
}
