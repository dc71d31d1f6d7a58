// Package overlay turns detector bounding boxes into display space
// rectangles and produces the drawing commands for a preview overlay.
package overlay

import (
	"errors"
	"math"
)

// ErrInvalidInput is returned for non positive source or view dimensions.
var ErrInvalidInput = errors.New("invalid input")

// BoundingBox is a detector result in source image pixels.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Label  *string `json:"label,omitempty"`
	ID     *int64  `json:"id,omitempty"`
}

// NormalizedBox is a BoundingBox relative to the source image size, so a
// box covering the whole image is 0,0,1,1.
type NormalizedBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	ID     *int64  `json:"id,omitempty"`
}

// DisplayBox is a rectangle in surface coordinates.
type DisplayBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	ID     *int64  `json:"id,omitempty"`
}

func (b DisplayBox) Width() float64  { return b.Right - b.Left }
func (b DisplayBox) Height() float64 { return b.Bottom - b.Top }

// Empty reports whether the box has no area.
func (b DisplayBox) Empty() bool {
	return !(b.Width() > 0) || !(b.Height() > 0)
}

// sanitize collapses boxes with a negative extent to an empty rectangle at
// their origin.
func (b DisplayBox) sanitize() DisplayBox {
	if b.Right < b.Left || math.IsNaN(b.Right) {
		b.Right = b.Left
	}
	if b.Bottom < b.Top || math.IsNaN(b.Bottom) {
		b.Bottom = b.Top
	}
	return b
}

func validSize(w, h float64) bool {
	return w > 0 && h > 0 && !math.IsInf(w, 0) && !math.IsInf(h, 0)
}

// Normalize divides the box by the source image size.
func Normalize(box BoundingBox, sourceWidth, sourceHeight float64) (NormalizedBox, error) {
	if !validSize(sourceWidth, sourceHeight) {
		return NormalizedBox{}, ErrInvalidInput
	}
	return NormalizedBox{
		Left:   box.Left / sourceWidth,
		Top:    box.Top / sourceHeight,
		Right:  box.Right / sourceWidth,
		Bottom: box.Bottom / sourceHeight,
		ID:     box.ID,
	}, nil
}

// Denormalize is the inverse of Normalize.
func Denormalize(box NormalizedBox, sourceWidth, sourceHeight float64) BoundingBox {
	return BoundingBox{
		Left:   box.Left * sourceWidth,
		Top:    box.Top * sourceHeight,
		Right:  box.Right * sourceWidth,
		Bottom: box.Bottom * sourceHeight,
		ID:     box.ID,
	}
}

// SourceSize returns the upright image size for a frame of w×h pixels
// captured with the given rotation in degrees.
func SourceSize(w, h float64, rotation int) (float64, float64) {
	switch ((rotation % 360) + 360) % 360 {
	case 90, 270:
		return h, w
	}
	return w, h
}
