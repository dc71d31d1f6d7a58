// Package detect connects image detectors (faces, objects, labels) to the
// overlay renderer.
package detect

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/odmlbook/inkvision/overlay"
)

// Label is one classification of a detected object.
type Label struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	Index      int     `json:"index"`
}

// Detection is one result of a detector, the box in upright frame pixels
// (see Frame.Upright).
type Detection struct {
	Box        overlay.BoundingBox `json:"box"`
	Labels     []Label             `json:"labels,omitempty"`
	Score      *float32            `json:"score,omitempty"`
	TrackingID *int64              `json:"tracking_id,omitempty"`
}

// Frame is an image handed to a detector. Rotation is the clockwise
// rotation in degrees needed to display the image upright; Mirrored is set
// for front camera frames.
type Frame struct {
	Image    image.Image
	Rotation int
	Mirrored bool
}

// SourceSize is the upright size of the frame.
func (f Frame) SourceSize() (float64, float64) {
	b := f.Image.Bounds()
	return overlay.SourceSize(float64(b.Dx()), float64(b.Dy()), f.Rotation)
}

// Detector finds objects in a frame. Boxes are returned in upright
// coordinates, after applying the frame rotation. Implementations may block
// on network or inference and must honour ctx.
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]Detection, error)
}

// DetectorFunc adapts a function to a Detector.
type DetectorFunc func(ctx context.Context, f Frame) ([]Detection, error)

func (fn DetectorFunc) Detect(ctx context.Context, f Frame) ([]Detection, error) {
	return fn(ctx, f)
}

const confidenceFormat = "%.2f%% confidence (index: %d)"

// FormatLabel builds the overlay text of a detection: the tracking id, then
// each label with its confidence. It returns nil when there is nothing to
// show.
func FormatLabel(d Detection) *string {
	var lines []string
	if d.TrackingID != nil {
		lines = append(lines, fmt.Sprintf("Tracking ID: %d", *d.TrackingID))
	}
	for _, l := range d.Labels {
		lines = append(lines, l.Text, fmt.Sprintf(confidenceFormat, l.Confidence*100, l.Index))
	}
	if len(lines) == 0 && d.Box.Label != nil && *d.Box.Label != "" {
		lines = append(lines, *d.Box.Label)
	}
	if len(lines) == 0 {
		return nil
	}
	s := strings.Join(lines, "\n")
	return &s
}
