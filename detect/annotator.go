package detect

import (
	"fmt"

	"github.com/odmlbook/inkvision/overlay"
)

// Annotator turns detections of a frame into overlay commands for a view of
// a fixed size.
type Annotator struct {
	renderer   *overlay.Renderer
	viewWidth  float64
	viewHeight float64
	fit        bool
}

// NewAnnotator creates an annotator for a viewWidth×viewHeight preview.
// The preview fills the view unless fit is set.
func NewAnnotator(r *overlay.Renderer, viewWidth, viewHeight float64, fit bool) *Annotator {
	return &Annotator{renderer: r, viewWidth: viewWidth, viewHeight: viewHeight, fit: fit}
}

// Commands normalizes the detection boxes against the frame size, maps them
// onto the view and renders them with their labels.
func (a *Annotator) Commands(f Frame, dets []Detection) ([]overlay.Command, error) {
	sw, sh := f.SourceSize()
	aspect := overlay.AspectFill
	if a.fit {
		aspect = overlay.AspectFit
	}
	t, err := aspect(sw, sh, a.viewWidth, a.viewHeight, f.Mirrored)
	if err != nil {
		return nil, fmt.Errorf("frame %vx%v on view %vx%v: %w", sw, sh, a.viewWidth, a.viewHeight, err)
	}

	boxes := make([]overlay.DisplayBox, 0, len(dets))
	labels := make([]*string, 0, len(dets))
	for _, d := range dets {
		box := d.Box
		if d.TrackingID != nil {
			box.ID = d.TrackingID
		}
		n, err := overlay.Normalize(box, sw, sh)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, overlay.ToDisplaySpace(n, t))
		labels = append(labels, FormatLabel(d))
	}
	return a.renderer.Render(boxes, labels), nil
}

// Clear returns the commands that remove every box.
func (a *Annotator) Clear() []overlay.Command {
	return a.renderer.Clear()
}
