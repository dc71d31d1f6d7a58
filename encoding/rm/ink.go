package rm

import (
	"math"

	"github.com/google/uuid"

	"github.com/odmlbook/inkvision/ink"
)

const (
	// DefaultPressure is used for samples coming from a touch screen.
	DefaultPressure = 0.5
	// sampleInterval is the assumed time between two samples when a point
	// carries no speed.
	sampleInterval = 16
	// maxSampleGap bounds the time rebuilt between two samples.
	maxSampleGap = 60 * 1000
)

// FromInk stores every stroke as a fineliner line of a single layer. Speed
// and direction are derived from the point timestamps.
func FromInk(in ink.Ink, width float32) *Rm {
	layer := Layer{Lines: make([]Line, 0, len(in.Strokes))}
	for _, s := range in.Strokes {
		line := Line{
			BrushType:  FinelinerV5,
			BrushColor: Black,
			BrushSize:  Medium,
			Points:     make([]Point, len(s.Points)),
		}
		for i, p := range s.Points {
			pt := Point{X: p.X, Y: p.Y, Width: width, Pressure: DefaultPressure}
			if i > 0 {
				prev := s.Points[i-1]
				dx, dy := float64(p.X-prev.X), float64(p.Y-prev.Y)
				if dt := p.T - prev.T; dt > 0 {
					pt.Speed = float32(math.Hypot(dx, dy) / float64(dt))
				}
				pt.Direction = float32(math.Atan2(dy, dx))
			}
			line.Points[i] = pt
		}
		layer.Lines = append(layer.Lines, line)
	}
	return &Rm{Version: V5, Layers: []Layer{layer}}
}

// ToInk converts the drawing lines of every layer into strokes, skipping
// erasers. Timestamps start at 0 for each stroke and are rebuilt from the
// point speed, or spaced by a fixed sample interval when there is none.
func (rm *Rm) ToInk() ink.Ink {
	out := ink.Ink{ID: uuid.New()}
	for _, layer := range rm.Layers {
		for _, line := range layer.Lines {
			if line.BrushType == Eraser || line.BrushType == EraseArea {
				continue
			}
			if len(line.Points) == 0 {
				continue
			}
			s := ink.Stroke{ID: uuid.New(), Points: make([]ink.Point, len(line.Points))}
			var t int64
			for i, p := range line.Points {
				if i > 0 {
					prev := line.Points[i-1]
					t += elapsed(prev, p)
				}
				s.Points[i] = ink.Point{X: p.X, Y: p.Y, T: t}
			}
			out.Strokes = append(out.Strokes, s)
		}
	}
	return out
}

func elapsed(prev, p Point) int64 {
	if p.Speed <= 0 || math.IsNaN(float64(p.Speed)) || math.IsInf(float64(p.Speed), 0) {
		return sampleInterval
	}
	d := math.Hypot(float64(p.X-prev.X), float64(p.Y-prev.Y))
	dt := math.Round(d / float64(p.Speed))
	switch {
	case math.IsNaN(dt):
		return sampleInterval
	case dt > maxSampleGap:
		return maxSampleGap
	}
	return int64(dt)
}
