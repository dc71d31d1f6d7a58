// Package ink holds the stroke and ink data model used as handwriting
// recognition input, and the Capture session that builds it from raw
// pointer samples.
package ink

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Point is one sampled pointer position. T is a unix timestamp in
// milliseconds.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	T int64   `json:"t"`
}

// Vec is a position on the drawing surface without timing information.
type Vec struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (p Point) Vec() Vec {
	return Vec{X: p.X, Y: p.Y}
}

func distance(a, b Point) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Hypot(dx, dy))
}

// Stroke is one pointer-down to pointer-up gesture. Points are in temporal
// order.
type Stroke struct {
	ID     uuid.UUID `json:"id"`
	Points []Point   `json:"points"`
}

func (s Stroke) clone() Stroke {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return Stroke{ID: s.ID, Points: pts}
}

// Ink is one drawing session: the strokes in the order they were drawn.
type Ink struct {
	ID      uuid.UUID `json:"id"`
	Strokes []Stroke  `json:"strokes"`
}

func (i Ink) clone() Ink {
	strokes := make([]Stroke, len(i.Strokes))
	for n, s := range i.Strokes {
		strokes[n] = s.clone()
	}
	return Ink{ID: i.ID, Strokes: strokes}
}

// PointCount is the number of points over all strokes.
func (i Ink) PointCount() int {
	n := 0
	for _, s := range i.Strokes {
		n += len(s.Points)
	}
	return n
}

// IsEmpty reports whether the ink has no strokes.
func (i Ink) IsEmpty() bool {
	return len(i.Strokes) == 0
}

// Bounds returns the smallest rectangle containing every point. ok is false
// for an empty ink.
func (i Ink) Bounds() (min, max Vec, ok bool) {
	first := true
	for _, s := range i.Strokes {
		for _, p := range s.Points {
			if first {
				min, max = p.Vec(), p.Vec()
				first = false
				continue
			}
			min.X = float32(math.Min(float64(min.X), float64(p.X)))
			min.Y = float32(math.Min(float64(min.Y), float64(p.Y)))
			max.X = float32(math.Max(float64(max.X), float64(p.X)))
			max.Y = float32(math.Max(float64(max.Y), float64(p.Y)))
		}
	}
	return min, max, !first
}

// Validate checks the contract a recognizer relies on: every stroke has at
// least one finite point and timestamps never decrease within a stroke.
func (i Ink) Validate() error {
	for n, s := range i.Strokes {
		if len(s.Points) == 0 {
			return fmt.Errorf("stroke %d: no points", n)
		}
		for k, p := range s.Points {
			if !finite(p.X) || !finite(p.Y) {
				return fmt.Errorf("stroke %d point %d: non finite coordinate", n, k)
			}
			if k > 0 && p.T < s.Points[k-1].T {
				return fmt.Errorf("stroke %d point %d: timestamp goes backwards", n, k)
			}
		}
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
