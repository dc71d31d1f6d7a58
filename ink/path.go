package ink

// Segment is a quadratic Bezier piece of a smoothed path. The start of the
// curve is the end of the previous segment (or the path start).
type Segment struct {
	Control Vec `json:"control"`
	End     Vec `json:"end"`
}

// Path is the smoothed rendering of a stroke. It is display state only and
// is never sent to a recognizer.
type Path struct {
	Start    Vec       `json:"start"`
	Segments []Segment `json:"segments"`
}

func (p Path) clone() Path {
	segs := make([]Segment, len(p.Segments))
	copy(segs, p.Segments)
	return Path{Start: p.Start, Segments: segs}
}

// smooth returns the segment between two consecutive recorded points:
// the previous point is the control point and the curve ends halfway to
// the current one.
func smooth(prev, cur Point) Segment {
	return Segment{
		Control: prev.Vec(),
		End: Vec{
			X: (prev.X + cur.X) / 2,
			Y: (prev.Y + cur.Y) / 2,
		},
	}
}

// SmoothStroke rebuilds the path of an already recorded stroke, e.g. one
// loaded from disk.
func SmoothStroke(s Stroke) Path {
	if len(s.Points) == 0 {
		return Path{}
	}
	path := Path{Start: s.Points[0].Vec()}
	last := len(s.Points) - 1
	for i := 1; i < last; i++ {
		path.Segments = append(path.Segments, smooth(s.Points[i-1], s.Points[i]))
	}
	if last > 0 {
		path.Segments = append(path.Segments, Segment{
			Control: s.Points[last-1].Vec(),
			End:     s.Points[last].Vec(),
		})
	}
	return path
}
