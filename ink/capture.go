package ink

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/odmlbook/inkvision/log"
)

// DefaultTolerance is the minimal pointer movement, in surface pixels,
// before a sample is recorded.
const DefaultTolerance float32 = 8

// ErrInvalidState is returned when the stroke lifecycle is violated: a
// Begin while a stroke is active, or Extend/End with a handle whose stroke
// already ended.
var ErrInvalidState = errors.New("invalid stroke state")

// Redrawer is notified whenever the capture changes what should be shown.
type Redrawer interface {
	Redraw()
}

// RedrawFunc adapts a plain function to a Redrawer.
type RedrawFunc func()

func (f RedrawFunc) Redraw() { f() }

// Handle identifies the stroke started by Begin.
type Handle struct {
	seq uint64
}

// Option configures a Capture.
type Option func(*Capture)

// WithTolerance sets the minimal movement for a sample to be recorded.
func WithTolerance(t float32) Option {
	return func(c *Capture) {
		if t >= 0 {
			c.tolerance = t
		}
	}
}

// WithRedrawer sets the redraw notification target.
func WithRedrawer(r Redrawer) Option {
	return func(c *Capture) {
		c.redrawer = r
	}
}

type activeStroke struct {
	handle Handle
	id     uuid.UUID
	points []Point
	path   Path
}

func (a *activeStroke) last() Point {
	return a.points[len(a.points)-1]
}

// Capture turns pointer samples into strokes. It is meant to be driven from
// a single input goroutine and is not safe for concurrent use.
type Capture struct {
	tolerance float32
	redrawer  Redrawer

	ink    Ink
	paths  []Path
	active *activeStroke
	seq    uint64
}

// NewCapture creates an empty capture session.
func NewCapture(opts ...Option) *Capture {
	c := &Capture{
		tolerance: DefaultTolerance,
		ink:       Ink{ID: uuid.New()},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tolerance returns the configured minimal movement.
func (c *Capture) Tolerance() float32 {
	return c.tolerance
}

// Active reports whether a stroke is in progress.
func (c *Capture) Active() bool {
	return c.active != nil
}

// Begin starts a new stroke at p.
func (c *Capture) Begin(p Point) (Handle, error) {
	if c.active != nil {
		return Handle{}, ErrInvalidState
	}
	c.seq++
	c.active = &activeStroke{
		handle: Handle{seq: c.seq},
		id:     uuid.New(),
		points: []Point{p},
		path:   Path{Start: p.Vec()},
	}
	c.redraw()
	return c.active.handle, nil
}

// Extend records p when it moved at least the tolerance away from the last
// recorded point and returns the new smoothed segment. Samples closer than
// that are dropped and ok is false.
func (c *Capture) Extend(h Handle, p Point) (seg Segment, ok bool, err error) {
	a, err := c.lookup(h)
	if err != nil {
		return Segment{}, false, err
	}
	prev := a.last()
	if distance(prev, p) < c.tolerance {
		return Segment{}, false, nil
	}
	p = clampTime(prev, p)
	seg = smooth(prev, p)
	a.points = append(a.points, p)
	a.path.Segments = append(a.path.Segments, seg)
	c.redraw()
	return seg, true, nil
}

// End records p without any tolerance check, seals the stroke and appends it
// to the ink. When p lands exactly on the last recorded move it takes that
// point's place instead of duplicating it; the first point is never replaced.
func (c *Capture) End(h Handle, p Point) (Stroke, error) {
	a, err := c.lookup(h)
	if err != nil {
		return Stroke{}, err
	}
	prev := a.last()
	p = clampTime(prev, p)
	if n := len(a.points); n > 1 && prev.X == p.X && prev.Y == p.Y {
		a.points[n-1] = p
	} else {
		a.points = append(a.points, p)
	}

	s := Stroke{ID: a.id, Points: a.points}
	c.ink.Strokes = append(c.ink.Strokes, s)
	c.paths = append(c.paths, SmoothStroke(s))
	c.active = nil
	log.Trace.Printf("stroke %s sealed with %d points", s.ID, len(s.Points))
	c.redraw()
	return s.clone(), nil
}

// Ink returns a copy of the sealed strokes.
func (c *Capture) Ink() Ink {
	return c.ink.clone()
}

// Path returns the smoothed path of the stroke in progress.
func (c *Capture) Path() (Path, bool) {
	if c.active == nil {
		return Path{}, false
	}
	return c.active.path.clone(), true
}

// Paths returns the smoothed paths of every sealed stroke.
func (c *Capture) Paths() []Path {
	out := make([]Path, len(c.paths))
	for i, p := range c.paths {
		out[i] = p.clone()
	}
	return out
}

// Clear drops all strokes, the stroke in progress and every derived path.
// Handles issued before Clear are no longer valid.
func (c *Capture) Clear() {
	c.ink = Ink{ID: uuid.New()}
	c.paths = nil
	c.active = nil
	c.redraw()
}

// Load replaces the session content with in, e.g. after reading it from
// disk. Any stroke in progress is dropped.
func (c *Capture) Load(in Ink) {
	c.ink = in.clone()
	if c.ink.ID == uuid.Nil {
		c.ink.ID = uuid.New()
	}
	c.paths = make([]Path, len(c.ink.Strokes))
	for i, s := range c.ink.Strokes {
		c.paths[i] = SmoothStroke(s)
	}
	c.active = nil
	c.redraw()
}

func (c *Capture) lookup(h Handle) (*activeStroke, error) {
	if c.active == nil || c.active.handle != h {
		return nil, ErrInvalidState
	}
	return c.active, nil
}

func (c *Capture) redraw() {
	if c.redrawer != nil {
		c.redrawer.Redraw()
	}
}

// clampTime keeps timestamps non decreasing within a stroke.
func clampTime(prev, p Point) Point {
	if p.T < prev.T {
		p.T = prev.T
	}
	return p
}

// Now is the timestamp to use for samples without one.
func Now() int64 {
	return time.Now().UnixMilli()
}
