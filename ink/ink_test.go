package ink

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	good := Ink{Strokes: []Stroke{{Points: []Point{{X: 1, T: 1}, {X: 2, T: 1}, {X: 3, T: 5}}}}}
	assert.NoError(t, good.Validate())

	empty := Ink{Strokes: []Stroke{{}}}
	assert.Error(t, empty.Validate())

	backwards := Ink{Strokes: []Stroke{{Points: []Point{{T: 5}, {T: 4}}}}}
	assert.Error(t, backwards.Validate())

	nan := Ink{Strokes: []Stroke{{Points: []Point{{X: float32(math.NaN())}}}}}
	assert.Error(t, nan.Validate())
}

func TestBounds(t *testing.T) {
	_, _, ok := Ink{}.Bounds()
	assert.False(t, ok)

	in := Ink{Strokes: []Stroke{
		{Points: []Point{{X: 3, Y: 4}, {X: -1, Y: 10}}},
		{Points: []Point{{X: 7, Y: 2}}},
	}}
	min, max, ok := in.Bounds()
	assert.True(t, ok)
	assert.Equal(t, Vec{-1, 2}, min)
	assert.Equal(t, Vec{7, 10}, max)
	assert.Equal(t, 3, in.PointCount())
}

func TestSmoothStrokeSinglePoint(t *testing.T) {
	p := SmoothStroke(Stroke{Points: []Point{{X: 2, Y: 3}}})
	assert.Equal(t, Vec{2, 3}, p.Start)
	assert.Empty(t, p.Segments)
}
