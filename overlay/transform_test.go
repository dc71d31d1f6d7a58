package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplaySpaceNilTransform(t *testing.T) {
	b := NormalizedBox{Left: 0.1, Top: 0.2, Right: 0.3, Bottom: 0.4}
	assert.Equal(t, DisplayBox{Left: 0.1, Top: 0.2, Right: 0.3, Bottom: 0.4}, ToDisplaySpace(b, nil))
}

func TestIdentity(t *testing.T) {
	b := NormalizedBox{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}
	got := ToDisplaySpace(b, Identity(400, 200))
	assert.Equal(t, DisplayBox{Left: 100, Top: 50, Right: 300, Bottom: 150}, got)
}

func TestAspectFillCropsWidth(t *testing.T) {
	// 4:3 landscape source on a square view: height fits, width overflows
	tr, err := AspectFill(400, 300, 300, 300, false)
	require.NoError(t, err)

	got := tr(NormalizedBox{Left: 0, Top: 0, Right: 1, Bottom: 1})
	assert.InDelta(t, -50, got.Left, 1e-9)
	assert.InDelta(t, 350, got.Right, 1e-9)
	assert.InDelta(t, 0, got.Top, 1e-9)
	assert.InDelta(t, 300, got.Bottom, 1e-9)
}

func TestAspectFillCropsHeight(t *testing.T) {
	tr, err := AspectFill(300, 400, 300, 300, false)
	require.NoError(t, err)

	got := tr(NormalizedBox{Left: 0.5, Top: 0.5, Right: 0.5, Bottom: 0.5})
	assert.InDelta(t, 150, got.Left, 1e-9)
	assert.InDelta(t, 150, got.Top, 1e-9)

	full := tr(NormalizedBox{Right: 1, Bottom: 1})
	assert.InDelta(t, -50, full.Top, 1e-9)
	assert.InDelta(t, 350, full.Bottom, 1e-9)
}

func TestAspectFit(t *testing.T) {
	tr, err := AspectFit(400, 300, 300, 300, false)
	require.NoError(t, err)

	got := tr(NormalizedBox{Right: 1, Bottom: 1})
	assert.InDelta(t, 0, got.Left, 1e-9)
	assert.InDelta(t, 300, got.Right, 1e-9)
	assert.InDelta(t, 37.5, got.Top, 1e-9)
	assert.InDelta(t, 262.5, got.Bottom, 1e-9)
}

func TestAspectMirrored(t *testing.T) {
	tr, err := AspectFill(100, 100, 100, 100, true)
	require.NoError(t, err)

	got := tr(NormalizedBox{Left: 0.1, Top: 0.2, Right: 0.3, Bottom: 0.4})
	assert.InDelta(t, 70, got.Left, 1e-9)
	assert.InDelta(t, 90, got.Right, 1e-9)
	assert.InDelta(t, 20, got.Top, 1e-9)
	assert.InDelta(t, 40, got.Bottom, 1e-9)
}

func TestAspectInvalid(t *testing.T) {
	_, err := AspectFill(0, 100, 100, 100, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = AspectFit(100, 100, 100, -1, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
