package rm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odmlbook/inkvision/ink"
)

func testPage() Rm {
	points := make([]Point, 0)
	for i := 0; i < 200; i++ {
		points = append(points, Point{
			X:         100,
			Y:         float32(i),
			Speed:     2.,
			Direction: 3.,
			Width:     2.0,
			Pressure:  .3,
		})
	}

	return Rm{
		Version: V5,
		Layers: []Layer{
			{
				Lines: []Line{
					{
						BrushSize:  Medium,
						BrushColor: Black,
						BrushType:  FinelinerV5,
						Points:     points,
					},
					{
						BrushSize:  Large,
						BrushColor: Grey,
						BrushType:  Eraser,
						Unknown:    1.5,
						Points: []Point{
							{X: 100, Y: 100, Speed: 2., Direction: 1., Width: 3.0, Pressure: .3},
							{X: 1000, Y: 1000, Speed: 2., Direction: 1., Width: 3.0, Pressure: .3},
						},
					},
				},
			},
		},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	page := testPage()

	data, err := page.MarshalBinary()
	require.NoError(t, err)

	fn := filepath.Join(t.TempDir(), "page.rm")
	require.NoError(t, os.WriteFile(fn, data, 0644))

	raw, err := os.ReadFile(fn)
	require.NoError(t, err)

	var back Rm
	require.NoError(t, back.UnmarshalBinary(raw))
	assert.Equal(t, page, back)
}

func TestUnmarshalErrors(t *testing.T) {
	var r Rm
	assert.Error(t, r.UnmarshalBinary([]byte("short")))
	assert.ErrorIs(t, r.UnmarshalBinary([]byte("reMarkable .lines file, version=9          ")), ErrUnknownHeader)

	page := testPage()
	data, err := page.MarshalBinary()
	require.NoError(t, err)
	assert.Error(t, r.UnmarshalBinary(data[:len(data)-3]))

	// a huge layer count must not allocate
	bogus := append([]byte(HeaderV5), 0xff, 0xff, 0xff, 0x7f)
	assert.Error(t, r.UnmarshalBinary(bogus))
}

func TestInkRoundTrip(t *testing.T) {
	in := ink.Ink{Strokes: []ink.Stroke{
		{Points: []ink.Point{{X: 0, Y: 0, T: 1000}, {X: 30, Y: 40, T: 1010}, {X: 30, Y: 40, T: 1020}, {X: 60, Y: 80, T: 1045}}},
		{Points: []ink.Point{{X: 5, Y: 5, T: 2000}}},
	}}

	page := FromInk(in, 4)
	data, err := page.MarshalBinary()
	require.NoError(t, err)

	var back Rm
	require.NoError(t, back.UnmarshalBinary(data))
	out := back.ToInk()

	require.Len(t, out.Strokes, 2)
	got := out.Strokes[0].Points
	require.Len(t, got, 4)
	assert.Equal(t, int64(0), got[0].T)
	assert.Equal(t, int64(10), got[1].T)
	// no movement means no speed, the fixed interval is used
	assert.Equal(t, int64(26), got[2].T)
	assert.Equal(t, int64(51), got[3].T)
	assert.Equal(t, float32(60), got[3].X)
	assert.NoError(t, out.Validate())
}

func TestToInkSkipsErasers(t *testing.T) {
	page := testPage()
	out := page.ToInk()
	require.Len(t, out.Strokes, 1)
	assert.Len(t, out.Strokes[0].Points, 200)
}

func TestToInkTinySpeed(t *testing.T) {
	page := &Rm{Version: V5, Layers: []Layer{{Lines: []Line{{
		BrushType: FinelinerV5,
		Points: []Point{
			{X: 0, Y: 0},
			{X: 100, Y: 0, Speed: 1e-30},
			{X: 200, Y: 0, Speed: 1e-30},
		},
	}}}}}

	out := page.ToInk()
	require.Len(t, out.Strokes, 1)
	got := out.Strokes[0].Points
	assert.Equal(t, int64(maxSampleGap), got[1].T)
	assert.Equal(t, int64(2*maxSampleGap), got[2].T)
	assert.NoError(t, out.Validate())
}
