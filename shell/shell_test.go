package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odmlbook/inkvision/archive"
	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/detect"
	"github.com/odmlbook/inkvision/encoding/rm"
	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/overlay"
	"github.com/odmlbook/inkvision/session"
)

func testCtx(t *testing.T) *ShellCtxt {
	t.Helper()
	cfg := config.Default()
	cfg.Overlay.ViewWidth, cfg.Overlay.ViewHeight = 200, 100
	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewShellCtxt(cfg, store)
}

func draw(t *testing.T, ctx *ShellCtxt) {
	t.Helper()
	h, err := ctx.capture.Begin(ink.Point{X: 10, Y: 10, T: 1})
	require.NoError(t, err)
	_, ok, err := ctx.capture.Extend(h, ink.Point{X: 60, Y: 40, T: 2})
	require.NoError(t, err)
	require.True(t, ok)
	_, err = ctx.capture.End(h, ink.Point{X: 120, Y: 50, T: 3})
	require.NoError(t, err)
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint([]string{"1.5", "2", "42"})
	require.NoError(t, err)
	assert.Equal(t, ink.Point{X: 1.5, Y: 2, T: 42}, p)

	p, err = parsePoint([]string{"3", "4"})
	require.NoError(t, err)
	assert.NotZero(t, p.T)

	_, err = parsePoint([]string{"3"})
	assert.Error(t, err)
	_, err = parsePoint([]string{"a", "4"})
	assert.Error(t, err)
}

func TestRedrawMirrorsCapture(t *testing.T) {
	ctx := testCtx(t)
	assert.Nil(t, ctx.recognizer)

	draw(t, ctx)
	assert.Equal(t, 3, ctx.redraws)
	cmds := ctx.screen.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, overlay.KindStrokePath, cmds[0].Kind)
	assert.Equal(t, "[1]>", ctx.prompt())

	ctx.capture.Clear()
	assert.False(t, ctx.screen.HasContent())
}

func TestRecognizerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Hwr.ApplicationKey, cfg.Hwr.HmacKey = "app", "hmac"
	ctx := NewShellCtxt(cfg, nil)
	require.NotNil(t, ctx.recognizer)

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx = NewShellCtxt(cfg, store)
	assert.IsType(t, &session.CachedRecognizer{}, ctx.recognizer)
}

func TestVisionConfig(t *testing.T) {
	cfg := config.Default().Vision
	vc, err := VisionConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, detect.ModeObjects, vc.Mode)

	cfg.Mode = "cars"
	_, err = VisionConfig(cfg)
	assert.Error(t, err)
}

func TestLoadInk(t *testing.T) {
	dir := t.TempDir()
	ctx := testCtx(t)
	draw(t, ctx)
	in := ctx.capture.Ink()

	data, err := rm.FromInk(in, rmLineWidth).MarshalBinary()
	require.NoError(t, err)
	rmFile := filepath.Join(dir, "page.rm")
	require.NoError(t, os.WriteFile(rmFile, data, 0644))

	got, err := LoadInk(rmFile)
	require.NoError(t, err)
	require.Len(t, got.Strokes, 1)
	assert.Equal(t, len(in.Strokes[0].Points), len(got.Strokes[0].Points))

	z := archive.NewZip()
	z.Ink = in
	zipFile := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipFile)
	require.NoError(t, err)
	require.NoError(t, z.Write(f))
	require.NoError(t, f.Close())

	got, err = LoadInk(zipFile)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = LoadInk(filepath.Join(dir, "missing.rm"))
	assert.Error(t, err)
}

func TestRenderOutputs(t *testing.T) {
	ctx := testCtx(t)
	draw(t, ctx)
	id := int64(13)
	ctx.lastOverlay = ctx.renderer.Render([]overlay.DisplayBox{{Left: 150, Top: 10, Right: 190, Bottom: 90, ID: &id}}, nil)

	r, err := ctx.rasterize()
	require.NoError(t, err)
	assert.Equal(t, 200, r.Image().Bounds().Dx())
	// the detection box is drawn on top of the ink, not instead of it
	assert.Equal(t, uint8(0), r.Image().RGBAAt(35, 25).G)
	px := r.Image().RGBAAt(150, 50)
	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(0), px.G)

	s, err := ctx.inkPdf()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pages())
}

func TestWithoutClear(t *testing.T) {
	cmds := overlay.NewRenderer().Render([]overlay.DisplayBox{{Right: 1, Bottom: 1}}, nil)
	out := withoutClear(cmds)
	require.Len(t, out, 1)
	assert.Equal(t, overlay.KindStrokeRect, out[0].Kind)
}

func TestInkToJSON(t *testing.T) {
	ctx := testCtx(t)
	draw(t, ctx)
	j := InkToJSON(ctx.capture.Ink())
	assert.Equal(t, 3, j.Points)
	require.Len(t, j.Strokes, 1)
	assert.Equal(t, int64(1), j.Strokes[0].Start)
	assert.Equal(t, int64(3), j.Strokes[0].End)
}

type strokeRecognizer struct {
	calls int32
	fail  bool
}

func (r *strokeRecognizer) Recognize(_ context.Context, in ink.Ink) (hwr.Result, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.fail {
		return hwr.Result{}, errors.New("quota")
	}
	return hwr.Result{Candidates: []string{fmt.Sprintf("%d points", len(in.Strokes[0].Points))}}, nil
}

func TestRecognizeStrokes(t *testing.T) {
	ctx := testCtx(t)
	draw(t, ctx)
	h, err := ctx.capture.Begin(ink.Point{X: 5, Y: 5, T: 10})
	require.NoError(t, err)
	_, err = ctx.capture.End(h, ink.Point{X: 50, Y: 5, T: 11})
	require.NoError(t, err)

	r := &strokeRecognizer{}
	lines, err := recognizeStrokes(context.Background(), r, ctx.capture.Ink(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"3 points", "2 points"}, lines)
	assert.Equal(t, int32(2), r.calls)

	_, err = recognizeStrokes(context.Background(), &strokeRecognizer{fail: true}, ctx.capture.Ink(), 2)
	assert.ErrorContains(t, err, "stroke 1: quota")
}
