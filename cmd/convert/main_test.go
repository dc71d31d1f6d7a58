package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odmlbook/inkvision/archive"
	"github.com/odmlbook/inkvision/encoding/rm"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/overlay"
)

func testInk() ink.Ink {
	return ink.Ink{ID: uuid.New(), Strokes: []ink.Stroke{
		{ID: uuid.New(), Points: []ink.Point{{X: 100, Y: 100}, {X: 300, Y: 200, T: 16}, {X: 500, Y: 250, T: 32}}},
	}}
}

func writeBundle(t *testing.T, dir string) string {
	z := archive.NewZip()
	z.Ink = testInk()
	z.Recognition = []string{"hello"}
	z.Overlay = overlay.NewRenderer().Render([]overlay.DisplayBox{{Left: 10, Top: 10, Right: 90, Bottom: 90}}, nil)
	name := filepath.Join(dir, "b.zip")
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, z.Write(f))
	require.NoError(t, f.Close())
	return name
}

func TestConvertRm(t *testing.T) {
	dir := t.TempDir()
	data, err := rm.FromInk(testInk(), 2).MarshalBinary()
	require.NoError(t, err)
	in := filepath.Join(dir, "page.rm")
	require.NoError(t, os.WriteFile(in, data, 0644))

	require.NoError(t, convert(in, ""))
	assert.FileExists(t, filepath.Join(dir, "page.pdf"))

	out := filepath.Join(dir, "page.png")
	require.NoError(t, convert(in, out))
	assert.FileExists(t, out)

	assert.Error(t, convert(in, filepath.Join(dir, "page.svg")))
	assert.Error(t, convert("", ""))
}

func TestConvertBundle(t *testing.T) {
	dir := t.TempDir()
	in := writeBundle(t, dir)

	cmds, err := pageCommands(in)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, overlay.KindStrokePath, cmds[1].Kind)
	assert.Equal(t, overlay.KindStrokeRect, cmds[2].Kind)

	require.NoError(t, convert(in, filepath.Join(dir, "b.pdf")))
	require.NoError(t, txtrecognition(in, ""))
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}
