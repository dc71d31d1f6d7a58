// Package surface draws overlay commands into images.
package surface

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
)

// quadSteps is the number of line pieces a quadratic segment is flattened to.
const quadSteps = 8

// MaxSide bounds each raster dimension.
const MaxSide = 8192

// Raster is an overlay.Surface backed by an RGBA image. It is not safe for
// concurrent use.
type Raster struct {
	img   *image.RGBA
	bg    color.Color
	font  *opentype.Font
	faces map[float64]font.Face
}

// NewRaster creates a width×height surface cleared to bg.
func NewRaster(width, height int, bg overlay.Color) (*Raster, error) {
	if width <= 0 || height <= 0 || width > MaxSide || height > MaxSide {
		return nil, errors.Wrapf(overlay.ErrInvalidInput, "raster %dx%d (max side %d)", width, height, MaxSide)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse label font")
	}
	r := &Raster{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		bg:    toColor(bg),
		font:  f,
		faces: map[float64]font.Face{},
	}
	r.clear()
	return r, nil
}

func toColor(c overlay.Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

func (r *Raster) Apply(cmds []overlay.Command) error {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case overlay.KindClear:
			r.clear()
		case overlay.KindStrokeRect:
			r.strokeRect(cmd)
		case overlay.KindText:
			if err := r.text(cmd); err != nil {
				return err
			}
		case overlay.KindStrokePath:
			r.strokePath(cmd)
		default:
			log.Warning.Printf("raster: skipping command %s", cmd.Kind)
		}
	}
	return nil
}

func (r *Raster) clear() {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
}

func (r *Raster) rasterizer() *vector.Rasterizer {
	b := r.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

func (r *Raster) fill(z *vector.Rasterizer, c overlay.Color) {
	z.Draw(r.img, r.img.Bounds(), image.NewUniform(toColor(c)), image.Point{})
}

// band adds an axis aligned rectangle, always wound the same way so that
// overlapping pieces do not cancel.
func band(z *vector.Rasterizer, x0, y0, x1, y1 float64) {
	z.MoveTo(float32(x0), float32(y0))
	z.LineTo(float32(x1), float32(y0))
	z.LineTo(float32(x1), float32(y1))
	z.LineTo(float32(x0), float32(y1))
	z.ClosePath()
}

// strokeRect draws the outline centered on the box edges.
func (r *Raster) strokeRect(cmd overlay.Command) {
	b := cmd.Rect
	if b.Empty() {
		return
	}
	h := cmd.Style.StrokeWidth / 2
	if h <= 0 {
		h = 0.5
	}
	z := r.rasterizer()
	band(z, b.Left-h, b.Top-h, b.Right+h, b.Top+h)
	band(z, b.Left-h, b.Bottom-h, b.Right+h, b.Bottom+h)
	band(z, b.Left-h, b.Top+h, b.Left+h, b.Bottom-h)
	band(z, b.Right-h, b.Top+h, b.Right+h, b.Bottom-h)
	r.fill(z, cmd.Style.Color)
}

// flatten turns a smoothed path into a polyline.
func flatten(p ink.Path) []ink.Vec {
	pts := []ink.Vec{p.Start}
	cur := p.Start
	for _, s := range p.Segments {
		for i := 1; i <= quadSteps; i++ {
			t := float32(i) / quadSteps
			u := 1 - t
			pts = append(pts, ink.Vec{
				X: u*u*cur.X + 2*u*t*s.Control.X + t*t*s.End.X,
				Y: u*u*cur.Y + 2*u*t*s.Control.Y + t*t*s.End.Y,
			})
		}
		cur = s.End
	}
	return pts
}

// strokePath draws the polyline as one quad per piece plus an octagon at
// every vertex for round joins and caps.
func (r *Raster) strokePath(cmd overlay.Command) {
	if cmd.Path == nil {
		return
	}
	h := cmd.Style.StrokeWidth / 2
	if h <= 0 {
		h = 0.5
	}
	pts := flatten(*cmd.Path)
	z := r.rasterizer()
	for i, p := range pts {
		dot(z, float64(p.X), float64(p.Y), h)
		if i == 0 {
			continue
		}
		q := pts[i-1]
		dx, dy := float64(p.X-q.X), float64(p.Y-q.Y)
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*h, dx/l*h
		// same winding as dot so overlapping coverage adds up
		z.MoveTo(float32(float64(q.X)-nx), float32(float64(q.Y)-ny))
		z.LineTo(float32(float64(p.X)-nx), float32(float64(p.Y)-ny))
		z.LineTo(float32(float64(p.X)+nx), float32(float64(p.Y)+ny))
		z.LineTo(float32(float64(q.X)+nx), float32(float64(q.Y)+ny))
		z.ClosePath()
	}
	r.fill(z, cmd.Style.Color)
}

func dot(z *vector.Rasterizer, x, y, radius float64) {
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		px, py := float32(x+radius*math.Cos(a)), float32(y+radius*math.Sin(a))
		if i == 0 {
			z.MoveTo(px, py)
		} else {
			z.LineTo(px, py)
		}
	}
	z.ClosePath()
}

func (r *Raster) face(size float64) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can't create %vpt face", size)
	}
	r.faces[size] = f
	return f, nil
}

func (r *Raster) text(cmd overlay.Command) error {
	if cmd.Text == "" {
		return nil
	}
	size := cmd.Style.TextSize
	if size <= 0 {
		size = overlay.DefaultStyle().TextSize
	}
	face, err := r.face(size)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(toColor(cmd.Style.TextColor)),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(cmd.X * 64), Y: fixed.Int26_6(cmd.Y * 64)},
	}
	d.DrawString(cmd.Text)
	return nil
}

// WritePNG encodes the current image as PNG.
func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

func (r *Raster) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WritePNG(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "can't encode %s", path)
	}
	return f.Close()
}
