package detect

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Downscale shrinks img so that neither side exceeds maxDim and returns the
// factor to multiply coordinates on the result by to get back to img.
// Images already small enough are returned as is with a factor of 1.
func Downscale(img image.Image, maxDim uint) (image.Image, float64) {
	b := img.Bounds()
	if maxDim == 0 || (uint(b.Dx()) <= maxDim && uint(b.Dy()) <= maxDim) {
		return img, 1
	}
	small := resize.Thumbnail(maxDim, maxDim, img, resize.Bilinear)
	sb := small.Bounds()
	if sb.Dx() == 0 {
		return img, 1
	}
	return small, float64(b.Dx()) / float64(sb.Dx())
}

// Upright returns the frame image rotated clockwise by f.Rotation so that
// its pixels line up with SourceSize. Frames without rotation are returned
// as is.
func (f Frame) Upright() image.Image {
	b := f.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	mx, my := float64(b.Min.X), float64(b.Min.Y)

	var m f64.Aff3
	switch ((f.Rotation % 360) + 360) % 360 {
	case 90:
		m = f64.Aff3{0, -1, h + my, 1, 0, -mx}
	case 180:
		m = f64.Aff3{-1, 0, w + mx, 0, -1, h + my}
	case 270:
		m = f64.Aff3{0, 1, -my, -1, 0, w + mx}
	default:
		return f.Image
	}

	sw, sh := f.SourceSize()
	dst := image.NewRGBA(image.Rect(0, 0, int(sw), int(sh)))
	draw.NearestNeighbor.Transform(dst, m, f.Image, b, draw.Src, nil)
	return dst
}
