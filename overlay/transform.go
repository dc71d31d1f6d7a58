package overlay

import "math"

// Transform maps a normalized box onto a surface. It accounts for preview
// scaling, cropping and mirroring and must be a pure function.
type Transform func(NormalizedBox) DisplayBox

// ToDisplaySpace applies t to box. A nil transform keeps unit square
// coordinates.
func ToDisplaySpace(box NormalizedBox, t Transform) DisplayBox {
	if t == nil {
		return DisplayBox{Left: box.Left, Top: box.Top, Right: box.Right, Bottom: box.Bottom, ID: box.ID}
	}
	return t(box)
}

// Identity stretches the unit square over a width×height surface.
func Identity(width, height float64) Transform {
	return func(b NormalizedBox) DisplayBox {
		return DisplayBox{
			Left:   b.Left * width,
			Top:    b.Top * height,
			Right:  b.Right * width,
			Bottom: b.Bottom * height,
			ID:     b.ID,
		}
	}
}

// AspectFill scales a source image so that it covers the whole view, the
// overflow being cropped evenly on both sides. mirrored flips the result
// horizontally, as needed for front camera previews.
func AspectFill(sourceWidth, sourceHeight, viewWidth, viewHeight float64, mirrored bool) (Transform, error) {
	return aspect(sourceWidth, sourceHeight, viewWidth, viewHeight, mirrored, math.Max)
}

// AspectFit scales a source image so that it fits inside the view, leaving
// even bands on the sides that do not match.
func AspectFit(sourceWidth, sourceHeight, viewWidth, viewHeight float64, mirrored bool) (Transform, error) {
	return aspect(sourceWidth, sourceHeight, viewWidth, viewHeight, mirrored, math.Min)
}

func aspect(sw, sh, vw, vh float64, mirrored bool, pick func(a, b float64) float64) (Transform, error) {
	if !validSize(sw, sh) || !validSize(vw, vh) {
		return nil, ErrInvalidInput
	}
	scale := pick(vw/sw, vh/sh)
	offsetX := (sw*scale - vw) / 2
	offsetY := (sh*scale - vh) / 2

	x := func(n float64) float64 {
		v := n*sw*scale - offsetX
		if mirrored {
			v = vw - v
		}
		return v
	}
	y := func(n float64) float64 {
		return n*sh*scale - offsetY
	}

	return func(b NormalizedBox) DisplayBox {
		x0, x1 := x(b.Left), x(b.Right)
		if mirrored {
			x0, x1 = x1, x0
		}
		return DisplayBox{
			Left:   x0,
			Top:    y(b.Top),
			Right:  x1,
			Bottom: y(b.Bottom),
			ID:     b.ID,
		}
	}, nil
}
