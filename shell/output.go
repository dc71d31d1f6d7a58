package shell

import (
	"encoding/json"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/detect"
	"github.com/odmlbook/inkvision/ink"
)

type StrokeJSON struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
}

type InkJSON struct {
	ID      string       `json:"id"`
	Strokes []StrokeJSON `json:"strokes"`
	Points  int          `json:"points"`
}

func InkToJSON(in ink.Ink) InkJSON {
	out := InkJSON{ID: in.ID.String(), Strokes: make([]StrokeJSON, len(in.Strokes)), Points: in.PointCount()}
	for i, s := range in.Strokes {
		sj := StrokeJSON{ID: s.ID.String(), Points: len(s.Points)}
		if n := len(s.Points); n > 0 {
			sj.Start, sj.End = s.Points[0].T, s.Points[n-1].T
		}
		out.Strokes[i] = sj
	}
	return out
}

func displayJSON(c *ishell.Context, v interface{}) error {
	if in, ok := v.(ink.Ink); ok {
		v = InkToJSON(in)
	}
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	c.Println(string(output))
	return nil
}

func displayInk(c *ishell.Context, in ink.Ink) {
	c.Printf("session %s: %d strokes, %d points\n", in.ID, len(in.Strokes), in.PointCount())
	for i, s := range in.Strokes {
		c.Printf("  [%d]\t%s\t%d points\n", i, s.ID, len(s.Points))
	}
	if lo, hi, ok := in.Bounds(); ok {
		c.Printf("bounds (%.1f,%.1f)-(%.1f,%.1f)\n", lo.X, lo.Y, hi.X, hi.Y)
	}
}

func displayDetections(c *ishell.Context, dets []detect.Detection) {
	for i, d := range dets {
		b := d.Box
		c.Printf("[%d]\t(%.0f,%.0f)-(%.0f,%.0f)", i, b.Left, b.Top, b.Right, b.Bottom)
		for _, l := range d.Labels {
			c.Printf("\t%s %.2f", l.Text, l.Confidence)
		}
		c.Println()
	}
}
