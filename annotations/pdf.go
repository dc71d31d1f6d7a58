// Package annotations renders overlay commands into PDF documents.
package annotations

import (
	"io"

	"github.com/pkg/errors"
	"github.com/unidoc/unipdf/v3/contentstream"
	"github.com/unidoc/unipdf/v3/creator"
	pdf "github.com/unidoc/unipdf/v3/model"

	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
)

const (
	PPI          = 226
	DeviceHeight = 1872
	DeviceWidth  = 1404
)

// RmPageSize is the size in points of a page holding DeviceWidth×DeviceHeight
// tablet coordinates.
var RmPageSize = creator.PageSize{445, 594}

// PdfSurface is an overlay.Surface that draws into a PDF. Each Clear that
// follows drawn content starts a new page, so a sequence of overlay frames
// becomes a sequence of pages.
type PdfSurface struct {
	c      *creator.Creator
	page   *pdf.PdfPage
	ratio  float64
	drawn  bool
	pages  int
	fonts  map[string]*pdf.PdfFont
	height float64
}

// NewPdfSurface creates a surface for a viewWidth×viewHeight overlay. The
// pages are pageWidth points wide, or as wide as the view when pageWidth
// is 0.
func NewPdfSurface(viewWidth, viewHeight, pageWidth float64) (*PdfSurface, error) {
	if viewWidth <= 0 || viewHeight <= 0 {
		return nil, errors.Wrapf(overlay.ErrInvalidInput, "view %vx%v", viewWidth, viewHeight)
	}
	ratio := 1.0
	if pageWidth > 0 {
		ratio = pageWidth / viewWidth
	}
	c := creator.New()
	c.SetPageSize(creator.PageSize{viewWidth * ratio, viewHeight * ratio})
	return &PdfSurface{
		c:      c,
		ratio:  ratio,
		fonts:  map[string]*pdf.PdfFont{},
		height: viewHeight * ratio,
	}, nil
}

// Pages is the number of pages started so far.
func (s *PdfSurface) Pages() int {
	return s.pages
}

func (s *PdfSurface) Apply(cmds []overlay.Command) error {
	for _, cmd := range cmds {
		var err error
		switch cmd.Kind {
		case overlay.KindClear:
			if s.drawn {
				s.page = nil
				s.drawn = false
			}
		case overlay.KindStrokeRect:
			err = s.strokeRect(cmd)
		case overlay.KindText:
			err = s.text(cmd)
		case overlay.KindStrokePath:
			err = s.strokePath(cmd)
		default:
			log.Warning.Printf("pdf: skipping command %s", cmd.Kind)
		}
		if err != nil {
			return errors.Wrapf(err, "can't draw %s", cmd.Kind)
		}
	}
	return nil
}

func (s *PdfSurface) currentPage() *pdf.PdfPage {
	if s.page == nil {
		s.page = s.c.NewPage()
		s.pages++
	}
	s.drawn = true
	return s.page
}

// point converts view coordinates to PDF user space, which grows upwards.
func (s *PdfSurface) point(x, y float64) (float64, float64) {
	return x * s.ratio, s.height - y*s.ratio
}

func strokeStyle(cc *contentstream.ContentCreator, st overlay.Style, ratio float64) {
	cc.Add_w(st.StrokeWidth * ratio)
	cc.Add_RG(float64(st.Color.R)/255, float64(st.Color.G)/255, float64(st.Color.B)/255)
}

func (s *PdfSurface) strokeRect(cmd overlay.Command) error {
	r := cmd.Rect
	if r.Empty() {
		return nil
	}
	page := s.currentPage()
	x, y := s.point(r.Left, r.Bottom)

	cc := contentstream.NewContentCreator()
	cc.Add_q()
	strokeStyle(cc, cmd.Style, s.ratio)
	cc.Add_re(x, y, r.Width()*s.ratio, r.Height()*s.ratio)
	cc.Add_S()
	cc.Add_Q()
	return page.AppendContentStream(string(cc.Operations().Bytes()))
}

func (s *PdfSurface) strokePath(cmd overlay.Command) error {
	if cmd.Path == nil || len(cmd.Path.Segments) == 0 {
		return nil
	}
	page := s.currentPage()
	p := cmd.Path

	cc := contentstream.NewContentCreator()
	cc.Add_q()
	strokeStyle(cc, cmd.Style, s.ratio)
	cx, cy := s.point(float64(p.Start.X), float64(p.Start.Y))
	cc.Add_m(cx, cy)
	for _, seg := range p.Segments {
		c1x, c1y, c2x, c2y, ex, ey := s.cubic(cx, cy, seg)
		cc.Add_c(c1x, c1y, c2x, c2y, ex, ey)
		cx, cy = ex, ey
	}
	cc.Add_S()
	cc.Add_Q()
	return page.AppendContentStream(string(cc.Operations().Bytes()))
}

// cubic elevates a quadratic segment starting at (x0, y0) to the cubic PDF
// content streams can express.
func (s *PdfSurface) cubic(x0, y0 float64, seg ink.Segment) (float64, float64, float64, float64, float64, float64) {
	qx, qy := s.point(float64(seg.Control.X), float64(seg.Control.Y))
	ex, ey := s.point(float64(seg.End.X), float64(seg.End.Y))
	return x0 + 2.0/3.0*(qx-x0), y0 + 2.0/3.0*(qy-y0),
		ex + 2.0/3.0*(qx-ex), ey + 2.0/3.0*(qy-ey),
		ex, ey
}

var standardFonts = map[string]pdf.StdFontName{
	"":          pdf.HelveticaName,
	"Helvetica": pdf.HelveticaName,
	"Courier":   pdf.CourierName,
	"Times":     pdf.TimesRomanName,
}

func (s *PdfSurface) font(name string) (*pdf.PdfFont, error) {
	if f, ok := s.fonts[name]; ok {
		return f, nil
	}
	std, ok := standardFonts[name]
	if !ok {
		log.Trace.Printf("pdf: no font %q, using Helvetica", name)
		std = pdf.HelveticaName
	}
	f, err := pdf.NewStandard14Font(std)
	if err != nil {
		return nil, err
	}
	s.fonts[name] = f
	return f, nil
}

func (s *PdfSurface) text(cmd overlay.Command) error {
	if cmd.Text == "" {
		return nil
	}
	s.currentPage()
	f, err := s.font(cmd.Style.Font)
	if err != nil {
		return err
	}
	size := cmd.Style.TextSize * s.ratio
	tc := cmd.Style.TextColor

	p := s.c.NewParagraph(cmd.Text)
	p.SetFont(f)
	p.SetFontSize(size)
	p.SetEnableWrap(false)
	p.SetColor(creator.ColorRGBFrom8bit(tc.R, tc.G, tc.B))
	// paragraphs are placed by their top left corner, the anchor is the
	// baseline of the first line
	p.SetPos(cmd.X*s.ratio, cmd.Y*s.ratio-size)
	return s.c.Draw(p)
}

var _ io.WriterTo = (*PdfSurface)(nil)

// WriteTo writes the PDF and returns the number of bytes written. A
// document without any drawing gets one blank page.
func (s *PdfSurface) WriteTo(w io.Writer) (int64, error) {
	s.ensurePage()
	cw := &countingWriter{w: w}
	err := s.c.Write(cw)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (s *PdfSurface) WriteToFile(path string) error {
	s.ensurePage()
	return s.c.WriteToFile(path)
}

func (s *PdfSurface) ensurePage() {
	if s.pages == 0 {
		s.c.NewPage()
		s.pages++
	}
}
