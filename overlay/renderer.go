package overlay

import (
	"strings"

	"github.com/odmlbook/inkvision/ink"
)

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithStyle sets the box and label style.
func WithStyle(s Style) RendererOption {
	return func(r *Renderer) { r.style = s }
}

// WithPalette colors each box after its tracking id.
func WithPalette(p Palette) RendererOption {
	return func(r *Renderer) { r.palette = p }
}

// WithInkStyle sets the style of rendered ink paths.
func WithInkStyle(s Style) RendererOption {
	return func(r *Renderer) { r.inkStyle = s }
}

// Renderer builds command lists. It keeps no state between calls and can be
// used from any goroutine, e.g. a detection worker.
type Renderer struct {
	style    Style
	inkStyle Style
	palette  Palette
}

func NewRenderer(opts ...RendererOption) *Renderer {
	ins := DefaultStyle()
	ins.Color = Black
	r := &Renderer{style: DefaultStyle(), inkStyle: ins}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Style returns the box style.
func (r *Renderer) Style() Style {
	return r.style
}

func (r *Renderer) boxStyle(id *int64) Style {
	s := r.style
	if r.palette != nil {
		pair := r.palette.For(id)
		s.Color = pair.Box
		s.TextColor = pair.Text
	}
	return s
}

// Render replaces the overlay with one outlined rectangle per box, then the
// labels. labels is parallel to boxes; a nil or missing entry means no label.
// Multi line labels are stacked downwards from the box origin.
func (r *Renderer) Render(boxes []DisplayBox, labels []*string) []Command {
	cmds := make([]Command, 0, 1+2*len(boxes))
	cmds = append(cmds, ClearCommand())

	for _, b := range boxes {
		cmds = append(cmds, Command{
			Kind:  KindStrokeRect,
			Rect:  b.sanitize(),
			Style: r.boxStyle(b.ID),
		})
	}

	for i, b := range boxes {
		if i >= len(labels) || labels[i] == nil || *labels[i] == "" {
			continue
		}
		st := r.boxStyle(b.ID)
		origin := b.sanitize()
		for n, line := range strings.Split(*labels[i], "\n") {
			cmds = append(cmds, Command{
				Kind:  KindText,
				Text:  line,
				X:     origin.Left,
				Y:     origin.Top + float64(n)*st.LineHeight(),
				Style: st,
			})
		}
	}
	return cmds
}

// Clear returns the command list that empties the overlay.
func (r *Renderer) Clear() []Command {
	return []Command{ClearCommand()}
}

// RenderInk replaces the overlay with the given smoothed ink paths.
func (r *Renderer) RenderInk(paths []ink.Path) []Command {
	cmds := make([]Command, 0, 1+len(paths))
	cmds = append(cmds, ClearCommand())
	for i := range paths {
		p := paths[i]
		cmds = append(cmds, Command{
			Kind:  KindStrokePath,
			Path:  &p,
			Style: r.inkStyle,
		})
	}
	return cmds
}
