package shell

import (
	"errors"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/overlay"
	"github.com/odmlbook/inkvision/surface"
)

func pdfCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "pdf",
		Help:      "render the strokes to PDF, usage: pdf <file.pdf>",
		Completer: createFsEntryCompleter(".pdf"),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			s, err := ctx.inkPdf()
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.WriteToFile(c.Args[0]); err != nil {
				c.Err(fmt.Errorf("Failed to write %s: %s", c.Args[0], err.Error()))
				return
			}
			c.Println("OK")
		},
	}
}

// rasterize draws the strokes, then the last detection overlay, on a white
// view sized image.
func (ctx *ShellCtxt) rasterize() (*surface.Raster, error) {
	r, err := surface.NewRaster(int(ctx.Cfg.Overlay.ViewWidth), int(ctx.Cfg.Overlay.ViewHeight), overlay.White)
	if err != nil {
		return nil, err
	}
	if err := r.Apply(ctx.screen.Commands()); err != nil {
		return nil, err
	}
	if err := r.Apply(withoutClear(ctx.lastOverlay)); err != nil {
		return nil, err
	}
	return r, nil
}

func withoutClear(cmds []overlay.Command) []overlay.Command {
	out := make([]overlay.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Kind != overlay.KindClear {
			out = append(out, c)
		}
	}
	return out
}

func pngCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "png",
		Help:      "render the strokes and the last detections to PNG, usage: png <file.png>",
		Completer: createFsEntryCompleter(".png"),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			r, err := ctx.rasterize()
			if err != nil {
				c.Err(err)
				return
			}
			if err := r.SavePNG(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
}
