package shell

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/ink"
)

// parsePoint reads "x y [t]". Without t the current time is used.
func parsePoint(args []string) (ink.Point, error) {
	if len(args) < 2 {
		return ink.Point{}, errors.New("missing coordinates, usage: <x> <y> [t]")
	}
	x, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return ink.Point{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return ink.Point{}, fmt.Errorf("bad y: %w", err)
	}
	p := ink.Point{X: float32(x), Y: float32(y), T: ink.Now()}
	if len(args) > 2 {
		if p.T, err = strconv.ParseInt(args[2], 10, 64); err != nil {
			return ink.Point{}, fmt.Errorf("bad timestamp: %w", err)
		}
	}
	return p, nil
}

func downCmd(ctx *ShellCtxt, shell *ishell.Shell) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "down",
		Help: "pointer down, starts a stroke, usage: down <x> <y> [t]",
		Func: func(c *ishell.Context) {
			p, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			h, err := ctx.capture.Begin(p)
			if err != nil {
				c.Err(errors.New("a stroke is already in progress"))
				return
			}
			ctx.handle = h
			shell.SetPrompt(ctx.prompt())
		},
	}
}

func moveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "move",
		Help: "pointer move, usage: move <x> <y> [t]",
		Func: func(c *ishell.Context) {
			p, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			seg, ok, err := ctx.capture.Extend(ctx.handle, p)
			if err != nil {
				c.Err(errors.New("no stroke in progress"))
				return
			}
			if !ok {
				c.Printf("ignored, closer than %.1f to the last point\n", ctx.capture.Tolerance())
				return
			}
			c.Printf("quad (%.1f,%.1f) -> (%.1f,%.1f)\n", seg.Control.X, seg.Control.Y, seg.End.X, seg.End.Y)
		},
	}
}

func upCmd(ctx *ShellCtxt, shell *ishell.Shell) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "up",
		Help: "pointer up, ends the stroke, usage: up <x> <y> [t]",
		Func: func(c *ishell.Context) {
			p, err := parsePoint(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s, err := ctx.capture.End(ctx.handle, p)
			if err != nil {
				c.Err(errors.New("no stroke in progress"))
				return
			}
			c.Printf("stroke %s: %d points\n", s.ID, len(s.Points))
			shell.SetPrompt(ctx.prompt())
		},
	}
}

func clearCmd(ctx *ShellCtxt, shell *ishell.Shell) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "discard all strokes",
		Func: func(c *ishell.Context) {
			ctx.capture.Clear()
			ctx.lastRecognition = nil
			shell.SetPrompt(ctx.prompt())
			c.Println("OK")
		},
	}
}

func inkCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "ink",
		Help: "show the strokes of the session",
		Func: func(c *ishell.Context) {
			in := ctx.capture.Ink()
			if ctx.JSONOutput {
				if err := displayJSON(c, in); err != nil {
					c.Err(err)
				}
				return
			}
			displayInk(c, in)
		},
	}
}
