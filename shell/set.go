package shell

import (
	"errors"
	"flag"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/detect"
)

func setCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "set",
		Help: "change session settings, usage: set [-json] [-mirrored] [-mode faces|objects|labels] [-view WxH]",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("set", flag.ContinueOnError)
			jsonOut := flagSet.Bool("json", ctx.JSONOutput, "json output")
			mirrored := flagSet.Bool("mirrored", ctx.Cfg.Overlay.Mirrored, "mirror detection boxes")
			mode := flagSet.String("mode", ctx.Cfg.Vision.Mode, "detection mode")
			view := flagSet.String("view", "", "overlay view size")

			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			if _, err := detect.ParseMode(*mode); err != nil {
				c.Err(err)
				return
			}
			if *view != "" {
				var w, h float64
				if _, err := fmt.Sscanf(*view, "%gx%g", &w, &h); err != nil || w <= 0 || h <= 0 {
					c.Err(errors.New("view must look like 1080x1920"))
					return
				}
				ctx.Cfg.Overlay.ViewWidth, ctx.Cfg.Overlay.ViewHeight = w, h
			}
			if *mode != ctx.Cfg.Vision.Mode {
				ctx.Cfg.Vision.Mode = *mode
				// the detector is recreated with the new mode on next use
				ctx.closeDetector()
			}
			ctx.JSONOutput = *jsonOut
			ctx.Cfg.Overlay.Mirrored = *mirrored

			c.Println("OK")
		},
	}
}
