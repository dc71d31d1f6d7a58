package shell

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/abiosoft/ishell"
	flag "github.com/ogier/pflag"

	"github.com/odmlbook/inkvision/detect"
)

const detectTimeout = 30 * time.Second

// LoadFrame decodes a png or jpeg image file.
func LoadFrame(name string, rotation int, mirrored bool) (detect.Frame, error) {
	f, err := os.Open(name)
	if err != nil {
		return detect.Frame{}, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return detect.Frame{}, fmt.Errorf("can't decode %s: %w", name, err)
	}
	return detect.Frame{Image: img, Rotation: rotation, Mirrored: mirrored}, nil
}

func detectCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "detect",
		Help:      "run the detector on an image and keep the overlay, usage: detect [--rotation=N] [--fit] <image>",
		Completer: createFsEntryCompleter(".png", ".jpg", ".jpeg"),
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("detect", flag.ContinueOnError)
			rotation := flagSet.Int("rotation", 0, "clockwise rotation of the image")
			fit := flagSet.Bool("fit", false, "fit the image in the view instead of filling it")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}
			args := flagSet.Args()
			if len(args) == 0 {
				c.Err(errors.New("missing image file"))
				return
			}

			frame, err := LoadFrame(args[0], *rotation, ctx.Cfg.Overlay.Mirrored)
			if err != nil {
				c.Err(err)
				return
			}

			dctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
			defer cancel()
			d, err := ctx.visionDetector(dctx)
			if err != nil {
				c.Err(err)
				return
			}

			a := detect.NewAnnotator(ctx.renderer, ctx.Cfg.Overlay.ViewWidth, ctx.Cfg.Overlay.ViewHeight, *fit)
			res := detect.Run(dctx, d, a, frame)
			ctx.lastOverlay = res.Commands
			if res.Err != nil {
				c.Err(fmt.Errorf("detection failed: %s", res.Err.Error()))
				return
			}

			if ctx.JSONOutput {
				if err := displayJSON(c, res.Detections); err != nil {
					c.Err(err)
				}
				return
			}
			c.Printf("%d detections\n", len(res.Detections))
			displayDetections(c, res.Detections)
		},
	}
}
