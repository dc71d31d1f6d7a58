// Package shell is the interactive drawing session: pointer events are typed
// as commands, the ink can be recognized, saved and rendered, and images can
// be annotated with detections.
package shell

import (
	"context"
	"fmt"
	"io"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/detect"
	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
	"github.com/odmlbook/inkvision/session"
)

type ShellCtxt struct {
	Cfg        config.Config
	JSONOutput bool

	capture  *ink.Capture
	handle   ink.Handle
	renderer *overlay.Renderer
	// screen mirrors what a display of the session would show
	screen  overlay.Recorder
	redraws int

	store      *session.Store
	recognizer hwr.Recognizer
	detector   detect.Detector

	lastRecognition []string
	lastOverlay     []overlay.Command
}

// NewShellCtxt sets up a session from the config. Recognition and the
// session cache are optional: they are left out when unavailable.
func NewShellCtxt(cfg config.Config, store *session.Store) *ShellCtxt {
	ctx := &ShellCtxt{
		Cfg:      cfg,
		store:    store,
		renderer: overlay.NewRenderer(overlay.WithStyle(OverlayStyle(cfg.Overlay)), overlay.WithPalette(overlay.DefaultPalette)),
	}
	ctx.capture = ink.NewCapture(
		ink.WithTolerance(cfg.Capture.TouchTolerance),
		ink.WithRedrawer(ink.RedrawFunc(ctx.redraw)),
	)

	if cfg.Hwr.ApplicationKey != "" && cfg.Hwr.HmacKey != "" {
		client, err := hwr.NewClient(HwrConfig(cfg.Hwr))
		if err != nil {
			log.Warning.Printf("recognition disabled: %v", err)
		} else if store != nil {
			ctx.recognizer = session.NewCachedRecognizer(client, store)
		} else {
			ctx.recognizer = client
		}
	}
	return ctx
}

// OverlayStyle is the box style configured in cfg.
func OverlayStyle(cfg config.Overlay) overlay.Style {
	st := overlay.DefaultStyle()
	st.StrokeWidth = cfg.StrokeWidth
	st.TextSize = cfg.TextSize
	st.Font = cfg.Font
	return st
}

// HwrConfig maps the config section onto the client config.
func HwrConfig(cfg config.Hwr) hwr.Config {
	return hwr.Config{
		ApplicationKey: cfg.ApplicationKey,
		HmacKey:        cfg.HmacKey,
		Endpoint:       cfg.Endpoint,
		Lang:           cfg.Lang,
		InputType:      cfg.ContentType,
		BatchSize:      cfg.BatchSize,
	}
}

// VisionConfig maps the config section onto the detector config.
func VisionConfig(cfg config.Vision) (detect.VisionConfig, error) {
	mode, err := detect.ParseMode(cfg.Mode)
	if err != nil {
		return detect.VisionConfig{}, err
	}
	return detect.VisionConfig{
		CredentialsFile: cfg.CredentialsFile,
		Endpoint:        cfg.Endpoint,
		Mode:            mode,
		MaxResults:      cfg.MaxResults,
		MaxDimension:    cfg.MaxDimension,
	}, nil
}

// redraw renders the sealed strokes and the stroke in progress.
func (ctx *ShellCtxt) redraw() {
	ctx.redraws++
	paths := ctx.capture.Paths()
	if p, ok := ctx.capture.Path(); ok {
		paths = append(paths, p)
	}
	if err := ctx.screen.Apply(ctx.renderer.RenderInk(paths)); err != nil {
		log.Error.Printf("redraw failed: %v", err)
	}
}

func (ctx *ShellCtxt) prompt() string {
	in := ctx.capture.Ink()
	state := ""
	if ctx.capture.Active() {
		state = "*"
	}
	return fmt.Sprintf("[%d%s]>", len(in.Strokes), state)
}

func (ctx *ShellCtxt) visionDetector(c context.Context) (detect.Detector, error) {
	if ctx.detector != nil {
		return ctx.detector, nil
	}
	cfg, err := VisionConfig(ctx.Cfg.Vision)
	if err != nil {
		return nil, err
	}
	v, err := detect.NewVision(c, cfg)
	if err != nil {
		return nil, err
	}
	ctx.detector = v
	return v, nil
}

// RunShell starts the interactive shell, or runs args as a single command.
func RunShell(ctx *ShellCtxt, args []string) error {
	shell := ishell.New()

	shell.SetPrompt(ctx.prompt())

	shell.AddCmd(downCmd(ctx, shell))
	shell.AddCmd(moveCmd(ctx))
	shell.AddCmd(upCmd(ctx, shell))
	shell.AddCmd(clearCmd(ctx, shell))
	shell.AddCmd(inkCmd(ctx))
	shell.AddCmd(diffCmd(ctx))
	shell.AddCmd(recognizeCmd(ctx))
	shell.AddCmd(saveCmd(ctx))
	shell.AddCmd(loadCmd(ctx, shell))
	shell.AddCmd(exportCmd(ctx))
	shell.AddCmd(pdfCmd(ctx))
	shell.AddCmd(pngCmd(ctx))
	shell.AddCmd(detectCmd(ctx))
	shell.AddCmd(setCmd(ctx))

	if len(args) > 0 {
		return shell.Process(args...)
	}

	if ctx.store != nil {
		if in, ok, err := ctx.store.LoadSession(); err != nil {
			log.Warning.Printf("can't restore session: %v", err)
		} else if ok {
			ctx.capture.Load(in)
			shell.SetPrompt(ctx.prompt())
			shell.Printf("restored session %s with %d strokes\n", in.ID, len(in.Strokes))
		}
	}

	shell.Println("inkvision shell, type help for the commands")
	shell.Run()

	if ctx.store != nil {
		if err := ctx.store.SaveSession(ctx.capture.Ink()); err != nil {
			log.Error.Printf("can't save session: %v", err)
		}
	}
	return nil
}

func (ctx *ShellCtxt) closeDetector() {
	if c, ok := ctx.detector.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warning.Printf("closing detector: %v", err)
		}
	}
	ctx.detector = nil
}

// Close releases the detector connection.
func (ctx *ShellCtxt) Close() {
	ctx.closeDetector()
}
