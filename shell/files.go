package shell

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/annotations"
	"github.com/odmlbook/inkvision/archive"
	"github.com/odmlbook/inkvision/encoding/rm"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/version"
)

const rmLineWidth = 2

func saveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "save",
		Help:      "write the strokes as a tablet page, usage: save <file.rm>",
		Completer: createFsEntryCompleter(".rm"),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			in := ctx.capture.Ink()
			data, err := rm.FromInk(in, rmLineWidth).MarshalBinary()
			if err != nil {
				c.Err(err)
				return
			}
			if err := os.WriteFile(c.Args[0], data, 0644); err != nil {
				c.Err(err)
				return
			}
			if err := snapshot(ctx, in); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
}

// LoadInk reads a tablet page (.rm) or a bundle (.zip).
func LoadInk(name string) (ink.Ink, error) {
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		z, err := LoadArchive(name)
		if err != nil {
			return ink.Ink{}, err
		}
		return z.Ink, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return ink.Ink{}, err
	}
	page := &rm.Rm{}
	if err := page.UnmarshalBinary(data); err != nil {
		return ink.Ink{}, fmt.Errorf("can't decode %s: %w", name, err)
	}
	return page.ToInk(), nil
}

// LoadArchive reads a bundle file.
func LoadArchive(name string) (*archive.Zip, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		return nil, err
	}
	z := archive.NewZip()
	if err := z.Read(file, fi.Size()); err != nil {
		return nil, err
	}
	return z, nil
}

func loadCmd(ctx *ShellCtxt, shell *ishell.Shell) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "load",
		Help:      "replace the strokes with a file, usage: load <file.rm|bundle.zip>",
		Completer: createFsEntryCompleter(".rm", ".zip"),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing source file"))
				return
			}
			in, err := LoadInk(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			ctx.capture.Load(in)
			ctx.lastRecognition = nil
			shell.SetPrompt(ctx.prompt())
			c.Printf("loaded %d strokes\n", len(in.Strokes))
		},
	}
}

func exportCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "export",
		Help:      "write the session with its overlay and recognition, usage: export <bundle.zip>",
		Completer: createFsEntryCompleter(".zip"),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			z := archive.NewZip()
			z.Content.Version = version.Version
			z.Ink = ctx.capture.Ink()
			z.Overlay = ctx.screen.Commands()
			z.Recognition = ctx.lastRecognition

			pdf, err := ctx.inkPdf()
			if err != nil {
				c.Err(err)
				return
			}
			var buf bytes.Buffer
			if _, err := pdf.WriteTo(&buf); err != nil {
				c.Err(err)
				return
			}
			z.Payload = buf.Bytes()

			file, err := os.Create(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer file.Close()
			if err := z.Write(file); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
}

// inkPdf renders the session onto a tablet sized page.
func (ctx *ShellCtxt) inkPdf() (*annotations.PdfSurface, error) {
	s, err := annotations.NewPdfSurface(ctx.Cfg.Overlay.ViewWidth, ctx.Cfg.Overlay.ViewHeight, annotations.RmPageSize[0])
	if err != nil {
		return nil, err
	}
	if err := s.Apply(ctx.screen.Commands()); err != nil {
		return nil, err
	}
	return s, nil
}
