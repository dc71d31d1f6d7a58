package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odmlbook/inkvision/annotations"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/overlay"
	"github.com/odmlbook/inkvision/shell"
	"github.com/odmlbook/inkvision/surface"
)

func main() {
	inputName := flag.String("i", "", "file to convert (.rm or .zip bundle)")
	outputName := flag.String("o", "", "output file (.pdf or .png)")
	extract := flag.String("e", "", "extract, t - recognition text of a bundle")
	flag.Parse()
	var err error

	switch *extract {
	case "t":
		err = txtrecognition(*inputName, *outputName)
	case "":
		err = convert(*inputName, *outputName)
	default:
		err = fmt.Errorf("unknown extract mode %q", *extract)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func txtrecognition(inputName, outputName string) error {
	if outputName == "" {
		nameOnly := strings.TrimSuffix(inputName, filepath.Ext(inputName))
		outputName = nameOnly + ".txt"
	}
	zip, err := shell.LoadArchive(inputName)
	if err != nil {
		return err
	}
	if len(zip.Recognition) == 0 {
		return errors.New("bundle has no recognition result")
	}
	return os.WriteFile(outputName, []byte(strings.Join(zip.Recognition, "\n")+"\n"), 0644)
}

// pageCommands renders the strokes and, for bundles, the stored overlay.
func pageCommands(inputName string) ([]overlay.Command, error) {
	var extra []overlay.Command
	var in ink.Ink
	if strings.EqualFold(filepath.Ext(inputName), ".zip") {
		zip, err := shell.LoadArchive(inputName)
		if err != nil {
			return nil, err
		}
		in = zip.Ink
		for _, c := range zip.Overlay {
			if c.Kind != overlay.KindStrokePath && c.Kind != overlay.KindClear {
				extra = append(extra, c)
			}
		}
	} else {
		var err error
		if in, err = shell.LoadInk(inputName); err != nil {
			return nil, err
		}
	}

	paths := make([]ink.Path, len(in.Strokes))
	for i, s := range in.Strokes {
		paths[i] = ink.SmoothStroke(s)
	}
	st := overlay.DefaultStyle()
	st.Color = overlay.Black
	st.StrokeWidth = 3
	cmds := overlay.NewRenderer(overlay.WithInkStyle(st)).RenderInk(paths)
	return append(cmds, extra...), nil
}

func convert(inputName, outputName string) error {
	if inputName == "" {
		return errors.New("missing input file")
	}
	if outputName == "" {
		nameOnly := strings.TrimSuffix(inputName, filepath.Ext(inputName))
		outputName = nameOnly + ".pdf"
	}

	cmds, err := pageCommands(inputName)
	if err != nil {
		return fmt.Errorf("can't read %s: %w", inputName, err)
	}

	switch strings.ToLower(filepath.Ext(outputName)) {
	case ".png":
		r, err := surface.NewRaster(annotations.DeviceWidth, annotations.DeviceHeight, overlay.White)
		if err != nil {
			return err
		}
		if err := r.Apply(cmds); err != nil {
			return err
		}
		return r.SavePNG(outputName)
	case ".pdf":
		s, err := annotations.NewPdfSurface(annotations.DeviceWidth, annotations.DeviceHeight, annotations.RmPageSize[0])
		if err != nil {
			return err
		}
		if err := s.Apply(cmds); err != nil {
			return err
		}
		return s.WriteToFile(outputName)
	}
	return fmt.Errorf("unsupported output %s, use .pdf or .png", outputName)
}
