package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	flag "github.com/ogier/pflag"

	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
)

const recognizeTimeout = time.Minute

func recognizeCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "recognize",
		Help: "send the strokes to handwriting recognition",
		LongHelp: `Usage: recognize [options]

Options:
  --type=<Text|Math|Diagram>  Content type (default from config)
  --lang=<lang>               Language code (default from config)
  --strokes                   Recognize every stroke on its own`,
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("recognize", flag.ContinueOnError)
			inputType := flagSet.String("type", "", "content type")
			lang := flagSet.String("lang", "", "language")
			perStroke := flagSet.Bool("strokes", false, "recognize strokes separately")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			recognizer := ctx.recognizer
			if *inputType != "" || *lang != "" {
				cfg := ctx.Cfg.Hwr
				if *inputType != "" {
					cfg.ContentType = *inputType
				}
				if *lang != "" {
					cfg.Lang = *lang
				}
				client, err := hwr.NewClient(HwrConfig(cfg))
				if err != nil {
					c.Err(err)
					return
				}
				recognizer = client
			}
			if recognizer == nil {
				c.Err(fmt.Errorf("recognition needs %s and %s", config.EnvHwrKey, config.EnvHwrHmac))
				return
			}

			in := ctx.capture.Ink()
			if in.IsEmpty() {
				c.Err(errors.New("nothing to recognize"))
				return
			}

			c.Println(fmt.Sprintf("performing handwriting recognition: [%d strokes]...", len(in.Strokes)))
			rctx, cancel := context.WithTimeout(context.Background(), recognizeTimeout)
			defer cancel()

			if *perStroke {
				lines, err := recognizeStrokes(rctx, recognizer, in, ctx.Cfg.Hwr.BatchSize)
				if err != nil {
					c.Err(fmt.Errorf("HWR failed: %s", err.Error()))
					return
				}
				ctx.lastRecognition = lines
				if ctx.JSONOutput {
					if err := displayJSON(c, lines); err != nil {
						c.Err(err)
					}
					return
				}
				for i, l := range lines {
					c.Printf("stroke %d: %s\n", i+1, l)
				}
				return
			}

			res, err := recognizer.Recognize(rctx, in)
			if err != nil {
				c.Err(fmt.Errorf("HWR failed: %s", err.Error()))
				return
			}
			ctx.lastRecognition = res.Candidates

			if ctx.JSONOutput {
				if err := displayJSON(c, res); err != nil {
					c.Err(err)
				}
				return
			}
			if len(res.Candidates) == 0 {
				c.Println("no candidates")
				return
			}
			for i, cand := range res.Candidates {
				c.Printf("%d: %s\n", i+1, cand)
			}
		},
	}
}

// recognizeStrokes recognizes every stroke of in as its own ink, at most
// limit requests at a time, and returns the best candidate per stroke. The
// first failure is returned once all requests are done.
func recognizeStrokes(ctx context.Context, r hwr.Recognizer, in ink.Ink, limit int64) ([]string, error) {
	inks := make([]ink.Ink, len(in.Strokes))
	for i, s := range in.Strokes {
		inks[i] = ink.Ink{ID: s.ID, Strokes: []ink.Stroke{s}}
	}
	results, errs := hwr.RecognizeAll(ctx, r, inks, limit)

	lines := make([]string, len(results))
	for i, res := range results {
		if errs[i] != nil {
			return nil, fmt.Errorf("stroke %d: %w", i+1, errs[i])
		}
		if len(res.Candidates) > 0 {
			lines[i] = res.Candidates[0]
		}
	}
	return lines, nil
}
