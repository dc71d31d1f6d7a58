package hwr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
)

// NoContent is returned for an ink without any stroke.
var NoContent = errors.New("no ink content")

// payloadLimit is the request size the service accepts.
const payloadLimit = 4000000

// Config holds HWR configuration
type Config struct {
	ApplicationKey string
	HmacKey        string
	Endpoint       string
	Lang           string
	InputType      string
	BatchSize      int64
	DPI            float32
	// HTTPClient replaces the default client, mostly for tests.
	HTTPClient *http.Client
}

// Result is the outcome of one recognition. Candidates are ordered from
// best to worst; Raw is the service answer.
type Result struct {
	Candidates []string `json:"candidates"`
	MimeType   string   `json:"mime_type"`
	Raw        []byte   `json:"-"`
}

// Text returns the best candidate.
func (r Result) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}

// Recognizer turns ink into text.
type Recognizer interface {
	Recognize(ctx context.Context, in ink.Ink) (Result, error)
}

// Client is a Recognizer backed by the MyScript iink batch API.
type Client struct {
	applicationKey string
	hmacKey        string
	endpoint       string
	lang           string
	contentType    string
	mimeType       string
	batchSize      int64
	dpi            float32
	http           *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ApplicationKey == "" {
		return nil, fmt.Errorf("HWR application key is required")
	}
	if cfg.HmacKey == "" {
		return nil, fmt.Errorf("HWR hmac key is required")
	}
	c := &Client{
		applicationKey: cfg.ApplicationKey,
		hmacKey:        cfg.HmacKey,
		endpoint:       cfg.Endpoint,
		lang:           cfg.Lang,
		batchSize:      cfg.BatchSize,
		dpi:            cfg.DPI,
		http:           cfg.HTTPClient,
	}
	c.contentType, c.mimeType = setContentType(cfg.InputType)
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.lang == "" {
		c.lang = "en_US"
	}
	if c.batchSize <= 0 {
		c.batchSize = 3
	}
	if c.dpi <= 0 {
		c.dpi = 96
	}
	if c.http == nil {
		c.http = defaultHTTPClient()
	}
	return c, nil
}

// Recognize sends the ink to the service and extracts the candidates.
func (c *Client) Recognize(ctx context.Context, in ink.Ink) (Result, error) {
	if in.IsEmpty() {
		return Result{}, NoContent
	}
	if err := in.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid ink: %w", err)
	}

	js, err := c.buildRequest(in)
	if err != nil {
		return Result{}, err
	}

	body, err := c.sendRequest(ctx, js, c.mimeType)
	if err != nil {
		return Result{}, err
	}
	log.Trace.Printf("ink %s: received response (%d bytes)", in.ID, len(body))

	return Result{
		Candidates: extractCandidates(body),
		MimeType:   c.mimeType,
		Raw:        body,
	}, nil
}

// RecognizeBatch recognizes several inks concurrently, at most BatchSize
// requests in flight. results and errs are parallel to inks.
func (c *Client) RecognizeBatch(ctx context.Context, inks []ink.Ink) (results []Result, errs []error) {
	return RecognizeAll(ctx, c, inks, c.batchSize)
}

// RecognizeAll runs r on every ink with at most limit calls in flight.
// results and errs are parallel to inks.
func RecognizeAll(ctx context.Context, r Recognizer, inks []ink.Ink, limit int64) (results []Result, errs []error) {
	if limit <= 0 {
		limit = 1
	}
	results = make([]Result, len(inks))
	errs = make([]error, len(inks))

	sem := semaphore.NewWeighted(limit)
	for i := range inks {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(inks); j++ {
				errs[j] = err
			}
			break
		}
		go func(i int) {
			defer sem.Release(1)
			results[i], errs[i] = r.Recognize(ctx, inks[i])
			if errs[i] != nil {
				log.Trace.Printf("ink %d: recognition failed: %v", i, errs[i])
			}
		}(i)
	}

	// Wait for all goroutines to finish
	if err := sem.Acquire(context.Background(), limit); err != nil {
		log.Trace.Printf("Failed to acquire semaphore: %v", err)
	}
	return results, errs
}

// buildRequest converts the ink to the iink batch JSON format.
func (c *Client) buildRequest(in ink.Ink) ([]byte, error) {
	contentType := c.contentType
	batch := BatchInput{
		Configuration: &Configuration{Lang: c.lang},
		StrokeGroups:  []*StrokeGroup{{}},
		ContentType:   &contentType,
		XDPI:          c.dpi,
		YDPI:          c.dpi,
	}
	if _, max, ok := in.Bounds(); ok {
		batch.Width = int32(math.Ceil(float64(max.X))) + 1
		batch.Height = int32(math.Ceil(float64(max.Y))) + 1
	}

	sg := batch.StrokeGroups[0]
	totalPoints := 0
	for _, s := range in.Strokes {
		points := downsamplePoints(s.Points)
		stroke := Stroke{
			ID:          s.ID.String(),
			X:           make([]float32, 0, len(points)),
			Y:           make([]float32, 0, len(points)),
			T:           make([]int64, 0, len(points)),
			PointerType: "PEN",
		}
		for _, p := range points {
			// one decimal is plenty and keeps the JSON small
			stroke.X = append(stroke.X, roundFloat32(p.X, 1))
			stroke.Y = append(stroke.Y, roundFloat32(p.Y, 1))
			stroke.T = append(stroke.T, p.T)
		}
		sg.Strokes = append(sg.Strokes, &stroke)
		totalPoints += len(points)
	}
	log.Trace.Printf("ink %s: %d strokes with %d points (after downsampling)", in.ID, len(sg.Strokes), totalPoints)

	jsonData, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	if len(jsonData) > payloadLimit {
		log.Warning.Printf("ink %s: payload of %d bytes exceeds the 4MB limit", in.ID, len(jsonData))
	}
	return jsonData, nil
}

// downsamplePoints reduces the number of points in a stroke to reduce
// payload size. Long strokes keep every Nth point; the first and last
// points are always kept.
func downsamplePoints(points []ink.Point) []ink.Point {
	if len(points) <= 2 {
		return points
	}

	sampleRate := 1
	switch {
	case len(points) > 2000:
		sampleRate = 6
	case len(points) > 1000:
		sampleRate = 4
	case len(points) > 500:
		sampleRate = 3
	case len(points) > 200:
		sampleRate = 2
	}
	if sampleRate == 1 {
		return points
	}

	result := make([]ink.Point, 0, len(points)/sampleRate+2)
	result = append(result, points[0])
	for i := sampleRate; i < len(points)-1; i += sampleRate {
		result = append(result, points[i])
	}
	return append(result, points[len(points)-1])
}

// roundFloat32 rounds a float32 to the specified number of decimal places
func roundFloat32(val float32, decimals int) float32 {
	multiplier := math.Pow(10, float64(decimals))
	return float32(math.Round(float64(val)*multiplier) / multiplier)
}

// setContentType maps input type to the iink content type and the
// requested output MIME type
func setContentType(requested string) (contenttype string, output string) {
	switch strings.ToLower(requested) {
	case "math":
		return "Math", "application/x-latex"
	case "diagram":
		return "Diagram", "image/svg+xml"
	default:
		return "Text", "application/vnd.myscript.jiix"
	}
}

// extractCandidates returns the recognized text, best first, from a Jiix
// document or a plain text answer.
func extractCandidates(data []byte) []string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '{' {
		if c := candidatesFromJiix(data); len(c) > 0 {
			return c
		}
		log.Trace.Printf("extractCandidates: no text in Jiix answer, returning raw data")
	}
	return []string{string(data)}
}

type jiixWord struct {
	Label      string   `json:"label"`
	Candidates []string `json:"candidates"`
}

type jiixDocument struct {
	Label string     `json:"label"`
	Text  string     `json:"text"`
	Words []jiixWord `json:"words"`
	Chars []struct {
		Label string `json:"label"`
	} `json:"chars"`
}

func candidatesFromJiix(data []byte) []string {
	var doc jiixDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Trace.Printf("candidatesFromJiix: failed to unmarshal JSON: %v", err)
		return nil
	}

	best := doc.Label
	if best == "" {
		best = doc.Text
	}
	if best == "" && len(doc.Words) > 0 {
		parts := make([]string, 0, len(doc.Words))
		for _, w := range doc.Words {
			if strings.TrimSpace(w.Label) != "" {
				parts = append(parts, w.Label)
			}
		}
		best = strings.Join(parts, " ")
	}
	if best == "" && len(doc.Chars) > 0 {
		var sb strings.Builder
		for _, c := range doc.Chars {
			sb.WriteString(c.Label)
		}
		best = sb.String()
	}
	if best == "" {
		return nil
	}

	out := []string{best}
	// a single word answer carries its alternatives
	words := nonBlankWords(doc.Words)
	if len(words) == 1 {
		for _, c := range words[0].Candidates {
			if c != best {
				out = append(out, c)
			}
		}
	}
	return out
}

func nonBlankWords(words []jiixWord) []jiixWord {
	var out []jiixWord
	for _, w := range words {
		if strings.TrimSpace(w.Label) != "" {
			out = append(out, w)
		}
	}
	return out
}
