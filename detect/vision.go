package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
)

// Mode selects the Cloud Vision feature a Vision detector runs.
type Mode string

const (
	ModeFaces   Mode = "faces"
	ModeObjects Mode = "objects"
	ModeLabels  Mode = "labels"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFaces, ModeObjects, ModeLabels:
		return m, nil
	}
	return "", fmt.Errorf("unknown detection mode %q", s)
}

type VisionConfig struct {
	CredentialsFile string
	Endpoint        string
	Mode            Mode
	MaxResults      int
	// MaxDimension bounds the uploaded image size; larger frames are
	// downscaled first.
	MaxDimension uint
	// ClientOptions are appended to the options derived from the fields
	// above.
	ClientOptions []option.ClientOption
}

// Vision is a Detector backed by the Google Cloud Vision API.
type Vision struct {
	client     *vision.ImageAnnotatorClient
	mode       Mode
	maxResults int
	maxDim     uint
}

func NewVision(ctx context.Context, cfg VisionConfig) (*Vision, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, cfg.ClientOptions...)

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "can't create vision client")
	}

	v := &Vision{
		client:     client,
		mode:       cfg.Mode,
		maxResults: cfg.MaxResults,
		maxDim:     cfg.MaxDimension,
	}
	if v.mode == "" {
		v.mode = ModeObjects
	}
	if v.maxResults <= 0 {
		v.maxResults = 10
	}
	return v, nil
}

func (v *Vision) Close() error {
	return v.client.Close()
}

// Detect uploads the frame upright and converts the annotations to
// detections in upright frame pixels.
func (v *Vision) Detect(ctx context.Context, f Frame) ([]Detection, error) {
	upright := f.Upright()
	img, scale := Downscale(upright, v.maxDim)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "can't encode frame")
	}
	log.Trace.Printf("vision %s: uploading %d bytes (scale %.2f)", v.mode, buf.Len(), scale)

	feature, err := v.feature()
	if err != nil {
		return nil, err
	}
	resp, err := v.annotate(ctx, &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: buf.Bytes()},
		Features: []*visionpb.Feature{feature},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s detection failed", v.mode)
	}

	b := upright.Bounds()
	switch v.mode {
	case ModeFaces:
		return facesToDetections(resp.GetFaceAnnotations(), scale), nil
	case ModeObjects:
		return objectsToDetections(resp.GetLocalizedObjectAnnotations(), float64(b.Dx()), float64(b.Dy())), nil
	default:
		return labelsToDetections(resp.GetLabelAnnotations(), b), nil
	}
}

func (v *Vision) feature() (*visionpb.Feature, error) {
	switch v.mode {
	case ModeFaces:
		return &visionpb.Feature{Type: visionpb.Feature_FACE_DETECTION, MaxResults: int32(v.maxResults)}, nil
	case ModeObjects:
		return &visionpb.Feature{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: int32(v.maxResults)}, nil
	case ModeLabels:
		return &visionpb.Feature{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(v.maxResults)}, nil
	}
	return nil, fmt.Errorf("unknown detection mode %q", v.mode)
}

// annotate sends a single image request and returns its response, turning
// a per image error into a Go error.
func (v *Vision) annotate(ctx context.Context, req *visionpb.AnnotateImageRequest) (*visionpb.AnnotateImageResponse, error) {
	res, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, err
	}
	if len(res.GetResponses()) == 0 {
		return nil, errors.New("empty annotate response")
	}
	resp := res.GetResponses()[0]
	if e := resp.GetError(); e != nil {
		return nil, status.ErrorProto(e)
	}
	return resp, nil
}

func facesToDetections(faces []*visionpb.FaceAnnotation, scale float64) []Detection {
	out := make([]Detection, 0, len(faces))
	for _, fa := range faces {
		vs := fa.GetBoundingPoly().GetVertices()
		if len(vs) == 0 {
			continue
		}
		box := polyBox(len(vs), func(k int) (float64, float64) {
			return float64(vs[k].GetX()) * scale, float64(vs[k].GetY()) * scale
		})
		score := fa.GetDetectionConfidence()
		out = append(out, Detection{
			Box:    box,
			Score:  &score,
			Labels: []Label{{Text: "Face", Confidence: score}},
		})
	}
	return out
}

func objectsToDetections(objs []*visionpb.LocalizedObjectAnnotation, w, h float64) []Detection {
	out := make([]Detection, 0, len(objs))
	for i, o := range objs {
		vs := o.GetBoundingPoly().GetNormalizedVertices()
		if len(vs) == 0 {
			continue
		}
		box := polyBox(len(vs), func(k int) (float64, float64) {
			return float64(vs[k].GetX()) * w, float64(vs[k].GetY()) * h
		})
		name := o.GetName()
		box.Label = &name
		score := o.GetScore()
		out = append(out, Detection{
			Box:    box,
			Score:  &score,
			Labels: []Label{{Text: name, Confidence: score, Index: i}},
		})
	}
	return out
}

// labelsToDetections returns a single whole frame detection carrying every
// image label, or nothing when there is no label.
func labelsToDetections(ents []*visionpb.EntityAnnotation, b image.Rectangle) []Detection {
	if len(ents) == 0 {
		return nil
	}
	d := Detection{Box: overlay.BoundingBox{Right: float64(b.Dx()), Bottom: float64(b.Dy())}}
	for i, e := range ents {
		d.Labels = append(d.Labels, Label{Text: e.GetDescription(), Confidence: e.GetScore(), Index: i})
	}
	return []Detection{d}
}

// polyBox is the axis aligned box around n vertices. Vision omits zero
// coordinates so missing values read as 0.
func polyBox(n int, at func(i int) (float64, float64)) overlay.BoundingBox {
	box := overlay.BoundingBox{Left: math.Inf(1), Top: math.Inf(1), Right: math.Inf(-1), Bottom: math.Inf(-1)}
	for i := 0; i < n; i++ {
		x, y := at(i)
		box.Left = math.Min(box.Left, x)
		box.Top = math.Min(box.Top, y)
		box.Right = math.Max(box.Right, x)
		box.Bottom = math.Max(box.Bottom, y)
	}
	return box
}
