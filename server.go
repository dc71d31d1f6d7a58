package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/detect"
	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
	"github.com/odmlbook/inkvision/session"
	"github.com/odmlbook/inkvision/shell"
	"github.com/odmlbook/inkvision/surface"
	"github.com/odmlbook/inkvision/version"
)

const (
	maxInkBody     = 4 << 20
	maxImageBody   = 20 << 20
	maxFramePixels = 64 << 20
	requestTimeout = time.Minute
)

type ApiServer struct {
	cfg        config.Config
	renderer   *overlay.Renderer
	recognizer hwr.Recognizer
	detector   detect.Detector
	jwtSecret  []byte
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewApiServer wires the collaborators configured in cfg. Recognition and
// detection endpoints answer 503 when their service is not configured.
func NewApiServer(ctx context.Context, cfg config.Config, store *session.Store) (*ApiServer, error) {
	s := &ApiServer{
		cfg:       cfg,
		renderer:  overlay.NewRenderer(overlay.WithStyle(shell.OverlayStyle(cfg.Overlay)), overlay.WithPalette(overlay.DefaultPalette)),
		jwtSecret: []byte(cfg.Server.JWTSecret),
	}

	if cfg.Hwr.ApplicationKey != "" && cfg.Hwr.HmacKey != "" {
		client, err := hwr.NewClient(shell.HwrConfig(cfg.Hwr))
		if err != nil {
			return nil, err
		}
		s.recognizer = client
		if store != nil {
			s.recognizer = session.NewCachedRecognizer(client, store)
		}
	} else {
		log.Info.Println("recognition disabled, no HWR keys configured")
	}

	if cfg.Vision.CredentialsFile != "" || cfg.Vision.Endpoint != "" {
		vc, err := shell.VisionConfig(cfg.Vision)
		if err != nil {
			return nil, err
		}
		v, err := detect.NewVision(ctx, vc)
		if err != nil {
			return nil, err
		}
		s.detector = v
	} else {
		log.Info.Println("detection disabled, no vision credentials configured")
	}
	return s, nil
}

func (s *ApiServer) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func (s *ApiServer) writeSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

// authorize checks the HS256 bearer token when a secret is configured.
func (s *ApiServer) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			log.Trace.Printf("rejected token: %v", err)
			s.writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		next(w, r)
	}
}

type RecognizeResponse struct {
	Candidates []string `json:"candidates"`
	Text       string   `json:"text"`
	MimeType   string   `json:"mime_type,omitempty"`
}

// POST /api/ink/recognize with an ink json body
func (s *ApiServer) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recognizer == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("recognition is not configured"))
		return
	}

	var in ink.Ink
	if err := json.NewDecoder(io.LimitReader(r.Body, maxInkBody)).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid ink: %w", err))
		return
	}
	if err := in.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if in.IsEmpty() {
		s.writeSuccess(w, RecognizeResponse{Candidates: []string{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := s.recognizer.Recognize(ctx, in)
	if err != nil {
		log.Error.Printf("recognition failed: %v", err)
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	if res.Candidates == nil {
		res.Candidates = []string{}
	}
	s.writeSuccess(w, RecognizeResponse{Candidates: res.Candidates, Text: res.Text(), MimeType: res.MimeType})
}

type RenderRequest struct {
	Boxes        []overlay.BoundingBox `json:"boxes"`
	SourceWidth  float64               `json:"source_width"`
	SourceHeight float64               `json:"source_height"`
	Rotation     int                   `json:"rotation"`
	ViewWidth    float64               `json:"view_width"`
	ViewHeight   float64               `json:"view_height"`
	Mirrored     bool                  `json:"mirrored"`
	Fit          bool                  `json:"fit"`
}

// commands maps source boxes onto the view and renders them, box labels
// included.
func (s *ApiServer) commands(req RenderRequest) ([]overlay.Command, error) {
	if req.ViewWidth == 0 && req.ViewHeight == 0 {
		req.ViewWidth, req.ViewHeight = s.cfg.Overlay.ViewWidth, s.cfg.Overlay.ViewHeight
	}
	sw, sh := overlay.SourceSize(req.SourceWidth, req.SourceHeight, req.Rotation)
	aspect := overlay.AspectFill
	if req.Fit {
		aspect = overlay.AspectFit
	}
	t, err := aspect(sw, sh, req.ViewWidth, req.ViewHeight, req.Mirrored)
	if err != nil {
		return nil, err
	}
	boxes := make([]overlay.DisplayBox, 0, len(req.Boxes))
	labels := make([]*string, 0, len(req.Boxes))
	for _, b := range req.Boxes {
		n, err := overlay.Normalize(b, sw, sh)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, overlay.ToDisplaySpace(n, t))
		labels = append(labels, b.Label)
	}
	return s.renderer.Render(boxes, labels), nil
}

// writeCommands answers with the commands, or with a transparent PNG of the
// view when format=png.
func (s *ApiServer) writeCommands(w http.ResponseWriter, r *http.Request, data interface{}, cmds []overlay.Command, vw, vh float64) {
	if r.URL.Query().Get("format") != "png" {
		s.writeSuccess(w, data)
		return
	}
	if vw == 0 && vh == 0 {
		vw, vh = s.cfg.Overlay.ViewWidth, s.cfg.Overlay.ViewHeight
	}
	if !(vw >= 1 && vw <= surface.MaxSide && vh >= 1 && vh <= surface.MaxSide) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("png view %vx%v (max side %d): %w", vw, vh, surface.MaxSide, overlay.ErrInvalidInput))
		return
	}
	raster, err := surface.NewRaster(int(vw), int(vh), overlay.Color{})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := raster.Apply(cmds); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := raster.WritePNG(w); err != nil {
		log.Error.Printf("writing png: %v", err)
	}
}

// POST /api/overlay/render
func (s *ApiServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RenderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxInkBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	cmds, err := s.commands(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeCommands(w, r, map[string]interface{}{"commands": cmds}, cmds, req.ViewWidth, req.ViewHeight)
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

// POST /api/overlay/detect?rotation=<deg>&mirrored=<bool>&fit=<bool>&view_width=<w>&view_height=<h>
// with a png or jpeg body
func (s *ApiServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.detector == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("detection is not configured"))
		return
	}

	query := r.URL.Query()
	vw, err := queryFloat(r, "view_width", s.cfg.Overlay.ViewWidth)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	vh, err := queryFloat(r, "view_height", s.cfg.Overlay.ViewHeight)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rotation, err := queryFloat(r, "rotation", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImageBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	imgCfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid image: %w", err))
		return
	}
	if int64(imgCfg.Width)*int64(imgCfg.Height) > maxFramePixels {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("image %dx%d is too large: %w", imgCfg.Width, imgCfg.Height, overlay.ErrInvalidInput))
		return
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid image: %w", err))
		return
	}
	frame := detect.Frame{
		Image:    img,
		Rotation: int(rotation),
		Mirrored: query.Get("mirrored") == "true" || (query.Get("mirrored") == "" && s.cfg.Overlay.Mirrored),
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	a := detect.NewAnnotator(s.renderer, vw, vh, query.Get("fit") == "true")
	res := detect.Run(ctx, s.detector, a, frame)
	if res.Err != nil {
		log.Error.Printf("detection failed: %v", res.Err)
		s.writeError(w, http.StatusBadGateway, res.Err)
		return
	}
	if res.Detections == nil {
		res.Detections = []detect.Detection{}
	}
	s.writeCommands(w, r, map[string]interface{}{
		"detections": res.Detections,
		"commands":   res.Commands,
	}, res.Commands, vw, vh)
}

// GET /api/version
func (s *ApiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeSuccess(w, map[string]string{"version": version.Version})
}

func (s *ApiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ink/recognize", s.authorize(s.handleRecognize))
	mux.HandleFunc("/api/overlay/render", s.authorize(s.handleRender))
	mux.HandleFunc("/api/overlay/detect", s.authorize(s.handleDetect))
	mux.HandleFunc("/api/version", s.handleVersion)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>inkvision REST API</title>
</head>
<body>
	<h1>inkvision REST API</h1>
	<h2>Endpoints:</h2>
	<ul>
		<li>POST /api/ink/recognize - Recognize handwriting</li>
		<li>POST /api/overlay/render - Map boxes onto a view</li>
		<li>POST /api/overlay/detect - Detect objects in an image</li>
		<li>GET /api/version - Get version</li>
	</ul>
</body>
</html>
		`)
	})
	return mux
}

func runServerMode(cfg config.Config, store *session.Store, port string) {
	server, err := NewApiServer(context.Background(), cfg, store)
	if err != nil {
		log.Error.Fatalf("Failed to initialize API server: %v", err)
	}

	log.Info.Printf("Starting HTTP server on port %s", port)
	if err := http.ListenAndServe(":"+port, server.routes()); err != nil {
		log.Error.Fatalf("Server failed: %v", err)
	}
}
