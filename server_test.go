package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/detect"
	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/overlay"
)

type fakeRecognizer struct {
	err error
}

func (f fakeRecognizer) Recognize(_ context.Context, in ink.Ink) (hwr.Result, error) {
	if f.err != nil {
		return hwr.Result{}, f.err
	}
	return hwr.Result{Candidates: []string{"hello", "hallo"}, MimeType: "text/plain"}, nil
}

func newTestServer(t *testing.T) *ApiServer {
	t.Helper()
	cfg := config.Default()
	cfg.Overlay.ViewWidth, cfg.Overlay.ViewHeight = 100, 100
	s, err := NewApiServer(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, s.recognizer)
	assert.Nil(t, s.detector)
	return s
}

type envelope struct {
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func do(t *testing.T, s *ApiServer, method, target string, body []byte, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func inkBody(t *testing.T) []byte {
	in := ink.Ink{ID: uuid.New(), Strokes: []ink.Stroke{{ID: uuid.New(), Points: []ink.Point{{X: 1, Y: 2, T: 3}, {X: 10, Y: 20, T: 30}}}}}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	return b
}

func TestRecognizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, _ := do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.recognizer = fakeRecognizer{}
	rec, env := do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res RecognizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "hello", res.Text)
	assert.Len(t, res.Candidates, 2)

	rec, _ = do(t, s, http.MethodPost, "/api/ink/recognize", []byte("{"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/ink/recognize", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	s.recognizer = fakeRecognizer{err: errors.New("upstream")}
	rec, env = do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream", env.Error)
}

func TestRenderEndpoint(t *testing.T) {
	s := newTestServer(t)
	label := "cat"
	body, err := json.Marshal(RenderRequest{
		Boxes:        []overlay.BoundingBox{{Left: 0, Top: 0, Right: 50, Bottom: 50, Label: &label}},
		SourceWidth:  100,
		SourceHeight: 100,
	})
	require.NoError(t, err)

	rec, env := do(t, s, http.MethodPost, "/api/overlay/render", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Commands []overlay.Command `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Commands, 3)
	assert.Equal(t, overlay.KindClear, data.Commands[0].Kind)
	assert.Equal(t, 50.0, data.Commands[1].Rect.Right)
	assert.Equal(t, "cat", data.Commands[2].Text)

	rec, _ = do(t, s, http.MethodPost, "/api/overlay/render?format=png", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	bad, err := json.Marshal(RenderRequest{SourceWidth: 0, SourceHeight: 100})
	require.NoError(t, err)
	rec, _ = do(t, s, http.MethodPost, "/api/overlay/render", bad, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func pngBody(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDetectEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec, _ := do(t, s, http.MethodPost, "/api/overlay/detect", pngBody(t, 10, 10), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	id := int64(3)
	s.detector = detect.DetectorFunc(func(_ context.Context, f detect.Frame) ([]detect.Detection, error) {
		return []detect.Detection{{Box: overlay.BoundingBox{Right: 100, Bottom: 100}, TrackingID: &id}}, nil
	})
	rec, env := do(t, s, http.MethodPost, "/api/overlay/detect?view_width=50&view_height=50", pngBody(t, 200, 200), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Detections []detect.Detection `json:"detections"`
		Commands   []overlay.Command  `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Detections, 1)
	assert.Equal(t, 25.0, data.Commands[1].Rect.Right)
	assert.Equal(t, "Tracking ID: 3", data.Commands[2].Text)

	rec, _ = do(t, s, http.MethodPost, "/api/overlay/detect", []byte("not an image"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.detector = detect.DetectorFunc(func(context.Context, detect.Frame) ([]detect.Detection, error) {
		return nil, errors.New("quota")
	})
	rec, _ = do(t, s, http.MethodPost, "/api/overlay/detect", pngBody(t, 10, 10), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPngViewTooLarge(t *testing.T) {
	s := newTestServer(t)
	body, err := json.Marshal(RenderRequest{
		Boxes:        []overlay.BoundingBox{{Right: 50, Bottom: 50}},
		SourceWidth:  100,
		SourceHeight: 100,
		ViewWidth:    100000,
		ViewHeight:   100000,
	})
	require.NoError(t, err)

	rec, env := do(t, s, http.MethodPost, "/api/overlay/render?format=png", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, overlay.ErrInvalidInput.Error())

	// the command list itself is not size bound
	rec, _ = do(t, s, http.MethodPost, "/api/overlay/render", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.detector = detect.DetectorFunc(func(context.Context, detect.Frame) ([]detect.Detection, error) {
		return nil, nil
	})
	rec, _ = do(t, s, http.MethodPost, "/api/overlay/detect?format=png&view_width=100000&view_height=10", pngBody(t, 10, 10), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// pngHeader is a PNG signature and IHDR chunk announcing a w×h RGBA image.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12], ihdr[13] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func TestDetectFrameTooLarge(t *testing.T) {
	s := newTestServer(t)
	called := false
	s.detector = detect.DetectorFunc(func(context.Context, detect.Frame) ([]detect.Detection, error) {
		called = true
		return nil, nil
	})
	rec, env := do(t, s, http.MethodPost, "/api/overlay/detect", pngHeader(30000, 30000), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "too large")
	assert.False(t, called)
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}) string {
	tok := jwt.NewWithClaims(method, jwt.StandardClaims{
		Subject:   "test",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthorize(t *testing.T) {
	s := newTestServer(t)
	s.jwtSecret = []byte("secret")
	s.recognizer = fakeRecognizer{}

	rec, _ := do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := http.Header{"Authorization": {"Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"))}}
	rec, _ = do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	none := http.Header{"Authorization": {"Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)}}
	rec, _ = do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), none)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good := http.Header{"Authorization": {"Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"))}}
	rec, _ = do(t, s, http.MethodPost, "/api/ink/recognize", inkBody(t), good)
	assert.Equal(t, http.StatusOK, rec.Code)

	// version and health stay public
	rec, _ = do(t, s, http.MethodGet, "/api/version", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
