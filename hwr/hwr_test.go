package hwr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odmlbook/inkvision/ink"
)

func testInk() ink.Ink {
	c := ink.NewCapture(ink.WithTolerance(1))
	h, _ := c.Begin(ink.Point{X: 10, Y: 10, T: 100})
	c.Extend(h, ink.Point{X: 20, Y: 25.04, T: 116})
	c.End(h, ink.Point{X: 30, Y: 40, T: 132})
	return c.Ink()
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		ApplicationKey: "app",
		HmacKey:        "secret",
		Endpoint:       srv.URL,
		HTTPClient:     srv.Client(),
	})
	require.NoError(t, err)
	return c, srv
}

func TestRecognize(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "app", r.Header.Get("applicationKey"))
		assert.Equal(t, Sign("app", "secret", body), r.Header.Get("hmac"))
		assert.Equal(t, "application/vnd.myscript.jiix, application/json", r.Header.Get("Accept"))

		var batch BatchInput
		if !assert.NoError(t, json.Unmarshal(body, &batch)) {
			return
		}
		assert.Equal(t, "Text", *batch.ContentType)
		assert.Equal(t, "en_US", batch.Configuration.Lang)
		if !assert.Len(t, batch.StrokeGroups, 1) || !assert.Len(t, batch.StrokeGroups[0].Strokes, 1) {
			return
		}
		s := batch.StrokeGroups[0].Strokes[0]
		assert.Equal(t, []float32{10, 20, 30}, s.X)
		assert.Equal(t, []float32{10, 25, 40}, s.Y)
		assert.Equal(t, []int64{100, 116, 132}, s.T)
		assert.Equal(t, int32(31), batch.Width)

		w.Write([]byte(`{"type":"Text","label":"hello","words":[{"label":"hello","candidates":["hello","hallo","hello","jello"]}]}`))
	})

	res, err := c.Recognize(context.Background(), testInk())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hallo", "jello"}, res.Candidates)
	assert.Equal(t, "hello", res.Text())
}

func TestRecognizeEmptyInk(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Recognize(context.Background(), ink.Ink{})
	assert.ErrorIs(t, err, NoContent)
}

func TestRecognizeAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"access.not.granted"}`))
	})
	_, err := c.Recognize(context.Background(), testInk())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestRecognizeBatch(t *testing.T) {
	var inFlight, peak int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		w.Write([]byte("plain answer"))
	})

	inks := []ink.Ink{testInk(), {}, testInk(), testInk(), testInk()}
	results, errs := c.RecognizeBatch(context.Background(), inks)
	require.Len(t, results, 5)
	assert.ErrorIs(t, errs[1], NoContent)
	for _, i := range []int{0, 2, 3, 4} {
		assert.NoError(t, errs[i])
		assert.Equal(t, "plain answer", results[i].Text())
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestNewClientRequiresKeys(t *testing.T) {
	_, err := NewClient(Config{HmacKey: "x"})
	assert.Error(t, err)
	_, err = NewClient(Config{ApplicationKey: "x"})
	assert.Error(t, err)
}

func TestDownsamplePoints(t *testing.T) {
	pts := make([]ink.Point, 1001)
	for i := range pts {
		pts[i] = ink.Point{X: float32(i), T: int64(i)}
	}
	got := downsamplePoints(pts)
	assert.Equal(t, pts[0], got[0])
	assert.Equal(t, pts[1000], got[len(got)-1])
	assert.Less(t, len(got), 300)

	short := pts[:150]
	assert.Len(t, downsamplePoints(short), 150)
}

func TestExtractCandidates(t *testing.T) {
	assert.Nil(t, extractCandidates(nil))
	assert.Equal(t, []string{"x^2"}, extractCandidates([]byte(" x^2 \n")))
	assert.Equal(t, []string{"hello world"},
		extractCandidates([]byte(`{"words":[{"label":"hello"},{"label":" "},{"label":"world"}]}`)))
	assert.Equal(t, []string{"ab"}, extractCandidates([]byte(`{"chars":[{"label":"a"},{"label":"b"}]}`)))
	assert.Equal(t, []string{`{"nothing":1}`}, extractCandidates([]byte(`{"nothing":1}`)))
}

func TestSetContentType(t *testing.T) {
	ct, mime := setContentType("MATH")
	assert.Equal(t, "Math", ct)
	assert.Equal(t, "application/x-latex", mime)
	ct, _ = setContentType("")
	assert.Equal(t, "Text", ct)
}
