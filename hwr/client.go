package hwr

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const DefaultEndpoint = "https://cloud.myscript.com/api/v4.0/iink/batch"

// Sign returns the hex HMAC-SHA512 of data keyed with the application key
// followed by the HMAC key, as required by the iink API.
func Sign(key, hmackey string, data []byte) string {
	mac := hmac.New(sha512.New, []byte(key+hmackey))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// sendRequest posts a signed batch request and returns the response body.
func (c *Client) sendRequest(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", mimeType+", application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("applicationKey", c.applicationKey)
	req.Header.Set("hmac", Sign(c.applicationKey, c.hmacKey, data))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if res.StatusCode != http.StatusOK {
		return nil, &APIError{Status: res.StatusCode, Body: string(body)}
	}

	return body, nil
}

// APIError is a non 200 answer of the recognition service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: Status %d, Response: %s", e.Status, e.Body)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
