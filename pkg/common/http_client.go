package common

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// SetHTTPTimeout bounds every outgoing call made through Post and Get.
func SetHTTPTimeout(d time.Duration) {
	if d > 0 {
		httpClient.Timeout = d
	}
}

type HTTPResponse struct {
	StatusCode int
	Body       map[string]interface{}
	Raw        []byte
}

// OK reports a 2xx status code.
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Post sends a JSON POST request. A non-2xx response is not an error; the
// caller decides from StatusCode.
func Post(ctx context.Context, url string, payload interface{}, headers map[string]string) (*HTTPResponse, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(req)
}

// Get sends a GET request to the specified URL with the given headers.
func Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(req)
}

func do(req *http.Request) (*HTTPResponse, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := &HTTPResponse{StatusCode: resp.StatusCode, Raw: body}
	if len(body) > 0 {
		// Non-JSON bodies are kept in Raw only.
		_ = json.Unmarshal(body, &result.Body)
	}
	return result, nil
}
