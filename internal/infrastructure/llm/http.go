package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// GenerateTimeout bounds a generation call; vendors can take minutes.
	GenerateTimeout = 3 * time.Minute
	// probeTimeout bounds validation and model-listing calls.
	probeTimeout = 10 * time.Second
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: GenerateTimeout}
}

// doJSON performs one HTTP round trip and returns the status code and body.
// Callers decide what any non-2xx status means; some backends treat specific
// error codes as expected signals.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func statusError(status int, body []byte) error {
	return fmt.Errorf("api error: %d - %s", status, string(body))
}
