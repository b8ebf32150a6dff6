package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/membot/pkg/retry"
)

const requestTimeout = 120 * time.Second

// httpProvider carries the shared HTTP plumbing for API-backed providers.
// Transient request failures and 5xx responses are retried with backoff.
type httpProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
	model   string
}

func newHTTPProvider(baseURL, apiKey, model string) httpProvider {
	return httpProvider{
		client:  &http.Client{Timeout: requestTimeout},
		retrier: retry.NewDefaultRetrier(),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// postJSON sends the body and returns the response payload. Non-2xx status
// codes become errors carrying the response text.
func (p *httpProvider) postJSON(ctx context.Context, path string, body any, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var data []byte
	err = p.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
