package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// maxErrorBody bounds how much of a failed response is quoted in errors.
	maxErrorBody = 512
	// maxResponseBody bounds how much of a successful response is decoded.
	// A one-line command record is a few hundred bytes; model listings stay well below this.
	maxResponseBody = 4 << 20
)

// postJSON sends payload to url and decodes a successful response into out.
// Non-2xx statuses are errors carrying a prefix of the response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("content-type", "application/json")
	return doJSON(client, httpReq, headers, out)
}

// getJSON fetches url and decodes a successful response into out.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return doJSON(client, httpReq, headers, out)
}

func doJSON(client *http.Client, httpReq *http.Request, headers map[string]string, out interface{}) error {
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	limited := &io.LimitedReader{R: resp.Body, N: maxResponseBody + 1}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		if limited.N <= 0 {
			return fmt.Errorf("decode response: body exceeds %d bytes", maxResponseBody)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
