package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
)

// RequestOptions configures one JSON REST call through DoJSON.
type RequestOptions struct {
	Method  string
	URL     string
	Body    any // marshaled as the request body when non-nil
	Headers map[string]string
	Limiter *httpx.RateLimiter // per-client token bucket; nil means unthrottled
}

// DoJSON issues one JSON REST request. client should come from
// httpx.NewStoreClient, whose transport already performs bounded retries
// with backoff and honors Retry-After on HTTP 429; a 429 that survives
// those retries surfaces as RateLimited, and any other non-2xx response
// wraps as cerrors.ApiError. out, if non-nil, receives the decoded JSON
// response body.
func DoJSON(ctx context.Context, client *http.Client, opts RequestOptions, out any) error {
	if err := opts.Limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, reqBody)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", opts.Method, opts.URL, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return cerrors.New(cerrors.RateLimited, "rate limited after retries")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerrors.ApiError(resp.StatusCode, string(body))
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
