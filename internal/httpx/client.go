// Package httpx provides the hardened HTTP client and upload primitives
// shared by every store client and storage backend.
package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// NewSecureClient returns an *http.Client hardened against weak TLS and
// unbounded connection growth: TLS 1.2 minimum, capped idle connections,
// and a hard timeout.
func NewSecureClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// RetryPolicy configures go-retryablehttp's bounded retry behavior for a
// store client. Retry-After response headers are honored automatically by
// retryablehttp's default backoff.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy matches the bounded-retry behavior required by store
// clients that see transient 5xx/429 responses: up to 3 retries, with
// Retry-After honored on 429 by retryablehttp's default backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	MinWait:    500 * time.Millisecond,
	MaxWait:    10 * time.Second,
}

// NewRetryingClient wraps NewSecureClient's transport in a retryablehttp
// client so callers get bounded retries with exponential backoff without
// hand-rolling a loop per store client.
func NewRetryingClient(timeout time.Duration, policy RetryPolicy) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = NewSecureClient(timeout)
	rc.RetryMax = policy.MaxRetries
	rc.RetryWaitMin = policy.MinWait
	rc.RetryWaitMax = policy.MaxWait
	rc.Logger = nil
	// Hand back the last response once retries run out, so callers see
	// its status (e.g. a final 429) instead of a generic giving-up error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// NewStoreClient returns a plain *http.Client whose transport routes
// every request through NewRetryingClient with DefaultRetryPolicy. The
// store clients all build their HTTP client here so retry behavior stays
// uniform across Apple, Google Play, Microsoft, and Firebase.
func NewStoreClient(timeout time.Duration) *http.Client {
	return NewRetryingClient(timeout, DefaultRetryPolicy).StandardClient()
}

// RateLimiter wraps golang.org/x/time/rate for a single store client,
// blocking callers until a request token is available or ctx is done.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token-bucket limiter allowing ratePerSecond
// requests per second with the given burst size.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a request may proceed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// UploadResult is the outcome of a blob upload to any backend (object
// store, Azure blob, Firebase, Google Play image slot).
type UploadResult struct {
	URL  string
	Size int64
	Type string
}

// ProgressFunc is invoked during upload to report bytes transferred.
type ProgressFunc func(uploaded, total int64)

// SignHeaderFunc attaches whatever auth header(s) a backend requires
// (a SAS token query string, a bearer token, a signed PUT policy) to an
// in-flight request. Backends that need no signing pass nil.
type SignHeaderFunc func(req *http.Request) error

// Uploader performs signed-PUT blob uploads against a single destination
// URL, serving the object-store match backend and the Azure blob leg of
// Microsoft submissions.
type Uploader struct {
	client *http.Client
}

// NewUploader creates an Uploader using a hardened client with the given
// per-request timeout.
func NewUploader(timeout time.Duration) *Uploader {
	return &Uploader{client: NewSecureClient(timeout)}
}

// PutFile uploads a file's contents to url via HTTP PUT, attaching
// whatever auth the backend needs via sign, and reporting progress via
// onProgress if non-nil.
func (u *Uploader) PutFile(ctx context.Context, url, filePath, contentType string, sign SignHeaderFunc, onProgress ProgressFunc) (*UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	var reader io.Reader = f
	if onProgress != nil {
		reader = &progressReader{reader: f, total: fi.Size(), onProgress: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = fi.Size()
	if sign != nil {
		if err := sign(req); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return &UploadResult{URL: url, Size: fi.Size(), Type: contentType}, nil
}

// PutBytes is PutFile for an in-memory payload (the object-store match
// backend's encrypted manifest and artifact blobs).
func (u *Uploader) PutBytes(ctx context.Context, url string, data []byte, contentType string, sign SignHeaderFunc) (*UploadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))
	if sign != nil {
		if err := sign(req); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return &UploadResult{URL: url, Size: int64(len(data)), Type: contentType}, nil
}

// progressReader wraps a reader to track upload progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	uploaded   int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.uploaded += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.uploaded, pr.total)
	}
	return n, err
}
