package store

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
)

func TestSignES256ProducesThreeSegments(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	token, err := SignES256(map[string]any{"iss": "issuer123"}, "KEY123", key)
	if err != nil {
		t.Fatalf("SignES256: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT segments, got %d: %q", len(parts), token)
	}
}

func TestDoJSONRetriesOn429ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	client := httpx.NewStoreClient(5 * time.Second)
	err := DoJSON(context.Background(), client, RequestOptions{Method: http.MethodGet, URL: srv.URL}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded response body")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoJSONFailsAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := httpx.NewStoreClient(5 * time.Second)
	err := DoJSON(context.Background(), client, RequestOptions{Method: http.MethodGet, URL: srv.URL}, nil)
	if !cerrors.Is(err, cerrors.RateLimited) {
		t.Fatalf("expected RateLimited error, got %v", err)
	}
}

func TestTokenCacheReusesUntilMargin(t *testing.T) {
	cache := NewTokenCache(5 * time.Minute)
	calls := 0
	fetch := func(ctx context.Context) (string, time.Duration, error) {
		calls++
		return "tok", time.Hour, nil
	}

	tok1, err := cache.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tok2, err := cache.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tok1 != "tok" || tok2 != "tok" {
		t.Fatalf("unexpected tokens: %q %q", tok1, tok2)
	}
	if calls != 1 {
		t.Fatalf("expected fetch called once, got %d", calls)
	}
}
