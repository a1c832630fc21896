package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

// TokenCache caches a single bearer token with a safety margin before its
// real expiry, shared by the Google Play, Microsoft, and Firebase clients,
// which all reuse a token until expiry minus the margin.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	margin    time.Duration
}

// NewTokenCache creates a TokenCache applying margin before expiry.
func NewTokenCache(margin time.Duration) *TokenCache {
	return &TokenCache{margin: margin}
}

// Get returns the cached token if still valid, or calls fetch to obtain
// and cache a new one.
func (c *TokenCache) Get(ctx context.Context, fetch func(ctx context.Context) (token string, expiresIn time.Duration, err error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresIn, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = time.Now().Add(expiresIn - c.margin)
	return c.token, nil
}

// oauthTokenResponse is the common shape of an OAuth2 token-endpoint reply.
type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeJWTForToken exchanges a signed JWT assertion for an OAuth2
// access token using the RFC 7523 JWT-bearer grant, as Google Play and
// Firebase service accounts do against Google's token endpoint.
func ExchangeJWTForToken(ctx context.Context, client *http.Client, tokenURL, assertion string) (string, time.Duration, error) {
	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	return postForm(ctx, client, tokenURL, form)
}

// ExchangeClientCredentials performs an OAuth2 client-credentials grant,
// as Microsoft Partner Center requires against the Azure tenant endpoint.
func ExchangeClientCredentials(ctx context.Context, client *http.Client, tokenURL, clientID, clientSecret, scope string) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return postForm(ctx, client, tokenURL, form)
}

func postForm(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", 0, cerrors.ApiError(resp.StatusCode, string(body))
	}

	var parsed oauthTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	if parsed.ExpiresIn == 0 {
		parsed.ExpiresIn = 3600
	}
	return parsed.AccessToken, time.Duration(parsed.ExpiresIn) * time.Second, nil
}
