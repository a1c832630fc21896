// Package firebase implements the Firebase App Distribution v1 client:
// service-account JWT auth, multipart artifact upload, release notes,
// tester/group distribution.
package firebase

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
	"github.com/lucasilverentand/canaveral/internal/store"
)

const (
	defaultBaseURL   = "https://firebaseappdistribution.googleapis.com/v1"
	defaultUploadURL = "https://firebaseappdistribution.googleapis.com/upload/v1"
	defaultTokenURI  = "https://oauth2.googleapis.com/token"
	distributionScope = "https://www.googleapis.com/auth/firebase"
)

// Config holds the service-account credentials for one Firebase project.
// Token, when set, is used directly as the bearer token (FIREBASE_TOKEN)
// and the service-account exchange is skipped entirely.
type Config struct {
	ProjectNumber string // numeric Firebase project number
	AppID         string // the mobilesdk app ID (e.g. 1:123:android:abcd)
	ClientEmail   string
	PrivateKey    *rsa.PrivateKey
	Token         string
	TokenURI      string
	BaseURL       string
	UploadURL     string
}

// Client talks to Firebase App Distribution on behalf of one service
// account.
type Client struct {
	cfg       Config
	baseURL   string
	uploadURL string
	tokenURI  string
	http      *http.Client
	limit     *httpx.RateLimiter
	token     *store.TokenCache
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	uploadURL := cfg.UploadURL
	if uploadURL == "" {
		uploadURL = defaultUploadURL
	}
	tokenURI := cfg.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	return &Client{
		cfg:       cfg,
		baseURL:   baseURL,
		uploadURL: uploadURL,
		tokenURI:  tokenURI,
		http:      httpx.NewStoreClient(120 * time.Second),
		limit:     httpx.NewRateLimiter(5, 10),
		token:     store.NewTokenCache(5 * time.Minute),
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.Token != "" {
		return c.cfg.Token, nil
	}
	return c.token.Get(ctx, func(ctx context.Context) (string, time.Duration, error) {
		now := time.Now()
		claims := map[string]any{
			"iss":   c.cfg.ClientEmail,
			"scope": distributionScope,
			"aud":   c.tokenURI,
			"iat":   now.Unix(),
			"exp":   now.Add(time.Hour).Unix(),
		}
		assertion, err := store.SignRS256(claims, c.cfg.PrivateKey)
		if err != nil {
			return "", 0, fmt.Errorf("sign firebase jwt: %w", err)
		}
		return store.ExchangeJWTForToken(ctx, c.http, c.tokenURI, assertion)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return store.DoJSON(ctx, c.http, store.RequestOptions{
		Method:  method,
		URL:     c.baseURL + path,
		Body:    body,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Limiter: c.limit,
	}, out)
}

func (c *Client) appPath() string {
	return fmt.Sprintf("/projects/%s/apps/%s", c.cfg.ProjectNumber, c.cfg.AppID)
}

func (c *Client) projectPath() string {
	return fmt.Sprintf("/projects/%s", c.cfg.ProjectNumber)
}

// --- Upload ---

type releaseResource struct {
	Name         string `json:"name"`
	ReleaseNotes struct {
		Text string `json:"text"`
	} `json:"releaseNotes"`
}

type uploadOperation struct {
	Done     bool            `json:"done"`
	Response releaseResource `json:"response"`
}

// UploadBinary uploads the artifact at path via multipart upload and
// returns the resulting release's resource name.
func (c *Client) UploadBinary(ctx context.Context, path string) (string, error) {
	if err := c.limit.Wait(ctx); err != nil {
		return "", err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write artifact bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	url := c.uploadURL + c.appPath() + "/releases:upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Goog-Upload-File-Name", filepath.Base(path))
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", cerrors.ApiError(resp.StatusCode, string(respBody))
	}

	var op uploadOperation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return op.Response.Name, nil
}

// SetReleaseNotes patches a release's notes text.
func (c *Client) SetReleaseNotes(ctx context.Context, releaseName, notes string) error {
	body := map[string]any{"releaseNotes": map[string]string{"text": notes}}
	return c.do(ctx, http.MethodPatch, "/"+releaseName+"?updateMask=release_notes.text", body, nil)
}

// Distribute shares releaseName with the given tester emails and/or
// group aliases.
func (c *Client) Distribute(ctx context.Context, releaseName string, testerEmails, groupAliases []string) error {
	body := map[string]any{"testerEmails": testerEmails, "groupAliases": groupAliases}
	return c.do(ctx, http.MethodPost, "/"+releaseName+":distribute", body, nil)
}

// --- Groups ---

// CreateGroup creates a distribution group identified by alias, with a
// human-readable displayName.
func (c *Client) CreateGroup(ctx context.Context, alias, displayName string) error {
	body := map[string]any{"displayName": displayName}
	return c.do(ctx, http.MethodPost, c.projectPath()+"/groups?groupId="+alias, body, nil)
}

// DeleteGroup removes a distribution group.
func (c *Client) DeleteGroup(ctx context.Context, groupName string) error {
	return c.do(ctx, http.MethodDelete, "/"+groupName, nil, nil)
}

// BatchJoinGroup adds tester emails to a group.
func (c *Client) BatchJoinGroup(ctx context.Context, groupName string, emails []string) error {
	body := map[string]any{"emails": emails}
	return c.do(ctx, http.MethodPost, "/"+groupName+":batchJoin", body, nil)
}

// BatchLeaveGroup removes tester emails from a group.
func (c *Client) BatchLeaveGroup(ctx context.Context, groupName string, emails []string) error {
	body := map[string]any{"emails": emails}
	return c.do(ctx, http.MethodPost, "/"+groupName+":batchLeave", body, nil)
}

// --- Store client contract ---

// ValidateArtifact performs no checks and always returns nil; Firebase's
// own API performs no pre-flight checks either.
func (c *Client) ValidateArtifact(ctx context.Context, path string) error {
	return nil
}

// Upload uploads path and returns its release resource name as BuildID.
func (c *Client) Upload(ctx context.Context, path string, opts store.UploadOptions) (store.UploadResult, error) {
	if opts.DryRun {
		return store.UploadResult{Status: "dry-run"}, nil
	}
	name, err := c.UploadBinary(ctx, path)
	if err != nil {
		return store.UploadResult{}, err
	}
	if notes, ok := opts.ReleaseNotes[""]; ok && notes != "" {
		if err := c.SetReleaseNotes(ctx, name, notes); err != nil {
			return store.UploadResult{}, err
		}
	}
	return store.UploadResult{BuildID: name, Status: "uploaded"}, nil
}

// GetBuildStatus is not meaningful for Firebase releases: once uploaded,
// a release is immediately available to distribute. It reports "uploaded"
// unconditionally for a known release name.
func (c *Client) GetBuildStatus(ctx context.Context, id string) (store.BuildStatus, error) {
	return store.BuildStatus{ID: id, State: "uploaded"}, nil
}
