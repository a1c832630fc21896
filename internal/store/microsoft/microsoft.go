// Package microsoft implements the Microsoft Partner Center Submission
// API client: OAuth2 client-credentials auth, the submission lifecycle
// (create, Azure blob upload, commit), and status polling.
package microsoft

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
	"github.com/lucasilverentand/canaveral/internal/store"
)

const (
	defaultBaseURL     = "https://manage.devcenter.microsoft.com/v1.0/my"
	defaultResource    = "https://manage.devcenter.microsoft.com"
	tokenURLTemplate   = "https://login.microsoftonline.com/%s/oauth2/token"
)

// Config holds the Azure AD app registration credentials for one tenant.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string // defaults to the production Partner Center API
}

// Client talks to Microsoft Partner Center on behalf of one Azure AD
// application.
type Client struct {
	cfg      Config
	baseURL  string
	tokenURL string
	http     *http.Client
	limit    *httpx.RateLimiter
	uploader *httpx.Uploader
	token    *store.TokenCache
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		tokenURL: fmt.Sprintf(tokenURLTemplate, cfg.TenantID),
		http:     httpx.NewStoreClient(60 * time.Second),
		limit:    httpx.NewRateLimiter(5, 10),
		uploader: httpx.NewUploader(120 * time.Second),
		token:    store.NewTokenCache(5 * time.Minute),
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	return c.token.Get(ctx, func(ctx context.Context) (string, time.Duration, error) {
		return store.ExchangeClientCredentials(ctx, c.http, c.tokenURL, c.cfg.ClientID, c.cfg.ClientSecret, defaultResource)
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

// --- Submission lifecycle ---

// Submission is a Partner Center app or flight submission.
type Submission struct {
	ID            string `json:"id"`
	FileUploadURL string `json:"fileUploadUrl"`
	Status        string `json:"status"`
}

type submissionPackage struct {
	FileName string `json:"fileName"`
	FileStatus string `json:"fileStatus"` // PendingUpload | PendingDelete | Uploaded
}

type submissionListing struct {
	ReleaseNotes string `json:"releaseNotes,omitempty"`
}

type submissionBody struct {
	ApplicationPackages []submissionPackage           `json:"applicationPackages"`
	Listings            map[string]submissionListing  `json:"listings,omitempty"`
}

// CreateSubmission opens a new submission for appID (a main app ID, or a
// flight ID when flightID is non-empty).
func (c *Client) CreateSubmission(ctx context.Context, appID, flightID string) (*Submission, error) {
	path := fmt.Sprintf("/applications/%s/submissions", appID)
	if flightID != "" {
		path = fmt.Sprintf("/applications/%s/flights/%s/submissions", appID, flightID)
	}
	var sub Submission
	if err := c.do(ctx, http.MethodPost, path, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UploadPackage uploads the package file at path to the submission's
// Azure blob fileUploadUrl via a block-blob PUT.
func (c *Client) UploadPackage(ctx context.Context, sub *Submission, path string) error {
	if err := c.limit.Wait(ctx); err != nil {
		return err
	}
	_, err := c.uploader.PutFile(ctx, sub.FileUploadURL, path, "application/octet-stream", func(req *http.Request) error {
		req.Header.Set("x-ms-blob-type", "BlockBlob")
		return nil
	}, nil)
	if err != nil {
		return cerrors.Wrap(cerrors.UploadFailed, err, "upload package to blob")
	}
	return nil
}

// PatchSubmission marks existing packages PendingDelete, appends the new
// package as PendingUpload, and sets per-locale release notes.
func (c *Client) PatchSubmission(ctx context.Context, appID string, sub *Submission, existing []string, newFileName string, releaseNotes map[string]string) error {
	packages := make([]submissionPackage, 0, len(existing)+1)
	for _, name := range existing {
		packages = append(packages, submissionPackage{FileName: name, FileStatus: "PendingDelete"})
	}
	packages = append(packages, submissionPackage{FileName: newFileName, FileStatus: "PendingUpload"})

	listings := make(map[string]submissionListing, len(releaseNotes))
	for locale, notes := range releaseNotes {
		listings[locale] = submissionListing{ReleaseNotes: notes}
	}

	body := submissionBody{ApplicationPackages: packages, Listings: listings}
	path := fmt.Sprintf("/applications/%s/submissions/%s", appID, sub.ID)
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// CommitSubmission commits a submission's accumulated changes, moving it
// into the certification pipeline.
func (c *Client) CommitSubmission(ctx context.Context, appID, submissionID string) error {
	path := fmt.Sprintf("/applications/%s/submissions/%s/commit", appID, submissionID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// --- Status ---

// State is the normalized submission lifecycle state, collapsing Partner
// Center's raw status/substatus pairs.
type State string

const (
	StateProcessing   State = "Processing"
	StateInReview     State = "InReview"
	StateReady        State = "Ready"
	StateLive         State = "Live"
	StateFailed       State = "Failed"
)

var statusStateMap = map[string]State{
	"CommitStarted":  StateProcessing,
	"PreProcessing":  StateProcessing,
	"Processing":     StateProcessing,
	"Certification":  StateInReview,
	"InReview":       StateInReview,
	"Release":        StateReady,
	"Ready":          StateReady,
	"Published":      StateLive,
	"Live":           StateLive,
	"Canceled":       StateFailed,
	"Failed":         StateFailed,
}

type statusResponse struct {
	Status string `json:"status"`
}

// GetSubmissionStatus polls a submission's status and maps it to a
// normalized State.
func (c *Client) GetSubmissionStatus(ctx context.Context, appID, submissionID string) (State, error) {
	path := fmt.Sprintf("/applications/%s/submissions/%s/status", appID, submissionID)
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if state, ok := statusStateMap[resp.Status]; ok {
		return state, nil
	}
	return StateProcessing, nil
}

// --- Tracks ---

type flight struct {
	ID   string `json:"flightId"`
	Name string `json:"friendlyName"`
}

type flightListResponse struct {
	Value []flight `json:"value"`
}

// ListTracks enumerates flights plus a synthetic "production" track. It
// takes an explicit appID rather than satisfying store.TrackLister
// directly, for the same reason Google Play's track methods don't:
// Partner Center submissions are always scoped to one app. Direct
// promotion between tracks is unsupported; callers must create a new
// submission against the desired track.
func (c *Client) ListTracks(ctx context.Context, appID string) ([]store.Track, error) {
	var resp flightListResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/applications/%s/listflights", appID), nil, &resp); err != nil {
		return nil, err
	}
	tracks := make([]store.Track, 0, len(resp.Value)+1)
	for _, f := range resp.Value {
		tracks = append(tracks, store.Track{Name: f.Name})
	}
	tracks = append(tracks, store.Track{Name: "production"})
	return tracks, nil
}

// PromoteBuild is unsupported: Microsoft requires creating a new
// submission against the destination track rather than promoting an
// existing one.
func (c *Client) PromoteBuild(ctx context.Context, id, from, to string) error {
	return cerrors.New(cerrors.InvalidArgument, "microsoft partner center does not support direct promotion; create a new submission against the destination track")
}

// --- Store client contract ---

// ValidateArtifact performs no checks and always returns nil; the
// `store validate` command parses the MSIX/APPX manifest separately
// through internal/artifact.Detect. Microsoft's API itself performs no
// pre-flight validation beyond accepting the blob.
func (c *Client) ValidateArtifact(ctx context.Context, path string) error {
	return nil
}

// Upload is not implemented directly: the submission lifecycle (create,
// blob PUT, patch, commit) requires an appID and release-notes map this
// narrower signature can't carry, so callers drive CreateSubmission,
// UploadPackage, PatchSubmission, and CommitSubmission explicitly.
func (c *Client) Upload(ctx context.Context, path string, opts store.UploadOptions) (store.UploadResult, error) {
	if opts.DryRun {
		return store.UploadResult{Status: "dry-run"}, nil
	}
	return store.UploadResult{}, cerrors.New(cerrors.InvalidArgument, "use CreateSubmission/UploadPackage/PatchSubmission/CommitSubmission directly")
}

// GetBuildStatus is not meaningful without an appID; use
// GetSubmissionStatus directly.
func (c *Client) GetBuildStatus(ctx context.Context, id string) (store.BuildStatus, error) {
	return store.BuildStatus{}, cerrors.New(cerrors.InvalidArgument, "use GetSubmissionStatus(appID, submissionID) directly")
}
