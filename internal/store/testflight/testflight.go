// Package testflight implements the TestFlight subset of App Store
// Connect: builds, beta groups, beta testers, beta-app-review
// submissions, and per-build "What's New" localizations.
package testflight

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/store/apple"
)

// ProcessingState is a build's processing status.
type ProcessingState string

const (
	Processing ProcessingState = "PROCESSING"
	Valid      ProcessingState = "VALID"
	Invalid    ProcessingState = "INVALID"
	Failed     ProcessingState = "FAILED"
)

// AudienceType classifies a beta group.
type AudienceType string

const (
	Internal AudienceType = "Internal"
	External AudienceType = "External"
)

// ReviewState is a beta-app-review submission's status.
type ReviewState string

const (
	WaitingForReview ReviewState = "WAITING_FOR_REVIEW"
	InReview         ReviewState = "IN_REVIEW"
	Approved         ReviewState = "APPROVED"
	Rejected         ReviewState = "REJECTED"
)

// Client reuses an App Store Connect client's JWT auth and retry policy
// (TestFlight is served from the same API, under different resource
// paths).
type Client struct {
	asc *apple.Client
}

// NewClient wraps an existing App Store Connect client for TestFlight use.
func NewClient(asc *apple.Client) *Client {
	return &Client{asc: asc}
}

// Build is one uploaded build under test.
type Build struct {
	ID              string
	Version         string
	ProcessingState ProcessingState
}

type buildAttrs struct {
	Version         string `json:"version"`
	ProcessingState string `json:"processingState"`
}

type buildResource struct {
	ID         string     `json:"id"`
	Attributes buildAttrs `json:"attributes"`
}

type buildListResponse struct {
	Data []buildResource `json:"data"`
}

type buildResponse struct {
	Data buildResource `json:"data"`
}

// ListBuilds returns every build registered for appID.
func (c *Client) ListBuilds(ctx context.Context, appID string) ([]Build, error) {
	var resp buildListResponse
	if err := c.asc.Do(ctx, http.MethodGet, "/builds?filter[app]="+appID, nil, &resp); err != nil {
		return nil, err
	}
	builds := make([]Build, len(resp.Data))
	for i, b := range resp.Data {
		builds[i] = Build{ID: b.ID, Version: b.Attributes.Version, ProcessingState: ProcessingState(b.Attributes.ProcessingState)}
	}
	return builds, nil
}

// GetBuild fetches one build by ID.
func (c *Client) GetBuild(ctx context.Context, id string) (Build, error) {
	var resp buildResponse
	if err := c.asc.Do(ctx, http.MethodGet, "/builds/"+id, nil, &resp); err != nil {
		return Build{}, err
	}
	return Build{ID: resp.Data.ID, Version: resp.Data.Attributes.Version, ProcessingState: ProcessingState(resp.Data.Attributes.ProcessingState)}, nil
}

// SetExportCompliance records a build's encryption export-compliance
// declaration, required before TestFlight will distribute it externally.
func (c *Client) SetExportCompliance(ctx context.Context, buildID string, usesEncryption bool) error {
	body := map[string]any{
		"data": map[string]any{
			"type": "builds",
			"attributes": map[string]any{
				"usesNonExemptEncryption": usesEncryption,
			},
			"id": buildID,
		},
	}
	return c.asc.Do(ctx, http.MethodPatch, "/builds/"+buildID, body, nil)
}

// ExpireBuild marks a build expired, removing it from active testing.
func (c *Client) ExpireBuild(ctx context.Context, buildID string) error {
	body := map[string]any{
		"data": map[string]any{
			"type":       "builds",
			"id":         buildID,
			"attributes": map[string]any{"expired": true},
		},
	}
	return c.asc.Do(ctx, http.MethodPatch, "/builds/"+buildID, body, nil)
}

// --- Beta groups ---

// BetaGroup is a named collection of testers.
type BetaGroup struct {
	ID       string
	Name     string
	Audience AudienceType
}

type betaGroupAttrs struct {
	Name            string `json:"name"`
	IsInternalGroup bool   `json:"isInternalGroup"`
}

type betaGroupResource struct {
	ID         string         `json:"id"`
	Attributes betaGroupAttrs `json:"attributes"`
}

type betaGroupResponse struct {
	Data betaGroupResource `json:"data"`
}

// CreateGroup creates a beta group named name for appID.
func (c *Client) CreateGroup(ctx context.Context, appID, name string, audience AudienceType) (BetaGroup, error) {
	body := map[string]any{
		"data": map[string]any{
			"type": "betaGroups",
			"attributes": map[string]any{
				"name":            name,
				"isInternalGroup": audience == Internal,
			},
			"relationships": map[string]any{
				"app": map[string]any{"data": map[string]string{"type": "apps", "id": appID}},
			},
		},
	}
	var resp betaGroupResponse
	if err := c.asc.Do(ctx, http.MethodPost, "/betaGroups", body, &resp); err != nil {
		return BetaGroup{}, err
	}
	return BetaGroup{ID: resp.Data.ID, Name: resp.Data.Attributes.Name, Audience: audience}, nil
}

// DeleteGroup removes a beta group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.asc.Do(ctx, http.MethodDelete, "/betaGroups/"+groupID, nil, nil)
}

// AddBuildsToGroup makes buildIDs available to groupID's testers.
func (c *Client) AddBuildsToGroup(ctx context.Context, groupID string, buildIDs []string) error {
	return c.relateBuilds(ctx, groupID, buildIDs, http.MethodPost)
}

// RemoveBuildsFromGroup revokes buildIDs' availability to groupID's testers.
func (c *Client) RemoveBuildsFromGroup(ctx context.Context, groupID string, buildIDs []string) error {
	return c.relateBuilds(ctx, groupID, buildIDs, http.MethodDelete)
}

func (c *Client) relateBuilds(ctx context.Context, groupID string, buildIDs []string, method string) error {
	data := make([]map[string]string, len(buildIDs))
	for i, id := range buildIDs {
		data[i] = map[string]string{"type": "builds", "id": id}
	}
	body := map[string]any{"data": data}
	return c.asc.Do(ctx, method, "/betaGroups/"+groupID+"/relationships/builds", body, nil)
}

// --- Beta testers ---

// BetaTester is an invited external tester.
type BetaTester struct {
	ID    string
	Email string
}

type betaTesterAttrs struct {
	Email string `json:"email"`
}

type betaTesterResource struct {
	ID         string          `json:"id"`
	Attributes betaTesterAttrs `json:"attributes"`
}

type betaTesterResponse struct {
	Data betaTesterResource `json:"data"`
}

// InviteTester invites email as a beta tester on appID.
func (c *Client) InviteTester(ctx context.Context, appID, email string) (BetaTester, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":       "betaTesters",
			"attributes": map[string]any{"email": email},
			"relationships": map[string]any{
				"apps": map[string]any{"data": []map[string]string{{"type": "apps", "id": appID}}},
			},
		},
	}
	var resp betaTesterResponse
	if err := c.asc.Do(ctx, http.MethodPost, "/betaTesters", body, &resp); err != nil {
		return BetaTester{}, err
	}
	return BetaTester{ID: resp.Data.ID, Email: resp.Data.Attributes.Email}, nil
}

// RemoveTester removes a beta tester entirely.
func (c *Client) RemoveTester(ctx context.Context, testerID string) error {
	return c.asc.Do(ctx, http.MethodDelete, "/betaTesters/"+testerID, nil, nil)
}

// AddTestersToGroup adds testerIDs to groupID.
func (c *Client) AddTestersToGroup(ctx context.Context, groupID string, testerIDs []string) error {
	return c.relateTesters(ctx, groupID, testerIDs, http.MethodPost)
}

// RemoveTestersFromGroup removes testerIDs from groupID.
func (c *Client) RemoveTestersFromGroup(ctx context.Context, groupID string, testerIDs []string) error {
	return c.relateTesters(ctx, groupID, testerIDs, http.MethodDelete)
}

func (c *Client) relateTesters(ctx context.Context, groupID string, testerIDs []string, method string) error {
	data := make([]map[string]string, len(testerIDs))
	for i, id := range testerIDs {
		data[i] = map[string]string{"type": "betaTesters", "id": id}
	}
	body := map[string]any{"data": data}
	return c.asc.Do(ctx, method, "/betaGroups/"+groupID+"/relationships/betaTesters", body, nil)
}

// --- Beta app review ---

type reviewSubmissionAttrs struct {
	State string `json:"betaReviewState"`
}

type reviewSubmissionResource struct {
	ID         string                `json:"id"`
	Attributes reviewSubmissionAttrs `json:"attributes"`
}

type reviewSubmissionResponse struct {
	Data reviewSubmissionResource `json:"data"`
}

// SubmitForReview submits buildID for beta app review, required before
// external testers can install it.
func (c *Client) SubmitForReview(ctx context.Context, buildID string) (ReviewState, error) {
	body := map[string]any{
		"data": map[string]any{
			"type": "betaAppReviewSubmissions",
			"relationships": map[string]any{
				"build": map[string]any{"data": map[string]string{"type": "builds", "id": buildID}},
			},
		},
	}
	var resp reviewSubmissionResponse
	if err := c.asc.Do(ctx, http.MethodPost, "/betaAppReviewSubmissions", body, &resp); err != nil {
		return "", err
	}
	return ReviewState(resp.Data.Attributes.State), nil
}

// --- What's New ---

// SetWhatsNew creates or updates a build's localized "What's New" text
// for locale.
func (c *Client) SetWhatsNew(ctx context.Context, buildID, locale, text string) error {
	existingID, err := c.findWhatsNewLocalization(ctx, buildID, locale)
	if err != nil {
		return err
	}
	if existingID != "" {
		body := map[string]any{
			"data": map[string]any{
				"type":       "betaBuildLocalizations",
				"id":         existingID,
				"attributes": map[string]any{"whatsNew": text},
			},
		}
		return c.asc.Do(ctx, http.MethodPatch, "/betaBuildLocalizations/"+existingID, body, nil)
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "betaBuildLocalizations",
			"attributes": map[string]any{
				"locale":   locale,
				"whatsNew": text,
			},
			"relationships": map[string]any{
				"build": map[string]any{"data": map[string]string{"type": "builds", "id": buildID}},
			},
		},
	}
	return c.asc.Do(ctx, http.MethodPost, "/betaBuildLocalizations", body, nil)
}

type whatsNewAttrs struct {
	Locale string `json:"locale"`
}

type whatsNewResource struct {
	ID         string        `json:"id"`
	Attributes whatsNewAttrs `json:"attributes"`
}

type whatsNewListResponse struct {
	Data []whatsNewResource `json:"data"`
}

func (c *Client) findWhatsNewLocalization(ctx context.Context, buildID, locale string) (string, error) {
	var resp whatsNewListResponse
	if err := c.asc.Do(ctx, http.MethodGet, "/builds/"+buildID+"/betaBuildLocalizations", nil, &resp); err != nil {
		if cerrors.Is(err, cerrors.NotFound) {
			return "", nil
		}
		return "", err
	}
	for _, loc := range resp.Data {
		if loc.Attributes.Locale == locale {
			return loc.ID, nil
		}
	}
	return "", nil
}

// ErrReviewRejected is returned by callers polling a rejected submission.
var ErrReviewRejected = fmt.Errorf("beta app review rejected")
