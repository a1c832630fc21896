// Package apple implements the App Store Connect (and, as a thin subset,
// TestFlight) REST client: JWT-authenticated artifact upload, build status,
// and version/app-info localization pull/push/diff.
package apple

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
	"github.com/lucasilverentand/canaveral/internal/store"
)

const defaultBaseURL = "https://api.appstoreconnect.apple.com/v1"

// editableVersionStates lists the App Store Version states an edit
// workflow is allowed to touch.
var editableVersionStates = map[string]bool{
	"PREPARE_FOR_SUBMISSION": true,
	"DEVELOPER_REJECTED":     true,
	"REJECTED":               true,
}

// Config holds the credentials and tuning knobs for a Client.
type Config struct {
	KeyID      string
	IssuerID   string
	TeamID     string // optional, recorded for callers; not sent on every request
	PrivateKey *ecdsa.PrivateKey
	BaseURL    string // defaults to the production App Store Connect API
}

// Client talks to App Store Connect on behalf of one API key.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limit   *httpx.RateLimiter
	token   *store.TokenCache
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http:    httpx.NewStoreClient(30 * time.Second),
		limit:   httpx.NewRateLimiter(5, 10),
		token:   store.NewTokenCache(5 * time.Minute),
	}
}

// bearerToken returns a cached or freshly signed JWT, valid for 20 minutes
// and cached with a 5-minute safety margin.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	return c.token.Get(ctx, func(ctx context.Context) (string, time.Duration, error) {
		now := time.Now()
		claims := map[string]any{
			"iss": c.cfg.IssuerID,
			"iat": now.Unix(),
			"exp": now.Add(20 * time.Minute).Unix(),
			"aud": "appstoreconnect-v1",
		}
		tok, err := store.SignES256(claims, c.cfg.KeyID, c.cfg.PrivateKey)
		if err != nil {
			return "", 0, fmt.Errorf("sign app store connect jwt: %w", err)
		}
		return tok, 20 * time.Minute, nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	return c.Do(ctx, method, path, body, out)
}

// Do issues an authenticated JSON REST request against App Store Connect.
// Exported so the TestFlight client, a subset of the same API surface,
// can reuse this client's JWT auth and retry policy instead of
// duplicating it.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.bearerToken(ctx)
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

// --- App lookup ---

type appListResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			BundleID string `json:"bundleId"`
		} `json:"attributes"`
	} `json:"data"`
}

// LookupAppID resolves a bundle identifier to its App Store Connect app ID.
func (c *Client) LookupAppID(ctx context.Context, bundleID string) (string, error) {
	var resp appListResponse
	if err := c.do(ctx, http.MethodGet, "/apps?filter[bundleId]="+bundleID, nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", cerrors.NotFoundf("no App Store Connect app found for bundle id %s", bundleID)
	}
	return resp.Data[0].ID, nil
}

// --- App Store Versions ---

type appStoreVersion struct {
	ID         string `json:"id"`
	Attributes struct {
		VersionString string `json:"versionString"`
		AppStoreState string `json:"appStoreState"`
	} `json:"attributes"`
}

type versionListResponse struct {
	Data []appStoreVersion `json:"data"`
}

// EditableVersion returns the first App Store Version in an editable
// state (PREPARE_FOR_SUBMISSION, DEVELOPER_REJECTED, REJECTED).
func (c *Client) EditableVersion(ctx context.Context, appID string) (*appStoreVersion, error) {
	var resp versionListResponse
	if err := c.do(ctx, http.MethodGet, "/apps/"+appID+"/appStoreVersions", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Data {
		if editableVersionStates[resp.Data[i].Attributes.AppStoreState] {
			return &resp.Data[i], nil
		}
	}
	return nil, cerrors.NotFoundf("no editable App Store Version found for app %s", appID)
}

// --- Version localizations ---

type versionLocalizationAttrs struct {
	Locale           string `json:"locale"`
	Description      string `json:"description,omitempty"`
	Keywords         string `json:"keywords,omitempty"`
	WhatsNew         string `json:"whatsNew,omitempty"`
	PromotionalText  string `json:"promotionalText,omitempty"`
	SupportURL       string `json:"supportUrl,omitempty"`
	MarketingURL     string `json:"marketingUrl,omitempty"`
}

type versionLocalization struct {
	ID         string                   `json:"id"`
	Attributes versionLocalizationAttrs `json:"attributes"`
}

type versionLocalizationListResponse struct {
	Data []versionLocalization `json:"data"`
}

func (c *Client) versionLocalizations(ctx context.Context, versionID string) ([]versionLocalization, error) {
	var resp versionLocalizationListResponse
	if err := c.do(ctx, http.MethodGet, "/appStoreVersions/"+versionID+"/appStoreVersionLocalizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// --- App info localizations ---

type appInfoLocalizationAttrs struct {
	Locale   string `json:"locale"`
	Name     string `json:"name,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}

type appInfoLocalization struct {
	ID         string                   `json:"id"`
	Attributes appInfoLocalizationAttrs `json:"attributes"`
}

type appInfoResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type appInfoLocalizationListResponse struct {
	Data []appInfoLocalization `json:"data"`
}

func (c *Client) appInfoID(ctx context.Context, appID string) (string, error) {
	var resp appInfoResponse
	if err := c.do(ctx, http.MethodGet, "/apps/"+appID+"/appInfos", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", cerrors.NotFoundf("no app info found for app %s", appID)
	}
	return resp.Data[0].ID, nil
}

func (c *Client) appInfoLocalizations(ctx context.Context, appInfoID string) ([]appInfoLocalization, error) {
	var resp appInfoLocalizationListResponse
	if err := c.do(ctx, http.MethodGet, "/appInfos/"+appInfoID+"/appInfoLocalizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// --- Pull ---

// Pull fetches the editable App Store Version plus both localization
// families and merges them into an AppleMetadata record.
func (c *Client) Pull(ctx context.Context, bundleID string) (*metadata.AppleMetadata, error) {
	appID, err := c.LookupAppID(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	version, err := c.EditableVersion(ctx, appID)
	if err != nil {
		return nil, err
	}

	versionLocs, err := c.versionLocalizations(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	infoID, err := c.appInfoID(ctx, appID)
	if err != nil {
		return nil, err
	}
	infoLocs, err := c.appInfoLocalizations(ctx, infoID)
	if err != nil {
		return nil, err
	}

	m := &metadata.AppleMetadata{BundleID: bundleID}

	for _, vl := range versionLocs {
		tag, err := locale.Parse(vl.Attributes.Locale)
		if err != nil {
			continue
		}
		rec, _ := m.GetLocalization(tag)
		rec.Description = vl.Attributes.Description
		rec.Keywords = vl.Attributes.Keywords
		rec.WhatsNew = vl.Attributes.WhatsNew
		rec.PromotionalText = vl.Attributes.PromotionalText
		rec.SupportURL = vl.Attributes.SupportURL
		rec.MarketingURL = vl.Attributes.MarketingURL
		m.SetLocalization(tag, rec)
	}

	for _, il := range infoLocs {
		tag, err := locale.Parse(il.Attributes.Locale)
		if err != nil {
			continue
		}
		rec, _ := m.GetLocalization(tag)
		rec.Name = il.Attributes.Name
		rec.Subtitle = il.Attributes.Subtitle
		m.SetLocalization(tag, rec)
	}

	return m, nil
}

// --- Push ---

// PushResult reports what Push did (or, in dry-run mode, would do).
type PushResult struct {
	Diff      []MetadataDiff
	DryRun    bool
}

// Push writes local metadata to App Store Connect: for each local locale,
// PATCHes the existing version localization or POSTs to create it, and
// PATCHes the app-info localization when name/subtitle differ. In dry-run
// mode it performs no writes and only returns the accumulated diff.
func (c *Client) Push(ctx context.Context, local *metadata.AppleMetadata, dryRun bool) (*PushResult, error) {
	appID, err := c.LookupAppID(ctx, local.BundleID)
	if err != nil {
		return nil, err
	}
	version, err := c.EditableVersion(ctx, appID)
	if err != nil {
		return nil, err
	}
	remote, err := c.Pull(ctx, local.BundleID)
	if err != nil {
		return nil, err
	}

	diff := DiffAppleMetadata(local, remote)
	result := &PushResult{Diff: diff, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	versionLocs, err := c.versionLocalizations(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	versionLocByTag := make(map[string]versionLocalization, len(versionLocs))
	for _, vl := range versionLocs {
		versionLocByTag[vl.Attributes.Locale] = vl
	}

	infoID, err := c.appInfoID(ctx, appID)
	if err != nil {
		return nil, err
	}
	infoLocs, err := c.appInfoLocalizations(ctx, infoID)
	if err != nil {
		return nil, err
	}
	infoLocByTag := make(map[string]appInfoLocalization, len(infoLocs))
	for _, il := range infoLocs {
		infoLocByTag[il.Attributes.Locale] = il
	}

	for tag, rec := range local.Localizations {
		attrs := versionLocalizationAttrs{
			Locale:          tag.String(),
			Description:     rec.Description,
			Keywords:        rec.Keywords,
			WhatsNew:        rec.WhatsNew,
			PromotionalText: rec.PromotionalText,
			SupportURL:      rec.SupportURL,
			MarketingURL:    rec.MarketingURL,
		}
		if existing, ok := versionLocByTag[tag.String()]; ok {
			if err := c.patchVersionLocalization(ctx, existing.ID, attrs); err != nil {
				return nil, err
			}
		} else {
			if err := c.createVersionLocalization(ctx, version.ID, attrs); err != nil {
				return nil, err
			}
		}

		existingInfo, hasInfo := infoLocByTag[tag.String()]
		if hasInfo && (existingInfo.Attributes.Name != rec.Name || existingInfo.Attributes.Subtitle != rec.Subtitle) {
			if err := c.patchAppInfoLocalization(ctx, existingInfo.ID, appInfoLocalizationAttrs{
				Locale:   tag.String(),
				Name:     rec.Name,
				Subtitle: rec.Subtitle,
			}); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

type resourceEnvelope struct {
	Data resourcePayload `json:"data"`
}

type resourcePayload struct {
	Type          string         `json:"type"`
	ID            string         `json:"id,omitempty"`
	Attributes    any            `json:"attributes"`
	Relationships map[string]any `json:"relationships,omitempty"`
}

func (c *Client) patchVersionLocalization(ctx context.Context, id string, attrs versionLocalizationAttrs) error {
	body := resourceEnvelope{Data: resourcePayload{Type: "appStoreVersionLocalizations", ID: id, Attributes: attrs}}
	return c.do(ctx, http.MethodPatch, "/appStoreVersionLocalizations/"+id, body, nil)
}

func (c *Client) createVersionLocalization(ctx context.Context, versionID string, attrs versionLocalizationAttrs) error {
	body := resourceEnvelope{Data: resourcePayload{
		Type:       "appStoreVersionLocalizations",
		Attributes: attrs,
		Relationships: map[string]any{
			"appStoreVersion": map[string]any{"data": map[string]string{"type": "appStoreVersions", "id": versionID}},
		},
	}}
	return c.do(ctx, http.MethodPost, "/appStoreVersionLocalizations", body, nil)
}

func (c *Client) patchAppInfoLocalization(ctx context.Context, id string, attrs appInfoLocalizationAttrs) error {
	body := resourceEnvelope{Data: resourcePayload{Type: "appInfoLocalizations", ID: id, Attributes: attrs}}
	return c.do(ctx, http.MethodPatch, "/appInfoLocalizations/"+id, body, nil)
}

// --- Diff ---

// ChangeType classifies one field's difference between local and remote
// metadata.
type ChangeType string

const (
	Added    ChangeType = "Added"
	Modified ChangeType = "Modified"
	Removed  ChangeType = "Removed"
)

// MetadataDiff is one field-level difference between local and remote
// metadata for a locale.
type MetadataDiff struct {
	Locale      string
	Field       string
	LocalValue  string
	RemoteValue string
	ChangeType  ChangeType
}

// DiffAppleMetadata performs a per-locale, field-by-field, trim-normalized
// comparison between local and remote metadata. Locales present locally
// but not remotely are reported as Added; remotely but not locally, as
// Removed.
func DiffAppleMetadata(local, remote *metadata.AppleMetadata) []MetadataDiff {
	var diffs []MetadataDiff

	for tag, localRec := range local.Localizations {
		remoteRec, ok := remote.GetLocalization(tag)
		if !ok {
			diffs = append(diffs, diffAllFields(tag.String(), localRec, metadata.AppleLocalizedMetadata{}, Added)...)
			continue
		}
		diffs = append(diffs, diffFields(tag.String(), localRec, remoteRec)...)
	}

	for tag, remoteRec := range remote.Localizations {
		if _, ok := local.GetLocalization(tag); !ok {
			diffs = append(diffs, diffAllFields(tag.String(), metadata.AppleLocalizedMetadata{}, remoteRec, Removed)...)
		}
	}

	return diffs
}

func diffFields(tag string, local, remote metadata.AppleLocalizedMetadata) []MetadataDiff {
	var diffs []MetadataDiff
	fields := []struct {
		name          string
		local, remote string
	}{
		{"name", local.Name, remote.Name},
		{"subtitle", local.Subtitle, remote.Subtitle},
		{"description", local.Description, remote.Description},
		{"keywords", local.Keywords, remote.Keywords},
		{"whats_new", local.WhatsNew, remote.WhatsNew},
		{"promotional_text", local.PromotionalText, remote.PromotionalText},
		{"support_url", local.SupportURL, remote.SupportURL},
		{"marketing_url", local.MarketingURL, remote.MarketingURL},
	}
	for _, f := range fields {
		lv, rv := strings.TrimSpace(f.local), strings.TrimSpace(f.remote)
		if lv != rv {
			diffs = append(diffs, MetadataDiff{Locale: tag, Field: f.name, LocalValue: lv, RemoteValue: rv, ChangeType: Modified})
		}
	}
	return diffs
}

func diffAllFields(tag string, local, remote metadata.AppleLocalizedMetadata, changeType ChangeType) []MetadataDiff {
	fields := []struct {
		name          string
		local, remote string
	}{
		{"name", local.Name, remote.Name},
		{"subtitle", local.Subtitle, remote.Subtitle},
		{"description", local.Description, remote.Description},
		{"keywords", local.Keywords, remote.Keywords},
		{"whats_new", local.WhatsNew, remote.WhatsNew},
		{"promotional_text", local.PromotionalText, remote.PromotionalText},
		{"support_url", local.SupportURL, remote.SupportURL},
		{"marketing_url", local.MarketingURL, remote.MarketingURL},
	}
	var diffs []MetadataDiff
	for _, f := range fields {
		value := f.local
		if changeType == Removed {
			value = f.remote
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		diffs = append(diffs, MetadataDiff{Locale: tag, Field: f.name, LocalValue: strings.TrimSpace(f.local), RemoteValue: strings.TrimSpace(f.remote), ChangeType: changeType})
	}
	return diffs
}
