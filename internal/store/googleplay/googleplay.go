// Package googleplay implements the Google Play Developer API v3 client:
// service-account JWT auth, the edit-transaction workflow, listings,
// track operations, and image upload.
package googleplay

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/httpx"
	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
	"github.com/lucasilverentand/canaveral/internal/store"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

const (
	defaultBaseURL  = "https://androidpublisher.googleapis.com/androidpublisher/v3"
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	androidPublisherScope = "https://www.googleapis.com/auth/androidpublisher"
)

// UploadType enumerates the Developer API's image slot identifiers.
type UploadType string

const (
	PhoneScreenshots      UploadType = "phoneScreenshots"
	SevenInchScreenshots  UploadType = "sevenInchScreenshots"
	TenInchScreenshots    UploadType = "tenInchScreenshots"
	TVScreenshots         UploadType = "tvScreenshots"
	WearScreenshots       UploadType = "wearScreenshots"
	FeatureGraphic        UploadType = "featureGraphic"
	PromoGraphic          UploadType = "promoGraphic"
	TVBanner              UploadType = "tvBanner"
	Icon                  UploadType = "icon"
)

// Config holds the service-account credentials for a Client.
type Config struct {
	ClientEmail string
	PrivateKey  *rsa.PrivateKey
	TokenURI    string // defaults to Google's production token endpoint
	BaseURL     string // defaults to the production Developer API
}

// Client talks to the Google Play Developer API on behalf of one service
// account.
type Client struct {
	cfg      Config
	baseURL  string
	tokenURI string
	http     *http.Client
	limit    *httpx.RateLimiter
	token    *store.TokenCache
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tokenURI := cfg.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	return &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		tokenURI: tokenURI,
		http:     httpx.NewStoreClient(60 * time.Second),
		limit:    httpx.NewRateLimiter(5, 10),
		token:    store.NewTokenCache(5 * time.Minute),
	}
}

// accessToken exchanges a signed service-account JWT for an OAuth2 token,
// caching it until expiry minus 5 minutes.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	return c.token.Get(ctx, func(ctx context.Context) (string, time.Duration, error) {
		now := time.Now()
		claims := map[string]any{
			"iss":   c.cfg.ClientEmail,
			"scope": androidPublisherScope,
			"aud":   c.tokenURI,
			"iat":   now.Unix(),
			"exp":   now.Add(time.Hour).Unix(),
		}
		assertion, err := store.SignRS256(claims, c.cfg.PrivateKey)
		if err != nil {
			return "", 0, fmt.Errorf("sign google play jwt: %w", err)
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

// --- Edit transaction ---

// Edit is an in-progress change-set against one package.
type Edit struct {
	PackageName string
	ID          string
}

type editResponse struct {
	ID string `json:"id"`
}

// CreateEdit opens a new edit transaction for packageName.
func (c *Client) CreateEdit(ctx context.Context, packageName string) (*Edit, error) {
	var resp editResponse
	if err := c.do(ctx, http.MethodPost, "/applications/"+packageName+"/edits", nil, &resp); err != nil {
		return nil, err
	}
	return &Edit{PackageName: packageName, ID: resp.ID}, nil
}

// Commit applies an edit's accumulated mutations.
func (c *Client) Commit(ctx context.Context, edit *Edit) error {
	return c.do(ctx, http.MethodPost, "/applications/"+edit.PackageName+"/edits/"+edit.ID+":commit", nil, nil)
}

// Discard abandons an edit without applying its mutations.
func (c *Client) Discard(ctx context.Context, edit *Edit) error {
	return c.do(ctx, http.MethodDelete, "/applications/"+edit.PackageName+"/edits/"+edit.ID, nil, nil)
}

// discardOnFailure attempts to discard edit after a failed operation; the
// discard's own failure is logged, never propagated.
func (c *Client) discardOnFailure(ctx context.Context, edit *Edit) {
	if err := c.Discard(ctx, edit); err != nil {
		ui.WarningStatus("discard", fmt.Sprintf("failed to discard edit %s after error: %v", edit.ID, err))
	}
}

// withEdit runs fn inside a fresh edit transaction. If fn fails, the edit
// is discarded (failure logged only) and fn's error is returned; if fn
// succeeds and commit is true, the edit is committed, otherwise discarded
// (used by read-only pull/diff flows, which create a transient edit and
// discard it).
func (c *Client) withEdit(ctx context.Context, packageName string, commit bool, fn func(edit *Edit) error) error {
	edit, err := c.CreateEdit(ctx, packageName)
	if err != nil {
		return err
	}

	if err := fn(edit); err != nil {
		c.discardOnFailure(ctx, edit)
		return err
	}

	if commit {
		return c.Commit(ctx, edit)
	}
	c.discardOnFailure(ctx, edit)
	return nil
}

// --- Listings ---

type listingAttrs struct {
	Language         string `json:"language"`
	Title            string `json:"title,omitempty"`
	FullDescription  string `json:"fullDescription,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	Video            string `json:"video,omitempty"`
}

type listingsResponse struct {
	Listings []listingAttrs `json:"listings"`
}

func (c *Client) listListings(ctx context.Context, edit *Edit) ([]listingAttrs, error) {
	var resp listingsResponse
	if err := c.do(ctx, http.MethodGet, "/applications/"+edit.PackageName+"/edits/"+edit.ID+"/listings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Listings, nil
}

func (c *Client) putListing(ctx context.Context, edit *Edit, attrs listingAttrs) error {
	path := "/applications/" + edit.PackageName + "/edits/" + edit.ID + "/listings/" + attrs.Language
	return c.do(ctx, http.MethodPut, path, attrs, nil)
}

// Pull fetches the current Play Store listing for packageName, using a
// transient edit that is discarded afterward (read flows create-and-
// discard).
func (c *Client) Pull(ctx context.Context, packageName string) (*metadata.GooglePlayMetadata, error) {
	m := &metadata.GooglePlayMetadata{PackageName: packageName}
	err := c.withEdit(ctx, packageName, false, func(edit *Edit) error {
		listings, err := c.listListings(ctx, edit)
		if err != nil {
			return err
		}
		for _, l := range listings {
			tag, err := locale.Parse(l.Language)
			if err != nil {
				continue
			}
			m.SetLocalization(tag, metadata.GooglePlayLocalizedMetadata{
				Title:            l.Title,
				ShortDescription: l.ShortDescription,
				FullDescription:  l.FullDescription,
				VideoURL:         l.Video,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Push writes listings whose required fields (title/short/full) or video
// URL differ from the remote, committing the edit on success.
func (c *Client) Push(ctx context.Context, local *metadata.GooglePlayMetadata) error {
	return c.withEdit(ctx, local.PackageName, true, func(edit *Edit) error {
		remoteListings, err := c.listListings(ctx, edit)
		if err != nil {
			return err
		}
		remoteByLang := make(map[string]listingAttrs, len(remoteListings))
		for _, l := range remoteListings {
			remoteByLang[l.Language] = l
		}

		for tag, rec := range local.Localizations {
			remote, ok := remoteByLang[tag.String()]
			if ok && remote.Title == rec.Title && remote.ShortDescription == rec.ShortDescription &&
				remote.FullDescription == rec.FullDescription && remote.Video == rec.VideoURL {
				continue
			}
			attrs := listingAttrs{
				Language:         tag.String(),
				Title:            rec.Title,
				ShortDescription: rec.ShortDescription,
				FullDescription:  rec.FullDescription,
				Video:            rec.VideoURL,
			}
			if err := c.putListing(ctx, edit, attrs); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Tracks ---

type releaseNote struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

type trackRelease struct {
	Status             string        `json:"status,omitempty"`
	UserFraction        float64       `json:"userFraction,omitempty"`
	VersionCodes        []string      `json:"versionCodes,omitempty"`
	ReleaseNotes        []releaseNote `json:"releaseNotes,omitempty"`
}

type trackAttrs struct {
	Track    string         `json:"track"`
	Releases []trackRelease `json:"releases"`
}

type trackResponse struct {
	trackAttrs
}

// UpdateRollout and PromoteBuild below take an explicit packageName and
// versionCode rather than satisfying store.RolloutUpdater/store.Promoter
// directly: Google Play's edit-transaction model needs both to open the
// right edit and find the release, which the shared interfaces don't
// carry. Callers that need the generic interface wrap these.

// UpdateRollout targets an in-progress staged rollout, setting its
// fraction.
func (c *Client) UpdateRollout(ctx context.Context, packageName, track string, versionCode string, fraction float64) error {
	return c.withEdit(ctx, packageName, true, func(edit *Edit) error {
		var track0 trackResponse
		if err := c.do(ctx, http.MethodGet, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+track, nil, &track0); err != nil {
			return err
		}
		for i := range track0.Releases {
			for _, vc := range track0.Releases[i].VersionCodes {
				if vc == versionCode {
					track0.Releases[i].Status = "inProgress"
					track0.Releases[i].UserFraction = fraction
				}
			}
		}
		return c.do(ctx, http.MethodPut, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+track, track0.trackAttrs, nil)
	})
}

// PromoteBuild moves a release identified by versionCode from one track
// to another.
func (c *Client) PromoteBuild(ctx context.Context, packageName, versionCode, fromTrack, toTrack string) error {
	return c.withEdit(ctx, packageName, true, func(edit *Edit) error {
		var from trackResponse
		if err := c.do(ctx, http.MethodGet, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+fromTrack, nil, &from); err != nil {
			return err
		}

		var remaining []trackRelease
		var moved *trackRelease
		for i := range from.Releases {
			release := from.Releases[i]
			matched := false
			for _, vc := range release.VersionCodes {
				if vc == versionCode {
					matched = true
				}
			}
			if matched {
				moved = &release
				continue
			}
			remaining = append(remaining, release)
		}
		if moved == nil {
			return cerrors.NotFoundf("version code %s not found on track %s", versionCode, fromTrack)
		}

		if err := c.do(ctx, http.MethodPut, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+fromTrack, trackAttrs{Track: fromTrack, Releases: remaining}, nil); err != nil {
			return err
		}

		var to trackResponse
		if err := c.do(ctx, http.MethodGet, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+toTrack, nil, &to); err != nil {
			return err
		}
		moved.Status = "completed"
		to.Releases = append(to.Releases, *moved)
		return c.do(ctx, http.MethodPut, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+toTrack, to.trackAttrs, nil)
	})
}

// --- Store client contract ---

// ValidateArtifact performs no checks and always returns nil. The
// `store validate` command inspects the bundle separately through
// internal/artifact.Detect; the upload path does no further inspection.
func (c *Client) ValidateArtifact(ctx context.Context, path string) error {
	return nil
}

// Upload is not implemented directly: bundle upload requires a package
// name and track the narrower store.Client signature can't carry, so
// callers use UploadRelease directly.
func (c *Client) Upload(ctx context.Context, path string, opts store.UploadOptions) (store.UploadResult, error) {
	if opts.DryRun {
		return store.UploadResult{Status: "dry-run"}, nil
	}
	return store.UploadResult{}, cerrors.New(cerrors.InvalidArgument, "use UploadRelease(packageName, track, ...) directly")
}

// GetBuildStatus is not meaningful for Google Play releases (there is no
// separate processing step once an edit commits); it always reports Valid.
func (c *Client) GetBuildStatus(ctx context.Context, id string) (store.BuildStatus, error) {
	return store.BuildStatus{ID: id, State: "VALID"}, nil
}
