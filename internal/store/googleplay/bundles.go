package googleplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/lucasilverentand/canaveral/internal/store"
)

// bundleUploadHost is the separate host the Developer API uses for binary
// media (edits/listings/tracks metadata stays on the JSON API host).
const bundleUploadHost = "https://androidpublisher.googleapis.com/upload/androidpublisher/v3"

type bundleUploadResponse struct {
	VersionCode int    `json:"versionCode"`
	Sha256      string `json:"sha256"`
}

// uploadBundle uploads an Android App Bundle (.aab) to an in-progress edit
// and returns the resulting version code.
func (c *Client) uploadBundle(ctx context.Context, edit *Edit, data []byte) (int, error) {
	if err := c.limit.Wait(ctx); err != nil {
		return 0, err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/applications/%s/edits/%s/bundles?uploadType=media", bundleUploadHost, edit.PackageName, edit.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+token)
	req.ContentLength = int64(len(data))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload bundle: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("bundle upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed bundleUploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode bundle upload response: %w", err)
	}
	return parsed.VersionCode, nil
}

// UploadRelease uploads an Android App Bundle to packageName, assigns the
// resulting version code to track with the given staged-rollout fraction
// (0 or 1 for a full release) and per-locale release notes, and commits
// the edit. It satisfies the same "upload means validated-and-live"
// contract as store.Client.Upload but, like UpdateRollout/PromoteBuild
// in googleplay.go, needs a packageName the narrower interface doesn't carry.
func (c *Client) UploadRelease(ctx context.Context, packageName, track string, data []byte, rolloutFraction float64, releaseNotes map[string]string) (store.UploadResult, error) {
	var versionCode int
	err := c.withEdit(ctx, packageName, true, func(edit *Edit) error {
		vc, err := c.uploadBundle(ctx, edit, data)
		if err != nil {
			return err
		}
		versionCode = vc

		notes := make([]releaseNote, 0, len(releaseNotes))
		for lang, text := range releaseNotes {
			notes = append(notes, releaseNote{Language: lang, Text: text})
		}
		release := trackRelease{
			Status:       "completed",
			VersionCodes: []string{strconv.Itoa(vc)},
			ReleaseNotes: notes,
		}
		if rolloutFraction > 0 && rolloutFraction < 1 {
			release.Status = "inProgress"
			release.UserFraction = rolloutFraction
		}
		attrs := trackAttrs{Track: track, Releases: []trackRelease{release}}
		return c.do(ctx, http.MethodPut, "/applications/"+packageName+"/edits/"+edit.ID+"/tracks/"+track, attrs, nil)
	})
	if err != nil {
		return store.UploadResult{}, err
	}
	return store.UploadResult{BuildID: strconv.Itoa(versionCode), Status: "uploaded"}, nil
}
