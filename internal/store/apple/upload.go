package apple

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/store"
)

// ValidateArtifact checks that path is a well-formed .ipa: a zip archive
// containing a top-level Payload/<name>.app directory, satisfying
// store.Client's shared contract.
func (c *Client) ValidateArtifact(ctx context.Context, path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return cerrors.Wrap(cerrors.ValidationFailed, err, "open ipa")
	}
	defer r.Close()

	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "Payload/") && strings.HasSuffix(strings.TrimSuffix(f.Name, "/"), ".app") {
			return nil
		}
	}
	return cerrors.ValidationFailedError([]cerrors.ValidationIssue{
		{Field: "artifact", Message: "ipa does not contain a Payload/*.app directory"},
	})
}

// Upload satisfies store.Client but performs no binary upload: App Store
// Connect's binary intake happens over the Transporter protocol, not a
// plain REST PUT. A dry run returns the "dry-run" status; otherwise Upload
// returns an InvalidArgument error and does not look up the ingested build
// (GetBuildStatus polls it).
func (c *Client) Upload(ctx context.Context, path string, opts store.UploadOptions) (store.UploadResult, error) {
	if opts.DryRun {
		return store.UploadResult{Status: "dry-run"}, nil
	}
	return store.UploadResult{}, cerrors.New(cerrors.InvalidArgument, "apple binary upload happens out-of-band via Transporter; use GetBuildStatus to poll ingestion")
}

type buildAttrs struct {
	Version          string `json:"version"`
	ProcessingState  string `json:"processingState"`
}

type buildResource struct {
	ID         string     `json:"id"`
	Attributes buildAttrs `json:"attributes"`
}

type buildResponse struct {
	Data buildResource `json:"data"`
}

// GetBuildStatus fetches a build's processing state, normalized to
// store.BuildStatus. Apple's processingState values are
// {PROCESSING, VALID, INVALID, FAILED}.
func (c *Client) GetBuildStatus(ctx context.Context, id string) (store.BuildStatus, error) {
	var resp buildResponse
	if err := c.do(ctx, http.MethodGet, "/builds/"+id, nil, &resp); err != nil {
		return store.BuildStatus{}, err
	}
	return store.BuildStatus{
		ID:      resp.Data.ID,
		State:   resp.Data.Attributes.ProcessingState,
		Message: fmt.Sprintf("build %s version %s", resp.Data.ID, resp.Data.Attributes.Version),
	}, nil
}
