package apple

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/store"
)

// notaryBaseURL is Apple's Notary API, a distinct host/version from the
// App Store Connect API proper but authenticated with the same JWT.
const notaryBaseURL = "https://api.appstoreconnect.apple.com/notary/v2"

// NotarizationStatus is Apple's notary submission status.
type NotarizationStatus string

const (
	NotarizationInProgress NotarizationStatus = "In Progress"
	NotarizationAccepted   NotarizationStatus = "Accepted"
	NotarizationInvalid    NotarizationStatus = "Invalid"
	NotarizationRejected   NotarizationStatus = "Rejected"
)

// Terminal reports whether s is a final notarization outcome.
func (s NotarizationStatus) Terminal() bool {
	return s == NotarizationAccepted || s == NotarizationInvalid || s == NotarizationRejected
}

type notarySubmissionAttributes struct {
	AwsAccessKeyID     string `json:"awsAccessKeyId"`
	AwsSecretAccessKey string `json:"awsSecretAccessKey"`
	AwsSessionToken    string `json:"awsSessionToken"`
	Bucket             string `json:"bucket"`
	Object             string `json:"object"`
}

type notarySubmissionData struct {
	ID         string                     `json:"id"`
	Attributes notarySubmissionAttributes `json:"attributes"`
}

type notarySubmissionResponse struct {
	Data notarySubmissionData `json:"data"`
}

func (c *Client) notaryDo(ctx context.Context, method, path string, body, out any) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}
	return store.DoJSON(ctx, c.http, store.RequestOptions{
		Method:  method,
		URL:     notaryBaseURL + path,
		Body:    body,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Limiter: c.limit,
	}, out)
}

// SubmitForNotarization registers path's SHA-256 digest with Apple's Notary
// API and returns the submission ID. Apple only hands back temporary AWS
// credentials and an S3 bucket/object at this point; actually uploading the
// binary there requires signing requests with AWS SigV4, which needs an AWS
// SDK dependency this module doesn't carry. Operators finish
// the handoff with `xcrun notarytool submit` or the AWS CLI using the
// returned submission ID, then canaveral resumes polling with
// GetNotarizationStatus.
func (c *Client) SubmitForNotarization(ctx context.Context, path string) (string, error) {
	digest, err := sha256Hex(path)
	if err != nil {
		return "", err
	}
	body := map[string]string{
		"sha256":         digest,
		"submissionName": filepath.Base(path),
	}
	var resp notarySubmissionResponse
	if err := c.notaryDo(ctx, http.MethodPost, "/submissions", body, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

type notaryStatusAttributes struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type notaryStatusData struct {
	ID         string                 `json:"id"`
	Attributes notaryStatusAttributes `json:"attributes"`
}

type notaryStatusResponse struct {
	Data notaryStatusData `json:"data"`
}

// GetNotarizationStatus polls a submission's status.
func (c *Client) GetNotarizationStatus(ctx context.Context, submissionID string) (NotarizationStatus, error) {
	var resp notaryStatusResponse
	if err := c.notaryDo(ctx, http.MethodGet, "/submissions/"+submissionID, nil, &resp); err != nil {
		return "", err
	}
	return NotarizationStatus(resp.Data.Attributes.Status), nil
}

// StapleTicket is unsupported: stapling writes an Apple-signed CMS ticket
// into the artifact using Xcode's stapler tool, which this module cannot
// invoke without shelling out to a host Xcode install. Operators run
// `xcrun stapler staple` themselves once GetNotarizationStatus reports
// Accepted.
func StapleTicket(path string) error {
	return cerrors.New(cerrors.InvalidArgument, "ticket stapling requires Xcode's stapler tool (xcrun stapler staple); canaveral does not perform it")
}

func sha256Hex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
