package apple

import (
	"archive/zip"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/metadata"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewClient(Config{
		KeyID:      "KEY123",
		IssuerID:   "issuer-abc",
		PrivateKey: key,
		BaseURL:    srv.URL,
	})
}

func TestLookupAppIDParsesResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("expected bearer token header")
		}
		w.Write([]byte(`{"data":[{"id":"app123","attributes":{"bundleId":"com.example.app"}}]}`))
	})

	id, err := client.LookupAppID(context.Background(), "com.example.app")
	if err != nil {
		t.Fatalf("LookupAppID: %v", err)
	}
	if id != "app123" {
		t.Fatalf("got %q, want app123", id)
	}
}

func TestLookupAppIDNotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.LookupAppID(context.Background(), "com.example.missing")
	if err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestPushDryRunPerformsNoWrites(t *testing.T) {
	writes := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/apps" || r.URL.Path == "/apps?filter[bundleId]=com.example.app":
		}
		switch r.Method {
		case http.MethodPatch, http.MethodPost:
			writes++
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/apps":
			w.Write([]byte(`{"data":[{"id":"app1","attributes":{"bundleId":"com.example.app"}}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/apps/app1/appStoreVersions":
			w.Write([]byte(`{"data":[{"id":"ver1","attributes":{"versionString":"1.0","appStoreState":"PREPARE_FOR_SUBMISSION"}}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/appStoreVersions/ver1/appStoreVersionLocalizations":
			w.Write([]byte(`{"data":[{"id":"loc1","attributes":{"locale":"en-US","description":"old desc"}}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/apps/app1/appInfos":
			w.Write([]byte(`{"data":[{"id":"info1"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/appInfos/info1/appInfoLocalizations":
			w.Write([]byte(`{"data":[{"id":"infoloc1","attributes":{"locale":"en-US","name":"Old Name"}}]}`))
		default:
			w.Write([]byte(`{}`))
		}
	})

	local := &metadata.AppleMetadata{BundleID: "com.example.app"}
	local.SetLocalization("en-US", metadata.AppleLocalizedMetadata{Name: "New Name", Description: "new desc"})

	result, err := client.Push(context.Background(), local, true)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected DryRun result")
	}
	if writes != 0 {
		t.Fatalf("expected no write requests in dry-run, got %d", writes)
	}
	if len(result.Diff) == 0 {
		t.Fatal("expected a non-empty diff")
	}
}

func TestDiffAppleMetadataClassifiesChanges(t *testing.T) {
	local := &metadata.AppleMetadata{}
	local.SetLocalization("en-US", metadata.AppleLocalizedMetadata{Name: "A", Description: "same"})
	local.SetLocalization("de-DE", metadata.AppleLocalizedMetadata{Name: "Nur Lokal"})

	remote := &metadata.AppleMetadata{}
	remote.SetLocalization("en-US", metadata.AppleLocalizedMetadata{Name: "B", Description: "same"})
	remote.SetLocalization("fr-FR", metadata.AppleLocalizedMetadata{Name: "Seulement Distant"})

	diffs := DiffAppleMetadata(local, remote)

	var sawModified, sawAdded, sawRemoved bool
	for _, d := range diffs {
		switch {
		case d.Locale == "en-US" && d.Field == "name" && d.ChangeType == Modified:
			sawModified = true
		case d.Locale == "de-DE" && d.ChangeType == Added:
			sawAdded = true
		case d.Locale == "fr-FR" && d.ChangeType == Removed:
			sawRemoved = true
		}
	}
	if !sawModified {
		t.Error("expected a Modified diff for en-US name")
	}
	if !sawAdded {
		t.Error("expected an Added diff for de-DE")
	}
	if !sawRemoved {
		t.Error("expected a Removed diff for fr-FR")
	}
}

func writeTestIPA(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.ipa")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if _, err := zw.Create("Payload/Example.app/"); err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestValidateArtifactAcceptsWellFormedIPA(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	path := writeTestIPA(t)

	if err := client.ValidateArtifact(context.Background(), path); err != nil {
		t.Fatalf("ValidateArtifact: %v", err)
	}
}

func TestValidateArtifactRejectsMissingPayload(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	path := filepath.Join(t.TempDir(), "empty.ipa")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	zw := zip.NewWriter(f)
	zw.Close()
	f.Close()

	if err := client.ValidateArtifact(context.Background(), path); err == nil {
		t.Fatal("expected validation error for ipa without Payload/*.app")
	}
}
