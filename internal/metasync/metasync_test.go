package metasync

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lucasilverentand/canaveral/internal/fastlane"
	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
	"github.com/lucasilverentand/canaveral/internal/store/apple"
	"github.com/lucasilverentand/canaveral/internal/store/googleplay"
)

func appleTestClient(t *testing.T, handler http.HandlerFunc) *apple.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return apple.NewClient(apple.Config{KeyID: "KEY1", IssuerID: "issuer", PrivateKey: key, BaseURL: srv.URL})
}

func appleFixtureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/apps") && strings.Contains(r.URL.RawQuery, "bundleId"):
			w.Write([]byte(`{"data":[{"id":"app1","attributes":{"bundleId":"com.example.app"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/appStoreVersions"):
			w.Write([]byte(`{"data":[{"id":"ver1","attributes":{"versionString":"1.0","appStoreState":"PREPARE_FOR_SUBMISSION"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/appStoreVersionLocalizations"):
			w.Write([]byte(`{"data":[{"id":"loc1","attributes":{"locale":"en-US","description":"Remote description","whatsNew":"Remote notes"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/appInfos"):
			w.Write([]byte(`{"data":[{"id":"info1"}]}`))
		case strings.HasSuffix(r.URL.Path, "/appInfoLocalizations"):
			w.Write([]byte(`{"data":[{"id":"infoloc1","attributes":{"locale":"en-US","name":"Remote Name"}}]}`))
		default:
			w.Write([]byte(`{}`))
		}
	}
}

func TestPullAppleWritesToFastlaneStorage(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())
	client := appleTestClient(t, appleFixtureHandler())
	engine := NewEngine(storage, client, nil)

	if err := engine.PullApple(context.Background(), "com.example.app", nil); err != nil {
		t.Fatalf("PullApple: %v", err)
	}

	local, err := storage.LoadApple("com.example.app")
	if err != nil {
		t.Fatalf("LoadApple: %v", err)
	}
	rec, ok := local.GetLocalization(locale.MustParse("en-US"))
	if !ok || rec.Name != "Remote Name" || rec.Description != "Remote description" {
		t.Fatalf("unexpected localization: %+v", rec)
	}
}

func TestPullAppleFiltersToRequestedLocales(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())
	client := appleTestClient(t, appleFixtureHandler())
	engine := NewEngine(storage, client, nil)

	if err := engine.PullApple(context.Background(), "com.example.app", []locale.Tag{locale.MustParse("fr-FR")}); err != nil {
		t.Fatalf("PullApple: %v", err)
	}

	local, err := storage.LoadApple("com.example.app")
	if err != nil {
		t.Fatalf("LoadApple: %v", err)
	}
	if _, ok := local.GetLocalization(locale.MustParse("en-US")); ok {
		t.Fatal("en-US should have been filtered out")
	}
}

func TestDiffAppleReportsModifiedFields(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())
	client := appleTestClient(t, appleFixtureHandler())
	engine := NewEngine(storage, client, nil)

	local := &metadata.AppleMetadata{BundleID: "com.example.app"}
	local.SetLocalization(locale.MustParse("en-US"), metadata.AppleLocalizedMetadata{
		Name:        "Local Name",
		Description: "Remote description",
	})
	if err := storage.SaveApple(local); err != nil {
		t.Fatalf("SaveApple: %v", err)
	}

	diffs, err := engine.DiffApple(context.Background(), "com.example.app")
	if err != nil {
		t.Fatalf("DiffApple: %v", err)
	}
	var sawNameChange bool
	for _, d := range diffs {
		if d.Field == "name" && d.ChangeType == apple.Modified {
			sawNameChange = true
		}
		if d.Field == "description" {
			t.Fatalf("description matches remote and should not appear in diff: %+v", d)
		}
	}
	if !sawNameChange {
		t.Fatalf("expected a Modified diff for name, got %+v", diffs)
	}
}

func TestDiffAppleMatchesExpectedDiffSet(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())
	client := appleTestClient(t, appleFixtureHandler())
	engine := NewEngine(storage, client, nil)

	local := &metadata.AppleMetadata{BundleID: "com.example.app"}
	local.SetLocalization(locale.MustParse("en-US"), metadata.AppleLocalizedMetadata{
		Name:        "Local Name",
		Description: "Remote description",
		WhatsNew:    "Local notes",
	})
	if err := storage.SaveApple(local); err != nil {
		t.Fatalf("SaveApple: %v", err)
	}

	diffs, err := engine.DiffApple(context.Background(), "com.example.app")
	if err != nil {
		t.Fatalf("DiffApple: %v", err)
	}

	want := []apple.MetadataDiff{
		{Locale: "en-US", Field: "name", LocalValue: "Local Name", RemoteValue: "Remote Name", ChangeType: apple.Modified},
		{Locale: "en-US", Field: "whats_new", LocalValue: "Local notes", RemoteValue: "Remote notes", ChangeType: apple.Modified},
	}
	sortDiffs := cmpopts.SortSlices(func(a, b apple.MetadataDiff) bool { return a.Field < b.Field })
	if diff := cmp.Diff(want, diffs, sortDiffs); diff != "" {
		t.Fatalf("unexpected diff set (-want +got):\n%s", diff)
	}
}

func googlePlayTestClient(t *testing.T, tokenSrv, apiSrv *httptest.Server) *googleplay.Client {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return googleplay.NewClient(googleplay.Config{
		ClientEmail: "svc@example.iam.gserviceaccount.com",
		PrivateKey:  key,
		TokenURI:    tokenSrv.URL,
		BaseURL:     apiSrv.URL,
	})
}

func TestPushGooglePlayDryRunSkipsCommit(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var committed bool
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/edits"):
			w.Write([]byte(`{"id":"edit1"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/listings"):
			w.Write([]byte(`{"listings":[{"language":"en-US","title":"Remote Title","fullDescription":"Full","shortDescription":"Short"}]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":commit"):
			committed = true
			w.Write([]byte(`{}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer apiSrv.Close()

	client := googlePlayTestClient(t, tokenSrv, apiSrv)
	engine := NewEngine(storage, nil, client)

	local := &metadata.GooglePlayMetadata{PackageName: "com.example.app"}
	local.SetLocalization(locale.MustParse("en-US"), metadata.GooglePlayLocalizedMetadata{
		Title: "Local Title", FullDescription: "Full", ShortDescription: "Short",
	})
	if err := storage.SaveGooglePlay(local); err != nil {
		t.Fatalf("SaveGooglePlay: %v", err)
	}

	diffs, err := engine.PushGooglePlay(context.Background(), "com.example.app", nil, true)
	if err != nil {
		t.Fatalf("PushGooglePlay: %v", err)
	}
	if committed {
		t.Fatal("dry run must not commit an edit")
	}
	var sawTitleChange bool
	for _, d := range diffs {
		if d.Field == "title" {
			sawTitleChange = true
		}
	}
	if !sawTitleChange {
		t.Fatalf("expected a title diff, got %+v", diffs)
	}
}

func TestPushGooglePlayCommitsWhenNotDryRun(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var committed bool
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/edits"):
			w.Write([]byte(`{"id":"edit1"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/listings"):
			w.Write([]byte(`{"listings":[]}`))
		case r.Method == http.MethodPut:
			w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":commit"):
			committed = true
			w.Write([]byte(`{}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer apiSrv.Close()

	client := googlePlayTestClient(t, tokenSrv, apiSrv)
	engine := NewEngine(storage, nil, client)

	local := &metadata.GooglePlayMetadata{PackageName: "com.example.app"}
	local.SetLocalization(locale.MustParse("en-US"), metadata.GooglePlayLocalizedMetadata{
		Title: "Local Title", FullDescription: "Full", ShortDescription: "Short",
	})
	if err := storage.SaveGooglePlay(local); err != nil {
		t.Fatalf("SaveGooglePlay: %v", err)
	}

	if _, err := engine.PushGooglePlay(context.Background(), "com.example.app", nil, false); err != nil {
		t.Fatalf("PushGooglePlay: %v", err)
	}
	if !committed {
		t.Fatal("expected the edit to be committed")
	}
}

func TestPushAppleWithoutConfiguredClientFails(t *testing.T) {
	storage := fastlane.NewStorage(t.TempDir())
	engine := NewEngine(storage, nil, nil)
	if _, err := engine.PushApple(context.Background(), "com.example.app", nil, true); err == nil {
		t.Fatal("expected an error when no Apple client is configured")
	}
}
