package googleplay

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/metadata"
)

func testClient(t *testing.T, tokenSrv, apiSrv *httptest.Server) *Client {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewClient(Config{
		ClientEmail: "svc@example.iam.gserviceaccount.com",
		PrivateKey:  key,
		TokenURI:    tokenSrv.URL,
		BaseURL:     apiSrv.URL,
	})
}

func TestPullDiscardsTransientEdit(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var discarded bool
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/edits"):
			w.Write([]byte(`{"id":"edit1"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/listings"):
			w.Write([]byte(`{"listings":[{"language":"en-US","title":"App","fullDescription":"Full","shortDescription":"Short"}]}`))
		case r.Method == http.MethodDelete:
			discarded = true
			w.WriteHeader(http.StatusOK)
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	m, err := client.Pull(context.Background(), "com.example.app")
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	rec, ok := m.GetLocalization("en-US")
	if !ok || rec.Title != "App" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
	if !discarded {
		t.Fatal("expected transient edit to be discarded")
	}
}

func TestPushCommitsOnSuccess(t *testing.T) {
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

	client := testClient(t, tokenSrv, apiSrv)
	local := &metadata.GooglePlayMetadata{PackageName: "com.example.app"}
	local.SetLocalization("en-US", metadata.GooglePlayLocalizedMetadata{Title: "App", FullDescription: "Full", ShortDescription: "Short"})

	if err := client.Push(context.Background(), local); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !committed {
		t.Fatal("expected edit to be committed")
	}
}

func TestPushDiscardsOnFailureWithoutPropagatingDiscardError(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/edits"):
			w.Write([]byte(`{"id":"edit1"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/listings"):
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`boom`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusBadRequest) // discard itself fails
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	local := &metadata.GooglePlayMetadata{PackageName: "com.example.app"}
	err := client.Push(context.Background(), local)
	if err == nil {
		t.Fatal("expected Push to propagate the listing fetch error")
	}
	if strings.Contains(err.Error(), "discard") {
		t.Fatalf("discard failure should not be folded into the returned error, got %v", err)
	}
}
