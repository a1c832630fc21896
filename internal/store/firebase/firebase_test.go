package firebase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/store"
)

func testClient(t *testing.T, tokenSrv, apiSrv *httptest.Server) *Client {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewClient(Config{
		ProjectNumber: "123456",
		AppID:         "1:123456:android:abcd",
		ClientEmail:   "svc@example.iam.gserviceaccount.com",
		PrivateKey:    key,
		TokenURI:      tokenSrv.URL,
		BaseURL:       apiSrv.URL,
		UploadURL:     apiSrv.URL,
	})
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
}

func TestUploadBinaryParsesOperationResponse(t *testing.T) {
	tokenSrv := tokenServer(t)
	defer tokenSrv.Close()

	var gotContentType string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"done":true,"response":{"name":"projects/123456/apps/1:123456:android:abcd/releases/rel1"}}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)

	f, err := os.CreateTemp(t.TempDir(), "app-*.apk")
	if err != nil {
		t.Fatalf("create temp artifact: %v", err)
	}
	if _, err := f.Write([]byte("binary content")); err != nil {
		t.Fatalf("write temp artifact: %v", err)
	}
	f.Close()

	name, err := client.UploadBinary(context.Background(), f.Name())
	if err != nil {
		t.Fatalf("UploadBinary: %v", err)
	}
	if !strings.HasSuffix(name, "/releases/rel1") {
		t.Fatalf("unexpected release name: %q", name)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Fatalf("Content-Type = %q, want multipart/form-data", gotContentType)
	}
}

func TestDistributeSendsTestersAndGroups(t *testing.T) {
	tokenSrv := tokenServer(t)
	defer tokenSrv.Close()

	var gotBody string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	err := client.Distribute(context.Background(), "projects/123456/apps/app1/releases/rel1",
		[]string{"tester@example.com"}, []string{"qa-team"})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if !strings.Contains(gotBody, "tester@example.com") || !strings.Contains(gotBody, "qa-team") {
		t.Fatalf("unexpected distribute body: %s", gotBody)
	}
}

func TestCreateGroupUsesGroupIDQueryParam(t *testing.T) {
	tokenSrv := tokenServer(t)
	defer tokenSrv.Close()

	var gotQuery string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	if err := client.CreateGroup(context.Background(), "qa-team", "QA Team"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if gotQuery != "groupId=qa-team" {
		t.Fatalf("query = %q, want groupId=qa-team", gotQuery)
	}
}

func TestUploadDryRunSkipsNetworkCalls(t *testing.T) {
	tokenSrv := tokenServer(t)
	defer tokenSrv.Close()

	called := false
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	result, err := client.Upload(context.Background(), "unused.apk", store.UploadOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.Status != "dry-run" {
		t.Fatalf("status = %q, want dry-run", result.Status)
	}
	if called {
		t.Fatal("dry run should not contact the API")
	}
}
