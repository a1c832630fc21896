package microsoft

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testClient(t *testing.T, tokenSrv, apiSrv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(Config{TenantID: "tenant1", ClientID: "client1", ClientSecret: "secret", BaseURL: apiSrv.URL})
	c.tokenURL = tokenSrv.URL
	return c
}

func TestCreateSubmissionParsesResponse(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"sub1","fileUploadUrl":"https://blob.example/upload","status":"CommitStarted"}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	sub, err := client.CreateSubmission(context.Background(), "app1", "")
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if sub.ID != "sub1" || sub.FileUploadURL == "" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestUploadPackageSetsBlobHeader(t *testing.T) {
	var gotHeader string
	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-ms-blob-type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer blobSrv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	pkgPath := filepath.Join(t.TempDir(), "app.msix")
	if err := os.WriteFile(pkgPath, []byte("package bytes"), 0o644); err != nil {
		t.Fatalf("write package: %v", err)
	}

	client := testClient(t, tokenSrv, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	sub := &Submission{ID: "sub1", FileUploadURL: blobSrv.URL}
	if err := client.UploadPackage(context.Background(), sub, pkgPath); err != nil {
		t.Fatalf("UploadPackage: %v", err)
	}
	if gotHeader != "BlockBlob" {
		t.Fatalf("x-ms-blob-type = %q, want BlockBlob", gotHeader)
	}
}

func TestGetSubmissionStatusMapsKnownStates(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"Published"}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	state, err := client.GetSubmissionStatus(context.Background(), "app1", "sub1")
	if err != nil {
		t.Fatalf("GetSubmissionStatus: %v", err)
	}
	if state != StateLive {
		t.Fatalf("state = %q, want Live", state)
	}
}

func TestListTracksAppendsProduction(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"flightId":"f1","friendlyName":"beta"}]}`))
	}))
	defer apiSrv.Close()

	client := testClient(t, tokenSrv, apiSrv)
	tracks, err := client.ListTracks(context.Background(), "app1")
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 2 || tracks[0].Name != "beta" || tracks[1].Name != "production" {
		t.Fatalf("unexpected tracks: %+v", tracks)
	}
}
