package testflight

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/store/apple"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	asc := apple.NewClient(apple.Config{KeyID: "K1", IssuerID: "I1", PrivateKey: key, BaseURL: srv.URL})
	return NewClient(asc)
}

func TestListBuildsParsesResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"b1","attributes":{"version":"1","processingState":"VALID"}}]}`))
	})

	builds, err := client.ListBuilds(context.Background(), "app1")
	if err != nil {
		t.Fatalf("ListBuilds: %v", err)
	}
	if len(builds) != 1 || builds[0].ProcessingState != Valid {
		t.Fatalf("unexpected builds: %+v", builds)
	}
}

func TestCreateGroupSetsAudience(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"g1","attributes":{"name":"Beta Testers","isInternalGroup":false}}}`))
	})

	group, err := client.CreateGroup(context.Background(), "app1", "Beta Testers", External)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if group.ID != "g1" || group.Name != "Beta Testers" || group.Audience != External {
		t.Fatalf("unexpected group: %+v", group)
	}
}

func TestSetWhatsNewCreatesWhenAbsent(t *testing.T) {
	var createdBody string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"data":[]}`))
		case r.Method == http.MethodPost:
			createdBody = r.URL.Path
			w.Write([]byte(`{}`))
		}
	})

	if err := client.SetWhatsNew(context.Background(), "build1", "en-US", "Bug fixes"); err != nil {
		t.Fatalf("SetWhatsNew: %v", err)
	}
	if createdBody != "/betaBuildLocalizations" {
		t.Fatalf("expected POST to /betaBuildLocalizations, got %q", createdBody)
	}
}
