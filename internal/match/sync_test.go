package match

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/envelope"
)

func newTestEngine(t *testing.T) (*Engine, *envelope.Keypair) {
	t.Helper()
	cacheHome := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	t.Setenv("HOME", home)

	b, err := newLocalBackendForTest(t)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	keypair, err := envelope.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	engine := New(Config{TeamID: "acme", Backend: b}, [][32]byte{keypair.PublicKey})
	return engine, keypair
}

func newLocalBackendForTest(t *testing.T) (Backend, error) {
	t.Helper()
	return NewBackend("local", map[string]string{"root": t.TempDir()})
}

func TestMatchCertificateRoundTrip(t *testing.T) {
	engine, keypair := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Init(ctx, keypair); err != nil {
		t.Fatalf("Init: %v", err)
	}

	certBytes := []byte("fake p12 bytes")
	meta := CertificateMeta{Type: CertDistribution, Fingerprint: "abc123"}
	if err := engine.UploadCertificate(ctx, keypair.PrivateKey, certBytes, meta); err != nil {
		t.Fatalf("UploadCertificate: %v", err)
	}

	manifest, err := engine.Sync(ctx, keypair.PrivateKey, nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(manifest.Certs[CertDistribution]) != 1 {
		t.Fatalf("expected 1 distribution cert in manifest, got %+v", manifest.Certs)
	}

	certsDir, _, err := CacheDirs("acme")
	if err != nil {
		t.Fatalf("CacheDirs: %v", err)
	}
	expectedPath := filepath.Join(certsDir, "distribution_abc123.p12")
	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("read cached cert: %v", err)
	}
	if string(data) != string(certBytes) {
		t.Fatalf("cached cert contents mismatch: got %q want %q", data, certBytes)
	}
}

func TestMatchInitDistinctFromEmptyNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.loadManifest(ctx, [32]byte{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected 'not initialized' error before Init, got %v", err)
	}
}

func TestMatchReadOnlyForbidsUpload(t *testing.T) {
	cacheHome := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	t.Setenv("HOME", home)

	b, err := newLocalBackendForTest(t)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	keypair, _ := envelope.GenerateKeypair()
	engine := New(Config{TeamID: "acme", Backend: b, ReadOnly: true}, [][32]byte{keypair.PublicKey})

	err = engine.UploadCertificate(context.Background(), keypair.PrivateKey, []byte("x"), CertificateMeta{Type: CertDevelopment, Fingerprint: "f"})
	if err == nil {
		t.Fatal("expected readonly config to forbid upload")
	}
}
