package match

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/envelope"
)

const manifestBlobName = "manifest.enc"
const publicKeyBlobName = "encryption_key.pub"

// Config configures an Engine instance.
type Config struct {
	TeamID   string
	Backend  Backend
	ReadOnly bool
}

// CertificateMeta describes a certificate being uploaded.
type CertificateMeta struct {
	Type        CertificateType
	Fingerprint string
	ExpiresAt   *time.Time
}

// ProfileMeta describes a provisioning profile being uploaded.
type ProfileMeta struct {
	AppID     string
	Type      ProfileType
	UUID      string
	ExpiresAt *time.Time
}

// Engine is the match sync engine: it materializes an encrypted
// manifest plus per-artifact envelopes through a Backend, and writes
// decrypted copies into local cache directories for signing tools to
// consume.
type Engine struct {
	cfg        Config
	recipients [][32]byte
}

// New creates an Engine against cfg, with recipients being every team
// member currently entitled to read match blobs.
func New(cfg Config, recipients [][32]byte) *Engine {
	return &Engine{cfg: cfg, recipients: recipients}
}

// Init creates an empty manifest at the backend, writing the encrypted
// manifest blob. A non-nil keypair is added to the recipients the
// manifest is sealed to, and its public key is written as the plaintext
// public-key discovery file.
func (e *Engine) Init(ctx context.Context, keypair *envelope.Keypair) error {
	if e.cfg.ReadOnly {
		return cerrors.PermissionDeniedf("match backend is read-only")
	}

	manifest := NewManifest(e.cfg.TeamID)
	recipients := e.recipients
	if keypair != nil {
		recipients = append(append([][32]byte{}, recipients...), keypair.PublicKey)
	}

	ciphertext, err := manifest.encrypt(recipients)
	if err != nil {
		return fmt.Errorf("encrypt initial manifest: %w", err)
	}
	if err := e.cfg.Backend.Write(ctx, manifestBlobName, []byte(ciphertext)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if keypair != nil {
		if err := e.cfg.Backend.Write(ctx, publicKeyBlobName, []byte(encodePublicKey(keypair.PublicKey))); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}
	}
	return nil
}

// loadManifest pulls the current ciphertext and decrypts it with
// privateKey. A missing manifest blob is reported distinctly from an
// empty one: missing means the store was never initialized.
func (e *Engine) loadManifest(ctx context.Context, privateKey [32]byte) (*Manifest, error) {
	raw, err := e.cfg.Backend.Read(ctx, manifestBlobName)
	if err != nil {
		if cerrors.Is(err, cerrors.NotFound) {
			return nil, cerrors.NotFoundf("match is not initialized: no manifest found")
		}
		return nil, err
	}

	plaintext, err := envelope.Decrypt(string(raw), privateKey)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.DecryptFailed, err, "decrypt manifest")
	}

	manifest, err := unmarshalManifest(plaintext)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, nil
}

// CacheDirs locates the cache directories Sync materializes artifacts
// into: certs under ~/.cache/canaveral/match/<team>/certs/, profiles in
// the OS-specific provisioning-profile directory.
func CacheDirs(teamID string) (certsDir, profilesDir string, err error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve cache dir: %w", err)
	}
	certsDir = filepath.Join(cacheDir, "canaveral", "match", teamID, "certs")

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve home dir: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		profilesDir = filepath.Join(home, "Library", "MobileDevice", "Provisioning Profiles")
	case "windows":
		profilesDir = filepath.Join(home, "AppData", "Local", "Apple", "MobileDevice", "Provisioning Profiles")
	default:
		profilesDir = filepath.Join(cacheDir, "canaveral", "match", teamID, "profiles")
	}
	return certsDir, profilesDir, nil
}

// Sync pulls the remote, decrypts the manifest, and materializes a
// decrypted copy of each cert and requested app's profiles into the
// local cache directories. appIDs filters which apps' profiles are
// materialized; a nil/empty slice materializes every app in the manifest.
func (e *Engine) Sync(ctx context.Context, privateKey [32]byte, appIDs []string) (*Manifest, error) {
	if err := e.cfg.Backend.Sync(ctx); err != nil {
		return nil, fmt.Errorf("sync backend: %w", err)
	}

	manifest, err := e.loadManifest(ctx, privateKey)
	if err != nil {
		return nil, err
	}

	certsDir, profilesDir, err := CacheDirs(e.cfg.TeamID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(certsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create certs cache dir: %w", err)
	}
	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}

	for certType, certs := range manifest.Certs {
		for _, cert := range certs {
			if err := e.materializeBlob(ctx, privateKey, cert.Path, filepath.Join(certsDir, fmt.Sprintf("%s_%s.p12", strings.ToLower(string(certType)), cert.Fingerprint))); err != nil {
				return nil, err
			}
		}
	}

	wantApp := func(appID string) bool {
		if len(appIDs) == 0 {
			return true
		}
		for _, want := range appIDs {
			if want == appID {
				return true
			}
		}
		return false
	}

	for appID, byType := range manifest.Profiles {
		if !wantApp(appID) {
			continue
		}
		for _, profiles := range byType {
			for _, profile := range profiles {
				dest := filepath.Join(profilesDir, profile.UUID+".mobileprovision")
				if err := e.materializeBlob(ctx, privateKey, profile.Path, dest); err != nil {
					return nil, err
				}
			}
		}
	}

	return manifest, nil
}

func (e *Engine) materializeBlob(ctx context.Context, privateKey [32]byte, blobPath, destPath string) error {
	raw, err := e.cfg.Backend.Read(ctx, blobPath)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", blobPath, err)
	}
	plaintext, err := envelope.Decrypt(string(raw), privateKey)
	if err != nil {
		return cerrors.Wrap(cerrors.DecryptFailed, err, fmt.Sprintf("decrypt blob %s", blobPath))
	}
	if err := os.WriteFile(destPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("write cached artifact %s: %w", destPath, err)
	}
	return nil
}

// UploadCertificate encrypts data to the current recipient set, writes
// the ciphertext blob, and re-serializes/re-encrypts the manifest to
// reference it. Forbidden when the engine is configured ReadOnly.
func (e *Engine) UploadCertificate(ctx context.Context, privateKey [32]byte, data []byte, meta CertificateMeta) error {
	if e.cfg.ReadOnly {
		return cerrors.PermissionDeniedf("match backend is read-only")
	}

	manifest, err := e.loadManifest(ctx, privateKey)
	if err != nil {
		return err
	}

	blobPath := fmt.Sprintf("certs/%s_%s.p12.enc", strings.ToLower(string(meta.Type)), meta.Fingerprint)
	ciphertext, err := envelope.Encrypt(data, e.recipients)
	if err != nil {
		return fmt.Errorf("encrypt certificate: %w", err)
	}
	if err := e.cfg.Backend.Write(ctx, blobPath, []byte(ciphertext)); err != nil {
		return fmt.Errorf("write certificate blob: %w", err)
	}

	manifest.addCertificate(StoredCertificate{
		Type:        meta.Type,
		Fingerprint: meta.Fingerprint,
		Path:        blobPath,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   meta.ExpiresAt,
	})
	return e.saveManifest(ctx, manifest)
}

// UploadProfile encrypts data to the current recipient set, writes the
// ciphertext blob, and re-serializes/re-encrypts the manifest.
func (e *Engine) UploadProfile(ctx context.Context, privateKey [32]byte, data []byte, meta ProfileMeta) error {
	if e.cfg.ReadOnly {
		return cerrors.PermissionDeniedf("match backend is read-only")
	}

	manifest, err := e.loadManifest(ctx, privateKey)
	if err != nil {
		return err
	}

	blobPath := fmt.Sprintf("profiles/%s/%s_%s.mobileprovision.enc", meta.AppID, strings.ToLower(string(meta.Type)), meta.UUID)
	ciphertext, err := envelope.Encrypt(data, e.recipients)
	if err != nil {
		return fmt.Errorf("encrypt profile: %w", err)
	}
	if err := e.cfg.Backend.Write(ctx, blobPath, []byte(ciphertext)); err != nil {
		return fmt.Errorf("write profile blob: %w", err)
	}

	manifest.addProfile(meta.AppID, StoredProfile{
		Type:      meta.Type,
		UUID:      meta.UUID,
		Path:      blobPath,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: meta.ExpiresAt,
	})
	return e.saveManifest(ctx, manifest)
}

// Nuke clears manifest entries (all, or scoped to certType/profileType if
// either is non-empty) and persists the trimmed manifest. The underlying
// artifact blobs are left in place; garbage collection is the backend's
// concern
func (e *Engine) Nuke(ctx context.Context, privateKey [32]byte, certType CertificateType, profileType ProfileType) error {
	if e.cfg.ReadOnly {
		return cerrors.PermissionDeniedf("match backend is read-only")
	}

	manifest, err := e.loadManifest(ctx, privateKey)
	if err != nil {
		return err
	}

	if certType == "" && profileType == "" {
		manifest.nukeAll()
	} else {
		manifest.nukeKind(certType, profileType)
	}
	return e.saveManifest(ctx, manifest)
}

func (e *Engine) saveManifest(ctx context.Context, manifest *Manifest) error {
	manifest.LastSync = time.Now().UTC()
	ciphertext, err := manifest.encrypt(e.recipients)
	if err != nil {
		return fmt.Errorf("encrypt manifest: %w", err)
	}
	if err := e.cfg.Backend.Write(ctx, manifestBlobName, []byte(ciphertext)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func encodePublicKey(pub [32]byte) string {
	return fmt.Sprintf("%x", pub)
}
