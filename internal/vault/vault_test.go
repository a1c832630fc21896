package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/envelope"
)

func setCurrentKey(t *testing.T, priv [32]byte) {
	t.Helper()
	t.Setenv(signingKeyEnv, encodeKey(priv))
}

func TestInitCreatesAdminAndFiles(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	v, keypair, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if v.TeamName() != "TestTeam" {
		t.Fatalf("TeamName() = %q, want TestTeam", v.TeamName())
	}
	if keypair == nil {
		t.Fatal("keypair is nil")
	}
	for _, name := range []string{configFileName, membersFileName, identitiesFileName, auditFileName, metadataFileName, ".gitignore"} {
		if _, err := os.Stat(filepath.Join(vaultPath, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}

	members := v.ListMembers()
	if len(members) != 1 || members[0].Role != RoleAdmin {
		t.Fatalf("ListMembers() = %+v, want one Admin", members)
	}
}

func TestInitFailsIfVaultExists(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	if _, _, err := Init("TestTeam", vaultPath, "admin@example.com"); err != nil {
		t.Fatalf("first Init: %v", err)
	}

	_, _, err := Init("TestTeam", vaultPath, "admin@example.com")
	if cerrors.KindOf(err) != cerrors.AlreadyExists {
		t.Fatalf("KindOf(err) = %v, want AlreadyExists", cerrors.KindOf(err))
	}
}

func TestOpenIdentifiesCurrentMember(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, keypair, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	setCurrentKey(t, keypair.PrivateKey)

	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v.CurrentMember() == nil {
		t.Fatal("CurrentMember() = nil, want admin")
	}
	if v.CurrentMember().Email != "admin@example.com" {
		t.Fatalf("CurrentMember().Email = %q", v.CurrentMember().Email)
	}
}

func TestOpenWithoutMatchingKeyHasNoCurrentMember(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	if _, _, err := Init("TestTeam", vaultPath, "admin@example.com"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v.CurrentMember() != nil {
		t.Fatal("CurrentMember() != nil, want nil")
	}

	_, err = v.AddMember("dev@example.com", "", RoleSigner)
	if cerrors.KindOf(err) != cerrors.Unauthenticated {
		t.Fatalf("KindOf(err) = %v, want Unauthenticated", cerrors.KindOf(err))
	}
}

// TestMembershipChurnReencryption: import an identity accessible to
// Admin+Signer, confirm a newly added
// Signer can export it, then confirm that after the Signer is removed they
// can no longer even be recognized as a vault member (and so cannot decrypt
// anything re-keyed since their removal).
func TestMembershipChurnReencryption(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	signerKP, err := envelope.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := v.AddMember("signer@example.com", encodeKey(signerKP.PublicKey), RoleSigner); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := v.ImportIdentity("prod-key", "Production Key", IdentityGeneric, []byte("secret"), ImportOptions{AllowedRoles: []Role{RoleAdmin, RoleSigner}}); err != nil {
		t.Fatalf("ImportIdentity: %v", err)
	}

	setCurrentKey(t, signerKP.PrivateKey)
	signerVault, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open as signer: %v", err)
	}
	if signerVault.CurrentMember() == nil {
		t.Fatal("signer not recognized as current member")
	}
	credential, err := signerVault.ExportIdentity("prod-key")
	if err != nil {
		t.Fatalf("ExportIdentity as signer: %v", err)
	}
	if string(credential) != "secret" {
		t.Fatalf("credential = %q, want secret", credential)
	}

	setCurrentKey(t, adminKP.PrivateKey)
	adminVault, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open as admin: %v", err)
	}
	if err := adminVault.RemoveMember("signer@example.com"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	setCurrentKey(t, signerKP.PrivateKey)
	postRemovalVault, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open post-removal: %v", err)
	}
	if postRemovalVault.CurrentMember() != nil {
		t.Fatal("removed signer still recognized as current member")
	}
}

func TestRemoveLastAdminFails(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	err = v.RemoveMember("admin@example.com")
	if cerrors.KindOf(err) != cerrors.PermissionDenied {
		t.Fatalf("KindOf(err) = %v, want PermissionDenied", cerrors.KindOf(err))
	}
}

func TestChangeRoleRefusesDemotingLastAdmin(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	err = v.ChangeRole("admin@example.com", RoleSigner)
	if cerrors.KindOf(err) != cerrors.PermissionDenied {
		t.Fatalf("KindOf(err) = %v, want PermissionDenied", cerrors.KindOf(err))
	}
}

func TestExportRequiresAllowedRole(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	viewerKP, err := envelope.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := v.AddMember("viewer@example.com", encodeKey(viewerKP.PublicKey), RoleViewer); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := v.ImportIdentity("prod-key", "Production Key", IdentityGeneric, []byte("secret"), ImportOptions{}); err != nil {
		t.Fatalf("ImportIdentity: %v", err)
	}

	setCurrentKey(t, viewerKP.PrivateKey)
	viewerVault, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open as viewer: %v", err)
	}

	_, err = viewerVault.ExportIdentity("prod-key")
	if cerrors.KindOf(err) != cerrors.PermissionDenied {
		t.Fatalf("KindOf(err) = %v, want PermissionDenied", cerrors.KindOf(err))
	}
}

func TestDuplicateMemberEmailFails(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = v.AddMember("admin@example.com", encodeKey(adminKP.PrivateKey), RoleSigner)
	if cerrors.KindOf(err) != cerrors.AlreadyExists {
		t.Fatalf("KindOf(err) = %v, want AlreadyExists", cerrors.KindOf(err))
	}
}

func TestDuplicateIdentityIDFails(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := v.ImportIdentity("prod-key", "Production Key", IdentityGeneric, []byte("secret"), ImportOptions{}); err != nil {
		t.Fatalf("ImportIdentity: %v", err)
	}
	_, err = v.ImportIdentity("prod-key", "Another", IdentityGeneric, []byte("secret2"), ImportOptions{})
	if cerrors.KindOf(err) != cerrors.AlreadyExists {
		t.Fatalf("KindOf(err) = %v, want AlreadyExists", cerrors.KindOf(err))
	}
}

func TestImportIdentityCarriesExpiryAndTags(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	expires := time.Now().UTC().Add(365 * 24 * time.Hour)
	imported, err := v.ImportIdentity("release-key", "Release Key", IdentityAndroidKeystore, []byte("secret"), ImportOptions{
		ExpiresAt: &expires,
		Tags:      []string{"android", "release"},
	})
	if err != nil {
		t.Fatalf("ImportIdentity: %v", err)
	}
	if imported.ExpiresAt == nil || !imported.ExpiresAt.Equal(expires) {
		t.Fatalf("ExpiresAt = %v, want %v", imported.ExpiresAt, expires)
	}
	if len(imported.Tags) != 2 || imported.Tags[0] != "android" {
		t.Fatalf("Tags = %v", imported.Tags)
	}
}

func TestRecordSigningAppendsAuditWithoutReadingCredential(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault")

	_, adminKP, err := Init("TestTeam", vaultPath, "admin@example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	setCurrentKey(t, adminKP.PrivateKey)
	v, err := Open(vaultPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := v.RecordSigning("prod-key", "app-v1.0.0.apk"); err != nil {
		t.Fatalf("RecordSigning: %v", err)
	}

	entries := v.AuditLog().ForIdentity("prod-key")
	if len(entries) != 1 {
		t.Fatalf("ForIdentity returned %d entries, want 1", len(entries))
	}
	if entries[0].Fields["artifact"] != "app-v1.0.0.apk" {
		t.Fatalf("entry fields = %+v", entries[0].Fields)
	}
}
