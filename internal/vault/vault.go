// Package vault implements the team signing vault: member/role management,
// envelope-encrypted identity storage with re-keying on membership change,
// and an append-only audit trail, persisted as a small set of YAML files.
package vault

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lucasilverentand/canaveral/internal/audit"
	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/envelope"
)

const (
	configFileName     = "vault.yaml"
	membersFileName    = "members.yaml"
	identitiesFileName = "identities.yaml"
	auditFileName      = "audit.yaml"
	metadataFileName   = ".metadata.yaml"
)

// signingKeyEnv is read by Open to identify the current member.
const signingKeyEnv = "CANAVERAL_SIGNING_KEY"

// defaultAllowedRoles is used by ImportIdentity when the caller doesn't
// specify allowed_roles: Admins always retain access, Signers can export
// to sign, Viewers cannot.
var defaultAllowedRoles = []Role{RoleAdmin, RoleSigner}

// TeamVault is the in-memory, loaded state of a team signing vault rooted
// at a directory on disk.
type TeamVault struct {
	path       string
	config     VaultConfig
	members    map[string]Member // keyed by Member.ID
	identities map[string]StoredIdentity
	auditLog   *audit.Log
	metadata   VaultMetadata

	currentPrivateKey *[32]byte
	currentMember     *Member
}

// Init creates a new vault at path, generating a keypair for the creator
// and registering them as the first Admin. Fails with AlreadyExists if a
// vault.yaml is already present at path.
func Init(teamName, path, creatorEmail string) (*TeamVault, *envelope.Keypair, error) {
	configPath := filepath.Join(path, configFileName)
	if _, err := os.Stat(configPath); err == nil {
		return nil, nil, cerrors.AlreadyExistsf("vault already exists at %s", path)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault directory: %w", err)
	}

	keypair, err := envelope.GenerateKeypair()
	if err != nil {
		return nil, nil, err
	}

	var config VaultConfig
	config.Team.Name = teamName
	config.Team.CreatedBy = creatorEmail
	config.Team.CreatedAt = time.Now().UTC()

	admin := Member{
		ID:        uuid.NewString(),
		Email:     creatorEmail,
		PublicKey: encodeKey(keypair.PublicKey),
		Role:      RoleAdmin,
		Active:    true,
		AddedAt:   config.Team.CreatedAt,
	}

	auditLog := audit.New()
	auditLog.Append(creatorEmail, audit.ActionVaultInit, nil)

	v := &TeamVault{
		path:              path,
		config:            config,
		members:           map[string]Member{admin.ID: admin},
		identities:        map[string]StoredIdentity{},
		auditLog:          auditLog,
		metadata:          VaultMetadata{},
		currentPrivateKey: &keypair.PrivateKey,
		currentMember:     &admin,
	}

	if err := v.save(); err != nil {
		return nil, nil, err
	}

	return v, keypair, nil
}

// Open loads an existing vault from path. The current member, if any, is
// identified by deriving a public key from CANAVERAL_SIGNING_KEY and
// matching it against members; its absence is not an error, but every
// permission-checked operation will subsequently fail with Unauthenticated.
func Open(path string) (*TeamVault, error) {
	configPath := filepath.Join(path, configFileName)
	configData, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, cerrors.NotFoundf("no vault found at %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read vault config: %w", err)
	}

	var config VaultConfig
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("parse vault config: %w", err)
	}

	members, err := loadMembers(filepath.Join(path, membersFileName))
	if err != nil {
		return nil, err
	}

	identities, err := loadIdentities(filepath.Join(path, identitiesFileName))
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.Load(filepath.Join(path, auditFileName))
	if err != nil {
		return nil, err
	}

	metadata, err := loadMetadata(filepath.Join(path, metadataFileName))
	if err != nil {
		return nil, err
	}

	v := &TeamVault{
		path:       path,
		config:     config,
		members:    members,
		identities: identities,
		auditLog:   auditLog,
		metadata:   metadata,
	}

	if raw := os.Getenv(signingKeyEnv); raw != "" {
		priv, err := decodeKey(raw)
		if err == nil {
			pub, err := envelope.DerivePublicKey(priv)
			if err == nil {
				pubEncoded := encodeKey(pub)
				for _, m := range members {
					if m.PublicKey == pubEncoded && m.Active {
						m := m
						v.currentPrivateKey = &priv
						v.currentMember = &m
						break
					}
				}
			}
		}
	}

	return v, nil
}

// Path returns the vault's root directory.
func (v *TeamVault) Path() string { return v.path }

// TeamName returns the vault's team name.
func (v *TeamVault) TeamName() string { return v.config.Team.Name }

// CurrentMember returns the member identified from CANAVERAL_SIGNING_KEY,
// or nil if no key was set or it matched no active member.
func (v *TeamVault) CurrentMember() *Member { return v.currentMember }

// AuditLog returns the vault's audit log.
func (v *TeamVault) AuditLog() *audit.Log { return v.auditLog }

// ListMembers returns every member, in no particular order.
func (v *TeamVault) ListMembers() []Member {
	out := make([]Member, 0, len(v.members))
	for _, m := range v.members {
		out = append(out, m)
	}
	return out
}

// GetMember returns the member with the given email, if any.
func (v *TeamVault) GetMember(email string) (Member, bool) {
	for _, m := range v.members {
		if m.Email == email {
			return m, true
		}
	}
	return Member{}, false
}

// ListIdentities returns every identity's metadata (never credential
// bytes, since those remain encrypted in Ciphertext).
func (v *TeamVault) ListIdentities() []StoredIdentity {
	out := make([]StoredIdentity, 0, len(v.identities))
	for _, id := range v.identities {
		out = append(out, id)
	}
	return out
}

// GetIdentity returns the identity with the given id, if any.
func (v *TeamVault) GetIdentity(id string) (StoredIdentity, bool) {
	si, ok := v.identities[id]
	return si, ok
}

func (v *TeamVault) checkPermission(p Permission) error {
	if v.currentMember == nil {
		return cerrors.New(cerrors.Unauthenticated, "no current user: set CANAVERAL_SIGNING_KEY or run 'canaveral signing team auth'")
	}
	if !v.currentMember.Role.HasPermission(p) {
		return cerrors.PermissionDeniedf("role %q does not have permission %q", v.currentMember.Role, p).
			WithContext("role", string(v.currentMember.Role)).
			WithContext("permission", string(p))
	}
	return nil
}

func (v *TeamVault) currentActor() string {
	if v.currentMember == nil {
		return "unknown"
	}
	return v.currentMember.Email
}

func (v *TeamVault) activeAdminCount() int {
	n := 0
	for _, m := range v.members {
		if m.Active && m.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// recipientsFor returns the public keys of active members whose role is
// in allowedRoles.
func (v *TeamVault) recipientsFor(allowedRoles []Role) [][32]byte {
	var out [][32]byte
	for _, m := range v.members {
		if !m.Active {
			continue
		}
		for _, r := range allowedRoles {
			if m.Role == r {
				if key, err := decodeKey(m.PublicKey); err == nil {
					out = append(out, key)
				}
				break
			}
		}
	}
	return out
}

// AddMember registers a new member, re-encrypting every identity the new
// member's role now grants access to.
func (v *TeamVault) AddMember(email, publicKeyBase64 string, role Role) (*Member, error) {
	if err := v.checkPermission(PermissionAddMembers); err != nil {
		return nil, err
	}
	if _, exists := v.GetMember(email); exists {
		return nil, cerrors.AlreadyExistsf("member %q already exists", email)
	}
	if _, err := decodeKey(publicKeyBase64); err != nil {
		return nil, cerrors.InvalidArgumentf("invalid public key: %v", err)
	}

	member := Member{
		ID:        uuid.NewString(),
		Email:     email,
		PublicKey: publicKeyBase64,
		Role:      role,
		Active:    true,
		AddedAt:   time.Now().UTC(),
	}

	if err := v.reencryptForNewMember(member); err != nil {
		return nil, err
	}

	v.members[member.ID] = member

	v.auditLog.Append(v.currentActor(), audit.ActionMemberAdd, map[string]string{
		"email": email,
		"role":  string(role),
	})

	if err := v.save(); err != nil {
		return nil, err
	}

	saved := v.members[member.ID]
	return &saved, nil
}

// RemoveMember deactivates and removes a member, refusing if doing so
// would leave zero active Admins, and re-encrypts every remaining
// identity to the reduced recipient set.
func (v *TeamVault) RemoveMember(email string) error {
	if err := v.checkPermission(PermissionRemoveMembers); err != nil {
		return err
	}

	member, exists := v.GetMember(email)
	if !exists {
		return cerrors.NotFoundf("member %q not found", email)
	}

	if member.Role == RoleAdmin && v.activeAdminCount() <= 1 {
		return cerrors.PermissionDeniedf("cannot remove the last active admin")
	}

	delete(v.members, member.ID)

	if err := v.reencryptAll(); err != nil {
		return err
	}

	v.auditLog.Append(v.currentActor(), audit.ActionMemberRemove, map[string]string{
		"email": email,
	})

	return v.save()
}

// ChangeRole updates a member's role. Refused if it would demote the last
// active Admin. Does not eagerly re-encrypt identities: access control for
// export is enforced at export time against the member's current role.
func (v *TeamVault) ChangeRole(email string, newRole Role) error {
	if err := v.checkPermission(PermissionChangeRoles); err != nil {
		return err
	}

	member, exists := v.GetMember(email)
	if !exists {
		return cerrors.NotFoundf("member %q not found", email)
	}

	if member.Role == RoleAdmin && newRole != RoleAdmin && v.activeAdminCount() <= 1 {
		return cerrors.PermissionDeniedf("cannot demote the last active admin")
	}

	oldRole := member.Role
	member.Role = newRole
	v.members[member.ID] = member

	v.auditLog.Append(v.currentActor(), audit.ActionMemberRoleChange, map[string]string{
		"email":    email,
		"old_role": string(oldRole),
		"new_role": string(newRole),
	})

	return v.save()
}

// ImportOptions carries the optional attributes of a newly imported
// identity. The zero value means default allowed roles, no expiry, and
// no tags.
type ImportOptions struct {
	AllowedRoles []Role
	ExpiresAt    *time.Time
	Tags         []string
}

// ImportIdentity encrypts credential to every active member whose role is
// in opts.AllowedRoles (defaulting to {Admin, Signer}) and stores it
// under id.
func (v *TeamVault) ImportIdentity(id, name string, kind IdentityKind, credential []byte, opts ImportOptions) (*StoredIdentity, error) {
	if err := v.checkPermission(PermissionImportIdentities); err != nil {
		return nil, err
	}
	if _, exists := v.identities[id]; exists {
		return nil, cerrors.AlreadyExistsf("identity %q already exists", id)
	}

	allowedRoles := opts.AllowedRoles
	if len(allowedRoles) == 0 {
		allowedRoles = defaultAllowedRoles
	}

	recipients := v.recipientsFor(allowedRoles)
	if len(recipients) == 0 {
		return nil, cerrors.InvalidArgumentf("no active members hold a role in %v to receive this identity", allowedRoles)
	}

	ciphertext, err := envelope.Encrypt(credential, recipients)
	if err != nil {
		return nil, err
	}

	identity := StoredIdentity{
		ID:           id,
		Name:         name,
		Kind:         kind,
		AllowedRoles: allowedRoles,
		Ciphertext:   ciphertext,
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    opts.ExpiresAt,
		Tags:         opts.Tags,
	}
	v.identities[id] = identity

	v.auditLog.Append(v.currentActor(), audit.ActionIdentityImport, map[string]string{
		"identity_id": id,
		"kind":        string(kind),
	})

	if err := v.save(); err != nil {
		return nil, err
	}

	saved := v.identities[id]
	return &saved, nil
}

// ExportIdentity decrypts and returns the credential bytes for id. The
// caller must hold ExportIdentities and their role must be in the
// identity's AllowedRoles.
func (v *TeamVault) ExportIdentity(id string) ([]byte, error) {
	if err := v.checkPermission(PermissionExportIdentities); err != nil {
		return nil, err
	}

	identity, exists := v.identities[id]
	if !exists {
		return nil, cerrors.NotFoundf("identity %q not found", id)
	}

	if !identity.allowsRole(v.currentMember.Role) {
		return nil, cerrors.PermissionDeniedf("role %q cannot access identity %q", v.currentMember.Role, id).
			WithContext("role", string(v.currentMember.Role)).
			WithContext("identity_id", id)
	}

	if v.currentPrivateKey == nil {
		return nil, cerrors.New(cerrors.Unauthenticated, "no current user")
	}

	credential, err := envelope.Decrypt(identity.Ciphertext, *v.currentPrivateKey)
	if err != nil {
		return nil, err
	}

	v.auditLog.Append(v.currentActor(), audit.ActionIdentityExport, map[string]string{
		"identity_id": id,
	})

	if err := v.save(); err != nil {
		return nil, err
	}

	return credential, nil
}

// DeleteIdentity permanently removes an identity's stored ciphertext.
func (v *TeamVault) DeleteIdentity(id string) error {
	if err := v.checkPermission(PermissionDeleteIdentities); err != nil {
		return err
	}
	if _, exists := v.identities[id]; !exists {
		return cerrors.NotFoundf("identity %q not found", id)
	}

	delete(v.identities, id)

	v.auditLog.Append(v.currentActor(), audit.ActionIdentityDelete, map[string]string{
		"identity_id": id,
	})

	return v.save()
}

// RecordSigning appends an audit entry noting that identity id signed
// artifact. It never reads or touches the identity's credential.
func (v *TeamVault) RecordSigning(id, artifact string) error {
	v.auditLog.Append(v.currentActor(), audit.ActionIdentitySign, map[string]string{
		"identity_id": id,
		"artifact":    artifact,
	})
	return v.save()
}

// reencryptForNewMember re-encrypts every identity the new member's role
// now grants access to, adding the new member to the recipient set
// without dropping any existing recipient.
func (v *TeamVault) reencryptForNewMember(newMember Member) error {
	if v.currentPrivateKey == nil {
		return cerrors.New(cerrors.Unauthenticated, "no current user")
	}

	newKey, err := decodeKey(newMember.PublicKey)
	if err != nil {
		return err
	}

	for id, identity := range v.identities {
		if !identity.allowsRole(newMember.Role) {
			continue
		}

		plaintext, err := envelope.Decrypt(identity.Ciphertext, *v.currentPrivateKey)
		if err != nil {
			// Caller can't decrypt this identity; leave it as-is rather than
			// losing data. The next admin who can decrypt it will pick up
			// the re-encryption on their next membership change.
			continue
		}

		recipients := v.recipientsFor(identity.AllowedRoles)
		recipients = append(recipients, newKey)

		ciphertext, err := envelope.Encrypt(plaintext, recipients)
		if err != nil {
			return err
		}
		identity.Ciphertext = ciphertext
		v.identities[id] = identity
	}

	return nil
}

// reencryptAll re-encrypts every identity to its current recipient set
// (e.g. after a member removal). Identities the caller cannot decrypt, or
// whose recipient set is now empty, are left untouched.
func (v *TeamVault) reencryptAll() error {
	if v.currentPrivateKey == nil {
		return cerrors.New(cerrors.Unauthenticated, "no current user")
	}

	for id, identity := range v.identities {
		recipients := v.recipientsFor(identity.AllowedRoles)
		if len(recipients) == 0 {
			continue
		}

		plaintext, err := envelope.Decrypt(identity.Ciphertext, *v.currentPrivateKey)
		if err != nil {
			continue
		}

		ciphertext, err := envelope.Encrypt(plaintext, recipients)
		if err != nil {
			return err
		}
		identity.Ciphertext = ciphertext
		v.identities[id] = identity
	}

	return nil
}

func encodeKey(key [32]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

func decodeKey(encoded string) ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return key, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
