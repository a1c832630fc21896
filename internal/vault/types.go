package vault

import "time"

// Role is a team member's position in the vault's access model.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleSigner Role = "Signer"
	RoleViewer Role = "Viewer"
)

// Permission gates one mutating vault operation.
type Permission string

const (
	PermissionAddMembers       Permission = "AddMembers"
	PermissionRemoveMembers    Permission = "RemoveMembers"
	PermissionChangeRoles      Permission = "ChangeRoles"
	PermissionImportIdentities Permission = "ImportIdentities"
	PermissionExportIdentities Permission = "ExportIdentities"
	PermissionDeleteIdentities Permission = "DeleteIdentities"
)

// rolePermissions is the fixed role-to-permission mapping. Admins hold
// every permission; Signers may only export identities (to sign
// artifacts); Viewers hold none and can only list/read non-secret state.
var rolePermissions = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermissionAddMembers:       true,
		PermissionRemoveMembers:    true,
		PermissionChangeRoles:      true,
		PermissionImportIdentities: true,
		PermissionExportIdentities: true,
		PermissionDeleteIdentities: true,
	},
	RoleSigner: {
		PermissionExportIdentities: true,
	},
	RoleViewer: {},
}

// HasPermission reports whether r grants permission p.
func (r Role) HasPermission(p Permission) bool {
	return rolePermissions[r][p]
}

// IdentityKind names the category of signing credential a StoredIdentity
// holds.
type IdentityKind string

const (
	IdentityAppleDev        IdentityKind = "AppleDev"
	IdentityAppleDist       IdentityKind = "AppleDist"
	IdentityAppleInstaller  IdentityKind = "AppleInstaller"
	IdentityWinAuthenticode IdentityKind = "WinAuthenticode"
	IdentityWinEV           IdentityKind = "WinEV"
	IdentityAndroidKeystore IdentityKind = "AndroidKeystore"
	IdentityGPG             IdentityKind = "GPG"
	IdentityGeneric         IdentityKind = "Generic"
)

// Member is one team member with access to the vault.
type Member struct {
	ID        string    `yaml:"id"`
	Email     string    `yaml:"email"`
	PublicKey string    `yaml:"public_key"` // base64-encoded X25519 public key
	Role      Role      `yaml:"role"`
	Active    bool      `yaml:"active"`
	AddedAt   time.Time `yaml:"added_at"`
}

// StoredIdentity is a signing credential encrypted to the set of members
// whose role is in AllowedRoles. Ciphertext is an envelope-format string
// (see internal/envelope); no key material appears anywhere else on this
// struct.
type StoredIdentity struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Kind         IdentityKind `yaml:"kind"`
	AllowedRoles []Role       `yaml:"allowed_roles"`
	Ciphertext   string       `yaml:"ciphertext"`
	CreatedAt    time.Time    `yaml:"created_at"`
	ExpiresAt    *time.Time   `yaml:"expires_at,omitempty"`
	Tags         []string     `yaml:"tags,omitempty"`
}

// allowsRole reports whether role appears in AllowedRoles.
func (s StoredIdentity) allowsRole(role Role) bool {
	for _, r := range s.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// VaultConfig is the persisted vault.yaml: team identity and creation info.
type VaultConfig struct {
	Team struct {
		Name      string    `yaml:"name"`
		CreatedBy string    `yaml:"created_by,omitempty"`
		CreatedAt time.Time `yaml:"created_at"`
	} `yaml:"team"`
}

// VaultMetadata is the local-only, gitignored .metadata.yaml sidecar. It
// never carries anything another host's vault needs, so it is never
// synced alongside the other four files.
type VaultMetadata struct {
	LastOpenedBy string    `yaml:"last_opened_by,omitempty"`
	LastOpenedAt time.Time `yaml:"last_opened_at,omitempty"`
}
