// Package cli handles command-line interface concerns.
package cli

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lucasilverentand/canaveral/internal/audit"
	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/envelope"
	"github.com/lucasilverentand/canaveral/internal/identity"
	"github.com/lucasilverentand/canaveral/internal/ui"
	"github.com/lucasilverentand/canaveral/internal/vault"
)

// defaultVaultPath is used by every "signing team"/"signing identity"
// subcommand when --path is not given.
const defaultVaultPath = ".canaveral/vault"

// sidecarSuffix names the file `signing sign` writes next to a signed
// artifact, carrying the signature and signer certificate so `signing
// verify` can check it without vault access.
const sidecarSuffix = ".casig.json"

// identityKindAliases maps the short --type values the CLI accepts to
// the vault's IdentityKind values.
var identityKindAliases = map[string]vault.IdentityKind{
	"apple-dev":            vault.IdentityAppleDev,
	"apple-dist":           vault.IdentityAppleDist,
	"apple-installer":      vault.IdentityAppleInstaller,
	"windows-authenticode": vault.IdentityWinAuthenticode,
	"windows-ev":           vault.IdentityWinEV,
	"android-keystore":     vault.IdentityAndroidKeystore,
	"gpg":                  vault.IdentityGPG,
	"generic":              vault.IdentityGeneric,
}

// providerKinds groups IdentityKind values under the --provider filter
// values `signing list` accepts.
var providerKinds = map[string][]vault.IdentityKind{
	"macos":   {vault.IdentityAppleDev, vault.IdentityAppleDist, vault.IdentityAppleInstaller},
	"windows": {vault.IdentityWinAuthenticode, vault.IdentityWinEV},
	"android": {vault.IdentityAndroidKeystore},
	"gpg":     {vault.IdentityGPG},
}

// RunSigning dispatches `canaveral signing <subcommand> ...`.
func RunSigning(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "signing: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return runSigningList(g, rest)
	case "sign":
		return runSigningSign(g, rest)
	case "verify":
		return runSigningVerify(g, rest)
	case "info":
		return runSigningInfo(g, rest)
	case "team":
		return runSigningTeam(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "signing: unknown subcommand %q", sub)
	}
}

func runSigningTeam(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "signing team: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "init":
		return runTeamInit(g, rest)
	case "keygen":
		return runTeamKeygen(g, rest)
	case "status":
		return runTeamStatus(g, rest)
	case "member":
		return runTeamMember(g, rest)
	case "identity":
		return runTeamIdentity(g, rest)
	case "audit":
		return runTeamAudit(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "signing team: unknown subcommand %q", sub)
	}
}

func runTeamInit(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing team init", flag.ContinueOnError)
	email := fs.String("email", "", "creator email")
	path := fs.String("path", defaultVaultPath, "vault directory")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "signing team init: a team name is required")
	}
	if *email == "" {
		return Fatalf(g.Format, g.Format == "json", "signing team init: --email is required")
	}
	team := fs.Arg(0)

	v, keypair, err := vault.Init(team, *path, *email)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	pub := base64.StdEncoding.EncodeToString(keypair.PublicKey[:])
	priv := base64.StdEncoding.EncodeToString(keypair.PrivateKey[:])
	result := map[string]any{
		"team":        v.TeamName(),
		"path":        v.Path(),
		"creator":     *email,
		"public_key":  pub,
		"private_key": priv,
	}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.Status("Created", fmt.Sprintf("vault %q at %s", team, v.Path()))
	ui.PrintKeyValue("Public key", pub)
	ui.PrintKeyValue("Private key", priv)
	ui.PrintWarning("Save the private key now; export CANAVERAL_SIGNING_KEY=<private key> before running further commands. It is not stored anywhere.")
	return ExitSuccess
}

func runTeamKeygen(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing team keygen", flag.ContinueOnError)
	output := fs.String("output", "", "write the private key to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	keypair, err := envelope.GenerateKeypair()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	pub := base64.StdEncoding.EncodeToString(keypair.PublicKey[:])
	priv := base64.StdEncoding.EncodeToString(keypair.PrivateKey[:])

	if *output != "" {
		if err := os.WriteFile(*output, []byte(priv+"\n"), 0o600); err != nil {
			return PrintResult(g.Format, nil, fmt.Errorf("write %s: %w", *output, err))
		}
	}
	result := map[string]any{"public_key": pub, "private_key": priv}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.PrintKeyValue("Public key", pub)
	if *output == "" {
		ui.PrintKeyValue("Private key", priv)
	} else {
		ui.Status("Wrote", *output)
	}
	return ExitSuccess
}

func runTeamStatus(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing team status", flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	members := v.ListMembers()
	roleCounts := map[vault.Role]int{}
	for _, m := range members {
		if m.Active {
			roleCounts[m.Role]++
		}
	}
	result := map[string]any{
		"team":             v.TeamName(),
		"path":             v.Path(),
		"member_count":     len(members),
		"admin_count":      roleCounts[vault.RoleAdmin],
		"signer_count":     roleCounts[vault.RoleSigner],
		"viewer_count":     roleCounts[vault.RoleViewer],
		"identity_count":   len(v.ListIdentities()),
		"has_current_user": v.CurrentMember() != nil,
	}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.PrintKeyValue("Team", v.TeamName())
	ui.PrintKeyValue("Members", fmt.Sprintf("%d (%d admin, %d signer, %d viewer)", len(members), roleCounts[vault.RoleAdmin], roleCounts[vault.RoleSigner], roleCounts[vault.RoleViewer]))
	ui.PrintKeyValue("Identities", strconv.Itoa(len(v.ListIdentities())))
	if v.CurrentMember() == nil {
		ui.PrintWarning("CANAVERAL_SIGNING_KEY does not match any member; mutating operations will fail")
	} else {
		ui.PrintKeyValue("Current user", v.CurrentMember().Email)
	}
	return ExitSuccess
}

func runTeamMember(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "signing team member: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("signing team member "+sub, flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	role := fs.String("role", "", "member role (Admin|Signer|Viewer)")
	if err := fs.Parse(rest); err != nil {
		return ExitInvalidArgument
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	switch sub {
	case "list":
		members := v.ListMembers()
		if g.Format == "json" {
			return PrintResult(g.Format, members, nil)
		}
		for _, m := range members {
			status := "active"
			if !m.Active {
				status = "removed"
			}
			ui.Status(string(m.Role), fmt.Sprintf("%s (%s)", m.Email, status))
		}
		return ExitSuccess
	case "add":
		if fs.NArg() < 2 {
			return Fatalf(g.Format, g.Format == "json", "signing team member add: <email> <pubkey> are required")
		}
		if *role == "" {
			return Fatalf(g.Format, g.Format == "json", "signing team member add: --role is required")
		}
		member, err := v.AddMember(fs.Arg(0), fs.Arg(1), vault.Role(*role))
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		if g.Format == "json" {
			return PrintResult(g.Format, member, nil)
		}
		ui.Status("Added", fmt.Sprintf("%s as %s", member.Email, member.Role))
		return ExitSuccess
	case "remove":
		if fs.NArg() < 1 {
			return Fatalf(g.Format, g.Format == "json", "signing team member remove: <email> is required")
		}
		if err := v.RemoveMember(fs.Arg(0)); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		ui.Status("Removed", fs.Arg(0))
		return ExitSuccess
	case "role":
		if fs.NArg() < 2 {
			return Fatalf(g.Format, g.Format == "json", "signing team member role: <email> <role> are required")
		}
		if err := v.ChangeRole(fs.Arg(0), vault.Role(fs.Arg(1))); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		ui.Status("Changed", fmt.Sprintf("%s is now %s", fs.Arg(0), fs.Arg(1)))
		return ExitSuccess
	default:
		return Fatalf(g.Format, g.Format == "json", "signing team member: unknown subcommand %q", sub)
	}
}

func runTeamIdentity(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "signing team identity: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("signing team identity "+sub, flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	typ := fs.String("type", "generic", "identity kind")
	output := fs.String("output", "", "write an exported credential to this file instead of stdout")
	expires := fs.String("expires", "", "validity period for an imported credential (e.g. 2y, 6mo, 90d)")
	tags := NewStringSliceFlag()
	fs.Var(tags, "tag", "label attached to an imported identity (repeatable)")
	if err := fs.Parse(rest); err != nil {
		return ExitInvalidArgument
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	switch sub {
	case "list":
		identities := v.ListIdentities()
		if g.Format == "json" {
			return PrintResult(g.Format, identities, nil)
		}
		for _, id := range identities {
			ui.Status(string(id.Kind), fmt.Sprintf("%s (%s)", id.ID, id.Name))
		}
		return ExitSuccess
	case "import":
		if fs.NArg() < 2 {
			return Fatalf(g.Format, g.Format == "json", "signing team identity import: <id> <file> are required")
		}
		kind, ok := identityKindAliases[strings.ToLower(*typ)]
		if !ok {
			return Fatalf(g.Format, g.Format == "json", "signing team identity import: unknown --type %q", *typ)
		}
		credential, err := os.ReadFile(fs.Arg(1))
		if err != nil {
			return PrintResult(g.Format, nil, fmt.Errorf("read %s: %w", fs.Arg(1), err))
		}
		opts := vault.ImportOptions{Tags: []string(*tags)}
		if *expires != "" {
			d, err := ParseExpiryDuration(*expires)
			if err != nil {
				return Fatalf(g.Format, g.Format == "json", "signing team identity import: invalid --expires %q", *expires)
			}
			expiresAt := time.Now().UTC().Add(d)
			opts.ExpiresAt = &expiresAt
		}
		identityRecord, err := v.ImportIdentity(fs.Arg(0), fs.Arg(0), kind, credential, opts)
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		if g.Format == "json" {
			return PrintResult(g.Format, identityRecord, nil)
		}
		ui.Status("Imported", fmt.Sprintf("%s (%s)", identityRecord.ID, identityRecord.Kind))
		return ExitSuccess
	case "export":
		if fs.NArg() < 1 {
			return Fatalf(g.Format, g.Format == "json", "signing team identity export: <id> is required")
		}
		credential, err := v.ExportIdentity(fs.Arg(0))
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		if *output != "" {
			if err := os.WriteFile(*output, credential, 0o600); err != nil {
				return PrintResult(g.Format, nil, fmt.Errorf("write %s: %w", *output, err))
			}
			ui.Status("Wrote", *output)
			return ExitSuccess
		}
		if g.Format == "json" {
			return PrintResult(g.Format, map[string]string{"credential_base64": base64.StdEncoding.EncodeToString(credential)}, nil)
		}
		os.Stdout.Write(credential)
		return ExitSuccess
	case "delete":
		if fs.NArg() < 1 {
			return Fatalf(g.Format, g.Format == "json", "signing team identity delete: <id> is required")
		}
		if err := v.DeleteIdentity(fs.Arg(0)); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		ui.Status("Deleted", fs.Arg(0))
		return ExitSuccess
	default:
		return Fatalf(g.Format, g.Format == "json", "signing team identity: unknown subcommand %q", sub)
	}
}

func runTeamAudit(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing team audit", flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	limit := fs.Int("limit", 20, "number of entries to show")
	actor := fs.String("actor", "", "filter by actor email")
	identityID := fs.String("identity", "", "filter by identity id")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	var entries []audit.Entry
	switch {
	case *identityID != "":
		entries = v.AuditLog().ForIdentity(*identityID)
	case *actor != "":
		entries = v.AuditLog().ByActor(*actor)
	default:
		entries = v.AuditLog().LastN(*limit)
	}

	if g.Format == "json" {
		return PrintResult(g.Format, entries, nil)
	}
	for _, e := range entries {
		detail := string(e.Action)
		if len(e.Fields) > 0 {
			parts := make([]string, 0, len(e.Fields))
			for k, v := range e.Fields {
				parts = append(parts, fmt.Sprintf("%s=%s", k, v))
			}
			detail = fmt.Sprintf("%s (%s)", detail, strings.Join(parts, ", "))
		}
		ui.Status(e.Actor, fmt.Sprintf("#%d %s %s", e.Seq, e.Timestamp.Format(time.RFC3339), detail))
	}
	return ExitSuccess
}

// artifactDigest hashes an artifact file for SignArtifactDigest/VerifyArtifactDigest.
func artifactDigest(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, fmt.Errorf("hash %s: %w", path, err)
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

func runSigningList(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing list", flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	provider := fs.String("provider", "", "filter: macos|windows|android|gpg")
	validOnly := fs.Bool("valid-only", false, "only show non-expired identities")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	var allowed map[vault.IdentityKind]bool
	if *provider != "" {
		kinds, ok := providerKinds[*provider]
		if !ok {
			return Fatalf(g.Format, g.Format == "json", "signing list: unknown --provider %q", *provider)
		}
		allowed = make(map[vault.IdentityKind]bool, len(kinds))
		for _, k := range kinds {
			allowed[k] = true
		}
	}

	now := time.Now()
	var identities []vault.StoredIdentity
	for _, id := range v.ListIdentities() {
		if allowed != nil && !allowed[id.Kind] {
			continue
		}
		if *validOnly && id.ExpiresAt != nil && id.ExpiresAt.Before(now) {
			continue
		}
		identities = append(identities, id)
	}

	if g.Format == "json" {
		return PrintResult(g.Format, identities, nil)
	}
	for _, id := range identities {
		expiry := "no expiry"
		if id.ExpiresAt != nil {
			expiry = "expires " + id.ExpiresAt.Format("2006-01-02")
		}
		ui.Status(string(id.Kind), fmt.Sprintf("%s (%s) — %s", id.ID, id.Name, expiry))
	}
	return ExitSuccess
}

func runSigningInfo(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing info", flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "signing info: an identity id is required")
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	id, ok := v.GetIdentity(fs.Arg(0))
	if !ok {
		return PrintResult(g.Format, nil, cerrors.NotFoundf("identity %q not found", fs.Arg(0)))
	}
	if g.Format == "json" {
		return PrintResult(g.Format, id, nil)
	}
	ui.PrintKeyValue("ID", id.ID)
	ui.PrintKeyValue("Name", id.Name)
	ui.PrintKeyValue("Kind", string(id.Kind))
	roles := make([]string, len(id.AllowedRoles))
	for i, r := range id.AllowedRoles {
		roles[i] = string(r)
	}
	ui.PrintKeyValue("Allowed roles", strings.Join(roles, ", "))
	ui.PrintKeyValue("Created", id.CreatedAt.Format(time.RFC3339))
	if id.ExpiresAt != nil {
		ui.PrintKeyValue("Expires", id.ExpiresAt.Format(time.RFC3339))
	}
	if len(id.Tags) > 0 {
		ui.PrintKeyValue("Tags", strings.Join(id.Tags, ", "))
	}
	return ExitSuccess
}

// credentialKeypair resolves the private key and certificate behind a
// vault identity, for the subset of identity kinds that carry an X.509
// credential (everything but GPG/Generic, which sign/verify don't
// support — the core composes an asymmetric envelope scheme, not a GPG
// implementation). An empty password falls back to the
// ANDROID_KEYSTORE_PASSWORD / ANDROID_KEY_PASSWORD environment variables
// for keystore identities.
func credentialKeypair(v *vault.TeamVault, id string, password string) (crypto.PrivateKey, *x509.Certificate, error) {
	stored, ok := v.GetIdentity(id)
	if !ok {
		return nil, nil, cerrors.NotFoundf("identity %q not found", id)
	}
	switch stored.Kind {
	case vault.IdentityGPG, vault.IdentityGeneric:
		return nil, nil, cerrors.InvalidArgumentf("identity kind %s is not a signable X.509 credential", stored.Kind)
	}
	if password == "" && stored.Kind == vault.IdentityAndroidKeystore {
		if env := os.Getenv("ANDROID_KEYSTORE_PASSWORD"); env != "" {
			password = env
		} else if env := os.Getenv("ANDROID_KEY_PASSWORD"); env != "" {
			password = env
		}
	}
	credential, err := v.ExportIdentity(id)
	if err != nil {
		return nil, nil, err
	}
	privateKey, cert, err := identity.LoadPKCS12WithSecurePassword(credential, []byte(password))
	if err != nil {
		return nil, nil, cerrors.Wrap(cerrors.InvalidArgument, err, "load identity credential")
	}
	return privateKey, cert, nil
}

// sidecarSignature is the on-disk shape of the `.casig.json` file
// `signing sign` writes and `signing verify` reads.
type sidecarSignature struct {
	IdentityID string `json:"identity_id"`
	Algorithm  string `json:"algorithm"`
	CertHash   string `json:"cert_hash"`
	Value      string `json:"value"`
	CertDER    string `json:"cert_der"`
}

func runSigningSign(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing sign", flag.ContinueOnError)
	path := fs.String("path", defaultVaultPath, "vault directory")
	identityID := fs.String("identity", "", "vault identity id")
	password := fs.String("password", "", "keystore/PKCS12 password")
	fs.String("entitlements", "", "entitlements plist (accepted, not applied by the core)")
	fs.Bool("hardened-runtime", false, "enable the hardened runtime (accepted, not applied by the core)")
	fs.Bool("deep", false, "sign nested code (accepted, not applied by the core)")
	force := fs.Bool("force", false, "replace an existing signature sidecar")
	fs.Bool("timestamp", true, "request a secure timestamp (accepted, not applied by the core)")
	fs.Bool("no-timestamp", false, "skip the secure timestamp (accepted, not applied by the core)")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "signing sign: an artifact path is required")
	}
	if *identityID == "" {
		return Fatalf(g.Format, g.Format == "json", "signing sign: --identity is required")
	}
	artifactPath := fs.Arg(0)
	sidecarPath := artifactPath + sidecarSuffix

	if !*force {
		if _, err := os.Stat(sidecarPath); err == nil {
			return PrintResult(g.Format, nil, cerrors.AlreadyExistsf("%s is already signed (use --force to resign)", artifactPath))
		}
	}

	v, err := vault.Open(*path)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	privateKey, cert, err := credentialKeypair(v, *identityID, *password)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	digest, err := artifactDigest(artifactPath)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	if g.DryRun {
		ui.Status("Would sign", fmt.Sprintf("%s with %s", artifactPath, *identityID))
		return ExitSuccess
	}

	sig, err := identity.SignArtifactDigest(privateKey, cert, digest)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	sidecar := sidecarSignature{
		IdentityID: *identityID,
		Algorithm:  sig.Algorithm,
		CertHash:   sig.CertHash,
		Value:      sig.Value,
		CertDER:    base64.StdEncoding.EncodeToString(cert.Raw),
	}
	encoded, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return PrintResult(g.Format, nil, fmt.Errorf("marshal signature sidecar: %w", err))
	}
	if err := os.WriteFile(sidecarPath, encoded, 0o644); err != nil {
		return PrintResult(g.Format, nil, fmt.Errorf("write %s: %w", sidecarPath, err))
	}

	if err := v.RecordSigning(*identityID, artifactPath); err != nil {
		ui.PrintWarning("failed to record signing in the audit log: " + err.Error())
	}

	if g.Format == "json" {
		return PrintResult(g.Format, sidecar, nil)
	}
	ui.Status("Signed", fmt.Sprintf("%s (%s, %s)", artifactPath, *identityID, sig.Algorithm))
	return ExitSuccess
}

func runSigningVerify(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("signing verify", flag.ContinueOnError)
	fs.Bool("deep", false, "verify nested code")
	strict := fs.Bool("strict", false, "fail on any warning")
	checkNotarization := fs.Bool("check-notarization", false, "check the stapled notarization ticket")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "signing verify: an artifact path is required")
	}
	artifactPath := fs.Arg(0)
	sidecarPath := artifactPath + sidecarSuffix

	raw, err := os.ReadFile(sidecarPath)
	if err != nil {
		return PrintResult(g.Format, nil, cerrors.NotFoundf("no signature found for %s (expected %s)", artifactPath, sidecarPath))
	}
	var sidecar sidecarSignature
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		return PrintResult(g.Format, nil, cerrors.Wrap(cerrors.Integrity, err, "parse signature sidecar"))
	}

	certDER, err := base64.StdEncoding.DecodeString(sidecar.CertDER)
	if err != nil {
		return PrintResult(g.Format, nil, cerrors.Wrap(cerrors.Integrity, err, "decode signer certificate"))
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return PrintResult(g.Format, nil, cerrors.Wrap(cerrors.Integrity, err, "parse signer certificate"))
	}

	digest, err := artifactDigest(artifactPath)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}

	sig := &identity.Signature{Algorithm: sidecar.Algorithm, CertHash: sidecar.CertHash, Value: sidecar.Value}
	if err := identity.VerifyArtifactDigest(sig, cert, digest); err != nil {
		return PrintResult(g.Format, nil, cerrors.Wrap(cerrors.Integrity, err, "signature verification failed"))
	}

	if *checkNotarization {
		ui.PrintWarning("notarization status is not tracked locally; use `canaveral store apple upload --notarize` and check Apple's ticket instead")
	}
	if *strict && time.Now().After(cert.NotAfter) {
		return PrintResult(g.Format, nil, cerrors.New(cerrors.ValidationFailed, "signer certificate has expired"))
	}

	result := map[string]any{
		"identity_id": sidecar.IdentityID,
		"algorithm":   sidecar.Algorithm,
		"valid":       true,
		"cert_subject": cert.Subject.String(),
		"cert_expires": cert.NotAfter,
	}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.Status("Verified", fmt.Sprintf("%s signed by %s (%s)", artifactPath, sidecar.IdentityID, sidecar.Algorithm))
	return ExitSuccess
}
