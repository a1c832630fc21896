package match

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lucasilverentand/canaveral/internal/envelope"
)

// CertificateType names the signing-certificate flavor a StoredCertificate
// holds.
type CertificateType string

const (
	CertDevelopment  CertificateType = "Development"
	CertDistribution CertificateType = "Distribution"
)

// ProfileType names the provisioning-profile flavor a StoredProfile holds.
type ProfileType string

const (
	ProfileDevelopment ProfileType = "Development"
	ProfileAdHoc       ProfileType = "AdHoc"
	ProfileAppStore    ProfileType = "AppStore"
	ProfileEnterprise  ProfileType = "Enterprise"
)

// StoredCertificate is one entry in the manifest's certs map: a pointer to
// an encrypted blob plus the fingerprint used to name it.
type StoredCertificate struct {
	Type        CertificateType `yaml:"type"`
	Fingerprint string          `yaml:"fingerprint"`
	Path        string          `yaml:"path"`
	CreatedAt   time.Time       `yaml:"created_at"`
	ExpiresAt   *time.Time      `yaml:"expires_at,omitempty"`
}

// StoredProfile is one entry in the manifest's profiles map.
type StoredProfile struct {
	Type      ProfileType `yaml:"type"`
	UUID      string      `yaml:"uuid"`
	Path      string      `yaml:"path"`
	CreatedAt time.Time   `yaml:"created_at"`
	ExpiresAt *time.Time  `yaml:"expires_at,omitempty"`
}

// Manifest is the match protocol's version-1 manifest: the full set of
// certs and per-app profiles a team's shared vault currently holds. The
// manifest itself is serialized to YAML then sealed as an envelope,
// matching the rest of Canaveral's persisted state; the certs and
// profiles it references are separately encrypted blobs addressed by
// Path.
type Manifest struct {
	Version    int                                      `yaml:"version"`
	TeamID     string                                    `yaml:"team_id"`
	Certs      map[CertificateType][]StoredCertificate    `yaml:"certs"`
	Profiles   map[string]map[ProfileType][]StoredProfile `yaml:"profiles"` // keyed by app_id
	LastSync   time.Time                                  `yaml:"last_sync"`
}

// NewManifest creates an empty version-1 manifest for teamID.
func NewManifest(teamID string) *Manifest {
	return &Manifest{
		Version:  1,
		TeamID:   teamID,
		Certs:    make(map[CertificateType][]StoredCertificate),
		Profiles: make(map[string]map[ProfileType][]StoredProfile),
	}
}

// marshal serializes m to YAML for encryption.
func (m *Manifest) marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// unmarshalManifest parses YAML bytes into a Manifest.
func unmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Certs == nil {
		m.Certs = make(map[CertificateType][]StoredCertificate)
	}
	if m.Profiles == nil {
		m.Profiles = make(map[string]map[ProfileType][]StoredProfile)
	}
	return &m, nil
}

// encrypt seals m to recipients; the manifest is never written to a
// backend in the clear.
func (m *Manifest) encrypt(recipients [][32]byte) (string, error) {
	raw, err := m.marshal()
	if err != nil {
		return "", err
	}
	return envelope.Encrypt(raw, recipients)
}

// addCertificate appends cert under its type, replacing any existing
// entry with the same fingerprint.
func (m *Manifest) addCertificate(cert StoredCertificate) {
	list := m.Certs[cert.Type]
	for i, existing := range list {
		if existing.Fingerprint == cert.Fingerprint {
			list[i] = cert
			m.Certs[cert.Type] = list
			return
		}
	}
	m.Certs[cert.Type] = append(list, cert)
}

// addProfile appends profile under appID/type, replacing any existing
// entry with the same UUID.
func (m *Manifest) addProfile(appID string, profile StoredProfile) {
	if m.Profiles[appID] == nil {
		m.Profiles[appID] = make(map[ProfileType][]StoredProfile)
	}
	list := m.Profiles[appID][profile.Type]
	for i, existing := range list {
		if existing.UUID == profile.UUID {
			list[i] = profile
			m.Profiles[appID][profile.Type] = list
			return
		}
	}
	m.Profiles[appID][profile.Type] = append(list, profile)
}

// nukeAll clears every cert and profile entry.
func (m *Manifest) nukeAll() {
	m.Certs = make(map[CertificateType][]StoredCertificate)
	m.Profiles = make(map[string]map[ProfileType][]StoredProfile)
}

// nukeKind clears only entries of the given certificate or profile kind,
// matching `nuke(profile_kind?)`'s scoped form.
func (m *Manifest) nukeKind(certType CertificateType, profileType ProfileType) {
	delete(m.Certs, certType)
	for appID, byType := range m.Profiles {
		delete(byType, profileType)
		m.Profiles[appID] = byType
	}
}
