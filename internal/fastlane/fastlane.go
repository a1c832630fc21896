// Package fastlane reads and writes store metadata in the Fastlane-style
// on-disk layout (per-locale .txt files plus an app-level YAML sidecar)
// that the metadata sync engine (internal/metasync) round-trips against
// each store's API.
package fastlane

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

// Storage reads and writes the Fastlane layout rooted at a directory,
// normally the repo's `fastlane/metadata`-equivalent path, configurable
// via `--metadata-path`.
type Storage struct {
	root string
}

// NewStorage creates a Storage rooted at root.
func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// imageExtensions lists the file extensions DiscoverScreenshots accepts.
var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// --- Apple ---

// AppStoreInfo is the non-localized, app-level sidecar: app_store_info.yaml.
type AppStoreInfo struct {
	Category         string `yaml:"category,omitempty"`
	AgeRating        string `yaml:"age_rating,omitempty"`
	PrivacyPolicyURL string `yaml:"privacy_policy_url,omitempty"`
	SupportURL       string `yaml:"support_url,omitempty"`
	MarketingURL     string `yaml:"marketing_url,omitempty"`
	Copyright        string `yaml:"copyright,omitempty"`
}

func (s *Storage) appleDir(bundleID string) string {
	return filepath.Join(s.root, "apple", bundleID)
}

// appleFieldFiles lists the per-locale .txt filenames (without extension)
// that the AppleLocalizedMetadata fields round-trip through.
var appleFieldFiles = []string{"name", "subtitle", "description", "keywords", "release_notes", "promotional_text", "support_url", "marketing_url"}

// LoadApple reads the full Apple metadata tree for bundleID. Returns a
// NotFound error if the bundle's directory doesn't exist.
func (s *Storage) LoadApple(bundleID string) (*metadata.AppleMetadata, error) {
	dir := s.appleDir(bundleID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, cerrors.NotFoundf("no Apple metadata at %s", dir)
	}

	m := &metadata.AppleMetadata{BundleID: bundleID}

	var info AppStoreInfo
	if err := readYAML(filepath.Join(dir, "app_store_info.yaml"), &info); err != nil {
		return nil, err
	}
	m.Category = info.Category
	m.AgeRating = info.AgeRating
	m.PrivacyPolicyURL = info.PrivacyPolicyURL
	m.SupportURL = info.SupportURL
	m.MarketingURL = info.MarketingURL
	m.Copyright = info.Copyright

	locales, warnings, err := s.ListLocalesApple(bundleID)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		ui.WarningStatus("metadata", w)
	}

	for _, loc := range locales {
		localeDir := filepath.Join(dir, loc.String())
		rec := metadata.AppleLocalizedMetadata{
			Name:            readTextField(localeDir, "name"),
			Subtitle:        readTextField(localeDir, "subtitle"),
			Description:     readTextField(localeDir, "description"),
			Keywords:        readTextField(localeDir, "keywords"),
			WhatsNew:        readTextField(localeDir, "release_notes"),
			PromotionalText: readTextField(localeDir, "promotional_text"),
			SupportURL:      readTextField(localeDir, "support_url"),
			MarketingURL:    readTextField(localeDir, "marketing_url"),
		}
		m.SetLocalization(loc, rec)
	}

	screenshotsDir := filepath.Join(dir, "screenshots")
	for _, loc := range locales {
		paths, err := DiscoverScreenshots(filepath.Join(screenshotsDir, loc.String()))
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			m.Screenshots = append(m.Screenshots, metadata.MediaAsset{Path: p, Kind: metadata.AssetScreenshot})
		}
	}

	return m, nil
}

// SaveApple writes m's full tree, write-through: required fields are
// always written (even empty); optional fields are written only when
// non-empty.
func (s *Storage) SaveApple(m *metadata.AppleMetadata) error {
	dir := s.appleDir(m.BundleID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	info := AppStoreInfo{
		Category:         m.Category,
		AgeRating:        m.AgeRating,
		PrivacyPolicyURL: m.PrivacyPolicyURL,
		SupportURL:       m.SupportURL,
		MarketingURL:     m.MarketingURL,
		Copyright:        m.Copyright,
	}
	if err := writeYAML(filepath.Join(dir, "app_store_info.yaml"), info); err != nil {
		return err
	}

	for loc, rec := range m.Localizations {
		localeDir := filepath.Join(dir, loc.String())
		if err := os.MkdirAll(localeDir, 0o755); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "name", rec.Name, true); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "description", rec.Description, true); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "subtitle", rec.Subtitle, false); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "keywords", rec.Keywords, false); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "release_notes", rec.WhatsNew, false); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "promotional_text", rec.PromotionalText, false); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "support_url", rec.SupportURL, false); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "marketing_url", rec.MarketingURL, false); err != nil {
			return err
		}
	}

	return nil
}

// InitApple scaffolds empty per-locale template files for bundleID.
func (s *Storage) InitApple(bundleID string, locales []locale.Tag) error {
	dir := s.appleDir(bundleID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, "app_store_info.yaml"), AppStoreInfo{}); err != nil {
		return err
	}
	for _, loc := range locales {
		localeDir := filepath.Join(dir, loc.String())
		if err := os.MkdirAll(localeDir, 0o755); err != nil {
			return err
		}
		for _, field := range appleFieldFiles {
			if err := writeTextField(localeDir, field, "", true); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Join(dir, "screenshots", loc.String()), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ListLocalesApple enumerates bundleID's locale directories, excluding
// "screenshots" and dot-prefixed entries. Invalid locale names produce a
// warning string rather than failing the whole listing.
func (s *Storage) ListLocalesApple(bundleID string) ([]locale.Tag, []string, error) {
	return listLocaleDirs(s.appleDir(bundleID))
}

// --- Google Play ---

// StoreInfo is the non-localized, app-level sidecar: store_info.yaml.
type StoreInfo struct {
	Category         string `yaml:"category,omitempty"`
	ContentRating    string `yaml:"content_rating,omitempty"`
	PrivacyPolicyURL string `yaml:"privacy_policy_url,omitempty"`
	ContactEmail     string `yaml:"contact_email,omitempty"`
	ContactPhone     string `yaml:"contact_phone,omitempty"`
	ContactWebsite   string `yaml:"contact_website,omitempty"`
}

func (s *Storage) googlePlayDir(packageName string) string {
	return filepath.Join(s.root, "google_play", packageName)
}

// LoadGooglePlay reads the full Play Store metadata tree for packageName.
// Returns NotFound if the package's directory doesn't exist.
func (s *Storage) LoadGooglePlay(packageName string) (*metadata.GooglePlayMetadata, error) {
	dir := s.googlePlayDir(packageName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, cerrors.NotFoundf("no Google Play metadata at %s", dir)
	}

	m := &metadata.GooglePlayMetadata{PackageName: packageName}

	var info StoreInfo
	if err := readYAML(filepath.Join(dir, "store_info.yaml"), &info); err != nil {
		return nil, err
	}
	m.Category = info.Category
	m.ContentRating = info.ContentRating
	m.PrivacyPolicyURL = info.PrivacyPolicyURL
	m.ContactEmail = info.ContactEmail
	m.ContactPhone = info.ContactPhone
	m.ContactWebsite = info.ContactWebsite

	locales, warnings, err := s.ListLocalesGooglePlay(packageName)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		ui.WarningStatus("metadata", w)
	}

	for _, loc := range locales {
		localeDir := filepath.Join(dir, loc.String())
		rec := metadata.GooglePlayLocalizedMetadata{
			Title:            readTextField(localeDir, "title"),
			ShortDescription: readTextField(localeDir, "short_description"),
			FullDescription:  readTextField(localeDir, "full_description"),
			VideoURL:         readTextField(localeDir, "video"),
		}
		rec.Changelogs = readChangelogs(filepath.Join(localeDir, "changelogs"))
		m.SetLocalization(loc, rec)

		for _, device := range []string{"phone", "tablet", "tv", "wear"} {
			paths, err := DiscoverScreenshots(filepath.Join(dir, "screenshots", loc.String(), device))
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				m.Screenshots = append(m.Screenshots, metadata.MediaAsset{Path: p, Kind: metadata.AssetScreenshot, Device: deviceClassFor(device)})
			}
		}
	}

	return m, nil
}

func deviceClassFor(dir string) metadata.DeviceClass {
	switch dir {
	case "phone":
		return metadata.DeviceAndroidPhone
	case "tablet":
		return metadata.DeviceAndroidTablet7
	case "tv":
		return metadata.DeviceAndroidTV
	case "wear":
		return metadata.DeviceAndroidWear
	default:
		return ""
	}
}

// SaveGooglePlay writes m's full tree, write-through.
func (s *Storage) SaveGooglePlay(m *metadata.GooglePlayMetadata) error {
	dir := s.googlePlayDir(m.PackageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	info := StoreInfo{
		Category:         m.Category,
		ContentRating:    m.ContentRating,
		PrivacyPolicyURL: m.PrivacyPolicyURL,
		ContactEmail:     m.ContactEmail,
		ContactPhone:     m.ContactPhone,
		ContactWebsite:   m.ContactWebsite,
	}
	if err := writeYAML(filepath.Join(dir, "store_info.yaml"), info); err != nil {
		return err
	}

	for loc, rec := range m.Localizations {
		localeDir := filepath.Join(dir, loc.String())
		if err := os.MkdirAll(localeDir, 0o755); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "title", rec.Title, true); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "short_description", rec.ShortDescription, true); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "full_description", rec.FullDescription, true); err != nil {
			return err
		}
		if err := writeTextField(localeDir, "video", rec.VideoURL, false); err != nil {
			return err
		}
		if len(rec.Changelogs) > 0 {
			changelogDir := filepath.Join(localeDir, "changelogs")
			if err := os.MkdirAll(changelogDir, 0o755); err != nil {
				return err
			}
			for versionCode, text := range rec.Changelogs {
				path := filepath.Join(changelogDir, strconv.Itoa(versionCode)+".txt")
				if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// InitGooglePlay scaffolds empty per-locale template files for packageName.
func (s *Storage) InitGooglePlay(packageName string, locales []locale.Tag) error {
	dir := s.googlePlayDir(packageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, "store_info.yaml"), StoreInfo{}); err != nil {
		return err
	}
	for _, loc := range locales {
		localeDir := filepath.Join(dir, loc.String())
		if err := os.MkdirAll(localeDir, 0o755); err != nil {
			return err
		}
		for _, field := range []string{"title", "short_description", "full_description", "video"} {
			if err := writeTextField(localeDir, field, "", true); err != nil {
				return err
			}
		}
		for _, device := range []string{"phone", "tablet", "tv", "wear"} {
			if err := os.MkdirAll(filepath.Join(dir, "screenshots", loc.String(), device), 0o755); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListLocalesGooglePlay enumerates packageName's locale directories.
func (s *Storage) ListLocalesGooglePlay(packageName string) ([]locale.Tag, []string, error) {
	return listLocaleDirs(s.googlePlayDir(packageName))
}

// --- shared helpers ---

func listLocaleDirs(dir string) ([]locale.Tag, []string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var tags []locale.Tag
	var warnings []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "screenshots" || strings.HasPrefix(name, ".") {
			continue
		}
		tag, err := locale.Parse(name)
		if err != nil {
			warnings = append(warnings, "skipping invalid locale directory: "+name)
			continue
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags, warnings, nil
}

func readChangelogs(dir string) map[int]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		code, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out[code] = strings.TrimRight(string(data), "\n")
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DiscoverScreenshots lists image files directly under dir, sorted by
// filename. A missing directory yields an empty slice, not an error.
func DiscoverScreenshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func readTextField(dir, field string) string {
	data, err := os.ReadFile(filepath.Join(dir, field+".txt"))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\n")
}

// writeTextField writes field.txt under dir. Required fields are always
// written, even empty; optional (required=false) fields are skipped
// entirely when value is empty.
func writeTextField(dir, field, value string, required bool) error {
	if !required && value == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, field+".txt"), []byte(value), 0o644)
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func writeYAML(path string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
