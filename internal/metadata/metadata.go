// Package metadata defines the typed, per-platform store-listing records
// (Apple App Store, Google Play) that Canaveral's Fastlane storage,
// validators, and store clients/sync all operate on. It
// carries no serialization or persistence concerns of its own — those
// live in internal/fastlane and the store clients.
package metadata

import "github.com/lucasilverentand/canaveral/internal/locale"

// AssetKind classifies a MediaAsset.
type AssetKind string

const (
	AssetScreenshot     AssetKind = "Screenshot"
	AssetIcon           AssetKind = "Icon"
	AssetFeatureGraphic AssetKind = "FeatureGraphic"
	AssetPreview        AssetKind = "Preview"
)

// DeviceClass names the device family a Screenshot was captured for,
// used to select the right dimension allow-list during validation.
type DeviceClass string

const (
	DeviceIPhone55      DeviceClass = "iphone_5_5"
	DeviceIPhone65      DeviceClass = "iphone_6_5"
	DeviceIPad11        DeviceClass = "ipad_11"
	DeviceIPad129       DeviceClass = "ipad_12_9"
	DeviceMac           DeviceClass = "mac"
	DeviceAppleTV       DeviceClass = "apple_tv"
	DeviceAppleWatch    DeviceClass = "apple_watch"
	DeviceAndroidPhone  DeviceClass = "android_phone"
	DeviceAndroidTablet7  DeviceClass = "android_tablet_7"
	DeviceAndroidTablet10 DeviceClass = "android_tablet_10"
	DeviceAndroidTV     DeviceClass = "android_tv"
	DeviceAndroidWear   DeviceClass = "android_wear"
)

// Dimensions is a pixel width/height pair.
type Dimensions struct {
	Width  int
	Height int
}

// MediaAsset is one screenshot, icon, or feature graphic on disk.
type MediaAsset struct {
	Path        string
	Kind        AssetKind
	Device      DeviceClass
	Dimensions  *Dimensions
}

// AppleLocalizedMetadata holds the per-locale fields of an App Store
// listing.
type AppleLocalizedMetadata struct {
	Name             string
	Subtitle         string
	Description      string
	Keywords         string
	WhatsNew         string
	PromotionalText  string
	SupportURL       string
	MarketingURL     string
}

// AppleMetadata is the full App Store Connect listing for one bundle ID,
// spanning every requested locale.
type AppleMetadata struct {
	BundleID          string
	PrimaryLocale     locale.Tag
	Localizations     map[locale.Tag]AppleLocalizedMetadata
	Category          string
	AgeRating         string
	Screenshots       []MediaAsset
	Icon              *MediaAsset
	PrivacyPolicyURL  string
	SupportURL        string
	MarketingURL      string
	Copyright         string
}

// SetLocalization inserts or replaces the localized record for loc.
func (m *AppleMetadata) SetLocalization(loc locale.Tag, rec AppleLocalizedMetadata) {
	if m.Localizations == nil {
		m.Localizations = make(map[locale.Tag]AppleLocalizedMetadata)
	}
	m.Localizations[loc] = rec
}

// GetLocalization returns the localized record for loc, if present.
func (m *AppleMetadata) GetLocalization(loc locale.Tag) (AppleLocalizedMetadata, bool) {
	rec, ok := m.Localizations[loc]
	return rec, ok
}

// GooglePlayLocalizedMetadata holds the per-locale fields of a Play Store
// listing, including changelogs keyed by version code.
type GooglePlayLocalizedMetadata struct {
	Title             string
	ShortDescription  string
	FullDescription   string
	Changelogs        map[int]string
	VideoURL          string
}

// GooglePlayMetadata is the full Play Developer Console listing for one
// package name, spanning every requested locale.
type GooglePlayMetadata struct {
	PackageName       string
	DefaultLocale     locale.Tag
	Localizations     map[locale.Tag]GooglePlayLocalizedMetadata
	Category          string
	ContentRating     string
	Screenshots       []MediaAsset
	FeatureGraphic    *MediaAsset
	PrivacyPolicyURL  string
	ContactEmail      string
	ContactPhone      string
	ContactWebsite    string
}

// SetLocalization inserts or replaces the localized record for loc.
func (m *GooglePlayMetadata) SetLocalization(loc locale.Tag, rec GooglePlayLocalizedMetadata) {
	if m.Localizations == nil {
		m.Localizations = make(map[locale.Tag]GooglePlayLocalizedMetadata)
	}
	m.Localizations[loc] = rec
}

// GetLocalization returns the localized record for loc, if present.
func (m *GooglePlayMetadata) GetLocalization(loc locale.Tag) (GooglePlayLocalizedMetadata, bool) {
	rec, ok := m.Localizations[loc]
	return rec, ok
}
