package validate

import (
	"strings"

	"github.com/lucasilverentand/canaveral/internal/metadata"
)

// App Store field length ceilings.
const (
	appleNameLimit            = 30
	appleDescriptionLimit     = 4000
	appleSubtitleLimit        = 30
	appleKeywordsLimit        = 100
	appleWhatsNewLimit        = 4000
	applePromotionalTextLimit = 170
)

// appleScreenshotLimit caps the number of screenshots per device class.
const appleScreenshotLimit = 10

// appleAllowedDimensions enumerates the exact pixel sizes accepted per
// device class, landscape and portrait. Mac/TV/Watch are validated by
// count only and have no entry here.
var appleAllowedDimensions = map[metadata.DeviceClass][]metadata.Dimensions{
	metadata.DeviceIPhone65: {{Width: 1284, Height: 2778}, {Width: 2778, Height: 1284}},
	metadata.DeviceIPhone55: {{Width: 1242, Height: 2208}, {Width: 2208, Height: 1242}},
	metadata.DeviceIPad129:  {{Width: 2048, Height: 2732}, {Width: 2732, Height: 2048}},
	metadata.DeviceIPad11:   {{Width: 1668, Height: 2388}, {Width: 2388, Height: 1668}},
}

// ApplePolicy configures validation behavior beyond the field rules
// themselves.
type ApplePolicy struct {
	// UpdatesMode requires WhatsNew to be populated (it is otherwise
	// optional, matching a first-submission listing with no prior build).
	UpdatesMode bool
	// PrivacyPolicyRequired makes privacy_policy_url mandatory; when false
	// (the zero value) the URL is only shape-checked if present. Callers
	// set it true by default and false when the app declares it collects
	// no data and disables the requirement.
	PrivacyPolicyRequired bool
	Strict                bool
}

// ValidateApple checks m against the App Store listing rules.
func ValidateApple(m *metadata.AppleMetadata, policy ApplePolicy) Result {
	r := Result{Strict: policy.Strict}

	if m.BundleID == "" {
		r.errorf("bundle_id", "bundle_id is required")
	}

	if _, ok := m.Localizations[m.PrimaryLocale]; !ok {
		r.errorf("primary_locale", "primary locale %q must exist in localizations", m.PrimaryLocale)
	}

	if !validURL(m.SupportURL) {
		r.errorf("support_url", "support_url is required and must be a valid URL")
	}
	if policy.PrivacyPolicyRequired && !validURL(m.PrivacyPolicyURL) {
		r.errorf("privacy_policy_url", "privacy_policy_url is required and must be a valid URL")
	} else if m.PrivacyPolicyURL != "" && !validURL(m.PrivacyPolicyURL) {
		r.errorf("privacy_policy_url", "privacy_policy_url must be a valid URL")
	}

	for loc, rec := range m.Localizations {
		validateAppleLocalization(&r, loc.String(), rec, policy)
	}

	validateAppleScreenshots(&r, m.Screenshots)

	return r
}

func validateAppleLocalization(r *Result, loc string, rec metadata.AppleLocalizedMetadata, policy ApplePolicy) {
	if rec.Name == "" {
		r.errorf(localeField(loc, "name"), "name is required")
	} else {
		if charCount(rec.Name) > appleNameLimit {
			r.errorf(localeField(loc, "name"), "name exceeds %d characters", appleNameLimit)
		}
		if hasNewline(rec.Name) {
			r.errorf(localeField(loc, "name"), "name must not contain newlines")
		}
		if trimmedDiffers(rec.Name) {
			r.warnf(localeField(loc, "name"), "name has leading or trailing whitespace")
		}
	}

	if rec.Description == "" {
		r.errorf(localeField(loc, "description"), "description is required")
	} else if charCount(rec.Description) > appleDescriptionLimit {
		r.errorf(localeField(loc, "description"), "description exceeds %d characters", appleDescriptionLimit)
	}

	if rec.Subtitle != "" {
		if charCount(rec.Subtitle) > appleSubtitleLimit {
			r.errorf(localeField(loc, "subtitle"), "subtitle exceeds %d characters", appleSubtitleLimit)
		}
		if hasNewline(rec.Subtitle) {
			r.errorf(localeField(loc, "subtitle"), "subtitle must not contain newlines")
		}
	}

	if rec.Keywords != "" {
		validateAppleKeywords(r, loc, rec.Keywords)
	}

	if rec.WhatsNew == "" && policy.UpdatesMode {
		r.errorf(localeField(loc, "whats_new"), "whats_new is required in updates mode")
	} else if charCount(rec.WhatsNew) > appleWhatsNewLimit {
		r.errorf(localeField(loc, "whats_new"), "whats_new exceeds %d characters", appleWhatsNewLimit)
	}

	if rec.PromotionalText != "" && charCount(rec.PromotionalText) > applePromotionalTextLimit {
		r.errorf(localeField(loc, "promotional_text"), "promotional_text exceeds %d characters", applePromotionalTextLimit)
	}

	for _, field := range []struct {
		name, value string
	}{{"support_url", rec.SupportURL}, {"marketing_url", rec.MarketingURL}} {
		if field.value != "" && !validURL(field.value) {
			r.errorf(localeField(loc, field.name), "%s must be a valid URL", field.name)
		}
	}
}

func validateAppleKeywords(r *Result, loc, keywords string) {
	if charCount(keywords) > appleKeywordsLimit {
		r.errorf(localeField(loc, "keywords"), "keywords exceeds %d characters total", appleKeywordsLimit)
	}
	trimmed := strings.TrimSpace(keywords)
	if strings.HasPrefix(trimmed, ",") || strings.HasSuffix(trimmed, ",") {
		r.errorf(localeField(loc, "keywords"), "keywords must not have a leading or trailing comma")
	}
	for _, part := range strings.Split(keywords, ",") {
		if strings.HasPrefix(part, " ") {
			r.infof(localeField(loc, "keywords"), "keyword has a space after its comma")
			break
		}
	}
}

func validateAppleScreenshots(r *Result, screenshots []metadata.MediaAsset) {
	counts := make(map[metadata.DeviceClass]int)
	for _, s := range screenshots {
		counts[s.Device]++
		if allowed, ok := appleAllowedDimensions[s.Device]; ok && s.Dimensions != nil {
			matched := false
			for _, dim := range allowed {
				if dim == *s.Dimensions {
					matched = true
					break
				}
			}
			if !matched {
				r.errorf("screenshots", "screenshot %s does not match an allowed dimension for %s", s.Path, s.Device)
			}
		}
	}
	for device, count := range counts {
		if count > appleScreenshotLimit {
			r.errorf("screenshots", "%s has %d screenshots, exceeding the limit of %d", device, count, appleScreenshotLimit)
		}
	}
}

func localeField(loc, field string) string {
	return loc + "/" + field
}
