package validate

import (
	"regexp"

	"github.com/lucasilverentand/canaveral/internal/metadata"
)

const (
	googlePlayTitleLimit            = 50
	googlePlayShortDescriptionLimit = 80
	googlePlayFullDescriptionLimit  = 4000
	googlePlayChangelogLimit        = 500
)

const (
	googlePlayPhoneScreenshotMin = 2
	googlePlayPhoneScreenshotMax = 8
	googlePlayScreenshotSideMin  = 320
	googlePlayScreenshotSideMax  = 3840
	googlePlayWearScreenshotMin  = 384
)

var youtubeURLPattern = regexp.MustCompile(`^https?://(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]+`)

// GooglePlayPolicy configures validation behavior beyond the field rules.
type GooglePlayPolicy struct {
	FeatureGraphicRequired bool
	Strict                 bool
}

// ValidateGooglePlay checks m against the Play Store listing rules.
func ValidateGooglePlay(m *metadata.GooglePlayMetadata, policy GooglePlayPolicy) Result {
	r := Result{Strict: policy.Strict}

	if m.PackageName == "" {
		r.errorf("package_name", "package_name is required")
	}

	if _, ok := m.Localizations[m.DefaultLocale]; !ok {
		r.errorf("default_locale", "default locale %q must exist in localizations", m.DefaultLocale)
	}

	for loc, rec := range m.Localizations {
		validateGooglePlayLocalization(&r, loc.String(), rec)
	}

	validateGooglePlayScreenshots(&r, m.Screenshots)

	if m.FeatureGraphic == nil {
		if policy.FeatureGraphicRequired {
			r.errorf("feature_graphic", "feature_graphic is required")
		}
	} else if d := m.FeatureGraphic.Dimensions; d != nil && (d.Width != 1024 || d.Height != 500) {
		r.errorf("feature_graphic", "feature_graphic must be exactly 1024x500")
	}

	return r
}

func validateGooglePlayLocalization(r *Result, loc string, rec metadata.GooglePlayLocalizedMetadata) {
	if rec.Title == "" {
		r.errorf(localeField(loc, "title"), "title is required")
	} else if charCount(rec.Title) > googlePlayTitleLimit {
		r.errorf(localeField(loc, "title"), "title exceeds %d characters", googlePlayTitleLimit)
	}

	if rec.ShortDescription == "" {
		r.errorf(localeField(loc, "short_description"), "short_description is required")
	} else if charCount(rec.ShortDescription) > googlePlayShortDescriptionLimit {
		r.errorf(localeField(loc, "short_description"), "short_description exceeds %d characters", googlePlayShortDescriptionLimit)
	}

	if rec.FullDescription == "" {
		r.errorf(localeField(loc, "full_description"), "full_description is required")
	} else if charCount(rec.FullDescription) > googlePlayFullDescriptionLimit {
		r.errorf(localeField(loc, "full_description"), "full_description exceeds %d characters", googlePlayFullDescriptionLimit)
	}

	for versionCode, text := range rec.Changelogs {
		if charCount(text) > googlePlayChangelogLimit {
			r.errorf(localeField(loc, "changelog"), "changelog for version %d exceeds %d characters", versionCode, googlePlayChangelogLimit)
		}
	}

	if rec.VideoURL != "" && !youtubeURLPattern.MatchString(rec.VideoURL) {
		r.errorf(localeField(loc, "video_url"), "video_url must be a YouTube URL")
	}
}

func validateGooglePlayScreenshots(r *Result, screenshots []metadata.MediaAsset) {
	counts := make(map[metadata.DeviceClass]int)
	for _, s := range screenshots {
		counts[s.Device]++

		if s.Dimensions == nil {
			continue
		}
		w, h := s.Dimensions.Width, s.Dimensions.Height

		switch s.Device {
		case metadata.DeviceAndroidPhone, metadata.DeviceAndroidTablet7, metadata.DeviceAndroidTablet10:
			if w < googlePlayScreenshotSideMin || w > googlePlayScreenshotSideMax ||
				h < googlePlayScreenshotSideMin || h > googlePlayScreenshotSideMax {
				r.errorf("screenshots", "%s screenshot %s has a side outside [%d,%d]", s.Device, s.Path, googlePlayScreenshotSideMin, googlePlayScreenshotSideMax)
			}
			if !approximatelyWidescreen(w, h) {
				r.warnf("screenshots", "%s screenshot %s is not close to a 16:9 or 9:16 aspect ratio", s.Device, s.Path)
			}
		case metadata.DeviceAndroidTV:
			if w != 1920 || h != 1080 {
				r.warnf("screenshots", "TV screenshot %s is recommended to be exactly 1920x1080", s.Path)
			}
		case metadata.DeviceAndroidWear:
			if w < googlePlayWearScreenshotMin || h < googlePlayWearScreenshotMin {
				r.errorf("screenshots", "wear screenshot %s must be at least %dx%d", s.Path, googlePlayWearScreenshotMin, googlePlayWearScreenshotMin)
			}
		}
	}

	for _, device := range []metadata.DeviceClass{metadata.DeviceAndroidPhone, metadata.DeviceAndroidTablet7, metadata.DeviceAndroidTablet10} {
		if count := counts[device]; count > 0 && (count < googlePlayPhoneScreenshotMin || count > googlePlayPhoneScreenshotMax) {
			r.errorf("screenshots", "%s has %d screenshots, outside the range [%d,%d]", device, count, googlePlayPhoneScreenshotMin, googlePlayPhoneScreenshotMax)
		}
	}
}

// approximatelyWidescreen reports whether w:h is within 5% of either 16:9
// or 9:16
func approximatelyWidescreen(w, h int) bool {
	if h == 0 || w == 0 {
		return false
	}
	ratio := float64(w) / float64(h)
	const tolerance = 0.05
	within := func(target float64) bool {
		return ratio >= target*(1-tolerance) && ratio <= target*(1+tolerance)
	}
	return within(16.0/9.0) || within(9.0/16.0)
}
