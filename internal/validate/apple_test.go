package validate

import (
	"strings"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
)

func TestAppleValidatorFlagsNameLength(t *testing.T) {
	enUS := locale.MustParse("en-US")
	m := &metadata.AppleMetadata{
		BundleID:         "com.example.app",
		PrimaryLocale:    enUS,
		SupportURL:       "https://example.com/support",
		PrivacyPolicyURL: "https://example.com/privacy",
	}
	m.SetLocalization(enUS, metadata.AppleLocalizedMetadata{
		Name:        strings.Repeat("A", 35),
		Description: "A valid description.",
	})

	result := ValidateApple(m, ApplePolicy{PrivacyPolicyRequired: true})
	errs := result.Errors()

	found := false
	for _, e := range errs {
		if strings.Contains(e.Field, "name") && strings.Contains(e.Message, "exceeds") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a name-length error, got %+v", errs)
	}
}

func TestAppleValidatorPassesCleanMetadata(t *testing.T) {
	enUS := locale.MustParse("en-US")
	m := &metadata.AppleMetadata{
		BundleID:         "com.example.app",
		PrimaryLocale:    enUS,
		SupportURL:       "https://example.com/support",
		PrivacyPolicyURL: "https://example.com/privacy",
	}
	m.SetLocalization(enUS, metadata.AppleLocalizedMetadata{
		Name:        "Example App",
		Description: "A perfectly valid description within limits.",
	})

	result := ValidateApple(m, ApplePolicy{PrivacyPolicyRequired: true})
	if errs := result.Errors(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestAppleValidatorRequiresPrimaryLocalePresent(t *testing.T) {
	m := &metadata.AppleMetadata{
		BundleID:      "com.example.app",
		PrimaryLocale: locale.MustParse("en-US"),
	}
	result := ValidateApple(m, ApplePolicy{})
	found := false
	for _, e := range result.Errors() {
		if e.Field == "primary_locale" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a primary_locale error when it's missing from localizations")
	}
}
