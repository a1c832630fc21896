package fastlane

import (
	"testing"

	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
)

func TestAppleSaveLoadFidelity(t *testing.T) {
	dir := t.TempDir()
	s := NewStorage(dir)

	enUS := locale.MustParse("en-US")
	deDE := locale.MustParse("de-DE")

	if err := s.InitApple("com.example.app", []locale.Tag{enUS, deDE}); err != nil {
		t.Fatalf("InitApple: %v", err)
	}

	m := &metadata.AppleMetadata{
		BundleID:         "com.example.app",
		PrimaryLocale:    enUS,
		Category:         "PRODUCTIVITY",
		PrivacyPolicyURL: "https://example.com/privacy",
		SupportURL:       "https://example.com/support",
	}
	m.SetLocalization(enUS, metadata.AppleLocalizedMetadata{
		Name:            "Example",
		Subtitle:        "Do the thing",
		Description:     "A full description.",
		Keywords:        "example,app",
		WhatsNew:        "Bug fixes",
		PromotionalText: "Try it now",
		SupportURL:      "https://example.com/support",
		MarketingURL:    "https://example.com",
	})
	m.SetLocalization(deDE, metadata.AppleLocalizedMetadata{
		Name:        "Beispiel",
		Description: "Eine volle Beschreibung.",
	})

	if err := s.SaveApple(m); err != nil {
		t.Fatalf("SaveApple: %v", err)
	}

	loaded, err := s.LoadApple("com.example.app")
	if err != nil {
		t.Fatalf("LoadApple: %v", err)
	}

	locales, _, err := s.ListLocalesApple("com.example.app")
	if err != nil {
		t.Fatalf("ListLocalesApple: %v", err)
	}
	if len(locales) != 2 {
		t.Fatalf("expected 2 locales, got %v", locales)
	}

	got, ok := loaded.GetLocalization(enUS)
	if !ok {
		t.Fatal("expected en-US localization")
	}
	if got.Name != "Example" || got.Description != "A full description." || got.WhatsNew != "Bug fixes" {
		t.Fatalf("localization mismatch: %+v", got)
	}
	if loaded.Category != "PRODUCTIVITY" || loaded.PrivacyPolicyURL != "https://example.com/privacy" {
		t.Fatalf("app-level field mismatch: %+v", loaded)
	}
}

func TestLoadAppleNotFound(t *testing.T) {
	s := NewStorage(t.TempDir())
	_, err := s.LoadApple("com.missing.app")
	if err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestGooglePlaySaveLoadFidelity(t *testing.T) {
	dir := t.TempDir()
	s := NewStorage(dir)
	enUS := locale.MustParse("en-US")

	if err := s.InitGooglePlay("com.example.app", []locale.Tag{enUS}); err != nil {
		t.Fatalf("InitGooglePlay: %v", err)
	}

	m := &metadata.GooglePlayMetadata{PackageName: "com.example.app", DefaultLocale: enUS}
	m.SetLocalization(enUS, metadata.GooglePlayLocalizedMetadata{
		Title:            "Example",
		ShortDescription: "Short",
		FullDescription:  "Full description",
		Changelogs:       map[int]string{10: "Initial release"},
	})

	if err := s.SaveGooglePlay(m); err != nil {
		t.Fatalf("SaveGooglePlay: %v", err)
	}

	loaded, err := s.LoadGooglePlay("com.example.app")
	if err != nil {
		t.Fatalf("LoadGooglePlay: %v", err)
	}
	got, ok := loaded.GetLocalization(enUS)
	if !ok {
		t.Fatal("expected en-US localization")
	}
	if got.Title != "Example" || got.Changelogs[10] != "Initial release" {
		t.Fatalf("localization mismatch: %+v", got)
	}
}
