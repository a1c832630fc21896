package validate

import (
	"testing"

	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
)

func TestGooglePlayValidatorPassesCleanMetadata(t *testing.T) {
	enUS := locale.MustParse("en-US")
	m := &metadata.GooglePlayMetadata{
		PackageName:   "com.example.app",
		DefaultLocale: enUS,
		FeatureGraphic: &metadata.MediaAsset{
			Kind:       metadata.AssetFeatureGraphic,
			Dimensions: &metadata.Dimensions{Width: 1024, Height: 500},
		},
	}
	m.SetLocalization(enUS, metadata.GooglePlayLocalizedMetadata{
		Title:            "Example",
		ShortDescription: "Short and sweet",
		FullDescription:  "A full description well within the limit.",
	})
	for i := 0; i < 3; i++ {
		m.Screenshots = append(m.Screenshots, metadata.MediaAsset{
			Path:       "shot.png",
			Kind:       metadata.AssetScreenshot,
			Device:     metadata.DeviceAndroidPhone,
			Dimensions: &metadata.Dimensions{Width: 1080, Height: 1920},
		})
	}

	result := ValidateGooglePlay(m, GooglePlayPolicy{FeatureGraphicRequired: true})
	if errs := result.Errors(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestGooglePlayValidatorFlagsScreenshotCount(t *testing.T) {
	enUS := locale.MustParse("en-US")
	m := &metadata.GooglePlayMetadata{PackageName: "com.example.app", DefaultLocale: enUS}
	m.SetLocalization(enUS, metadata.GooglePlayLocalizedMetadata{
		Title:            "Example",
		ShortDescription: "Short",
		FullDescription:  "Full",
	})
	m.Screenshots = append(m.Screenshots, metadata.MediaAsset{
		Path:       "only-one.png",
		Device:     metadata.DeviceAndroidPhone,
		Dimensions: &metadata.Dimensions{Width: 1080, Height: 1920},
	})

	result := ValidateGooglePlay(m, GooglePlayPolicy{})
	found := false
	for _, e := range result.Errors() {
		if e.Field == "screenshots" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a screenshot-count error for only 1 phone screenshot")
	}
}

func TestGooglePlayValidatorFeatureGraphicDimensions(t *testing.T) {
	enUS := locale.MustParse("en-US")
	m := &metadata.GooglePlayMetadata{
		PackageName:   "com.example.app",
		DefaultLocale: enUS,
		FeatureGraphic: &metadata.MediaAsset{
			Dimensions: &metadata.Dimensions{Width: 500, Height: 500},
		},
	}
	m.SetLocalization(enUS, metadata.GooglePlayLocalizedMetadata{Title: "T", ShortDescription: "S", FullDescription: "F"})

	result := ValidateGooglePlay(m, GooglePlayPolicy{})
	found := false
	for _, e := range result.Errors() {
		if e.Field == "feature_graphic" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a feature_graphic dimension error")
	}
}
