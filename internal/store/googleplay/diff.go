package googleplay

import (
	"strconv"
	"strings"

	"github.com/lucasilverentand/canaveral/internal/metadata"
)

// ChangeType classifies one field's difference between local and remote
// metadata.
type ChangeType string

const (
	Added    ChangeType = "Added"
	Modified ChangeType = "Modified"
	Removed  ChangeType = "Removed"
)

// MetadataDiff is one field-level difference between local and remote
// metadata for a locale.
type MetadataDiff struct {
	Locale      string
	Field       string
	LocalValue  string
	RemoteValue string
	ChangeType  ChangeType
}

// DiffGooglePlayMetadata performs a per-locale, field-by-field,
// trim-normalized comparison between local and remote metadata. Locales
// present locally but not remotely are reported as Added; remotely but
// not locally, as Removed.
func DiffGooglePlayMetadata(local, remote *metadata.GooglePlayMetadata) []MetadataDiff {
	var diffs []MetadataDiff

	for tag, localRec := range local.Localizations {
		remoteRec, ok := remote.GetLocalization(tag)
		if !ok {
			diffs = append(diffs, diffAllFields(tag.String(), localRec, metadata.GooglePlayLocalizedMetadata{}, Added)...)
			continue
		}
		diffs = append(diffs, diffFields(tag.String(), localRec, remoteRec)...)
	}

	for tag, remoteRec := range remote.Localizations {
		if _, ok := local.GetLocalization(tag); !ok {
			diffs = append(diffs, diffAllFields(tag.String(), metadata.GooglePlayLocalizedMetadata{}, remoteRec, Removed)...)
		}
	}

	return diffs
}

func diffFields(tag string, local, remote metadata.GooglePlayLocalizedMetadata) []MetadataDiff {
	var diffs []MetadataDiff
	fields := []struct {
		name          string
		local, remote string
	}{
		{"title", local.Title, remote.Title},
		{"short_description", local.ShortDescription, remote.ShortDescription},
		{"full_description", local.FullDescription, remote.FullDescription},
		{"video", local.VideoURL, remote.VideoURL},
	}
	for _, f := range fields {
		lv, rv := strings.TrimSpace(f.local), strings.TrimSpace(f.remote)
		if lv != rv {
			diffs = append(diffs, MetadataDiff{Locale: tag, Field: f.name, LocalValue: lv, RemoteValue: rv, ChangeType: Modified})
		}
	}
	diffs = append(diffs, diffChangelogs(tag, local.Changelogs, remote.Changelogs)...)
	return diffs
}

func diffChangelogs(tag string, local, remote map[int]string) []MetadataDiff {
	var diffs []MetadataDiff
	for code, text := range local {
		if remote[code] != text {
			diffs = append(diffs, MetadataDiff{Locale: tag, Field: "changelog:" + strconv.Itoa(code), LocalValue: text, RemoteValue: remote[code], ChangeType: Modified})
		}
	}
	for code, text := range remote {
		if _, ok := local[code]; !ok {
			diffs = append(diffs, MetadataDiff{Locale: tag, Field: "changelog:" + strconv.Itoa(code), LocalValue: "", RemoteValue: text, ChangeType: Removed})
		}
	}
	return diffs
}

func diffAllFields(tag string, local, remote metadata.GooglePlayLocalizedMetadata, changeType ChangeType) []MetadataDiff {
	fields := []struct {
		name          string
		local, remote string
	}{
		{"title", local.Title, remote.Title},
		{"short_description", local.ShortDescription, remote.ShortDescription},
		{"full_description", local.FullDescription, remote.FullDescription},
		{"video", local.VideoURL, remote.VideoURL},
	}
	var diffs []MetadataDiff
	for _, f := range fields {
		value := f.local
		if changeType == Removed {
			value = f.remote
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		diffs = append(diffs, MetadataDiff{Locale: tag, Field: f.name, LocalValue: strings.TrimSpace(f.local), RemoteValue: strings.TrimSpace(f.remote), ChangeType: changeType})
	}
	return diffs
}
