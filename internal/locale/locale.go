// Package locale parses and validates the BCP-47-style locale tags used as
// keys throughout Canaveral's metadata maps (e.g. "en-US", "ja").
package locale

import (
	"regexp"
	"strings"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

// tagPattern accepts a primary language subtag (2-3 letters) optionally
// followed by a region or script subtag. This is intentionally looser than
// full BCP-47 (no extension/variant subtags) since store APIs only ever
// emit the short form.
var tagPattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})?$`)

// Tag is a validated locale identifier, normalized to the casing the
// stores themselves use (lowercase language, uppercase region).
type Tag string

// Parse validates raw as a locale tag and returns its normalized form.
// Returns an InvalidArgument error for malformed tags.
func Parse(raw string) (Tag, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", cerrors.InvalidArgumentf("empty locale tag")
	}
	if !tagPattern.MatchString(raw) {
		return "", cerrors.InvalidArgumentf("invalid locale tag %q", raw)
	}
	parts := strings.SplitN(raw, "-", 2)
	lang := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return Tag(lang), nil
	}
	region := strings.ToUpper(parts[1])
	return Tag(lang + "-" + region), nil
}

// MustParse is Parse but panics on error; for tests and static literals.
func MustParse(raw string) Tag {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Valid reports whether raw parses as a locale tag.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// String returns the tag's normalized text form.
func (t Tag) String() string {
	return string(t)
}
