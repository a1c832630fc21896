// Package validate implements the per-platform metadata rule engines:
// field length limits, URL shape checks, screenshot dimension allow-lists,
// and locale handling for Apple App Store and Google Play listings.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Severity classifies a ValidationIssue.
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
	SeverityInfo    Severity = "Info"
)

// Issue is one field-level finding.
type Issue struct {
	Severity   Severity
	Field      string
	Message    string
	Suggestion string
}

// Result is the full outcome of validating one metadata record.
type Result struct {
	Issues []Issue
	Strict bool // when true, Errors() also includes Warning-severity issues
}

// Errors returns every issue that counts as a hard failure: always
// Error-severity, plus Warning-severity when Strict promotes them.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.Severity == SeverityError || (r.Strict && iss.Severity == SeverityWarning) {
			out = append(out, iss)
		}
	}
	return out
}

// Warnings returns every Warning-severity issue.
func (r Result) Warnings() []Issue {
	return r.bySeverity(SeverityWarning)
}

// Infos returns every Info-severity issue.
func (r Result) Infos() []Issue {
	return r.bySeverity(SeverityInfo)
}

func (r Result) bySeverity(s Severity) []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.Severity == s {
			out = append(out, iss)
		}
	}
	return out
}

// charCount counts s in Unicode code points: every code point is one
// character, the way the stores themselves count limits.
func charCount(s string) int {
	return utf8.RuneCountInString(s)
}

func hasNewline(s string) bool {
	return strings.ContainsAny(s, "\n\r")
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func trimmedDiffers(s string) bool {
	return s != strings.TrimSpace(s)
}

// errorf appends an Error-severity issue.
func (r *Result) errorf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityError, Field: field, Message: sprintf(format, args...)})
}

func (r *Result) warnf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityWarning, Field: field, Message: sprintf(format, args...)})
}

func (r *Result) infof(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityInfo, Field: field, Message: sprintf(format, args...)})
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
