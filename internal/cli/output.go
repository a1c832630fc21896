// Package cli handles command-line interface concerns.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

// Exit codes: 0 success, 1 generic failure, 2 invalid arguments, 3
// validation failed.
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitInvalidArgument = 2
	ExitValidationError = 3
)

// Result is the payload a subcommand hands back to the dispatcher: either
// a JSON-serializable document (on success) or an error. PrintResult
// renders it in text or --format=json form and maps it to an exit code.
type Result struct {
	Data any
}

// PrintResult renders result/err to stdout/stderr in the format selected
// by format ("" for text, "json" for the stable JSON document), and
// returns the process exit code.
func PrintResult(format string, result any, err error) int {
	if format == "json" {
		return printJSON(result, err)
	}
	return printText(result, err)
}

func printJSON(result any, err error) int {
	if err != nil {
		envelope := cerrors.ToJSONEnvelope(err)
		enc, _ := json.MarshalIndent(envelope, "", "  ")
		fmt.Println(string(enc))
		return exitCodeFor(err)
	}
	envelope := struct {
		OK   bool `json:"ok"`
		Data any  `json:"data,omitempty"`
	}{OK: true, Data: result}
	enc, _ := json.MarshalIndent(envelope, "", "  ")
	fmt.Println(string(enc))
	return ExitSuccess
}

func printText(result any, err error) int {
	if err != nil {
		ui.PrintError(err.Error())
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// exitCodeFor maps an error's taxonomy Kind to one of the three
// non-zero exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch cerrors.KindOf(err) {
	case cerrors.InvalidArgument:
		return ExitInvalidArgument
	case cerrors.ValidationFailed:
		return ExitValidationError
	default:
		return ExitFailure
	}
}

// Fatalf prints a formatted error in the current format and exits with
// ExitInvalidArgument; used for argument-parsing failures before a
// subcommand has had a chance to run.
func Fatalf(format string, jsonMode bool, msg string, args ...any) int {
	err := cerrors.InvalidArgumentf(msg, args...)
	return PrintResult(format, nil, err)
}

// exitOnError is a convenience used by subcommand handlers that print
// their own success output (via ui.Print*) and only need PrintResult for
// the failure path.
func exitOnError(format string, err error) int {
	if err == nil {
		return ExitSuccess
	}
	return PrintResult(format, nil, err)
}
