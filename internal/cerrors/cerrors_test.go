package cerrors

import (
	"errors"
	"testing"
)

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Unknown {
		t.Fatalf("KindOf(plain error) = %v, want Unknown", got)
	}
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Network, cause, "upload failed")

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	if KindOf(err) != Network {
		t.Fatalf("KindOf(err) = %v, want Network", KindOf(err))
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := New(PermissionDenied, "missing role")
	extended := base.WithContext("role", "Signer")

	if len(base.Context) != 0 {
		t.Fatalf("base.Context = %v, want empty", base.Context)
	}
	if extended.Context["role"] != "Signer" {
		t.Fatalf("extended.Context[role] = %v, want Signer", extended.Context["role"])
	}
}

func TestApiErrorCarriesStatusAndBody(t *testing.T) {
	err := ApiError(429, `{"error":"too many requests"}`)

	if err.Kind != Api {
		t.Fatalf("Kind = %v, want Api", err.Kind)
	}
	if err.Context["status"] != 429 {
		t.Fatalf("Context[status] = %v, want 429", err.Context["status"])
	}
}

func TestValidationFailedErrorSingleIssue(t *testing.T) {
	err := ValidationFailedError([]ValidationIssue{{Field: "name", Message: "exceeds 30 characters"}})

	if err.Kind != ValidationFailed {
		t.Fatalf("Kind = %v, want ValidationFailed", err.Kind)
	}
	if err.Error() != "validation failed: name exceeds 30 characters" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestCycleDetectedErrorNamesMembers(t *testing.T) {
	err := CycleDetectedError([]string{"core", "utils"})

	if err.Kind != CycleDetected {
		t.Fatalf("Kind = %v, want CycleDetected", err.Kind)
	}
	members, ok := err.Context["members"].([]string)
	if !ok || len(members) != 2 {
		t.Fatalf("Context[members] = %v", err.Context["members"])
	}
}

func TestToJSONEnvelopeSuccess(t *testing.T) {
	env := ToJSONEnvelope(nil)
	if !env.OK || env.Error != nil {
		t.Fatalf("ToJSONEnvelope(nil) = %+v, want ok with no error", env)
	}
}

func TestToJSONEnvelopeFailure(t *testing.T) {
	err := New(NotFound, "identity not found")
	env := ToJSONEnvelope(err)

	if env.OK {
		t.Fatalf("env.OK = true, want false")
	}
	if env.Error.Kind != "not_found" {
		t.Fatalf("env.Error.Kind = %q, want not_found", env.Error.Kind)
	}
}

func TestIsHelper(t *testing.T) {
	err := NotFoundf("identity %q not found", "abc")
	if !Is(err, NotFound) {
		t.Fatalf("Is(err, NotFound) = false")
	}
	if Is(err, Timeout) {
		t.Fatalf("Is(err, Timeout) = true, want false")
	}
}
