package cerrors

import "errors"

// JSONError is the `error` object in the `{ok:false, error:{...}}` envelope
// emitted by `--format=json` on failure.
type JSONError struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// JSONEnvelope is the top-level `{ok, error?}` shape written to stdout when
// --format=json is active, regardless of which command failed.
type JSONEnvelope struct {
	OK    bool       `json:"ok"`
	Error *JSONError `json:"error,omitempty"`
}

// ToJSONEnvelope converts err into the JSON failure envelope. If err is not
// a *Error, it is reported as Unknown with its plain message.
func ToJSONEnvelope(err error) JSONEnvelope {
	if err == nil {
		return JSONEnvelope{OK: true}
	}
	kind := KindOf(err)
	return JSONEnvelope{
		OK: false,
		Error: &JSONError{
			Kind:    kind.String(),
			Message: err.Error(),
			Context: contextOf(err),
		},
	}
}

func contextOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Context
	}
	return nil
}
