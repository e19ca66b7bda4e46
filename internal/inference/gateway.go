// Package inference provides the gateway to the external structured
// inference capability. Callers describe an extraction task and receive a
// schema-validated response or a typed error; no stage downstream ever sees
// an unvalidated object.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "TIMEOUT"
	KindRateLimited      ErrorKind = "RATE_LIMITED"
	KindTransient        ErrorKind = "TRANSIENT_UPSTREAM"
	KindSchemaValidation ErrorKind = "SCHEMA_VALIDATION"
	KindFatal            ErrorKind = "FATAL"
)

// Error is the typed gateway error. Only Timeout, RateLimited and
// TransientUpstream are retriable by callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retriable reports whether a caller may retry the failed call.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindTransient:
		return true
	}
	return false
}

// IsRetriable reports whether err is a retriable gateway error.
func IsRetriable(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Retriable()
}

// KindOf extracts the error kind, defaulting to Fatal for foreign errors.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindFatal
}

// MediaPart is one media attachment, carried as a data URI.
type MediaPart struct {
	DataURI string `json:"data_uri"`
}

// Request describes one extraction call: a task name the backend routes on,
// an instruction, and optional media.
type Request struct {
	Task        string      `json:"task"`
	Instruction string      `json:"instruction"`
	Media       []MediaPart `json:"media,omitempty"`
}

// Gateway is the uniform call contract to the inference capability. Extract
// decodes the response into out and validates it against out's constraint
// tags; on any validation failure the caller gets a SchemaValidation error,
// never a partially typed object.
type Gateway interface {
	Extract(ctx context.Context, req *Request, out any) error
}

var validate = validator.New()

// checkSchema validates a decoded response struct. Shared by the HTTP and
// mock clients so both honor the same contract.
func checkSchema(out any) error {
	if err := validate.Struct(out); err != nil {
		return &Error{Kind: KindSchemaValidation, Message: "response violates schema", Cause: err}
	}
	return nil
}
