// Package fault defines the error taxonomy shared by the detection,
// regeneration, and rollback paths.
//
// Every Error here means "nothing changed": the failed operation persisted
// no partial state and is safe to retry (CONCURRENT_MODIFICATION
// explicitly so). A partially-applied failure state is unreachable by
// construction; the store's transactional AppendVersion guarantees it.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a failure.
type Code string

const (
	// CodeRetrieval: the design source was unreachable or returned a
	// malformed payload.
	CodeRetrieval Code = "RETRIEVAL_FAILED"

	// CodeGeneration: the generation collaborator failed or returned a
	// semantically invalid payload.
	CodeGeneration Code = "GENERATION_FAILED"

	// CodeUnsafeRollback: the rollback safety check rejected the target.
	// Never auto-overridden.
	CodeUnsafeRollback Code = "UNSAFE_ROLLBACK"

	// CodeConcurrentModification: the current-version pointer moved under
	// the operation. Retryable.
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"

	// CodeValidation: malformed input, e.g. an unknown artifact id.
	CodeValidation Code = "VALIDATION_FAILED"
)

// Error is a classified failure with structured fields for diagnostics.
type Error struct {
	Code       Code
	Message    string
	ArtifactID string
	VersionID  string
	Err        error // underlying cause, optional
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ArtifactID != "" {
		msg += fmt.Sprintf(" (artifact=%s", e.ArtifactID)
		if e.VersionID != "" {
			msg += fmt.Sprintf(", version=%s", e.VersionID)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retrieval wraps a design-source failure.
func Retrieval(artifactID string, err error) *Error {
	return &Error{
		Code:       CodeRetrieval,
		Message:    "design source fetch failed",
		ArtifactID: artifactID,
		Err:        err,
	}
}

// Generation wraps a generation-collaborator failure.
func Generation(artifactID string, err error) *Error {
	return &Error{
		Code:       CodeGeneration,
		Message:    "generation failed",
		ArtifactID: artifactID,
		Err:        err,
	}
}

// InvalidPayload flags a syntactically returned but semantically invalid
// generation result; treated the same as a generation failure.
func InvalidPayload(artifactID, reason string) *Error {
	return &Error{
		Code:       CodeGeneration,
		Message:    "generator returned invalid payload: " + reason,
		ArtifactID: artifactID,
	}
}

// UnsafeRollback reports a rejected rollback target.
func UnsafeRollback(artifactID, versionID, reason string) *Error {
	return &Error{
		Code:       CodeUnsafeRollback,
		Message:    reason,
		ArtifactID: artifactID,
		VersionID:  versionID,
	}
}

// ConcurrentModification reports a pointer CAS conflict after retries
// were exhausted.
func ConcurrentModification(artifactID string, err error) *Error {
	return &Error{
		Code:       CodeConcurrentModification,
		Message:    "current-version pointer moved concurrently",
		ArtifactID: artifactID,
		Err:        err,
	}
}

// Validation reports malformed input.
func Validation(message string, err error) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Err:     err,
	}
}

// is reports whether err is a fault.Error with the given code.
// Uses errors.As to handle wrapped errors.
func is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsRetrieval reports whether err is a design-source failure.
func IsRetrieval(err error) bool { return is(err, CodeRetrieval) }

// IsGeneration reports whether err is a generation failure.
func IsGeneration(err error) bool { return is(err, CodeGeneration) }

// IsUnsafeRollback reports whether err is a rejected rollback.
func IsUnsafeRollback(err error) bool { return is(err, CodeUnsafeRollback) }

// IsConcurrentModification reports whether err is a retryable CAS conflict.
func IsConcurrentModification(err error) bool { return is(err, CodeConcurrentModification) }

// IsValidation reports whether err is malformed input.
func IsValidation(err error) bool { return is(err, CodeValidation) }
