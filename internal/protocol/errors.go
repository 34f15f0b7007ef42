package protocol

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed decode errors through errors.Is.
var (
	ErrUnknownKind          = errors.New("unknown message kind")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrInvalidEnumValue     = errors.New("invalid enum value")
	ErrConstructionRejected = errors.New("construction rejected")
)

// UnknownKindError reports a wire type token outside the catalog.
type UnknownKindError struct {
	Token string
}

// Error implements error.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown message kind %q", e.Token)
}

// Is matches ErrUnknownKind.
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// MalformedPayloadError reports a required field that is missing, null or of
// the wrong JSON type, or an optional field of the wrong shape.
type MalformedPayloadError struct {
	Kind   MessageKind
	Field  string
	Reason string
}

// Error implements error.
func (e *MalformedPayloadError) Error() string {
	if e.Kind.Valid() {
		return fmt.Sprintf("malformed %s payload: field %q %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed frame: field %q %s", e.Field, e.Reason)
}

// Is matches ErrMalformedPayload.
func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// InvalidEnumValueError reports a present field whose value is outside its
// closed vocabulary.
type InvalidEnumValueError struct {
	Kind  MessageKind
	Field string
	Got   string
}

// Error implements error.
func (e *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("%s payload: field %q has invalid value %q", e.Kind, e.Field, e.Got)
}

// Is matches ErrInvalidEnumValue.
func (e *InvalidEnumValueError) Is(target error) bool {
	return target == ErrInvalidEnumValue
}

// ConstructionRejectedError reports a well-typed canonical record that the
// internal session description or candidate constructor refused.
type ConstructionRejectedError struct {
	Target string
	Err    error
}

// Error implements error.
func (e *ConstructionRejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %v", e.Target, e.Err)
}

// Is matches ErrConstructionRejected.
func (e *ConstructionRejectedError) Is(target error) bool {
	return target == ErrConstructionRejected
}

// Unwrap returns the constructor error.
func (e *ConstructionRejectedError) Unwrap() error {
	return e.Err
}
