// Package apperr defines the error kinds that HTTP handlers translate into status codes.
package apperr

import "errors"

// ValidationError reports bad caller input. Handlers surface it as 400 with Message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError with the given message.
func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// LookupError is returned when a user identity cannot be resolved.
type LookupError struct {
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// UploadFailure is returned when a storage backend rejects an upload.
// Message is safe to show to callers; Err holds the backend error for logs.
type UploadFailure struct {
	Message string
	Err     error
}

func (e *UploadFailure) Error() string {
	return e.Message
}

func (e *UploadFailure) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsLookup reports whether err is or wraps a LookupError.
func IsLookup(err error) bool {
	var l *LookupError
	return errors.As(err, &l)
}

// IsUploadFailure reports whether err is or wraps an UploadFailure.
func IsUploadFailure(err error) bool {
	var u *UploadFailure
	return errors.As(err, &u)
}
