package twilio

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("twilio: configuration error")
	ErrValidation    = errors.New("twilio: validation error")

	// ErrClosed is returned by every operation invoked after Close.
	ErrClosed = errors.New("twilio: client is closed")

	// ErrNoMorePages is returned by NextMessageLogs on the last page.
	ErrNoMorePages = errors.New("twilio: no more pages")
)

// ConfigError reports a missing setting. It is raised before any network call.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return "twilio: " + e.Field + ": " + e.Reason
	}
	return "twilio: missing " + e.Field
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// HTTPError is a non-2xx response from the provider. Code, Message and MoreInfo
// are filled from the Twilio error body when it can be decoded.
type HTTPError struct {
	StatusCode int
	Code       int
	Message    string
	MoreInfo   string
	RequestID  string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twilio: http %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("twilio: http %d", e.StatusCode)
}

// ValidationError means a response body did not match the expected record shape.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "twilio: invalid response: " + e.Err.Error()
	}
	return "twilio: invalid " + e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var errMissing = errors.New("required field missing")

func missingField(name string) error {
	return &ValidationError{Field: name, Err: errMissing}
}
