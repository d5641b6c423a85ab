package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing signals absent connection or mapping configuration.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrResponseIsError signals a well-formed upstream response that reports an error.
	ErrResponseIsError = errors.New("search response is an error")
	// ErrMalformedResponse signals a response that violates the search protocol.
	ErrMalformedResponse = errors.New("malformed search response")
	// ErrRecordResolution signals a search result whose backing record cannot be loaded.
	ErrRecordResolution = errors.New("record resolution failed")
	// ErrSuggestion signals a failure anywhere in the spelling suggestion path.
	ErrSuggestion = errors.New("spelling suggestion failed")
	// ErrClickthroughLogging signals a failure registering a clickthrough upstream.
	ErrClickthroughLogging = errors.New("clickthrough logging failed")
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrUpstream signals a transport-level failure talking to a search service.
	ErrUpstream = errors.New("upstream search service error")
)

// MalformedResponseError wraps ErrMalformedResponse with the offending field.
type MalformedResponseError struct {
	Field  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedResponse.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedResponse.Error(), e.Field, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// NewMalformed creates a malformed response error for field.
func NewMalformed(field, reason string) error {
	return &MalformedResponseError{Field: field, Reason: reason}
}
