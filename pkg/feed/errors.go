package feed

import (
	"errors"
	"fmt"
)

// fetch error kinds
const (
	KindTimeout           = "timeout"
	KindHTTPStatus        = "http_status"
	KindConnectionRefused = "connection_refused"
	KindTooLarge          = "too_large"
)

// parse error kinds
const (
	KindMalformedXML         = "malformed_xml"
	KindMalformedJSON        = "malformed_json"
	KindMissingRequiredField = "missing_required_field"
)

// errPermanent is matched by non-retryable fetch errors and stops the repeater
var errPermanent = errors.New("permanent fetch error")

// FetchError is a failure of a logical fetch
type FetchError struct {
	Kind       string
	URL        string
	StatusCode int // set for KindHTTPStatus
	Err        error
	permanent  bool
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: %s %d", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports non-retryable errors as errPermanent
func (e *FetchError) Is(target error) bool {
	return target == errPermanent && e.permanent
}

// ErrorKind returns the taxonomy kind of the error
func (e *FetchError) ErrorKind() string { return e.Kind }

// Retryable reports whether another attempt may succeed
func (e *FetchError) Retryable() bool { return !e.permanent }

// ParseError is a failure to decode a payload or a rejected entry
type ParseError struct {
	Kind  string
	Field string // set for KindMissingRequiredField
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("parse: %s %q", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("parse: %s: %v", e.Kind, e.Err)
	default:
		return "parse: " + e.Kind
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorKind returns the taxonomy kind of the error
func (e *ParseError) ErrorKind() string { return e.Kind }
