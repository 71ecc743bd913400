// Package errs defines the failure taxonomy shared by the translation pipeline.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindUnknown              Kind = ""
	KindConfigurationInvalid Kind = "configuration_invalid"
	KindUnauthorized         Kind = "unauthorized"
	KindRateLimited          Kind = "rate_limited"
	KindServerError          Kind = "server_error"
	KindNetworkError         Kind = "network_error"
	KindMalformedResponse    Kind = "malformed_response"
	KindAPIError             Kind = "api_error"
	KindApplyFailed          Kind = "apply_failed"
	KindNoErrorDetected      Kind = "no_error_detected"
)

// Retryable reports whether the user may simply try again.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindNetworkError:
		return true
	}
	return false
}

// NeedsConfiguration reports whether the user has to fix the configuration
// before another attempt can succeed.
func (k Kind) NeedsConfiguration() bool {
	return k == KindConfigurationInvalid || k == KindUnauthorized
}

// IsFailure is false for negative results such as NoErrorDetected.
func (k Kind) IsFailure() bool {
	return k != KindNoErrorDetected
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

// Error is the typed error returned by the pipeline components.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code when the failure came from the service.
	Status int
	// RetryAfter is the server supplied back-off for rate limited requests.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, errs.Unauthorized) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ConfigurationInvalid = &Error{Kind: KindConfigurationInvalid}
	Unauthorized         = &Error{Kind: KindUnauthorized}
	RateLimited          = &Error{Kind: KindRateLimited}
	ServerError          = &Error{Kind: KindServerError}
	NetworkError         = &Error{Kind: KindNetworkError}
	MalformedResponse    = &Error{Kind: KindMalformedResponse}
	APIError             = &Error{Kind: KindAPIError}
	ApplyFailed          = &Error{Kind: KindApplyFailed}
	NoErrorDetected      = &Error{Kind: KindNoErrorDetected}
)

// New returns an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage renders a short, log-safe summary for display. It only uses the
// kind and the component supplied message, never wrapped causes.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Translation failed unexpectedly."
	}

	var summary string
	switch e.Kind {
	case KindConfigurationInvalid:
		summary = "The translation service is not configured"
	case KindUnauthorized:
		summary = "The translation service rejected the API key"
	case KindRateLimited:
		summary = "Too many requests to the translation service"
	case KindServerError:
		summary = "The translation service had an internal error"
	case KindNetworkError:
		summary = "Could not reach the translation service"
	case KindMalformedResponse:
		summary = "The translation service returned an incomplete response"
	case KindAPIError:
		summary = "The translation service refused the request"
	case KindApplyFailed:
		summary = "The fix could not be applied"
	case KindNoErrorDetected:
		return "No error detected."
	default:
		summary = "Translation failed"
	}
	if e.Message != "" && (e.Kind == KindConfigurationInvalid || e.Kind == KindAPIError || e.Kind == KindApplyFailed) {
		summary += ": " + truncate(e.Message, 160)
	}
	summary += "."

	switch {
	case e.Kind.NeedsConfiguration():
		summary += " Check service.endpoint and service.api_key in your configuration."
	case e.Kind == KindRateLimited && e.RetryAfter > 0:
		summary += fmt.Sprintf(" Try again in %s.", e.RetryAfter.Round(time.Second))
	case e.Kind.Retryable():
		summary += " Please try again."
	case e.Kind == KindApplyFailed:
		summary += " Choose another solution or apply it manually."
	}
	return summary
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
