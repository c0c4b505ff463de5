package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindUnknown is never produced by this module; it is the zero value.
	KindUnknown Kind = iota
	// KindTransport indicates a connection or DNS failure.
	KindTransport
	// KindTimeout indicates a connect or request deadline was exceeded.
	KindTimeout
	// KindHTTPStatus indicates a non-2xx response from the API.
	KindHTTPStatus
	// KindSerialization indicates a malformed request or response body.
	KindSerialization
	// KindIO indicates a local file could not be read.
	KindIO
	// KindConfiguration indicates invalid retry, timeout or client settings.
	KindConfiguration
	// KindInvalidInput indicates a request that cannot be built from the given inputs.
	KindInvalidInput
	// KindAuth indicates a missing or rejected API token.
	KindAuth
	// KindPrediction indicates a prediction that finished as failed or canceled.
	KindPrediction
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http status"
	case KindSerialization:
		return "serialization"
	case KindIO:
		return "io"
	case KindConfiguration:
		return "configuration"
	case KindInvalidInput:
		return "invalid input"
	case KindAuth:
		return "auth"
	case KindPrediction:
		return "prediction"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this kind are ever eligible for a retry.
func (k Kind) Retryable() bool {
	return k == KindTransport || k == KindTimeout || k == KindHTTPStatus
}

// Error is the single error type surfaced by the client.
type Error struct {
	Kind       Kind
	Op         string // e.g. "POST /v1/files"
	StatusCode int    // 0 unless the API answered
	Message    string
	Detail     string // raw response body or extra context
	Attempts   int    // 0 when no request was dispatched
	GaveUp     bool   // the retry budget ran out on a retryable failure
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("replicate: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.GaveUp {
		if e.Attempts == 1 {
			b.WriteString(": giving up after 1 attempt")
		} else {
			fmt.Fprintf(&b, ": giving up after %d attempts", e.Attempts)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and StatusCode when the target sets one),
// so errors.Is(err, &Error{Kind: KindTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != KindUnknown && t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Exhausted reports whether the request failed because the retry budget ran
// out, as opposed to a failure that was never eligible for another attempt.
func (e *Error) Exhausted() bool {
	return e.GaveUp
}

// IsNotFound checks if the error indicates a not found response
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *Error) IsUnauthorized() bool {
	return e.Kind == KindAuth || e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited checks if the API throttled the request
func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// New creates an Error of the given kind.
func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Configuration returns a KindConfiguration error.
func Configuration(op, message string) *Error {
	return New(KindConfiguration, op, message, nil)
}

// InvalidInput returns a KindInvalidInput error.
func InvalidInput(op, message string) *Error {
	return New(KindInvalidInput, op, message, nil)
}

// IO wraps a local file error.
func IO(op string, err error) *Error {
	return New(KindIO, op, "", err)
}

// Serialization wraps an encode or decode failure.
func Serialization(op string, err error) *Error {
	return New(KindSerialization, op, "", err)
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// FromResponse maps an API response status and body to an Error.
func FromResponse(op string, status int, body []byte) *Error {
	detail := strings.TrimSpace(string(body))
	e := &Error{
		Kind:       KindHTTPStatus,
		Op:         op,
		StatusCode: status,
		Detail:     detail,
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind, e.Message = KindAuth, "invalid API token"
	case status == http.StatusPaymentRequired:
		e.Kind, e.Message = KindAuth, "insufficient credits"
	case status == http.StatusForbidden:
		e.Kind, e.Message = KindAuth, "forbidden"
	case status == http.StatusNotFound:
		e.Message = "resource not found"
	case status == http.StatusUnprocessableEntity:
		e.Message = "validation error"
	case status == http.StatusTooManyRequests:
		e.Message = "rate limit exceeded"
	case status >= 500:
		e.Message = "server error"
	}

	if msg := apiDetail(body); msg != "" {
		if e.Message == "" {
			e.Message = msg
		} else {
			e.Message += ": " + msg
		}
	} else if e.Message == "" {
		e.Message = detail
	}
	return e
}

// apiDetail extracts the "detail" field the API puts in error bodies.
func apiDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Title
}
