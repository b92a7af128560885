// Package extapi defines the error taxonomy shared by the third-party platform
// adapters. Adapters translate HTTP responses into *Error exactly once, so the
// core never inspects status codes or upstream message text.
package extapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed set of upstream failure classes.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindUnknown      Kind = "unknown"
)

// Error is a classified failure returned by a platform adapter.
type Error struct {
	// Platform names the upstream system ("tito", "mailchimp", "hub").
	Platform string
	Kind     Kind
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int
	// RetryAfter is the server hint for RateLimited errors, 0 if absent.
	RetryAfter time.Duration
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Platform, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Kind, e.Message)
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Platform == "" || t.Platform == e.Platform)
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsRateLimited(err error) bool  { return KindOf(err) == KindRateLimited }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// RetryAfterOf returns the retry hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// KindForStatus maps an HTTP status onto the default kind. Adapters refine
// the result with platform-specific body inspection.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusConflict:
		return KindConflict
	case code >= 400 && code < 500:
		return KindValidation
	default:
		return KindUnknown
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// FromResponse builds an Error for a non-2xx response using the status mapping.
func FromResponse(platform string, resp *http.Response, message string) *Error {
	e := &Error{
		Platform:   platform,
		Kind:       KindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
	if e.Kind == KindRateLimited {
		e.RetryAfter = ParseRetryAfter(resp.Header, time.Now())
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// Transport wraps a failure to reach the platform at all.
func Transport(platform string, err error) *Error {
	return &Error{Platform: platform, Kind: KindUnknown, Message: err.Error()}
}
