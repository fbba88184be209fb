package faults

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/utils"
)

// Kind is the closed set of failure classes the client surfaces.
type Kind string

const (
	// KindTransport network unreachable, timeout, malformed response.
	KindTransport Kind = "transport"
	// KindUnauthorized 401 on a normal request; handled by the refresh flow.
	KindUnauthorized Kind = "unauthorized"
	// KindSessionExpired refresh failed or a replayed request got 401 again.
	KindSessionExpired Kind = "session_expired"
	// KindValidation 4xx carrying field errors or a rejection detail.
	KindValidation Kind = "validation"
	// KindConflict state conflict, e.g. stock unavailable at checkout.
	KindConflict Kind = "conflict"
	// KindServerError any 5xx.
	KindServerError Kind = "server_error"
	// KindCancelled caller cancelled before resolution.
	KindCancelled Kind = "cancelled"
)

const (
	genericTransportMsg = "네트워크 연결을 확인해주세요."
	genericServerMsg    = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	sessionExpiredMsg   = "로그인이 만료되었습니다. 다시 로그인해주세요."
	throttledMsg        = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
)

// Failure is the typed error produced by the dispatcher and coordinator.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	// UserVisible marks failures whose Message is meant for a toast.
	// SessionExpired is user-relevant but handled by redirect, not toast.
	UserVisible bool
	// Fields carries per-field validation messages when the server sent any.
	Fields map[string]string
	// RetryAfter is the server's throttle hint on a 429, zero otherwise.
	RetryAfter time.Duration
	cause      error
}

func (f *Failure) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.cause }

// Terminal reports whether the failure ends the session.
func (f *Failure) Terminal() bool { return f.Kind == KindSessionExpired }

// KindOf extracts the failure kind from an error chain, or "" if the error is
// not a classified Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SessionExpired builds the terminal failure surfaced when the refresh
// credential itself is rejected.
func SessionExpired(cause error) *Failure {
	return &Failure{
		Kind:        KindSessionExpired,
		Status:      http.StatusUnauthorized,
		Message:     sessionExpiredMsg,
		UserVisible: false,
		cause:       cause,
	}
}

// Cancelled builds the caller-initiated outcome. It is the only kind callers
// may swallow silently.
func Cancelled(cause error) *Failure {
	return &Failure{Kind: KindCancelled, Message: "request cancelled", cause: cause}
}

// FromTransportErr converts a transport-level error (client.Do, body read)
// into a Failure. Context cancellation maps to Cancelled, everything else to
// Transport, including deadline exceeded.
func FromTransportErr(err error) *Failure {
	if errors.Is(err, context.Canceled) {
		return Cancelled(err)
	}
	return &Failure{
		Kind:        KindTransport,
		Message:     genericTransportMsg,
		UserVisible: true,
		cause:       err,
	}
}

// Classify maps a non-2xx response into the closed taxonomy. It is a pure
// function of the response; side effects (toast, redirect, invalidation) are
// the caller's decision.
func Classify(resp dto.Response) *Failure {
	detail := extractDetail(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Failure{
			Kind:        KindUnauthorized,
			Status:      resp.StatusCode,
			Message:     orDefault(detail, "unauthorized"),
			UserVisible: false,
		}
	case resp.StatusCode == http.StatusConflict:
		return &Failure{
			Kind:        KindConflict,
			Status:      resp.StatusCode,
			Message:     orDefault(detail, genericServerMsg),
			UserVisible: true,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Failure{
			Kind:        KindValidation,
			Status:      resp.StatusCode,
			Message:     orDefault(detail, throttledMsg),
			UserVisible: true,
			RetryAfter:  retryAfterHint(resp.Headers),
		}
	case resp.StatusCode >= 500:
		return &Failure{
			Kind:        KindServerError,
			Status:      resp.StatusCode,
			Message:     genericServerMsg,
			UserVisible: true,
		}
	case resp.StatusCode >= 400:
		return &Failure{
			Kind:        KindValidation,
			Status:      resp.StatusCode,
			Message:     orDefault(detail, "request rejected"),
			UserVisible: true,
			Fields:      extractFieldErrors(resp.Body),
		}
	default:
		// Unexpected status outside 2xx/4xx/5xx, treat as server side.
		return &Failure{
			Kind:        KindServerError,
			Status:      resp.StatusCode,
			Message:     genericServerMsg,
			UserVisible: true,
		}
	}
}

// extractDetail pulls a human message out of whatever error body the server
// produced. DRF uses "detail", some endpoints use "message" or "error".
func extractDetail(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// extractFieldErrors flattens DRF-style {"field": ["msg", ...]} bodies.
func extractFieldErrors(body []byte) map[string]string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil
	}

	fields := map[string]string{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		switch {
		case key.Str == "detail" || key.Str == "message" || key.Str == "error":
			// top-level message, not a field error
		case value.IsArray():
			msgs := make([]string, 0, 2)
			value.ForEach(func(_, item gjson.Result) bool {
				if item.Type == gjson.String {
					msgs = append(msgs, item.Str)
				}
				return true
			})
			if len(msgs) > 0 {
				fields[key.Str] = strings.Join(msgs, " ")
			}
		case value.Type == gjson.String:
			fields[key.Str] = value.Str
		}
		return true
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// retryAfterHint parses a delay-seconds Retry-After header. The HTTP-date
// form is rare enough from DRF throttling to ignore.
func retryAfterHint(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}
	secs, err := strconv.Atoi(headers.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Retryable reports whether the caller may reasonably retry on its own.
// Nothing is retried automatically.
func Retryable(err error) bool {
	if Is(err, KindTransport) {
		return utils.IsTemporaryErr(errors.Unwrap(errAsFailure(err)))
	}
	if f := errAsFailure(err); f != nil && f.Status == http.StatusTooManyRequests {
		return true
	}
	return false
}

func errAsFailure(err error) *Failure {
	var f *Failure
	errors.As(err, &f)
	return f
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
