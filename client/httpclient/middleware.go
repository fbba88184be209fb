package httpclient

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Middleware is executed before each request (and again on replay).
// Returning nil continues the chain; returning an error aborts the call.
type Middleware func(ctx context.Context, r *Request) error

// StaticHeaderMiddleware injects static headers into every request.
func StaticHeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, r *Request) error {
		for k, v := range headers {
			r.SetHeader(k, v)
		}
		return nil
	}
}

// RequestIDMiddleware stamps each call with a correlation id. Replays get a
// fresh id so server logs distinguish the original from the retry.
func RequestIDMiddleware() Middleware {
	return func(ctx context.Context, r *Request) error {
		r.RequestID = uuid.NewString()
		r.SetHeader("X-Request-ID", r.RequestID)
		return nil
	}
}

func LoggingMiddleware(log zerolog.Logger) Middleware {
	return func(ctx context.Context, r *Request) error {
		log.Debug().Str("method", r.Method).Str("path", r.Path).Str("request_id", r.RequestID).Msg("dispatch")
		return nil
	}
}
