package httpclient

import (
	"net/http"
	"net/url"
)

// RequestConfig is immutable input (safe to reuse and to replay).
type RequestConfig struct {
	Method string `json:"method" yaml:"method"`
	// Path relative to the configured base URL, e.g. "/shop/cart/".
	Path  string     `json:"path" yaml:"path"`
	Query url.Values `json:"query,omitempty" yaml:"query,omitempty"`
	Body  map[string]interface{} `json:"body,omitempty" yaml:"body,omitempty"`
	// BodyType application/json, application/x-www-form-urlencoded
	BodyType string            `json:"body_type" yaml:"body_type"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// SkipAuth leaves the Authorization header off, e.g. the refresh call.
	SkipAuth bool `json:"skip_auth,omitempty" yaml:"skip_auth,omitempty"`
	// Into receives the decoded 2xx body when non-nil.
	Into any `json:"-" yaml:"-"`
}

func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		Method:   http.MethodGet,
		BodyType: "application/json",
	}
}

func (c *RequestConfig) WithMethod(method string) *RequestConfig {
	c.Method = method
	return c
}

func (c *RequestConfig) WithPath(path string) *RequestConfig {
	c.Path = path
	return c
}

func (c *RequestConfig) WithQuery(q url.Values) *RequestConfig {
	c.Query = q
	return c
}

func (c *RequestConfig) WithBody(body map[string]interface{}) *RequestConfig {
	c.Body = body
	return c
}

func (c *RequestConfig) WithHeaders(headers map[string]string) *RequestConfig {
	c.Headers = headers
	return c
}

func (c *RequestConfig) WithSkipAuth() *RequestConfig {
	c.SkipAuth = true
	return c
}

func (c *RequestConfig) WithInto(v any) *RequestConfig {
	c.Into = v
	return c
}

// NewRequest creates the per-call mutable request object. Middleware and auth
// attachment mutate the copy, never the spec, so a replay after refresh
// starts from a clean slate.
func (c *RequestConfig) NewRequest() *Request {
	r := &Request{
		Method:   c.Method,
		Path:     c.Path,
		BodyType: c.BodyType,
		SkipAuth: c.SkipAuth,
		Headers:  make(map[string]string, len(c.Headers)),
		Body:     make(map[string]any, len(c.Body)),
	}
	if c.Query != nil {
		r.Query = url.Values{}
		for k, vs := range c.Query {
			r.Query[k] = append([]string(nil), vs...)
		}
	}
	for k, v := range c.Headers {
		r.Headers[k] = v
	}
	for k, v := range c.Body {
		r.Body[k] = v
	}
	if len(r.Body) == 0 && c.Body == nil {
		r.Body = nil
	}
	return r
}

// Request is per-call mutable state.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     map[string]any
	BodyType string
	Headers  map[string]string
	SkipAuth bool
	// RequestID correlates log lines and pending-record identity.
	RequestID string
	// Finalized wire body (deterministic for tests and replays)
	BodyBytes   []byte
	ContentType string
}

func (r *Request) SetHeader(k, v string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[k] = v
}

func (r *Request) Header(k string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[k]
}
