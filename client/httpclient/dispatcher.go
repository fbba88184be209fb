package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopuda/shopclient/config"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
)

// Client is the request dispatcher: it attaches the current access
// credential, runs the middleware chain, issues the transport call with the
// configured timeout, and returns either a 2xx response or a classified
// *faults.Failure. It never refreshes tokens itself; a 401 comes back as
// faults.KindUnauthorized for the refresh coordinator to handle.
type Client struct {
	cfg         *config.SvcConfig
	creds       dto.CredentialStore
	source      dto.CredentialSource
	middlewares []Middleware
	client      *http.Client
	log         zerolog.Logger
}

func NewClient(cfg *config.SvcConfig, creds dto.CredentialStore, mws ...Middleware) *Client {
	chain := []Middleware{
		StaticHeaderMiddleware(cfg.ExtraHeaders),
		RequestIDMiddleware(),
		LoggingMiddleware(cfg.Logger),
	}
	chain = append(chain, mws...)

	return &Client{
		cfg:         cfg,
		creds:       creds,
		source:      cfg.Source,
		middlewares: chain,
		log:         cfg.Logger,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableKeepAlives:   false,
				Proxy:               http.ProxyFromEnvironment,
			},
		},
	}
}

// Send executes one call. The error, when non-nil, is always a
// *faults.Failure; expected HTTP failures do not panic or wrap raw transport
// errors directly.
func (c *Client) Send(ctx context.Context, spec *RequestConfig) (dto.Response, error) {
	req := spec.NewRequest()

	for _, mw := range c.middlewares {
		if err := mw(ctx, req); err != nil {
			return dto.Response{}, faults.FromTransportErr(fmt.Errorf("middleware aborted: %w", err))
		}
	}

	if !req.SkipAuth {
		if err := c.attachAuth(ctx, req); err != nil {
			return dto.Response{}, err
		}
	}

	if err := req.FinalizeBody(); err != nil {
		return dto.Response{}, faults.FromTransportErr(err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		req.Method,
		c.buildURL(req),
		bytes.NewReader(req.BodyBytes),
	)
	if err != nil {
		return dto.Response{}, faults.FromTransportErr(fmt.Errorf("create request: %w", err))
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	// Defensive client.Do handling, httpResp may be non-nil with error
	httpResp, reqErr := c.client.Do(httpReq)
	if httpResp != nil {
		defer func() {
			io.Copy(io.Discard, httpResp.Body) // drain fully for connection reuse
			httpResp.Body.Close()
		}()
	}
	if reqErr != nil {
		return dto.Response{}, faults.FromTransportErr(reqErr)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return dto.Response{}, faults.FromTransportErr(fmt.Errorf("read body: %w", err))
	}

	response := dto.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       bodyBytes,
	}

	if !response.IsSuccess() {
		failure := faults.Classify(response)
		c.log.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", response.StatusCode).
			Str("kind", string(failure.Kind)).
			Msg("request failed")
		return response, failure
	}

	if spec.Into != nil {
		if err := response.Decode(spec.Into); err != nil {
			return response, faults.FromTransportErr(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return response, nil
}

// attachAuth resolves the bearer credential. A configured CredentialSource
// takes precedence over the stored pair, matching the precedence rule for
// non-interactive integrations.
func (c *Client) attachAuth(ctx context.Context, req *Request) error {
	if c.source != nil {
		token, err := c.source.BearerToken(ctx)
		if err != nil {
			return faults.FromTransportErr(fmt.Errorf("credential source: %w", err))
		}
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	}

	if pair, ok := c.creds.Get(); ok {
		req.SetHeader("Authorization", "Bearer "+pair.AccessToken)
	}
	return nil
}

func (c *Client) buildURL(req *Request) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	u := base + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}
