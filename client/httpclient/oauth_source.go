package httpclient

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuthSource adapts an oauth2.TokenSource to the dispatcher's credential
// source contract, for integrations that authenticate outside the storefront
// login flow. The TokenSource handles its own renewal.
type OAuthSource struct {
	Source oauth2.TokenSource
}

func NewOAuthSource(ts oauth2.TokenSource) *OAuthSource {
	return &OAuthSource{Source: ts}
}

func (s *OAuthSource) BearerToken(ctx context.Context) (string, error) {
	tok, err := s.Source.Token()
	if err != nil {
		return "", fmt.Errorf("oauth2 token fetch: %w", err)
	}
	return tok.AccessToken, nil
}
