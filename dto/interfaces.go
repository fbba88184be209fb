package dto

import "context"

// CredentialStore owns the persisted credential pair. Implementations must be
// safe for concurrent use; the refresh coordinator and explicit login/logout
// are the only writers.
type CredentialStore interface {
	Get() (CredentialPair, bool)
	Set(pair CredentialPair) error
	Clear() error
}

// CredentialSource supplies a bearer token without going through the login
// flow, e.g. an oauth2.TokenSource adapter for service integrations.
// A configured source takes precedence over the stored pair.
type CredentialSource interface {
	BearerToken(ctx context.Context) (string, error)
}
