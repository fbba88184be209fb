package dto

// CredentialPair is the stored access/refresh token pair plus the last known
// user. AccessToken empty means unauthenticated; RefreshToken outlives
// AccessToken and is only consumed by the refresh flow.
type CredentialPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	Subject      *User  `json:"user,omitempty"`
}

func (p CredentialPair) Authenticated() bool {
	return p.AccessToken != ""
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// RefreshResult is the body of a successful token refresh.
type RefreshResult struct {
	Access string `json:"access"`
}
