package shopclient

import (
	"context"
	"net/http"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
	"github.com/shopuda/shopclient/utils"
)

// Login authenticates, persists the credential pair and the user record, and
// resets session-scoped state. Attempts are paced client-side.
func (s *StoreSvc) Login(ctx context.Context, username, password string) (dto.User, error) {
	if err := s.loginLimiter.Wait(ctx); err != nil {
		return dto.User{}, faults.Cancelled(err)
	}

	var result dto.LoginResult
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/accounts/user/login/").
		WithBody(map[string]interface{}{
			"username": username,
			"password": password,
		}).
		WithSkipAuth().
		WithInto(&result)

	if _, err := s.send(ctx, &spec); err != nil {
		return dto.User{}, err
	}

	user := result.User
	if err := s.creds.Set(dto.CredentialPair{
		AccessToken:  result.Access,
		RefreshToken: result.Refresh,
		Subject:      &user,
	}); err != nil {
		s.log.Warn().Err(err).Msg("persist credentials after login")
	}
	// A new identity invalidates everything derived from the old one.
	s.coord.Reset()
	s.cache.Reset()

	s.log.Debug().Str("username", user.Username).Msg("logged in")
	return user, nil
}

// Register creates an account. The caller logs in afterwards; signup does not
// mint tokens.
func (s *StoreSvc) Register(ctx context.Context, payload dto.RegisterPayload) (dto.User, error) {
	body, err := utils.ToMap(payload)
	if err != nil {
		return dto.User{}, faults.FromTransportErr(err)
	}

	var user dto.User
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/accounts/user/signup/").
		WithBody(body).
		WithSkipAuth().
		WithInto(&user)

	if _, err := s.send(ctx, &spec); err != nil {
		return dto.User{}, err
	}
	return user, nil
}

// Logout tells the server, then clears local state regardless of the
// server's answer. Local credentials never outlive an explicit logout.
func (s *StoreSvc) Logout(ctx context.Context) {
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).WithPath("/accounts/logout/")
	if _, err := s.send(ctx, &spec); err != nil {
		s.log.Debug().Err(err).Msg("server logout failed, clearing local state anyway")
	}

	if err := s.creds.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clear credentials on logout")
	}
	s.cache.Reset()
	s.coord.Reset()
}

// Profile returns the account profile through the cache.
func (s *StoreSvc) Profile(ctx context.Context) (dto.User, error) {
	return readAs[dto.User](ctx, s.cache, cache.KeyProfile)
}

// UpdateProfile saves profile changes and reconciles the cached profile and
// the persisted user record from the response.
func (s *StoreSvc) UpdateProfile(ctx context.Context, payload dto.ProfilePayload) (dto.User, error) {
	body, err := utils.ToMap(payload)
	if err != nil {
		return dto.User{}, faults.FromTransportErr(err)
	}

	var user dto.User
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPut).
		WithPath("/accounts/profile/edit/").
		WithBody(body).
		WithInto(&user)

	if _, err := s.send(ctx, &spec); err != nil {
		return dto.User{}, err
	}

	s.cache.Reconcile(ctx, cache.MutUpdateProfile, cache.KeyProfile, user)
	if pair, ok := s.creds.Get(); ok {
		pair.Subject = &user
		if err := s.creds.Set(pair); err != nil {
			s.log.Warn().Err(err).Msg("persist updated user record")
		}
	}
	return user, nil
}

func (s *StoreSvc) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/accounts/password/change/").
		WithBody(map[string]interface{}{
			"old_password": oldPassword,
			"new_password": newPassword,
		})
	_, err := s.send(ctx, &spec)
	return err
}

// CurrentUser returns the persisted last-known user without a server call.
func (s *StoreSvc) CurrentUser() (dto.User, bool) {
	pair, ok := s.creds.Get()
	if !ok || pair.Subject == nil {
		return dto.User{}, false
	}
	return *pair.Subject, true
}

func (s *StoreSvc) Authenticated() bool {
	pair, ok := s.creds.Get()
	return ok && pair.Authenticated()
}
