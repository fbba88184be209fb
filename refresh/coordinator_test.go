package refresh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/config"
	"github.com/shopuda/shopclient/credstore"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
)

// authServer fakes the gateway: protected paths demand the current access
// token, the refresh endpoint swaps r1 for the next access token.
type authServer struct {
	t *testing.T

	mu           sync.Mutex
	accepted     string   // access token the protected endpoints accept
	served       []string // protected paths served with a valid token, in order
	authHeaders  []string // Authorization headers seen on protected paths
	refreshCalls atomic.Int64
	refreshFails bool
	rejectAll    bool          // protected paths 401 no matter the token
	refreshGate  chan struct{} // non-nil: refresh blocks until closed

	srv *httptest.Server
}

func newAuthServer(t *testing.T, accepted string) *authServer {
	t.Helper()
	a := &authServer{t: t, accepted: accepted}
	a.srv = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.srv.Close)
	return a
}

func (a *authServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == DefaultRefreshPath {
		a.refreshCalls.Add(1)
		if gate := a.refreshGate; gate != nil {
			<-gate
		}
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if a.refreshFails || body.Refresh != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"refresh token expired"}`))
			return
		}
		a.mu.Lock()
		a.accepted = "a2"
		a.mu.Unlock()
		w.Write([]byte(`{"access":"a2"}`))
		return
	}

	a.mu.Lock()
	accepted := a.accepted
	a.authHeaders = append(a.authHeaders, r.Header.Get("Authorization"))
	a.mu.Unlock()

	if a.rejectAll || r.Header.Get("Authorization") != "Bearer "+accepted {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
		return
	}

	a.mu.Lock()
	a.served = append(a.served, r.URL.Path)
	a.mu.Unlock()
	w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
}

func (a *authServer) servedPaths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.served...)
}

func newCoordinator(t *testing.T, baseURL string, creds dto.CredentialStore) *Coordinator {
	t.Helper()
	cfg := config.DefaultSvcConfig()
	cfg.WithBaseURL(baseURL).WithLogger(zerolog.Nop())
	sender := httpclient.NewClient(&cfg, creds)
	return NewCoordinator(sender, creds, zerolog.Nop())
}

func seedCreds(t *testing.T, access string) *credstore.Store {
	t.Helper()
	creds := credstore.New("", zerolog.Nop())
	require.NoError(t, creds.Set(dto.CredentialPair{AccessToken: access, RefreshToken: "r1"}))
	return creds
}

func getPath(t *testing.T, coord *Coordinator, ctx context.Context, path string) (dto.Response, error) {
	t.Helper()
	spec := httpclient.DefaultRequestConfig()
	spec.WithPath(path)
	return coord.Do(ctx, &spec)
}

func TestCoordinator_SingleFlightRefresh(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t, "a2") // a1 is already expired
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = getPath(t, coord, context.Background(), "/shop/cart/")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d", i)
	}
	require.Equal(t, int64(1), srv.refreshCalls.Load(), "exactly one refresh call")
	require.Len(t, srv.servedPaths(), n)

	pair, ok := creds.Get()
	require.True(t, ok)
	require.Equal(t, "a2", pair.AccessToken)
	require.Equal(t, "r1", pair.RefreshToken, "refresh token outlives the access token")
	require.Equal(t, StateIdle, coord.State())
}

func TestCoordinator_NoSecondRefreshAfterReplay(t *testing.T) {
	t.Parallel()

	// Protected endpoints reject everything, even the refreshed token.
	srv := newAuthServer(t, "a2")
	srv.rejectAll = true
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	_, err := getPath(t, coord, context.Background(), "/shop/cart/")
	require.Equal(t, faults.KindSessionExpired, faults.KindOf(err))
	require.Equal(t, int64(1), srv.refreshCalls.Load(), "replayed 401 must not refresh again")
}

func TestCoordinator_ReplayOrderingAndIdentity(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t, "a2")
	srv.refreshGate = make(chan struct{})
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	resA := make(chan dto.Response, 1)
	resB := make(chan dto.Response, 1)

	go func() {
		resp, err := getPath(t, coord, context.Background(), "/shop/cart/add/1/")
		require.NoError(t, err)
		resA <- resp
	}()
	require.Eventually(t, func() bool { return coord.State() == StateRefreshing },
		2*time.Second, 5*time.Millisecond)

	go func() {
		resp, err := getPath(t, coord, context.Background(), "/shop/cart/add/2/")
		require.NoError(t, err)
		resB <- resp
	}()
	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return len(coord.queue) == 2
	}, 2*time.Second, 5*time.Millisecond)

	close(srv.refreshGate)

	a := <-resA
	b := <-resB
	require.JSONEq(t, `{"path":"/shop/cart/add/1/"}`, string(a.Body), "no identity swap")
	require.JSONEq(t, `{"path":"/shop/cart/add/2/"}`, string(b.Body), "no identity swap")
	require.Equal(t, []string{"/shop/cart/add/1/", "/shop/cart/add/2/"}, srv.servedPaths(), "FIFO replay")
	require.Equal(t, int64(1), srv.refreshCalls.Load())
}

func TestCoordinator_RefreshFailureEndsSession(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t, "a2")
	srv.refreshFails = true
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	events, unsub := coord.SessionListener()
	defer unsub()

	_, err := getPath(t, coord, context.Background(), "/shop/cart/")
	require.Equal(t, faults.KindSessionExpired, faults.KindOf(err))

	_, ok := creds.Get()
	require.False(t, ok, "credential store cleared")
	require.Equal(t, StateFailed, coord.State())

	select {
	case ev := <-events:
		require.Equal(t, "refresh_failed", ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("no session-ended signal")
	}

	// Later requests go out unauthenticated, never with a stale header.
	_, err = getPath(t, coord, context.Background(), "/shop/cart/")
	require.Error(t, err)
	srv.mu.Lock()
	lastHeader := srv.authHeaders[len(srv.authHeaders)-1]
	srv.mu.Unlock()
	require.Empty(t, lastHeader)
}

func TestCoordinator_CancelledQueuedRequestIsNotReplayed(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t, "a2")
	srv.refreshGate = make(chan struct{})
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := getPath(t, coord, context.Background(), "/shop/cart/")
		require.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return coord.State() == StateRefreshing },
		2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errB := make(chan error, 1)
	go func() {
		_, err := getPath(t, coord, ctx, "/shop/orders/")
		errB <- err
	}()
	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return len(coord.queue) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Equal(t, faults.KindCancelled, faults.KindOf(<-errB))

	close(srv.refreshGate)
	<-done

	require.NotContains(t, srv.servedPaths(), "/shop/orders/", "cancelled record must not replay")
}

func TestCoordinator_ProactiveRefreshBeforeExpiry(t *testing.T) {
	t.Parallel()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	srv := newAuthServer(t, "a2")
	creds := seedCreds(t, expired)
	coord := newCoordinator(t, srv.srv.URL, creds)

	_, err = getPath(t, coord, context.Background(), "/shop/cart/")
	require.NoError(t, err)
	require.Equal(t, int64(1), srv.refreshCalls.Load())

	// The expired token never reached a protected endpoint.
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, h := range srv.authHeaders {
		require.Equal(t, "Bearer a2", h)
	}
}

func TestCoordinator_ResetReturnsToIdleAfterLogin(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t, "a2")
	srv.refreshFails = true
	creds := seedCreds(t, "a1")
	coord := newCoordinator(t, srv.srv.URL, creds)

	_, err := getPath(t, coord, context.Background(), "/shop/cart/")
	require.Equal(t, faults.KindSessionExpired, faults.KindOf(err))
	require.Equal(t, StateFailed, coord.State())

	coord.Reset()
	require.Equal(t, StateIdle, coord.State())
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	_, ok := tokenExpiry("opaque-token")
	require.False(t, ok)

	at := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": at.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	exp, ok := tokenExpiry(token)
	require.True(t, ok)
	require.True(t, exp.Equal(at))
}
