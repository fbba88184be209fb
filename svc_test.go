package shopclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/config"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
)

// storefront fakes enough of the shopuda gateway for end-to-end flows: login
// mints a1/r1, refresh swaps r1 for a2, and the cart endpoints mutate a
// server-side cart rendered back in every response.
type storefront struct {
	t *testing.T

	mu       sync.Mutex
	accepted string         // access token the protected endpoints accept
	cart     map[string]int // product id -> quantity

	refreshCalls atomic.Int64
	unauthorized atomic.Int64
	waitFor401s  atomic.Int64 // refresh stalls until this many 401s were served
	refreshFails bool
	logoutFails  bool
	conflictOn   string // product id whose cart add reports out of stock

	srv *httptest.Server
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	f := &storefront{t: t, cart: map[string]int{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *storefront) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = ""
}

func (f *storefront) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/accounts/user/login/":
		f.mu.Lock()
		f.accepted = "a1"
		f.mu.Unlock()
		json.NewEncoder(w).Encode(dto.LoginResult{
			Access:  "a1",
			Refresh: "r1",
			User:    dto.User{ID: 1, Username: "kim", Email: "kim@shopuda.kr"},
		})
		return

	case r.URL.Path == "/api/auth/refresh/":
		f.refreshCalls.Add(1)
		if n := f.waitFor401s.Load(); n > 0 {
			deadline := time.Now().Add(2 * time.Second)
			for f.unauthorized.Load() < n && time.Now().Before(deadline) {
				time.Sleep(2 * time.Millisecond)
			}
		}
		var body struct {
			Refresh string `json:"refresh"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if f.refreshFails || body.Refresh != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"refresh token expired"}`))
			return
		}
		f.mu.Lock()
		f.accepted = "a2"
		f.mu.Unlock()
		w.Write([]byte(`{"access":"a2"}`))
		return
	}

	f.mu.Lock()
	accepted := f.accepted
	f.mu.Unlock()
	if accepted == "" || r.Header.Get("Authorization") != "Bearer "+accepted {
		f.unauthorized.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
		return
	}

	switch {
	case r.URL.Path == "/accounts/logout/":
		if f.logoutFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))

	case r.URL.Path == "/shop/cart/":
		f.writeCart(w)

	case strings.HasPrefix(r.URL.Path, "/shop/cart/add/"):
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/shop/cart/add/"), "/")
		if id == f.conflictOn {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"detail":"재고가 부족합니다"}`))
			return
		}
		var body struct {
			Quantity int `json:"quantity"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.cart[id] += body.Quantity
		f.mu.Unlock()
		f.writeCart(w)

	case strings.HasPrefix(r.URL.Path, "/shop/cart/remove/"):
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/shop/cart/remove/"), "/")
		f.mu.Lock()
		delete(f.cart, id)
		f.mu.Unlock()
		f.writeCart(w)

	case strings.HasPrefix(r.URL.Path, "/shop/products/"):
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/shop/products/"), "/")
		json.NewEncoder(w).Encode(dto.Product{ID: id, Name: "product " + id, SellingPrice: 10, StockQuantity: 5})

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"not found"}`))
	}
}

func (f *storefront) writeCart(w http.ResponseWriter) {
	f.mu.Lock()
	ids := make([]string, 0, len(f.cart))
	for id := range f.cart {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cart := dto.Cart{ID: 1}
	for _, id := range ids {
		qty := f.cart[id]
		cart.Items = append(cart.Items, dto.CartItem{
			Product:    dto.Product{ID: id, SellingPrice: 10},
			Quantity:   qty,
			UnitPrice:  10,
			TotalPrice: float64(qty) * 10,
		})
		cart.TotalQuantity += qty
		cart.TotalPrice += float64(qty) * 10
	}
	f.mu.Unlock()

	json.NewEncoder(w).Encode(cart)
}

func newStoreClient(t *testing.T, baseURL string) *StoreSvc {
	t.Helper()
	cfg := config.DefaultSvcConfig()
	cfg.WithBaseURL(baseURL).
		WithStorageDir(t.TempDir()).
		WithLogger(zerolog.Nop())
	s := NewStoreSvc(&cfg)
	require.NoError(t, s.Hydrate(context.Background()))
	return s
}

// The full expiry flow: login mints a1/r1, the access token expires, two
// parallel cart mutations both hit 401, exactly one refresh call goes out
// with r1, and both mutations are replayed and land on the server.
func TestStoreSvc_ExpiredTokenRefreshAndReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	user, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)
	require.Equal(t, "kim", user.Username)
	require.True(t, s.Authenticated())

	fs.expireAccess()
	fs.waitFor401s.Store(2) // hold the refresh until both mutations queued

	ch, unsub := s.Cache().Subscribe(cache.KeyCart)
	defer unsub()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = s.AddToCart(ctx, "p1", 1) }()
	go func() { defer wg.Done(); _, errs[1] = s.AddToCart(ctx, "p2", 2) }()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int64(1), fs.refreshCalls.Load(), "exactly one refresh for both 401s")

	pair, ok := s.creds.Get()
	require.True(t, ok)
	require.Equal(t, "a2", pair.AccessToken)
	require.Equal(t, "r1", pair.RefreshToken)

	// Each reconciled mutation settles the cart key Fresh for subscribers.
	var sawFresh bool
	timeout := time.After(2 * time.Second)
	for !sawFresh {
		select {
		case n := <-ch:
			sawFresh = n.State == cache.StateFresh
		case <-timeout:
			t.Fatal("cart subscriber never saw a fresh cart")
		}
	}

	// A read from the server confirms both edits landed.
	s.Cache().Invalidate(ctx, cache.MutAddToCart)
	cart, err := s.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	require.Equal(t, 3, cart.TotalQuantity)
}

func TestStoreSvc_RefreshFailureEndsSessionWithSignal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	_, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)

	fs.expireAccess()
	fs.refreshFails = true

	events, unsub := s.SessionListener()
	defer unsub()

	_, err = s.Cart(ctx)
	require.Equal(t, faults.KindSessionExpired, faults.KindOf(err))
	require.False(t, s.Authenticated(), "session end clears credentials")

	select {
	case ev := <-events:
		require.Equal(t, "refresh_failed", ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("no session-ended signal")
	}
}

func TestStoreSvc_LogoutClearsLocalStateDespiteServerError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	_, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)
	_, err = s.Cart(ctx)
	require.NoError(t, err)

	fs.logoutFails = true
	s.Logout(ctx)

	require.False(t, s.Authenticated())
	_, ok := s.CurrentUser()
	require.False(t, ok)
	_, _, ok = s.cache.Peek(cache.KeyCart)
	require.False(t, ok, "logout drops cached user data")
}

func TestStoreSvc_StockConflictStalesProduct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	_, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)

	product, err := s.Product(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", product.ID)

	fs.conflictOn = "p1"
	_, err = s.AddToCart(ctx, "p1", 99)
	require.Equal(t, faults.KindConflict, faults.KindOf(err))

	var failure *faults.Failure
	require.ErrorAs(t, err, &failure)
	require.True(t, failure.UserVisible)
	require.Equal(t, "재고가 부족합니다", failure.Message)

	_, state, ok := s.cache.Peek(cache.ProductKey("p1"))
	require.True(t, ok)
	require.Equal(t, cache.StateStale, state, "conflicting product must be refetched next read")
}

func TestStoreSvc_ClearCartReconcilesEmptyCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	_, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, "p1", 1)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, "p2", 2)
	require.NoError(t, err)

	require.NoError(t, s.ClearCart(ctx))

	v, state, ok := s.cache.Peek(cache.KeyCart)
	require.True(t, ok)
	require.Equal(t, cache.StateFresh, state, "clear cart settles the cart key without a refetch")
	cart, isCart := v.(dto.Cart)
	require.True(t, isCart)
	require.Empty(t, cart.Items)
	require.Equal(t, 0, cart.TotalQuantity)

	fs.mu.Lock()
	serverItems := len(fs.cart)
	fs.mu.Unlock()
	require.Zero(t, serverItems)
}

func TestNewStoreSvc_NilConfig(t *testing.T) {
	t.Parallel()

	var s *StoreSvc
	require.NotPanics(t, func() { s = NewStoreSvc(nil) })
	require.Error(t, s.Hydrate(context.Background()), "defaults carry no base URL")
}

func TestStoreSvc_StateSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newStorefront(t)
	s := newStoreClient(t, fs.srv.URL)

	state := s.State()
	require.False(t, state.Authenticated)
	require.Equal(t, fs.srv.URL, state.BaseURL)

	_, err := s.Login(ctx, "kim", "pw")
	require.NoError(t, err)
	_, err = s.Cart(ctx)
	require.NoError(t, err)

	state = s.State()
	require.True(t, state.Authenticated)
	require.Equal(t, "kim", state.User.Username)
	require.Equal(t, cache.StateFresh, state.CacheStatus[cache.KeyCart.String()].State)
}
