package shopclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/config"
	"github.com/shopuda/shopclient/credstore"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/refresh"
)

// StoreSvc is the storefront gateway client: a typed request surface over the
// shopuda REST API with credential lifecycle, single-flight token refresh,
// failure classification, and a synchronized domain cache.
type StoreSvc struct {
	cfg   *config.SvcConfig
	log   zerolog.Logger
	creds *credstore.Store
	coord *refresh.Coordinator
	cache *cache.Cache

	// loginLimiter paces login attempts so a mistyped password loop never
	// trips the server's 429 policy.
	loginLimiter *rate.Limiter
}

// Hydrate wires the components. It must be called once before any operation.
func (s *StoreSvc) Hydrate(ctx context.Context) error {
	if s.cfg == nil {
		return errors.New("no client config")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	dir, err := s.cfg.ResolveStorageDir()
	if err != nil {
		s.log.Warn().Err(err).Msg("no usable storage dir, credentials held in memory")
		dir = ""
	}
	s.creds = credstore.New(dir, s.log)

	dispatcher := httpclient.NewClient(s.cfg, s.creds)
	s.coord = refresh.NewCoordinator(dispatcher, s.creds, s.log)
	s.cache = cache.New(s.log)
	s.registerFetchers()

	s.log.Debug().Str("base_url", s.cfg.BaseURL).Msg("store client ready")
	return nil
}

func (s *StoreSvc) registerFetchers() {
	s.cache.RegisterFetcher(cache.KindCart, func(ctx context.Context, _ cache.Key) (any, error) {
		var cart dto.Cart
		if err := s.fetchJSON(ctx, "/shop/cart/", &cart); err != nil {
			return nil, err
		}
		return cart, nil
	})
	s.cache.RegisterFetcher(cache.KindWishlist, func(ctx context.Context, _ cache.Key) (any, error) {
		var items []dto.WishlistItem
		if err := s.fetchJSON(ctx, "/shop/wishlist/", &items); err != nil {
			return nil, err
		}
		return items, nil
	})
	s.cache.RegisterFetcher(cache.KindOrders, func(ctx context.Context, _ cache.Key) (any, error) {
		var page dto.Paginated[dto.Order]
		if err := s.fetchJSON(ctx, "/shop/orders/", &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	})
	s.cache.RegisterFetcher(cache.KindOrder, func(ctx context.Context, key cache.Key) (any, error) {
		var order dto.Order
		if err := s.fetchJSON(ctx, "/shop/orders/"+key.Scope+"/", &order); err != nil {
			return nil, err
		}
		return order, nil
	})
	s.cache.RegisterFetcher(cache.KindProduct, func(ctx context.Context, key cache.Key) (any, error) {
		var product dto.Product
		if err := s.fetchJSON(ctx, "/shop/products/"+key.Scope+"/", &product); err != nil {
			return nil, err
		}
		return product, nil
	})
	s.cache.RegisterFetcher(cache.KindProfile, func(ctx context.Context, _ cache.Key) (any, error) {
		var user dto.User
		if err := s.fetchJSON(ctx, "/accounts/profile/", &user); err != nil {
			return nil, err
		}
		return user, nil
	})
}

// send routes every call through the refresh coordinator.
func (s *StoreSvc) send(ctx context.Context, spec *httpclient.RequestConfig) (dto.Response, error) {
	return s.coord.Do(ctx, spec)
}

func (s *StoreSvc) fetchJSON(ctx context.Context, path string, into any) error {
	spec := httpclient.DefaultRequestConfig()
	spec.WithPath(path).WithInto(into)
	_, err := s.send(ctx, &spec)
	return err
}

// Cache exposes the domain cache for subscriptions.
func (s *StoreSvc) Cache() *cache.Cache {
	return s.cache
}

// SessionListener surfaces the process-wide session-ended signal.
func (s *StoreSvc) SessionListener() (<-chan refresh.SessionEvent, func()) {
	return s.coord.SessionListener()
}

// readAs fetches through the cache and narrows to the fetcher's return type.
func readAs[T any](ctx context.Context, c *cache.Cache, key cache.Key) (T, error) {
	var zero T
	v, err := c.Read(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}
