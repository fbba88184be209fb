package shopclient

import (
	"context"
	"net/http"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
)

// Wishlist returns the wishlist through the cache.
func (s *StoreSvc) Wishlist(ctx context.Context) ([]dto.WishlistItem, error) {
	return readAs[[]dto.WishlistItem](ctx, s.cache, cache.KeyWishlist)
}

// ToggleWishlist adds or removes a product. The response only says which way
// the toggle went, so the wishlist key is staled rather than reconciled.
func (s *StoreSvc) ToggleWishlist(ctx context.Context, productID string) (dto.WishlistToggle, error) {
	var toggle dto.WishlistToggle
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/shop/wishlist/toggle/" + productID + "/").
		WithInto(&toggle)

	if _, err := s.send(ctx, &spec); err != nil {
		return dto.WishlistToggle{}, err
	}

	s.cache.Invalidate(ctx, cache.MutToggleWishlist)
	return toggle, nil
}
