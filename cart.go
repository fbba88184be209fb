package shopclient

import (
	"context"
	"net/http"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
)

// Cart returns the current cart through the cache.
func (s *StoreSvc) Cart(ctx context.Context) (dto.Cart, error) {
	return readAs[dto.Cart](ctx, s.cache, cache.KeyCart)
}

// AddToCart adds a product. The server returns the updated cart, which
// reconciles the cache without a follow-up read.
func (s *StoreSvc) AddToCart(ctx context.Context, productID string, quantity int) (dto.Cart, error) {
	var cart dto.Cart
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/shop/cart/add/" + productID + "/").
		WithBody(map[string]interface{}{"quantity": quantity}).
		WithInto(&cart)

	if _, err := s.send(ctx, &spec); err != nil {
		s.invalidateOnConflict(ctx, err, productID)
		return dto.Cart{}, err
	}

	s.cache.Reconcile(ctx, cache.MutAddToCart, cache.KeyCart, cart)
	return cart, nil
}

// UpdateCartItem changes a line quantity. This is the high-frequency mutation
// that gets an optimistic update: the provisional cart shows immediately and
// the cache rolls back to the last server-confirmed value if the server
// rejects the change.
func (s *StoreSvc) UpdateCartItem(ctx context.Context, productID string, quantity int) (dto.Cart, error) {
	optimistic := false
	if current, state, ok := s.cache.Peek(cache.KeyCart); ok && state == cache.StateFresh {
		if cur, isCart := current.(dto.Cart); isCart {
			s.cache.ApplyOptimistic(cache.KeyCart, provisionalQuantity(cur, productID, quantity))
			optimistic = true
		}
	}

	var cart dto.Cart
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPut).
		WithPath("/shop/cart/update/" + productID + "/").
		WithBody(map[string]interface{}{"quantity": quantity}).
		WithInto(&cart)

	if _, err := s.send(ctx, &spec); err != nil {
		if optimistic {
			s.cache.Rollback(cache.KeyCart, err)
		}
		s.invalidateOnConflict(ctx, err, productID)
		return dto.Cart{}, err
	}

	s.cache.Reconcile(ctx, cache.MutUpdateCartItem, cache.KeyCart, cart)
	return cart, nil
}

func (s *StoreSvc) RemoveFromCart(ctx context.Context, productID string) (dto.Cart, error) {
	var cart dto.Cart
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodDelete).
		WithPath("/shop/cart/remove/" + productID + "/").
		WithInto(&cart)

	if _, err := s.send(ctx, &spec); err != nil {
		return dto.Cart{}, err
	}

	s.cache.Reconcile(ctx, cache.MutRemoveFromCart, cache.KeyCart, cart)
	return cart, nil
}

// ClearCart empties the cart by removing each line; the API has no bulk
// clear endpoint. The removes are one logical mutation: the cache reconciles
// once with the final cart, and a partial failure stales it so the next read
// shows what actually remains.
func (s *StoreSvc) ClearCart(ctx context.Context) error {
	cart, err := s.Cart(ctx)
	if err != nil {
		return err
	}

	final := cart
	for _, item := range cart.Items {
		var updated dto.Cart
		spec := httpclient.DefaultRequestConfig()
		spec.WithMethod(http.MethodDelete).
			WithPath("/shop/cart/remove/" + item.Product.ID + "/").
			WithInto(&updated)

		if _, err := s.send(ctx, &spec); err != nil {
			s.cache.Invalidate(ctx, cache.MutClearCart)
			return err
		}
		final = updated
	}

	s.cache.Reconcile(ctx, cache.MutClearCart, cache.KeyCart, final)
	return nil
}

// invalidateOnConflict stales the product a stock conflict was reported for,
// so the next read shows the real availability.
func (s *StoreSvc) invalidateOnConflict(ctx context.Context, err error, productID string) {
	if faults.Is(err, faults.KindConflict) {
		s.cache.InvalidateKey(ctx, cache.ProductKey(productID))
	}
}

// provisionalQuantity computes the locally predicted cart for an optimistic
// quantity change, totals included.
func provisionalQuantity(cart dto.Cart, productID string, quantity int) dto.Cart {
	next := cart
	next.Items = append([]dto.CartItem(nil), cart.Items...)

	totalQty := 0
	totalPrice := 0.0
	for i := range next.Items {
		if next.Items[i].Product.ID == productID {
			next.Items[i].Quantity = quantity
			next.Items[i].TotalPrice = float64(quantity) * next.Items[i].UnitPrice
		}
		totalQty += next.Items[i].Quantity
		totalPrice += next.Items[i].TotalPrice
	}
	next.TotalQuantity = totalQty
	next.TotalPrice = totalPrice
	return next
}
