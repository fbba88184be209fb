package shopclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/faults"
	"github.com/shopuda/shopclient/utils"
)

// Orders returns the order list through the cache.
func (s *StoreSvc) Orders(ctx context.Context) ([]dto.Order, error) {
	return readAs[[]dto.Order](ctx, s.cache, cache.KeyOrders)
}

func (s *StoreSvc) Order(ctx context.Context, id int) (dto.Order, error) {
	return readAs[dto.Order](ctx, s.cache, cache.OrderKey(id))
}

// PlaceOrder checks out the cart. Success stales cart and orders per the
// invalidation table and stores the created order Fresh. A stock conflict
// stales the cached product entries in the cart so prices and availability
// refetch.
func (s *StoreSvc) PlaceOrder(ctx context.Context, payload dto.CheckoutPayload) (dto.Order, error) {
	body, err := utils.ToMap(payload)
	if err != nil {
		return dto.Order{}, faults.FromTransportErr(err)
	}

	var order dto.Order
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/shop/checkout/").
		WithBody(body).
		WithInto(&order)

	if _, err := s.send(ctx, &spec); err != nil {
		if faults.Is(err, faults.KindConflict) {
			s.invalidateCartProducts(ctx)
		}
		return dto.Order{}, err
	}

	s.cache.Reconcile(ctx, cache.MutPlaceOrder, cache.OrderKey(order.ID), order)
	return order, nil
}

// CancelOrder cancels one order and stales the order caches.
func (s *StoreSvc) CancelOrder(ctx context.Context, id int) error {
	spec := httpclient.DefaultRequestConfig()
	spec.WithMethod(http.MethodPost).
		WithPath("/shop/orders/" + strconv.Itoa(id) + "/cancel/")

	if _, err := s.send(ctx, &spec); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.MutCancelOrder)
	return nil
}

func (s *StoreSvc) invalidateCartProducts(ctx context.Context) {
	current, state, ok := s.cache.Peek(cache.KeyCart)
	if !ok || state != cache.StateFresh {
		return
	}
	cart, isCart := current.(dto.Cart)
	if !isCart {
		return
	}
	for _, item := range cart.Items {
		s.cache.InvalidateKey(ctx, cache.ProductKey(item.Product.ID))
	}
}
