package cache

import "fmt"

// Mutation names every write operation the client performs. Each one declares
// its invalidation set in the rules table below; nothing is inferred at call
// sites.
type Mutation string

const (
	MutAddToCart      Mutation = "add-to-cart"
	MutUpdateCartItem Mutation = "update-cart-item"
	MutRemoveFromCart Mutation = "remove-from-cart"
	MutClearCart      Mutation = "clear-cart"
	MutToggleWishlist Mutation = "toggle-wishlist"
	MutPlaceOrder     Mutation = "place-order"
	MutCancelOrder    Mutation = "cancel-order"
	MutUpdateProfile  Mutation = "update-profile"
)

// rules is the authoritative consistency contract: mutation -> staled kinds.
// Correctness is checked by inspecting this one table.
var rules = map[Mutation][]Kind{
	MutAddToCart:      {KindCart},
	MutUpdateCartItem: {KindCart},
	MutRemoveFromCart: {KindCart},
	MutClearCart:      {KindCart},
	MutToggleWishlist: {KindWishlist},
	MutPlaceOrder:     {KindCart, KindOrders},
	MutCancelOrder:    {KindOrders, KindOrder},
	MutUpdateProfile:  {KindProfile},
}

// StaleKinds returns the declared invalidation set. An undeclared mutation is
// a programming error, not a runtime condition.
func StaleKinds(mut Mutation) []Kind {
	kinds, ok := rules[mut]
	if !ok {
		panic(fmt.Sprintf("cache: mutation %q has no invalidation rule", mut))
	}
	return kinds
}
