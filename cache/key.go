package cache

import "strconv"

// Kind is the entity family a cache entry belongs to. Invalidation works at
// kind granularity: staling a kind stales every entry of that kind.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
	KindOrders   Kind = "orders"
	KindOrder    Kind = "order"
	KindProduct  Kind = "product"
	KindProfile  Kind = "profile"
)

// Key identifies one cached entity: a kind plus an optional scope, e.g.
// "product:42". Singleton kinds (cart, wishlist) have an empty scope.
type Key struct {
	Kind  Kind
	Scope string
}

func (k Key) String() string {
	if k.Scope == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Scope
}

var (
	KeyCart     = Key{Kind: KindCart}
	KeyWishlist = Key{Kind: KindWishlist}
	KeyOrders   = Key{Kind: KindOrders}
	KeyProfile  = Key{Kind: KindProfile}
)

func ProductKey(id string) Key {
	return Key{Kind: KindProduct, Scope: id}
}

func OrderKey(id int) Key {
	return Key{Kind: KindOrder, Scope: strconv.Itoa(id)}
}
