package shopclient

import (
	"context"
	"net/url"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/client/httpclient"
	"github.com/shopuda/shopclient/dto"
	"github.com/shopuda/shopclient/utils"
)

// Products lists the catalog. Filtered lists vary too much to cache; single
// products go through the cache via Product.
func (s *StoreSvc) Products(ctx context.Context, filters dto.ProductFilters) (dto.Paginated[dto.Product], error) {
	var page dto.Paginated[dto.Product]
	spec := httpclient.DefaultRequestConfig()
	spec.WithPath("/shop/products/").
		WithQuery(encodeFilters(filters)).
		WithInto(&page)
	_, err := s.send(ctx, &spec)
	return page, err
}

func (s *StoreSvc) Product(ctx context.Context, id string) (dto.Product, error) {
	return readAs[dto.Product](ctx, s.cache, cache.ProductKey(id))
}

func (s *StoreSvc) SearchProducts(ctx context.Context, query string, filters dto.ProductFilters) (dto.Paginated[dto.Product], error) {
	filters.Search = query

	var page dto.Paginated[dto.Product]
	spec := httpclient.DefaultRequestConfig()
	spec.WithPath("/shop/search/").
		WithQuery(encodeFilters(filters)).
		WithInto(&page)
	_, err := s.send(ctx, &spec)
	return page, err
}

func (s *StoreSvc) FeaturedProducts(ctx context.Context, limit int) ([]dto.Product, error) {
	featured := true
	page, err := s.Products(ctx, dto.ProductFilters{IsFeatured: &featured, PageSize: limit})
	return page.Results, err
}

func (s *StoreSvc) NewProducts(ctx context.Context, limit int) ([]dto.Product, error) {
	page, err := s.Products(ctx, dto.ProductFilters{Ordering: "-created_at", PageSize: limit})
	return page.Results, err
}

func encodeFilters(f dto.ProductFilters) url.Values {
	return utils.NewQueryBuilder().
		Str("search", f.Search).
		Ints("category", f.Category).
		Ints("brand", f.Brand).
		Str("status", f.Status).
		Bool("is_featured", f.IsFeatured).
		Float("min_price", f.MinPrice).
		Float("max_price", f.MaxPrice).
		Int("page", f.Page).
		Int("page_size", f.PageSize).
		Str("ordering", f.Ordering).
		Bool("is_on_sale", f.IsOnSale).
		Bool("in_stock", f.InStock).
		Strs("tags", f.Tags).
		Values()
}
