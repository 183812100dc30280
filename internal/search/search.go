package search

import (
	"context"
	"errors"

	"github.com/geocoder89/storefront/internal/domain/product"
)

var (
	// ErrUnavailable wraps transport failures talking to the engine.
	ErrUnavailable = errors.New("search engine unavailable")
	// ErrIndexFailed wraps rejected writes.
	ErrIndexFailed = errors.New("search index write failed")
)

// Engine is the search-index side of the catalog. Documents are the
// product's JSON representation keyed by product id.
type Engine interface {
	EnsureIndex(ctx context.Context) error
	RecreateIndex(ctx context.Context) error
	IndexProduct(ctx context.Context, p product.Product) error
	BulkIndex(ctx context.Context, products []product.Product) error
	Search(ctx context.Context, params Params) (Result, error)
	Ping(ctx context.Context) error
}

type Result struct {
	Total    int
	Products []product.Product
}

// ToPage shapes a result into the shared paginated response.
func (r Result) ToPage(p Params) product.Page {
	return product.NewPage(p.Page, p.Limit, r.Total, r.Products)
}
