package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/storefront/internal/cache"
	"github.com/geocoder89/storefront/internal/domain/product"
)

// ErrIndexFailed means the product was stored but is not yet searchable.
var ErrIndexFailed = errors.New("product stored but not indexed")

type ProductStore interface {
	Create(ctx context.Context, p product.Product) error
	List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error)
	MarkIndexed(ctx context.Context, id string, at time.Time) error
}

type Indexer interface {
	IndexProduct(ctx context.Context, p product.Product) error
}

type Deps struct {
	Products ProductStore
	Index    Indexer
	Cache    cache.ListCache
	Log      *slog.Logger
	Now      func() time.Time
}

type Service struct {
	products ProductStore
	index    Indexer
	cache    cache.ListCache
	log      *slog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		products: d.Products,
		index:    d.Index,
		cache:    d.Cache,
		log:      d.Log,
		now:      d.Now,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create persists the product, then indexes it synchronously. When indexing
// fails the stored product is kept and returned alongside ErrIndexFailed;
// the reconciliation worker picks it up later.
func (s *Service) Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error) {
	p := product.NewFromCreateRequest(req)

	if err := s.products.Create(ctx, p); err != nil {
		return product.Product{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	if err := s.index.IndexProduct(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "catalog.index_failed", "product_id", p.ID, "err", err)
		return p, fmt.Errorf("%w: %w", ErrIndexFailed, err)
	}

	at := s.now().UTC()
	if err := s.products.MarkIndexed(ctx, p.ID, at); err != nil {
		// the worker will re-push it; the document is already searchable
		s.log.WarnContext(ctx, "catalog.mark_indexed_failed", "product_id", p.ID, "err", err)
	} else {
		p.IndexedAt = &at
	}

	return p, nil
}

// List serves a store page, newest first, through the listing cache.
func (s *Service) List(ctx context.Context, page, limit int) (product.Page, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetPage(ctx, page, limit); ok {
			return cached, nil
		}
	}

	items, total, err := s.products.List(ctx, product.ListFilter{
		Limit:  limit,
		Offset: product.Offset(page, limit),
	})
	if err != nil {
		return product.Page{}, err
	}

	out := product.NewPage(page, limit, total, items)
	if s.cache != nil {
		s.cache.SetPage(ctx, page, limit, out)
	}
	return out, nil
}
