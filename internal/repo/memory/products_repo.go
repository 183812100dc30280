package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
)

type ProductsRepo struct {
	mu    sync.RWMutex
	items map[string]product.Product
}

func NewProductsRepo() *ProductsRepo {
	return &ProductsRepo{
		items: make(map[string]product.Product),
	}
}

func (r *ProductsRepo) Create(_ context.Context, p product.Product) error {
	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return nil
}

// List returns newest first, ties broken by id descending.
func (r *ProductsRepo) List(_ context.Context, f product.ListFilter) ([]product.Product, int, error) {
	r.mu.RLock()
	all := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		all = append(all, p)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if f.Offset < 0 || f.Offset >= total {
		return []product.Product{}, total, nil
	}

	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *ProductsRepo) GetByID(_ context.Context, id string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (r *ProductsRepo) ListUnindexed(_ context.Context, limit int) ([]product.Product, error) {
	r.mu.RLock()
	out := make([]product.Product, 0)
	for _, p := range r.items {
		if p.NeedsIndexing() {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductsRepo) MarkIndexed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return product.ErrNotFound
	}

	at = at.UTC()
	p.IndexedAt = &at
	r.items[id] = p
	return nil
}

// ListAfterID pages through every product in id order.
func (r *ProductsRepo) ListAfterID(_ context.Context, afterID string, limit int) ([]product.Product, error) {
	r.mu.RLock()
	out := make([]product.Product, 0)
	for _, p := range r.items {
		if p.ID > afterID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductsRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.items))
	r.items = make(map[string]product.Product)
	return n, nil
}
