package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geocoder89/storefront/internal/domain/product"
)

// MemoryIndex is an in-process Engine for the memory store driver and tests.
// Free text matches when every query term is a substring of the name,
// description or category; there is no fuzziness.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]product.Product
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]product.Product)}
}

func (m *MemoryIndex) EnsureIndex(context.Context) error { return nil }

func (m *MemoryIndex) Ping(context.Context) error { return nil }

func (m *MemoryIndex) RecreateIndex(context.Context) error {
	m.mu.Lock()
	m.docs = make(map[string]product.Product)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) IndexProduct(_ context.Context, p product.Product) error {
	m.mu.Lock()
	m.docs[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) BulkIndex(ctx context.Context, products []product.Product) error {
	for _, p := range products {
		if err := m.IndexProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Search(_ context.Context, p Params) (Result, error) {
	terms := strings.Fields(strings.ToLower(p.Q))

	m.mu.RLock()
	hits := make([]product.Product, 0)
	for _, d := range m.docs {
		if matches(d, p, terms) {
			hits = append(hits, d)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, less(hits, p.Sort))

	total := len(hits)
	from := p.From()
	if from >= total {
		return Result{Total: total, Products: []product.Product{}}, nil
	}
	end := from + p.Limit
	if end > total {
		end = total
	}

	return Result{Total: total, Products: hits[from:end]}, nil
}

func matches(d product.Product, p Params, terms []string) bool {
	if p.Category != "" && d.Category != p.Category {
		return false
	}
	if p.MinPrice != nil && d.Price < *p.MinPrice {
		return false
	}
	if p.MaxPrice != nil && d.Price > *p.MaxPrice {
		return false
	}
	if p.MinDiscount != nil && float64(d.Discount) < *p.MinDiscount {
		return false
	}
	if p.MinViews != nil && float64(d.Views) < *p.MinViews {
		return false
	}

	if len(terms) == 0 {
		return true
	}

	haystack := strings.ToLower(d.Name + " " + d.Description + " " + d.Category)
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

func less(hits []product.Product, s Sort) func(i, j int) bool {
	switch s {
	case SortPriceAsc:
		return func(i, j int) bool { return hits[i].Price < hits[j].Price }
	case SortPriceDesc:
		return func(i, j int) bool { return hits[i].Price > hits[j].Price }
	case SortNewest:
		return func(i, j int) bool { return hits[i].CreatedAt.After(hits[j].CreatedAt) }
	default:
		return func(i, j int) bool {
			if hits[i].Views != hits[j].Views {
				return hits[i].Views > hits[j].Views
			}
			return hits[i].Sold > hits[j].Sold
		}
	}
}
