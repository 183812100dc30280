package catalog

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/cache"
	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/repo/memory"
	"github.com/geocoder89/storefront/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingIndex struct{ err error }

func (f failingIndex) IndexProduct(context.Context, product.Product) error { return f.err }

func price(v float64) *float64 { return &v }

func TestCreateIndexesAndMarks(t *testing.T) {
	store := memory.NewProductsRepo()
	idx := search.NewMemoryIndex()
	svc := NewService(Deps{Products: store, Index: idx})

	p, err := svc.Create(context.Background(), product.CreateProductRequest{
		Name:  "Walnut desk",
		Price: price(350000),
		Image: "https://img.test/desk.png",
	})
	require.NoError(t, err)

	assert.Equal(t, product.DefaultCategory, p.Category)
	require.NotNil(t, p.IndexedAt)

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, stored.NeedsIndexing())

	res, err := idx.Search(context.Background(), search.Params{Q: "Walnut desk", Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, p.ID, res.Products[0].ID)
}

func TestCreateKeepsProductWhenIndexFails(t *testing.T) {
	store := memory.NewProductsRepo()
	svc := NewService(Deps{Products: store, Index: failingIndex{err: search.ErrUnavailable}})

	p, err := svc.Create(context.Background(), product.CreateProductRequest{
		Name:  "Lamp",
		Price: price(10),
		Image: "x",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexFailed))
	assert.True(t, errors.Is(err, search.ErrUnavailable))

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsIndexing())
}

func TestListUsesCacheAndCreateInvalidates(t *testing.T) {
	store := memory.NewProductsRepo()
	svc := NewService(Deps{
		Products: store,
		Index:    search.NewMemoryIndex(),
		Cache:    cache.NewMemoryListCache(time.Minute),
	})

	for _, p := range DemoProducts(3, rand.New(rand.NewSource(1))) {
		require.NoError(t, store.Create(context.Background(), p))
	}

	page, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Products, 2)

	// bypassing the service leaves the cached page in place
	extra := DemoProducts(1, rand.New(rand.NewSource(2)))[0]
	require.NoError(t, store.Create(context.Background(), extra))

	page, err = svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	_, err = svc.Create(context.Background(), product.CreateProductRequest{Name: "Rug", Price: price(1), Image: "x"})
	require.NoError(t, err)

	page, err = svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, "Rug", page.Products[0].Name)
}

func TestDemoProducts(t *testing.T) {
	items := DemoProducts(15, rand.New(rand.NewSource(7)))
	require.Len(t, items, 15)

	for _, p := range items {
		assert.GreaterOrEqual(t, p.Price, 100000.0)
		assert.Less(t, p.Price, 2100000.0)
		assert.GreaterOrEqual(t, p.Rating, 3.0)
		assert.LessOrEqual(t, p.Rating, 5.0)
		assert.Contains(t, demoCategories, p.Category)
		if p.Discount > 0 {
			require.NotNil(t, p.OriginalPrice)
			assert.Greater(t, *p.OriginalPrice, p.Price)
		}
	}
}
