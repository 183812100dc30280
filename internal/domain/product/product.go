package product

import (
	"errors"
	"time"
)

const (
	DefaultCategory = "other"
	DefaultLimit    = 20
	MaxLimit        = 100
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Price         float64    `json:"price"`
	OriginalPrice *float64   `json:"originalPrice,omitempty"`
	Image         string     `json:"image"`
	Rating        float64    `json:"rating"`
	Sold          int        `json:"sold"`
	Discount      int        `json:"discount"`
	Category      string     `json:"category"`
	Views         int        `json:"views"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	IndexedAt     *time.Time `json:"-"`
}

// NeedsIndexing reports whether the search copy is missing or older than the record.
func (p Product) NeedsIndexing() bool {
	return p.IndexedAt == nil || p.IndexedAt.Before(p.UpdatedAt)
}

type CreateProductRequest struct {
	Name          string   `json:"name" binding:"required,min=2,max=200"`
	Description   string   `json:"description" binding:"omitempty,max=2000"`
	Price         *float64 `json:"price" binding:"required,gte=0"`
	OriginalPrice *float64 `json:"originalPrice" binding:"omitempty,gte=0"`
	Image         string   `json:"image" binding:"required,max=2048"`
	Rating        float64  `json:"rating" binding:"gte=0,lte=5"`
	Sold          int      `json:"sold" binding:"gte=0"`
	Discount      int      `json:"discount" binding:"gte=0,lte=100"`
	Category      string   `json:"category" binding:"omitempty,max=80"`
	Views         int      `json:"views" binding:"gte=0"`
}

type ListFilter struct {
	Limit  int
	Offset int
}

// Page is the paginated response shared by listing and search.
type Page struct {
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"hasMore"`
	Products []Product `json:"products"`
}

func NewPage(page, limit, total int, items []Product) Page {
	if items == nil {
		items = []Product{}
	}

	return Page{
		Page:     page,
		Limit:    limit,
		Total:    total,
		HasMore:  page*limit < total,
		Products: items,
	}
}
