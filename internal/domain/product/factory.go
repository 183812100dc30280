package product

import (
	"crypto/rand"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a ULID so ids sort by creation time.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

func NewFromCreateRequest(req CreateProductRequest) Product {
	now := time.Now().UTC()

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}

	var price float64
	if req.Price != nil {
		price = *req.Price
	}

	return Product{
		ID:            NewID(),
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Price:         price,
		OriginalPrice: req.OriginalPrice,
		Image:         strings.TrimSpace(req.Image),
		Rating:        req.Rating,
		Sold:          req.Sold,
		Discount:      req.Discount,
		Category:      category,
		Views:         req.Views,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MaxPage keeps (page-1)*MaxLimit well inside int range.
const MaxPage = math.MaxInt32

// Paging normalizes raw page/limit query values: 1 <= page <= MaxPage,
// 1 <= limit <= MaxLimit. Pages past the data read as empty pages.
func Paging(rawPage, rawLimit string) (page, limit int) {
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	switch {
	case errors.Is(err, strconv.ErrRange) && page > 0:
		page = MaxPage
	case err != nil || page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}

	limit, err = strconv.Atoi(strings.TrimSpace(rawLimit))
	if err != nil || limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return page, limit
}

func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	return (page - 1) * limit
}
