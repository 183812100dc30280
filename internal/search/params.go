package search

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/geocoder89/storefront/internal/domain/product"
)

type Sort string

const (
	SortPopular   Sort = "popular"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNewest    Sort = "newest"
)

func parseSort(raw string) Sort {
	switch Sort(strings.TrimSpace(raw)) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortNewest:
		return SortNewest
	default:
		return SortPopular
	}
}

type Params struct {
	Q           string
	Category    string
	MinPrice    *float64
	MaxPrice    *float64
	MinDiscount *float64
	MinViews    *float64
	Sort        Sort
	Page        int
	Limit       int
}

func (p Params) From() int {
	return product.Offset(p.Page, p.Limit)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParamErrors lists every numeric filter that failed to parse.
type ParamErrors []FieldError

func (e ParamErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid search parameters: " + strings.Join(parts, "; ")
}

// ParseParams reads search query parameters. Unknown sort keys fall back to
// popularity; paging is clamped; non-numeric numeric filters are rejected.
func ParseParams(v url.Values) (Params, error) {
	p := Params{
		Q:        strings.TrimSpace(v.Get("q")),
		Category: strings.TrimSpace(v.Get("category")),
		Sort:     parseSort(v.Get("sort")),
	}
	p.Page, p.Limit = product.Paging(v.Get("page"), v.Get("limit"))

	var errs ParamErrors
	number := func(field string) *float64 {
		raw := strings.TrimSpace(v.Get(field))
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be a number", field)})
			return nil
		}
		return &n
	}

	p.MinPrice = number("minPrice")
	p.MaxPrice = number("maxPrice")
	p.MinDiscount = number("minDiscount")
	p.MinViews = number("minViews")

	if len(errs) > 0 {
		return Params{}, errs
	}
	return p, nil
}
