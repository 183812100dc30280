package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
)

var demoCategories = []string{"electronics", "fashion", "home"}

// DemoProducts builds n random catalog entries for local environments.
func DemoProducts(n int, rng *rand.Rand) []product.Product {
	out := make([]product.Product, 0, n)
	base := time.Now().UTC()

	for i := 0; i < n; i++ {
		price := float64(rng.Intn(2_000_000) + 100_000)

		req := product.CreateProductRequest{
			Name:     fmt.Sprintf("Demo product %d - Genuine goods", i+1),
			Price:    &price,
			Image:    fmt.Sprintf("https://picsum.photos/300/300?random=%d", i+1),
			Rating:   math.Round((rng.Float64()*2+3)*10) / 10,
			Sold:     rng.Intn(1000),
			Category: demoCategories[rng.Intn(len(demoCategories))],
			Views:    rng.Intn(5000),
		}

		if rng.Float64() > 0.5 {
			req.Discount = rng.Intn(40) + 10
			original := price + price*float64(req.Discount)/100
			req.OriginalPrice = &original
		}

		p := product.NewFromCreateRequest(req)
		// spread creation times into the past so "newest" ordering is deterministic
		p.CreatedAt = base.Add(-time.Duration(n-i) * time.Minute)
		p.UpdatedAt = p.CreatedAt
		out = append(out, p)
	}
	return out
}
