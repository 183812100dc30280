package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductsRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{pool: pool, observer: observer{prom: prom}}
}

const productColumns = `id, name, description, price, original_price, image, rating,
	sold, discount, category, views, created_at, updated_at, indexed_at`

func scanProduct(row pgx.Row, extra ...any) (product.Product, error) {
	var p product.Product

	dest := []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.Image,
		&p.Rating,
		&p.Sold,
		&p.Discount,
		&p.Category,
		&p.Views,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.IndexedAt,
	}

	err := row.Scan(append(dest, extra...)...)
	return p, err
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) error {
	err := r.observe("products.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO products (`+productColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Image, p.Rating,
			p.Sold, p.Discount, p.Category, p.Views, p.CreatedAt, p.UpdatedAt, p.IndexedAt,
		)
		return err
	})

	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductsRepo) List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error) {
	output := make([]product.Product, 0, f.Limit)
	total := 0

	err := r.observe("products.list", func() error {
		// stable ordering for pagination
		rows, err := r.pool.Query(ctx,
			`SELECT `+productColumns+`, COUNT(*) OVER() AS total
			FROM products
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`,
			f.Limit, f.Offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t int
			p, err := scanProduct(rows, &t)
			if err != nil {
				return err
			}
			total = t
			output = append(output, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	// COUNT(*) OVER() is absent when the page is past the end.
	if len(output) == 0 && f.Offset > 0 {
		err = r.observe("products.count", func() error {
			return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
		})
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product

	err := r.observe("products.get_by_id", func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) ListUnindexed(ctx context.Context, limit int) ([]product.Product, error) {
	return r.listWhere(ctx, "products.list_unindexed",
		`SELECT `+productColumns+` FROM products
		WHERE indexed_at IS NULL OR indexed_at < updated_at
		ORDER BY id ASC
		LIMIT $1`,
		limit,
	)
}

func (r *ProductsRepo) ListAfterID(ctx context.Context, afterID string, limit int) ([]product.Product, error) {
	return r.listWhere(ctx, "products.list_after_id",
		`SELECT `+productColumns+` FROM products
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`,
		afterID, limit,
	)
}

func (r *ProductsRepo) listWhere(ctx context.Context, op, query string, args ...any) ([]product.Product, error) {
	output := make([]product.Product, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			output = append(output, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (r *ProductsRepo) MarkIndexed(ctx context.Context, id string, at time.Time) error {
	var affected int64

	err := r.observe("products.mark_indexed", func() error {
		tag, err := r.pool.Exec(ctx, `UPDATE products SET indexed_at = $2 WHERE id = $1`, id, at.UTC())
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductsRepo) DeleteAll(ctx context.Context) (int64, error) {
	var affected int64

	err := r.observe("products.delete_all", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM products`)
		affected = tag.RowsAffected()
		return err
	})
	return affected, err
}
