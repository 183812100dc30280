package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type productDoc struct {
	ID            string     `bson:"_id"`
	Name          string     `bson:"name"`
	Description   string     `bson:"description,omitempty"`
	Price         float64    `bson:"price"`
	OriginalPrice *float64   `bson:"original_price,omitempty"`
	Image         string     `bson:"image"`
	Rating        float64    `bson:"rating"`
	Sold          int        `bson:"sold"`
	Discount      int        `bson:"discount"`
	Category      string     `bson:"category"`
	Views         int        `bson:"views"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	IndexedAt     *time.Time `bson:"indexed_at,omitempty"`
}

func productToDoc(p product.Product) productDoc {
	return productDoc{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Rating:        p.Rating,
		Sold:          p.Sold,
		Discount:      p.Discount,
		Category:      p.Category,
		Views:         p.Views,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		IndexedAt:     p.IndexedAt,
	}
}

func (d productDoc) toDomain() product.Product {
	return product.Product{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		OriginalPrice: d.OriginalPrice,
		Image:         d.Image,
		Rating:        d.Rating,
		Sold:          d.Sold,
		Discount:      d.Discount,
		Category:      d.Category,
		Views:         d.Views,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		IndexedAt:     d.IndexedAt,
	}
}

type ProductsRepo struct {
	observer
	collection *mongo.Collection
}

func NewProductsRepo(db *mongo.Database, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{
		collection: db.Collection(productsCollection),
		observer:   observer{prom: prom},
	}
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) error {
	err := r.observe("products.create", func() error {
		_, err := r.collection.InsertOne(ctx, productToDoc(p))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductsRepo) List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error) {
	var docs []productDoc
	var total int64

	err := r.observe("products.list", func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetSkip(int64(f.Offset)).
			SetLimit(int64(f.Limit))

		cur, err := r.collection.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}

		total, err = r.collection.CountDocuments(ctx, bson.M{})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return docsToProducts(docs), int(total), nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	var doc productDoc

	err := r.observe("products.get_by_id", func() error {
		return r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProductsRepo) ListUnindexed(ctx context.Context, limit int) ([]product.Product, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"indexed_at": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$indexed_at", "$updated_at"}}},
		},
	}
	return r.findSorted(ctx, "products.list_unindexed", filter, limit)
}

func (r *ProductsRepo) ListAfterID(ctx context.Context, afterID string, limit int) ([]product.Product, error) {
	return r.findSorted(ctx, "products.list_after_id", bson.M{"_id": bson.M{"$gt": afterID}}, limit)
}

func (r *ProductsRepo) findSorted(ctx context.Context, op string, filter bson.M, limit int) ([]product.Product, error) {
	var docs []productDoc

	err := r.observe(op, func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(int64(limit))

		cur, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	return docsToProducts(docs), nil
}

func (r *ProductsRepo) MarkIndexed(ctx context.Context, id string, at time.Time) error {
	var matched int64

	err := r.observe("products.mark_indexed", func() error {
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
			"$set": bson.M{"indexed_at": at.UTC()},
		})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductsRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64

	err := r.observe("products.delete_all", func() error {
		res, err := r.collection.DeleteMany(ctx, bson.M{})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	return deleted, err
}

func docsToProducts(docs []productDoc) []product.Product {
	out := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}
