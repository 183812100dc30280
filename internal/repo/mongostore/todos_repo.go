package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/domain/todo"
	"github.com/geocoder89/storefront/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type todoDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Title     string    `bson:"title"`
	Done      bool      `bson:"done"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d todoDoc) toDomain() todo.Todo {
	return todo.Todo{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Done:      d.Done,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type TodosRepo struct {
	observer
	collection *mongo.Collection
}

func NewTodosRepo(db *mongo.Database, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{
		collection: db.Collection(todosCollection),
		observer:   observer{prom: prom},
	}
}

func (r *TodosRepo) ListByUser(ctx context.Context, userID string) ([]todo.Todo, error) {
	var docs []todoDoc

	err := r.observe("todos.list_by_user", func() error {
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

		cur, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	out := make([]todo.Todo, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) error {
	doc := todoDoc{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}

	err := r.observe("todos.create", func() error {
		_, err := r.collection.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (r *TodosRepo) Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		set["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Done != nil {
		set["done"] = *req.Done
	}

	var doc todoDoc
	err := r.observe("todos.update", func() error {
		return r.collection.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "user_id": userID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, err
	}
	return doc.toDomain(), nil
}

func (r *TodosRepo) Delete(ctx context.Context, userID, id string) error {
	var deleted int64

	err := r.observe("todos.delete", func() error {
		res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return todo.ErrNotFound
	}
	return nil
}
