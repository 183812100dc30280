package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/db"
	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/domain/todo"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/repo/memory"
	"github.com/geocoder89/storefront/internal/repo/mongostore"
	"github.com/geocoder89/storefront/internal/repo/postgres"
)

type UsersRepository interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	SetOTP(ctx context.Context, id string, purpose user.OTPPurpose, hash string, expiresAt time.Time) error
	ConsumeOTPAttempt(ctx context.Context, id string, purpose user.OTPPurpose, now time.Time) (user.OTPSlot, error)
	MarkVerified(ctx context.Context, id, otpHash string) error
	ResetPassword(ctx context.Context, id, otpHash, passwordHash string) error
}

type ProductsRepository interface {
	Create(ctx context.Context, p product.Product) error
	List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	ListUnindexed(ctx context.Context, limit int) ([]product.Product, error)
	MarkIndexed(ctx context.Context, id string, at time.Time) error
	ListAfterID(ctx context.Context, afterID string, limit int) ([]product.Product, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type TodosRepository interface {
	ListByUser(ctx context.Context, userID string) ([]todo.Todo, error)
	Create(ctx context.Context, t todo.Todo) error
	Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

// Stores bundles the repositories of one backing driver.
type Stores struct {
	Driver   string
	Users    UsersRepository
	Products ProductsRepository
	Todos    TodosRepository

	// Ping backs the readiness probe.
	Ping  func(ctx context.Context) error
	Close func()
}

func NewMemoryStores() Stores {
	return Stores{
		Driver:   "memory",
		Users:    memory.NewUsersRepo(),
		Products: memory.NewProductsRepo(),
		Todos:    memory.NewTodosRepo(),
		Ping:     func(context.Context) error { return nil },
		Close:    func() {},
	}
}

// Open connects the driver named by cfg.StoreDriver and prepares its schema.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (Stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory stores; data is lost on restart")
		return NewMemoryStores(), nil

	case "mongo":
		client, database, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return Stores{}, err
		}
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return Stores{}, err
		}

		return Stores{
			Driver:   "mongo",
			Users:    mongostore.NewUsersRepo(database, prom),
			Products: mongostore.NewProductsRepo(database, prom),
			Todos:    mongostore.NewTodosRepo(database, prom),
			Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			Close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL, db.PoolOptions{AppName: "storefront-" + cfg.Env})
		if err != nil {
			return Stores{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, err
		}

		return Stores{
			Driver:   "postgres",
			Users:    postgres.NewUsersRepo(pool, prom),
			Products: postgres.NewProductsRepo(pool, prom),
			Todos:    postgres.NewTodosRepo(pool, prom),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
