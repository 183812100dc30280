package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/storefront/internal/domain/todo"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TodosRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewTodosRepo(pool *pgxpool.Pool, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{pool: pool, observer: observer{prom: prom}}
}

func (r *TodosRepo) ListByUser(ctx context.Context, userID string) ([]todo.Todo, error) {
	output := make([]todo.Todo, 0)

	err := r.observe("todos.list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, title, done, created_at, updated_at
			FROM todos
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t todo.Todo
			if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return err
			}
			output = append(output, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) error {
	err := r.observe("todos.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO todos (id, user_id, title, done, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, t.UserID, t.Title, t.Done, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Update applies only the provided fields; rows owned by another user do not match.
func (r *TodosRepo) Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error) {
	var t todo.Todo

	err := r.observe("todos.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE todos
				SET title = COALESCE($3, title),
					done = COALESCE($4, done),
					updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING id, user_id, title, done, created_at, updated_at`,
			id, userID, req.Title, req.Done,
		).Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsInvalidInput(err) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, err
	}
	return t, nil
}

func (r *TodosRepo) Delete(ctx context.Context, userID, id string) error {
	var affected int64

	err := r.observe("todos.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		if IsInvalidInput(err) {
			return todo.ErrNotFound
		}
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return todo.ErrNotFound
	}
	return nil
}
