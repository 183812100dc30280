package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/todo"
)

type TodosRepo struct {
	mu    sync.RWMutex
	items map[string]todo.Todo
}

func NewTodosRepo() *TodosRepo {
	return &TodosRepo{
		items: make(map[string]todo.Todo),
	}
}

func (r *TodosRepo) ListByUser(_ context.Context, userID string) ([]todo.Todo, error) {
	r.mu.RLock()
	out := make([]todo.Todo, 0)
	for _, t := range r.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *TodosRepo) Create(_ context.Context, t todo.Todo) error {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return nil
}

// Update and Delete treat a todo owned by someone else as missing.
func (r *TodosRepo) Update(_ context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.UserID != userID {
		return todo.Todo{}, todo.ErrNotFound
	}

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Done != nil {
		t.Done = *req.Done
	}
	t.UpdatedAt = time.Now().UTC()

	r.items[id] = t
	return t, nil
}

func (r *TodosRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.UserID != userID {
		return todo.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
