package todo

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("todo not found")

type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateTodoRequest struct {
	Title string `json:"title" binding:"required,max=500"`
}

// UpdateTodoRequest is a partial update; nil fields are left unchanged.
type UpdateTodoRequest struct {
	Title *string `json:"title" binding:"omitempty,max=500"`
	Done  *bool   `json:"done"`
}

func (r UpdateTodoRequest) Empty() bool {
	return r.Title == nil && r.Done == nil
}

func New(userID, title string) Todo {
	now := time.Now().UTC()

	return Todo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
