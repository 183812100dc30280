package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/domain/todo"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type TodosStore interface {
	ListByUser(ctx context.Context, userID string) ([]todo.Todo, error)
	Create(ctx context.Context, t todo.Todo) error
	Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

type TodosHandler struct {
	repo TodosStore
}

func NewTodosHandler(repo TodosStore) *TodosHandler {
	return &TodosHandler{repo: repo}
}

func (h *TodosHandler) owner(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return "", false
	}
	return id, true
}

func (h *TodosHandler) ListTodos(ctx *gin.Context) {
	userID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, userID)
	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not list todos")
		return
	}
	if items == nil {
		items = []todo.Todo{}
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *TodosHandler) CreateTodo(ctx *gin.Context) {
	userID, ok := h.owner(ctx)
	if !ok {
		return
	}

	var req todo.CreateTodoRequest
	if !BindJSON(ctx, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		RespondBadRequest(ctx, "Invalid request body", blankTitle())
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	t := todo.New(userID, req.Title)
	if err := h.repo.Create(cctx, t); err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not create todo")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *TodosHandler) UpdateTodo(ctx *gin.Context) {
	userID, ok := h.owner(ctx)
	if !ok {
		return
	}

	var req todo.UpdateTodoRequest
	if !BindJSON(ctx, &req) {
		return
	}
	if req.Empty() {
		RespondBadRequest(ctx, "Nothing to update", gin.H{"fields": []FieldError{
			{Field: "title", Rule: "required_without", Param: "done", Message: "title or done is required"},
		}})
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		RespondBadRequest(ctx, "Invalid request body", blankTitle())
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	t, err := h.repo.Update(cctx, userID, ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			RespondNotFound(ctx, "Todo not found")
			return
		}
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not update todo")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TodosHandler) DeleteTodo(ctx *gin.Context) {
	userID, ok := h.owner(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, userID, ctx.Param("id")); err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			RespondNotFound(ctx, "Todo not found")
			return
		}
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not delete todo")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func blankTitle() gin.H {
	return gin.H{"fields": []FieldError{
		{Field: "title", Rule: "required", Message: "is required"},
	}}
}
