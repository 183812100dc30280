package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/storefront/internal/catalog"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/search"
	"github.com/gin-gonic/gin"
)

type CatalogService interface {
	Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error)
	List(ctx context.Context, page, limit int) (product.Page, error)
}

type ProductSearcher interface {
	Search(ctx context.Context, params search.Params) (search.Result, error)
}

type ProductsHandler struct {
	catalog  CatalogService
	searcher ProductSearcher
}

func NewProductsHandler(catalog CatalogService, searcher ProductSearcher) *ProductsHandler {
	return &ProductsHandler{catalog: catalog, searcher: searcher}
}

func (h *ProductsHandler) ListProducts(ctx *gin.Context) {
	page, limit := product.Paging(ctx.Query("page"), ctx.Query("limit"))

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	out, err := h.catalog.List(cctx, page, limit)
	if err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not list products")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, out)
}

func (h *ProductsHandler) SearchProducts(ctx *gin.Context) {
	params, err := search.ParseParams(ctx.Request.URL.Query())
	if err != nil {
		var pe search.ParamErrors
		if errors.As(err, &pe) {
			RespondBadRequest(ctx, "Invalid search parameters", gin.H{"fields": pe})
			return
		}
		RespondBadRequest(ctx, "Invalid search parameters", nil)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.searcher.Search(cctx, params)
	if err != nil {
		_ = ctx.Error(err)
		RespondBadGateway(ctx, "search_unavailable", "Search is temporarily unavailable.")
		return
	}

	ctx.JSON(http.StatusOK, res.ToPage(params))
}

func (h *ProductsHandler) CreateProduct(ctx *gin.Context) {
	var req product.CreateProductRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	p, err := h.catalog.Create(cctx, req)
	if err != nil {
		_ = ctx.Error(err)
		if errors.Is(err, catalog.ErrIndexFailed) {
			RespondError(ctx, http.StatusBadGateway, "search_index_failed",
				"Product was saved but could not be indexed for search yet.",
				gin.H{"productId": p.ID},
			)
			return
		}
		RespondInternal(ctx, "Could not create product")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Product created",
		"product": p,
	})
}
