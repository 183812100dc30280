package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/geocoder89/storefront/internal/media"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxJSONBody = 1 << 20

type Deps struct {
	Config config.Config
	Log    *slog.Logger

	// Prom and Metrics are optional; tests usually leave them nil.
	Prom    *observability.Prom
	Metrics http.Handler

	Accounts handlers.AccountService
	Catalog  handlers.CatalogService
	Searcher handlers.ProductSearcher
	Todos    handlers.TodosStore
	Tokens   middlewares.TokenVerifier

	// Images is nil when no bucket is configured.
	Images handlers.ImageUploader

	ReadyChecks map[string]func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if !d.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery(d.Log))
	r.Use(otelgin.Middleware("storefront-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(d.ReadyChecks)
	r.GET("/health", h.Healthz)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")

	// auth
	authHandler := handlers.NewAuthHandler(d.Accounts)
	authLimiter := middlewares.NewRateLimiter(d.Config.AuthRatePerMinute)

	authGroup := api.Group("/auth")
	authGroup.Use(
		authLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		middlewares.MaxBodyBytes(maxJSONBody),
		middlewares.RequireJSON(),
	)
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/register/resend-otp", authHandler.ResendRegisterOTP)
	authGroup.POST("/register/verify-otp", authHandler.VerifyRegisterOTP)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password-otp", authHandler.ResetPasswordWithOTP)

	// products
	productsHandler := handlers.NewProductsHandler(d.Catalog, d.Searcher)
	products := api.Group("/products")
	products.GET("", productsHandler.ListProducts)
	products.GET("/search", productsHandler.SearchProducts)
	products.POST("",
		middlewares.MaxBodyBytes(maxJSONBody),
		middlewares.RequireJSON(),
		productsHandler.CreateProduct,
	)

	if d.Images != nil {
		imagesHandler := handlers.NewImagesHandler(d.Images)
		products.POST("/images",
			middlewares.MaxBodyBytes(media.MaxImageBytes+64<<10),
			imagesHandler.Upload,
		)
	}

	// todos
	authMw := middlewares.NewAuthMiddleware(d.Tokens)
	todoLimiter := middlewares.NewRateLimiter(120)
	todosHandler := handlers.NewTodosHandler(d.Todos)

	todos := api.Group("/todos")
	todos.Use(
		authMw.RequireAuth(),
		todoLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
	)
	todos.GET("", todosHandler.ListTodos)
	todos.POST("", middlewares.MaxBodyBytes(maxJSONBody), middlewares.RequireJSON(), todosHandler.CreateTodo)
	todos.PATCH("/:id", middlewares.MaxBodyBytes(maxJSONBody), middlewares.RequireJSON(), todosHandler.UpdateTodo)
	todos.DELETE("/:id", todosHandler.DeleteTodo)

	return r
}
