package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramikart/ramikart-backend/api/controllers"
	"github.com/ramikart/ramikart-backend/api/middleware"
	"github.com/ramikart/ramikart-backend/internal/auth"
	"github.com/ramikart/ramikart-backend/internal/catalog"
	"github.com/ramikart/ramikart-backend/internal/chat"
	"github.com/ramikart/ramikart-backend/internal/orders"
	"github.com/ramikart/ramikart-backend/internal/presence"
	"github.com/ramikart/ramikart-backend/internal/realtime"
	"github.com/ramikart/ramikart-backend/pkg/auth/session"
	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/db"
	"github.com/ramikart/ramikart-backend/pkg/logger"
	"github.com/ramikart/ramikart-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	SessionManager session.AccessSessionChecker
	AuthService    auth.Service
	CatalogService catalog.Service
	OrdersService  orders.Service
	ChatService    chat.Service
	PresenceSvc    *presence.Service
	Hub            *realtime.Hub
	Metrics        http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Surface:  "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Surface:  "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
		PerEmail: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	authMW := middleware.Auth(cfg.JWT, deps.SessionManager, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.With(authMW).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	// marketplace browsing is public
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.CatalogService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Use(middleware.Idempotency(deps.Redis, logg))
			r.Post("/", controllers.ProductCreate(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(deps.CatalogService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW)
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderPlace(deps.OrdersService, logg))
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(deps.OrdersService, logg))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", controllers.ConversationStart(deps.ChatService, logg))
			r.Get("/", controllers.ConversationList(deps.ChatService, logg))
			r.Get("/{conversationId}/messages", controllers.ConversationMessages(deps.ChatService, logg))
			r.Post("/{conversationId}/messages", controllers.ConversationSendMessage(deps.ChatService, logg))
			r.Post("/{conversationId}/read", controllers.ConversationMarkRead(deps.ChatService, logg))
		})

		r.Get("/ws", controllers.WebSocket(deps.Hub, deps.PresenceSvc, deps.ChatService, cfg.Realtime, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authMW)
		r.Use(middleware.RequireRole("admin", logg))
		r.Route("/orders", func(r chi.Router) {
			r.Patch("/{orderId}/status", controllers.AdminOrderStatus(deps.OrdersService, logg))
		})
	})

	return r
}
