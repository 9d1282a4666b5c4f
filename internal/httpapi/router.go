package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nikolayk812/cart-service/internal/correlation"
)

const serviceName = "cart-service"

type Deps struct {
	Logger *slog.Logger

	Service CartService
	Health  HealthChecker

	RequestTimeout   time.Duration
	CORSAllowOrigins []string
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Service, d.Health, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", HeaderUserID, HeaderSessionID, correlation.Header},
		ExposedHeaders:   []string{HeaderSessionID, correlation.Header},
		AllowCredentials: false,
		MaxAge:           600,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(RequestTimeout(d.RequestTimeout))
		r.Use(ResolveIdentity)

		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)

		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemId}", h.UpdateItem)
		r.Delete("/items/{itemId}", h.RemoveItem)

		r.Post("/merge", h.MergeCarts)
		r.Post("/checkout", h.Checkout)
	})

	return r
}
