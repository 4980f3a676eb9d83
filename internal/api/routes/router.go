package routes

import (
	"net/http"

	"github.com/smartscheduler/backend/internal/api/handlers"
	"github.com/smartscheduler/backend/internal/api/middleware"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookingHandler        *handlers.BookingHandler
	availabilityHandler   *handlers.AvailabilityHandler
	recommendationHandler *handlers.RecommendationHandler
	providerHandler       *handlers.ProviderHandler
	healthHandler         *handlers.HealthHandler

	responseCache  *middleware.ResponseCache
	rateLimiter    *middleware.RateLimiter
	adminToken     string
	allowedOrigins []string
	metrics        *observability.Metrics
}

// Options carries the optional cross-cutting pieces of the router
type Options struct {
	ResponseCache  *middleware.ResponseCache
	RateLimiter    *middleware.RateLimiter
	AdminToken     string
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	bookingHandler *handlers.BookingHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	recommendationHandler *handlers.RecommendationHandler,
	providerHandler *handlers.ProviderHandler,
	healthHandler *handlers.HealthHandler,
	opts Options,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		bookingHandler:        bookingHandler,
		availabilityHandler:   availabilityHandler,
		recommendationHandler: recommendationHandler,
		providerHandler:       providerHandler,
		healthHandler:         healthHandler,
		responseCache:         opts.ResponseCache,
		rateLimiter:           opts.RateLimiter,
		adminToken:            opts.AdminToken,
		allowedOrigins:        opts.AllowedOrigins,
		metrics:               opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	admin := middleware.AdminAuth(r.adminToken)

	// Provider directory
	r.mux.Handle("GET /api/providers", r.responseCache.Middleware(http.HandlerFunc(r.providerHandler.ListProviders)))
	r.mux.Handle("GET /api/providers/{id}", r.responseCache.Middleware(http.HandlerFunc(r.providerHandler.GetProvider)))
	r.mux.Handle("POST /api/admin/providers", admin(r.responseCache.Invalidating(http.HandlerFunc(r.providerHandler.RegisterProvider))))

	// Availability is read fresh on every request
	r.mux.HandleFunc("GET /api/providers/{id}/availability", r.availabilityHandler.GetAvailability)
	r.mux.Handle("POST /api/admin/availability/generate", admin(http.HandlerFunc(r.availabilityHandler.Generate)))

	// Booking and recommendations are throttled per client
	r.mux.Handle("POST /api/bookings", r.rateLimiter.Middleware(http.HandlerFunc(r.bookingHandler.Book)))
	r.mux.Handle("POST /api/recommendations", r.rateLimiter.Middleware(http.HandlerFunc(r.recommendationHandler.Recommend)))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	origins := r.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler = middleware.CORS(origins)(handler)

	return handler
}
