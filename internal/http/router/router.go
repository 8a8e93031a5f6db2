package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/http/handler"
	"github.com/xcloud/console-client/internal/http/middleware"
	"github.com/xcloud/console-client/internal/http/response"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	Authenticator    middleware.Authenticator
	Logger           *slog.Logger
	AuthRateLimitRPM int
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.EchoRequestID)
	if dep.Logger != nil {
		r.Use(middleware.RequestLogger(dep.Logger))
	}
	r.Use(chimiddleware.RequestSize(1 << 20))

	authChain := []func(http.Handler) http.Handler{}
	if dep.AuthRateLimitRPM > 0 {
		authChain = append(authChain, middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware())
	}
	requireAuth := middleware.AuthMiddleware(dep.Authenticator)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, "ok", map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authChain...)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh", dep.AuthHandler.Refresh)
			r.With(requireAuth).Post("/logout", dep.AuthHandler.Logout)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/profile", dep.UserHandler.Profile)
			r.With(middleware.RequireRole(domain.RoleAdmin)).Get("/", dep.UserHandler.List)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "not found", r.URL.Path)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
