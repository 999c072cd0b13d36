package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codepair/internal/config"
	"codepair/internal/handler"
	"codepair/internal/middleware"
)

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, authHandler *handler.AuthHandler) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/auth/google", authHandler.Google)
	r.Get("/auth/google/callback", authHandler.GoogleCallback)
	r.Post("/refresh-token", authHandler.Refresh)
	r.With(authMiddleware.RequireAuth).Get("/profile", authHandler.Profile)
	r.Post("/logout", authHandler.Logout)

	return r
}
