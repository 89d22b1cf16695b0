package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"syncboard/internal/pkg/auth/jwt"
	"syncboard/internal/pkg/limiter"
	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/resp"
)

// Router assembles the middleware stack and all application routes.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(corsHandler.Handler)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

	// Credential endpoints get a tight per-IP limit; brute force is the
	// only reason to hit them fast.
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(1), 5)
	// Room creation and WebSocket dials are cheap but user-driven.
	apiLimiter := limiter.NewIPRateLimiter(rate.Limit(5), 10)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", deps.RegisterHandler)
			r.Post("/login", deps.LoginHandler)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", deps.ListRoomsHandler)
			r.With(apiLimiter.Middleware).Post("/create", deps.CreateRoomHandler)
		})
	})

	upgrader := newUpgrader(deps.Config.AllowedOrigins)
	r.With(apiLimiter.Middleware).Get("/ws", deps.WSHandler(upgrader))

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp.RespondSuccess(w, r, map[string]string{"status": "ok"})
}
