// Package api assembles the HTTP surface: routes, middlewares and static UI.
package api

import (
	"net/http"

	"chat-relay/internal/api/handlers"
	appMiddleware "chat-relay/internal/api/middleware"
	"chat-relay/internal/app"
	"chat-relay/internal/auth"
	"chat-relay/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full route tree for cfg
func NewRouter(cfg *app.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.AccessLog)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AppConfig.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.HeaderUsername, auth.HeaderPassword},
		MaxAge:         300,
	}))

	authenticator := auth.NewAuthenticator(cfg.DB)
	authHandler := handlers.NewAuthHandlers(cfg)
	userHandler := handlers.NewUserHandlers(cfg)
	chatHandler := handlers.NewChatHandlers(cfg)
	shareHandler := handlers.NewShareHandlers(cfg)
	conversationHandler := handlers.NewConversationHandlers(cfg)
	chatLimiter := appMiddleware.NewUserRateLimiter(cfg.AppConfig.RateLimit)

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", handlers.HealthHandler)
		api.Get("/models", chatHandler.GetModelsHandler)
		api.Post("/auth", authHandler.LoginHandler)
		api.Get("/share/{id}", shareHandler.GetShareHandler)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(authenticator.Middleware)

			protected.With(chatLimiter.Middleware).Post("/chat", chatHandler.ChatStreamHandler)

			protected.Post("/share", shareHandler.CreateShareHandler)
			protected.Delete("/share/{id}", shareHandler.DeleteShareHandler)

			protected.Get("/conversations", conversationHandler.GetConversationsHandler)
			protected.Put("/conversations", conversationHandler.ReplaceConversationsHandler)
			protected.Get("/conversations/{id}", conversationHandler.GetConversationHandler)
			protected.Delete("/conversations/{id}", conversationHandler.DeleteConversationHandler)

			protected.Route("/users", func(admin chi.Router) {
				admin.Use(auth.RequireAdmin)
				admin.Get("/", userHandler.ListUsersHandler)
				admin.Post("/", userHandler.CreateUserHandler)
				admin.Put("/{username}", userHandler.UpdateUserHandler)
				admin.Delete("/{username}", userHandler.DeleteUserHandler)
			})
		})
	})

	if dir := cfg.AppConfig.Server.StaticDir; dir != "" {
		logger.Log.WithField("static_dir", dir).Info("Serving static UI")
		r.Handle("/*", newSPAHandler(dir))
	}

	return r
}
