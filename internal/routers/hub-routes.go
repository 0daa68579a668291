package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
)

func HubRouter(r chi.Router, deps *Deps) {
	hubHandler := deps.Hub
	r.Get("/health", handlers.WrapHandler(hubHandler.Health))

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.BearerAuth(deps.Verifier))
		admin.Use(middleware.RequireAdmin(deps.Admins))

		admin.Get("/ws/stats", handlers.WrapHandler(hubHandler.HandleGetHubStats))
		admin.Get("/ws/users/{userId}", handlers.WrapHandler(hubHandler.HandleGetUserConnections))
		admin.Post("/ws/users/{userId}/disconnect", handlers.WrapHandler(hubHandler.HandleDisconnectUser))
		admin.Get("/dlq/stats", handlers.WrapHandler(hubHandler.HandleGetDLQStats))
	})
}
