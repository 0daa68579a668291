package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
)

func UserRouter(r chi.Router, deps *Deps) {
	userHandler := deps.Users
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.BearerAuth(deps.Verifier))
		protected.Put("/users/me", handlers.WrapHandler(userHandler.UpsertMe))
		protected.Put("/users/me/push-token", handlers.WrapHandler(userHandler.SetPushToken))
		protected.Get("/users/{userId}/presence", handlers.WrapHandler(userHandler.GetPresence))
	})
}
