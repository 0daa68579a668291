package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
)

func MessageRouter(r chi.Router, deps *Deps) {
	messageHandler := deps.Messages
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.BearerAuth(deps.Verifier))
		protected.Post("/messages", handlers.WrapHandler(messageHandler.SendMessage))
		protected.Patch("/conversations/{conversationId}/read", handlers.WrapHandler(messageHandler.MarkAsRead))
		protected.Get("/conversations/{conversationId}/messages", handlers.WrapHandler(messageHandler.ListMessages))
	})
}
