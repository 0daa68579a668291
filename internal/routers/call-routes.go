package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
)

func CallRouter(r chi.Router, deps *Deps) {
	callHandler := deps.Calls

	// media-session tokens are issued without a session, as the web client expects
	r.Post("/call/token", handlers.WrapHandler(callHandler.GenerateToken))

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.BearerAuth(deps.Verifier))
		protected.Post("/calls", handlers.WrapHandler(callHandler.Initiate))
		protected.Get("/calls/active", handlers.WrapHandler(callHandler.Active))
		protected.Get("/calls/logs", handlers.WrapHandler(callHandler.Logs))
		protected.Post("/calls/{callId}/accept", handlers.WrapHandler(callHandler.Accept))
		protected.Post("/calls/{callId}/end", handlers.WrapHandler(callHandler.End))
		protected.Post("/calls/{callId}/media", handlers.WrapHandler(callHandler.Media))
	})
}
