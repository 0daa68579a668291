package routers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xenn00/ruready-server/internal/dtos"
	"github.com/xenn00/ruready-server/internal/handlers"
	call_handler "github.com/xenn00/ruready-server/internal/handlers/call-handler"
	hub_handler "github.com/xenn00/ruready-server/internal/handlers/hub-handler"
	message_handler "github.com/xenn00/ruready-server/internal/handlers/message-handler"
	user_handler "github.com/xenn00/ruready-server/internal/handlers/user-handler"
	"github.com/xenn00/ruready-server/internal/identity"
	"github.com/xenn00/ruready-server/internal/middleware"
)

const (
	apiRateLimit  = 1000
	apiRateWindow = 15 * time.Minute
)

// Deps carries everything the HTTP surface is built from. WS may be nil when
// realtime is disabled.
type Deps struct {
	Verifier    identity.TokenVerifier
	Admins      middleware.AdminChecker
	Calls       *call_handler.CallHandler
	Messages    *message_handler.MessageHandler
	Users       *user_handler.UserHandler
	Hub         *hub_handler.HubHandler
	WS          http.Handler
	FrontendURL string
}

func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusNotFound, dtos.ErrorResponse{
			Success:   false,
			Error:     "Route not found",
			RequestID: handlers.RequestID(r),
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	if deps.WS != nil {
		r.Handle("/ws", deps.WS)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(httprate.Limit(apiRateLimit, apiRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(tooManyRequests),
		))

		HubRouter(api, deps)
		CallRouter(api, deps)
		MessageRouter(api, deps)
		UserRouter(api, deps)
	})

	return r
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusTooManyRequests, dtos.ErrorResponse{
		Success:   false,
		Error:     "Too many requests from this IP, please try again later.",
		RequestID: handlers.RequestID(r),
	})
}
