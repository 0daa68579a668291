package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xenn00/ruready-server/config"
	call_handler "github.com/xenn00/ruready-server/internal/handlers/call-handler"
	hub_handler "github.com/xenn00/ruready-server/internal/handlers/hub-handler"
	message_handler "github.com/xenn00/ruready-server/internal/handlers/message-handler"
	user_handler "github.com/xenn00/ruready-server/internal/handlers/user-handler"
	"github.com/xenn00/ruready-server/internal/identity"
	"github.com/xenn00/ruready-server/internal/notify"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
	"github.com/xenn00/ruready-server/internal/presence"
	user_repo "github.com/xenn00/ruready-server/internal/repo/user"
	"github.com/xenn00/ruready-server/internal/routers"
	"github.com/xenn00/ruready-server/internal/rtc"
	call_service "github.com/xenn00/ruready-server/internal/use-case/call-case"
	message_service "github.com/xenn00/ruready-server/internal/use-case/message-case"
	"github.com/xenn00/ruready-server/internal/utils/types"
	"github.com/xenn00/ruready-server/internal/websocket"
	"github.com/xenn00/ruready-server/internal/worker"
	worker_handler "github.com/xenn00/ruready-server/internal/worker/worker-handler"
	"github.com/xenn00/ruready-server/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, realtime gateway and job workers.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func buildVerifier(ctx context.Context, app *state.AppState) (identity.TokenVerifier, error) {
	switch config.Conf.AUTH.Mode {
	case "jwt":
		return identity.NewJWTVerifier(app.JwtSecret.Public), nil
	default:
		return identity.NewFirebaseVerifier(ctx, app.Firebase)
	}
}

func buildNotifier(ctx context.Context, app *state.AppState) (notify.Notifier, error) {
	switch config.Conf.PUSH.Mode {
	case "http":
		return notify.NewHTTPNotifier(config.Conf.PUSH.URL, config.Conf.PUSH.Timeout), nil
	case "fcm":
		return notify.NewFCMNotifier(ctx, app.Firebase)
	default:
		log.Warn().Msg("push notifications disabled")
		return notify.NoopNotifier{}, nil
	}
}

func buildMailer() notify.Mailer {
	mail := config.Conf.MAIL
	if !mail.Enabled || mail.SMTPHost == "" {
		log.Info().Msg("missed-call email disabled")
		return notify.NoopMailer{}
	}
	return notify.NewGomailMailer(notify.SMTPConfig{
		Host:     mail.SMTPHost,
		Port:     mail.SMTPPort,
		Username: mail.Username,
		Password: mail.Password,
		From:     mail.From,
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	conf := config.Conf
	setupLogger(conf)
	metrics.MustRegister(conf.App.Name)

	app, err := state.InitAppState(ctx, stop, conf)
	if err != nil {
		return fmt.Errorf("failed to initialize application state: %w", err)
	}
	defer app.Close()

	verifier, err := buildVerifier(ctx, app)
	if err != nil {
		return err
	}
	notifier, err := buildNotifier(ctx, app)
	if err != nil {
		return err
	}
	tokens, err := rtc.NewTokenService(conf.AGORA.AppID, conf.AGORA.AppCertificate, conf.AGORA.TokenTTLSeconds)
	if err != nil {
		return err
	}

	wsHub := websocket.NewHub()
	defer wsHub.Close()
	bus := websocket.NewBus(app.Redis, wsHub)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to realtime events: %w", err)
	}
	log.Info().Msg("Websocket hub initialized")

	userRepo := user_repo.NewUserRepo(app)
	presenceService := presence.NewService(presence.NewStore(app.Redis, presence.DefaultTTL), userRepo, bus)
	callService := call_service.NewCallService(app, bus)
	messageService := message_service.NewMessageService(app)

	wsHub.SetHandler(websocket.NewDispatcher(messageService, callService, presenceService, bus))
	wsHub.SetHooks(websocket.Hooks{
		OnConnect: func(ctx context.Context, c *websocket.Client) {
			presenceService.Connected(ctx, c.UserID)
		},
		OnDisconnect: func(ctx context.Context, c *websocket.Client) {
			presenceService.Disconnected(ctx, c.UserID)
		},
		OnActivity: func(ctx context.Context, c *websocket.Client) {
			presenceService.Touch(ctx, c.UserID)
		},
	})

	wsConfig := websocket.DefaultConfig()
	wsConfig.AllowedOrigins = []string{conf.App.FrontendURL}
	wsHandler := websocket.NewWebSocketHandler(wsHub, verifier, wsConfig)
	log.Info().Msg("Websocket handler initialized")

	dlqStore := worker.NewMongoDLQStore(app.MongoDB, types.DefaultDLQRetryConfig().CollectionName)
	jobHandler := worker_handler.NewWorkerHandler(callService, userRepo, notifier, buildMailer())
	workerPool := worker.NewWorkerPool(app.Redis, conf.WORKER.Count, jobHandler, dlqStore)
	workerPool.Start(ctx)
	workerPool.StartDLQWorker(ctx)
	workerPool.StartDLQRetryConsumer(ctx)

	r := routers.NewRouter(&routers.Deps{
		Verifier:    verifier,
		Admins:      userRepo,
		Calls:       call_handler.NewCallHandler(callService, tokens),
		Messages:    message_handler.NewMessageHandler(messageService, bus),
		Users:       user_handler.NewUserHandler(userRepo, presenceService),
		Hub:         hub_handler.NewHubHandler(wsHub, workerPool, conf.App.Env),
		WS:          wsHandler,
		FrontendURL: conf.App.FrontendURL,
	})

	server := &http.Server{
		Addr:              conf.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", conf.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		return fmt.Errorf("ListenAndServe failed: %w", err)
	}

	log.Info().Msg("Shutdown initiated...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("Server exited gracefully.")
	}

	workerPool.Wait()
	return nil
}
