package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/bandsite/fan-chat/internal/config"
	"github.com/bandsite/fan-chat/internal/handler"
	"github.com/bandsite/fan-chat/internal/hub"
	"github.com/bandsite/fan-chat/internal/presence"
	"github.com/bandsite/fan-chat/internal/service"
	pkgconfig "github.com/bandsite/fan-chat/pkg/config"
	"github.com/bandsite/fan-chat/pkg/jwt"
	pkglog "github.com/bandsite/fan-chat/pkg/log"
)

const (
	hubEventBuffer     = 1024
	presenceQueueDepth = 1024
)

func main() {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to read .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "fan-chat"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting fan-chat")

	// Directory mirror
	var mirror presence.Mirror = presence.NoopMirror{}
	if cfg.Redis.Enabled {
		redisMirror, err := presence.NewRedisMirror(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create redis presence mirror")
		}
		logger.Info().Str("address", cfg.Redis.Address).Str("prefix", cfg.Redis.Prefix).Msg("connected to redis")
		mirror = presence.NewQueuedMirror(redisMirror, presenceQueueDepth)
	}
	defer mirror.Close()

	// Admin policy
	opts := service.Options{Mirror: mirror}
	switch cfg.Chat.AdminPolicy {
	case config.AdminPolicyVerify:
		manager, err := jwt.NewManager(cfg.Chat.AdminSecret, cfg.Chat.AdminIssuer, cfg.Chat.AdminTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create admin token verifier")
		}
		opts.Verifier = manager
	default:
		logger.Warn().Msg("admin policy is trust: isAdmin on join is taken from the client unverified")
	}

	// Chat core
	chatSvc := service.NewChatService(opts)
	h := hub.NewHub(chatSvc, hubEventBuffer)

	// Routes
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), pkglog.GinMiddleware(logger))

	handler.NewWSHandler(h, cfg.WebSocket).RegisterRoutes(router)
	handler.NewHTTPHandler(h).RegisterRoutes(router)

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.Run(gCtx)
	})

	g.Go(func() error {
		return mirror.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("ws_path", cfg.WebSocket.Path).Msg("fan-chat listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down fan-chat")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		// hijacked websocket connections are closed by the hub on its way out
		<-h.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("fan-chat exited with error")
		mirror.Close()
		os.Exit(1)
	}
	logger.Info().Msg("fan-chat stopped")
}
