// Package main runs the watch party HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/couchparty/backend/config"
	"github.com/couchparty/backend/internal/auth"
	"github.com/couchparty/backend/internal/chat"
	"github.com/couchparty/backend/internal/events"
	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/internal/presence"
	"github.com/couchparty/backend/internal/realtime"
	"github.com/couchparty/backend/internal/soundboard"
	"github.com/couchparty/backend/pkg/database"
	"github.com/couchparty/backend/pkg/queue"
	"github.com/couchparty/backend/pkg/redis"
	"github.com/couchparty/backend/pkg/response"
	"github.com/couchparty/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ClipsBucket:          cfg.AWS.ClipsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Parties and chat
	partyRepo := parties.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)
	partyHandler := parties.NewHandler(partyRepo, chatRepo, hub, logger)
	chatHandler := chat.NewHandler(chatRepo, partyRepo, hub, logger)

	// Ephemeral party events
	eventHandler := events.NewHandler(partyRepo, hub, logger)

	// Soundboard
	soundRepo := soundboard.NewRepository(pool)
	soundHandler := soundboard.NewHandler(soundRepo, partyRepo, s3Client, logger)

	// Presence log and abandoned-party sweeping
	presenceRepo := presence.NewRepository(pool)
	presenceHandler := presence.NewHandler(presenceRepo, partyRepo)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	hub.SetPresenceHandlers(
		func(partyID, userID uuid.UUID) {
			_ = presenceRepo.LogJoin(context.Background(), partyID, userID)
		},
		func(partyID, userID uuid.UUID) {
			_ = presenceRepo.LogLeave(context.Background(), partyID, userID)
		},
	)
	hub.SetStateProvider(func(partyID uuid.UUID) (interface{}, bool) {
		p, err := partyRepo.GetByID(context.Background(), partyID)
		if err != nil {
			return nil, false
		}
		return p, true
	})
	hub.SetEmptyHandler(func(partyID uuid.UUID) {
		if err := jobQueue.EnqueueSweep(context.Background(), queue.PartySweepPayload{PartyID: partyID}); err != nil {
			logger.Warn("enqueue sweep", zap.Error(err))
		}
	})

	jwtValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Name, nil
	}
	membershipGate := func(partyID, userID uuid.UUID) bool {
		ok, err := partyRepo.IsMember(context.Background(), partyID, userID)
		return err == nil && ok
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)

		// Parties
		api.POST("/parties", partyHandler.Create)
		api.GET("/parties/:id", partyHandler.GetByID)
		api.POST("/parties/:id/join", partyHandler.Join)
		api.PATCH("/parties/:id/media", partyHandler.UpdateMedia)
		api.PATCH("/parties/:id/state", partyHandler.PublishState)
		api.POST("/parties/:id/end", partyHandler.End)
		api.GET("/parties/:id/participant_count", partyHandler.ParticipantCount)

		// Chat
		api.POST("/parties/:id/messages", chatHandler.Send)
		api.GET("/parties/:id/messages", chatHandler.Backlog)

		// Ephemeral events
		api.POST("/parties/:id/events", eventHandler.Trigger)

		// Soundboard
		api.POST("/parties/:id/sounds", soundHandler.Upload)
		api.GET("/parties/:id/sounds", soundHandler.List)
		api.GET("/sounds/:id/url", soundHandler.DownloadURL)
		api.DELETE("/sounds/:id", soundHandler.Delete)

		// Presence
		api.GET("/parties/:id/presence", presenceHandler.ListByParty)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, membershipGate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
