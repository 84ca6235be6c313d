package main

// @title           Notify Service API
// @version         1.0
// @description     Real-time notification fan-out: WebSocket push, stored notifications and domain event ingestion
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "notify-service/docs"
	"notify-service/internal/adapters/kafka"
	"notify-service/internal/api/handlers"
	"notify-service/internal/api/middleware"
	"notify-service/internal/api/routes"
	"notify-service/internal/auth"
	"notify-service/internal/config"
	"notify-service/internal/database"
	"notify-service/internal/notifier"
	"notify-service/internal/repositories/postgres"
	"notify-service/internal/services"
	"notify-service/internal/websocket"
	"notify-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Starting notify service")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database, log)
	if err != nil {
		log.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisService := services.NewRedisService(redisClient)
	if err := redisService.ClearPresence(context.Background()); err != nil {
		log.Warn("Failed to clear stale presence", "error", err)
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Connection registry and handshake
	registry := websocket.NewRegistry(
		websocket.WithPresence(redisService),
		websocket.WithMetrics(websocket.NewMetrics(promRegistry)),
		websocket.WithLogger(log),
	)
	authService := auth.NewAuthService(auth.NewAuthRepository(db), cfg.JWT.Secret)
	wsServer := websocket.NewServer(registry, authService, cfg.Server.AllowedOrigins, websocket.ClientOptions{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}, log)

	// Event handling
	notificationRepo := postgres.NewNotificationRepository(db)
	eventService := services.NewEventService(notificationRepo, notifier.New(registry, notifier.WithLogger(log)), log)
	notificationService := services.NewNotificationService(notificationRepo)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	var deadLetter *kafka.DeadLetterProducer
	if cfg.Kafka.Enabled() {
		var dlq kafka.DeadLetterPublisher
		if cfg.Kafka.DeadLetterTopic != "" {
			deadLetter, err = kafka.NewDeadLetterProducer(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
			if err != nil {
				log.Error("Failed to create dead letter producer", "error", err)
				os.Exit(1)
			}
			dlq = deadLetter
		}

		consumer := kafka.NewConsumer(cfg.Kafka, eventService, dlq, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("Kafka consumer stopped", "error", err)
			}
			if err := consumer.Close(); err != nil {
				log.Warn("Failed to close Kafka consumer", "error", err)
			}
		}()
	} else {
		close(consumerDone)
		log.Info("Kafka not configured, event ingestion over HTTP only")
	}

	healthChecks := map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": redisClient.Ping,
	}
	limits := routes.Limits{
		Handshakes:      cfg.WebSocket.HandshakeLimit,
		HandshakeWindow: cfg.WebSocket.HandshakeWindow,
		Requests:        100,
		RequestWindow:   time.Minute,
	}

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Dependencies{
		WSHandler:           handlers.NewWSHandler(wsServer, registry),
		NotificationHandler: handlers.NewNotificationHandler(notificationService, log),
		EventHandler:        handlers.NewEventHandler(eventService, log),
		HealthHandler:       handlers.NewHealthHandler(registry, healthChecks),
		AuthMW:              middleware.NewAuthMiddleware(authService),
		RateLimitMW:         middleware.NewRateLimitMiddleware(redisService, log),
		InternalKey:         cfg.Internal.IngestKey,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		Limits:              limits,
		Gatherer:            promRegistry,
	})
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop taking events, then close every push channel.
	stopConsumer()
	<-consumerDone
	if deadLetter != nil {
		if err := deadLetter.Close(); err != nil {
			log.Warn("Failed to close dead letter producer", "error", err)
		}
	}

	wsServer.Close()
	registry.Shutdown(ctx)

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped")
}
