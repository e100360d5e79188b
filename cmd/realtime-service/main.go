package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	intDatabase "soullink-backend/internal/database"
	chatHandler "soullink-backend/internal/handler/http/chat"
	presenceHandler "soullink-backend/internal/handler/http/presence"
	wsHandler "soullink-backend/internal/handler/ws"
	"soullink-backend/internal/middleware"
	"soullink-backend/internal/presence"
	"soullink-backend/internal/repository/cassandra"
	"soullink-backend/internal/repository/memory"
	redisRepo "soullink-backend/internal/repository/redis"
	"soullink-backend/internal/rooms"
	callService "soullink-backend/internal/service/call"
	chatService "soullink-backend/internal/service/chat"
	reactionService "soullink-backend/internal/service/reaction"
	"soullink-backend/pkg/constants"
	"soullink-backend/pkg/env"
	"soullink-backend/pkg/jwt"
	"soullink-backend/pkg/logger"
	"soullink-backend/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	// 1. JWT manager for the REST surface
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		logger.Fatal("JWT_SECRET must be at least 32 characters")
	}
	jwtManager := jwt.NewManager(jwtSecret, constants.AccessTokenExpiry)

	// 2. Cassandra for message bundles; falls back to the in-memory store
	// when no host is configured (local development)
	var messageRepo chatService.MessageRepository
	if cassandraHost := env.GetString("CASSANDRA_HOST", ""); cassandraHost != "" {
		cassandraConfig := &intDatabase.CassandraConfig{
			Hosts:    []string{cassandraHost},
			Keyspace: env.GetString("CASSANDRA_KEYSPACE", "soullink_ks"),
			Username: env.GetStringFromFile("CASSANDRA_USER", ""),
			Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
			Timeout:  10 * time.Second,
		}
		cassandraDB, err := intDatabase.NewCassandraDB(cassandraConfig)
		if err != nil {
			logger.Fatal("Failed to connect to Cassandra", zap.Error(err))
		}
		defer cassandraDB.Close()
		messageRepo = cassandra.NewBundleRepository(cassandraDB)
		logger.Info("Connected to Cassandra", zap.String("host", cassandraHost))
	} else {
		messageRepo = memory.NewBundleRepository()
		logger.Warn("CASSANDRA_HOST not set, using in-memory message store")
	}

	// 3. Redis for the presence mirror and cross-instance publish; optional
	var publisher chatService.Publisher
	var mirror wsHandler.PresenceMirror
	var presenceRepo *redisRepo.PresenceRepository
	if redisHost := env.GetString("REDIS_HOST", ""); redisHost != "" {
		redisConfig := &intDatabase.RedisConfig{
			Host:     redisHost,
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       0,
			PoolSize: 10,
			Timeout:  5 * time.Second,
		}
		redisDB, err := intDatabase.NewRedisDB(redisConfig)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisDB.Close()
		publisher = &chatService.RedisAdapter{Client: redisDB.Client}
		presenceRepo = redisRepo.NewPresenceRepository(redisDB.Client)
		mirror = presenceRepo
		logger.Info("Connected to Redis", zap.String("host", redisHost))
	} else {
		logger.Warn("REDIS_HOST not set, presence mirror and pub/sub disabled")
	}

	// 4. Metrics
	appMetrics := metrics.NewMetrics("realtime-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 5. Core state and services
	directory := presence.NewDirectory()
	router := rooms.NewRouter()
	chatSvc := chatService.NewService(messageRepo, router, publisher, appMetrics)

	ringTimeout := env.GetDuration("CALL_RING_TIMEOUT", constants.DefaultRingTimeout)
	callRelay := callService.NewRelay(directory, router, ringTimeout, appMetrics)
	reactions := reactionService.NewBroadcaster(router, appMetrics)

	// 6. Transport
	hub := wsHandler.NewHub(directory, router, chatSvc, callRelay, reactions, mirror, publisher, appMetrics)
	chatHdlr := chatHandler.NewHandler(chatSvc, appMetrics)

	// 7. HTTP router
	engine := gin.New()
	engine.SetTrustedProxies(nil)

	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(prometheusMiddleware.Handler())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "realtime-service",
			"time":    time.Now().UTC(),
		})
	})
	engine.GET("/metrics", middleware.MetricsHandler(appMetrics))

	// The socket authenticates via register_user, not a bearer token
	engine.GET("/ws", hub.ServeWS)

	v1 := engine.Group("/v1")
	v1.Use(middleware.Timeout(constants.DefaultTimeout))
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		v1.GET("/chat/:roomId", chatHdlr.GetRoomHistory)
		v1.DELETE("/chat/message", chatHdlr.DeleteMessage)
	}
	if presenceRepo != nil {
		presenceHdlr := presenceHandler.NewHandler(presenceRepo)
		v1.GET("/presence/online", presenceHdlr.OnlineUsers)
		v1.GET("/presence/:userId", presenceHdlr.UserStatus)
	}

	// 8. Serve with graceful shutdown
	port := env.GetString("PORT", "8084")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      engine,
		ReadTimeout:  constants.DefaultTimeout,
		WriteTimeout: constants.DefaultTimeout,
	}

	go func() {
		logger.Info("Realtime service listening", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down realtime service")
	ctx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Realtime service stopped")
}
