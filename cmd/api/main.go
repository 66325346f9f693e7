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
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"writehub/order-portal/order-portal-backend/internal/auth"
	"writehub/order-portal/order-portal-backend/internal/config"
	"writehub/order-portal/order-portal-backend/internal/db"
	"writehub/order-portal/order-portal-backend/internal/exports"
	"writehub/order-portal/order-portal-backend/internal/messaging"
	"writehub/order-portal/order-portal-backend/internal/notifications"
	wshub "writehub/order-portal/order-portal-backend/internal/notifications/websocket"
	"writehub/order-portal/order-portal-backend/internal/orders"
	"writehub/order-portal/order-portal-backend/internal/payments"
	"writehub/order-portal/order-portal-backend/internal/scheduler"
	"writehub/order-portal/order-portal-backend/internal/users"
	"writehub/order-portal/order-portal-backend/pkg/storage"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	sqlDB, err := db.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer sqlDB.Close()

	// gorm rides on the same database; only the notification log uses it.
	gormDB, err := gorm.Open(gormpostgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	ctx := context.Background()
	s3, err := storage.NewS3Client(ctx, storage.Config{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	var emailSender notifications.EmailSender
	if cfg.Email.Enabled {
		emailSender, err = notifications.NewSESSender(ctx, cfg.Email.Region, cfg.Email.FromAddress)
		if err != nil {
			logger.Fatal("Failed to initialize email sender", zap.Error(err))
		}
	} else {
		emailSender = notifications.NewLogSender(logger)
	}

	userRepo := users.NewRepository(sqlDB)

	hub := wshub.NewHub(logger)
	defer hub.Close()

	notifier, err := notifications.NewService(gormDB, hub, emailSender, userRepo, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}

	orderRepo := orders.NewRepository(sqlDB)
	orderService := orders.NewService(orderRepo, cfg.Settlement, notifier, logger)
	executor := orders.NewExecutor(orderRepo, notifier, logger)
	assignment := orders.NewAssignmentManager(orderRepo, userRepo, cfg.Settlement, notifier, logger)

	paymentRepo := payments.NewRepository(sqlDB)
	paymentService := payments.NewService(paymentRepo, orderRepo, s3, cfg.Storage.Bucket, notifier, logger)

	messagingRepo := messaging.NewRepository(sqlDB)
	messagingService := messaging.NewService(messagingRepo, orderRepo, s3, cfg.Storage.Bucket, notifier, logger)

	tokens := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	reminders := scheduler.NewDeadlineReminder(orderRepo, notifier, logger)
	if err := reminders.Start(); err != nil {
		logger.Fatal("Failed to start deadline reminders", zap.Error(err))
	}
	defer reminders.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	users.NewAuthHandler(userRepo, tokens, logger).RegisterRoutes(api)

	protected := api.Group("", auth.Middleware(tokens))
	{
		orders.NewHandler(orderService, executor, assignment).RegisterRoutes(protected)
		payments.NewHandler(paymentService).RegisterRoutes(protected)
		messaging.NewHandler(messagingService).RegisterRoutes(protected)
		users.NewHandler(userRepo).RegisterRoutes(protected)
		notifications.NewHandler(notifier).RegisterRoutes(protected)

		admin := protected.Group("", auth.RequireRoles(workflows.RoleAdmin))
		exports.NewHandler(orderRepo).RegisterRoutes(admin)

		protected.GET("/ws", func(c *gin.Context) {
			if err := hub.HandleConnection(c.Writer, c.Request, auth.ActorID(c).String()); err != nil {
				logger.Warn("websocket upgrade failed", zap.Error(err))
			}
		})
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
