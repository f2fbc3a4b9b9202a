package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"taskbroker/internal/config"
	"taskbroker/internal/database"
	"taskbroker/internal/middleware"
	"taskbroker/internal/modules/execution"
	"taskbroker/internal/modules/negotiation"
	"taskbroker/internal/modules/notification"
	"taskbroker/internal/modules/payment"
	"taskbroker/internal/modules/realtime"
	"taskbroker/internal/pkg/agreement"
	jwtsvc "taskbroker/internal/pkg/jwt"
	"taskbroker/internal/repository"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	bookingRepo := repository.NewBookingRepository(db)
	chatRepo := repository.NewChatRepository(db)
	executionRepo := repository.NewExecutionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	hub := realtime.NewHub(log)

	notificationService := notification.NewService(notificationRepo, hub, log)
	notificationHandler := notification.NewHandler(notificationService)

	executionService := execution.NewService(executionRepo, bookingRepo, notificationService, hub, log)
	executionHandler := execution.NewHandler(executionService)

	docs := agreement.NewArchiver(
		agreement.TextRenderer{},
		agreement.NewLocalStorage(cfg.AgreementDir, cfg.AgreementBaseURL),
	)

	negotiationService := negotiation.NewService(bookingRepo, notificationService, hub, docs, executionService, log)
	negotiationHandler := negotiation.NewHandler(negotiationService)

	paymentService := payment.NewService(paymentRepo, bookingRepo, negotiationService, payment.GatewayConfig{
		MerchantLogin: cfg.GatewayMerchantLogin,
		Password1:     cfg.GatewayPassword1,
		Password2:     cfg.GatewayPassword2,
		BaseURL:       cfg.GatewayBaseURL,
		ResultURL:     cfg.GatewayResultURL,
		IsTest:        cfg.GatewayIsTest,
	}, log)
	paymentHandler := payment.NewHandler(paymentService)

	chatService := realtime.NewChatService(chatRepo, bookingRepo)
	wsHandler := realtime.NewWSHandler(hub, j, chatService, bookingRepo, notificationService, log)

	r := gin.Default()
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/files", cfg.AgreementDir)
	r.GET("/ws", wsHandler.HandleWebSocket)

	v1 := r.Group("/api/v1")
	{
		paymentHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			negotiationHandler.RegisterRoutes(protected)
			executionHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
		}
	}

	log.Info().Str("addr", cfg.ServerAddr).Msg("starting server")
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
