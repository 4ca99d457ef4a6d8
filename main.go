package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"spot-service/internal/chat"
	"spot-service/internal/config"
	"spot-service/internal/db"
	"spot-service/internal/directory"
	"spot-service/internal/handlers"
	"spot-service/internal/middleware"
	"spot-service/internal/moderation"
	"spot-service/internal/notify"
	"spot-service/internal/observability"
	"spot-service/internal/plans"
	"spot-service/internal/profile"
	"spot-service/internal/rabbitmq"
	"spot-service/internal/session"
	"spot-service/internal/store"
	"spot-service/internal/telemetry"
	"spot-service/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, "spot-service", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	documents := store.NewPostgresStore(database)
	defer documents.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.logs", "spot-service", cfg.Environment)
	notifier := notify.NewAMQPNotifier(publisher, "notifications.status")

	verifier := session.NewVerifier(cfg.JWTSecret)
	sessions := session.NewSessions()

	ledger := moderation.NewLedger(documents, audit)
	profiles := profile.NewStore(documents, sessions)
	dir := directory.New(documents, ledger, profiles, notifier)
	registry := plans.NewRegistry(documents, profiles)
	channel := chat.NewChannel(documents, ledger)

	spotHandler := handlers.NewSpotHandler(dir)
	planHandler := handlers.NewPlanHandler(registry, dir, profiles)
	messageHandler := handlers.NewMessageHandler(channel, registry, profiles)
	moderationHandler := handlers.NewModerationHandler(ledger)
	profileHandler := handlers.NewProfileHandler(profiles)

	spotWS := ws.NewSpotWebSocketHandler(dir, verifier, sessions, publisher)
	planWS := ws.NewPlanWebSocketHandler(registry, verifier, publisher)
	chatWS := ws.NewChatWebSocketHandler(channel, registry, verifier, publisher)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("spot-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/spots", middleware.OptionalAuthMiddleware(verifier), spotHandler.ListSpots)
	router.POST("/spots", authMiddleware, spotHandler.AddSpot)
	router.PATCH("/spots/:spot_id/status", authMiddleware, spotHandler.UpdateSpotStatus)
	router.DELETE("/spots/:spot_id", authMiddleware, spotHandler.DeleteSpot)
	router.POST("/spots/:spot_id/hide", authMiddleware, spotHandler.HideSpot)
	router.DELETE("/spots/:spot_id/hide", authMiddleware, spotHandler.UnhideSpot)

	router.GET("/locations/:location_id/plans", authMiddleware, planHandler.ListPlans)
	router.POST("/plans", authMiddleware, planHandler.CreatePlan)
	router.GET("/plans/:plan_id", authMiddleware, planHandler.GetPlan)
	router.POST("/plans/:plan_id/join", authMiddleware, planHandler.JoinPlan)
	router.POST("/plans/:plan_id/leave", authMiddleware, planHandler.LeavePlan)
	router.DELETE("/plans/:plan_id", authMiddleware, planHandler.DeletePlan)

	router.GET("/plans/:plan_id/messages", authMiddleware, messageHandler.GetPlanMessages)
	router.POST("/plans/:plan_id/messages", authMiddleware, messageHandler.PostPlanMessage)

	router.POST("/users/:user_id/block", authMiddleware, moderationHandler.BlockUser)
	router.GET("/me/blocked", authMiddleware, moderationHandler.ListBlockedUsers)
	router.POST("/reports", authMiddleware, moderationHandler.ReportContent)

	router.GET("/me", authMiddleware, profileHandler.GetProfile)
	router.PUT("/me", authMiddleware, profileHandler.UpdateProfile)
	router.POST("/me/reset", authMiddleware, profileHandler.ResetProfileCounters)

	router.GET("/ws/spots", spotWS.Handle)
	router.GET("/ws/locations/:location_id/plans", planWS.Handle)
	router.GET("/ws/plans/:plan_id/messages", chatWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
