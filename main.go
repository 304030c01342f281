package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/typing"
	"messaging-service/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg)

	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	} else {
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.messaging", cfg.OTEL.ServiceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	readRepo := repositories.NewReadRepo(database, cfg.ReadScanWindow, cfg.GlobalUnreadWindow)
	reactionRepo := repositories.NewReactionRepo(database)
	pollRepo := repositories.NewPollRepo(database)
	rosterRepo := repositories.NewRosterRepo(database)

	tracker := presence.NewTracker(cfg.PresenceTTL)
	typingSvc := typing.NewService(cfg.TypingTTL)
	go typingSvc.Run(ctx, time.Second)
	throttle := typing.NewThrottle(cfg.TypingThrottle)

	hub := ws.NewHub(publisher)

	channelHandler := handlers.NewChannelHandler(channelRepo, readRepo, userRepo, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, channelRepo, readRepo, rosterRepo, userRepo, hub, audit)
	reactionHandler := handlers.NewReactionHandler(reactionRepo, messageRepo, channelRepo, hub)
	pollHandler := handlers.NewPollHandler(pollRepo, messageRepo, channelRepo, hub)
	groupHandler := handlers.NewGroupHandler(channelRepo, userRepo, audit)
	presenceHandler := handlers.NewPresenceHandler(tracker, typingSvc, throttle, channelRepo, userRepo, hub)
	rosterHandler := handlers.NewRosterHandler(rosterRepo, userRepo)
	channelWS := ws.NewChannelWebSocketHandler(hub, channelRepo, userRepo, tracker, typingSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(userRepo)

	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.POST("/channels/direct", authMiddleware, channelHandler.StartDirect)

	router.GET("/channels/:channel_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/channels/:channel_id/messages", authMiddleware, messageHandler.PostMessage)
	router.PATCH("/channels/:channel_id/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/channels/:channel_id/messages/:message_id", authMiddleware, messageHandler.UnsendMessage)
	router.GET("/channels/:channel_id/messages/:message_id/history", authMiddleware, messageHandler.EditHistory)
	router.POST("/channels/:channel_id/read", authMiddleware, messageHandler.MarkRead)
	router.POST("/channels/:channel_id/messages/:message_id/call/end", authMiddleware, messageHandler.EndCall)

	router.POST("/channels/:channel_id/messages/:message_id/reactions", authMiddleware, reactionHandler.React)
	router.POST("/channels/:channel_id/messages/:message_id/pin", authMiddleware, reactionHandler.TogglePin)
	router.GET("/channels/:channel_id/pins", authMiddleware, reactionHandler.ListPins)

	router.POST("/channels/:channel_id/polls", authMiddleware, pollHandler.CreatePoll)
	router.POST("/channels/:channel_id/messages/:message_id/votes", authMiddleware, pollHandler.Vote)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups/:channel_id/members", authMiddleware, groupHandler.Members)
	router.POST("/groups/:channel_id/members", authMiddleware, groupHandler.AddMember)
	router.DELETE("/groups/:channel_id/members/:user_id", authMiddleware, groupHandler.KickMember)
	router.POST("/groups/:channel_id/admins/:user_id", authMiddleware, groupHandler.AddAdmin)
	router.DELETE("/groups/:channel_id", authMiddleware, groupHandler.DeleteGroup)

	router.POST("/presence/heartbeat", authMiddleware, presenceHandler.Heartbeat)
	router.GET("/presence/online", authMiddleware, presenceHandler.Online)
	router.POST("/channels/:channel_id/typing", authMiddleware, presenceHandler.SetTyping)
	router.GET("/channels/:channel_id/typing", authMiddleware, presenceHandler.GetTypers)

	router.GET("/roster", authMiddleware, rosterHandler.Roster)
	router.POST("/roster/pins/:peer_id", authMiddleware, rosterHandler.TogglePinnedPeer)

	router.GET("/ws/channels/:channel_id", channelWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	log.Info().Str("port", cfg.Port).Msg("messaging service listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
