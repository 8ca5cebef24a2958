package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-sync/internal/api"
	"chat-sync/internal/config"
	"chat-sync/internal/handlers"
	"chat-sync/internal/middleware"
	"chat-sync/internal/models"
	"chat-sync/internal/notify"
	"chat-sync/internal/observability"
	"chat-sync/internal/presence"
	"chat-sync/internal/rabbitmq"
	"chat-sync/internal/router"
	"chat-sync/internal/session"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Token == "" || cfg.UserID == "" {
		log.Fatalf("CHATSYNC_TOKEN and CHATSYNC_USER_ID are required")
	}

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, "chat-sync", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "chatsync.audit", "chat-sync", cfg.Environment)

	client := api.NewHTTPClient(cfg.APIBaseURL, cfg.Token, cfg.RequestTimeout)
	st := store.New(cfg.UserID)
	center := notify.NewCenter()

	manager := ws.NewManager(ws.Config{
		URL:         cfg.PushURL,
		Token:       cfg.Token,
		MaxAttempts: cfg.ReconnectRetries,
		BackoffBase: cfg.ReconnectBase,
		BackoffMax:  cfg.ReconnectMax,
	})

	rt := router.New(st, center, client)
	rt.Attach(manager)

	tracker := presence.NewTracker(client)
	tracker.Attach(manager)

	currentUser := models.Participant{ID: cfg.UserID, Name: cfg.UserName, Avatar: cfg.UserAvatar}
	sess := session.New(client, st, manager, rt, audit, currentUser, cfg.PollInterval)
	sess.Start(ctx)
	defer sess.Close()

	chatHandler := handlers.NewChatHandler(st, sess, rt)
	notificationHandler := handlers.NewNotificationHandler(center, tracker, manager)

	engine := gin.Default()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("chat-sync"))
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.GET("/healthz", notificationHandler.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(cfg.Token)

	engine.GET("/chats", authMiddleware, chatHandler.ListChats)
	engine.POST("/chats", authMiddleware, chatHandler.StartChat)
	engine.GET("/chats/:chat_id", authMiddleware, chatHandler.GetChat)
	engine.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostMessage)
	engine.PUT("/chats/:chat_id/read", authMiddleware, chatHandler.MarkRead)
	engine.POST("/chats/:chat_id/open", authMiddleware, chatHandler.OpenChat)
	engine.POST("/chats/:chat_id/close", authMiddleware, chatHandler.CloseChat)
	engine.POST("/chats/:chat_id/typing", authMiddleware, chatHandler.Typing)
	engine.GET("/unread", authMiddleware, chatHandler.Unread)

	engine.GET("/notifications", authMiddleware, notificationHandler.List)
	engine.PUT("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkRead)
	engine.PUT("/notifications/read/all", authMiddleware, notificationHandler.MarkAllRead)
	engine.DELETE("/notifications", authMiddleware, notificationHandler.Clear)
	engine.POST("/users/status", authMiddleware, notificationHandler.Status)
	engine.GET("/connection", authMiddleware, notificationHandler.Connection)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: engine}
	go func() {
		log.Printf("facade listening addr=%s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
