package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplinkhq/chatstore/internal/api"
	"github.com/shoplinkhq/chatstore/internal/bot"
	"github.com/shoplinkhq/chatstore/internal/cache"
	"github.com/shoplinkhq/chatstore/internal/catalog"
	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/logging"
	"github.com/shoplinkhq/chatstore/internal/notify"
	"github.com/shoplinkhq/chatstore/internal/orders"
	"github.com/shoplinkhq/chatstore/internal/ownership"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.SetOutput(os.Stdout)
	log.Printf("Chat storefront service starting (GIT_SHA=%s BUILD_TIME=%s)", os.Getenv("GIT_SHA"), os.Getenv("BUILD_TIME"))

	ctx := context.Background()

	// The document store is the only fatal dependency: without it nothing
	// can be served.
	store, err := docstore.NewPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer store.Close()

	owners := ownership.NewChecker(store)
	if err := owners.Load(ctx); err != nil {
		log.Printf("[WARN] Initial owner table load failed: %v", err)
	}

	sendURL := os.Getenv("TRANSPORT_SEND_URL")
	if sendURL == "" {
		log.Fatal("TRANSPORT_SEND_URL is required")
	}
	sender := chat.NewHTTPSender(sendURL)

	var events notify.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_ORDERS_TOPIC")
		if topic == "" {
			topic = "storefront.orders"
		}
		publisher := notify.NewKafkaPublisher(brokers, topic)
		defer publisher.Close()
		events = publisher
		log.Printf("Order event feed enabled (topic=%s)", topic)
	}

	userCache := cache.New()
	resolver := catalog.NewResolver(store, userCache)
	intake := orders.NewIntake(store, notify.NewChatNotifier(sender), events)
	botService := bot.NewService(userCache, store, resolver, owners, intake, sender)
	handler := api.NewHandler(botService, store)

	router := setupRouter(handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

func setupRouter(handler *api.Handler) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	// Health and readiness endpoints
	router.GET("/live", func(c *gin.Context) { c.Status(200) })
	router.GET("/ready", handler.Health)
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/updates", api.AuthMiddleware(), handler.HandleUpdate)
	}

	// Root endpoint for basic info
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "chatstore",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}
