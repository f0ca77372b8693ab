// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"bakery-orders/config"
	"bakery-orders/controllers"
	"bakery-orders/events"
	"bakery-orders/notifier"
	"bakery-orders/repository/mongodb"
	"bakery-orders/routes"
	"bakery-orders/services"
	"bakery-orders/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Set the JWT secret key
	if len(cfg.JWTSecret) > 0 {
		utils.JwtKey = cfg.JWTSecret
	}

	// Connect to MongoDB
	client, err := mongodb.Connect(cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.TODO()); err != nil {
			logger.Error("failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	db := client.Database(cfg.MongoDatabase)

	cartRepo := mongodb.NewCartRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	productRepo := mongodb.NewProductRepository(db)

	// Product cache is optional; without redis every lookup hits the store.
	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer cache.Close()
	}
	catalog := services.NewCatalogService(productRepo, cache, logger)

	// Event emission is best-effort; without a broker events are dropped.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	cartService := services.NewCartService(cartRepo, catalog, logger)
	orderService := services.NewOrderService(orderRepo, cartService, catalog, publisher, logger)

	// Run the notification consumer in-process when mail is configured.
	if cfg.AMQPURL != "" && cfg.PostmarkToken != "" && cfg.NotifyInbox != "" {
		emailService := notifier.NewEmailService(cfg.PostmarkToken, cfg.EmailSender)
		n, err := notifier.New(cfg.AMQPURL, cfg.AMQPExchange, cfg.NotifyQueue, emailService, cfg.NotifyInbox, logger)
		if err != nil {
			logger.Fatal("failed to start notifier", zap.Error(err))
		}
		defer n.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := n.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("notifier stopped", zap.Error(err))
			}
		}()
	}

	// Initialize controllers
	cartController := controllers.NewCartController(cartService)
	orderController := controllers.NewOrderController(orderService)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, cartController, orderController)

	// Start the server
	fmt.Printf("Server is running on port %s\n", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, router))
}
