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

	"github.com/DevTigeer/ClosetConnectProject/internal/config"
	"github.com/DevTigeer/ClosetConnectProject/internal/handler"
	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
	minioclient "github.com/DevTigeer/ClosetConnectProject/internal/storage/minio"
	"github.com/DevTigeer/ClosetConnectProject/pkg/database/postgres"
	redisclient "github.com/DevTigeer/ClosetConnectProject/pkg/database/redis"
	"github.com/DevTigeer/ClosetConnectProject/pkg/security"
)

func main() {
	log.Println("Starting API Gateway...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL
	log.Println("Connecting to PostgreSQL...")
	pgPool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()

	// Run migrations
	if err := postgres.RunMigrations(ctx, pgPool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Minio
	log.Println("Connecting to Minio...")
	minioClient, err := minioclient.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, false)
	if err != nil {
		log.Fatalf("Failed to connect to Minio: %v", err)
	}

	// Initialize Redis
	log.Println("Connecting to Redis...")
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Separate connections for publishing and for the result/progress
	// consumers; an AMQP channel is not safe for concurrent use.
	log.Println("Connecting to RabbitMQ...")
	rabbitPub, err := rabbitmq.NewClient(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitPub.Close()

	rabbitSub, err := rabbitmq.NewClient(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitSub.Close()

	log.Println("✓ Successfully connected to all services")

	h := handler.NewHandler(pgPool, minioClient, rabbitPub, redisClient)
	consumers := handler.NewHandler(pgPool, minioClient, rabbitSub, redisClient)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumers.ConsumeResults(runCtx); err != nil && err != context.Canceled {
			log.Printf("Result consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := consumers.ConsumeProgress(runCtx); err != nil && err != context.Canceled {
			log.Printf("Progress consumer stopped: %v", err)
		}
	}()

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "closet-gateway"})
	})

	jwksURL := security.JWKSURL(cfg.KeycloakURL, cfg.KeycloakRealm)
	api := router.Group("/api", security.AuthMiddleware(jwksURL, cfg.ClientID))
	api.POST("/cloths", h.UploadCloth)
	api.GET("/cloths/:id", h.GetCloth)
	api.GET("/cloths/:id/image", h.DownloadCloth)

	srv := &http.Server{Addr: ":8081", Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Println("API Gateway is running on :8081. Press Ctrl+C to exit.")
	<-runCtx.Done()

	log.Println("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}
