package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DevTigeer/ClosetConnectProject/internal/clients"
	"github.com/DevTigeer/ClosetConnectProject/internal/config"
	"github.com/DevTigeer/ClosetConnectProject/internal/pipeline"
	minioclient "github.com/DevTigeer/ClosetConnectProject/internal/storage/minio"
	"github.com/DevTigeer/ClosetConnectProject/internal/worker"
)

func main() {
	log.Println("Starting Cloth Processing Worker...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Minio
	log.Println("Connecting to Minio...")
	minioClient, err := minioclient.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, false)
	if err != nil {
		log.Fatalf("Failed to connect to Minio: %v", err)
	}

	// Priority/category policy (built-in tables unless overridden)
	policy, err := pipeline.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to load cloth policy: %v", err)
	}

	// Collaborator clients are constructed once and shared across jobs.
	deps := pipeline.Deps{
		Remover:      clients.NewRembgClient(cfg.RembgURL, cfg.StageTimeout),
		Segmenter:    clients.NewSegmentationClient(cfg.SegmentationURL, cfg.StageTimeout),
		Store:        minioClient,
		Policy:       policy,
		ExpandPixels: cfg.ExpandPixels,
		ExpandPrompt: cfg.ExpandPrompt,
		StageTimeout: cfg.StageTimeout,
	}
	if cfg.SingleItemURL != "" {
		deps.SingleItem = clients.NewSingleItemClient(cfg.SingleItemURL, cfg.StageTimeout)
		log.Printf("Single-item segmentation enabled: %s", cfg.SingleItemURL)
	}
	if cfg.ExpansionURL != "" {
		deps.Expander = clients.NewExpansionClient(cfg.ExpansionURL, cfg.StageTimeout)
		log.Printf("Image expansion enabled: %s", cfg.ExpansionURL)
	}
	if cfg.InpaintingEnabled && cfg.InpaintingURL != "" {
		deps.Inpainter = clients.NewInpaintingClient(cfg.InpaintingURL, cfg.StageTimeout)
		log.Printf("Remote inpainting enabled: %s", cfg.InpaintingURL)
	} else {
		log.Println("Inpainting stage is a passthrough")
	}

	orchestrator := pipeline.NewOrchestrator(deps)
	w := worker.New(cfg, orchestrator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Worker is running. Press Ctrl+C to exit.")
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Worker stopped with error: %v", err)
	}
	log.Println("Worker stopped")
}
