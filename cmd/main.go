// Package main is the entry point for the ComfyUI node dashboard.
// It starts the log tailer, the startup model download session and the HTTP
// server giving operators a live view of the node.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tonycerq/tonycerq-comfyui/core/service"
	"github.com/tonycerq/tonycerq-comfyui/handler"
	"github.com/tonycerq/tonycerq-comfyui/utils/config"
	"github.com/tonycerq/tonycerq-comfyui/utils/fetcher"
)

func main() {
	log.Println("Starting ComfyUI node dashboard...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Shared event plumbing
	registry := service.NewRegistry()
	logBuffer := service.NewLogBuffer(service.DefaultLogBufferSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the log tailer on its own goroutine
	tailer := service.NewTailer(cfg.Paths.LogFile, logBuffer, registry,
		cfg.Tail.PollInterval, cfg.Tail.ErrorBackoff)
	go tailer.Run(ctx)

	// Create service instances
	downloader := service.NewDownloader(registry, cfg.Paths.ComfyUIDir)
	orchestrator := service.NewOrchestrator(registry, fetcher.NewAria2(4),
		cfg.Paths.ComfyUIDir, cfg.Download.MaxConcurrent)
	inventoryService := service.NewInventoryService(cfg.Paths.ComfyUIDir,
		cfg.Paths.ModelsConfig, cfg.Paths.StartScript)
	archiveService := service.NewArchiveService(filepath.Join(cfg.Paths.ComfyUIDir, "output"))

	// Startup model download session
	if cfg.Download.Skip {
		log.Println("Model download skipped due to SKIP_MODEL_DOWNLOAD=true")
	} else {
		go func() {
			if _, err := orchestrator.RunFromSource(ctx, cfg.Paths.ModelsConfig, cfg.Download.Force); err != nil {
				log.Printf("Startup download session failed: %v", err)
			}
		}()
	}

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
		log.Println("Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	}

	// Create Gin engine
	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.Server.Mode != "release" {
		engine.Use(gin.Logger())
	}

	// Add CORS middleware
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Handlers
	wsHandler := handler.NewWSHandler(registry)
	logHandler := handler.NewLogHandler(logBuffer, archiveService)
	downloadHandler := handler.NewDownloadHandler(downloader, orchestrator, cfg.Paths.ModelsConfig)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	engine.GET("/ws", wsHandler.Connect)
	engine.GET("/logs", logHandler.GetLogs)
	engine.GET("/download/outputs", logHandler.DownloadOutputs)
	engine.POST("/download/:source", downloadHandler.Download)

	api := engine.Group("/api")
	{
		api.GET("/models", inventoryHandler.GetModels)
		api.GET("/custom-nodes", inventoryHandler.GetCustomNodes)
	}

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:        addr,
		Handler:     engine,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Dashboard listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	// Graceful shutdown. In-flight external transfers are abandoned; partial
	// files resume on the next invocation.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
