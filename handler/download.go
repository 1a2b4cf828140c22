package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
	"github.com/tonycerq/tonycerq-comfyui/core/service"
)

// DownloadHandler triggers model downloads: single operator-requested files
// per source variant, and full configuration-driven sessions.
type DownloadHandler struct {
	downloader   *service.Downloader
	orchestrator *service.Orchestrator
	configSource string
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(downloader *service.Downloader, orchestrator *service.Orchestrator, configSource string) *DownloadHandler {
	return &DownloadHandler{
		downloader:   downloader,
		orchestrator: orchestrator,
		configSource: configSource,
	}
}

// Download handles POST /download/:source where source is civitai,
// huggingface, googledrive, or models (the full configuration session).
// The transfer runs in the background; progress arrives over the websocket.
func (h *DownloadHandler) Download(c *gin.Context) {
	source := c.Param("source")

	if source == "models" {
		h.downloadModels(c)
		return
	}

	var req models.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "URL is required",
			"detail": err.Error(),
		})
		return
	}

	// Background contexts: the transfer outlives the request.
	switch source {
	case "civitai":
		go func() {
			if err := h.downloader.FromCivitai(context.Background(), req.URL, req.APIKey, req.ModelType); err != nil {
				log.Printf("Civitai download failed: %v", err)
			}
		}()
	case "huggingface":
		go func() {
			if err := h.downloader.FromHuggingFace(context.Background(), req.URL, req.ModelType); err != nil {
				log.Printf("Hugging Face download failed: %v", err)
			}
		}()
	case "googledrive":
		go func() {
			if err := h.downloader.FromGoogleDrive(context.Background(), req.URL, req.ModelType, req.Filename); err != nil {
				log.Printf("Google Drive download failed: %v", err)
			}
		}()
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown download source: " + source,
		})
		return
	}

	c.Status(http.StatusAccepted)
}

// downloadModels kicks off a full orchestrator session over the configured
// models source.
func (h *DownloadHandler) downloadModels(c *gin.Context) {
	var req struct {
		Force bool `json:"force"`
	}
	// Body is optional; force defaults to false.
	_ = c.ShouldBindJSON(&req)

	go func() {
		if _, err := h.orchestrator.RunFromSource(context.Background(), h.configSource, req.Force); err != nil {
			log.Printf("Download session failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status": "download session started",
	})
}
