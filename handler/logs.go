package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonycerq/tonycerq-comfyui/core/service"
)

// LogHandler serves the buffered log view and the output archive download.
type LogHandler struct {
	buffer  *service.LogBuffer
	archive *service.ArchiveService
}

// NewLogHandler creates a new log handler.
func NewLogHandler(buffer *service.LogBuffer, archive *service.ArchiveService) *LogHandler {
	return &LogHandler{
		buffer:  buffer,
		archive: archive,
	}
}

// GetLogs handles GET /logs, returning the rendered contents of the log
// buffer.
func (h *LogHandler) GetLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"logs": h.buffer.Snapshot(),
	})
}

// DownloadOutputs handles GET /download/outputs, streaming a zip of the
// node's output directory.
func (h *LogHandler) DownloadOutputs(c *gin.Context) {
	timestamp := time.Now().Format("20060102_150405")

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=comfyui_outputs_%s.zip", timestamp))

	if err := h.archive.WriteOutputs(c.Writer); err != nil {
		log.Printf("Failed to create output archive: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Failed to create output archive",
			"detail": err.Error(),
		})
		return
	}
}
