package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonycerq/tonycerq-comfyui/core/service"
)

// InventoryHandler serves the node's installed models and custom nodes.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// GetModels handles GET /api/models.
func (h *InventoryHandler) GetModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventory.InstalledModels(c.Request.Context()))
}

// GetCustomNodes handles GET /api/custom-nodes.
func (h *InventoryHandler) GetCustomNodes(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventory.CustomNodes())
}
