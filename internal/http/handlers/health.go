package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/tier"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/tiers
func (h *HealthHandler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": tier.All()})
}
