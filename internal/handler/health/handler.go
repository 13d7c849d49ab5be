package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medtracker-api/internal/repository"
)

const pingTimeout = 2 * time.Second

// Check is one named dependency checked by the readiness endpoint.
type Check struct {
	Name   string
	Pinger repository.Pinger
}

type Handler struct {
	checks []Check
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Pinger.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", check.Name).Msg("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "DOWN",
				"reason": check.Name + " unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
