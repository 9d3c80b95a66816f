package revalidation

import (
	"net/http"

	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/httpkit"
	"leadngn_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the scheduler's status and the force-revalidation hook.
type Handler struct {
	repo  *repository.Repository
	clock clock.Clock
	log   *logger.Logger
}

// NewHandler creates a revalidation handler.
func NewHandler(repo *repository.Repository, clk clock.Clock, log *logger.Logger) *Handler {
	return &Handler{repo: repo, clock: clk, log: log}
}

// RegisterRoutes mounts the revalidation endpoints under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/revalidate", h.Force)
	rg.GET("/revalidation/status", h.Status)
}

// Force handles POST /leads/:id/revalidate by pulling the lead's task
// forward so the next dispatcher poll picks it up.
func (h *Handler) Force(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	if err := h.repo.MarkTaskDueNow(c.Request.Context(), id, h.clock.Now()); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// Status handles GET /revalidation/status.
func (h *Handler) Status(c *gin.Context) {
	stats, err := h.repo.GetTaskStats(c.Request.Context(), h.clock.Now())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, stats)
}
