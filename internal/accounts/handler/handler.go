// Package handler exposes the accounts API over HTTP.
package handler

import (
	"strconv"

	"leadngn_backend/internal/accounts"
	"leadngn_backend/platform/httpkit"
	"leadngn_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler serves the accounts endpoints.
type Handler struct {
	svc *accounts.Service
	log *logger.Logger
}

// New creates an accounts handler.
func New(svc *accounts.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the accounts API under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/accounts")
	{
		group.GET("", h.List)
		group.GET("/:domain", h.Get)
	}
}

// List handles GET /accounts. A top query parameter limits the result to
// the strongest accounts.
func (h *Handler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("top"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := h.svc.Top(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"accounts": list, "count": len(list)})
}

// Get handles GET /accounts/:domain.
func (h *Handler) Get(c *gin.Context) {
	account, err := h.svc.Get(c.Request.Context(), c.Param("domain"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, account)
}
