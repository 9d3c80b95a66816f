// Package handler exposes the leads API over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/internal/leads/management"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/transport"
	"leadngn_backend/platform/httpkit"
	"leadngn_backend/platform/logger"
	"leadngn_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the leads endpoints.
type Handler struct {
	svc      *management.Service
	validate *validator.Validator
	log      *logger.Logger
}

// New creates a leads handler.
func New(svc *management.Service, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, log: log}
}

// RegisterRoutes mounts the leads API under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	{
		leads.POST("", h.Create)
		leads.GET("", h.List)
		leads.GET("/stats", h.Stats)
		leads.GET("/:id", h.Get)
		leads.PATCH("/:id", h.Update)
		leads.GET("/:id/history", h.History)
		leads.GET("/:id/score", h.ScoreBreakdown)
		leads.GET("/:id/score-evolution", h.ScoreEvolution)
		leads.POST("/:id/revert", h.Revert)
	}
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	ctx := context.WithValue(c.Request.Context(), logger.ActorKey, actorFrom(c))
	lead, err := h.svc.Create(ctx, management.CreateInput{
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		Website:     req.Website,
		Location:    req.Location,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Tags:        req.Tags,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Status:   c.Query("status"),
		Industry: c.Query("industry"),
		MinScore: queryInt(c, "min_score"),
		Limit:    queryInt(c, "limit"),
		Offset:   queryInt(c, "offset"),
	}

	leads, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"leads": transport.ToLeadResponses(leads), "count": len(leads)})
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	lead, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Update handles PATCH /leads/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	reason := domain.ChangeReason(req.Reason)
	if reason == "" {
		reason = domain.ReasonManualEdit
	}

	lead, entries, err := h.svc.Update(c.Request.Context(), id, req.Changes, actorFrom(c), reason)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{
		"lead":    transport.ToLeadResponse(lead),
		"changes": transport.ToAuditEntryResponses(entries),
	})
}

// History handles GET /leads/:id/history.
func (h *Handler) History(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), id, c.Query("field"), queryInt(c, "limit"))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"history": transport.ToAuditEntryResponses(entries), "count": len(entries)})
}

// ScoreBreakdown handles GET /leads/:id/score.
func (h *Handler) ScoreBreakdown(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	result, err := h.svc.ScoreBreakdown(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{
		"score":          result.Score,
		"confidence":     result.Confidence,
		"category":       domain.ScoreCategory(result.Score),
		"factors":        result.Factors,
		"engine_version": result.Version,
	})
}

// ScoreEvolution handles GET /leads/:id/score-evolution.
func (h *Handler) ScoreEvolution(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	evolution, err := h.svc.ScoreEvolution(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, evolution)
}

// Revert handles POST /leads/:id/revert.
func (h *Handler) Revert(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	entry, err := h.svc.Revert(c.Request.Context(), id, req.Field, req.At, actorFrom(c))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToAuditEntryResponse(entry))
}

// Stats handles GET /leads/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}
