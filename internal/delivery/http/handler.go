package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
	"github.com/raumania/assistant/internal/usecase"
)

// Assistant answers customer questions
type Assistant interface {
	Ask(ctx context.Context, question string) (*domain.Reply, error)
}

// CatalogReloader forces a fresh catalog snapshot
type CatalogReloader interface {
	Reload(ctx context.Context) (*usecase.Snapshot, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	assistant Assistant
	catalog   CatalogReloader
	logger    zerolog.Logger
}

// NewHandler creates a new HTTP handler. Either dependency may be nil; the
// matching endpoints then report that they are not configured.
func NewHandler(assistant Assistant, catalog CatalogReloader, logger zerolog.Logger) *Handler {
	return &Handler{
		assistant: assistant,
		catalog:   catalog,
		logger:    observability.Component(logger, "http"),
	}
}

// AskRequest is the question payload, accepted as a form field or JSON
type AskRequest struct {
	Prompt string `json:"prompt" form:"prompt"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "raumania-assistant",
		"version": "1.0.0",
	})
}

// Ask answers one question
func (h *Handler) Ask(c *gin.Context) {
	if h.assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured"})
		return
	}

	var req AskRequest
	if err := c.ShouldBind(&req); err != nil {
		// A malformed body is treated as a missing prompt
		req.Prompt = ""
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	reply, err := h.assistant.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": reply.Text})
}

// ReloadCatalog drops the current snapshot and loads the datasets again
func (h *Handler) ReloadCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog is not configured"})
		return
	}

	snap, err := h.catalog.Reload(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":        snap.Catalog.Version,
		"products":       len(snap.Catalog.Products),
		"brands":         len(snap.Catalog.Brands),
		"total_products": snap.Catalog.TotalProducts,
		"total_brands":   snap.Catalog.TotalBrands,
		"loaded_at":      snap.LoadedAt,
	})
}

// writeError is the single place where errors become HTTP failure bodies
func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := errorResponse(err)

	logger := observability.WithRequest(c.Request.Context(), h.logger)
	evt := logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request failed")

	c.JSON(status, gin.H{"error": msg})
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "Prompt is required"
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusNotFound, "One or both JSON files are missing."
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, please try again later."
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusServiceUnavailable, "The assistant is busy, please try again later."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
