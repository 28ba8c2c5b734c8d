package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seadrift/dive-insights/internal/domain/export"
	"github.com/seadrift/dive-insights/internal/domain/insight"
	"github.com/seadrift/dive-insights/internal/infra/geocode"
	apperrors "github.com/seadrift/dive-insights/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	insightSvc insight.Service
	limiter    *insight.RateLimiter
	exportSvc  export.Service
	geocoder   *geocode.Client
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(insightSvc insight.Service, limiter *insight.RateLimiter, exportSvc export.Service, geocoder *geocode.Client, logger *slog.Logger) *Handler {
	return &Handler{
		insightSvc: insightSvc,
		limiter:    limiter,
		exportSvc:  exportSvc,
		geocoder:   geocoder,
		logger:     logger.With("component", "http.handler"),
	}
}

type summarizeDiveRequest struct {
	Dive       insight.DivePayload          `json:"dive"`
	Profile    *insight.DiverProfilePayload `json:"profile,omitempty"`
	Regenerate bool                         `json:"regenerate,omitempty"`
}

// SummarizeDive runs the insight generation pipeline for one dive.
func (h *Handler) SummarizeDive(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing identity", nil))
		return
	}

	var req summarizeDiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	if blocked := h.limiter.EnforceRateLimit(c.Request.Context(), claims.UserID); blocked != nil {
		payload := gin.H{"error": "rate_limit"}
		if blocked.NextReset != nil {
			payload["next_reset"] = blocked.NextReset.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusTooManyRequests, payload)
		return
	}

	resp, err := h.insightSvc.Generate(c.Request.Context(), insight.GenerateRequest{
		UserID:     claims.UserID,
		Dive:       req.Dive,
		Profile:    req.Profile,
		Regenerate: req.Regenerate,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "insight_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "llm_error"):
			status = http.StatusBadGateway
			code = "llm_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportDives streams the caller's dive log as a CSV attachment.
func (h *Handler) ExportDives(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing identity", nil))
		return
	}

	payload, filename, err := h.exportSvc.ExportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "export_failed", errMessage(err), err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Geocode proxies forward-geocoding lookups for dive site names.
func (h *Handler) Geocode(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "query parameter q is required", nil))
		return
	}

	places, err := h.geocoder.Search(c.Request.Context(), query)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadGateway, "geocode_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": places})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
