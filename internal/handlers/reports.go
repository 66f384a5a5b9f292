package handlers

import (
	"errors"
	"net/http"

	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
	"github.com/gin-gonic/gin"
)

// ReportsResponse lists archived run reports
type ReportsResponse struct {
	Reports []storage.FileInfo `json:"reports" jsonschema:"required"`
}

// WithReports enables the report endpoints.
func (h *Handler) WithReports(st storage.Storage) *Handler {
	h.reports = st
	return h
}

// ListReports returns archived reports, newest first.
// GET /api/reports?store=PNS&source=cart
func (h *Handler) ListReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report archive is not configured"})
		return
	}

	filter := storage.Filter{Store: c.Query("store"), Source: c.Query("source")}
	infos, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Str("store", filter.Store).Str("source", filter.Source).Msg("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ReportsResponse{Reports: infos})
}

// GetReport downloads one archived report.
// GET /api/reports/:store/:source/:name
func (h *Handler) GetReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report archive is not configured"})
		return
	}

	key := storage.Key{Store: c.Param("store"), Source: c.Param("source"), Name: c.Param("name")}
	if err := key.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	info, err := h.reports.GetInfo(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	content, err := h.reports.Get(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contentType := "application/octet-stream"
	if info.Metadata != nil && info.Metadata.ContentType != "" {
		contentType = info.Metadata.ContentType
	}
	c.Header("ETag", `"`+info.Checksum+`"`)
	c.Data(http.StatusOK, contentType, content)
}
