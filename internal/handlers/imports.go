// Package handlers serves the read-only HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/finn-wa/grocy-trolley-sub000/internal/reconcile"
	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Planner reports what an import would do without doing it.
type Planner interface {
	Pending(ctx context.Context, req store.SnapshotRequest) (reconcile.Result, error)
}

// Handler serves the API.
type Handler struct {
	planner func(code store.Code) (Planner, error)
	stores  func() []store.Code
	ping    func(ctx context.Context) error
	reports storage.Storage
	logger  zerolog.Logger
}

// New creates a handler. ping may be nil.
func New(planner func(code store.Code) (Planner, error), stores func() []store.Code, ping func(ctx context.Context) error, logger zerolog.Logger) *Handler {
	return &Handler{
		planner: planner,
		stores:  stores,
		ping:    ping,
		logger:  logger.With().Str("component", "handlers").Logger(),
	}
}

// PendingProduct is a store product that would be created.
type PendingProduct struct {
	ProductID string `json:"productId" jsonschema:"required"`
	Name      string `json:"name" jsonschema:"required"`
	Brand     string `json:"brand,omitempty"`
	Category  string `json:"category"`
}

// ImportedProduct is a store product that is already in Grocy.
type ImportedProduct struct {
	ProductID   string `json:"productId" jsonschema:"required"`
	InventoryID int    `json:"inventoryId" jsonschema:"required"`
	Name        string `json:"name" jsonschema:"required"`
}

// PendingCounts summarises a pending import.
type PendingCounts struct {
	ToImport        int `json:"toImport"`
	AlreadyImported int `json:"alreadyImported"`
}

// PendingResponse is the dry-run result of an import
type PendingResponse struct {
	Store           string            `json:"store" jsonschema:"required"`
	Source          string            `json:"source" jsonschema:"required,enum=cart,enum=list,enum=order"`
	ID              string            `json:"id,omitempty"`
	ToImport        []PendingProduct  `json:"toImport" jsonschema:"required"`
	AlreadyImported []ImportedProduct `json:"alreadyImported" jsonschema:"required"`
	Counts          PendingCounts     `json:"counts" jsonschema:"required"`
}

// StoresResponse lists the configured stores
type StoresResponse struct {
	Stores []StoreInfo `json:"stores" jsonschema:"required"`
}

// StoreInfo describes one store
type StoreInfo struct {
	Code string `json:"code" jsonschema:"required"`
	Name string `json:"name" jsonschema:"required"`
}

// ListStores returns the stores imports can run against
func (h *Handler) ListStores(c *gin.Context) {
	resp := StoresResponse{Stores: []StoreInfo{}}
	for _, code := range h.stores() {
		resp.Stores = append(resp.Stores, StoreInfo{Code: string(code), Name: code.DisplayName()})
	}
	c.JSON(http.StatusOK, resp)
}

// PendingImport partitions a store surface against Grocy.
// GET /api/imports/:store/:source/pending?id=<list or order id>
func (h *Handler) PendingImport(c *gin.Context) {
	code, err := store.ParseCode(c.Param("store"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := store.SnapshotRequest{Source: store.Source(c.Param("source")), ID: c.Query("id")}
	switch req.Source {
	case store.SourceCart:
	case store.SourceList, store.SourceOrder:
		if req.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required for " + string(req.Source)})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be cart, list or order"})
		return
	}

	planner, err := h.planner(code)
	if err != nil {
		h.logger.Error().Err(err).Str("store", string(code)).Msg("Store not available")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	res, err := planner.Pending(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		h.logger.Error().Err(err).Str("store", string(code)).Str("source", string(req.Source)).Msg("Pending import failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toPendingResponse(code, req, res))
}

func toPendingResponse(code store.Code, req store.SnapshotRequest, res reconcile.Result) PendingResponse {
	resp := PendingResponse{
		Store:           string(code),
		Source:          string(req.Source),
		ID:              req.ID,
		ToImport:        make([]PendingProduct, 0, len(res.ToImport)),
		AlreadyImported: make([]ImportedProduct, 0, len(res.AlreadyImported)),
	}
	for _, p := range res.ToImport {
		resp.ToImport = append(resp.ToImport, PendingProduct{
			ProductID: p.ProductID,
			Name:      p.Name,
			Brand:     p.Brand,
			Category:  p.CategoryName,
		})
	}
	for _, ai := range res.AlreadyImported {
		resp.AlreadyImported = append(resp.AlreadyImported, ImportedProduct{
			ProductID:   ai.Store.ProductID,
			InventoryID: int(ai.Inventory.ID),
			Name:        ai.Inventory.Name,
		})
	}
	resp.Counts = PendingCounts{ToImport: len(resp.ToImport), AlreadyImported: len(resp.AlreadyImported)}
	return resp
}
