package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/reconcile"
	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	result reconcile.Result
	err    error
	got    store.SnapshotRequest
}

func (f *fakePlanner) Pending(ctx context.Context, req store.SnapshotRequest) (reconcile.Result, error) {
	f.got = req
	return f.result, f.err
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/api/stores", h.ListStores)
	r.GET("/api/imports/:store/:source/pending", h.PendingImport)
	return r
}

func newHandler(p *fakePlanner, ping func(ctx context.Context) error) *Handler {
	planner := func(code store.Code) (Planner, error) {
		if code != store.CodePaknsave {
			return nil, errors.New("no token configured")
		}
		return p, nil
	}
	stores := func() []store.Code { return []store.Code{store.CodeNewWorld, store.CodePaknsave} }
	return New(planner, stores, ping, zerolog.Nop())
}

func do(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestPendingImport(t *testing.T) {
	p := &fakePlanner{result: reconcile.Result{
		ToImport: []store.Product{{ProductID: "6001", Name: "Standard Milk", Brand: "Meadow Fresh", CategoryName: "Chilled, Dairy & Eggs"}},
		AlreadyImported: []reconcile.Imported{{
			Store:     store.Product{ProductID: "5001"},
			Inventory: grocy.Product{ID: 50, Name: "Anchor Salted Butter (500g)"},
		}},
	}}
	r := newRouter(newHandler(p, nil))

	w := do(r, "/api/imports/PNS/order/pending?id=42")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.SnapshotRequest{Source: store.SourceOrder, ID: "42"}, p.got)

	var resp PendingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PNS", resp.Store)
	assert.Equal(t, "order", resp.Source)
	assert.Equal(t, PendingCounts{ToImport: 1, AlreadyImported: 1}, resp.Counts)
	assert.Equal(t, "Meadow Fresh", resp.ToImport[0].Brand)
	assert.Equal(t, ImportedProduct{ProductID: "5001", InventoryID: 50, Name: "Anchor Salted Butter (500g)"}, resp.AlreadyImported[0])
}

func TestPendingImportEmptyListsAreArrays(t *testing.T) {
	r := newRouter(newHandler(&fakePlanner{}, nil))

	w := do(r, "/api/imports/PNS/cart/pending")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"toImport":[]`)
	assert.Contains(t, w.Body.String(), `"alreadyImported":[]`)
}

func TestPendingImportErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"unknown store", "/api/imports/XX/cart/pending", nil, http.StatusBadRequest},
		{"unknown source", "/api/imports/PNS/basket/pending", nil, http.StatusBadRequest},
		{"list without id", "/api/imports/PNS/list/pending", nil, http.StatusBadRequest},
		{"store not configured", "/api/imports/NW/cart/pending", nil, http.StatusServiceUnavailable},
		{"upstream failure", "/api/imports/PNS/cart/pending", errors.New("grocy down"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(newHandler(&fakePlanner{err: tt.err}, nil))
			w := do(r, tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestListStores(t *testing.T) {
	r := newRouter(newHandler(&fakePlanner{}, nil))

	w := do(r, "/api/stores")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StoresResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []StoreInfo{{Code: "NW", Name: "New World"}, {Code: "PNS", Name: "PAK'nSAVE"}}, resp.Stores)
}

func TestHealthCheck(t *testing.T) {
	w := do(newRouter(newHandler(&fakePlanner{}, nil)), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"grocy":"not configured"`)

	ok := func(ctx context.Context) error { return nil }
	w = do(newRouter(newHandler(&fakePlanner{}, ok)), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"grocy":"connected"`)

	down := func(ctx context.Context) error { return errors.New("connection refused") }
	w = do(newRouter(newHandler(&fakePlanner{}, down)), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestReports(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	put := func(store, source, name, runID string, day int) {
		meta := &storage.Metadata{RunID: runID, ContentType: "application/json", CreatedAt: time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC)}
		require.NoError(t, st.Put(ctx, storage.Key{Store: store, Source: source, Name: name}, []byte(`{"id":"`+runID+`"}`), meta))
	}
	put("PNS", "cart", "20240301T100000Z-a.json", "a", 1)
	put("PNS", "cart", "20240302T100000Z-b.json", "b", 2)
	put("NW", "list", "20240303T100000Z-c.json", "c", 3)

	h := newHandler(&fakePlanner{}, nil).WithReports(st)
	r := newRouter(h)
	r.GET("/api/reports", h.ListReports)
	r.GET("/api/reports/:store/:source/:name", h.GetReport)

	w := do(r, "/api/reports?store=PNS")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ReportsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 2)
	assert.Equal(t, "reports/PNS/cart/20240302T100000Z-b.json", resp.Reports[0].Key)
	assert.Equal(t, "b", resp.Reports[0].Metadata.RunID)

	// Unfiltered listings are ordered by run time across stores.
	w = do(r, "/api/reports")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 3)
	assert.Equal(t, "c", resp.Reports[0].Metadata.RunID)
	assert.Equal(t, "b", resp.Reports[1].Metadata.RunID)
	assert.Equal(t, "a", resp.Reports[2].Metadata.RunID)

	w = do(r, "/api/reports/PNS/cart/20240301T100000Z-a.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"id":"a"}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `"`+storage.ComputeChecksum([]byte(`{"id":"a"}`))+`"`, w.Header().Get("ETag"))

	w = do(r, "/api/reports/PNS/cart/missing.json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, "/api/reports/PNS/cart/20240301T100000Z-a.json.meta")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, "/api/reports?store=..")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsNotConfigured(t *testing.T) {
	h := newHandler(&fakePlanner{}, nil)
	r := newRouter(h)
	r.GET("/api/reports", h.ListReports)

	w := do(r, "/api/reports")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
