package grocy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeGrocy struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeGrocy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(data)})
	f.mu.Unlock()
	f.handler(w, r, string(data))
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*Client, *fakeGrocy) {
	t.Helper()
	fake := &fakeGrocy{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := ratelimit.Config{MaxRetries: 0, InitialBackoffMs: 1, MaxBackoffMs: 1}
	return NewClient(srv.URL+"/api", "key", cfg, zerolog.Nop()), fake
}

func TestGetAllProductsDecodesMixedIDs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		assert.Equal(t, "/api/objects/products", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("GROCY-API-KEY"))
		w.Write([]byte(`[
			{"id": 1, "name": "Butter (Generic)", "location_id": "2", "qu_id_purchase": 1, "qu_id_stock": 1,
			 "qu_factor_purchase_to_stock": "1.0", "parent_product_id": null, "userfields": {"isParent": "1"}},
			{"id": "7", "name": "Anchor Butter", "location_id": 2, "qu_id_purchase": 1, "qu_id_stock": 3,
			 "qu_factor_purchase_to_stock": 500, "parent_product_id": "1",
			 "userfields": {"storeMetadata": "{\"PNS\":{\"product\":{\"productId\":\"5001\",\"name\":\"Butter\"}}}"}}
		]`))
	})

	products, err := c.GetAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.True(t, products[0].IsParent())
	assert.Equal(t, ID(0), products[0].ParentProductID)
	assert.Equal(t, 1.0, products[0].Factor())

	assert.Equal(t, ID(7), products[1].ID)
	assert.Equal(t, ID(1), products[1].ParentProductID)
	assert.Equal(t, 500.0, products[1].Factor())
	md, err := products[1].Metadata()
	require.NoError(t, err)
	id, ok := md.ProductID("PNS")
	assert.True(t, ok)
	assert.Equal(t, "5001", id)
}

// TestCreateProductToleratesExistingConversion verifies that a conversion the
// server reports as already existing does not fail product creation.
func TestCreateProductToleratesExistingConversion(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/objects/products":
			w.Write([]byte(`{"created_object_id": "12"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/userfields/products/12":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/api/objects/quantity_unit_conversions":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error_message":"SQLSTATE[23000]: UNIQUE constraint failed: quantity_unit_conversions.from_qu_id"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, err := c.CreateProduct(context.Background(), NewProductRequest{
		Product: NewProduct{
			Name:                    "Anchor Butter (500g)",
			QuIDPurchase:            1,
			QuIDStock:               1,
			QuFactorPurchaseToStock: 1,
			Userfields:              Userfields{StoreMetadata: `{"PNS":{}}`},
		},
		Conversions: []QuantityUnitConversion{{FromQuID: 1, ToQuID: 3, Factor: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, ID(12), id)

	require.Len(t, fake.requests, 3)
	var conv QuantityUnitConversion
	require.NoError(t, json.Unmarshal([]byte(fake.requests[2].Body), &conv))
	assert.Equal(t, ID(12), conv.ProductID)
	assert.Equal(t, 500.0, conv.Factor)
}

func TestCreateProductReturnsIDWhenUserfieldsFail(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/objects/products":
			w.Write([]byte(`{"created_object_id": "13"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/userfields/products/13":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error_message":"Field storeMetadata is unknown"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, err := c.CreateProduct(context.Background(), NewProductRequest{
		Product: NewProduct{
			Name:       "Anchor Butter (500g)",
			Userfields: Userfields{StoreMetadata: `{"PNS":{}}`},
		},
		Conversions: []QuantityUnitConversion{{FromQuID: 1, ToQuID: 3, Factor: 500}},
	})
	require.Error(t, err)
	assert.Equal(t, ID(13), id)
	assert.Contains(t, err.Error(), "userfields of product 13")
	// Conversions are not attempted after the failure.
	assert.Len(t, fake.requests, 2)
}

func TestCreateQuantityUnitConversionOtherErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_message":"Provided qu_id doesn't exist"}`))
	})

	id, err := c.CreateQuantityUnitConversion(context.Background(), QuantityUnitConversion{FromQuID: 1, ToQuID: 99, Factor: 2})
	assert.Nil(t, id)
	assert.Error(t, err)
}

func TestCreateQuantityUnitConversionReturnsID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		w.Write([]byte(`{"created_object_id": 4}`))
	})

	id, err := c.CreateQuantityUnitConversion(context.Background(), QuantityUnitConversion{FromQuID: 1, ToQuID: 2, Factor: 2})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, ID(4), *id)
}

func TestAddStock(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		assert.Equal(t, "/api/stock/products/12/add", r.URL.Path)
		w.Write([]byte(`[{"id": 99, "product_id": 12, "amount": "6", "price": "1.0", "transaction_id": "tx1"}]`))
	})

	entries, err := c.AddStock(context.Background(), 12, StockAddRequest{Amount: 6, Price: 1, BestBeforeDate: "2999-12-31", TransactionType: "purchase"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Number(6), entries[0].Amount)
	assert.Contains(t, fake.requests[0].Body, `"best_before_date":"2999-12-31"`)
}

func TestPatchProduct(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusNoContent)
	})

	parent := ID(3)
	err := c.PatchProduct(context.Background(), 12, ProductPatch{
		ParentProductID: &parent,
		Userfields:      &Userfields{StoreMetadata: "{}"},
	})
	require.NoError(t, err)
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/api/objects/products/12", fake.requests[0].Path)
	assert.JSONEq(t, `{"parent_product_id": 3}`, fake.requests[0].Body)
	assert.Equal(t, "/api/userfields/products/12", fake.requests[1].Path)
}

func TestLookupsCreateMissingProductGroup(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/objects/product_groups":
			w.Write([]byte(`[{"id": 1, "name": "Dairy"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/objects/product_groups":
			w.Write([]byte(`{"created_object_id": 2}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	lookups := NewLookups(c, zerolog.Nop())

	id, err := lookups.ProductGroups.ID(context.Background(), "dairy")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = lookups.ProductGroups.ID(context.Background(), "Bakery")
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	id, err = lookups.ProductGroups.ID(context.Background(), "Bakery")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Len(t, fake.requests, 2)
}
