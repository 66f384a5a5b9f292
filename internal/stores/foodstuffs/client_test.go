package foodstuffs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt/prompttest"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartJSON = `{
	"products": [
		{"productId": "5001", "name": "Salted Butter", "brand": "Anchor", "categoryName": "Chilled, Dairy & Eggs",
		 "price": 599, "quantity": 1, "saleType": "UNITS", "weightDisplayName": "500g",
		 "saleTypes": [{"type": "UNITS", "unit": "ea", "minUnit": 1, "stepSize": 1}],
		 "promoPrice": 499, "hasBadge": true}
	],
	"unavailableProducts": [
		{"productId": "5002", "name": "Bananas", "categoryName": "Fruit & Vegetables", "price": 349,
		 "quantity": 1.2, "saleType": "WEIGHT", "saleTypes": [{"type": "WEIGHT", "unit": "kg"}]}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, answers ...prompttest.Answer) (*Client, *prompttest.Scripted) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := prompttest.New(answers...)
	c, err := New(Options{
		Code:      store.CodePaknsave,
		BaseURL:   srv.URL,
		Token:     "secret",
		StoreID:   "store-1",
		RateLimit: ratelimit.Config{MaxRetries: 0, InitialBackoffMs: 1, MaxBackoffMs: 1},
	}, p, zerolog.Nop())
	require.NoError(t, err)
	return c, p
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{Code: store.CodeCountdown, Token: "x"}, prompttest.New(), zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Options{Code: store.CodeNewWorld}, prompttest.New(), zerolog.Nop())
	assert.Error(t, err)
}

func TestSnapshotCart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+cartPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "store-1", r.Header.Get("X-Store-Id"))
		w.Write([]byte(cartJSON))
	})

	snap, err := c.Snapshot(context.Background(), store.SnapshotRequest{Source: store.SourceCart})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.Len(t, snap.Unavailable, 1)

	cp, ok := snap.Items[0].(store.CartProduct)
	require.True(t, ok)
	require.NotNil(t, cp.PromoPrice)
	assert.Equal(t, 499, *cp.PromoPrice)
	assert.Equal(t, store.SourceCart, cp.Source())

	base := snap.Products()[0]
	assert.Equal(t, "5001", base.ProductID)
	assert.Equal(t, "500g", base.DisplayQuantity)
	assert.Equal(t, store.SaleTypeUnits, base.SaleType)
	assert.Equal(t, 599, base.Price)
}

func TestSnapshotListSplitsUnranged(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+listPath, r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		w.Write([]byte(`{"products": [
			{"productId": "1", "name": "A", "ranged": true},
			{"productId": "2", "name": "B", "ranged": false}
		]}`))
	})

	snap, err := c.Snapshot(context.Background(), store.SnapshotRequest{Source: store.SourceList, ID: "42"})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "1", snap.Items[0].Base().ProductID)
	require.Len(t, snap.Unavailable, 1)

	_, err = c.Snapshot(context.Background(), store.SnapshotRequest{Source: store.SourceList})
	assert.Error(t, err)
}

func TestSnapshotOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+orderPath, r.URL.Path)
		w.Write([]byte(`{"products": [{"productId": "9", "name": "Milk", "substituted": true, "substitutedFor": "8"}]}`))
	})

	snap, err := c.Snapshot(context.Background(), store.SnapshotRequest{Source: store.SourceOrder, ID: "o-1"})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	op := snap.Items[0].(store.OrderProduct)
	assert.True(t, op.Substituted)
	assert.Equal(t, "8", op.SubstitutedFor)
}

func TestSnapshotError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Snapshot(context.Background(), store.SnapshotRequest{Source: store.SourceCart})
	assert.Error(t, err)
}

func searchHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+searchPath, r.URL.Path)
		if r.URL.Query().Get("q") == "nothing" {
			w.Write([]byte(`{"products": []}`))
			return
		}
		w.Write([]byte(`{"products": [
			{"productId": "1", "name": "Butter", "brand": "Anchor", "price": 599, "weightDisplayName": "500g"},
			{"productId": "2", "name": "Butter", "brand": "Pams", "price": 450}
		]}`))
	}
}

func TestSearchAndSelect(t *testing.T) {
	c, p := newTestClient(t, searchHandler(t), prompttest.Choose(1))

	got, err := c.SearchAndSelect(context.Background(), "butter")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.ProductID)

	require.Len(t, p.Calls, 1)
	assert.Equal(t, []string{"Anchor Butter 500g $5.99", "Pams Butter $4.50", NoneChoice}, p.Calls[0].Choices)
}

func TestSearchAndSelectNone(t *testing.T) {
	c, p := newTestClient(t, searchHandler(t), prompttest.Choose(2), prompttest.Cancel())

	got, err := c.SearchAndSelect(context.Background(), "butter")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.SearchAndSelect(context.Background(), "butter")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.SearchAndSelect(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Len(t, p.Calls, 2)
}

func TestAddToList(t *testing.T) {
	var body addProductsRequest
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.AddToList(context.Background(), "42", nil))
	assert.Zero(t, calls)

	items := []store.LineItem{{ProductID: "1", Quantity: 2, SaleType: store.SaleTypeUnits}}
	require.NoError(t, c.AddToList(context.Background(), "42", items))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "42", body.ListID)
	assert.Equal(t, items, body.Products)
}
