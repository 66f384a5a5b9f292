package reconcile

import (
	"testing"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imported(t *testing.T, id grocy.ID, name string, code store.Code, storeID string, receiptNames ...string) grocy.Product {
	t.Helper()
	md := grocy.StoreMetadata{}
	e := md.Entry(code)
	e.Product = &store.Product{ProductID: storeID, Name: name}
	e.ReceiptNames = receiptNames
	raw, err := md.Encode()
	require.NoError(t, err)
	return grocy.Product{ID: id, Name: name, Userfields: grocy.Userfields{StoreMetadata: raw}}
}

func storeProducts(ids ...string) []store.Product {
	out := make([]store.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.Product{ProductID: id, Name: "product " + id})
	}
	return out
}

func TestPartition(t *testing.T) {
	inventory := []grocy.Product{
		imported(t, 1, "Butter", store.CodePaknsave, "5001"),
		imported(t, 2, "Milk", store.CodeCountdown, "5002"),
		{ID: 3, Name: "Broken", Userfields: grocy.Userfields{StoreMetadata: "{not json"}},
		{ID: 4, Name: "Manual"},
	}

	res := Partition(store.CodePaknsave, storeProducts("5001", "5002", "5003"), inventory, zerolog.Nop())

	require.Len(t, res.AlreadyImported, 1)
	assert.Equal(t, "5001", res.AlreadyImported[0].Store.ProductID)
	assert.Equal(t, grocy.ID(1), res.AlreadyImported[0].Inventory.ID)

	// The same store product id under another store code is not a match.
	require.Len(t, res.ToImport, 2)
	assert.Equal(t, "5002", res.ToImport[0].ProductID)
	assert.Equal(t, "5003", res.ToImport[1].ProductID)
}

func TestPartitionKeepsOrderAndDropsDuplicates(t *testing.T) {
	res := Partition(store.CodeNewWorld, storeProducts("3", "1", "3", "2"), nil, zerolog.Nop())
	assert.Empty(t, res.AlreadyImported)
	assert.Equal(t, storeProducts("3", "1", "2"), res.ToImport)
}

// TestPartitionIsIdempotent simulates an import run followed by a rerun
// against the unchanged snapshot.
func TestPartitionIsIdempotent(t *testing.T) {
	products := storeProducts("5001", "5002")
	idx := NewIndex(store.CodePaknsave, nil, zerolog.Nop())

	first := idx.Partition(products)
	require.Len(t, first.ToImport, 2)
	for i, p := range first.ToImport {
		idx.Add(imported(t, grocy.ID(10+i), p.Name, store.CodePaknsave, p.ProductID))
	}

	second := idx.Partition(products)
	assert.Empty(t, second.ToImport)
	assert.Len(t, second.AlreadyImported, 2)
}

func TestIndexLookups(t *testing.T) {
	inventory := []grocy.Product{
		imported(t, 1, "Anchor Butter", store.CodePaknsave, "5001", "ANCHOR BTR 500G"),
		{ID: 3, Name: "Broken", Userfields: grocy.Userfields{StoreMetadata: "[]"}},
	}
	idx := NewIndex(store.CodePaknsave, inventory, zerolog.Nop())
	assert.Equal(t, 1, idx.Undecoded())

	p, ok := idx.FindByStoreProductID("5001")
	assert.True(t, ok)
	assert.Equal(t, grocy.ID(1), p.ID)

	_, ok = idx.FindByStoreProductID("9999")
	assert.False(t, ok)

	p, ok = idx.FindByReceiptName("anchor btr 500g.")
	assert.True(t, ok)
	assert.Equal(t, grocy.ID(1), p.ID)

	_, ok = idx.FindByReceiptName("ANCHOR BTR 250G")
	assert.False(t, ok)

	idx.Add(imported(t, 2, "Milk", store.CodePaknsave, "5002", "MEADOW FRESH 2L"))
	p, ok = idx.FindByReceiptName("Meadow Fresh 2L")
	assert.True(t, ok)
	assert.Equal(t, grocy.ID(2), p.ID)
}
