package grocy

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// StoreEntry is what a product remembers about one store.
type StoreEntry struct {
	// Product is the last seen store product snapshot.
	Product *store.Product `json:"product,omitempty"`
	// SaleType is the effective sale type used when the product was imported.
	SaleType store.SaleType `json:"saleType,omitempty"`
	// ReceiptNames are receipt line names matched to this product.
	ReceiptNames []string `json:"receiptNames,omitempty"`
}

// StoreMetadata is the decoded form of the storeMetadata userfield, keyed by
// store code.
type StoreMetadata map[store.Code]*StoreEntry

// DecodeStoreMetadata decodes the wire form. Empty input is empty metadata.
func DecodeStoreMetadata(raw string) (StoreMetadata, error) {
	md := StoreMetadata{}
	if raw == "" || raw == "null" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("decode store metadata: %w", err)
	}
	return md, nil
}

// Encode returns the wire form.
func (m StoreMetadata) Encode() (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode store metadata: %w", err)
	}
	return string(data), nil
}

// ProductID returns the store product id recorded for code.
func (m StoreMetadata) ProductID(code store.Code) (string, bool) {
	e, ok := m[code]
	if !ok || e == nil || e.Product == nil || e.Product.ProductID == "" {
		return "", false
	}
	return e.Product.ProductID, true
}

// Entry returns the entry for code, creating it if needed.
func (m StoreMetadata) Entry(code store.Code) *StoreEntry {
	e, ok := m[code]
	if !ok || e == nil {
		e = &StoreEntry{}
		m[code] = e
	}
	return e
}

// AddReceiptName records a receipt line name. It reports whether the name
// was new.
func (e *StoreEntry) AddReceiptName(name string) bool {
	if name == "" || slices.Contains(e.ReceiptNames, name) {
		return false
	}
	e.ReceiptNames = append(e.ReceiptNames, name)
	return true
}
