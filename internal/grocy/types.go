// Package grocy models the inventory service's REST objects and provides a
// client for the endpoints the import engine uses.
package grocy

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ID is an inventory-service object id. Depending on the server version ids
// arrive as JSON numbers or strings; both decode. Zero means unset.
type ID int

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Number is a decimal that may arrive as a JSON number or string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = Number(f)
	return nil
}

// Userfields are the custom product fields the engine owns. Values are kept
// in their wire form.
type Userfields struct {
	// StoreMetadata is string-encoded JSON, see StoreMetadata.
	StoreMetadata string `json:"storeMetadata,omitempty"`
	// IsParent is "1" for generic products.
	IsParent string `json:"isParent,omitempty"`
}

// Product is an inventory product.
type Product struct {
	ID                      ID         `json:"id"`
	Name                    string     `json:"name"`
	Description             string     `json:"description,omitempty"`
	LocationID              ID         `json:"location_id"`
	ShoppingLocationID      ID         `json:"shopping_location_id,omitempty"`
	ProductGroupID          ID         `json:"product_group_id,omitempty"`
	QuIDPurchase            ID         `json:"qu_id_purchase"`
	QuIDStock               ID         `json:"qu_id_stock"`
	QuFactorPurchaseToStock Number     `json:"qu_factor_purchase_to_stock"`
	ParentProductID         ID         `json:"parent_product_id,omitempty"`
	Userfields              Userfields `json:"userfields"`
}

// IsParent reports whether the product is a generic product.
func (p Product) IsParent() bool {
	return p.Userfields.IsParent == "1"
}

// Factor returns the purchase to stock factor, treating unset as 1.
func (p Product) Factor() float64 {
	if p.QuFactorPurchaseToStock <= 0 {
		return 1
	}
	return float64(p.QuFactorPurchaseToStock)
}

// Metadata decodes the store metadata userfield.
func (p Product) Metadata() (StoreMetadata, error) {
	return DecodeStoreMetadata(p.Userfields.StoreMetadata)
}

// NewProduct is the payload for creating a product. Userfields are written
// with a separate request after creation.
type NewProduct struct {
	Name                    string     `json:"name"`
	Description             string     `json:"description"`
	LocationID              ID         `json:"location_id"`
	ShoppingLocationID      ID         `json:"shopping_location_id,omitempty"`
	ProductGroupID          ID         `json:"product_group_id,omitempty"`
	QuIDPurchase            ID         `json:"qu_id_purchase"`
	QuIDStock               ID         `json:"qu_id_stock"`
	QuFactorPurchaseToStock float64    `json:"qu_factor_purchase_to_stock"`
	ParentProductID         *ID        `json:"parent_product_id,omitempty"`
	DefaultBestBeforeDays   int        `json:"default_best_before_days"`
	Userfields              Userfields `json:"-"`
}

// QuantityUnitConversion converts one quantity unit into another for a
// single product.
type QuantityUnitConversion struct {
	ProductID ID      `json:"product_id"`
	FromQuID  ID      `json:"from_qu_id"`
	ToQuID    ID      `json:"to_qu_id"`
	Factor    float64 `json:"factor"`
}

// NewProductRequest is a product to create together with its conversions.
// Conversion ProductIDs are filled in once the product exists.
type NewProductRequest struct {
	Product     NewProduct
	Conversions []QuantityUnitConversion
}

// ProductPatch holds the fields that may change after creation. Nil fields
// are left untouched.
type ProductPatch struct {
	ParentProductID *ID
	Userfields      *Userfields
}

// QuantityUnit is a configured quantity unit.
type QuantityUnit struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	NamePlural string `json:"name_plural,omitempty"`
}

// NamedObject covers locations, product groups and shopping locations.
type NamedObject struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StockAddRequest adds stock for a product.
type StockAddRequest struct {
	Amount             float64 `json:"amount"`
	Price              float64 `json:"price"`
	BestBeforeDate     string  `json:"best_before_date"`
	LocationID         ID      `json:"location_id,omitempty"`
	ShoppingLocationID ID      `json:"shopping_location_id,omitempty"`
	TransactionType    string  `json:"transaction_type"`
}

// StockLogEntry is one stock booking returned after adding stock.
type StockLogEntry struct {
	ID             ID     `json:"id"`
	ProductID      ID     `json:"product_id"`
	Amount         Number `json:"amount"`
	Price          Number `json:"price"`
	BestBeforeDate string `json:"best_before_date"`
	TransactionID  string `json:"transaction_id"`
}

// ShoppingListItem is an item on an inventory shopping list.
type ShoppingListItem struct {
	ID             ID     `json:"id"`
	ShoppingListID ID     `json:"shopping_list_id"`
	ProductID      ID     `json:"product_id"`
	Amount         Number `json:"amount"`
	Note           string `json:"note,omitempty"`
}

// ProductBarcode links a barcode to a product.
type ProductBarcode struct {
	ProductID ID     `json:"product_id"`
	Barcode   string `json:"barcode"`
	Note      string `json:"note,omitempty"`
}

type createdObject struct {
	CreatedObjectID ID `json:"created_object_id"`
}
