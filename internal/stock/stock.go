// Package stock computes stock-add requests for imported products.
package stock

import (
	"errors"
	"fmt"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// ErrMissingStoreMetadata is returned when a product holds no snapshot for
// the store and no override was given. It only fails that one posting.
var ErrMissingStoreMetadata = errors.New("missing store metadata")

const (
	// DefaultBestBeforeDate marks stock that never expires.
	DefaultBestBeforeDate = "2999-12-31"
	// TransactionPurchase is the stock transaction type of imports.
	TransactionPurchase = "purchase"
)

// Options tune a stock request.
type Options struct {
	// Policy decides the sale type of products sold both ways when the
	// product does not record the sale type it was imported with.
	Policy store.SaleTypePolicy
	// BestBeforeDate defaults to DefaultBestBeforeDate.
	BestBeforeDate     string
	LocationID         grocy.ID
	ShoppingLocationID grocy.ID
}

// ToStockRequest builds the stock-add request for product. The store
// snapshot embedded in the product metadata is used unless override is
// given, which refreshes a stale price.
//
// amount = quantity * factor. The unit price divides the snapshot price by
// the quantity for weight sales (the price covers the whole purchase) and by
// the factor otherwise (the price covers one purchase unit).
func ToStockRequest(product grocy.Product, code store.Code, override *store.Product, opts Options) (grocy.StockAddRequest, error) {
	md, err := product.Metadata()
	if err != nil && override == nil {
		return grocy.StockAddRequest{}, fmt.Errorf("%w: product %s: %w", ErrMissingStoreMetadata, product.Name, err)
	}
	entry := md[code]

	snapshot := override
	if snapshot == nil {
		if entry == nil || entry.Product == nil {
			return grocy.StockAddRequest{}, fmt.Errorf("%w: product %s has none for %s", ErrMissingStoreMetadata, product.Name, code)
		}
		snapshot = entry.Product
	}

	saleType := store.SaleType("")
	if entry != nil {
		saleType = entry.SaleType
	}
	if saleType == "" || saleType == store.SaleTypeBoth {
		saleType, err = snapshot.EffectiveSaleType(opts.Policy)
		if err != nil {
			return grocy.StockAddRequest{}, err
		}
	}

	quantity := snapshot.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	factor := product.Factor()

	priceFactor := factor
	if saleType.IsWeight() {
		priceFactor = quantity
	}

	bestBefore := opts.BestBeforeDate
	if bestBefore == "" {
		bestBefore = DefaultBestBeforeDate
	}
	locationID := opts.LocationID
	if locationID == 0 {
		locationID = product.LocationID
	}
	shoppingLocationID := opts.ShoppingLocationID
	if shoppingLocationID == 0 {
		shoppingLocationID = product.ShoppingLocationID
	}

	return grocy.StockAddRequest{
		Amount:             quantity * factor,
		Price:              float64(snapshot.Price) / 100 / priceFactor,
		BestBeforeDate:     bestBefore,
		LocationID:         locationID,
		ShoppingLocationID: shoppingLocationID,
		TransactionType:    TransactionPurchase,
	}, nil
}
