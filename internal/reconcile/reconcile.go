// Package reconcile decides which store products are already in the
// inventory service, which is what makes re-running an import a no-op.
package reconcile

import (
	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/matching"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/rs/zerolog"
)

// Imported pairs a store product with the inventory product it was imported
// as.
type Imported struct {
	Store     store.Product
	Inventory grocy.Product
}

// Result splits store products into those still to import and those
// already imported. Both keep the store order.
type Result struct {
	ToImport        []store.Product
	AlreadyImported []Imported
}

// Index maps store product ids of one store to inventory products.
type Index struct {
	code      store.Code
	byStoreID map[string]grocy.Product
	byReceipt map[string]grocy.Product
	undecoded int
}

// NewIndex reads the store metadata of every inventory product. Products
// whose metadata cannot be decoded are never matched.
func NewIndex(code store.Code, inventory []grocy.Product, logger zerolog.Logger) *Index {
	idx := &Index{
		code:      code,
		byStoreID: make(map[string]grocy.Product),
		byReceipt: make(map[string]grocy.Product),
	}
	for _, p := range inventory {
		md, err := p.Metadata()
		if err != nil {
			idx.undecoded++
			logger.Debug().Err(err).Str("product", p.Name).Msg("Ignoring product with undecodable store metadata")
			continue
		}
		entry, ok := md[code]
		if !ok || entry == nil {
			continue
		}
		if id, ok := md.ProductID(code); ok {
			if _, dup := idx.byStoreID[id]; !dup {
				idx.byStoreID[id] = p
			}
		}
		for _, name := range entry.ReceiptNames {
			key := matching.NormalizeReceiptName(name)
			if _, dup := idx.byReceipt[key]; key != "" && !dup {
				idx.byReceipt[key] = p
			}
		}
	}
	return idx
}

// Undecoded returns how many inventory products had unreadable metadata.
func (idx *Index) Undecoded() int {
	return idx.undecoded
}

// FindByStoreProductID returns the inventory product imported from the
// given store product.
func (idx *Index) FindByStoreProductID(id string) (grocy.Product, bool) {
	p, ok := idx.byStoreID[id]
	return p, ok
}

// FindByReceiptName returns the inventory product a receipt line name was
// previously matched to.
func (idx *Index) FindByReceiptName(name string) (grocy.Product, bool) {
	p, ok := idx.byReceipt[matching.NormalizeReceiptName(name)]
	return p, ok
}

// Partition splits products against the index. A store product listed twice
// is only imported once.
func (idx *Index) Partition(products []store.Product) Result {
	var out Result
	seen := make(map[string]bool)
	for _, p := range products {
		if inv, ok := idx.byStoreID[p.ProductID]; ok {
			out.AlreadyImported = append(out.AlreadyImported, Imported{Store: p, Inventory: inv})
			continue
		}
		if seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		out.ToImport = append(out.ToImport, p)
	}
	return out
}

// Add records a newly created product so later lookups in the same run see
// it.
func (idx *Index) Add(p grocy.Product) {
	md, err := p.Metadata()
	if err != nil {
		return
	}
	if id, ok := md.ProductID(idx.code); ok {
		idx.byStoreID[id] = p
	}
	if entry, ok := md[idx.code]; ok && entry != nil {
		for _, name := range entry.ReceiptNames {
			if key := matching.NormalizeReceiptName(name); key != "" {
				idx.byReceipt[key] = p
			}
		}
	}
}

// Partition is the one-shot form of NewIndex followed by Index.Partition.
func Partition(code store.Code, products []store.Product, inventory []grocy.Product, logger zerolog.Logger) Result {
	return NewIndex(code, inventory, logger).Partition(products)
}
