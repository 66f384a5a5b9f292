// Package mapper builds inventory product payloads from store products.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finn-wa/grocy-trolley-sub000/internal/conversion"
	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/lookup"
	"github.com/finn-wa/grocy-trolley-sub000/internal/parent"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/finn-wa/grocy-trolley-sub000/internal/units"
	"github.com/rs/zerolog"
)

// ErrUnmappedCategory is returned for a store category without a table
// entry, or whose location is not provisioned. It is a configuration error.
var ErrUnmappedCategory = errors.New("unmapped category")

// Mapper converts products of one store.
type Mapper struct {
	code       store.Code
	categories CategoryTable
	lookups    *grocy.Lookups
	calc       *conversion.Calculator
	logger     zerolog.Logger
}

// New creates a mapper for the store with the given code, using the
// built-in category table.
func New(code store.Code, lookups *grocy.Lookups, calc *conversion.Calculator, logger zerolog.Logger) (*Mapper, error) {
	categories, ok := Categories[code]
	if !ok {
		return nil, fmt.Errorf("no category table for store %s", code)
	}
	return &Mapper{
		code:       code,
		categories: categories,
		lookups:    lookups,
		calc:       calc,
		logger:     logger.With().Str("component", "mapper").Str("store", string(code)).Logger(),
	}, nil
}

// Code returns the store the mapper converts for.
func (m *Mapper) Code() store.Code {
	return m.code
}

// VerifyLocations checks that every location the category table refers to
// exists in the inventory service.
func (m *Mapper) VerifyLocations(ctx context.Context) error {
	for _, name := range m.categories.Locations() {
		if _, err := m.lookups.Locations.ID(ctx, name); err != nil {
			if errors.Is(err, lookup.ErrNotFound) {
				return fmt.Errorf("%w: %s location %q is not provisioned", ErrUnmappedCategory, m.code, name)
			}
			return err
		}
	}
	return nil
}

// Category returns the mapping for a store category.
func (m *Mapper) Category(name string) (Category, error) {
	c, ok := m.categories.Lookup(name)
	if !ok {
		return Category{}, fmt.Errorf("%w: %s category %q", ErrUnmappedCategory, m.code, name)
	}
	return c, nil
}

// ProductGroupID resolves the product group of a store category, creating
// the group on first use.
func (m *Mapper) ProductGroupID(ctx context.Context, categoryName string) (grocy.ID, error) {
	c, err := m.Category(categoryName)
	if err != nil {
		return 0, err
	}
	id, err := m.lookups.ProductGroups.ID(ctx, c.ProductGroup)
	if err != nil {
		return 0, err
	}
	return grocy.ID(id), nil
}

// ToNewProduct builds the create payload for p. saleType must already be
// the effective sale type. The category is checked before anything else so
// an unmapped category never leaves partial state behind.
func (m *Mapper) ToNewProduct(ctx context.Context, p store.Product, saleType store.SaleType, par *parent.Parent) (*grocy.NewProductRequest, error) {
	category, err := m.Category(p.CategoryName)
	if err != nil {
		return nil, err
	}

	var parentProduct *grocy.Product
	if par != nil {
		parentProduct = &par.Product
	}
	parentUnits, err := m.calc.ParentUnits(ctx, parentProduct)
	if err != nil {
		return nil, err
	}
	res, err := m.calc.Compute(ctx, conversion.InputFor(p, saleType, parentUnits))
	if err != nil {
		return nil, err
	}

	locationID, err := m.lookups.Locations.ID(ctx, category.Location)
	if errors.Is(err, lookup.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s category %q: %w", ErrUnmappedCategory, m.code, p.CategoryName, err)
	}
	if err != nil {
		return nil, err
	}
	groupID, err := m.lookups.ProductGroups.ID(ctx, category.ProductGroup)
	if err != nil {
		return nil, err
	}
	shoppingLocationID, err := m.lookups.ShoppingLocations.ID(ctx, m.code.DisplayName())
	if err != nil {
		return nil, err
	}

	md := grocy.StoreMetadata{}
	entry := md.Entry(m.code)
	snapshot := p
	entry.Product = &snapshot
	entry.SaleType = saleType
	raw, err := md.Encode()
	if err != nil {
		return nil, err
	}

	np := grocy.NewProduct{
		Name:                    DisplayName(p, saleType, res.Units),
		LocationID:              grocy.ID(locationID),
		ShoppingLocationID:      grocy.ID(shoppingLocationID),
		ProductGroupID:          grocy.ID(groupID),
		QuIDPurchase:            res.PurchaseID,
		QuIDStock:               res.StockID,
		QuFactorPurchaseToStock: res.Factor,
		Userfields:              grocy.Userfields{StoreMetadata: raw, IsParent: "0"},
	}
	if par != nil {
		id := par.Product.ID
		np.ParentProductID = &id
	}

	m.logger.Debug().
		Str("product", p.ProductID).
		Str("name", np.Name).
		Str("purchase_unit", string(res.Purchase)).
		Str("stock_unit", string(res.Stock)).
		Float64("factor", res.Factor).
		Msg("Mapped product")

	return &grocy.NewProductRequest{Product: np, Conversions: res.Records}, nil
}

// DisplayName joins the non-empty parts of brand, name and a quantity suffix
// in parentheses. Weight-sold products are suffixed with their unit. A single
// each gets no suffix.
func DisplayName(p store.Product, saleType store.SaleType, u conversion.Units) string {
	var suffix string
	switch {
	case saleType.IsWeight():
		suffix = string(u.Purchase)
	case u.Quantity != nil:
		q := *u.Quantity
		if q.Unit != units.Each || (q.HasMagnitude && q.Magnitude != 1) {
			suffix = q.String()
		}
	}

	parts := make([]string, 0, 3)
	for _, s := range []string{strings.TrimSpace(p.Brand), strings.TrimSpace(p.Name)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if suffix != "" {
		parts = append(parts, "("+suffix+")")
	}
	return strings.Join(parts, " ")
}
