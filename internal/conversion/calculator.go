// Package conversion decides the purchase unit, stock unit and conversion
// factors of a store product being imported into the inventory service.
package conversion

import (
	"context"
	"errors"
	"fmt"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/finn-wa/grocy-trolley-sub000/internal/units"
	"github.com/rs/zerolog"
)

// ErrUnitMismatch is returned when a product has no sale type detail for its
// effective sale type.
var ErrUnitMismatch = errors.New("unit mismatch")

// rescaleThreshold is the magnitude above which grams and millilitres are
// converted to kilograms and litres.
const rescaleThreshold = 100

// Conversion is a unit conversion scoped to one product:
// 1 From = Factor To.
type Conversion struct {
	From   units.Unit
	To     units.Unit
	Factor float64
}

// Units is the outcome of a unit computation.
type Units struct {
	Purchase units.Unit
	Stock    units.Unit
	// Factor means 1 purchase unit = Factor stock units. Always positive.
	Factor      float64
	Conversions []Conversion
	// Quantity is the parsed display quantity for unit-sold products.
	Quantity *Quantity
}

// ParentUnits describes the generic product an import is linked to.
type ParentUnits struct {
	Name  string
	Stock units.Unit
}

// Input is what the calculator needs from a store product.
type Input struct {
	Product store.Product
	// SaleType must already be the effective sale type (not BOTH).
	SaleType store.SaleType
	Parent   *ParentUnits
}

// InputFor builds an Input from a store product.
func InputFor(p store.Product, saleType store.SaleType, parent *ParentUnits) Input {
	return Input{Product: p, SaleType: saleType, Parent: parent}
}

// Compute decides units and factors for in.
//
// Weight-sold products are bought and stocked in the unit from the sale type
// detail. Unit-sold products are read from the display quantity: packs stock
// their count as each, plain each stocks as each, and physical quantities
// stock as each with an auxiliary conversion unless a parent already tracks
// stock in a physical unit.
func Compute(in Input, logger zerolog.Logger) (Units, error) {
	var out Units

	switch in.SaleType {
	case store.SaleTypeWeight:
		d, ok := in.Product.Detail(store.SaleTypeWeight)
		if !ok {
			return Units{}, fmt.Errorf("%w: product %s has no %s sale type detail", ErrUnitMismatch, in.Product.ProductID, in.SaleType)
		}
		u := units.Resolve(d.Unit)
		out = Units{Purchase: u, Stock: u, Factor: 1}

	case store.SaleTypeUnits:
		if _, ok := in.Product.Detail(store.SaleTypeUnits); !ok {
			return Units{}, fmt.Errorf("%w: product %s has no %s sale type detail", ErrUnitMismatch, in.Product.ProductID, in.SaleType)
		}
		q := ParseDisplayQuantity(in.Product.DisplayQuantity)
		if !q.HasMagnitude {
			logger.Warn().
				Str("product", in.Product.ProductID).
				Str("display_quantity", in.Product.DisplayQuantity).
				Msg("No quantity in display text, assuming 1")
			q.Magnitude = 1
		}
		out = computeEach(q, in.Parent)
		out.Quantity = &q

	default:
		return Units{}, fmt.Errorf("%w: %q for product %s", store.ErrUnexpectedSaleType, in.SaleType, in.Product.ProductID)
	}

	if in.Parent != nil && in.Parent.Stock != out.Stock {
		logger.Error().
			Str("product", in.Product.ProductID).
			Str("parent", in.Parent.Name).
			Str("parent_stock_unit", string(in.Parent.Stock)).
			Str("stock_unit", string(out.Stock)).
			Msg("Stock unit differs from parent product, fix manually")
	}
	return out, nil
}

func computeEach(q Quantity, parent *ParentUnits) Units {
	switch {
	case q.Unit == units.Pack:
		return Units{Purchase: units.Pack, Stock: units.Each, Factor: q.Magnitude}
	case !q.Unit.IsPhysical():
		return Units{Purchase: units.Each, Stock: units.Each, Factor: 1}
	}

	// An unknown parent stock unit (empty) is not adopted.
	if parent != nil && parent.Stock != "" && parent.Stock != units.Each {
		return Units{Purchase: units.Each, Stock: q.Unit, Factor: q.Magnitude}
	}

	to, factor := rescale(q.Unit, q.Magnitude)
	return Units{
		Purchase:    units.Each,
		Stock:       units.Each,
		Factor:      1,
		Conversions: []Conversion{{From: units.Each, To: to, Factor: factor}},
	}
}

// rescale moves large gram and millilitre magnitudes to kilograms and litres
// so conversion factors keep their precision.
func rescale(u units.Unit, magnitude float64) (units.Unit, float64) {
	if magnitude <= rescaleThreshold {
		return u, magnitude
	}
	if larger, ok := u.Larger(); ok {
		return larger, magnitude / 1000
	}
	return u, magnitude
}

// Resolved is Units with inventory-service ids.
type Resolved struct {
	Units
	PurchaseID grocy.ID
	StockID    grocy.ID
	// Records are Conversions as inventory-service payloads.
	Records []grocy.QuantityUnitConversion
}

// Calculator computes units and resolves them to inventory-service ids.
type Calculator struct {
	registry *units.Registry
	logger   zerolog.Logger
}

// NewCalculator creates a calculator backed by the shared unit registry.
func NewCalculator(registry *units.Registry, logger zerolog.Logger) *Calculator {
	return &Calculator{
		registry: registry,
		logger:   logger.With().Str("component", "conversion").Logger(),
	}
}

// Compute runs Compute and resolves every unit to its id.
func (c *Calculator) Compute(ctx context.Context, in Input) (*Resolved, error) {
	u, err := Compute(in, c.logger)
	if err != nil {
		return nil, err
	}
	return c.Resolve(ctx, u)
}

// Resolve maps computed units to inventory-service ids.
func (c *Calculator) Resolve(ctx context.Context, u Units) (*Resolved, error) {
	purchaseID, err := c.registry.ID(ctx, u.Purchase)
	if err != nil {
		return nil, err
	}
	stockID, err := c.registry.ID(ctx, u.Stock)
	if err != nil {
		return nil, err
	}

	res := &Resolved{Units: u, PurchaseID: grocy.ID(purchaseID), StockID: grocy.ID(stockID)}
	for _, conv := range u.Conversions {
		fromID, err := c.registry.ID(ctx, conv.From)
		if err != nil {
			return nil, err
		}
		toID, err := c.registry.ID(ctx, conv.To)
		if err != nil {
			return nil, err
		}
		res.Records = append(res.Records, grocy.QuantityUnitConversion{
			FromQuID: grocy.ID(fromID),
			ToQuID:   grocy.ID(toID),
			Factor:   conv.Factor,
		})
	}
	return res, nil
}

// ParentUnits reads the stock unit of a parent product. A parent stocked in
// a unit outside the canonical set yields an empty Stock: the child keeps its
// own units and the difference is logged as a mismatch.
func (c *Calculator) ParentUnits(ctx context.Context, parent *grocy.Product) (*ParentUnits, error) {
	if parent == nil {
		return nil, nil
	}
	u, _, err := c.registry.Unit(ctx, int(parent.QuIDStock))
	if err != nil {
		return nil, err
	}
	return &ParentUnits{Name: parent.Name, Stock: u}, nil
}
