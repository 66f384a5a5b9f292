package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedSaleType is returned when a store reports a sale type outside
// the closed set, or when the effective sale type cannot be decided.
var ErrUnexpectedSaleType = errors.New("unexpected sale type")

// SaleType is how a store sells a product.
type SaleType string

const (
	SaleTypeUnits  SaleType = "UNITS"
	SaleTypeWeight SaleType = "WEIGHT"
	SaleTypeBoth   SaleType = "BOTH"
)

// ParseSaleType validates a raw sale type string reported by a store.
func ParseSaleType(raw string) (SaleType, error) {
	switch st := SaleType(strings.ToUpper(strings.TrimSpace(raw))); st {
	case SaleTypeUnits, SaleTypeWeight, SaleTypeBoth:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnexpectedSaleType, raw)
	}
}

// IsWeight reports whether the product is sold by weight or volume.
func (s SaleType) IsWeight() bool {
	return s == SaleTypeWeight
}

// SaleTypePolicy decides the effective sale type of products sold both ways.
type SaleTypePolicy int

const (
	// PreferEach treats products sold either way as sold by unit.
	PreferEach SaleTypePolicy = iota
	// PreferWeight treats products sold either way as sold by weight.
	PreferWeight
)

// String returns the policy name used in logs and reports.
func (p SaleTypePolicy) String() string {
	if p == PreferWeight {
		return "prefer-weight"
	}
	return "prefer-each"
}

// SaleTypeDetail describes one way a product can be bought.
type SaleTypeDetail struct {
	Type     SaleType `json:"type"`
	Unit     string   `json:"unit"`
	MinUnit  float64  `json:"minUnit"`
	StepSize float64  `json:"stepSize"`
}

// Product holds the store product fields the import engine consumes. The
// per-surface variants embed it.
type Product struct {
	ProductID    string           `json:"productId"`
	Name         string           `json:"name"`
	Brand        string           `json:"brand,omitempty"`
	CategoryName string           `json:"categoryName"`
	Price        int              `json:"price"` // cents
	Quantity     float64          `json:"quantity"`
	SaleType     SaleType         `json:"saleType"`
	SaleTypes    []SaleTypeDetail `json:"saleTypes"`
	// DisplayQuantity is free text such as "400g" or "6pk". Stores do not
	// guarantee it is correct, especially for weight sales.
	DisplayQuantity string `json:"weightDisplayName,omitempty"`
}

// EffectiveSaleType resolves the sale type used for unit conversion and
// stock pricing.
func (p Product) EffectiveSaleType(policy SaleTypePolicy) (SaleType, error) {
	st := p.SaleType
	if st == "" && len(p.SaleTypes) == 1 {
		st = p.SaleTypes[0].Type
	}
	st, err := ParseSaleType(string(st))
	if err != nil {
		return "", fmt.Errorf("product %s: %w", p.ProductID, err)
	}
	if st != SaleTypeBoth {
		return st, nil
	}
	if policy == PreferWeight {
		return SaleTypeWeight, nil
	}
	return SaleTypeUnits, nil
}

// Detail returns the sale type detail for the given sale type.
func (p Product) Detail(st SaleType) (SaleTypeDetail, bool) {
	for _, d := range p.SaleTypes {
		if d.Type == st {
			return d, true
		}
	}
	return SaleTypeDetail{}, false
}

// LineItem references a store product when requesting products from a store.
// It is not retained after the request.
type LineItem struct {
	ProductID string   `json:"productId"`
	Quantity  float64  `json:"quantity"`
	SaleType  SaleType `json:"saleType"`
}
