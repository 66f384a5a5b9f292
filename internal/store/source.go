package store

import (
	"context"
	"fmt"
)

// Code identifies a store. It keys the store metadata embedded in inventory
// products, so values must never change.
type Code string

const (
	CodePaknsave  Code = "PNS"
	CodeNewWorld  Code = "NW"
	CodeCountdown Code = "CD"
	CodeGrocer    Code = "GR"
)

// Codes contains all known store codes.
var Codes = []Code{CodePaknsave, CodeNewWorld, CodeCountdown, CodeGrocer}

var displayNames = map[Code]string{
	CodePaknsave:  "PAK'nSAVE",
	CodeNewWorld:  "New World",
	CodeCountdown: "Countdown",
	CodeGrocer:    "Grocer",
}

// DisplayName returns the store's name as shown to people and used for the
// inventory service's shopping location.
func (c Code) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseCode validates a store code.
func ParseCode(value string) (Code, error) {
	for _, c := range Codes {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid store code: %s", value)
}

// Source is the store surface a snapshot was taken from.
type Source string

const (
	SourceCart  Source = "cart"
	SourceList  Source = "list"
	SourceOrder Source = "order"
)

// Item is a store product of one of the surface variants. The engine only
// reads Base(); variant fields are handled where the snapshot is taken.
type Item interface {
	Base() Product
	Source() Source
}

// CartProduct is a product in the store trolley.
type CartProduct struct {
	Product
	PromoPrice  *int   `json:"promoPrice,omitempty"`
	PromoDecal  string `json:"promoDecal,omitempty"`
	HasBadge    bool   `json:"hasBadge"`
	RestrictAge bool   `json:"restricted"`
}

func (p CartProduct) Base() Product  { return p.Product }
func (p CartProduct) Source() Source { return SourceCart }

// ListProduct is a product on a saved store list.
type ListProduct struct {
	Product
	Ranged  bool `json:"ranged"`
	InStock bool `json:"inStock"`
}

func (p ListProduct) Base() Product  { return p.Product }
func (p ListProduct) Source() Source { return SourceList }

// OrderProduct is a product from a placed order.
type OrderProduct struct {
	Product
	AllowSubstitutions bool   `json:"allowSubstitutions"`
	Substituted        bool   `json:"substituted"`
	SubstitutedFor     string `json:"substitutedFor,omitempty"`
}

func (p OrderProduct) Base() Product  { return p.Product }
func (p OrderProduct) Source() Source { return SourceOrder }

// Snapshot is the state of one store surface at fetch time.
type Snapshot struct {
	Source      Source
	Items       []Item
	Unavailable []Item
}

// Products returns the base fields of every available item, in store order.
func (s *Snapshot) Products() []Product {
	products := make([]Product, 0, len(s.Items))
	for _, item := range s.Items {
		products = append(products, item.Base())
	}
	return products
}

// SnapshotRequest selects the surface to fetch. ID is the list or order id
// and is ignored for the cart.
type SnapshotRequest struct {
	Source Source
	ID     string
}

// Store is the store-integration collaborator. Implementations are already
// authenticated.
type Store interface {
	Code() Code
	Snapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error)
	// SearchAndSelect searches the store and lets the operator pick a result.
	// It returns nil when nothing was chosen.
	SearchAndSelect(ctx context.Context, query string) (*Product, error)
}

// ListWriter is implemented by stores that accept line items onto a list.
type ListWriter interface {
	AddToList(ctx context.Context, listID string, items []LineItem) error
}
