package grocy

import (
	"context"

	"github.com/finn-wa/grocy-trolley-sub000/internal/lookup"
	"github.com/rs/zerolog"
)

// Lookups holds the process-wide name to id caches backed by a Client.
// Locations and quantity units must be provisioned by hand; product groups
// and shopping locations are created on first use.
type Lookups struct {
	QuantityUnits     *lookup.Cache
	Locations         *lookup.Cache
	ProductGroups     *lookup.Cache
	ShoppingLocations *lookup.Cache
}

// NewLookups creates cold caches for c.
func NewLookups(c *Client, logger zerolog.Logger) *Lookups {
	named := func(entity string) lookup.LoadFunc {
		return func(ctx context.Context) ([]lookup.Entry, error) {
			objs, err := c.getNamed(ctx, entity)
			if err != nil {
				return nil, err
			}
			return toEntries(objs), nil
		}
	}
	create := func(entity string) lookup.CreateFunc {
		return func(ctx context.Context, name string) (int, error) {
			id, err := c.createNamed(ctx, entity, name)
			return int(id), err
		}
	}

	return &Lookups{
		QuantityUnits: lookup.New("quantity unit", func(ctx context.Context) ([]lookup.Entry, error) {
			qus, err := c.GetAllQuantityUnits(ctx)
			if err != nil {
				return nil, err
			}
			entries := make([]lookup.Entry, 0, len(qus))
			for _, qu := range qus {
				entries = append(entries, lookup.Entry{ID: int(qu.ID), Name: qu.Name})
			}
			return entries, nil
		}, lookup.WithLogger(logger)),
		Locations:         lookup.New("location", named("locations"), lookup.WithLogger(logger)),
		ProductGroups:     lookup.New("product group", named("product_groups"), lookup.WithCreate(create("product_groups")), lookup.WithLogger(logger)),
		ShoppingLocations: lookup.New("shopping location", named("shopping_locations"), lookup.WithCreate(create("shopping_locations")), lookup.WithLogger(logger)),
	}
}

func toEntries(objs []NamedObject) []lookup.Entry {
	entries := make([]lookup.Entry, 0, len(objs))
	for _, o := range objs {
		entries = append(entries, lookup.Entry{ID: int(o.ID), Name: o.Name})
	}
	return entries
}
