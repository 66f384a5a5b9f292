package units

import (
	"context"
	"errors"
	"fmt"

	"github.com/finn-wa/grocy-trolley-sub000/internal/lookup"
)

// ErrMissingUnit is returned when a canonical unit has not been provisioned in
// the inventory service. It is a configuration error.
var ErrMissingUnit = errors.New("missing quantity unit")

// Registry resolves canonical units to inventory-service ids. A single
// Registry is shared by every component of a process.
type Registry struct {
	cache *lookup.Cache
}

// NewRegistry wraps a quantity unit lookup cache. The cache must not create
// missing entries; units are provisioned by hand.
func NewRegistry(cache *lookup.Cache) *Registry {
	return &Registry{cache: cache}
}

// ID returns the inventory-service id of u.
func (r *Registry) ID(ctx context.Context, u Unit) (int, error) {
	id, err := r.cache.ID(ctx, string(u))
	if errors.Is(err, lookup.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrMissingUnit, u)
	}
	return id, err
}

// Unit returns the canonical unit with the given inventory-service id. ok is
// false when the id names a unit outside the canonical set.
func (r *Registry) Unit(ctx context.Context, id int) (Unit, bool, error) {
	name, found, err := r.cache.Name(ctx, id)
	if err != nil || !found {
		return "", false, err
	}
	u, ok := Lookup(name)
	return u, ok, nil
}

// Verify checks that every canonical unit exists.
func (r *Registry) Verify(ctx context.Context) error {
	var missing []error
	for _, u := range All {
		if _, err := r.ID(ctx, u); err != nil {
			missing = append(missing, err)
		}
	}
	return errors.Join(missing...)
}
