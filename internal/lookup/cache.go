// Package lookup caches name to id mappings of inventory-service objects
// (quantity units, locations, product groups, shopping locations).
//
// A Cache loads all entries once per process and is safe for concurrent use.
// The first load and every creation of a missing entry go through a
// singleflight group, so concurrent importers never issue duplicate load or
// create calls against the inventory service.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

// ErrNotFound is returned when a name has no entry and the cache cannot
// create one.
var ErrNotFound = errors.New("lookup: not found")

// Entry is one named inventory-service object.
type Entry struct {
	ID   int
	Name string
}

// LoadFunc fetches every entry of the cached kind.
type LoadFunc func(ctx context.Context) ([]Entry, error)

// CreateFunc creates an entry with the given name and returns its id.
type CreateFunc func(ctx context.Context, name string) (int, error)

// Cache maps names to ids for one object kind.
type Cache struct {
	kind   string
	load   LoadFunc
	create CreateFunc
	logger zerolog.Logger

	mu     sync.RWMutex
	loaded bool
	byName map[string]Entry
	byID   map[int]Entry

	sf singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithCreate makes the cache create missing entries instead of failing.
func WithCreate(create CreateFunc) Option {
	return func(c *Cache) {
		c.create = create
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache for the given kind. kind is used in errors and logs.
func New(kind string, load LoadFunc, opts ...Option) *Cache {
	c := &Cache{
		kind:   kind,
		load:   load,
		logger: zerolog.Nop(),
		byName: make(map[string]Entry),
		byID:   make(map[int]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "lookup").Str("kind", kind).Logger()
	return c
}

func key(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// ID returns the id for name, ignoring case. Missing entries are created when
// the cache was built WithCreate.
func (c *Cache) ID(ctx context.Context, name string) (int, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	if e, ok := c.get(name); ok {
		return e.ID, nil
	}
	if c.create == nil {
		return 0, fmt.Errorf("%w: %s %q", ErrNotFound, c.kind, name)
	}

	v, err, _ := c.sf.Do("create:"+key(name), func() (interface{}, error) {
		// Another caller may have finished creating it while we waited.
		if e, ok := c.get(name); ok {
			return e.ID, nil
		}
		id, err := c.create(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("create %s %q: %w", c.kind, name, err)
		}
		c.put(Entry{ID: id, Name: name})
		c.logger.Info().Str("name", name).Int("id", id).Msg("Created missing entry")
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Name returns the entry name for id.
func (c *Cache) Name(ctx context.Context, id int) (string, bool, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return "", false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	return e.Name, ok, nil
}

func (c *Cache) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := c.sf.Do("load", func() (interface{}, error) {
		c.mu.RLock()
		loaded := c.loaded
		c.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		entries, err := c.load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", c.kind, err)
		}

		c.mu.Lock()
		for _, e := range entries {
			c.byName[key(e.Name)] = e
			c.byID[e.ID] = e
		}
		c.loaded = true
		c.mu.Unlock()

		c.logger.Debug().Int("entries", len(entries)).Msg("Loaded lookup cache")
		return nil, nil
	})
	return err
}

func (c *Cache) get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[key(name)]
	return e, ok
}

func (c *Cache) put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[key(e.Name)] = e
	c.byID[e.ID] = e
}
