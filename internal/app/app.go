// Package app wires configured clients into importers for the CLI and the
// server.
package app

import (
	"context"

	"github.com/finn-wa/grocy-trolley-sub000/config"
	"github.com/finn-wa/grocy-trolley-sub000/internal/conversion"
	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/importer"
	"github.com/finn-wa/grocy-trolley-sub000/internal/mapper"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/finn-wa/grocy-trolley-sub000/internal/stores/foodstuffs"
	"github.com/finn-wa/grocy-trolley-sub000/internal/stores/registry"
	"github.com/finn-wa/grocy-trolley-sub000/internal/units"
	"github.com/rs/zerolog"
)

// App holds the clients shared by every importer of a process.
type App struct {
	cfg      *config.Config
	grocy    *grocy.Client
	lookups  *grocy.Lookups
	units    *units.Registry
	calc     *conversion.Calculator
	stores   *registry.Registry
	prompter prompt.Prompter
	logger   zerolog.Logger
}

// New creates the shared clients. Store clients are built on first use.
func New(cfg *config.Config, prompter prompt.Prompter, logger zerolog.Logger) *App {
	client := grocy.NewClient(cfg.Grocy.URL, cfg.Grocy.APIKey, cfg.RateLimit, logger)
	lookups := grocy.NewLookups(client, logger)
	unitRegistry := units.NewRegistry(lookups.QuantityUnits)
	return &App{
		cfg:      cfg,
		grocy:    client,
		lookups:  lookups,
		units:    unitRegistry,
		calc:     conversion.NewCalculator(unitRegistry, logger),
		stores:   NewStoreRegistry(cfg, prompter, logger),
		prompter: prompter,
		logger:   logger,
	}
}

// CheckInventory pings the inventory service and fails when any canonical
// unit, or any location a registered store's categories map to, is missing
// from it. Ids are cached after the first check.
func (a *App) CheckInventory(ctx context.Context) error {
	if _, err := a.grocy.GetAllQuantityUnits(ctx); err != nil {
		return err
	}
	if err := a.units.Verify(ctx); err != nil {
		return err
	}
	for _, code := range a.stores.List() {
		m, err := mapper.New(code, a.lookups, a.calc, a.logger)
		if err != nil {
			return err
		}
		if err := m.VerifyLocations(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stores returns the store registry.
func (a *App) Stores() *registry.Registry {
	return a.stores
}

// StockMode derives the stock mode from the import settings.
func StockMode(c config.ImportConfig) importer.StockMode {
	switch {
	case c.Stock:
		return importer.StockAlways
	case c.NonInteractive:
		return importer.StockNever
	}
	return importer.StockAsk
}

// Importer creates an importer for the store with the given code.
func (a *App) Importer(code store.Code) (*importer.Importer, error) {
	s, err := a.stores.Get(code)
	if err != nil {
		return nil, err
	}
	m, err := mapper.New(code, a.lookups, a.calc, a.logger)
	if err != nil {
		return nil, err
	}
	return importer.New(s, a.grocy, m, a.prompter, a.logger, importer.Options{Stock: StockMode(a.cfg.Import)})
}

// NewStoreRegistry registers every store that has a client. Missing tokens
// only fail commands that use that store.
func NewStoreRegistry(cfg *config.Config, prompter prompt.Prompter, logger zerolog.Logger) *registry.Registry {
	r := registry.NewRegistry()
	fs := cfg.Stores.Foodstuffs
	foodstuffsFactory := func(code store.Code, baseURL, token string) registry.Factory {
		return func() (store.Store, error) {
			return foodstuffs.New(foodstuffs.Options{
				Code:      code,
				BaseURL:   baseURL,
				Token:     token,
				StoreID:   fs.StoreID,
				RateLimit: cfg.RateLimit,
			}, prompter, logger)
		}
	}
	r.RegisterFactory(store.CodePaknsave, foodstuffsFactory(store.CodePaknsave, fs.PaknsaveURL, fs.PaknsaveToken))
	r.RegisterFactory(store.CodeNewWorld, foodstuffsFactory(store.CodeNewWorld, fs.NewWorldURL, fs.NewWorldToken))
	return r
}
