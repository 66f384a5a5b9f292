// Package importer drives imports from a store surface into the inventory
// service: snapshot, dedup, parent resolution, product creation and stock
// posting, one item at a time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/mapper"
	"github.com/finn-wa/grocy-trolley-sub000/internal/metrics"
	"github.com/finn-wa/grocy-trolley-sub000/internal/parent"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/finn-wa/grocy-trolley-sub000/internal/reconcile"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/stock"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/finn-wa/grocy-trolley-sub000/internal/telemetry"
	"github.com/finn-wa/grocy-trolley-sub000/internal/units"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error continuation choices.
const (
	ChoiceSkip      = "Skip and continue"
	ChoiceIgnoreAll = "Skip and ignore further errors"
)

// Inventory is the inventory-service collaborator.
type Inventory interface {
	GetAllProducts(ctx context.Context) ([]grocy.Product, error)
	CreateProduct(ctx context.Context, req grocy.NewProductRequest) (grocy.ID, error)
	PatchProduct(ctx context.Context, id grocy.ID, patch grocy.ProductPatch) error
	AddStock(ctx context.Context, id grocy.ID, req grocy.StockAddRequest) ([]grocy.StockLogEntry, error)
	CreateProductBarcode(ctx context.Context, barcode grocy.ProductBarcode) error
	GetShoppingList(ctx context.Context, listID grocy.ID) ([]grocy.ShoppingListItem, error)
}

// StockMode decides whether imported products get stock posted.
type StockMode int

const (
	// StockAsk asks the operator once per run.
	StockAsk StockMode = iota
	StockAlways
	StockNever
)

// Options tune an Importer.
type Options struct {
	Stock StockMode
}

// Importer runs imports for one store.
type Importer struct {
	store     store.Store
	inventory Inventory
	mapper    *mapper.Mapper
	resolver  *parent.Resolver
	prompter  prompt.Prompter
	metrics   *metrics.Recorder
	tracer    trace.Tracer
	logger    zerolog.Logger
	opts      Options
}

// New creates an importer. The mapper must convert for the same store.
func New(s store.Store, inv Inventory, m *mapper.Mapper, prompter prompt.Prompter, logger zerolog.Logger, opts Options) (*Importer, error) {
	if m.Code() != s.Code() {
		return nil, fmt.Errorf("mapper for %s cannot import from %s", m.Code(), s.Code())
	}
	logger = logger.With().Str("component", "importer").Str("store", string(s.Code())).Logger()
	return &Importer{
		store:     s,
		inventory: inv,
		mapper:    m,
		resolver:  parent.NewResolver(prompter, logger),
		prompter:  prompter,
		metrics:   metrics.NewRecorder(),
		tracer:    telemetry.Tracer(),
		logger:    logger,
		opts:      opts,
	}, nil
}

// IsFatal reports whether err must abort the whole run. Configuration errors
// affect every later item of the same kind.
func IsFatal(err error) bool {
	return errors.Is(err, mapper.ErrUnmappedCategory) ||
		errors.Is(err, units.ErrMissingUnit) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// session is the state of one run.
type session struct {
	run          *report.Run
	source       store.Source
	policy       store.SaleTypePolicy
	inventory    []grocy.Product
	index        *reconcile.Index
	parents      []*parent.Parent
	ignoreErrors bool
	logger       zerolog.Logger
}

// pending is a product to post stock for.
type pending struct {
	product  grocy.Product
	override *store.Product
	item     *report.Item
}

func (im *Importer) start(ctx context.Context, source store.Source, policy store.SaleTypePolicy) (context.Context, trace.Span, *session, error) {
	id := uuid.NewString()
	ctx, span := im.tracer.Start(ctx, "import."+string(source), trace.WithAttributes(
		attribute.String("run.id", id),
		attribute.String("store", string(im.store.Code())),
		attribute.String("sale_type_policy", policy.String()),
	))

	s := &session{
		run:    report.NewRun(id, string(im.store.Code()), string(source)),
		source: source,
		policy: policy,
		logger: im.logger.With().Str("run", id).Str("source", string(source)).Logger(),
	}

	inventory, err := im.inventory.GetAllProducts(ctx)
	if err != nil {
		return ctx, span, s, fmt.Errorf("load inventory products: %w", err)
	}
	s.inventory = inventory
	s.index = reconcile.NewIndex(im.store.Code(), inventory, s.logger)
	s.parents = parent.Index(inventory)
	s.logger.Info().
		Int("inventory", len(inventory)).
		Int("parents", len(s.parents)).
		Int("undecoded", s.index.Undecoded()).
		Msg("Starting import")
	return ctx, span, s, nil
}

func (im *Importer) finish(span trace.Span, s *session, started time.Time, err error) {
	s.run.Finish(err)
	im.metrics.RecordRun(string(im.store.Code()), string(s.source), time.Since(started), err != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Msg("Import aborted")
	} else {
		s.logger.Info().
			Int("created", s.run.Count(report.StatusCreated)).
			Int("existing", s.run.Count(report.StatusExisting)).
			Int("skipped", s.run.Count(report.StatusSkipped)).
			Int("failed", s.run.Count(report.StatusFailed)).
			Int("stocked", s.run.Stocked()).
			Msg("Import finished")
	}
	span.End()
}

func (im *Importer) record(s *session, item report.Item) *report.Item {
	outcome := metrics.OutcomeSkipped
	switch item.Status {
	case report.StatusCreated, report.StatusLinked:
		outcome = metrics.OutcomeCreated
	case report.StatusExisting, report.StatusExported:
		outcome = metrics.OutcomeExisting
	case report.StatusFailed:
		outcome = metrics.OutcomeFailed
	}
	im.metrics.RecordItem(string(im.store.Code()), string(s.source), outcome)
	return s.run.Add(item)
}

// IncompleteProductError is returned when a product was created but a
// follow-up write (userfields or unit conversions) failed.
type IncompleteProductError struct {
	ID   grocy.ID
	Name string
	Err  error
}

func (e *IncompleteProductError) Error() string {
	return fmt.Sprintf("product %d %q created incompletely: %v", e.ID, e.Name, e.Err)
}

func (e *IncompleteProductError) Unwrap() error { return e.Err }

// handleItemError applies the per-item error policy. It returns a non-nil
// error when the run must stop.
func (im *Importer) handleItemError(ctx context.Context, s *session, item report.Item, err error) error {
	if IsFatal(err) {
		return err
	}
	item.Status = report.StatusFailed
	item.Error = err.Error()
	var incomplete *IncompleteProductError
	if errors.As(err, &incomplete) {
		item.InventoryID = int(incomplete.ID)
	}
	im.record(s, item)
	s.logger.Error().Err(err).Str("product", item.StoreProductID).Str("name", item.Name).Msg("Failed to import product")

	if s.ignoreErrors {
		return nil
	}
	choice, ok, perr := im.prompter.Select(ctx, fmt.Sprintf("Failed to import %s: %v", item.Name, err), []string{ChoiceSkip, ChoiceIgnoreAll})
	if perr != nil {
		return fmt.Errorf("error prompt: %w", perr)
	}
	if ok && choice == 1 {
		s.ignoreErrors = true
	}
	return nil
}

// importProduct creates an inventory product for p. A non-nil par forces the
// parent; otherwise one is resolved from the product group. receiptName is
// stored in the metadata when set.
func (im *Importer) importProduct(ctx context.Context, s *session, p store.Product, par *parent.Parent, receiptName string) (grocy.Product, error) {
	saleType, err := p.EffectiveSaleType(s.policy)
	if err != nil {
		return grocy.Product{}, err
	}

	if par == nil {
		groupID, err := im.mapper.ProductGroupID(ctx, p.CategoryName)
		if err != nil {
			return grocy.Product{}, err
		}
		par = parent.ResolveParent(p.Name, groupID, s.parents)
	}

	req, err := im.mapper.ToNewProduct(ctx, p, saleType, par)
	if err != nil {
		return grocy.Product{}, err
	}
	if receiptName != "" {
		if err := addReceiptName(&req.Product.Userfields, im.store.Code(), receiptName); err != nil {
			return grocy.Product{}, err
		}
	}

	id, err := im.inventory.CreateProduct(ctx, *req)
	if err != nil && id != 0 {
		// The product exists but may lack its store metadata, so later runs
		// would not recognise it.
		s.logger.Error().Err(err).
			Str("product", p.ProductID).
			Str("name", req.Product.Name).
			Int("id", int(id)).
			Msg("Product created incompletely, fix or delete it in the inventory")
		s.index.Add(productFromRequest(id, req.Product))
		return grocy.Product{}, &IncompleteProductError{ID: id, Name: req.Product.Name, Err: err}
	}
	if err != nil {
		return grocy.Product{}, fmt.Errorf("create %s: %w", req.Product.Name, err)
	}

	created := productFromRequest(id, req.Product)
	s.index.Add(created)
	log := s.logger.Info().Str("product", p.ProductID).Str("name", created.Name).Int("id", int(id))
	if par != nil {
		log = log.Str("parent", par.Product.Name)
	}
	log.Msg("Created product")
	return created, nil
}

func productFromRequest(id grocy.ID, np grocy.NewProduct) grocy.Product {
	p := grocy.Product{
		ID:                      id,
		Name:                    np.Name,
		Description:             np.Description,
		LocationID:              np.LocationID,
		ShoppingLocationID:      np.ShoppingLocationID,
		ProductGroupID:          np.ProductGroupID,
		QuIDPurchase:            np.QuIDPurchase,
		QuIDStock:               np.QuIDStock,
		QuFactorPurchaseToStock: grocy.Number(np.QuFactorPurchaseToStock),
		Userfields:              np.Userfields,
	}
	if np.ParentProductID != nil {
		p.ParentProductID = *np.ParentProductID
	}
	return p
}

func addReceiptName(uf *grocy.Userfields, code store.Code, name string) error {
	md, err := grocy.DecodeStoreMetadata(uf.StoreMetadata)
	if err != nil {
		return err
	}
	if !md.Entry(code).AddReceiptName(name) {
		return nil
	}
	raw, err := md.Encode()
	if err != nil {
		return err
	}
	uf.StoreMetadata = raw
	return nil
}

// importProducts runs the shared pipeline over store products and returns
// the products to post stock for, in store order.
func (im *Importer) importProducts(ctx context.Context, s *session, products []store.Product) ([]pending, error) {
	part := s.index.Partition(products)
	s.logger.Info().Int("to_import", len(part.ToImport)).Int("already_imported", len(part.AlreadyImported)).Msg("Partitioned products")

	byStoreID := make(map[string]pending, len(products))
	for _, ai := range part.AlreadyImported {
		if _, dup := byStoreID[ai.Store.ProductID]; dup {
			continue
		}
		snapshot := ai.Store
		item := im.record(s, report.Item{
			StoreProductID: ai.Store.ProductID,
			Name:           ai.Inventory.Name,
			Status:         report.StatusExisting,
			InventoryID:    int(ai.Inventory.ID),
		})
		byStoreID[ai.Store.ProductID] = pending{product: ai.Inventory, override: &snapshot, item: item}
	}

	for _, p := range part.ToImport {
		created, err := im.importProduct(ctx, s, p, nil, "")
		if err != nil {
			if err := im.handleItemError(ctx, s, report.Item{StoreProductID: p.ProductID, Name: p.Name}, err); err != nil {
				return nil, err
			}
			continue
		}
		item := im.record(s, report.Item{
			StoreProductID: p.ProductID,
			Name:           created.Name,
			Status:         report.StatusCreated,
			InventoryID:    int(created.ID),
		})
		byStoreID[p.ProductID] = pending{product: created, item: item}
	}

	out := make([]pending, 0, len(byStoreID))
	seen := make(map[string]bool)
	for _, p := range products {
		if pd, ok := byStoreID[p.ProductID]; ok && !seen[p.ProductID] {
			seen[p.ProductID] = true
			out = append(out, pd)
		}
	}
	return out, nil
}

// shouldStock applies the stock mode. A cancelled confirmation is a no.
func (im *Importer) shouldStock(ctx context.Context, n int) (bool, error) {
	if n == 0 {
		return false, nil
	}
	switch im.opts.Stock {
	case StockAlways:
		return true, nil
	case StockNever:
		return false, nil
	}
	return im.prompter.Confirm(ctx, fmt.Sprintf("Stock %d products?", n))
}

// postStock posts stock for every pending product. Failures only affect the
// one posting.
func (im *Importer) postStock(ctx context.Context, s *session, items []pending) error {
	for _, pd := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := stock.ToStockRequest(pd.product, im.store.Code(), pd.override, stock.Options{Policy: s.policy})
		if err == nil {
			_, err = im.inventory.AddStock(ctx, pd.product.ID, req)
		}
		if err != nil {
			im.metrics.RecordStock(string(im.store.Code()), 0, false)
			s.logger.Error().Err(err).Str("name", pd.product.Name).Msg("Failed to post stock")
			if pd.item != nil {
				pd.item.StockError = err.Error()
			}
			continue
		}
		im.metrics.RecordStock(string(im.store.Code()), req.Amount*req.Price, true)
		if pd.item != nil {
			pd.item.Stocked = true
			pd.item.StockAmount = req.Amount
			pd.item.StockPrice = req.Price
		}
		s.logger.Debug().Str("name", pd.product.Name).Float64("amount", req.Amount).Float64("price", req.Price).Msg("Posted stock")
	}
	return nil
}

func (im *Importer) maybeStock(ctx context.Context, s *session, items []pending) error {
	ok, err := im.shouldStock(ctx, len(items))
	if err != nil {
		return fmt.Errorf("stock prompt: %w", err)
	}
	if !ok {
		return nil
	}
	return im.postStock(ctx, s, items)
}
