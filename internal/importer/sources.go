package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/reconcile"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// Store products sold both ways are bought by weight from the cart and from
// orders, and by unit from lists and receipts.
var policies = map[store.Source]store.SaleTypePolicy{
	store.SourceCart:  store.PreferWeight,
	store.SourceOrder: store.PreferWeight,
	store.SourceList:  store.PreferEach,
}

// PolicyFor returns the sale type policy used for a surface.
func PolicyFor(source store.Source) store.SaleTypePolicy {
	return policies[source]
}

// ImportCart imports the products in the store trolley and optionally posts
// stock for them.
func (im *Importer) ImportCart(ctx context.Context) (*report.Run, error) {
	return im.importSnapshot(ctx, store.SnapshotRequest{Source: store.SourceCart}, true)
}

// ImportList imports the products on a saved store list. Lists are not
// purchases, so no stock is posted.
func (im *Importer) ImportList(ctx context.Context, listID string) (*report.Run, error) {
	return im.importSnapshot(ctx, store.SnapshotRequest{Source: store.SourceList, ID: listID}, false)
}

// ImportOrder imports the products of a placed order and optionally posts
// stock for them.
func (im *Importer) ImportOrder(ctx context.Context, orderID string) (*report.Run, error) {
	return im.importSnapshot(ctx, store.SnapshotRequest{Source: store.SourceOrder, ID: orderID}, true)
}

func (im *Importer) importSnapshot(ctx context.Context, req store.SnapshotRequest, withStock bool) (run *report.Run, err error) {
	started := time.Now()
	ctx, span, s, err := im.start(ctx, req.Source, PolicyFor(req.Source))
	defer func() { im.finish(span, s, started, err) }()
	run = s.run
	if err != nil {
		return run, err
	}

	snap, err := im.store.Snapshot(ctx, req)
	if err != nil {
		return run, fmt.Errorf("fetch %s: %w", req.Source, err)
	}
	if len(snap.Unavailable) > 0 {
		s.logger.Warn().Int("count", len(snap.Unavailable)).Msg("Skipping unavailable products")
		for _, item := range snap.Unavailable {
			p := item.Base()
			im.record(s, report.Item{StoreProductID: p.ProductID, Name: p.Name, Status: report.StatusSkipped, Error: "unavailable"})
		}
	}
	products := snap.Products()
	im.metrics.RecordSnapshot(string(im.store.Code()), string(req.Source), len(products))

	stockable, err := im.importProducts(ctx, s, products)
	if err != nil {
		return run, err
	}
	if withStock {
		if err := im.maybeStock(ctx, s, stockable); err != nil {
			return run, err
		}
	}
	return run, nil
}

// StockCart posts stock for cart products that are already in the
// inventory, priced from the current cart. Nothing is created.
func (im *Importer) StockCart(ctx context.Context) (run *report.Run, err error) {
	started := time.Now()
	ctx, span, s, err := im.start(ctx, store.SourceCart, PolicyFor(store.SourceCart))
	defer func() { im.finish(span, s, started, err) }()
	run = s.run
	if err != nil {
		return run, err
	}

	snap, err := im.store.Snapshot(ctx, store.SnapshotRequest{Source: store.SourceCart})
	if err != nil {
		return run, fmt.Errorf("fetch cart: %w", err)
	}
	part := s.index.Partition(snap.Products())
	for _, p := range part.ToImport {
		im.record(s, report.Item{StoreProductID: p.ProductID, Name: p.Name, Status: report.StatusSkipped, Error: "not imported"})
	}

	items := make([]pending, 0, len(part.AlreadyImported))
	for _, ai := range part.AlreadyImported {
		snapshot := ai.Store
		item := im.record(s, report.Item{
			StoreProductID: ai.Store.ProductID,
			Name:           ai.Inventory.Name,
			Status:         report.StatusExisting,
			InventoryID:    int(ai.Inventory.ID),
		})
		items = append(items, pending{product: ai.Inventory, override: &snapshot, item: item})
	}
	return run, im.postStock(ctx, s, items)
}

// Pending partitions a store surface without changing anything.
func (im *Importer) Pending(ctx context.Context, req store.SnapshotRequest) (reconcile.Result, error) {
	inventory, err := im.inventory.GetAllProducts(ctx)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("load inventory products: %w", err)
	}
	snap, err := im.store.Snapshot(ctx, req)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("fetch %s: %w", req.Source, err)
	}
	return reconcile.Partition(im.store.Code(), snap.Products(), inventory, im.logger), nil
}
