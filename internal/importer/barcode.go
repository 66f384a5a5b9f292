package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/matching"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// SourceBarcode labels barcode runs in reports and metrics.
const SourceBarcode store.Source = "barcode"

// ErrInvalidBarcode is returned for barcodes that fail normalisation.
var ErrInvalidBarcode = errors.New("invalid barcode")

// ImportBarcodes looks each scanned barcode up in the store, imports the
// chosen product if needed and attaches the barcode to it.
func (im *Importer) ImportBarcodes(ctx context.Context, barcodes []string) (run *report.Run, err error) {
	started := time.Now()
	ctx, span, s, err := im.start(ctx, SourceBarcode, store.PreferEach)
	defer func() { im.finish(span, s, started, err) }()
	run = s.run
	if err != nil {
		return run, err
	}

	for _, raw := range barcodes {
		if err := im.importBarcode(ctx, s, raw); err != nil {
			if err := im.handleItemError(ctx, s, report.Item{Name: raw}, err); err != nil {
				return run, err
			}
		}
	}
	return run, nil
}

func (im *Importer) importBarcode(ctx context.Context, s *session, raw string) error {
	barcode := matching.NormalizeBarcode(raw)
	if barcode == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBarcode, raw)
	}

	found, err := im.store.SearchAndSelect(ctx, barcode)
	if err != nil {
		return fmt.Errorf("search %s: %w", barcode, err)
	}
	if found == nil {
		im.record(s, report.Item{Name: barcode, Status: report.StatusSkipped})
		return nil
	}

	status := report.StatusExisting
	product, ok := s.index.FindByStoreProductID(found.ProductID)
	if !ok {
		product, err = im.importProduct(ctx, s, *found, nil, "")
		if err != nil {
			return err
		}
		status = report.StatusCreated
	}

	if err := im.inventory.CreateProductBarcode(ctx, grocy.ProductBarcode{ProductID: product.ID, Barcode: barcode}); err != nil {
		return fmt.Errorf("attach barcode %s to %s: %w", barcode, product.Name, err)
	}
	s.logger.Info().Str("barcode", barcode).Str("name", product.Name).Msg("Attached barcode")
	im.record(s, report.Item{
		StoreProductID: found.ProductID,
		Name:           product.Name,
		Status:         status,
		InventoryID:    int(product.ID),
	})
	return nil
}
