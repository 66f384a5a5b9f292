package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/parsers/csv"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// SourceReceipt labels receipt runs in reports and metrics.
const SourceReceipt store.Source = "receipt"

// ReceiptLine is one itemised receipt line.
type ReceiptLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	// Price is the line total in cents.
	Price int `json:"price"`
}

// ReadReceipt decodes receipt lines from either a JSON array or a CSV file
// with a header row. Lines without a name are dropped.
func ReadReceipt(r io.Reader) ([]ReceiptLine, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var lines []ReceiptLine
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
	} else {
		rows, err := csv.ParseReceipt(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		for _, row := range rows {
			lines = append(lines, ReceiptLine{Name: row.Name, Quantity: row.Quantity, Price: row.PriceCents})
		}
	}

	out := lines[:0]
	for _, l := range lines {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			continue
		}
		if l.Quantity <= 0 {
			l.Quantity = 1
		}
		out = append(out, l)
	}
	return out, nil
}

// ImportReceipt matches receipt lines to inventory products, importing
// products picked from a store search where no earlier match exists, and
// optionally posts stock at the receipt prices.
func (im *Importer) ImportReceipt(ctx context.Context, lines []ReceiptLine) (run *report.Run, err error) {
	started := time.Now()
	ctx, span, s, err := im.start(ctx, SourceReceipt, store.PreferEach)
	defer func() { im.finish(span, s, started, err) }()
	run = s.run
	if err != nil {
		return run, err
	}

	var stockable []pending
	for _, line := range lines {
		pd, err := im.importReceiptLine(ctx, s, line)
		if err != nil {
			if err := im.handleItemError(ctx, s, report.Item{Name: line.Name}, err); err != nil {
				return run, err
			}
			continue
		}
		if pd != nil {
			stockable = append(stockable, *pd)
		}
	}

	if err := im.maybeStock(ctx, s, stockable); err != nil {
		return run, err
	}
	return run, nil
}

// importReceiptLine returns nil when the operator skipped the line.
func (im *Importer) importReceiptLine(ctx context.Context, s *session, line ReceiptLine) (*pending, error) {
	if p, ok := s.index.FindByReceiptName(line.Name); ok {
		return im.receiptPending(s, p, line, report.StatusExisting)
	}

	found, err := im.store.SearchAndSelect(ctx, line.Name)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", line.Name, err)
	}
	if found == nil {
		im.record(s, report.Item{Name: line.Name, Status: report.StatusSkipped})
		return nil, nil
	}

	if p, ok := s.index.FindByStoreProductID(found.ProductID); ok {
		linked, err := im.linkReceiptName(ctx, s, p, line.Name)
		if err != nil {
			return nil, err
		}
		return im.receiptPending(s, linked, line, report.StatusLinked)
	}

	created, err := im.importProduct(ctx, s, *found, nil, line.Name)
	if err != nil {
		return nil, err
	}
	return im.receiptPending(s, created, line, report.StatusCreated)
}

// linkReceiptName stores a receipt name on an existing product.
func (im *Importer) linkReceiptName(ctx context.Context, s *session, p grocy.Product, name string) (grocy.Product, error) {
	uf := p.Userfields
	if err := addReceiptName(&uf, im.store.Code(), name); err != nil {
		return p, err
	}
	if uf == p.Userfields {
		return p, nil
	}
	if err := im.inventory.PatchProduct(ctx, p.ID, grocy.ProductPatch{Userfields: &uf}); err != nil {
		return p, fmt.Errorf("link receipt name to %s: %w", p.Name, err)
	}
	p.Userfields = uf
	s.index.Add(p)
	s.logger.Info().Str("name", p.Name).Str("receipt_name", name).Msg("Linked receipt name")
	return p, nil
}

func (im *Importer) receiptPending(s *session, p grocy.Product, line ReceiptLine, status report.Status) (*pending, error) {
	md, err := p.Metadata()
	if err != nil {
		return nil, err
	}
	entry, ok := md[im.store.Code()]
	if !ok || entry == nil || entry.Product == nil {
		item := im.record(s, report.Item{Name: line.Name, Status: status, InventoryID: int(p.ID)})
		return &pending{product: p, item: item}, nil
	}
	override := receiptOverride(*entry.Product, entry.SaleType, line)
	item := im.record(s, report.Item{
		StoreProductID: entry.Product.ProductID,
		Name:           p.Name,
		Status:         status,
		InventoryID:    int(p.ID),
	})
	return &pending{product: p, override: &override, item: item}, nil
}

// receiptOverride prices the stored snapshot from a receipt line. Weight
// sales keep the line total; unit sales are priced per unit.
func receiptOverride(snapshot store.Product, saleType store.SaleType, line ReceiptLine) store.Product {
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	snapshot.Quantity = line.Quantity
	if saleType == "" {
		saleType = snapshot.SaleType
	}
	if saleType.IsWeight() {
		snapshot.Price = line.Price
	} else {
		snapshot.Price = int(math.Round(float64(line.Price) / line.Quantity))
	}
	return snapshot
}
