package importer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/parent"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// SourceExport labels list exports in reports and metrics.
const SourceExport store.Source = "export"

// ExportList copies an inventory shopping list onto a store list. Generic
// products are resolved to a variant first; a generic product without
// variants is searched for in the store and the pick imported as its child.
func (im *Importer) ExportList(ctx context.Context, listID grocy.ID, storeListID string) (run *report.Run, err error) {
	started := time.Now()
	ctx, span, s, err := im.start(ctx, SourceExport, store.PreferEach)
	defer func() { im.finish(span, s, started, err) }()
	run = s.run
	if err != nil {
		return run, err
	}

	writer, ok := im.store.(store.ListWriter)
	if !ok {
		return run, fmt.Errorf("store %s does not support lists", im.store.Code())
	}

	items, err := im.inventory.GetShoppingList(ctx, listID)
	if err != nil {
		return run, fmt.Errorf("load shopping list %d: %w", listID, err)
	}

	byID := make(map[grocy.ID]grocy.Product, len(s.inventory))
	for _, p := range s.inventory {
		byID[p.ID] = p
	}
	parents := make(map[grocy.ID]*parent.Parent, len(s.parents))
	for _, par := range s.parents {
		parents[par.Product.ID] = par
	}

	var lines []store.LineItem
	for _, item := range items {
		line, err := im.exportItem(ctx, s, item, byID, parents)
		if err != nil {
			if err := im.handleItemError(ctx, s, report.Item{Name: fmt.Sprintf("list item %d", item.ID)}, err); err != nil {
				return run, err
			}
			continue
		}
		if line != nil {
			lines = append(lines, *line)
		}
	}

	if len(lines) == 0 {
		s.logger.Info().Msg("Nothing to export")
		return run, nil
	}
	if err := writer.AddToList(ctx, storeListID, lines); err != nil {
		return run, fmt.Errorf("add %d items to store list: %w", len(lines), err)
	}
	s.logger.Info().Int("items", len(lines)).Str("list", storeListID).Msg("Exported shopping list")
	return run, nil
}

// exportItem returns nil when the item was skipped.
func (im *Importer) exportItem(ctx context.Context, s *session, item grocy.ShoppingListItem, byID map[grocy.ID]grocy.Product, parents map[grocy.ID]*parent.Parent) (*store.LineItem, error) {
	product, ok := byID[item.ProductID]
	if !ok {
		im.record(s, report.Item{Name: fmt.Sprintf("product %d", item.ProductID), Status: report.StatusSkipped, Error: "not in inventory"})
		return nil, nil
	}

	status := report.StatusExported
	if par, ok := parents[product.ID]; ok {
		variant, created, err := im.resolveVariant(ctx, s, par)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			im.record(s, report.Item{Name: product.Name, Status: report.StatusSkipped, InventoryID: int(product.ID)})
			return nil, nil
		}
		product = *variant
		if created {
			status = report.StatusCreated
		}
	}

	md, err := product.Metadata()
	if err != nil {
		return nil, err
	}
	entry, ok := md[im.store.Code()]
	if !ok || entry == nil || entry.Product == nil {
		im.record(s, report.Item{Name: product.Name, Status: report.StatusSkipped, InventoryID: int(product.ID), Error: "no store product"})
		return nil, nil
	}

	saleType := entry.SaleType
	if saleType == "" || saleType == store.SaleTypeBoth {
		saleType, err = entry.Product.EffectiveSaleType(s.policy)
		if err != nil {
			return nil, err
		}
	}
	line := store.LineItem{
		ProductID: entry.Product.ProductID,
		Quantity:  purchaseQuantity(float64(item.Amount), product.Factor(), saleType),
		SaleType:  saleType,
	}
	im.record(s, report.Item{
		StoreProductID: line.ProductID,
		Name:           product.Name,
		Status:         status,
		InventoryID:    int(product.ID),
	})
	return &line, nil
}

// resolveVariant picks a child of par, or searches the store and imports the
// pick as a child when par has none. created reports an import.
func (im *Importer) resolveVariant(ctx context.Context, s *session, par *parent.Parent) (variant *grocy.Product, created bool, err error) {
	if len(par.Children) > 0 {
		child, err := im.resolver.ChooseChild(ctx, par)
		return child, false, err
	}

	found, err := im.store.SearchAndSelect(ctx, strings.Join(par.Tokens, " "))
	if err != nil || found == nil {
		return nil, false, err
	}
	if existing, ok := s.index.FindByStoreProductID(found.ProductID); ok {
		return &existing, false, nil
	}
	child, err := im.importProduct(ctx, s, *found, par, "")
	if err != nil {
		return nil, false, err
	}
	par.Children = append(par.Children, child)
	return &child, true, nil
}

// purchaseQuantity converts a list amount in stock units to store purchase
// units. Unit sales are rounded up to whole units.
func purchaseQuantity(amount, factor float64, saleType store.SaleType) float64 {
	if amount <= 0 {
		amount = 1
	}
	q := amount / factor
	if saleType.IsWeight() {
		return q
	}
	return math.Max(1, math.Ceil(q))
}
