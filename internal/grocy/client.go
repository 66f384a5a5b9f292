package grocy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	httpclient "github.com/finn-wa/grocy-trolley-sub000/internal/http"
	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/rs/zerolog"
)

// Client talks to the inventory service REST API.
type Client struct {
	api    *httpclient.Client
	logger zerolog.Logger
}

// NewClient creates a client for the API at baseURL (e.g. https://grocy.local/api).
func NewClient(baseURL, apiKey string, rl ratelimit.Config, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "grocy").Logger()
	return &Client{
		api: httpclient.NewClient(baseURL, rl,
			httpclient.WithHeader("GROCY-API-KEY", apiKey),
			httpclient.WithLogger(logger),
		),
		logger: logger,
	}
}

// GetAllProducts returns every product including userfields.
func (c *Client) GetAllProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.api.GetJSON(ctx, "/objects/products", nil, &products); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a product, writes its userfields and creates its
// quantity unit conversions. When a follow-up write fails the id of the
// already created product is returned with the error.
func (c *Client) CreateProduct(ctx context.Context, req NewProductRequest) (ID, error) {
	var created createdObject
	if err := c.api.SendJSON(ctx, http.MethodPost, c.api.URL("/objects/products", nil), req.Product, &created); err != nil {
		return 0, fmt.Errorf("create product %q: %w", req.Product.Name, err)
	}
	id := created.CreatedObjectID
	c.logger.Info().Str("product", req.Product.Name).Int("id", int(id)).Msg("Created product")

	if req.Product.Userfields != (Userfields{}) {
		if err := c.putUserfields(ctx, id, req.Product.Userfields); err != nil {
			return id, err
		}
	}

	for _, conv := range req.Conversions {
		conv.ProductID = id
		if _, err := c.CreateQuantityUnitConversion(ctx, conv); err != nil {
			return id, err
		}
	}
	return id, nil
}

// PatchProduct updates the non-nil fields of patch.
func (c *Client) PatchProduct(ctx context.Context, id ID, patch ProductPatch) error {
	if patch.ParentProductID != nil {
		body := map[string]any{"parent_product_id": *patch.ParentProductID}
		if *patch.ParentProductID == 0 {
			body["parent_product_id"] = nil
		}
		if err := c.api.SendJSON(ctx, http.MethodPut, c.api.URL("/objects/products/"+id.String(), nil), body, nil); err != nil {
			return fmt.Errorf("patch product %d: %w", id, err)
		}
	}
	if patch.Userfields != nil {
		if err := c.putUserfields(ctx, id, *patch.Userfields); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) putUserfields(ctx context.Context, id ID, uf Userfields) error {
	if err := c.api.SendJSON(ctx, http.MethodPut, c.api.URL("/userfields/products/"+id.String(), nil), uf, nil); err != nil {
		return fmt.Errorf("update userfields of product %d: %w", id, err)
	}
	return nil
}

// CreateQuantityUnitConversion creates a conversion. It returns a nil id
// when an identical conversion already exists.
func (c *Client) CreateQuantityUnitConversion(ctx context.Context, conv QuantityUnitConversion) (*ID, error) {
	var created createdObject
	err := c.api.SendJSON(ctx, http.MethodPost, c.api.URL("/objects/quantity_unit_conversions", nil), conv, &created)
	if isAlreadyExists(err) {
		c.logger.Debug().
			Int("product", int(conv.ProductID)).
			Int("from", int(conv.FromQuID)).
			Int("to", int(conv.ToQuID)).
			Msg("Quantity unit conversion already exists")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create quantity unit conversion: %w", err)
	}
	return &created.CreatedObjectID, nil
}

// AddStock books stock for a product.
func (c *Client) AddStock(ctx context.Context, id ID, req StockAddRequest) ([]StockLogEntry, error) {
	var entries []StockLogEntry
	url := c.api.URL("/stock/products/"+id.String()+"/add", nil)
	if err := c.api.SendJSON(ctx, http.MethodPost, url, req, &entries); err != nil {
		return nil, fmt.Errorf("add stock for product %d: %w", id, err)
	}
	return entries, nil
}

// CreateProductBarcode attaches a barcode to a product. Existing barcodes are
// not an error.
func (c *Client) CreateProductBarcode(ctx context.Context, barcode ProductBarcode) error {
	err := c.api.SendJSON(ctx, http.MethodPost, c.api.URL("/objects/product_barcodes", nil), barcode, nil)
	if isAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create barcode %s: %w", barcode.Barcode, err)
	}
	return nil
}

// GetAllQuantityUnits returns every configured quantity unit.
func (c *Client) GetAllQuantityUnits(ctx context.Context) ([]QuantityUnit, error) {
	var qus []QuantityUnit
	if err := c.api.GetJSON(ctx, "/objects/quantity_units", nil, &qus); err != nil {
		return nil, fmt.Errorf("get quantity units: %w", err)
	}
	return qus, nil
}

// GetShoppingList returns the items of one shopping list.
func (c *Client) GetShoppingList(ctx context.Context, listID ID) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	if err := c.api.GetJSON(ctx, "/objects/shopping_list", nil, &items); err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	filtered := items[:0]
	for _, item := range items {
		if item.ShoppingListID == listID {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (c *Client) getNamed(ctx context.Context, entity string) ([]NamedObject, error) {
	var objs []NamedObject
	if err := c.api.GetJSON(ctx, "/objects/"+entity, nil, &objs); err != nil {
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return objs, nil
}

func (c *Client) createNamed(ctx context.Context, entity, name string) (ID, error) {
	var created createdObject
	body := NamedObject{Name: name, Description: "Created by grocy-trolley"}
	if err := c.api.SendJSON(ctx, http.MethodPost, c.api.URL("/objects/"+entity, nil), body, &created); err != nil {
		return 0, fmt.Errorf("create %s %q: %w", entity, name, err)
	}
	return created.CreatedObjectID, nil
}

func isAlreadyExists(err error) bool {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(statusErr.Body)
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "already exists")
}
