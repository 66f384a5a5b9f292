// Package foodstuffs talks to the PAK'nSAVE and New World web API. Requests
// carry a bearer token taken from an already authenticated browser session.
package foodstuffs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	httpclient "github.com/finn-wa/grocy-trolley-sub000/internal/http"
	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/rs/zerolog"
)

const (
	cartPath    = "CommonApi/Cart/Index"
	listPath    = "CommonApi/ShoppingList/GetList"
	addListPath = "CommonApi/ShoppingList/AddProducts"
	orderPath   = "CommonApi/Order/GetOrderDetails"
	searchPath  = "CommonApi/Search/SearchProducts"

	// maxSearchChoices caps how many results are offered in a prompt.
	maxSearchChoices = 10
)

// NoneChoice is appended to search result prompts.
const NoneChoice = "None of these"

// Client is a Foodstuffs store. It implements store.Store and
// store.ListWriter.
type Client struct {
	code     store.Code
	api      *httpclient.Client
	prompter prompt.Prompter
	logger   zerolog.Logger
}

// Options configures a Client.
type Options struct {
	Code    store.Code
	BaseURL string
	Token   string
	// StoreID selects the physical store prices are read from.
	StoreID   string
	RateLimit ratelimit.Config
}

// New creates a client for one Foodstuffs banner.
func New(opts Options, prompter prompt.Prompter, logger zerolog.Logger) (*Client, error) {
	switch opts.Code {
	case store.CodePaknsave, store.CodeNewWorld:
	default:
		return nil, fmt.Errorf("%s is not a Foodstuffs store", opts.Code)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("no token configured for %s", opts.Code.DisplayName())
	}

	logger = logger.With().Str("component", "foodstuffs").Str("store", string(opts.Code)).Logger()
	httpOpts := []httpclient.Option{
		httpclient.WithHeader("Authorization", "Bearer "+opts.Token),
		httpclient.WithLogger(logger),
	}
	if opts.StoreID != "" {
		httpOpts = append(httpOpts, httpclient.WithHeader("X-Store-Id", opts.StoreID))
	}

	return &Client{
		code:     opts.Code,
		api:      httpclient.NewClient(opts.BaseURL, opts.RateLimit, httpOpts...),
		prompter: prompter,
		logger:   logger,
	}, nil
}

func (c *Client) Code() store.Code {
	return c.code
}

type cartResponse struct {
	Products            []store.CartProduct `json:"products"`
	UnavailableProducts []store.CartProduct `json:"unavailableProducts"`
}

type listResponse struct {
	Products []store.ListProduct `json:"products"`
}

type orderResponse struct {
	Products            []store.OrderProduct `json:"products"`
	UnavailableProducts []store.OrderProduct `json:"unavailableProducts"`
}

type searchResponse struct {
	Products []store.Product `json:"products"`
}

// Snapshot fetches the cart, a saved list or a placed order.
func (c *Client) Snapshot(ctx context.Context, req store.SnapshotRequest) (*store.Snapshot, error) {
	snap := &store.Snapshot{Source: req.Source}

	switch req.Source {
	case store.SourceCart:
		var resp cartResponse
		if err := c.api.GetJSON(ctx, cartPath, nil, &resp); err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		snap.Items = items(resp.Products)
		snap.Unavailable = items(resp.UnavailableProducts)

	case store.SourceList:
		if req.ID == "" {
			return nil, fmt.Errorf("list id is required")
		}
		var resp listResponse
		if err := c.api.GetJSON(ctx, listPath, url.Values{"id": {req.ID}}, &resp); err != nil {
			return nil, fmt.Errorf("get list %s: %w", req.ID, err)
		}
		for _, p := range resp.Products {
			if p.Ranged {
				snap.Items = append(snap.Items, p)
			} else {
				snap.Unavailable = append(snap.Unavailable, p)
			}
		}

	case store.SourceOrder:
		if req.ID == "" {
			return nil, fmt.Errorf("order id is required")
		}
		var resp orderResponse
		if err := c.api.GetJSON(ctx, orderPath, url.Values{"id": {req.ID}}, &resp); err != nil {
			return nil, fmt.Errorf("get order %s: %w", req.ID, err)
		}
		snap.Items = items(resp.Products)
		snap.Unavailable = items(resp.UnavailableProducts)

	default:
		return nil, fmt.Errorf("unknown source %q", req.Source)
	}

	c.logger.Debug().
		Str("source", string(req.Source)).
		Int("products", len(snap.Items)).
		Int("unavailable", len(snap.Unavailable)).
		Msg("Fetched snapshot")
	return snap, nil
}

func items[T store.Item](products []T) []store.Item {
	out := make([]store.Item, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	return out
}

// Search returns store products matching query.
func (c *Client) Search(ctx context.Context, query string) ([]store.Product, error) {
	var resp searchResponse
	if err := c.api.GetJSON(ctx, searchPath, url.Values{"q": {query}}, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return resp.Products, nil
}

// SearchAndSelect searches the store and asks the operator to pick a result.
func (c *Client) SearchAndSelect(ctx context.Context, query string) (*store.Product, error) {
	results, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		c.logger.Info().Str("query", query).Msg("No search results")
		return nil, nil
	}
	if len(results) > maxSearchChoices {
		results = results[:maxSearchChoices]
	}

	choices := make([]string, 0, len(results)+1)
	for _, p := range results {
		choices = append(choices, describe(p))
	}
	choices = append(choices, NoneChoice)

	idx, ok, err := c.prompter.Select(ctx, fmt.Sprintf("Results for %q at %s", query, c.code.DisplayName()), choices)
	if err != nil {
		return nil, err
	}
	if !ok || idx >= len(results) {
		return nil, nil
	}
	p := results[idx]
	return &p, nil
}

func describe(p store.Product) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Brand, p.Name, p.DisplayQuantity} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, fmt.Sprintf("$%d.%02d", p.Price/100, p.Price%100))
	return strings.Join(parts, " ")
}

type addProductsRequest struct {
	ListID   string           `json:"listId"`
	Products []store.LineItem `json:"products"`
}

// AddToList adds line items to a saved store list.
func (c *Client) AddToList(ctx context.Context, listID string, lineItems []store.LineItem) error {
	if len(lineItems) == 0 {
		return nil
	}
	req := addProductsRequest{ListID: listID, Products: lineItems}
	if err := c.api.SendJSON(ctx, http.MethodPost, c.api.URL(addListPath, nil), req, nil); err != nil {
		return fmt.Errorf("add %d products to list %s: %w", len(lineItems), listID, err)
	}
	return nil
}
