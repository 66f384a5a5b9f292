// Package parent links imported products to generic parent products and
// picks concrete variants of a parent.
package parent

import (
	"context"
	"fmt"
	"strings"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/rs/zerolog"
)

const genericMarker = "(Generic)"

// SkipChoice is always offered when choosing a child.
const SkipChoice = "Skip"

// Parent is a generic product with its precomputed name tokens and the
// products linked to it.
type Parent struct {
	Product  grocy.Product
	Tokens   []string
	Children []grocy.Product
}

// Tokens splits a parent name into match tokens, dropping the generic marker.
func Tokens(name string) []string {
	return strings.Fields(strings.ReplaceAll(name, genericMarker, ""))
}

// Index builds the parents found in an inventory listing. Parents keep the
// order of the listing.
func Index(products []grocy.Product) []*Parent {
	var parents []*Parent
	byID := make(map[grocy.ID]*Parent)
	for _, p := range products {
		if !p.IsParent() {
			continue
		}
		parent := &Parent{Product: p, Tokens: Tokens(p.Name)}
		parents = append(parents, parent)
		byID[p.ID] = parent
	}
	for _, p := range products {
		if p.ParentProductID == 0 {
			continue
		}
		if parent, ok := byID[p.ParentProductID]; ok {
			parent.Children = append(parent.Children, p)
		}
	}
	return parents
}

// score counts the parent tokens found in name. Matching is case-sensitive.
func (p *Parent) score(name string) int {
	n := 0
	for _, t := range p.Tokens {
		if strings.Contains(name, t) {
			n++
		}
	}
	return n
}

// ResolveParent finds the parent for a product name within a product group.
// It returns nil when no parent matches. When several match, the one with
// the most matching tokens wins and ties go to the earliest.
func ResolveParent(name string, productGroupID grocy.ID, parents []*Parent) *Parent {
	var best *Parent
	bestScore := 0
	for _, p := range parents {
		if p.Product.ProductGroupID != productGroupID {
			continue
		}
		if s := p.score(name); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}

// Resolver asks the operator to pick a variant of a parent.
type Resolver struct {
	prompter prompt.Prompter
	logger   zerolog.Logger
}

// NewResolver creates a resolver that prompts through prompter.
func NewResolver(prompter prompt.Prompter, logger zerolog.Logger) *Resolver {
	return &Resolver{
		prompter: prompter,
		logger:   logger.With().Str("component", "parent").Logger(),
	}
}

// ChooseChild returns a child of p. A parent without children yields nil and
// the caller falls back to a store search. A single child is returned without
// prompting. Skipping or cancelling the prompt yields nil.
func (r *Resolver) ChooseChild(ctx context.Context, p *Parent) (*grocy.Product, error) {
	switch len(p.Children) {
	case 0:
		return nil, nil
	case 1:
		child := p.Children[0]
		return &child, nil
	}

	choices := make([]string, 0, len(p.Children)+1)
	for _, c := range p.Children {
		choices = append(choices, c.Name)
	}
	choices = append(choices, SkipChoice)

	idx, ok, err := r.prompter.Select(ctx, fmt.Sprintf("Choose a product for %s", p.Product.Name), choices)
	if err != nil {
		return nil, fmt.Errorf("choose child of %s: %w", p.Product.Name, err)
	}
	if !ok || idx < 0 || idx >= len(p.Children) {
		r.logger.Debug().Str("parent", p.Product.Name).Msg("Child selection skipped")
		return nil, nil
	}
	child := p.Children[idx]
	return &child, nil
}
