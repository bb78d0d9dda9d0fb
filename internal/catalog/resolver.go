// Package catalog resolves restaurant item ids to readable descriptions.
package catalog

import (
	"fmt"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/normalize"
	"go.uber.org/zap"
)

// Unavailable is returned by Resolve when the item id is not in the catalog.
const Unavailable = "Restaurant info unavailable."

// Resolver maps item ids to descriptions using the restaurant catalog.
// When the catalog lists an item id more than once, the first entry wins.
type Resolver struct {
	descriptions map[string]string
	duplicates   int
	logger       *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets a logger for catalog load diagnostics.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver indexes entries by item id. It fails when an entry carries a
// price code outside the known set, since that indicates corrupt catalog data.
func NewResolver(entries []models.CatalogEntry, opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		descriptions: make(map[string]string, len(entries)),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i, e := range entries {
		tier, err := normalize.PriceOrTier(e.PriceInterval)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d (item %s): %w", i+1, e.ItemID, err)
		}
		if _, seen := r.descriptions[e.ItemID]; seen {
			r.duplicates++
			continue
		}
		r.descriptions[e.ItemID] = describe(e, tier)
	}
	if r.duplicates > 0 {
		r.logger.Warn("catalog contains duplicate item ids; first entry wins",
			zap.Int("duplicates", r.duplicates))
	}
	return r, nil
}

func describe(e models.CatalogEntry, tier int) string {
	return fmt.Sprintf("This is a %s restaurant with price tier %d and average rating %s.",
		e.Type, tier, normalize.FormatDecimal(normalize.Rating(e.Rating)))
}

// Resolve returns the description for itemID, or Unavailable when it is unknown.
func (r *Resolver) Resolve(itemID string) string {
	if d, ok := r.descriptions[itemID]; ok {
		return d
	}
	return Unavailable
}

// Len returns the number of distinct item ids.
func (r *Resolver) Len() int {
	return len(r.descriptions)
}

// Duplicates returns how many catalog rows were shadowed by an earlier row with the same item id.
func (r *Resolver) Duplicates() int {
	return r.duplicates
}
