// Package history assembles a user's enriched visit history from review rows.
package history

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/normalize"
	"github.com/hyperjump/kuchikomi/internal/vision"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

const defaultRowConcurrency = 2

// ItemResolver maps an item id to a restaurant description.
type ItemResolver interface {
	Resolve(itemID string) string
}

// ImageAnnotator describes a list of image locators, one entry per locator.
type ImageAnnotator interface {
	DescribeAll(ctx context.Context, locators []string) []string
}

// ProgressFunc is called after each row with the number of finished rows and the total.
type ProgressFunc func(done, total int)

// Assembler builds enriched visit records for one user at a time.
type Assembler struct {
	rows           []models.ReviewRow
	byUser         map[string][]int
	users          []string
	resolver       ItemResolver
	annotator      ImageAnnotator
	rowConcurrency int
	progress       ProgressFunc
	logger         *zap.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// WithRowConcurrency bounds how many rows are enriched at once.
func WithRowConcurrency(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.rowConcurrency = n
		}
	}
}

// WithProgress registers a per-row progress callback. It may be called concurrently.
func WithProgress(fn ProgressFunc) AssemblerOption {
	return func(a *Assembler) { a.progress = fn }
}

// NewAssembler indexes rows by user. rows is retained and never modified.
func NewAssembler(rows []models.ReviewRow, resolver ItemResolver, annotator ImageAnnotator, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		rows:           rows,
		byUser:         make(map[string][]int),
		resolver:       resolver,
		annotator:      annotator,
		rowConcurrency: defaultRowConcurrency,
	}
	for i, r := range rows {
		if _, seen := a.byUser[r.UserID]; !seen {
			a.users = append(a.users, r.UserID)
		}
		a.byUser[r.UserID] = append(a.byUser[r.UserID], i)
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = utils.OrNop(a.logger)
	return a
}

// Users returns the distinct user ids in first-seen order.
func (a *Assembler) Users() []string {
	out := make([]string, len(a.users))
	copy(out, a.users)
	return out
}

// RowCount returns the number of review rows for userID.
func (a *Assembler) RowCount(userID string) int {
	return len(a.byUser[userID])
}

// Assemble returns the enriched visit records of userID in dataset order.
// A user without rows gets an empty slice. If ctx is cancelled, ctx.Err() is returned.
func (a *Assembler) Assemble(ctx context.Context, userID string) ([]models.EnrichedVisitRecord, error) {
	indices := a.byUser[userID]
	if len(indices) == 0 {
		return []models.EnrichedVisitRecord{}, nil
	}
	start := time.Now()
	out := make([]models.EnrichedVisitRecord, len(indices))
	var done int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.rowConcurrency)
	for slot, rowIdx := range indices {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[slot] = a.enrich(gctx, a.rows[rowIdx])
			if a.progress != nil {
				a.progress(int(atomic.AddInt32(&done, 1)), len(indices))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.logger.Info("history assembled",
		zap.String("user_id", userID),
		zap.Int("records", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (a *Assembler) enrich(ctx context.Context, row models.ReviewRow) models.EnrichedVisitRecord {
	var extra []models.Field
	if len(row.Extra) > 0 {
		extra = make([]models.Field, len(row.Extra))
		copy(extra, row.Extra)
	}
	return models.EnrichedVisitRecord{
		UserID:            row.UserID,
		Rating:            normalize.Rating(row.Rating),
		RestaurantInfo:    a.resolver.Resolve(row.ItemID),
		ReviewTitle:       row.Title,
		ReviewText:        row.Text,
		Images:            row.Images,
		Extra:             extra,
		ImageDescriptions: a.annotator.DescribeAll(ctx, vision.ParseLocators(row.Images)),
	}
}
