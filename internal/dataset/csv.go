package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// Column names of the review and catalog datasets.
const (
	ColUserID        = "userId"
	ColItemID        = "itemId"
	ColRating        = "rating"
	ColTitle         = "title"
	ColText          = "text"
	ColImages        = "images"
	ColType          = "type"
	ColPriceInterval = "priceInterval"
)

type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &table{header: header, index: make(map[string]int, len(header)), rows: records[1:]}
	for i, h := range header {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseNumber reads a numeric cell. Empty and NaN cells are zero.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// ParseReviews decodes the review CSV. Columns other than the known ones are
// kept in Extra in header order.
func ParseReviews(r io.Reader) ([]models.ReviewRow, error) {
	t, err := readTable(r, ColUserID, ColItemID)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{
		ColUserID: true, ColItemID: true, ColRating: true,
		ColTitle: true, ColText: true, ColImages: true,
	}
	rows := make([]models.ReviewRow, 0, len(t.rows))
	for n, rec := range t.rows {
		rating, err := parseNumber(t.get(rec, ColRating))
		if err != nil {
			return nil, fmt.Errorf("line %d: rating: %w", n+2, err)
		}
		row := models.ReviewRow{
			UserID: t.get(rec, ColUserID),
			ItemID: t.get(rec, ColItemID),
			Rating: rating,
			Title:  t.get(rec, ColTitle),
			Text:   t.get(rec, ColText),
			Images: t.get(rec, ColImages),
		}
		for i, h := range t.header {
			if known[h] || i >= len(rec) {
				continue
			}
			row.Extra = append(row.Extra, models.Field{Name: h, Value: rec[i]})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCatalog decodes the restaurant catalog CSV. Missing price codes become "".
func ParseCatalog(r io.Reader) ([]models.CatalogEntry, error) {
	t, err := readTable(r, ColItemID, ColType, ColPriceInterval, ColRating)
	if err != nil {
		return nil, err
	}
	entries := make([]models.CatalogEntry, 0, len(t.rows))
	for n, rec := range t.rows {
		rating, err := parseNumber(t.get(rec, ColRating))
		if err != nil {
			return nil, fmt.Errorf("line %d: rating: %w", n+2, err)
		}
		price := strings.TrimSpace(t.get(rec, ColPriceInterval))
		if isMissing(price) {
			price = ""
		}
		entries = append(entries, models.CatalogEntry{
			ItemID:        t.get(rec, ColItemID),
			Type:          t.get(rec, ColType),
			PriceInterval: price,
			Rating:        rating,
		})
	}
	return entries, nil
}
