package dataset

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// ParseShops decodes a JSON object mapping source names to shop arrays.
// Sources keep the key order of the document.
func ParseShops(r io.Reader) (*models.ShopDataset, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object at top level, got %v", tok)
	}
	ds := &models.ShopDataset{}
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		source, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected source name, got %v", tok)
		}
		var shops []models.ShopRecord
		if err := dec.Decode(&shops); err != nil {
			return nil, fmt.Errorf("source %q: %w", source, err)
		}
		for i := range shops {
			shops[i].Source = source
		}
		// A repeated key replaces the earlier value in place, as a JSON object would.
		if at, dup := seen[source]; dup {
			ds.Partitions[at].Shops = shops
			continue
		}
		seen[source] = len(ds.Partitions)
		ds.Partitions = append(ds.Partitions, models.ShopPartition{Source: source, Shops: shops})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return ds, nil
}
