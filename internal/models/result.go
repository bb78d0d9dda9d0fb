package models

import (
	"encoding/json"
	"sort"
)

// SearchResult is a single similarity hit.
type SearchResult struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
	Rank     int       `json:"rank"`
}

// SearchResponse is the response for a similarity query.
type SearchResponse struct {
	Query     string          `json:"query"`
	K         int             `json:"k"`
	Results   []*SearchResult `json:"results"`
	QueryTime int64           `json:"query_time_ms"`
}

// EnrichedVisitRecord is one review row of a user with normalized fields,
// the resolved restaurant description and per-image descriptions.
type EnrichedVisitRecord struct {
	UserID            string
	Rating            float64 // 0-1
	RestaurantInfo    string
	ReviewTitle       string
	ReviewText        string
	Images            string
	Extra             []Field
	ImageDescriptions []string
}

// MarshalJSON flattens the record into a single object keyed by the
// descriptive column names, with pass-through columns alongside.
func (r EnrichedVisitRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+7)
	for _, f := range r.Extra {
		out[f.Name] = f.Value
	}
	out["userId"] = r.UserID
	out["rating"] = r.Rating
	out["restaurant info"] = r.RestaurantInfo
	out["review title"] = r.ReviewTitle
	out["review text"] = r.ReviewText
	out["images"] = r.Images
	descriptions := r.ImageDescriptions
	if descriptions == nil {
		descriptions = []string{}
	}
	out["image_descriptions"] = descriptions
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON. Pass-through columns come back sorted by name.
func (r *EnrichedVisitRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out EnrichedVisitRecord
	targets := map[string]interface{}{
		"userId":             &out.UserID,
		"rating":             &out.Rating,
		"restaurant info":    &out.RestaurantInfo,
		"review title":       &out.ReviewTitle,
		"review text":        &out.ReviewText,
		"images":             &out.Images,
		"image_descriptions": &out.ImageDescriptions,
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if target, ok := targets[name]; ok {
			if err := json.Unmarshal(raw[name], target); err != nil {
				return err
			}
			continue
		}
		var value string
		if err := json.Unmarshal(raw[name], &value); err != nil {
			value = string(raw[name])
		}
		out.Extra = append(out.Extra, Field{Name: name, Value: value})
	}
	*r = out
	return nil
}

// HistoryResponse is the enriched visit history of one user.
type HistoryResponse struct {
	UserID  string                `json:"user_id"`
	Records []EnrichedVisitRecord `json:"records"`
}
