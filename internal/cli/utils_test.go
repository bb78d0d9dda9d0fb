package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kuchikomi/internal/models"
)

func sampleSearchResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "ramen",
		K:         1,
		QueryTime: 42,
		Results: []*models.SearchResult{
			{
				Rank:  1,
				Score: 0.9,
				Document: &models.Document{
					Content:  "Shop name: Menya.\n\nSignature dishes:\nDish 1: Tonkotsu",
					Metadata: models.DocumentMetadata{Source: "tokyo", ID: 7},
				},
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleSearchResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "ramen" || decoded.QueryTime != 42 {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Document.Metadata.ID != 7 {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleSearchResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results in 42ms", "Rank: 1 | Score: 0.9000", "ID: 7 | Source: tokyo", "Signature dishes: Dish 1: Tonkotsu"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func sampleHistory() *models.HistoryResponse {
	return &models.HistoryResponse{
		UserID: "U1",
		Records: []models.EnrichedVisitRecord{{
			UserID:            "U1",
			Rating:            0.8,
			RestaurantInfo:    "This is a cafe restaurant with price tier 1 and average rating 8.0.",
			ReviewTitle:       "Nice",
			ReviewText:        "Good\ncoffee",
			Images:            "['a.jpg']",
			ImageDescriptions: []string{"A latte with foam art."},
		}},
	}
}

func TestWriteHistory_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, sampleHistory(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"User U1: 1 visits", "Rating: 0.80", "price tier 1", "Review: Good coffee", "Image 1: A latte with foam art."} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteHistory_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, sampleHistory(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		UserID  string                   `json:"user_id"`
		Records []map[string]interface{} `json:"records"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Records) != 1 || decoded.Records[0]["review text"] != "Good\ncoffee" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
