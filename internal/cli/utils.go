// Package cli provides output writers for the kuchikomi command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s. Empty means OutputText.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

const previewLen = 200

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		if result.Document == nil {
			continue
		}
		fmt.Fprintf(w, "ID: %d | Source: %s\n", result.Document.Metadata.ID, result.Document.Metadata.Source)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.CollapseWhitespace(result.Document.Content), previewLen))
	}
	return nil
}

// WriteHistory writes a user's enriched visit records to w in the given format.
func WriteHistory(w io.Writer, response *models.HistoryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nUser %s: %d visits\n\n", response.UserID, len(response.Records))
	for i, rec := range response.Records {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Visit %d | Rating: %.2f\n", i+1, rec.Rating)
		fmt.Fprintf(w, "Restaurant: %s\n", rec.RestaurantInfo)
		fmt.Fprintf(w, "Title: %s\n", rec.ReviewTitle)
		fmt.Fprintf(w, "Review: %s\n", utils.Truncate(utils.CollapseWhitespace(rec.ReviewText), previewLen))
		for j, d := range rec.ImageDescriptions {
			fmt.Fprintf(w, "  Image %d: %s\n", j+1, d)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
