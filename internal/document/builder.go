// Package document builds embeddable text documents from shop records.
package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kuchikomi/internal/models"
)

// ReviewMismatchPolicy decides what happens when a shop's review titles and
// reviews differ in length.
type ReviewMismatchPolicy string

const (
	// MismatchFail rejects the shop with a *MismatchError.
	MismatchFail ReviewMismatchPolicy = "fail"
	// MismatchTruncate pairs titles and reviews up to the shorter list.
	MismatchTruncate ReviewMismatchPolicy = "truncate"
)

// ParseMismatchPolicy returns the policy named by s. Empty means MismatchFail.
func ParseMismatchPolicy(s string) (ReviewMismatchPolicy, error) {
	switch ReviewMismatchPolicy(s) {
	case MismatchFail, "":
		return MismatchFail, nil
	case MismatchTruncate:
		return MismatchTruncate, nil
	default:
		return "", fmt.Errorf("unknown review mismatch policy: %s (supported: fail, truncate)", s)
	}
}

// MismatchError reports a shop whose review titles and reviews are not index-aligned.
type MismatchError struct {
	Source  string
	Label   string
	Titles  int
	Reviews int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("shop %q in %q: %d review titles for %d reviews", e.Label, e.Source, e.Titles, e.Reviews)
}

// Builder turns shop records into documents.
type Builder struct {
	policy ReviewMismatchPolicy
}

// NewBuilder creates a builder using the given mismatch policy.
func NewBuilder(policy ReviewMismatchPolicy) *Builder {
	if policy == "" {
		policy = MismatchFail
	}
	return &Builder{policy: policy}
}

// BuildAll builds one document per shop, assigning ids 0..n-1 in source then
// shop order. The first shop that cannot be built aborts the run and no
// documents are returned.
func (b *Builder) BuildAll(dataset *models.ShopDataset) ([]models.Document, error) {
	docs := make([]models.Document, 0, dataset.ShopCount())
	nextID := 0
	for _, part := range dataset.Partitions {
		for _, shop := range part.Shops {
			shop.Source = part.Source
			doc, err := b.Build(shop, nextID)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			nextID++
		}
	}
	return docs, nil
}

// Build renders a single shop as a document with the given id.
func (b *Builder) Build(shop models.ShopRecord, id int) (models.Document, error) {
	n := len(shop.Reviews)
	if len(shop.ReviewTitles) != n {
		if b.policy != MismatchTruncate {
			return models.Document{}, &MismatchError{
				Source:  shop.Source,
				Label:   shop.Label,
				Titles:  len(shop.ReviewTitles),
				Reviews: len(shop.Reviews),
			}
		}
		if len(shop.ReviewTitles) < n {
			n = len(shop.ReviewTitles)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Shop name: %s. ", shop.Label)
	fmt.Fprintf(&sb, "Shop type: %s. ", shop.Type)
	fmt.Fprintf(&sb, "Shop location: %s. ", shop.Location)
	fmt.Fprintf(&sb, "Shop rating: %s. ", shop.Rating.String())
	fmt.Fprintf(&sb, "Shop price_range: %d. ", PriceTier(shop.PriceRange))
	fmt.Fprintf(&sb, "Description: %s.\n\n", shop.ShortDescription)
	sb.WriteString("Signature dishes:\n")
	sb.WriteString(signatureBlock(shop.SignatureItems))
	sb.WriteString("\n\nReviews:\n")
	sb.WriteString(reviewBlock(shop.ReviewTitles[:n], shop.Reviews[:n]))

	return models.Document{
		Content:  sb.String(),
		Metadata: models.DocumentMetadata{Source: shop.Source, ID: id},
	}, nil
}

// PriceTier is the coarse tier derived from the length of the raw price
// range string: "$$$" is tier 1 and "$$ - $$$" is tier 2.
func PriceTier(priceRange string) int {
	return utf8.RuneCountInString(priceRange) / 3
}

func signatureBlock(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("Dish %d: %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

func reviewBlock(titles, reviews []string) string {
	lines := make([]string, len(reviews))
	for i := range reviews {
		lines[i] = fmt.Sprintf("Review %d. Title: %s. Text: %s", i+1, titles[i], reviews[i])
	}
	return strings.Join(lines, "\n")
}
