// Package models defines core data structures for shops, documents, reviews, and enriched visits.
package models

import "encoding/json"

// ShopRecord is one shop entry of the restaurant dataset.
// ReviewTitles and Reviews are index-aligned.
type ShopRecord struct {
	Source           string      `json:"-"`
	Label            string      `json:"label"`
	Type             string      `json:"type"`
	Location         string      `json:"location"`
	Rating           json.Number `json:"rating"`
	PriceRange       string      `json:"price_range"`
	ShortDescription string      `json:"short_description"`
	SignatureItems   []string    `json:"signature_items"`
	ReviewTitles     []string    `json:"review_titles"`
	Reviews          []string    `json:"reviews"`
}

// ShopPartition groups the shops published under one source name.
type ShopPartition struct {
	Source string
	Shops  []ShopRecord
}

// ShopDataset is the full shop dataset in source order.
type ShopDataset struct {
	Partitions []ShopPartition
}

// ShopCount returns the number of shops across all partitions.
func (d *ShopDataset) ShopCount() int {
	n := 0
	for _, p := range d.Partitions {
		n += len(p.Shops)
	}
	return n
}

// DocumentMetadata identifies where a document came from.
type DocumentMetadata struct {
	Source string `json:"source"`
	ID     int    `json:"id"`
}

// Document is a single embeddable text unit built from one shop.
type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}
