package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleShop() models.ShopRecord {
	return models.ShopRecord{
		Source:           "cafes",
		Label:            "Bean There",
		Type:             "cafe",
		Location:         "Main St",
		Rating:           "4.5",
		PriceRange:       "$$ - $$$",
		ShortDescription: "Cozy corner cafe",
		SignatureItems:   []string{"Flat white", "Banana bread"},
		ReviewTitles:     []string{"Lovely", "Slow"},
		Reviews:          []string{"Great coffee", "Service was slow"},
	}
}

func TestBuild_format(t *testing.T) {
	doc, err := NewBuilder(MismatchFail).Build(sampleShop(), 7)
	require.NoError(t, err)

	want := "Shop name: Bean There. Shop type: cafe. Shop location: Main St. Shop rating: 4.5. " +
		"Shop price_range: 2. Description: Cozy corner cafe.\n\n" +
		"Signature dishes:\nDish 1: Flat white\nDish 2: Banana bread\n\n" +
		"Reviews:\nReview 1. Title: Lovely. Text: Great coffee\nReview 2. Title: Slow. Text: Service was slow"
	assert.Equal(t, want, doc.Content)
	assert.Equal(t, models.DocumentMetadata{Source: "cafes", ID: 7}, doc.Metadata)
}

func TestBuild_integerRatingKeptVerbatim(t *testing.T) {
	shop := sampleShop()
	shop.Rating = "4"
	doc, err := NewBuilder(MismatchFail).Build(shop, 0)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Shop rating: 4. ")
}

func TestBuild_emptySections(t *testing.T) {
	shop := sampleShop()
	shop.SignatureItems = nil
	shop.ReviewTitles = nil
	shop.Reviews = nil
	doc, err := NewBuilder(MismatchFail).Build(shop, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.Content, "Cozy corner cafe.\n\nSignature dishes:\n\n\nReviews:\n"),
		"content: %q", doc.Content)
}

func TestPriceTier(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"$", 0},
		{"$$", 0},
		{"$$$", 1},
		{"$$$$", 1},
		{"$$$$$$", 2},
		{"$$ - $$$", 2},
		{"€€€", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriceTier(tt.in), "PriceTier(%q)", tt.in)
	}
}

func TestBuild_mismatchFail(t *testing.T) {
	shop := sampleShop()
	shop.ReviewTitles = shop.ReviewTitles[:1]
	_, err := NewBuilder(MismatchFail).Build(shop, 0)
	require.Error(t, err)
	var me *MismatchError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "Bean There", me.Label)
	assert.Equal(t, "cafes", me.Source)
	assert.Equal(t, 1, me.Titles)
	assert.Equal(t, 2, me.Reviews)
	assert.Contains(t, err.Error(), "Bean There")
}

func TestBuild_mismatchTruncate(t *testing.T) {
	shop := sampleShop()
	shop.ReviewTitles = shop.ReviewTitles[:1]
	doc, err := NewBuilder(MismatchTruncate).Build(shop, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.Content, "Reviews:\nReview 1. Title: Lovely. Text: Great coffee"))
	assert.NotContains(t, doc.Content, "Review 2.")

	shop = sampleShop()
	shop.Reviews = shop.Reviews[:1]
	doc, err = NewBuilder(MismatchTruncate).Build(shop, 0)
	require.NoError(t, err)
	assert.NotContains(t, doc.Content, "Review 2.")
}

func TestBuildAll_denseIDsAcrossSources(t *testing.T) {
	ds := &models.ShopDataset{Partitions: []models.ShopPartition{
		{Source: "bakeries", Shops: []models.ShopRecord{sampleShop(), sampleShop()}},
		{Source: "restaurants", Shops: nil},
		{Source: "cafes", Shops: []models.ShopRecord{sampleShop(), sampleShop(), sampleShop()}},
	}}
	docs, err := NewBuilder(MismatchFail).BuildAll(ds)
	require.NoError(t, err)
	require.Len(t, docs, 5)
	for i, d := range docs {
		assert.Equal(t, i, d.Metadata.ID)
	}
	assert.Equal(t, "bakeries", docs[0].Metadata.Source)
	assert.Equal(t, "bakeries", docs[1].Metadata.Source)
	assert.Equal(t, "cafes", docs[2].Metadata.Source)
	assert.Equal(t, "cafes", docs[4].Metadata.Source)
}

func TestBuildAll_failAbortsRun(t *testing.T) {
	bad := sampleShop()
	bad.Reviews = append(bad.Reviews, "extra")
	ds := &models.ShopDataset{Partitions: []models.ShopPartition{
		{Source: "a", Shops: []models.ShopRecord{sampleShop(), bad}},
	}}
	docs, err := NewBuilder(MismatchFail).BuildAll(ds)
	require.Error(t, err)
	assert.Nil(t, docs)

	docs, err = NewBuilder(MismatchTruncate).BuildAll(ds)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[1].Metadata.ID)
}

func TestParseMismatchPolicy(t *testing.T) {
	p, err := ParseMismatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MismatchFail, p)
	p, err = ParseMismatchPolicy("truncate")
	require.NoError(t, err)
	assert.Equal(t, MismatchTruncate, p)
	_, err = ParseMismatchPolicy("pad")
	assert.Error(t, err)
}
