package catalog

import (
	"testing"

	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_scenario(t *testing.T) {
	r, err := NewResolver([]models.CatalogEntry{
		{ItemID: "42", Type: "cafe", PriceInterval: "1", Rating: 80},
	})
	require.NoError(t, err)

	got := r.Resolve("42")
	assert.Contains(t, got, "cafe")
	assert.Contains(t, got, "price tier 1")
	assert.Contains(t, got, "average rating 8.0")
	assert.Equal(t, "This is a cafe restaurant with price tier 1 and average rating 8.0.", got)
}

func TestResolve_rawPriceCodes(t *testing.T) {
	r, err := NewResolver([]models.CatalogEntry{
		{ItemID: "a", Type: "bakery", PriceInterval: "$$$$", Rating: 85},
		{ItemID: "b", Type: "diner", PriceInterval: "", Rating: 70},
		{ItemID: "c", Type: "bistro", PriceInterval: "$$ - $$$", Rating: 91},
	})
	require.NoError(t, err)
	assert.Equal(t, "This is a bakery restaurant with price tier 3 and average rating 8.5.", r.Resolve("a"))
	assert.Equal(t, "This is a diner restaurant with price tier 0 and average rating 7.0.", r.Resolve("b"))
	assert.Equal(t, "This is a bistro restaurant with price tier 2 and average rating 9.1.", r.Resolve("c"))
}

func TestResolve_missingReturnsFallback(t *testing.T) {
	r, err := NewResolver(nil)
	require.NoError(t, err)
	assert.Equal(t, "Restaurant info unavailable.", r.Resolve("does-not-exist"))
	assert.Equal(t, Unavailable, r.Resolve(""))
}

func TestResolve_duplicateFirstWins(t *testing.T) {
	r, err := NewResolver([]models.CatalogEntry{
		{ItemID: "7", Type: "cafe", PriceInterval: "$", Rating: 50},
		{ItemID: "7", Type: "steakhouse", PriceInterval: "$$$$", Rating: 90},
	})
	require.NoError(t, err)
	assert.Contains(t, r.Resolve("7"), "cafe")
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Duplicates())
}

func TestNewResolver_unknownPriceCode(t *testing.T) {
	_, err := NewResolver([]models.CatalogEntry{
		{ItemID: "1", Type: "cafe", PriceInterval: "unexpected", Rating: 10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, normalize.ErrUnknownPrice)
	assert.Contains(t, err.Error(), "item 1")
}
