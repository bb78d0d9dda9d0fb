package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopsJSON = `{
  "zeta_bakeries": [
    {"label": "Crumb", "type": "bakery", "location": "Kyoto", "rating": 4.5,
     "price_range": "$$", "short_description": "Fresh bread",
     "signature_items": ["Melon pan"], "review_titles": ["Great"], "reviews": ["Loved it"]}
  ],
  "alpha_cafes": [
    {"label": "Bean", "type": "cafe", "location": "Osaka", "rating": 4,
     "price_range": "$", "short_description": "Coffee",
     "signature_items": [], "review_titles": [], "reviews": []},
    {"label": "Leaf", "type": "cafe", "location": "Nara", "rating": 3.75,
     "price_range": "$$$", "short_description": "Tea",
     "signature_items": ["Matcha"], "review_titles": ["A", "B"], "reviews": ["x", "y"]}
  ]
}`

func TestParseShops_PreservesKeyOrder(t *testing.T) {
	ds, err := ParseShops(strings.NewReader(shopsJSON))
	require.NoError(t, err)
	require.Len(t, ds.Partitions, 2)
	assert.Equal(t, "zeta_bakeries", ds.Partitions[0].Source)
	assert.Equal(t, "alpha_cafes", ds.Partitions[1].Source)
	assert.Equal(t, 3, ds.ShopCount())

	bean := ds.Partitions[1].Shops[0]
	assert.Equal(t, "alpha_cafes", bean.Source)
	assert.Equal(t, "Bean", bean.Label)
	assert.Equal(t, "4", bean.Rating.String())
	assert.Equal(t, "4.5", ds.Partitions[0].Shops[0].Rating.String())
	assert.Equal(t, "3.75", ds.Partitions[1].Shops[1].Rating.String())
	assert.Equal(t, []string{"A", "B"}, ds.Partitions[1].Shops[1].ReviewTitles)
}

func TestParseShops_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an object", `[1, 2]`},
		{"source not an array", `{"a": {"label": "x"}}`},
		{"truncated", `{"a": [`},
		{"empty input", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseShops(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseShops_Empty(t *testing.T) {
	ds, err := ParseShops(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Empty(t, ds.Partitions)
	assert.Equal(t, 0, ds.ShopCount())
}
