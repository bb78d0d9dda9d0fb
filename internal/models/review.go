package models

// Field is a named column value carried through from the source dataset.
type Field struct {
	Name  string
	Value string
}

// ReviewRow is one row of the user review dataset.
type ReviewRow struct {
	UserID string
	ItemID string
	Rating float64 // 0-10
	Title  string
	Text   string
	// Images is the raw serialized list of image locators, e.g. "['https://a', 'https://b']".
	Images string
	// Extra holds any other dataset columns in source order.
	Extra []Field
}

// CatalogEntry is one row of the restaurant catalog.
type CatalogEntry struct {
	ItemID        string
	Type          string
	PriceInterval string // raw code; empty when missing
	Rating        float64 // 0-10
}
