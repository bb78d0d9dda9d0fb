// Package normalize rescales review ratings and maps price codes to tiers.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownPrice is returned for price codes outside the known set.
var ErrUnknownPrice = errors.New("unknown price code")

// UnknownPriceError reports the offending price code.
type UnknownPriceError struct {
	Code string
}

func (e *UnknownPriceError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownPrice.Error(), e.Code)
}

// Unwrap lets errors.Is match ErrUnknownPrice.
func (e *UnknownPriceError) Unwrap() error { return ErrUnknownPrice }

var priceTiers = map[string]int{
	"":         0,
	"$":        1,
	"$$ - $$$": 2,
	"$$$$":     3,
}

// Rating maps a rating on the 0-10 scale to 0-1.
func Rating(x float64) float64 {
	return x / 10.0
}

// Price maps a catalog price code to its tier. An empty code is a missing
// value and maps to 0. Any other code outside the table is an error.
func Price(code string) (int, error) {
	if tier, ok := priceTiers[code]; ok {
		return tier, nil
	}
	return 0, &UnknownPriceError{Code: code}
}

// PriceOrTier behaves like Price but also accepts codes that are already
// numeric tiers (0-3), as found in pre-normalized catalogs.
func PriceOrTier(code string) (int, error) {
	if tier, err := Price(code); err == nil {
		return tier, nil
	}
	trimmed := strings.TrimSpace(code)
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 0 && n <= 3 {
		return n, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && f == float64(int(f)) && f >= 0 && f <= 3 {
		return int(f), nil
	}
	return 0, &UnknownPriceError{Code: code}
}

// FormatDecimal renders f with the fewest digits that round-trip and always
// at least one fractional digit, so 8 renders as "8.0" and 8.5 as "8.5".
func FormatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
