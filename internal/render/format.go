package render

import (
	"fmt"
	"math"
)

const (
	CurrencyPrefix = "R$ "
	MissingPrice   = "R$ --"
	StarCount      = 5
)

// FormatPrice renders a value with the fixed currency prefix and exactly two decimals.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingPrice
	}
	return fmt.Sprintf("%s%.2f", CurrencyPrefix, v)
}

type StarGlyph string

const (
	StarFull  StarGlyph = "bi-star-fill"
	StarHalf  StarGlyph = "bi-star-half"
	StarEmpty StarGlyph = "bi-star"
)

// Stars returns exactly StarCount glyphs: floor(rating) full, one half when the fractional
// part is at least 0.5, the rest empty. Rating is clamped to [0, 5].
func Stars(rating float64) []StarGlyph {
	if math.IsNaN(rating) || rating < 0 {
		rating = 0
	}
	if rating > StarCount {
		rating = StarCount
	}

	full := int(math.Floor(rating))
	half := 0
	if full < StarCount && rating-float64(full) >= 0.5 {
		half = 1
	}

	out := make([]StarGlyph, 0, StarCount)
	for i := 0; i < full; i++ {
		out = append(out, StarFull)
	}
	if half == 1 {
		out = append(out, StarHalf)
	}
	for len(out) < StarCount {
		out = append(out, StarEmpty)
	}
	return out
}

// CountStars summarizes Stars as full, half and empty counts.
func CountStars(rating float64) (full, half, empty int) {
	for _, g := range Stars(rating) {
		switch g {
		case StarFull:
			full++
		case StarHalf:
			half++
		default:
			empty++
		}
	}
	return full, half, empty
}

func formatRating(r float64) string {
	if r == math.Trunc(r) {
		return fmt.Sprintf("%.0f", r)
	}
	return fmt.Sprintf("%.1f", r)
}
