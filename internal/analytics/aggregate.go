// Package analytics derives chart statistics from raw product lists.
package analytics

import (
	"golang.org/x/text/unicode/norm"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/parsers"
)

const (
	ChartLimit     = 10
	LabelMaxRunes  = 20
	LabelKeepRunes = 17
	FallbackLabel  = "Produto"
)

// Aggregate computes mean, min and max over valid prices (finite and > 0) and the chart
// series for the first ChartLimit products. The series is not filtered: an invalid price
// shows up as 0 and a negative one as-is.
func Aggregate(products []model.RawProduct) model.ChartStatistics {
	stats := model.EmptyStatistics()

	valid := make([]float64, 0, len(products))
	for i, p := range products {
		price := parsers.ResolvePrice(p)
		if isFiniteFloat(price) && price > 0 {
			valid = append(valid, price)
		}

		if i < ChartLimit {
			stats.Labels = append(stats.Labels, chartLabel(p))
			stats.Series = append(stats.Series, price)
		}
	}

	stats.Mean = mean(valid)
	stats.Min, stats.Max = minMax(valid)
	return stats
}

func chartLabel(p model.RawProduct) string {
	name, ok := parsers.ResolveName(p)
	if !ok {
		return FallbackLabel
	}
	return TruncateLabel(name)
}

// TruncateLabel shortens names longer than LabelMaxRunes to LabelKeepRunes runes plus "...".
func TruncateLabel(name string) string {
	runes := []rune(norm.NFC.String(name))
	if len(runes) <= LabelMaxRunes {
		return string(runes)
	}
	return string(runes[:LabelKeepRunes]) + "..."
}
