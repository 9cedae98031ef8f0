// Package envelope classifies backend responses and reduces every accepted shape to one payload.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/analytics"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

// ErrInvalidFormat carries the message shown to the user when no shape matches.
var ErrInvalidFormat = errors.New("Formato de dados não reconhecido")

// FormatError wraps ErrInvalidFormat and keeps the offending value for logging.
type FormatError struct {
	Raw any
}

func (e *FormatError) Error() string {
	return ErrInvalidFormat.Error()
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

// Shape is the closed set of accepted response layouts.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapePrecomputed: {"produtos": [...], "dados_grafico": {...}}
	ShapePrecomputed
	// ShapeBareList: [...]
	ShapeBareList
	// ShapeDataList: {"success": true, "data": [...]}
	ShapeDataList
)

func (s Shape) String() string {
	switch s {
	case ShapePrecomputed:
		return "precomputed"
	case ShapeBareList:
		return "bare_list"
	case ShapeDataList:
		return "data_list"
	}
	return "unknown"
}

var (
	productKeys = []string{"produtos", "products"}
	chartKeys   = []string{"dados_grafico", "chart_data"}
)

type Payload struct {
	Statistics model.ChartStatistics
	Products   []model.RawProduct
	Shape      Shape
}

// Decode parses a JSON document keeping numbers as json.Number.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode JSON: trailing data")
	}
	return v, nil
}

// DecodeBytes is Decode over an in-memory body.
func DecodeBytes(b []byte) (any, error) {
	return Decode(bytes.NewReader(b))
}

func Classify(resp any) (Shape, error) {
	switch t := resp.(type) {
	case []any:
		return ShapeBareList, nil
	case map[string]any:
		if _, ok := arrayField(t, productKeys...); ok {
			if _, ok := objectField(t, chartKeys...); ok {
				return ShapePrecomputed, nil
			}
		}
		if success, _ := t["success"].(bool); success {
			if _, ok := t["data"].([]any); ok {
				return ShapeDataList, nil
			}
		}
	}
	return ShapeUnknown, &FormatError{Raw: resp}
}

// Normalize returns statistics and the product list for any accepted shape. List shapes
// get their statistics from analytics.Aggregate.
func Normalize(resp any) (Payload, error) {
	shape, err := Classify(resp)
	if err != nil {
		return Payload{}, err
	}

	switch shape {
	case ShapePrecomputed:
		obj := resp.(map[string]any)
		items, _ := arrayField(obj, productKeys...)
		chart, _ := objectField(obj, chartKeys...)
		return Payload{
			Statistics: statisticsFromWire(chart),
			Products:   toRawProducts(items),
			Shape:      shape,
		}, nil
	case ShapeBareList:
		products := toRawProducts(resp.([]any))
		return Payload{Statistics: analytics.Aggregate(products), Products: products, Shape: shape}, nil
	case ShapeDataList:
		products := toRawProducts(resp.(map[string]any)["data"].([]any))
		return Payload{Statistics: analytics.Aggregate(products), Products: products, Shape: shape}, nil
	}

	return Payload{}, &FormatError{Raw: resp}
}

func arrayField(obj map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := obj[k].([]any); ok {
			return v, true
		}
	}
	return nil, false
}

func objectField(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

func toRawProducts(items []any) []model.RawProduct {
	out := make([]model.RawProduct, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			out = append(out, model.RawProduct{})
			continue
		}
		out = append(out, model.RawProduct(obj))
	}
	return out
}

// statisticsFromWire passes a precomputed chart block through, defaulting missing or
// non-numeric fields.
func statisticsFromWire(chart map[string]any) model.ChartStatistics {
	stats := model.EmptyStatistics()
	if labels, ok := chart["labels"].([]any); ok {
		for _, l := range labels {
			stats.Labels = append(stats.Labels, toLabel(l))
		}
	}
	if series, ok := chart["precos"].([]any); ok {
		for _, v := range series {
			stats.Series = append(stats.Series, toNumber(v))
		}
	}
	stats.Mean = toNumber(chart["media"])
	stats.Min = toNumber(chart["minimo"])
	stats.Max = toNumber(chart["maximo"])
	return stats
}

func toNumber(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toLabel(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}
