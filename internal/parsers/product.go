package parsers

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const (
	FallbackName = "Sem nome"
	FallbackLink = "#"
	MaxRating    = 5.0
)

// Key precedence per canonical field. Agent-format keys come first, then the API format,
// then localized spellings. Changing the order changes what is displayed for records that
// carry more than one of these keys.
var (
	NameKeys   = []string{"titulo", "name", "nome", "título"}
	ImageKeys  = []string{"imagem", "image_url", "imagem_url", "image"}
	LinkKeys   = []string{"url_produto", "url", "link", "product_url"}
	PriceKeys  = []string{"preco", "price", "preço"}
	RatingKeys = []string{"rating", "avaliacao", "avaliação"}
	RankKeys   = []string{"posição", "position", "posicao"}
)

// ResolveProduct converts a raw backend record into its canonical form.
// index is the record position in the list; rank falls back to index+1.
func ResolveProduct(raw model.RawProduct, index int) model.CanonicalProduct {
	rec := normalizeKeys(raw)

	p := model.CanonicalProduct{
		Name:    FallbackName,
		LinkURL: FallbackLink,
		Rank:    index + 1,
	}

	if name, ok := pickString(rec, NameKeys...); ok {
		p.Name = name
	}
	if img, ok := pickString(rec, ImageKeys...); ok {
		p.ImageURL = img
	}
	if link, ok := pickString(rec, LinkKeys...); ok {
		p.LinkURL = link
	}

	if price := resolvePrice(rec); price > 0 {
		p.Price = price
	}

	if v, ok := pick(rec, RatingKeys...); ok {
		if r, ok := ParsePriceOK(v); ok {
			p.Rating = math.Max(0, math.Min(MaxRating, r))
		}
	}

	if v, ok := pick(rec, RankKeys...); ok {
		if r, ok := toPositiveInt(v); ok {
			p.Rank = r
		}
	}

	return p
}

// ResolveProducts resolves a whole list, ranking by position where records carry no rank.
func ResolveProducts(raws []model.RawProduct) []model.CanonicalProduct {
	out := make([]model.CanonicalProduct, 0, len(raws))
	for i, raw := range raws {
		out = append(out, ResolveProduct(raw, i))
	}
	return out
}

// ResolvePrice applies only the price key chain and the price parser. Invalid prices are 0;
// negative numbers are returned as-is so callers can decide how to filter them.
func ResolvePrice(raw model.RawProduct) float64 {
	return resolvePrice(normalizeKeys(raw))
}

// ResolveName returns the display name, or ok=false when no name key matched.
func ResolveName(raw model.RawProduct) (string, bool) {
	return pickString(normalizeKeys(raw), NameKeys...)
}

func resolvePrice(rec model.RawProduct) float64 {
	v, ok := pick(rec, PriceKeys...)
	if !ok {
		return 0
	}
	return ParsePrice(v)
}

// normalizeKeys returns a view of raw whose keys are NFC-normalized, so that a decomposed
// "preço" still matches. Keys already in NFC win over decomposed duplicates.
func normalizeKeys(raw model.RawProduct) model.RawProduct {
	var pending []string
	for k := range raw {
		if !norm.NFC.IsNormalString(k) {
			pending = append(pending, k)
		}
	}
	if len(pending) == 0 {
		return raw
	}

	sort.Strings(pending)
	out := make(model.RawProduct, len(raw))
	for k, v := range raw {
		if norm.NFC.IsNormalString(k) {
			out[k] = v
		}
	}
	for _, k := range pending {
		nk := norm.NFC.String(k)
		if _, exists := out[nk]; !exists {
			out[nk] = raw[k]
		}
	}
	return out
}

func pick(rec model.RawProduct, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// pickString returns the first key whose value converts to a non-blank string.
func pickString(rec model.RawProduct, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := toDisplayString(v); ok {
			return s, true
		}
	}
	return "", false
}

func toDisplayString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := normalizeSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		if !isFiniteFloat(t) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func toPositiveInt(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		n, ok := ParsePriceOK(v)
		if !ok {
			return 0, false
		}
		f = n
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
