package parsers

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

func TestResolveProduct_AgentFormat(t *testing.T) {
	raw := model.RawProduct{
		"titulo":      "  Fone   Bluetooth ",
		"imagem":      "https://img.example/1.jpg",
		"url_produto": "https://loja.example/p/1",
		"preco":       "R$ 1.234,56",
		"avaliacao":   "4,5",
		"posicao":     3,
	}

	p := ResolveProduct(raw, 0)
	assert.Equal(t, "Fone Bluetooth", p.Name)
	assert.Equal(t, "https://img.example/1.jpg", p.ImageURL)
	assert.Equal(t, "https://loja.example/p/1", p.LinkURL)
	assert.InDelta(t, 1234.56, p.Price, 1e-9)
	assert.InDelta(t, 4.5, p.Rating, 1e-9)
	assert.Equal(t, 3, p.Rank)
}

func TestResolveProduct_APIFormat(t *testing.T) {
	raw := model.RawProduct{
		"name":      "Cafeteira",
		"image_url": "https://img.example/2.jpg",
		"url":       "https://loja.example/p/2",
		"price":     199.9,
		"rating":    4.0,
		"position":  float64(7),
	}

	p := ResolveProduct(raw, 4)
	assert.Equal(t, "Cafeteira", p.Name)
	assert.Equal(t, 199.9, p.Price)
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 7, p.Rank)
}

func TestResolveProduct_Fallbacks(t *testing.T) {
	p := ResolveProduct(model.RawProduct{}, 2)
	assert.Equal(t, model.CanonicalProduct{
		Name:    FallbackName,
		LinkURL: FallbackLink,
		Rank:    3,
	}, p)
}

func TestResolveProduct_Precedence(t *testing.T) {
	raw := model.RawProduct{
		"name":   "api name",
		"titulo": "agent name",
		"price":  10.0,
		"preco":  nil,
		"preço":  20.0,
	}

	p := ResolveProduct(raw, 0)
	assert.Equal(t, "agent name", p.Name)
	// a nil value does not match, so "price" wins over "preço"
	assert.Equal(t, 10.0, p.Price)
}

func TestResolveProduct_DecomposedKeys(t *testing.T) {
	// "preço", "posição" and "título" written with combining marks
	raw := model.RawProduct{
		"prec\u0327o":         "R$ 12,90",
		"posic\u0327a\u0303o": 2,
		"ti\u0301tulo":        "Livro",
	}

	p := ResolveProduct(raw, 9)
	assert.InDelta(t, 12.9, p.Price, 1e-9)
	assert.Equal(t, 2, p.Rank)
	assert.Equal(t, "Livro", p.Name)
}

func TestResolveProduct_ClampsAndRejects(t *testing.T) {
	p := ResolveProduct(model.RawProduct{
		"price":    -5.0,
		"rating":   9.0,
		"position": 1.5,
		"name":     "   ",
		"url":      "",
	}, 0)

	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, MaxRating, p.Rating)
	assert.Equal(t, 1, p.Rank)
	assert.Equal(t, FallbackName, p.Name)
	assert.Equal(t, FallbackLink, p.LinkURL)

	p = ResolveProduct(model.RawProduct{"rating": -1.0, "position": "#4"}, 0)
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 4, p.Rank)
}

func TestResolveProducts_RanksByPosition(t *testing.T) {
	got := ResolveProducts([]model.RawProduct{{"name": "a"}, {"name": "b", "posicao": 10}, {}})
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 10, got[1].Rank)
	assert.Equal(t, 3, got[2].Rank)
}

func TestResolvePrice_KeepsNegatives(t *testing.T) {
	assert.Equal(t, -5.0, ResolvePrice(model.RawProduct{"price": -5.0}))
	assert.Equal(t, 0.0, ResolvePrice(model.RawProduct{"nome": "x"}))
}

func TestResolveName(t *testing.T) {
	name, ok := ResolveName(model.RawProduct{"nome": "Mouse"})
	assert.True(t, ok)
	assert.Equal(t, "Mouse", name)

	_, ok = ResolveName(model.RawProduct{"price": 1.0})
	assert.False(t, ok)
}

func TestResolveProduct_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same record resolves to the same product", prop.ForAll(
		func(name, price string, idx int) bool {
			raw := model.RawProduct{"nome": name, "price": price, "preço": price + "0"}
			return ResolveProduct(raw, idx) == ResolveProduct(raw, idx)
		},
		gen.AnyString(),
		gen.NumString(),
		gen.IntRange(0, 1000),
	))

	properties.Property("resolved fields respect their ranges", prop.ForAll(
		func(price, rating float64, idx int) bool {
			p := ResolveProduct(model.RawProduct{"preco": price, "rating": rating}, idx)
			return p.Price >= 0 && p.Rating >= 0 && p.Rating <= MaxRating && p.Rank == idx+1
		},
		gen.Float64(),
		gen.Float64(),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
