// Package fakebackend serves a stand-in for the product data service during development.
package fakebackend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/analytics"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const (
	ShapePrecomputed = "precomputed"
	ShapeList        = "list"
	ShapeData        = "data"
)

var ErrUnknownShape = errors.New("unknown response shape")

// ErrNoProducts mirrors the data service's message when nothing could be collected.
var ErrNoProducts = errors.New("Erro ao obter ou processar dados")

// Fixture returns a fresh copy of the sample catalog. Records deliberately mix the agent
// format, the API format and localized keys.
func Fixture() []model.RawProduct {
	return []model.RawProduct{
		{"titulo": "Echo Dot (5ª geração) com Relógio", "preco": "R$ 474,05", "avaliacao": "4,8", "imagem": "https://m.media-amazon.com/images/I/71yRY8YlAbL._AC_UL320_.jpg", "url_produto": "https://www.amazon.com.br/dp/B09B8XVSDP", "posicao": 1},
		{"titulo": "Kindle 16 GB", "preco": "R$ 664,05", "avaliacao": 4.9, "imagem": "https://m.media-amazon.com/images/I/71Vm8VNpUeL._AC_UL320_.jpg", "url_produto": "https://www.amazon.com.br/dp/B0CP31QS6R", "posicao": 2},
		{"name": "Fire TV Stick 4K", "price": 379.05, "rating": 4.8, "image_url": "https://m.media-amazon.com/images/I/51TjJOTfslL._AC_UL320_.jpg", "url": "https://www.amazon.com.br/dp/B0CQMRKRV5", "position": 3},
		{"titulo": "Smartphone Samsung Galaxy A15 128GB", "preco": "R$ 899,00", "avaliacao": "4.6", "url_produto": "https://www.amazon.com.br/dp/B0CNXFJW3B"},
		{"nome": "Fone de Ouvido JBL Tune 520BT", "preço": "R$ 249,90", "avaliação": 4.7, "link": "https://www.amazon.com.br/dp/B0BS1QCFHX"},
		{"titulo": "Carregador Turbo USB-C 25W", "preco": "89,90", "avaliacao": 4.5},
		{"titulo": "Cabo HDMI 2.0 4K 2 metros", "preco": "R$ 29,99", "avaliacao": 4.7},
		{"name": "Mouse sem fio Logitech M170", "price": "59.90", "rating": "4,6"},
		{"titulo": "Power Bank 10000mAh", "preco": "R$ 1.199,00", "avaliacao": 4.4},
		{"titulo": "Echo Pop", "preco": "R$ 284,05", "avaliacao": 4.7},
		{"titulo": "Lâmpada Inteligente Wi-Fi", "preco": "R$ 45,90", "avaliacao": 4.5},
		{"titulo": "Produto indisponível", "preco": "Indisponível", "avaliacao": 0},
	}
}

// BuildResponse wraps products in one of the three envelopes the dashboard accepts.
func BuildResponse(shape string, products []model.RawProduct) (any, error) {
	items := make([]any, 0, len(products))
	for _, p := range products {
		items = append(items, map[string]any(p))
	}

	switch strings.ToLower(strings.TrimSpace(shape)) {
	case "", ShapePrecomputed:
		return map[string]any{
			"success":       true,
			"produtos":      items,
			"dados_grafico": analytics.Aggregate(products),
		}, nil
	case ShapeList:
		return items, nil
	case ShapeData:
		return map[string]any{
			"success": true,
			"data":    items,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
}

type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Agents struct {
	Fetchers   []Agent `json:"fetchers"`
	Processors []Agent `json:"processors"`
}

func AvailableAgents(scrape bool) Agents {
	a := Agents{
		Fetchers: []Agent{
			{ID: "fixture_fetcher", Name: "Catálogo de exemplo", Description: "Produtos fixos para desenvolvimento"},
		},
		Processors: []Agent{
			{ID: "passthrough_processor", Name: "Sem processamento", Description: "Entrega os registros como coletados"},
		},
	}
	if scrape {
		a.Fetchers = append(a.Fetchers, Agent{
			ID:          "html_fetcher",
			Name:        "Coletor de página",
			Description: "Extrai cards de produto da página informada em source",
		})
	}
	return a
}
