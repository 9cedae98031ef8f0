// Package render turns statistics and product lists into the dashboard regions: stats cards,
// product grid and chart configuration. A frame is built completely or not at all.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"strconv"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/parsers"
)

// ErrMalformedAggregate means there were no statistics to render.
var ErrMalformedAggregate = errors.New("Erro ao processar estatísticas dos produtos")

const maxAnimatedCards = 10

// Frame is one fully rendered dashboard. Regions are committed together.
type Frame struct {
	StatsCards   template.HTML            `json:"stats_cards"`
	Products     template.HTML            `json:"products"`
	ProductCount string                   `json:"product_count"`
	Chart        ChartConfig              `json:"chart"`
	Statistics   model.ChartStatistics    `json:"-"`
	Items        []model.CanonicalProduct `json:"-"`
	Theme        model.Theme              `json:"theme"`
}

type Renderer struct {
	resolve func(model.RawProduct, int) model.CanonicalProduct
}

func NewRenderer() *Renderer {
	return &Renderer{resolve: parsers.ResolveProduct}
}

// Render builds every region. Nothing is returned on error, so callers cannot commit half a frame.
func (r *Renderer) Render(stats *model.ChartStatistics, products []model.RawProduct, theme model.Theme) (Frame, error) {
	if stats == nil {
		return Frame{}, ErrMalformedAggregate
	}

	cards, err := renderStatsCards(*stats)
	if err != nil {
		return Frame{}, fmt.Errorf("render stats cards: %w", err)
	}

	grid, items, err := r.renderProducts(products)
	if err != nil {
		return Frame{}, fmt.Errorf("render products: %w", err)
	}

	return Frame{
		StatsCards:   cards,
		Products:     grid,
		ProductCount: ProductCount(len(products)),
		Chart:        BuildChart(*stats, theme),
		Statistics:   *stats,
		Items:        items,
		Theme:        theme,
	}, nil
}

func ProductCount(n int) string {
	return strconv.Itoa(n) + " produtos"
}

type statCard struct {
	Title   string
	Value   string
	Label   string
	Icon    string
	Variant string
	Delay   int
}

var statsCardsTemplate = template.Must(template.New("stats").Parse(`{{range .}}
<div class="col-md-4 fade-in delay-{{.Delay}}">
  <div class="card stats-card{{if .Variant}} {{.Variant}}{{end}}">
    <div class="stats-icon"><i class="bi {{.Icon}}"></i></div>
    <h5 class="card-title">{{.Title}}</h5>
    <div class="stats-value">{{.Value}}</div>
    <div class="stats-label">{{.Label}}</div>
  </div>
</div>{{end}}
`))

func renderStatsCards(stats model.ChartStatistics) (template.HTML, error) {
	cards := []statCard{
		{Title: "Preço Médio", Value: FormatPrice(stats.Mean), Label: "Média dos preços dos produtos", Icon: "bi-calculator", Delay: 1},
		{Title: "Preço Mais Baixo", Value: FormatPrice(stats.Min), Label: "Produto mais acessível", Icon: "bi-graph-down-arrow", Variant: "success", Delay: 2},
		{Title: "Preço Mais Alto", Value: FormatPrice(stats.Max), Label: "Produto mais caro", Icon: "bi-graph-up-arrow", Variant: "danger", Delay: 3},
	}

	var buf bytes.Buffer
	if err := statsCardsTemplate.Execute(&buf, cards); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type productCard struct {
	Name   string
	Image  string
	Link   string
	Rank   int
	Stars  []StarGlyph
	Rating string
	Price  string
	Style  template.CSS
}

var productCardTemplate = template.Must(template.New("product").Parse(`
<div class="col-md-4 col-lg-3 fade-in" style="{{.Style}}">
  <a href="{{.Link}}" target="_blank" rel="noopener" class="card h-100">
    <div class="position-relative">
      <img src="{{.Image}}" class="card-img-top product-image" alt="{{.Name}}">
      <span class="position-absolute top-0 start-0 badge bg-primary m-2">#{{.Rank}}</span>
    </div>
    <div class="card-body d-flex flex-column">
      <h5 class="card-title">{{.Name}}</h5>
      <div class="mt-auto">
        <div class="d-flex justify-content-between align-items-center mb-2">
          <span class="rating">{{range .Stars}}<i class="bi {{.}} text-warning"></i>{{end}} {{.Rating}}</span>
        </div>
        <span class="price">{{.Price}}</span>
      </div>
    </div>
  </a>
</div>`))

func (r *Renderer) renderProducts(products []model.RawProduct) (template.HTML, []model.CanonicalProduct, error) {
	var buf bytes.Buffer
	items := make([]model.CanonicalProduct, 0, len(products))
	for i, raw := range products {
		p := r.resolveCard(raw, i)
		if err := productCardTemplate.Execute(&buf, toProductCard(p, i)); err != nil {
			return "", nil, err
		}
		items = append(items, p)
	}
	return template.HTML(buf.String()), items, nil
}

// resolveCard degrades a record that cannot be resolved to the fallback product instead of
// failing the whole grid.
func (r *Renderer) resolveCard(raw model.RawProduct, index int) (p model.CanonicalProduct) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[render] level=warn product card fallback index=%d err=%v\n", index, rec)
			p = model.CanonicalProduct{
				Name:    parsers.FallbackName,
				LinkURL: parsers.FallbackLink,
				Rank:    index + 1,
			}
		}
	}()
	return r.resolve(raw, index)
}

func toProductCard(p model.CanonicalProduct, index int) productCard {
	delay := index
	if delay > maxAnimatedCards {
		delay = maxAnimatedCards
	}
	return productCard{
		Name:   p.Name,
		Image:  p.ImageURL,
		Link:   p.LinkURL,
		Rank:   p.Rank,
		Stars:  Stars(p.Rating),
		Rating: formatRating(p.Rating),
		Price:  cardPrice(p.Price),
		Style:  template.CSS(fmt.Sprintf("animation-delay: %.1fs", float64(delay)*0.1)),
	}
}

// cardPrice shows the placeholder for records without a usable price; 0 means "no price".
func cardPrice(v float64) string {
	if !(v > 0) {
		return MissingPrice
	}
	return FormatPrice(v)
}

func sanitizeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
