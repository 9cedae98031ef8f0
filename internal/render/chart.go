package render

import (
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const (
	ChartCanvasID    = "precoChart"
	ChartAxisTitle   = "Preço (R$)"
	DataLabelsFirstN = 5
)

// Palette holds the theme dependent chart colors.
type Palette struct {
	Gradient    [2]string
	Ticks       string
	Title       string
	Grid        string
	TooltipBg   string
	TooltipText string
	TooltipEdge string
	DataLabel   string
}

var palettes = map[model.Theme]Palette{
	model.ThemeLight: {
		Gradient:    [2]string{"rgba(67, 97, 238, 0.8)", "rgba(58, 12, 163, 0.8)"},
		Ticks:       "#6c757d",
		Title:       "#2b2d42",
		Grid:        "rgba(0, 0, 0, 0.05)",
		TooltipBg:   "rgba(255, 255, 255, 0.9)",
		TooltipText: "#2b2d42",
		TooltipEdge: "rgba(0, 0, 0, 0.1)",
		DataLabel:   "#ffffff",
	},
	model.ThemeDark: {
		Gradient:    [2]string{"rgba(76, 201, 240, 0.8)", "rgba(72, 149, 239, 0.8)"},
		Ticks:       "#adb5bd",
		Title:       "#f8f9fa",
		Grid:        "rgba(255, 255, 255, 0.1)",
		TooltipBg:   "#343a40",
		TooltipText: "#f8f9fa",
		TooltipEdge: "rgba(255, 255, 255, 0.1)",
		DataLabel:   "#f8f9fa",
	},
}

func PaletteFor(theme model.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[model.ThemeLight]
}

// ChartConfig is a Chart.js bar chart configuration. Functions Chart.js expects (gradient
// fill, tick and label formatters) are described by plain fields and built by the page.
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
	// Gradient is the vertical fill from top to bottom.
	Gradient [2]string `json:"gradient"`
	// CurrencyPrefix is prepended to ticks, tooltips and data labels.
	CurrencyPrefix string `json:"currency_prefix"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label                string    `json:"label"`
	Data                 []float64 `json:"data"`
	BorderColor          string    `json:"borderColor"`
	BorderRadius         int       `json:"borderRadius"`
	BorderWidth          int       `json:"borderWidth"`
	HoverBackgroundColor string    `json:"hoverBackgroundColor"`
	BarPercentage        float64   `json:"barPercentage"`
	CategoryPercentage   float64   `json:"categoryPercentage"`
}

type ChartOptions struct {
	Responsive          bool           `json:"responsive"`
	MaintainAspectRatio bool           `json:"maintainAspectRatio"`
	Animation           ChartAnimation `json:"animation"`
	Scales              ChartScales    `json:"scales"`
	Plugins             ChartPlugins   `json:"plugins"`
}

type ChartAnimation struct {
	Duration int    `json:"duration"`
	Easing   string `json:"easing"`
}

type ChartScales struct {
	Y ChartAxis `json:"y"`
	X ChartAxis `json:"x"`
}

type ChartAxis struct {
	BeginAtZero bool        `json:"beginAtZero,omitempty"`
	Grid        ChartGrid   `json:"grid"`
	Ticks       ChartTicks  `json:"ticks"`
	Title       *ChartTitle `json:"title,omitempty"`
}

type ChartGrid struct {
	Display bool   `json:"display"`
	Color   string `json:"color,omitempty"`
}

type ChartTicks struct {
	Color string `json:"color"`
}

type ChartTitle struct {
	Display bool      `json:"display"`
	Text    string    `json:"text"`
	Color   string    `json:"color"`
	Font    ChartFont `json:"font"`
}

type ChartFont struct {
	Weight string `json:"weight"`
	Size   int    `json:"size,omitempty"`
}

type ChartPlugins struct {
	Legend     ChartLegend     `json:"legend"`
	Tooltip    ChartTooltip    `json:"tooltip"`
	DataLabels ChartDataLabels `json:"datalabels"`
}

type ChartLegend struct {
	Display bool `json:"display"`
}

type ChartTooltip struct {
	BackgroundColor string `json:"backgroundColor"`
	TitleColor      string `json:"titleColor"`
	BodyColor       string `json:"bodyColor"`
	BorderColor     string `json:"borderColor"`
	BorderWidth     int    `json:"borderWidth"`
	Padding         int    `json:"padding"`
	CornerRadius    int    `json:"cornerRadius"`
	DisplayColors   bool   `json:"displayColors"`
}

// ChartDataLabels shows value labels only for the first DisplayFirst bars.
type ChartDataLabels struct {
	Color        string    `json:"color"`
	Anchor       string    `json:"anchor"`
	Align        string    `json:"align"`
	Font         ChartFont `json:"font"`
	TextShadow   string    `json:"textShadow"`
	DisplayFirst int       `json:"displayFirst"`
}

// LabelVisible reports whether the data label at index is drawn.
func (d ChartDataLabels) LabelVisible(index int) bool {
	return index >= 0 && index < d.DisplayFirst
}

// BuildChart pairs labels with series values; extra entries on either side are dropped.
func BuildChart(stats model.ChartStatistics, theme model.Theme) ChartConfig {
	n := len(stats.Labels)
	if len(stats.Series) < n {
		n = len(stats.Series)
	}
	labels := make([]string, n)
	copy(labels, stats.Labels[:n])
	data := make([]float64, n)
	for i := 0; i < n; i++ {
		data[i] = sanitizeNumber(stats.Series[i])
	}

	p := PaletteFor(theme)
	return ChartConfig{
		Type: "bar",
		Data: ChartData{
			Labels: labels,
			Datasets: []ChartDataset{{
				Label:                ChartAxisTitle,
				Data:                 data,
				BorderColor:          "transparent",
				BorderRadius:         8,
				HoverBackgroundColor: p.Gradient[0],
				BarPercentage:        0.7,
				CategoryPercentage:   0.8,
			}},
		},
		Options: ChartOptions{
			Responsive: true,
			Animation:  ChartAnimation{Duration: 1500, Easing: "easeOutQuart"},
			Scales: ChartScales{
				Y: ChartAxis{
					BeginAtZero: true,
					Grid:        ChartGrid{Display: true, Color: p.Grid},
					Ticks:       ChartTicks{Color: p.Ticks},
					Title: &ChartTitle{
						Display: true,
						Text:    ChartAxisTitle,
						Color:   p.Title,
						Font:    ChartFont{Weight: "bold"},
					},
				},
				X: ChartAxis{
					Grid:  ChartGrid{Display: false},
					Ticks: ChartTicks{Color: p.Ticks},
				},
			},
			Plugins: ChartPlugins{
				Tooltip: ChartTooltip{
					BackgroundColor: p.TooltipBg,
					TitleColor:      p.TooltipText,
					BodyColor:       p.TooltipText,
					BorderColor:     p.TooltipEdge,
					BorderWidth:     1,
					Padding:         12,
					CornerRadius:    8,
				},
				DataLabels: ChartDataLabels{
					Color:        p.DataLabel,
					Anchor:       "end",
					Align:        "top",
					Font:         ChartFont{Weight: "bold", Size: 11},
					TextShadow:   "0 1px 2px rgba(0, 0, 0, 0.4)",
					DisplayFirst: DataLabelsFirstN,
				},
			},
		},
		Gradient:       p.Gradient,
		CurrencyPrefix: CurrencyPrefix,
	}
}
