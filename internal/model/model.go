package model

import "time"

// RawProduct is one product record exactly as the backend returned it.
type RawProduct map[string]any

// CanonicalProduct is a product after field resolution. Values are never mutated once built.
type CanonicalProduct struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url"`
	LinkURL  string  `json:"url"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Rank     int     `json:"rank"`
}

// ChartStatistics uses the backend wire names so a precomputed block round-trips unchanged.
type ChartStatistics struct {
	Labels []string  `json:"labels"`
	Series []float64 `json:"precos"`
	Mean   float64   `json:"media"`
	Min    float64   `json:"minimo"`
	Max    float64   `json:"maximo"`
}

func EmptyStatistics() ChartStatistics {
	return ChartStatistics{
		Labels: []string{},
		Series: []float64{},
	}
}

type StateKind string

const (
	StateIdle    StateKind = "idle"
	StateLoading StateKind = "loading"
	StateContent StateKind = "content"
	StateError   StateKind = "error"
)

type UIState struct {
	Kind       StateKind          `json:"kind"`
	Cycle      uint64             `json:"cycle"`
	CycleID    string             `json:"cycle_id,omitempty"`
	Source     string             `json:"source,omitempty"`
	Progress   float64            `json:"progress"`
	Status     string             `json:"status,omitempty"`
	Statistics *ChartStatistics   `json:"statistics,omitempty"`
	Products   []CanonicalProduct `json:"products,omitempty"`
	Message    string             `json:"message,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (s UIState) Terminal() bool {
	return s.Kind == StateContent || s.Kind == StateError
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(raw string) Theme {
	if Theme(raw) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Category struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Visibility mirrors the three page areas that are shown or hidden per cycle.
type Visibility struct {
	LoadingOverlay bool    `json:"loading_overlay"`
	OverlayOpacity float64 `json:"overlay_opacity"`
	MainContent    bool    `json:"main_content"`
	ErrorBanner    bool    `json:"error_banner"`
}

type EventType string

const (
	EventState        EventType = "state"
	EventProgress     EventType = "progress"
	EventRegions      EventType = "regions"
	EventVisibility   EventType = "visibility"
	EventChartCreate  EventType = "chart_create"
	EventChartDestroy EventType = "chart_destroy"
	EventTheme        EventType = "theme"
)

type Event struct {
	Type      EventType `json:"type"`
	Mount     string    `json:"mount"`
	Cycle     uint64    `json:"cycle"`
	Timestamp string    `json:"timestamp"`
	Data      any       `json:"data"`
}
