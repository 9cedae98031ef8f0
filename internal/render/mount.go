package render

import (
	"sync"

	"github.com/google/uuid"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

// ChartOp is one instruction for the page: destroy the live chart or create a new one.
type ChartOp struct {
	Kind     model.EventType `json:"kind"`
	Canvas   string          `json:"canvas"`
	Instance string          `json:"instance"`
	Config   *ChartConfig    `json:"config,omitempty"`
}

// ChartMount owns the single chart bound to one canvas. Replace always disposes the live
// instance before creating the next one, so the page never holds two.
type ChartMount struct {
	mu       sync.Mutex
	canvasID string
	emit     func(ChartOp)

	instance string
	config   *ChartConfig
}

func NewChartMount(canvasID string, emit func(ChartOp)) *ChartMount {
	if emit == nil {
		emit = func(ChartOp) {}
	}
	return &ChartMount{canvasID: canvasID, emit: emit}
}

func (m *ChartMount) CanvasID() string {
	return m.canvasID
}

// Replace swaps the live chart for cfg and returns the new instance id.
func (m *ChartMount) Replace(cfg ChartConfig) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.disposeLocked()

	id := uuid.NewString()
	c := cfg
	m.instance = id
	m.config = &c
	m.emit(ChartOp{Kind: model.EventChartCreate, Canvas: m.canvasID, Instance: id, Config: &c})
	return id
}

// Dispose destroys the live chart, if any.
func (m *ChartMount) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposeLocked()
}

// Live returns the current chart, for clients that attach after it was created.
func (m *ChartMount) Live() (ChartOp, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return ChartOp{}, false
	}
	c := *m.config
	return ChartOp{Kind: model.EventChartCreate, Canvas: m.canvasID, Instance: m.instance, Config: &c}, true
}

func (m *ChartMount) disposeLocked() {
	if m.config == nil {
		return
	}
	m.emit(ChartOp{Kind: model.EventChartDestroy, Canvas: m.canvasID, Instance: m.instance})
	m.instance = ""
	m.config = nil
}
