// Package dashboard holds the per-mount view state and the fetch cycle that drives it.
package dashboard

import (
	"log"
	"sync"
	"time"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/render"
)

const DefaultSubscriberBuffer = 64

// Regions is the rendered HTML of one committed frame.
type Regions struct {
	StatsCards   string `json:"stats_cards"`
	Products     string `json:"products"`
	ProductCount string `json:"product_count"`
}

type ProgressData struct {
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
}

type ThemeData struct {
	Theme model.Theme `json:"theme"`
}

// Snapshot is everything a client needs to draw the mount from scratch.
type Snapshot struct {
	Mount      string           `json:"mount"`
	State      model.UIState    `json:"state"`
	Visibility model.Visibility `json:"visibility"`
	Theme      model.Theme      `json:"theme"`
	Regions    *Regions         `json:"regions,omitempty"`
	Chart      *render.ChartOp  `json:"chart,omitempty"`
}

// DashboardContext is the view state of one mount point. Only the orchestrator and the
// render pipeline mutate it; everyone else reads snapshots or subscribes to events.
type DashboardContext struct {
	mount string
	now   func() time.Time

	mu         sync.RWMutex
	state      model.UIState
	visibility model.Visibility
	theme      model.Theme
	regions    *Regions

	chart *render.ChartMount

	subMu   sync.Mutex
	subs    map[uint64]chan model.Event
	nextSub uint64
}

func NewDashboardContext(mount string, theme model.Theme) *DashboardContext {
	dc := &DashboardContext{
		mount: mount,
		now:   time.Now,
		state: model.UIState{Kind: model.StateIdle},
		theme: theme,
		subs:  map[uint64]chan model.Event{},
	}
	dc.chart = render.NewChartMount(render.ChartCanvasID, func(op render.ChartOp) {
		dc.publish(op.Kind, dc.cycle(), op)
	})
	return dc
}

func (dc *DashboardContext) Mount() string {
	return dc.mount
}

func (dc *DashboardContext) State() model.UIState {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.state
}

func (dc *DashboardContext) Visibility() model.Visibility {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.visibility
}

func (dc *DashboardContext) Theme() model.Theme {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.theme
}

func (dc *DashboardContext) Snapshot() Snapshot {
	dc.mu.RLock()
	s := Snapshot{
		Mount:      dc.mount,
		State:      dc.state,
		Visibility: dc.visibility,
		Theme:      dc.theme,
	}
	if dc.regions != nil {
		r := *dc.regions
		s.Regions = &r
	}
	dc.mu.RUnlock()

	if op, ok := dc.chart.Live(); ok {
		s.Chart = &op
	}
	return s
}

// Subscribe returns a buffered event stream. Events are dropped for subscribers that fall
// behind; the returned func unsubscribes and closes the channel.
func (dc *DashboardContext) Subscribe(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan model.Event, buffer)

	dc.subMu.Lock()
	id := dc.nextSub
	dc.nextSub++
	dc.subs[id] = ch
	dc.subMu.Unlock()

	return ch, func() {
		dc.subMu.Lock()
		defer dc.subMu.Unlock()
		if _, ok := dc.subs[id]; ok {
			delete(dc.subs, id)
			close(ch)
		}
	}
}

func (dc *DashboardContext) cycle() uint64 {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.state.Cycle
}

func (dc *DashboardContext) publish(t model.EventType, cycle uint64, data any) {
	ev := model.Event{
		Type:      t,
		Mount:     dc.mount,
		Cycle:     cycle,
		Timestamp: dc.now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}

	dc.subMu.Lock()
	defer dc.subMu.Unlock()
	for id, ch := range dc.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[dashboard] level=warn slow subscriber, event dropped mount=%s sub=%d type=%s\n", dc.mount, id, t)
		}
	}
}

// setLoading resets the mount for a new cycle.
func (dc *DashboardContext) setLoading(cycle uint64, cycleID, source, status string) model.UIState {
	dc.mu.Lock()
	dc.state = model.UIState{
		Kind:      model.StateLoading,
		Cycle:     cycle,
		CycleID:   cycleID,
		Source:    source,
		Status:    status,
		UpdatedAt: dc.now(),
	}
	dc.visibility = model.Visibility{LoadingOverlay: true, OverlayOpacity: 1}
	st, vis := dc.state, dc.visibility
	dc.mu.Unlock()

	dc.publish(model.EventState, cycle, st)
	dc.publish(model.EventVisibility, cycle, vis)
	return st
}

// advanceProgress applies one ticker step if cycle is still loading.
func (dc *DashboardContext) advanceProgress(cycle uint64, step func(float64) (float64, string)) bool {
	dc.mu.Lock()
	if dc.state.Cycle != cycle || dc.state.Kind != model.StateLoading {
		dc.mu.Unlock()
		return false
	}
	p, status := step(dc.state.Progress)
	if p == dc.state.Progress {
		dc.mu.Unlock()
		return false
	}
	dc.state.Progress = p
	dc.state.Status = status
	dc.state.UpdatedAt = dc.now()
	dc.mu.Unlock()

	dc.publish(model.EventProgress, cycle, ProgressData{Progress: p, Status: status})
	return true
}

// commitContent installs a fully rendered frame. Regions, state and chart change together.
func (dc *DashboardContext) commitContent(base model.UIState, frame render.Frame) model.UIState {
	stats := frame.Statistics
	regions := &Regions{
		StatsCards:   string(frame.StatsCards),
		Products:     string(frame.Products),
		ProductCount: frame.ProductCount,
	}

	dc.mu.Lock()
	dc.state = model.UIState{
		Kind:       model.StateContent,
		Cycle:      base.Cycle,
		CycleID:    base.CycleID,
		Source:     base.Source,
		Progress:   100,
		Status:     base.Status,
		Statistics: &stats,
		Products:   frame.Items,
		UpdatedAt:  dc.now(),
	}
	dc.regions = regions
	dc.visibility = model.Visibility{LoadingOverlay: true, OverlayOpacity: 1}
	st, vis := dc.state, dc.visibility
	dc.mu.Unlock()

	dc.publish(model.EventProgress, st.Cycle, ProgressData{Progress: 100, Status: st.Status})
	dc.publish(model.EventRegions, st.Cycle, *regions)
	dc.chart.Replace(frame.Chart)
	dc.publish(model.EventState, st.Cycle, st)
	dc.publish(model.EventVisibility, st.Cycle, vis)
	return st
}

func (dc *DashboardContext) commitError(base model.UIState, message string) model.UIState {
	dc.mu.Lock()
	dc.state = model.UIState{
		Kind:      model.StateError,
		Cycle:     base.Cycle,
		CycleID:   base.CycleID,
		Source:    base.Source,
		Progress:  base.Progress,
		Message:   message,
		UpdatedAt: dc.now(),
	}
	dc.visibility = model.Visibility{ErrorBanner: true}
	st, vis := dc.state, dc.visibility
	dc.mu.Unlock()

	dc.publish(model.EventState, st.Cycle, st)
	dc.publish(model.EventVisibility, st.Cycle, vis)
	return st
}

// setVisibility applies a fade step, but only while cycle is still the committed one.
func (dc *DashboardContext) setVisibility(cycle uint64, vis model.Visibility) bool {
	dc.mu.Lock()
	if dc.state.Cycle != cycle || dc.state.Kind != model.StateContent {
		dc.mu.Unlock()
		return false
	}
	dc.visibility = vis
	dc.mu.Unlock()

	dc.publish(model.EventVisibility, cycle, vis)
	return true
}

func (dc *DashboardContext) setTheme(t model.Theme) {
	dc.mu.Lock()
	dc.theme = t
	cycle := dc.state.Cycle
	dc.mu.Unlock()

	dc.publish(model.EventTheme, cycle, ThemeData{Theme: t})
}

// Close disposes the chart and drops every subscriber.
func (dc *DashboardContext) Close() {
	dc.chart.Dispose()

	dc.subMu.Lock()
	defer dc.subMu.Unlock()
	for id, ch := range dc.subs {
		delete(dc.subs, id)
		close(ch)
	}
}
