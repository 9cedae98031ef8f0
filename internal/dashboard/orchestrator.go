package dashboard

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/config"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/envelope"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/httpclient"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/render"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/telemetry"
)

var (
	// ErrStaleCycle is returned by Run when a newer cycle replaced this one before it resolved.
	ErrStaleCycle = errors.New("cycle superseded by a newer one")
	ErrClosed     = errors.New("dashboard closed")
)

type Fetcher interface {
	FetchData(ctx context.Context, source string) (any, error)
}

type ThemeToggler interface {
	Toggle(ctx context.Context) (model.Theme, error)
}

type Options struct {
	TickInterval time.Duration
	FadeDelay    time.Duration
	StalePolicy  config.StalePolicy
	// Rand returns values in [0, 1); defaults to math/rand.
	Rand      func() float64
	Telemetry *telemetry.Provider
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.FadeDelay < 0 {
		o.FadeDelay = 0
	}
	if o.StalePolicy == "" {
		o.StalePolicy = config.DropStale
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.Noop()
	}
	return o
}

// Orchestrator runs fetch cycles for one DashboardContext. Each cycle owns its progress
// ticker and fade timers; starting a cycle stops and waits for the previous cycle's.
type Orchestrator struct {
	dc       *DashboardContext
	backend  Fetcher
	themes   ThemeToggler
	renderer *render.Renderer
	opts     Options
	step     func(float64) (float64, string)
	tickers  tickerGauge

	mu          sync.Mutex
	cycle       uint64
	source      string
	ticker      *background
	fade        *background
	cancelFetch context.CancelFunc
	closed      bool
	inflight    sync.WaitGroup
}

func NewOrchestrator(dc *DashboardContext, backend Fetcher, themes ThemeToggler, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		dc:       dc,
		backend:  backend,
		themes:   themes,
		renderer: render.NewRenderer(),
		opts:     opts,
		step:     progressStep(opts.Rand),
	}
}

func (o *Orchestrator) Context() *DashboardContext {
	return o.dc
}

// TickerStats reports live progress tickers and the peak since the last call.
func (o *Orchestrator) TickerStats() (live, peak int32) {
	live = o.tickers.live.Load()
	peak = o.tickers.peak.Swap(live)
	return live, peak
}

func (o *Orchestrator) CurrentSource() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.source
}

// Start begins a cycle in the background and returns its sequence number.
func (o *Orchestrator) Start(ctx context.Context, source string) (uint64, error) {
	base, fetchCtx, cancel, err := o.begin(context.WithoutCancel(ctx), source)
	if err != nil {
		return 0, err
	}

	go func() {
		defer o.inflight.Done()
		defer cancel()
		_, _ = o.run(fetchCtx, base)
	}()
	return base.Cycle, nil
}

// Run executes one whole cycle and returns its terminal state.
func (o *Orchestrator) Run(ctx context.Context, source string) (model.UIState, error) {
	base, fetchCtx, cancel, err := o.begin(ctx, source)
	if err != nil {
		return model.UIState{}, err
	}
	defer o.inflight.Done()
	defer cancel()
	return o.run(fetchCtx, base)
}

// SelectCategory starts a cycle for a sidebar category.
func (o *Orchestrator) SelectCategory(ctx context.Context, url string) (uint64, error) {
	return o.Start(ctx, url)
}

// Refresh re-runs the current source.
func (o *Orchestrator) Refresh(ctx context.Context) (uint64, error) {
	return o.Start(ctx, o.CurrentSource())
}

// ToggleTheme persists the flipped theme and redraws the chart with its palette.
func (o *Orchestrator) ToggleTheme(ctx context.Context) (model.Theme, error) {
	t, err := o.themes.Toggle(ctx)
	if err != nil {
		return o.dc.Theme(), err
	}
	o.ApplyTheme(t)
	return t, nil
}

func (o *Orchestrator) ApplyTheme(t model.Theme) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dc.setTheme(t)
	st := o.dc.State()
	if st.Kind == model.StateContent && st.Statistics != nil {
		o.dc.chart.Replace(render.BuildChart(*st.Statistics, t))
	}
}

// Close stops the current cycle and waits for in-flight ones.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cycle++
	if o.cancelFetch != nil {
		o.cancelFetch()
	}
	o.ticker.stop()
	o.ticker = nil
	o.fade.stop()
	o.fade = nil
	o.mu.Unlock()

	o.inflight.Wait()
	o.dc.Close()
}

func (o *Orchestrator) begin(ctx context.Context, source string) (model.UIState, context.Context, context.CancelFunc, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return model.UIState{}, nil, nil, ErrClosed
	}

	o.ticker.stop()
	o.ticker = nil
	o.fade.stop()
	o.fade = nil
	if o.opts.StalePolicy == config.DropStale && o.cancelFetch != nil {
		o.cancelFetch()
	}

	o.cycle++
	o.source = source
	cycle := o.cycle

	fetchCtx, cancel := context.WithCancel(ctx)
	o.cancelFetch = cancel
	o.inflight.Add(1)

	base := o.dc.setLoading(cycle, uuid.NewString(), source, PhaseStatus(0))
	o.ticker = startBackground(func(ctx context.Context) {
		runTicker(ctx, o.opts.TickInterval, &o.tickers, func() {
			o.dc.advanceProgress(cycle, o.step)
		})
	})

	o.opts.Telemetry.CycleStarted(ctx, o.dc.Mount())
	log.Printf("[dashboard] cycle_start mount=%s cycle=%d id=%s source=%q\n", o.dc.Mount(), cycle, base.CycleID, source)
	return base, fetchCtx, cancel, nil
}

func (o *Orchestrator) run(ctx context.Context, base model.UIState) (model.UIState, error) {
	start := time.Now()

	resp, err := o.fetch(ctx, base.Source)
	var frame render.Frame
	if err == nil {
		var payload envelope.Payload
		payload, err = envelope.Normalize(resp)
		if err == nil {
			stats := payload.Statistics
			frame, err = o.renderer.Render(&stats, payload.Products, o.dc.Theme())
		}
	}

	return o.finish(ctx, base, frame, err, time.Since(start))
}

func (o *Orchestrator) fetch(ctx context.Context, source string) (any, error) {
	ctx, span := o.opts.Telemetry.StartFetch(ctx, source)
	resp, err := o.backend.FetchData(ctx, source)
	telemetry.EndFetch(span, err)
	return resp, err
}

func (o *Orchestrator) finish(ctx context.Context, base model.UIState, frame render.Frame, err error, elapsed time.Duration) (model.UIState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := base.Cycle == o.cycle
	if o.closed || (!current && o.opts.StalePolicy != config.LastResolvedWins) {
		log.Printf("[dashboard] level=warn stale response dropped mount=%s cycle=%d current=%d\n", o.dc.Mount(), base.Cycle, o.cycle)
		return model.UIState{}, ErrStaleCycle
	}

	if current {
		o.ticker.stop()
		o.ticker = nil
	}

	var st model.UIState
	if err != nil {
		msg := ErrorMessage(err)
		log.Printf("[dashboard] level=error cycle_failed mount=%s cycle=%d source=%q elapsed=%s err=%v\n", o.dc.Mount(), base.Cycle, base.Source, elapsed.Round(time.Millisecond), err)
		st = o.dc.commitError(base, msg)
	} else {
		if theme := o.dc.Theme(); frame.Theme != theme {
			frame.Chart = render.BuildChart(frame.Statistics, theme)
			frame.Theme = theme
		}
		st = o.dc.commitContent(base, frame)
		o.startFadeLocked(base.Cycle)
		log.Printf("[dashboard] cycle_done mount=%s cycle=%d products=%d elapsed=%s\n", o.dc.Mount(), base.Cycle, len(frame.Items), elapsed.Round(time.Millisecond))
	}

	o.opts.Telemetry.CycleFinished(ctx, o.dc.Mount(), string(st.Kind), elapsed, err != nil)
	return st, nil
}

// startFadeLocked fades the overlay out and then reveals the content, FadeDelay per step.
func (o *Orchestrator) startFadeLocked(cycle uint64) {
	o.fade.stop()
	o.fade = nil

	fading := model.Visibility{LoadingOverlay: true, OverlayOpacity: 0}
	shown := model.Visibility{MainContent: true}

	d := o.opts.FadeDelay
	if d <= 0 {
		o.dc.setVisibility(cycle, shown)
		return
	}

	o.fade = startBackground(func(ctx context.Context) {
		if sleepCtx(ctx, d) != nil {
			return
		}
		o.dc.setVisibility(cycle, fading)
		if sleepCtx(ctx, d) != nil {
			return
		}
		o.dc.setVisibility(cycle, shown)
	})
}

// ErrorMessage maps a cycle failure to the text shown in the error banner.
func ErrorMessage(err error) string {
	var backendErr *httpclient.BackendError
	var httpErr *httpclient.HTTPError
	switch {
	case errors.As(err, &backendErr):
		return backendErr.Message
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.Is(err, httpclient.ErrInvalidSourceURL):
		return httpclient.ErrInvalidSourceURL.Error()
	case errors.Is(err, envelope.ErrInvalidFormat):
		return envelope.ErrInvalidFormat.Error()
	case errors.Is(err, render.ErrMalformedAggregate):
		return render.ErrMalformedAggregate.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "Tempo esgotado ao carregar dados"
	}
	return httpclient.DefaultErrorMsg
}
