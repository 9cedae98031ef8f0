package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/config"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/envelope"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/httpclient"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/render"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/theme"
)

type fetchFunc func(ctx context.Context, source string) (any, error)

func (f fetchFunc) FetchData(ctx context.Context, source string) (any, error) {
	return f(ctx, source)
}

func productList() any {
	return []any{
		map[string]any{"titulo": "Fone", "preco": "R$ 100,00", "avaliacao": 4.5},
		map[string]any{"titulo": "Mouse", "preco": "R$ 50,00"},
	}
}

func newTestOrchestrator(t *testing.T, backend Fetcher, opts Options) (*Orchestrator, <-chan model.Event) {
	t.Helper()
	dc := NewDashboardContext("main", model.ThemeLight)
	events, _ := dc.Subscribe(4096)
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Millisecond
	}
	o := NewOrchestrator(dc, backend, theme.NewService(theme.NewMemoryStore()), opts)
	return o, events
}

func drain(o *Orchestrator, events <-chan model.Event) []model.Event {
	o.Close()
	var out []model.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRun_Content(t *testing.T) {
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		return productList(), nil
	})
	o, events := newTestOrchestrator(t, backend, Options{})

	st, err := o.Run(context.Background(), "https://www.amazon.com.br/gp/bestsellers")
	require.NoError(t, err)
	assert.Equal(t, model.StateContent, st.Kind)
	assert.Equal(t, 100.0, st.Progress)
	require.NotNil(t, st.Statistics)
	assert.Equal(t, 75.0, st.Statistics.Mean)
	require.Len(t, st.Products, 2)
	assert.Equal(t, "Fone", st.Products[0].Name)

	vis := o.Context().Visibility()
	assert.True(t, vis.MainContent)
	assert.False(t, vis.LoadingOverlay)
	assert.False(t, vis.ErrorBanner)
	assert.Equal(t, int32(0), o.tickers.live.Load())

	snap := o.Context().Snapshot()
	require.NotNil(t, snap.Regions)
	assert.Equal(t, "2 produtos", snap.Regions.ProductCount)
	require.NotNil(t, snap.Chart)

	var kinds []model.EventType
	for _, ev := range drain(o, events) {
		kinds = append(kinds, ev.Type)
	}
	assert.Contains(t, kinds, model.EventRegions)
	assert.Contains(t, kinds, model.EventChartCreate)
}

func TestRun_HTTPErrorEndsInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	o, events := newTestOrchestrator(t, httpclient.New(srv.URL, time.Second), Options{})

	st, err := o.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.StateError, st.Kind)
	assert.Contains(t, st.Message, "404")
	assert.Nil(t, st.Statistics)

	vis := o.Context().Visibility()
	assert.True(t, vis.ErrorBanner)
	assert.False(t, vis.MainContent)
	assert.False(t, vis.LoadingOverlay)
	assert.Equal(t, int32(0), o.tickers.live.Load())

	for _, ev := range drain(o, events) {
		if ev.Type == model.EventVisibility {
			assert.False(t, ev.Data.(model.Visibility).MainContent, "content must never be shown")
		}
		assert.NotEqual(t, model.EventRegions, ev.Type)
	}
}

func TestRun_FailureMessages(t *testing.T) {
	cases := []struct {
		name   string
		source string
		resp   any
		err    error
		want   string
	}{
		{name: "invalid source", source: "www.amazon.com.br", want: "URL de origem inválida"},
		{name: "backend error", err: &httpclient.BackendError{Message: "Agente offline"}, want: "Agente offline"},
		{name: "unknown shape", resp: map[string]any{"foo": 1.0}, want: "Formato de dados não reconhecido"},
		{name: "generic", err: errors.New("boom"), want: "Erro ao carregar dados"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
				if err := httpclient.ValidateSource(source); err != nil {
					return nil, err
				}
				return tc.resp, tc.err
			})
			o, _ := newTestOrchestrator(t, backend, Options{})
			defer o.Close()

			st, err := o.Run(context.Background(), tc.source)
			require.NoError(t, err)
			assert.Equal(t, model.StateError, st.Kind)
			assert.Equal(t, tc.want, st.Message)
		})
	}
}

func TestRun_ExactlyOneTerminalState(t *testing.T) {
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		return productList(), nil
	})
	o, events := newTestOrchestrator(t, backend, Options{FadeDelay: 5 * time.Millisecond})

	_, err := o.Run(context.Background(), "")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	terminal := 0
	for _, ev := range drain(o, events) {
		if ev.Type == model.EventState && ev.Data.(model.UIState).Terminal() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestProgressTicker_AdvancesUntilCeiling(t *testing.T) {
	release := make(chan struct{})
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return productList(), nil
	})
	o, _ := newTestOrchestrator(t, backend, Options{Rand: func() float64 { return 1 }})
	defer o.Close()

	_, err := o.Start(context.Background(), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return o.Context().State().Progress >= ProgressCeiling
	}, 2*time.Second, time.Millisecond)

	st := o.Context().State()
	assert.Equal(t, model.StateLoading, st.Kind)
	assert.LessOrEqual(t, st.Progress, ProgressCeiling+ProgressMaxStep)
	assert.Equal(t, "Preparando visualização...", st.Status)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, st.Progress, o.Context().State().Progress, "progress must stop at the ceiling")

	close(release)
	require.Eventually(t, func() bool {
		return o.Context().State().Kind == model.StateContent
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 100.0, o.Context().State().Progress)
}

func TestStart_ConsecutiveSwitchesKeepOneTicker(t *testing.T) {
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	o, _ := newTestOrchestrator(t, backend, Options{})

	for _, src := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := o.SelectCategory(context.Background(), src)
		require.NoError(t, err)
		time.Sleep(3 * time.Millisecond)
	}

	assert.LessOrEqual(t, o.tickers.peak.Load(), int32(1))
	assert.Equal(t, "https://c.example", o.CurrentSource())

	o.Close()
	assert.Equal(t, int32(0), o.tickers.live.Load())
}

type gatedBackend struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedBackend(sources ...string) *gatedBackend {
	g := &gatedBackend{gates: map[string]chan struct{}{}}
	for _, s := range sources {
		g.gates[s] = make(chan struct{})
	}
	return g
}

func (g *gatedBackend) FetchData(ctx context.Context, source string) (any, error) {
	g.mu.Lock()
	gate := g.gates[source]
	g.mu.Unlock()
	<-gate
	return []any{map[string]any{"name": source, "price": 10.0}}, nil
}

func (g *gatedBackend) release(source string) {
	close(g.gates[source])
}

func TestStalePolicy_DropStale(t *testing.T) {
	backend := newGatedBackend("https://old.example", "https://new.example")
	o, _ := newTestOrchestrator(t, backend, Options{StalePolicy: config.DropStale})
	defer o.Close()

	oldCycle, err := o.Start(context.Background(), "https://old.example")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), "https://new.example")
		done <- err
	}()
	require.Eventually(t, func() bool { return o.CurrentSource() == "https://new.example" }, time.Second, time.Millisecond)

	backend.release("https://old.example")
	time.Sleep(20 * time.Millisecond)
	st := o.Context().State()
	assert.Equal(t, model.StateLoading, st.Kind, "stale response must not be applied")
	assert.NotEqual(t, oldCycle, st.Cycle)

	backend.release("https://new.example")
	require.NoError(t, <-done)
	st = o.Context().State()
	assert.Equal(t, model.StateContent, st.Kind)
	assert.Equal(t, "https://new.example", st.Products[0].Name)
}

func TestStalePolicy_LastResolvedWins(t *testing.T) {
	backend := newGatedBackend("https://old.example", "https://new.example")
	o, _ := newTestOrchestrator(t, backend, Options{StalePolicy: config.LastResolvedWins})
	defer o.Close()

	results := make(chan model.UIState, 2)
	go func() {
		st, _ := o.Run(context.Background(), "https://old.example")
		results <- st
	}()
	require.Eventually(t, func() bool { return o.CurrentSource() == "https://old.example" }, time.Second, time.Millisecond)
	go func() {
		st, _ := o.Run(context.Background(), "https://new.example")
		results <- st
	}()
	require.Eventually(t, func() bool { return o.CurrentSource() == "https://new.example" }, time.Second, time.Millisecond)

	backend.release("https://new.example")
	<-results
	backend.release("https://old.example")
	<-results

	st := o.Context().State()
	assert.Equal(t, model.StateContent, st.Kind)
	assert.Equal(t, "https://old.example", st.Products[0].Name)
}

func TestFade_SequenceAfterContent(t *testing.T) {
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		return productList(), nil
	})
	o, events := newTestOrchestrator(t, backend, Options{FadeDelay: 5 * time.Millisecond})

	_, err := o.Run(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, o.Context().Visibility().LoadingOverlay, "overlay stays up until the fade runs")

	require.Eventually(t, func() bool { return o.Context().Visibility().MainContent }, time.Second, time.Millisecond)

	var seq []model.Visibility
	for _, ev := range drain(o, events) {
		if ev.Type == model.EventVisibility {
			seq = append(seq, ev.Data.(model.Visibility))
		}
	}
	require.Len(t, seq, 4)
	assert.Equal(t, model.Visibility{LoadingOverlay: true, OverlayOpacity: 1}, seq[0])
	assert.Equal(t, model.Visibility{LoadingOverlay: true, OverlayOpacity: 1}, seq[1])
	assert.Equal(t, model.Visibility{LoadingOverlay: true, OverlayOpacity: 0}, seq[2])
	assert.Equal(t, model.Visibility{MainContent: true}, seq[3])
}

func TestFade_CancelledByNewCycle(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	block := make(chan struct{})
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return productList(), nil
	})
	o, _ := newTestOrchestrator(t, backend, Options{FadeDelay: 20 * time.Millisecond})
	defer close(block)
	defer o.Close()

	_, err := o.Run(context.Background(), "")
	require.NoError(t, err)
	_, err = o.Refresh(context.Background())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	vis := o.Context().Visibility()
	assert.False(t, vis.MainContent, "fade of the previous cycle must not reveal content")
	assert.True(t, vis.LoadingOverlay)
}

func TestToggleTheme_RedrawsChart(t *testing.T) {
	backend := fetchFunc(func(ctx context.Context, source string) (any, error) {
		return productList(), nil
	})
	o, events := newTestOrchestrator(t, backend, Options{})

	_, err := o.Run(context.Background(), "")
	require.NoError(t, err)

	got, err := o.ToggleTheme(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got)
	assert.Equal(t, model.ThemeDark, o.Context().Theme())

	all := drain(o, events)
	var chartOps []render.ChartOp
	sawTheme := false
	for _, ev := range all {
		switch ev.Type {
		case model.EventChartCreate, model.EventChartDestroy:
			chartOps = append(chartOps, ev.Data.(render.ChartOp))
		case model.EventTheme:
			sawTheme = true
		}
	}
	assert.True(t, sawTheme)

	// create, destroy+create on toggle, destroy on close
	require.Len(t, chartOps, 4)
	assert.Equal(t, model.EventChartDestroy, chartOps[1].Kind)
	assert.Equal(t, chartOps[0].Instance, chartOps[1].Instance)
	assert.Equal(t, model.EventChartCreate, chartOps[2].Kind)
	assert.Equal(t, render.PaletteFor(model.ThemeDark).Gradient, chartOps[2].Config.Gradient)
}

func TestStart_AfterClose(t *testing.T) {
	o, _ := newTestOrchestrator(t, fetchFunc(func(context.Context, string) (any, error) { return nil, nil }), Options{})
	o.Close()
	_, err := o.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPhaseStatus(t *testing.T) {
	assert.Equal(t, "Conectando ao serviço de dados...", PhaseStatus(0))
	assert.Equal(t, "Coletando informações da Amazon...", PhaseStatus(20))
	assert.Equal(t, "Processando dados com ColetorDadosAmazon...", PhaseStatus(59.9))
	assert.Equal(t, "Analisando preços e avaliações...", PhaseStatus(60))
	assert.Equal(t, "Preparando visualização...", PhaseStatus(80))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "HTTP 500: Internal Server Error", ErrorMessage(&httpclient.HTTPError{StatusCode: 500, Status: "Internal Server Error"}))
	assert.Equal(t, "Formato de dados não reconhecido", ErrorMessage(&envelope.FormatError{}))
	assert.Equal(t, render.ErrMalformedAggregate.Error(), ErrorMessage(render.ErrMalformedAggregate))
	assert.Equal(t, "Tempo esgotado ao carregar dados", ErrorMessage(context.DeadlineExceeded))
}

func TestSubscribe_SlowSubscriberDoesNotBlock(t *testing.T) {
	dc := NewDashboardContext("main", model.ThemeLight)
	_, unsubscribe := dc.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			dc.setTheme(model.ThemeDark)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}
