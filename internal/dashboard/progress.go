package dashboard

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	ProgressCeiling = 95.0
	ProgressMaxStep = 3.0
)

var phases = []struct {
	below  float64
	status string
}{
	{20, "Conectando ao serviço de dados..."},
	{40, "Coletando informações da Amazon..."},
	{60, "Processando dados com ColetorDadosAmazon..."},
	{80, "Analisando preços e avaliações..."},
}

const finalPhase = "Preparando visualização..."

// PhaseStatus is the loading message shown for a progress value.
func PhaseStatus(progress float64) string {
	for _, p := range phases {
		if progress < p.below {
			return p.status
		}
	}
	return finalPhase
}

// progressStep advances by rnd()*ProgressMaxStep while below the ceiling.
func progressStep(rnd func() float64) func(float64) (float64, string) {
	return func(p float64) (float64, string) {
		if p >= ProgressCeiling {
			return p, PhaseStatus(p)
		}
		next := p + rnd()*ProgressMaxStep
		if next > 100 {
			next = 100
		}
		return next, PhaseStatus(next)
	}
}

// background is a goroutine owned by exactly one cycle. stop cancels it and waits, so once
// stop returns nothing from that cycle can touch the mount.
type background struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startBackground(fn func(ctx context.Context)) *background {
	ctx, cancel := context.WithCancel(context.Background())
	b := &background{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(b.done)
		fn(ctx)
	}()
	return b
}

func (b *background) stop() {
	if b == nil {
		return
	}
	b.cancel()
	<-b.done
}

// tickerGauge counts live progress tickers and remembers the peak.
type tickerGauge struct {
	live atomic.Int32
	peak atomic.Int32
}

func (g *tickerGauge) inc() {
	n := g.live.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *tickerGauge) dec() {
	g.live.Add(-1)
}

func runTicker(ctx context.Context, interval time.Duration, gauge *tickerGauge, tick func()) {
	gauge.inc()
	defer gauge.dec()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
