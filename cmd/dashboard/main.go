package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/config"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/dashboard"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/httpapi"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/httpclient"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/telemetry"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/theme"
)

func statsInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("DASHBOARD_STATS_INTERVAL"))
	if raw == "" {
		return 0
	}

	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}

	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return 0
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[startup] level=warn .env not loaded: %v\n", err)
	}
	cfg := config.Load(os.Getenv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry error: %v", err)
	}

	store, err := theme.OpenStore(ctx, cfg.ThemeStore)
	if err != nil {
		log.Fatalf("theme store error: %v", err)
	}
	themes := theme.NewService(store)
	defer themes.Close()

	initial, err := themes.Current(ctx)
	if err != nil {
		log.Printf("[startup] level=warn theme read failed, using %s: %v\n", initial, err)
	}

	categories, err := config.LoadCategories(cfg.CategoriesFile)
	if err != nil {
		log.Fatalf("categories error: %v", err)
	}

	source := cfg.DefaultSource
	if source == "" && len(categories) > 0 {
		source = categories[0].URL
	}

	backend := httpclient.New(cfg.BackendURL, cfg.HTTPClientTimeout)
	dc := dashboard.NewDashboardContext("main", initial)
	orch := dashboard.NewOrchestrator(dc, backend, themes, dashboard.Options{
		TickInterval: cfg.ProgressTick,
		FadeDelay:    cfg.FadeDelay,
		StalePolicy:  cfg.StalePolicy,
		Telemetry:    tel,
	})

	rt := &httpapi.Router{
		Dashboard:   orch,
		Categories:  categories,
		Limiter:     httpapi.NewRateLimiter(cfg.RefreshRPS, cfg.RefreshBurst),
		LogRequests: cfg.LogRequests,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("server_start port=%d backend=%s theme_store=%s stale_policy=%s\n", cfg.Port, cfg.BackendURL, strings.SplitN(cfg.ThemeStore, ":", 2)[0], cfg.StalePolicy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http error: %v", err)
		}
	}()

	if _, err := orch.Start(ctx, source); err != nil {
		log.Printf("[startup] level=error first cycle not started: %v\n", err)
	}

	if interval := statsInterval(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					live, peak := orch.TickerStats()
					st := dc.State()
					log.Printf("[stats] state=%s cycle=%d tickers=%d tickers_peak=%d clients=%d\n", st.Kind, st.Cycle, live, peak, rt.Hub().Count())
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("shutdown signal received, stopping...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	rt.Hub().CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v\n", err)
	}
	orch.Close()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown error: %v\n", err)
	}

	wg.Wait()
	log.Println("shutdown complete")
}
