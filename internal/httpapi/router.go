package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/dashboard"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/httpclient"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

type Router struct {
	Dashboard   *dashboard.Orchestrator
	Categories  []model.Category
	Limiter     *RateLimiter
	LogRequests bool

	hub *Hub
}

// Hub returns the websocket hub, creating it on first use.
func (rt *Router) Hub() *Hub {
	if rt.hub == nil {
		rt.hub = NewHub()
	}
	return rt.hub
}

func (rt *Router) Handler() http.Handler {
	rt.Hub()
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if !allowOnlyGet(w, r) {
			return
		}
		rt.servePage(w, r)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		st := rt.Dashboard.Context().State()
		writeJSON(w, 200, map[string]any{
			"ok":      true,
			"state":   st.Kind,
			"cycle":   st.Cycle,
			"clients": rt.hub.Count(),
		})
	})

	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		writeJSON(w, 200, openapiSpec())
	})

	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/docs/", http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/" {
			http.NotFound(w, r)
			return
		}
		if !allowOnlyGet(w, r) {
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(swaggerUIHTML("/openapi.json")))
	})

	mux.HandleFunc("/ws/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		rt.serveWebSocket(w, r)
	})

	mux.HandleFunc("/api/dashboard/state", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		writeJSON(w, 200, map[string]any{"data": rt.Dashboard.Context().Snapshot()})
	})

	mux.HandleFunc("/api/dashboard/refresh", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyPost(w, r) {
			return
		}
		if !rt.Limiter.Allow(clientKey(r)) {
			writeTooManyRequests(w)
			return
		}
		cycle, err := rt.Dashboard.Refresh(r.Context())
		if err != nil {
			writeCycleError(w, err)
			return
		}
		writeJSON(w, 202, map[string]any{"data": map[string]any{
			"cycle":  cycle,
			"source": rt.Dashboard.CurrentSource(),
		}})
	})

	mux.HandleFunc("/api/dashboard/category", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyPost(w, r) {
			return
		}
		source := strings.TrimSpace(r.URL.Query().Get("url"))
		if err := httpclient.ValidateSource(source); err != nil || source == "" {
			writeJSON(w, 400, map[string]any{
				"error":   httpclient.ErrInvalidSourceURL.Error(),
				"message": "Informe uma URL http(s) em ?url=",
			})
			return
		}
		if !rt.Limiter.Allow(clientKey(r)) {
			writeTooManyRequests(w)
			return
		}
		cycle, err := rt.Dashboard.SelectCategory(r.Context(), source)
		if err != nil {
			writeCycleError(w, err)
			return
		}
		writeJSON(w, 202, map[string]any{"data": map[string]any{
			"cycle":  cycle,
			"source": source,
		}})
	})

	mux.HandleFunc("/api/theme", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"theme": rt.Dashboard.Context().Theme()}})
	})

	mux.HandleFunc("/api/theme/toggle", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyPost(w, r) {
			return
		}
		t, err := rt.Dashboard.ToggleTheme(r.Context())
		if err != nil {
			log.Printf("[theme] level=error toggle failed: %v\n", err)
			writeJSON(w, 500, map[string]any{"error": "internal_error"})
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]any{"theme": t}})
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if !allowOnlyGet(w, r) {
			return
		}
		data := rt.Categories
		if data == nil {
			data = []model.Category{}
		}
		writeJSON(w, 200, map[string]any{"data": data})
	})

	if !rt.LogRequests {
		return mux
	}

	return withRequestLogging(mux)
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("retry-after", "1")
	writeJSON(w, 429, map[string]any{"error": "Muitas requisições, aguarde"})
}

func writeCycleError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrClosed) {
		writeJSON(w, 503, map[string]any{"error": "unavailable"})
		return
	}
	writeJSON(w, 500, map[string]any{"error": "internal_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusCapturingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack keeps websocket upgrades working behind the logging middleware.
func (w *statusCapturingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &statusCapturingResponseWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(rw, r)
		dur := time.Since(started)

		meta := fmt.Sprintf("method=%s path=%s status=%d duration_ms=%d", r.Method, r.URL.Path, rw.status, dur.Milliseconds())
		if rw.status >= 500 {
			log.Printf("http level=error %s\n", meta)
		} else if rw.status >= 400 {
			log.Printf("http level=warn %s\n", meta)
		} else {
			log.Printf("http level=info %s\n", meta)
		}
	})
}
