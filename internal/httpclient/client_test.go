package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/envelope"
)

func TestFetchData_SendsSourceAndNoCacheHeaders(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": []}`))
	}))
	defer srv.Close()

	b := New(srv.URL+"/", 5*time.Second)
	b.now = func() time.Time { return time.UnixMilli(1700000000123) }

	body, err := b.FetchData(context.Background(), "https://www.amazon.com.br/s?k=fone&i=electronics")
	if err != nil {
		t.Fatalf("FetchData failed: %v", err)
	}
	if _, ok := body.(map[string]any); !ok {
		t.Fatalf("expected object body, got %T", body)
	}

	if got.URL.Path != FetchDataPath {
		t.Fatalf("expected path %q, got %q", FetchDataPath, got.URL.Path)
	}
	if src := got.URL.Query().Get("source"); src != "https://www.amazon.com.br/s?k=fone&i=electronics" {
		t.Fatalf("expected source to round-trip, got %q", src)
	}
	if ts := got.URL.Query().Get("_t"); ts != "1700000000123" {
		t.Fatalf("expected cache buster 1700000000123, got %q", ts)
	}
	if cc := got.Header.Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Fatalf("unexpected Cache-Control %q", cc)
	}
	if got.Header.Get("Pragma") != "no-cache" || got.Header.Get("Expires") != "0" {
		t.Fatalf("expected Pragma and Expires no-cache headers")
	}
	if got.Header.Get("Accept") != "application/json" {
		t.Fatalf("expected Accept application/json")
	}
}

func TestFetchData_OmitsEmptySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["source"]; ok {
			t.Errorf("expected no source parameter")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	body, err := New(srv.URL, time.Second).FetchData(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchData failed: %v", err)
	}
	if _, ok := body.([]any); !ok {
		t.Fatalf("expected bare array to pass through, got %T", body)
	}
}

func TestFetchData_InvalidSourceMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	for _, src := range []string{"ftp://x", "www.amazon.com.br", "javascript:alert(1)"} {
		_, err := New(srv.URL, time.Second).FetchData(context.Background(), src)
		if !errors.Is(err, ErrInvalidSourceURL) {
			t.Fatalf("source %q: expected ErrInvalidSourceURL, got %v", src, err)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no request to be made")
	}

	if err := ValidateSource("HTTPS://EXAMPLE.COM"); err != nil {
		t.Fatalf("expected scheme check to be case-insensitive, got %v", err)
	}
}

func TestFetchData_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).FetchData(context.Background(), "")
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %T %v", err, err)
	}
	if herr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", herr.StatusCode)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected message to contain status code, got %q", err.Error())
	}
	if err.Error() != "HTTP 404: Not Found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFetchData_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).FetchData(context.Background(), "")
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.Cause == nil {
		t.Fatalf("expected transport *HTTPError, got %v", err)
	}
}

func TestFetchData_BackendFailure(t *testing.T) {
	cases := map[string]string{
		`{"success": false, "error": "Agente indisponível"}`: "Agente indisponível",
		`{"success": false}`:                                 DefaultErrorMsg,
		`{"produtos": [], "dados_grafico": {}}`:              DefaultErrorMsg,
	}

	for body, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := New(srv.URL, time.Second).FetchData(context.Background(), "")
		srv.Close()

		var berr *BackendError
		if !errors.As(err, &berr) {
			t.Fatalf("body %s: expected *BackendError, got %v", body, err)
		}
		if berr.Message != want {
			t.Fatalf("body %s: expected %q, got %q", body, want, berr.Message)
		}
	}
}

func TestFetchData_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	body, err := New(srv.URL, time.Second).FetchData(context.Background(), "")
	if err == nil {
		t.Fatalf("expected decode error, got %v", body)
	}
	if errors.Is(err, envelope.ErrInvalidFormat) {
		t.Fatalf("expected a decode failure, not a format error")
	}
}
