package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/envelope"
)

const (
	FetchDataPath   = "/fetch-data"
	DefaultErrorMsg = "Erro ao carregar dados"
)

// ErrInvalidSourceURL is returned before any request when source is not an http(s) URL.
var ErrInvalidSourceURL = errors.New("URL de origem inválida")

// HTTPError covers both transport failures (Cause set) and non-2xx answers (StatusCode set).
type HTTPError struct {
	StatusCode int
	Status     string
	Cause      error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("falha de rede: %v", e.Cause)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// BackendError is a well-formed response whose success flag is not true.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Backend talks to the product data service.
type Backend struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// New creates a backend client. A zero timeout leaves requests bounded only by ctx.
func New(baseURL string, timeout time.Duration) *Backend {
	return &Backend{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

// WithHTTPClient replaces the underlying client, mostly for instrumented transports.
func (b *Backend) WithHTTPClient(c *http.Client) *Backend {
	b.httpClient = c
	return b
}

func (b *Backend) BaseURL() string {
	return b.baseURL
}

// ValidateSource accepts an empty source (backend default) or an http(s) URL.
func ValidateSource(source string) error {
	if source == "" {
		return nil
	}
	lower := strings.ToLower(source)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ErrInvalidSourceURL
	}
	return nil
}

// FetchData performs one GET of the fetch-data endpoint and returns the decoded body.
// There is no retry; the caller decides whether to start another cycle.
func (b *Backend) FetchData(ctx context.Context, source string) (any, error) {
	if err := ValidateSource(source); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fetchURL(source), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setNoCacheHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &HTTPError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	body, err := envelope.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	if obj, ok := body.(map[string]any); ok {
		if success, _ := obj["success"].(bool); !success {
			msg, _ := obj["error"].(string)
			if strings.TrimSpace(msg) == "" {
				msg = DefaultErrorMsg
			}
			return nil, &BackendError{Message: msg}
		}
	}

	return body, nil
}

func (b *Backend) fetchURL(source string) string {
	q := url.Values{}
	if source != "" {
		q.Set("source", source)
	}
	q.Set("_t", strconv.FormatInt(b.now().UnixMilli(), 10))
	return b.baseURL + FetchDataPath + "?" + q.Encode()
}

// setNoCacheHeaders asks every cache on the way to skip the response.
func setNoCacheHeaders(req *http.Request) {
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")
	req.Header.Set("Accept", "application/json")
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
