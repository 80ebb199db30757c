package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rootcauseai/rootcause/internal/analyzer"
	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/llm"
	"github.com/rootcauseai/rootcause/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubProvider returns a fixed analysis for every chunk.
type stubProvider struct {
	content      string
	usage        llm.Usage
	heartbeatErr error
}

func (p *stubProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	return &llm.Response{Content: p.content, Model: "test-model", Usage: p.usage}, nil
}

func (p *stubProvider) Heartbeat(ctx context.Context) error { return p.heartbeatErr }

func (p *stubProvider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{Provider: "ollama"},
		Analyze: config.AnalyzeConfig{
			ChunkSize:     2000,
			ChunkOverlap:  200,
			MaxConcurrent: 4,
		},
		Cache: config.CacheConfig{Enabled: true, TTL: time.Hour},
		RateLimit: config.RateLimitConfig{
			PerMinute: 100,
			PerHour:   1000,
			PerDay:    10000,
		},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			MaxUploadBytes: 1 << 20,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, provider *stubProvider) *Server {
	t.Helper()

	logger := testLogger()

	store, err := cache.New(t.TempDir(), cfg.Cache.TTL, logger)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	costs, err := cost.NewTracker(filepath.Join(t.TempDir(), "usage.json"), logger)
	if err != nil {
		t.Fatalf("cost.NewTracker: %v", err)
	}

	opts := []analyzer.Option{
		analyzer.WithChunking(cfg.Analyze.ChunkSize, cfg.Analyze.ChunkOverlap),
		analyzer.WithMaxConcurrent(cfg.Analyze.MaxConcurrent),
		analyzer.WithCosts(costs),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, analyzer.WithCache(store))
	}

	engine, err := analyzer.New(provider, logger, opts...)
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, cfg.RateLimit.PerDay)

	srv, err := New(cfg, engine, limiter, store, costs, provider, logger)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return srv
}

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type analyzeResponse struct {
	Analysis string  `json:"analysis"`
	Cached   bool    `json:"cached"`
	Chunks   int     `json:"chunks"`
	CostUSD  float64 `json:"cost_usd"`
	Error    string  `json:"error"`
	Category string  `json:"category"`
}

func doAnalyze(t *testing.T, srv *Server, req *http.Request) (*httptest.ResponseRecorder, analyzeResponse) {
	t.Helper()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var resp analyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	provider := &stubProvider{
		content: "root cause: connection pool exhaustion",
		usage:   llm.Usage{InputTokens: 10, OutputTokens: 20},
	}
	srv := newTestServer(t, testConfig(), provider)

	req := uploadRequest(t, "file", "app.txt", "ERROR connection pool exhausted\nERROR timeout acquiring conn")
	w, resp := doAnalyze(t, srv, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp.Analysis != "root cause: connection pool exhaustion" {
		t.Errorf("analysis = %q", resp.Analysis)
	}
	if resp.Cached {
		t.Error("first upload reported cached")
	}
	if resp.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", resp.Chunks)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAnalyzeCachedSecondUpload(t *testing.T) {
	provider := &stubProvider{content: "repeated analysis"}
	srv := newTestServer(t, testConfig(), provider)

	body := "ERROR disk full on /var\nFATAL cannot write WAL"

	w1, first := doAnalyze(t, srv, uploadRequest(t, "file", "disk.txt", body))
	if w1.Code != http.StatusOK {
		t.Fatalf("first status = %d", w1.Code)
	}
	w2, second := doAnalyze(t, srv, uploadRequest(t, "file", "disk.txt", body))
	if w2.Code != http.StatusOK {
		t.Fatalf("second status = %d", w2.Code)
	}

	if !second.Cached {
		t.Error("second upload not served from cache")
	}
	if second.Analysis != first.Analysis {
		t.Error("cached analysis differs")
	}

	if got := testutil.ToFloat64(srv.metrics.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(srv.metrics.CacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(srv.metrics.UnitsDispatchedTotal); got != 1 {
		t.Errorf("units dispatched = %v, want 1", got)
	}
}

func TestAnalyzeRejectsNonTxt(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	w, resp := doAnalyze(t, srv, uploadRequest(t, "file", "app.log", "ERROR boom"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Error != "Only .txt log files are supported" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Category != categoryValidation {
		t.Errorf("category = %q, want %q", resp.Category, categoryValidation)
	}
}

func TestAnalyzeRejectsEmptyFile(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	w, resp := doAnalyze(t, srv, uploadRequest(t, "file", "empty.txt", "   \n\t\n"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Error != "Log file is empty" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Category != categoryValidation {
		t.Errorf("category = %q", resp.Category)
	}
}

func TestAnalyzeMissingFileField(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	w, resp := doAnalyze(t, srv, uploadRequest(t, "attachment", "app.txt", "ERROR boom"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Category != categoryValidation {
		t.Errorf("category = %q", resp.Category)
	}
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadBytes = 256

	srv := newTestServer(t, cfg, &stubProvider{content: "x"})

	big := strings.Repeat("ERROR out of memory killing process\n", 200)
	w, resp := doAnalyze(t, srv, uploadRequest(t, "file", "big.txt", big))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if resp.Category != categoryValidation {
		t.Errorf("category = %q", resp.Category)
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerMinute = 1

	srv := newTestServer(t, cfg, &stubProvider{content: "x"})

	w1, _ := doAnalyze(t, srv, uploadRequest(t, "file", "a.txt", "ERROR first"))
	if w1.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", w1.Code)
	}

	w2, resp := doAnalyze(t, srv, uploadRequest(t, "file", "b.txt", "ERROR second"))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w2.Code)
	}
	if resp.Error != "Rate limit exceeded: 1 requests per minute" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Category != categoryRateLimit {
		t.Errorf("category = %q, want %q", resp.Category, categoryRateLimit)
	}
	if got := w2.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}

	if got := testutil.ToFloat64(srv.metrics.RateLimitBlocksTotal); got != 1 {
		t.Errorf("rate limit blocks = %v, want 1", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var health struct {
		Status   string `json:"status"`
		Provider string `json:"provider"`
		Costs    *struct {
			DailyUSD float64 `json:"daily_usd"`
		} `json:"costs"`
		Cache *struct {
			Entries int `json:"entries"`
		} `json:"cache"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
	if health.Provider != "ollama" {
		t.Errorf("provider = %q", health.Provider)
	}
	if health.Costs == nil {
		t.Error("missing costs section")
	}
	if health.Cache == nil {
		t.Error("missing cache section")
	}
}

func TestHealthDegradedProvider(t *testing.T) {
	provider := &stubProvider{content: "x", heartbeatErr: errors.New("connection refused")}
	srv := newTestServer(t, testConfig(), provider)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var health struct {
		Status        string `json:"status"`
		ProviderError string `json:"provider_error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}
	if !strings.Contains(health.ProviderError, "connection refused") {
		t.Errorf("provider_error = %q", health.ProviderError)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	if w, _ := doAnalyze(t, srv, uploadRequest(t, "file", "m.txt", "ERROR boom")); w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{
		"rootcause_requests_total",
		"rootcause_units_dispatched_total",
		"rootcause_cache_misses_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("scrape missing %s", name)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubProvider{content: "x"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("X-Request-ID = %q, want trace-42", got)
	}
}

func TestNewValidation(t *testing.T) {
	logger := testLogger()
	provider := &stubProvider{content: "x"}
	engine, err := analyzer.New(provider, logger)
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}

	if _, err := New(nil, engine, nil, nil, nil, provider, logger); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(testConfig(), nil, nil, nil, nil, provider, logger); err == nil {
		t.Error("expected error for nil analyzer")
	}
	if _, err := New(testConfig(), engine, nil, nil, nil, nil, logger); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := New(testConfig(), engine, nil, nil, nil, provider, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}
