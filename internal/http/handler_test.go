package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"audioflow/internal/catalog"
	"audioflow/internal/flood"
	"audioflow/internal/store"
	"audioflow/pkg/audiometa"
)

type testEnv struct {
	server   *httptest.Server
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	registry := prometheus.NewRegistry()
	deps := Deps{
		Resolver: audiometa.NewResolver(
			catalog.NewStatic(catalog.DefaultRecords()), audiometa.DefaultPolicy(), zap.NewNop()),
		Strict:   true,
		Metrics:  NewMetrics(registry),
		Gatherer: registry,
	}
	if mutate != nil {
		mutate(&deps)
	}

	handler, err := NewHandler(deps, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHandler() unexpected error: %v", err)
	}

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &testEnv{server: server, registry: registry}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, e.server.URL+path, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) lookup(t *testing.T, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost,
		e.server.URL+audiometa.DefaultEndpointPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST lookup failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode lookup response: %v", err)
	}
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		path   string
		status string
	}{
		{"/healthz", "ok"},
		{"/readyz", "ready"},
	}

	for _, tt := range tests {
		resp, body := env.get(t, tt.path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned status %d, expected %d", tt.path, resp.StatusCode, http.StatusOK)
		}
		if contentType := resp.Header.Get("Content-Type"); contentType != "application/json" {
			t.Errorf("%s Content-Type = %q, expected %q", tt.path, contentType, "application/json")
		}
		if !strings.Contains(body, `"status":"`+tt.status+`"`) {
			t.Errorf("%s body = %s", tt.path, body)
		}
	}
}

func TestReadyzReportsBackendFailure(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("redis down") }
	})

	resp, _ := env.get(t, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz returned status %d, expected %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	env.get(t, "/?chap17347568BhadreshDoshi1")
	resp, body := env.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics returned status %d", resp.StatusCode)
	}
	if !strings.Contains(body, `audioflow_page_loads_total{state="ready"} 1`) {
		t.Errorf("/metrics missing page load counter:\n%s", body)
	}
}

func TestMetricsEndpoint_CacheAndFloodgate(t *testing.T) {
	static := catalog.NewStatic(catalog.DefaultRecords())
	cache, err := store.NewCachedLookup(static, 16)
	if err != nil {
		t.Fatalf("NewCachedLookup() unexpected error: %v", err)
	}
	ids, _ := static.IDs(context.Background())
	cache.Prime(ids)

	env := newTestEnv(t, func(d *Deps) {
		d.Resolver = audiometa.NewResolver(cache, audiometa.DefaultPolicy(), zap.NewNop())
		d.Cache = cache
		d.Floodgate = flood.New(5)
	})

	env.get(t, "/?chap17347568BhadreshDoshi1")
	env.get(t, "/?chap17347568BhadreshDoshi1")
	env.get(t, "/?unknown-id")

	_, body := env.get(t, "/metrics")
	for _, want := range []string{
		"audioflow_cache_hits_total 1",
		"audioflow_cache_misses_total 1",
		"audioflow_cache_short_circuits_total 1",
		"audioflow_cache_entries 1",
		"audioflow_flood_active_clients 1",
		"audioflow_flood_limit_per_minute 5",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestNewHandler_DuplicateMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	deps := Deps{
		Resolver: audiometa.NewResolver(
			catalog.NewStatic(catalog.DefaultRecords()), audiometa.DefaultPolicy(), zap.NewNop()),
		Metrics: metrics,
	}

	if _, err := NewHandler(deps, zap.NewNop()); err != nil {
		t.Fatalf("NewHandler() unexpected error: %v", err)
	}
	if _, err := NewHandler(deps, zap.NewNop()); err == nil {
		t.Error("expected an error when registering floodgate metrics twice")
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		contains []string
		absent   []string
	}{
		{
			name:  "known identifier",
			query: "?chap17347568BhadreshDoshi1",
			contains: []string{
				"RE-CONSTITUTION OF FIRMS - SECTIONS 45(4) AND 9B - CONTRASTING PERSPECTIVES",
				"BCASONLINE",
				`href="https://bcasonline.org/"`,
				`src="/Bhadresh_Doshi_1.m4a"`,
				"Visit Website",
			},
			absent: []string{"Try Again"},
		},
		{
			name:     "unknown identifier",
			query:    "?unknown-id",
			contains: []string{"Audio not found", "Try Again"},
			absent:   []string{"<audio"},
		},
		{
			name:     "missing identifier",
			query:    "",
			contains: []string{"No audio ID provided in URL!", "Try Again"},
			absent:   []string{"<audio"},
		},
	}

	env := newTestEnv(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, "/"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d", resp.StatusCode)
			}
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("page missing %q", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(body, unwanted) {
					t.Errorf("page unexpectedly contains %q", unwanted)
				}
			}
		})
	}
}

func TestPage_NonStrictShowsDemo(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		policy := audiometa.DefaultPolicy()
		policy.Strict = false
		d.Resolver = audiometa.NewResolver(catalog.NewStatic(catalog.DefaultRecords()), policy, zap.NewNop())
		d.Strict = false
	})

	_, body := env.get(t, "/")
	if !strings.Contains(body, "Welcome to AudioFlow (Mock Data)") {
		t.Error("non-strict page without identifier should render the demo record")
	}
	if !strings.Contains(body, "Showing demo audio") {
		t.Error("demo notice missing")
	}
}

func TestPage_FloodLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Floodgate = flood.New(1)
	})

	env.get(t, "/?chap557867845sGanesh5")
	resp, body := env.get(t, "/?chap557867845sGanesh5")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if !strings.Contains(body, "Too many requests") {
		t.Error("rate limited page should explain the rejection")
	}
}

func TestLookupAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.lookup(t, `{"uniqueId":"chap17347568BhadreshDoshi1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	audio, _ := body["audio"].(map[string]any)
	if audio["chapterName"] != "RE-CONSTITUTION OF FIRMS - SECTIONS 45(4) AND 9B - CONTRASTING PERSPECTIVES" {
		t.Errorf("chapterName = %v", audio["chapterName"])
	}

	resp, body = env.lookup(t, `{"uniqueId":"unknown-id"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != false || body["message"] != "Audio not found" {
		t.Errorf("unknown id body = %v, want {false, Audio not found}", body)
	}
	if _, exists := body["audio"]; exists {
		t.Error("failed lookup should not carry audio")
	}
}

func TestLookupAPI_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"uniqueId":`},
		{"missing id", `{}`},
		{"empty id", `{"uniqueId":""}`},
		{"too long", `{"uniqueId":"` + strings.Repeat("x", 300) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.lookup(t, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestLookupAPI_FloodLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Floodgate = flood.New(1)
	})

	env.lookup(t, `{"uniqueId":"chap557867845sGanesh5"}`)
	resp, _ := env.lookup(t, `{"uniqueId":"chap557867845sGanesh5"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
}

func TestLookupAPI_ServesRemoteLookup(t *testing.T) {
	env := newTestEnv(t, nil)

	remote := audiometa.NewRemoteLookup(env.server.URL+audiometa.DefaultEndpointPath, 0)
	record, err := remote.Lookup(context.Background(), "chap47456pradipk6474")
	if err != nil {
		t.Fatalf("Lookup() unexpected error: %v", err)
	}
	if record.ChapterName != "NAVIGATING DEEMING FICTIONS & VEXATIOUS VALUATIONS" {
		t.Errorf("ChapterName = %q", record.ChapterName)
	}

	_, err = remote.Lookup(context.Background(), "unknown-id")
	if !errors.Is(err, audiometa.ErrNotFound) {
		t.Errorf("Lookup(unknown-id) err = %v, want ErrNotFound", err)
	}
}
