package appsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

type capturedRequest struct {
	path string
	auth string
	body map[string]any
}

func newServer(t *testing.T, status int, response string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Search(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusOK, `{"meta":{},"results":[]}`, &got)

	c := New(Config{Endpoint: srv.URL + "/", APIKey: "search-key"})
	raw, err := c.Search(context.Background(), "content-prod", map[string]any{"query": "chanel"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if string(raw) != `{"meta":{},"results":[]}` {
		t.Errorf("unexpected body %s", raw)
	}
	if got.path != "/api/as/v1/engines/content-prod/search" {
		t.Errorf("path = %s", got.path)
	}
	if got.auth != "Bearer search-key" {
		t.Errorf("auth = %s", got.auth)
	}
	if got.body["query"] != "chanel" {
		t.Errorf("body = %v", got.body)
	}
}

func TestClient_MultiSearchWrapsQueries(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusOK, `[]`, &got)

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.MultiSearch(context.Background(), "content", []map[string]any{{"query": "a"}, {"query": "b"}})
	if err != nil {
		t.Fatalf("MultiSearch: %v", err)
	}
	if got.path != "/api/as/v1/engines/content/multi_search" {
		t.Errorf("path = %s", got.path)
	}
	queries, ok := got.body["queries"].([]any)
	if !ok || len(queries) != 2 {
		t.Errorf("body = %v", got.body)
	}
}

func TestClient_ClientErrorBodyIsReturned(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusBadRequest, `{"errors":["Page size must be less than 1000"]}`, &got)

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	raw, err := c.Search(context.Background(), "content", map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("expected body for 4xx, got error %v", err)
	}
	if responseErrors(raw) == "" {
		t.Errorf("expected errors in body, got %s", raw)
	}
}

func TestClient_ServerErrorIsUpstream(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusBadGateway, `oops`, &got)

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Search(context.Background(), "content", map[string]any{"query": "q"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_MissingConfiguration(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvEndpointLegacy, "")
	t.Setenv(EnvAPIKeyLegacy, "")

	c := New(Config{})
	_, err := c.Search(context.Background(), "content", map[string]any{})
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestClient_EnvironmentFallback(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusOK, `{}`, &got)

	t.Setenv(EnvEndpoint, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvEndpointLegacy, srv.URL)
	t.Setenv(EnvAPIKeyLegacy, "legacy-key")

	c := New(Config{})
	if _, err := c.QuerySuggestion(context.Background(), "content", map[string]any{"query": "q"}); err != nil {
		t.Fatalf("QuerySuggestion: %v", err)
	}
	if got.auth != "Bearer legacy-key" || got.path != "/api/as/v1/engines/content/query_suggestion" {
		t.Errorf("unexpected request %+v", got)
	}

	t.Setenv(EnvAPIKey, "new-key")
	if _, err := c.QuerySuggestion(context.Background(), "content", map[string]any{"query": "q"}); err != nil {
		t.Fatalf("QuerySuggestion: %v", err)
	}
	if got.auth != "Bearer new-key" {
		t.Errorf("expected new variable to win, got %s", got.auth)
	}
}

func TestClient_LogClickthrough(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusOK, `{}`, &got)
	c := New(Config{Endpoint: srv.URL, APIKey: "k"})

	if err := c.LogClickthrough(context.Background(), "content", "chanel", "doc-1", "", nil); err != nil {
		t.Fatalf("LogClickthrough: %v", err)
	}
	if got.path != "/api/as/v1/engines/content/click" {
		t.Errorf("path = %s", got.path)
	}
	if got.body["document_id"] != "doc-1" || got.body["query"] != "chanel" {
		t.Errorf("body = %v", got.body)
	}
	if _, ok := got.body["tags"]; ok {
		t.Error("empty tags must be omitted")
	}
	if _, ok := got.body["request_id"]; ok {
		t.Error("empty request id must be omitted")
	}

	if err := c.LogClickthrough(context.Background(), "content", "q", "d", "req-1", []string{"web"}); err != nil {
		t.Fatalf("LogClickthrough: %v", err)
	}
	if got.body["request_id"] != "req-1" || got.body["tags"] == nil {
		t.Errorf("body = %v", got.body)
	}
}

func TestClient_LogClickthroughReportsErrors(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, http.StatusNotFound, `{"errors":["Document not found"]}`, &got)
	c := New(Config{Endpoint: srv.URL, APIKey: "k"})

	if err := c.LogClickthrough(context.Background(), "content", "q", "d", "", nil); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestFake(t *testing.T) {
	f := NewFake()
	if _, err := f.Search(context.Background(), "e", nil); !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "resp.json")
	if err := os.WriteFile(path, []byte(`{"results":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := f.SetResponseFromFile(path); err != nil {
		t.Fatalf("SetResponseFromFile: %v", err)
	}
	raw, err := f.MultiSearch(context.Background(), "e", nil)
	if err != nil || string(raw) != `{"results":[]}` {
		t.Errorf("unexpected %s / %v", raw, err)
	}

	_ = f.LogClickthrough(context.Background(), "e", "q", "d", "r", nil)
	if clicks := f.Clicks(); len(clicks) != 1 || clicks[0].DocumentID != "d" {
		t.Errorf("clicks = %+v", clicks)
	}
}
