package elasticsearch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

func TestClient_Suggest(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/content-internal/_search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		wantAuth := "ApiKey " + base64.StdEncoding.EncodeToString([]byte("kid:secret"))
		if r.Header.Get("Authorization") != wantAuth {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Opaque-Id") == "" {
			t.Error("expected X-Opaque-Id header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggest":{
			"content":[{"text":"chanel","options":[{"text":"chapel","score":0.8,"freq":2}]}],
			"title":[
				{"text":"chanel","options":[{"text":"channel","score":0.83,"freq":5},{"text":"chapel","score":0.8,"freq":1}]},
				{"text":"partner","options":[]}
			]
		}}`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL, APIKeyID: "kid", APIKey: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.Suggest(context.Background(), "content-internal", []string{"title", "content", "summary"}, "chanel partner")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	sg, ok := gotBody["suggest"].(map[string]any)
	if !ok || sg["text"] != "chanel partner" || sg["title"] == nil || sg["content"] == nil {
		t.Errorf("unexpected request body: %v", gotBody)
	}

	if len(got) != 2 || got[0].Field != "title" || got[1].Field != "content" {
		t.Fatalf("unexpected field order: %+v", got)
	}
	if len(got[0].Entries) != 2 || got[0].Entries[0].Options[0].Text != "channel" {
		t.Errorf("unexpected title entries: %+v", got[0].Entries)
	}
	if len(got[0].Entries[1].Options) != 0 {
		t.Errorf("expected no options for partner, got %+v", got[0].Entries[1].Options)
	}
}

func TestClient_SuggestUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Suggest(context.Background(), "missing", []string{"title"}, "chanel")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestDecodeCloudID(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		cloudID string
		want    string
		wantErr bool
	}{
		{"plain", "site:" + enc("eu-west-1.aws.found.io$abc123$kib456"), "https://abc123.eu-west-1.aws.found.io", false},
		{"default port dropped", "site:" + enc("us-east-1.aws.found.io:443$abc$kib"), "https://abc.us-east-1.aws.found.io", false},
		{"custom port kept", "site:" + enc("example.com:9243$abc$kib"), "https://abc.example.com:9243", false},
		{"no name prefix", enc("example.com$abc$kib"), "https://abc.example.com", false},
		{"bad base64", "site:%%%", "", true},
		{"missing uuid", "site:" + enc("example.com"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCloudID(tt.cloudID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_CloudID(t *testing.T) {
	id := "site:" + base64.StdEncoding.EncodeToString([]byte("example.com$abc$kib"))
	c, err := New(Config{CloudID: id})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "https://abc.example.com" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, _ := New(Config{Endpoint: server.URL})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
