package spellcheck

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

// --- Mocks ---

type mockTerms struct {
	suggestFn func(index string, fields []string, text string) ([]suggest.FieldSuggestions, error)
}

func (m *mockTerms) Suggest(_ context.Context, index string, fields []string, text string) ([]suggest.FieldSuggestions, error) {
	return m.suggestFn(index, fields, text)
}

type mockQueries struct {
	body   map[string]any
	engine string
	raw    string
	err    error
}

func (m *mockQueries) QuerySuggestion(_ context.Context, engineName string, body map[string]any) ([]byte, error) {
	m.engine = engineName
	m.body = body
	return []byte(m.raw), m.err
}

func chanelTerms() *mockTerms {
	return &mockTerms{suggestFn: func(_ string, _ []string, _ string) ([]suggest.FieldSuggestions, error) {
		return []suggest.FieldSuggestions{
			{Field: "title", Entries: []suggest.Entry{
				{Text: "chanel", Options: []suggest.Option{{Text: "channel", Score: 0.8}}},
				{Text: "partner"},
			}},
			{Field: "content", Entries: []suggest.Entry{
				{Text: "chanel", Options: []suggest.Option{{Text: "chapel", Score: 0.6}}},
				{Text: "partner"},
			}},
		}, nil
	}}
}

// --- Tests ---

func TestSuggestions_TermSuggester(t *testing.T) {
	var gotIndex, gotText string
	var gotFields []string
	terms := chanelTerms()
	inner := terms.suggestFn
	terms.suggestFn = func(index string, fields []string, text string) ([]suggest.FieldSuggestions, error) {
		gotIndex, gotFields, gotText = index, fields, text
		return inner(index, fields, text)
	}

	svc := New(terms, nil, Config{
		Engines: map[string]EngineConfig{
			"content": {InternalIndex: "content-internal", Fields: []string{"title", "content"}},
		},
	}, nil)

	got := svc.Suggestions(context.Background(), "Chanel Partner", "content", "https://example.com/search?q=Chanel+Partner&start=10")

	if gotIndex != "content-internal" || len(gotFields) != 2 || gotText != "chanel partner" {
		t.Errorf("suggest called with index=%q fields=%v text=%q", gotIndex, gotFields, gotText)
	}
	want := []suggest.Suggestion{
		{Suggestion: "channel partner", Link: "https://example.com/search?q=channel+partner&start=10"},
		{Suggestion: "chapel partner", Link: "https://example.com/search?q=chapel+partner&start=10"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d suggestions, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSuggestions_EnvironmentizedEngine(t *testing.T) {
	t.Setenv("APPSEARCH_SPELL_TEST_ENV", "prod")

	svc := New(chanelTerms(), nil, Config{
		MaxSuggestions: 1,
		QueryParam:     "keywords",
		EngineVariant:  "`APPSEARCH_SPELL_TEST_ENV`",
		Engines: map[string]EngineConfig{
			"content": {InternalIndex: "content-internal", Fields: []string{"title"}},
		},
	}, nil)

	got := svc.Suggestions(context.Background(), "chanel partner", "content-prod", "/search?keywords=chanel+partner")
	if len(got) != 1 || got[0].Link != "/search?keywords=channel+partner" {
		t.Errorf("unexpected suggestions: %+v", got)
	}
}

func TestSuggestions_MissingEngineConfigLogs(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := New(chanelTerms(), nil, Config{}, zap.New(core))

	if got := svc.Suggestions(context.Background(), "q", "unknown", "/search"); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 error log, got %d", logs.Len())
	}
	if msg := logs.All()[0].ContextMap()["error"]; msg == nil {
		t.Error("expected error field in log entry")
	}
}

func TestSuggestions_SuggesterErrorIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	terms := &mockTerms{suggestFn: func(string, []string, string) ([]suggest.FieldSuggestions, error) {
		return nil, errors.New("connection refused")
	}}
	svc := New(terms, nil, Config{
		Engines: map[string]EngineConfig{"content": {InternalIndex: "i", Fields: []string{"title"}}},
	}, zap.New(core))

	if got := svc.Suggestions(context.Background(), "q", "content", "/search"); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if logs.Len() != 1 {
		t.Errorf("expected 1 error log, got %d", logs.Len())
	}
}

func TestSuggestions_QuerySuggestionPath(t *testing.T) {
	queries := &mockQueries{raw: `{"results":{"documents":[
		{"suggestion":"channel partner"},
		{"suggestion":"chanel partner"},
		{"suggestion":"channel partners"},
		{"suggestion":"channel"}
	]},"meta":{"request_id":"r"}}`}
	types := map[string]any{"documents": map[string]any{"fields": []string{"title"}}}

	t.Setenv("APPSEARCH_SPELL_QS_ENV", "prod")

	svc := New(nil, queries, Config{
		EngineVariant: "`APPSEARCH_SPELL_QS_ENV`",
		Engines:       map[string]EngineConfig{"content": {AppSearchTypes: types}},
	}, nil)

	got := svc.Suggestions(context.Background(), "Chanel Partner", "content", "/search?q=Chanel+Partner")

	if queries.engine != "content-prod" {
		t.Errorf("engine = %q, want content-prod", queries.engine)
	}
	if queries.body["query"] != "chanel partner" || queries.body["size"] != DefaultMaxSuggestions {
		t.Errorf("body = %v", queries.body)
	}
	if _, ok := queries.body["types"]; !ok {
		t.Error("expected types in body")
	}
	if len(got) != 2 || got[0].Suggestion != "channel partner" || got[1].Suggestion != "channel partners" {
		t.Errorf("unexpected suggestions: %+v", got)
	}
}

func TestSuggestions_QuerySuggestionSuffixedCaller(t *testing.T) {
	t.Setenv("APPSEARCH_SPELL_QS_ENV", "prod")
	queries := &mockQueries{raw: `{"results":{"documents":[]}}`}

	svc := New(nil, queries, Config{
		EngineVariant: "`APPSEARCH_SPELL_QS_ENV`",
		Engines:       map[string]EngineConfig{"content": {}},
	}, nil)
	svc.Suggestions(context.Background(), "chanel", "content-prod", "/search?q=chanel")

	if queries.engine != "content-prod" {
		t.Errorf("engine = %q, want content-prod", queries.engine)
	}
}

func TestSuggestions_BadURL(t *testing.T) {
	svc := New(chanelTerms(), nil, Config{
		Engines: map[string]EngineConfig{"content": {InternalIndex: "i", Fields: []string{"title"}}},
	}, nil)

	if got := svc.Suggestions(context.Background(), "chanel", "content", "://bad url"); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
