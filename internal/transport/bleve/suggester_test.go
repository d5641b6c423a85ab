package bleve

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

func newMemSuggester(t *testing.T) *Suggester {
	t.Helper()
	idx, err := bleve.NewMemOnly(NewIndexMapping([]string{"title", "content"}))
	if err != nil {
		t.Fatalf("NewMemOnly: %v", err)
	}
	docs := map[string]map[string]any{
		"1": {"title": "Channel partners", "content": "Our channel partner programme"},
		"2": {"title": "Chapel services", "content": "Sunday chapel"},
		"3": {"title": "Partner news", "content": "channel updates"},
	}
	for id, doc := range docs {
		if err := idx.Index(id, doc); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	s := New("")
	s.Register("content-internal", idx)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entryFor(t *testing.T, fs suggest.FieldSuggestions, word string) suggest.Entry {
	t.Helper()
	for _, e := range fs.Entries {
		if e.Text == word {
			return e
		}
	}
	t.Fatalf("no entry for %q in %+v", word, fs)
	return suggest.Entry{}
}

func TestSuggest_MisspelledWordGetsCandidates(t *testing.T) {
	s := newMemSuggester(t)

	got, err := s.Suggest(context.Background(), "content-internal", []string{"title", "content"}, "Chanel partner")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 || got[0].Field != "title" || got[1].Field != "content" {
		t.Fatalf("unexpected fields: %+v", got)
	}

	title := entryFor(t, got[0], "chanel")
	if len(title.Options) == 0 || title.Options[0].Text != "channel" {
		t.Errorf("expected channel first, got %+v", title.Options)
	}
	for _, o := range title.Options {
		if o.Score <= 0 || o.Score >= 1 {
			t.Errorf("score out of range: %+v", o)
		}
	}

	content := entryFor(t, got[1], "partner")
	if len(content.Options) != 0 {
		t.Errorf("known word should have no options, got %+v", content.Options)
	}
}

func TestSuggest_ShortAndUnknownWords(t *testing.T) {
	s := newMemSuggester(t)

	got, err := s.Suggest(context.Background(), "content-internal", []string{"title"}, "cha zzzzzzzz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, e := range got[0].Entries {
		if len(e.Options) != 0 {
			t.Errorf("expected no options for %q, got %+v", e.Text, e.Options)
		}
	}
}

func TestSuggest_MissingIndex(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Suggest(context.Background(), "nope", []string{"title"}, "chanel")
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestCreate_ReopensFromDisk(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	idx, err := s.Create("pages", []string{"title"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := idx.Index("1", map[string]any{"title": "channel"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir + "/pages"); err != nil {
		t.Fatalf("index dir missing: %v", err)
	}

	s2 := New(dir)
	defer func() { _ = s2.Close() }()
	got, err := s2.Suggest(context.Background(), "pages", []string{"title"}, "chanel")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if opts := got[0].Entries[0].Options; len(opts) != 1 || opts[0].Text != "channel" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"chanel", "channel", 1},
		{"chanel", "chapel", 1},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest_CancelledContext(t *testing.T) {
	s := newMemSuggester(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Suggest(ctx, "content-internal", []string{"title"}, "chanel"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
