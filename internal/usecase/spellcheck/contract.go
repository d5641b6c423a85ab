package spellcheck

import (
	"context"

	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

// TermSuggester asks the secondary engine for per-word spellings of text in each field.
type TermSuggester interface {
	Suggest(ctx context.Context, index string, fields []string, text string) ([]suggest.FieldSuggestions, error)
}

// QuerySuggester calls the App Search query_suggestion endpoint and returns the raw body.
type QuerySuggester interface {
	QuerySuggestion(ctx context.Context, engineName string, body map[string]any) ([]byte, error)
}
