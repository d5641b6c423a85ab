package search

import (
	"context"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

// Transport sends rendered queries to the search service and returns raw response bodies.
type Transport interface {
	Search(ctx context.Context, engineName string, body map[string]any) ([]byte, error)
	MultiSearch(ctx context.Context, engineName string, bodies []map[string]any) ([]byte, error)
}

// RecordStore loads the records search hits point at.
type RecordStore interface {
	Resolve(ctx context.Context, className, id string) (domain.Record, error)
}

// TypeMapper shortens class names for clickthrough links.
type TypeMapper interface {
	ClassToType(class string) string
}
