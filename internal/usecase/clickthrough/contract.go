package clickthrough

import (
	"context"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

// RecordStore loads the record a click points at.
type RecordStore interface {
	Resolve(ctx context.Context, className, id string) (domain.Record, error)
}

// TypeMapper maps the short type token in a link back to a class name.
type TypeMapper interface {
	TypeToClass(typ string) string
}

// ClickLogger registers clicks with the search analytics upstream.
type ClickLogger interface {
	LogClickthrough(ctx context.Context, engineName, query, documentID, requestID string, tags []string) error
}
