package query

import "go.uber.org/zap"

// MaxMultiQueries is the upstream limit on queries in one multi-search request.
const MaxMultiQueries = 10

// Multi is an ordered batch of queries sent in a single multi-search request.
// Exceeding MaxMultiQueries truncates with a warning rather than failing.
type Multi struct {
	queries []*Query
	logger  *zap.Logger
}

// NewMulti creates an empty batch. logger may be nil.
func NewMulti(logger *zap.Logger) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{logger: logger}
}

// SetQueries replaces the batch, keeping at most MaxMultiQueries.
func (m *Multi) SetQueries(queries ...*Query) *Multi {
	if len(queries) > MaxMultiQueries {
		m.logger.Warn("Maximum number of queries for multisearch exceeded, only submitting the first ones",
			zap.Int("given", len(queries)),
			zap.Int("max", MaxMultiQueries),
		)
		queries = queries[:MaxMultiQueries]
	}
	m.queries = append([]*Query(nil), queries...)
	return m
}

// AddQuery appends q unless the batch is already full.
func (m *Multi) AddQuery(q *Query) *Multi {
	if len(m.queries) >= MaxMultiQueries {
		m.logger.Warn("Maximum number of queries for multisearch reached, dropping query",
			zap.String("query", q.Query()),
		)
		return m
	}
	m.queries = append(m.queries, q)
	return m
}

// Queries returns the batch in order.
func (m *Multi) Queries() []*Query { return m.queries }

// Len returns the number of queries in the batch.
func (m *Multi) Len() int { return len(m.queries) }

// Render returns one request body per query, in order.
func (m *Multi) Render() []map[string]any {
	out := make([]map[string]any, len(m.queries))
	for i, q := range m.queries {
		out[i] = q.Body()
	}
	return out
}
