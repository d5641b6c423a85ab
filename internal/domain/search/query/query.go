package query

import (
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// ScoreField is the relevance pseudo-field used as the final sort tie-break.
const ScoreField = "_score"

// SortClause is a single (field, direction) pair.
type SortClause struct {
	Field     string
	Direction Direction
}

// ResultField describes how a field is returned: raw or snippet, with optional size.
type ResultField struct {
	Type string
	Size int
}

// Query is a single App Search query under construction.
type Query struct {
	query         string
	rawFilters    any
	rawFacets     any
	sorts         []SortClause
	resultFields  map[string]ResultField
	resultOrder   []string
	searchFields  map[string]int
	searchOrder   []string
	pageSize      int
	pageNum       int
	hasPagination bool
	tags          []string
	typoTolerance bool
}

// New creates a query for the given search string. An empty string matches all documents.
func New(q string) *Query {
	return &Query{query: q, typoTolerance: true}
}

// SetQuery replaces the search string.
func (q *Query) SetQuery(s string) *Query {
	q.query = s
	return q
}

// Query returns the search string as entered.
func (q *Query) Query() string { return q.query }

// RenderedQuery returns the search string as sent upstream.
// With typo tolerance disabled every term becomes mandatory.
func (q *Query) RenderedQuery() string {
	if q.typoTolerance {
		return q.query
	}
	terms := strings.Fields(q.query)
	if len(terms) < 2 {
		return q.query
	}
	return strings.Join(terms, " AND ")
}

// DisableTypoTolerance turns off upstream fuzzy matching for this query.
func (q *Query) DisableTypoTolerance() *Query {
	q.typoTolerance = false
	return q
}

// AddRawFilters sets the engine-specific filter tree as is.
func (q *Query) AddRawFilters(filters any) *Query {
	q.rawFilters = filters
	return q
}

// AddRawFacets sets the engine-specific facet spec as is.
func (q *Query) AddRawFacets(facets any) *Query {
	q.rawFacets = facets
	return q
}

// AddSort appends a sort clause. Invalid directions fall back to asc.
func (q *Query) AddSort(field string, dir Direction) *Query {
	if !dir.IsValid() {
		dir = Asc
	}
	q.sorts = append(q.sorts, SortClause{Field: field, Direction: dir})
	return q
}

// AddSorts appends several sort clauses in order.
func (q *Query) AddSorts(clauses ...SortClause) *Query {
	for _, c := range clauses {
		q.AddSort(c.Field, c.Direction)
	}
	return q
}

// Sorts returns the sort clauses as rendered, including the trailing score tie-break.
func (q *Query) Sorts() []SortClause {
	if len(q.sorts) == 0 {
		return nil
	}
	out := make([]SortClause, 0, len(q.sorts)+1)
	hasScore := false
	for _, s := range q.sorts {
		if s.Field == ScoreField {
			if hasScore {
				continue
			}
			hasScore = true
		}
		out = append(out, s)
	}
	if !hasScore {
		out = append(out, SortClause{Field: ScoreField, Direction: Desc})
	}
	return out
}

// AddResultField requests field in the results. typ is "raw" or "snippet"; size 0 means default.
func (q *Query) AddResultField(field, typ string, size int) *Query {
	if typ == "" {
		typ = "raw"
	}
	if q.resultFields == nil {
		q.resultFields = make(map[string]ResultField)
	}
	if _, ok := q.resultFields[field]; !ok {
		q.resultOrder = append(q.resultOrder, field)
	}
	q.resultFields[field] = ResultField{Type: typ, Size: size}
	return q
}

// AddSearchField restricts matching to field with an optional relevance weight.
func (q *Query) AddSearchField(field string, weight int) *Query {
	if q.searchFields == nil {
		q.searchFields = make(map[string]int)
	}
	if _, ok := q.searchFields[field]; !ok {
		q.searchOrder = append(q.searchOrder, field)
	}
	q.searchFields[field] = weight
	return q
}

// SetPagination sets the page size and 1-based page number.
func (q *Query) SetPagination(size, num int) *Query {
	q.pageSize = size
	q.pageNum = num
	q.hasPagination = true
	return q
}

// HasPagination reports whether pagination was set explicitly.
func (q *Query) HasPagination() bool { return q.hasPagination }

// PageSize returns the requested page size.
func (q *Query) PageSize() int { return q.pageSize }

// PageNum returns the requested 1-based page number.
func (q *Query) PageNum() int { return q.pageNum }

// AddTags attaches analytics tags to the query.
func (q *Query) AddTags(tags ...string) *Query {
	q.tags = append(q.tags, tags...)
	return q
}

// Tags returns the analytics tags.
func (q *Query) Tags() []string { return q.tags }
