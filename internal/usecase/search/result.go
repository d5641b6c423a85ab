package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/search/facet"
	"github.com/kailas-cloud/appsearch/internal/domain/search/page"
	"github.com/kailas-cloud/appsearch/internal/domain/search/query"
	"github.com/kailas-cloud/appsearch/internal/domain/search/response"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

// Result wraps one validated search response. Records and facets are derived
// lazily and memoized; a Result is built per request and never shared.
type Result struct {
	query       string
	tags        []string
	engineName  string
	partOfMulti bool

	resp   *response.Response
	mapper *Mapper

	records     *page.List[domain.Record]
	facets      []facet.Facet
	facetsErr   error
	facetsDone  bool
	suggestions []suggest.Suggestion
}

// NewResult validates raw and wraps it. No Result is returned for an invalid response.
func NewResult(q *query.Query, raw []byte, partOfMulti bool, mapper *Mapper) (*Result, error) {
	resp, err := response.Parse(raw, partOfMulti)
	if err != nil {
		return nil, err
	}
	return &Result{
		query:       q.Query(),
		tags:        q.Tags(),
		partOfMulti: partOfMulti,
		resp:        resp,
		mapper:      mapper,
	}, nil
}

// Query returns the query string the result was produced for.
func (r *Result) Query() string { return r.query }

// Tags returns the analytics tags of the originating query.
func (r *Result) Tags() []string { return r.tags }

// EngineName returns the engine the query ran against.
func (r *Result) EngineName() string { return r.engineName }

// SetEngineName records the engine the query ran against; used in clickthrough links.
func (r *Result) SetEngineName(name string) { r.engineName = name }

// IsPartOfMultiSearch reports whether the result came from a multi-search batch.
func (r *Result) IsPartOfMultiSearch() bool { return r.partOfMulti }

// RequestID returns the upstream request id, empty for multi-search elements.
func (r *Result) RequestID() string { return r.resp.RequestID }

// ActualTotalResults returns the unclamped upstream total.
func (r *Result) ActualTotalResults() int { return r.resp.Page.TotalResults }

// Response returns the validated response.
func (r *Result) Response() *response.Response { return r.resp }

// Records returns the paginated, permission-filtered records for this page.
func (r *Result) Records(ctx context.Context) *page.List[domain.Record] {
	if r.records == nil {
		r.records = r.mapper.Map(ctx, r.resp, ResultContext{
			Query:      r.query,
			RequestID:  r.resp.RequestID,
			EngineName: r.engineName,
			Tags:       r.tags,
		})
	}
	return r.records
}

// Facets returns the flattened facet groups. A response without facets yields none.
func (r *Result) Facets() ([]facet.Facet, error) {
	if !r.facetsDone {
		r.facets, r.facetsErr = facet.Extract(r.resp.Facets)
		r.facetsDone = true
	}
	return r.facets, r.facetsErr
}

// Suggestions returns spelling suggestions attached by the caller, if any.
func (r *Result) Suggestions() []suggest.Suggestion { return r.suggestions }

// SetSuggestions attaches spelling suggestions.
func (r *Result) SetSuggestions(s []suggest.Suggestion) { r.suggestions = s }

// MultiResult pairs each query of a multi-search with its response by position.
// The protocol carries no other correlation key.
type MultiResult struct {
	query   *query.Multi
	results []*Result
}

// NewMultiResult validates every element of a multi-search response.
// Any invalid element fails the whole batch.
func NewMultiResult(mq *query.Multi, raw []byte, mapper *Mapper) (*MultiResult, error) {
	parts, err := response.ParseMulti(raw)
	if err != nil {
		return nil, err
	}
	queries := mq.Queries()
	if len(parts) != len(queries) {
		return nil, domain.NewMalformed("",
			fmt.Sprintf("multi-search returned %d responses for %d queries", len(parts), len(queries)))
	}

	results := make([]*Result, len(queries))
	for i, q := range queries {
		res, err := NewResult(q, []byte(parts[i]), true, mapper)
		if err != nil {
			return nil, fmt.Errorf("multi-search response %d: %w", i, err)
		}
		results[i] = res
	}
	return &MultiResult{query: mq, results: results}, nil
}

// Query returns the originating batch.
func (m *MultiResult) Query() *query.Multi { return m.query }

// Results returns one Result per query, in query order.
func (m *MultiResult) Results() []*Result { return m.results }

// SetEngineName propagates the engine name to every sub-result.
func (m *MultiResult) SetEngineName(name string) {
	for _, r := range m.results {
		r.SetEngineName(name)
	}
}
