package query

// Record context fields are always requested so hits can be mapped back to records.
const (
	FieldRecordBaseClass = "record_base_class"
	FieldRecordID        = "record_id"
)

// Params renders the search parameters (everything except the query string)
// in App Search request shape.
func (q *Query) Params() map[string]any {
	params := make(map[string]any)

	if q.rawFilters != nil {
		params["filters"] = q.rawFilters
	}
	if q.rawFacets != nil {
		params["facets"] = q.rawFacets
	}
	if sorts := q.Sorts(); len(sorts) > 0 {
		rendered := make([]map[string]string, len(sorts))
		for i, s := range sorts {
			rendered[i] = map[string]string{s.Field: string(s.Direction)}
		}
		params["sort"] = rendered
	}
	if q.resultFields != nil {
		params["result_fields"] = q.renderResultFields()
	}
	if q.searchFields != nil {
		params["search_fields"] = q.renderSearchFields()
	}
	if q.hasPagination {
		params["page"] = map[string]int{
			"size":    q.pageSize,
			"current": q.pageNum,
		}
	}
	if len(q.tags) > 0 {
		params["analytics"] = map[string]any{"tags": q.tags}
	}

	return params
}

// Body renders the full request body: the query string plus Params.
func (q *Query) Body() map[string]any {
	body := q.Params()
	body["query"] = q.RenderedQuery()
	return body
}

func (q *Query) renderResultFields() map[string]any {
	out := map[string]any{
		FieldRecordBaseClass: map[string]any{"raw": map[string]any{}},
		FieldRecordID:        map[string]any{"raw": map[string]any{}},
	}
	for _, field := range q.resultOrder {
		rf := q.resultFields[field]
		opts := map[string]any{}
		if rf.Size > 0 {
			opts["size"] = rf.Size
		}
		out[field] = map[string]any{rf.Type: opts}
	}
	return out
}

func (q *Query) renderSearchFields() map[string]any {
	out := make(map[string]any, len(q.searchFields))
	for _, field := range q.searchOrder {
		opts := map[string]any{}
		if w := q.searchFields[field]; w > 0 {
			opts["weight"] = w
		}
		out[field] = opts
	}
	return out
}
