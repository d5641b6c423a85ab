// Package response parses and validates raw App Search responses.
//
// Validation runs once in Parse; everything downstream reads typed fields.
package response

import (
	"encoding/json"
	"strconv"
)

// Page is the pagination block of a response.
type Page struct {
	Current      int
	Size         int
	TotalPages   int
	TotalResults int
}

// FieldValue is a single result field as returned by App Search: {raw, snippet}.
type FieldValue struct {
	Raw     json.RawMessage
	Snippet *string
}

// RawString renders the raw value as a string (strings unquoted, numbers as written).
func (v FieldValue) RawString() string {
	return scalarString(v.Raw)
}

// Document is a single search hit.
type Document struct {
	// ID is the upstream document id (may be empty).
	ID        string
	BaseClass string
	RecordID  string
	// Fields holds all other fields, including _meta.
	Fields map[string]FieldValue
	// Order lists field names in sorted order for deterministic iteration.
	Order []string
}

// Response is a validated search response.
type Response struct {
	Page      Page
	RequestID string
	Documents []Document
	// Facets is kept raw and reshaped lazily by the facet package.
	Facets json.RawMessage
	// Raw is the original payload.
	Raw json.RawMessage
}

// HasFacets reports whether the response carried a facets block.
func (r *Response) HasFacets() bool {
	return len(r.Facets) > 0 && string(r.Facets) != "null"
}

// scalarString unwraps {"raw": x} objects and renders strings and numbers.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return strconv.FormatBool(b)
	}
	var wrapped struct {
		Raw json.RawMessage `json:"raw"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.Raw) > 0 {
		return scalarString(wrapped.Raw)
	}
	return ""
}
