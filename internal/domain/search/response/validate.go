package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

var pageKeys = []string{"current", "size", "total_pages", "total_results"}

// reservedFields are never treated as snippet carriers.
var reservedFields = map[string]struct{}{
	"_meta":             {},
	"id":                {},
	"record_base_class": {},
	"record_id":         {},
}

// IsReservedField reports whether name is one of the protocol fields.
func IsReservedField(name string) bool {
	_, ok := reservedFields[name]
	return ok
}

// Parse validates raw against the search response envelope and returns the typed form.
// partOfMulti relaxes the request_id requirement for elements of a multi-search batch.
// Checks run in a fixed order and the first failure wins.
func Parse(raw []byte, partOfMulti bool) (*Response, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, domain.NewMalformed("", "response decoded as JSON but is not an App Search response")
	}

	if _, ok := top["errors"]; ok {
		return nil, fmt.Errorf("%w: response appears to be from App Search but is an error, not a valid search result",
			domain.ErrResponseIsError)
	}

	metaRaw, hasMeta := top["meta"]
	resultsRaw, hasResults := top["results"]
	if !hasMeta || !hasResults {
		return nil, domain.NewMalformed("", "response decoded as JSON but is not an App Search response")
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, domain.NewMalformed("meta", "expected an object")
	}

	pageRaw, ok := meta["page"]
	if !ok {
		return nil, domain.NewMalformed("meta.page", "missing array structure")
	}
	var pageFields map[string]json.RawMessage
	if err := json.Unmarshal(pageRaw, &pageFields); err != nil {
		return nil, domain.NewMalformed("meta.page", "expected an object")
	}
	for _, key := range pageKeys {
		if _, ok := pageFields[key]; !ok {
			return nil, domain.NewMalformed("meta.page."+key, "expected value not found")
		}
	}
	page, err := decodePage(pageFields)
	if err != nil {
		return nil, err
	}

	requestIDRaw, hasRequestID := meta["request_id"]
	if !hasRequestID && !partOfMulti {
		return nil, domain.NewMalformed("meta.request_id", "expected value not found")
	}

	trimmed := bytes.TrimSpace(resultsRaw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.NewMalformed("results", "expected results to be a list")
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(resultsRaw, &items); err != nil {
		return nil, domain.NewMalformed("results", "expected results to be a list of objects")
	}

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		_, hasClass := item["record_base_class"]
		_, hasID := item["record_id"]
		if !hasClass || !hasID {
			return nil, domain.NewMalformed("results", "unexpected document returned without object context")
		}
		docs = append(docs, decodeDocument(item))
	}

	return &Response{
		Page:      page,
		RequestID: scalarString(requestIDRaw),
		Documents: docs,
		Facets:    top["facets"],
		Raw:       append(json.RawMessage(nil), raw...),
	}, nil
}

// ParseMulti splits a multi-search payload into its positional elements.
func ParseMulti(raw []byte) ([]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if json.Unmarshal(raw, &top) == nil {
		if _, ok := top["errors"]; ok {
			return nil, fmt.Errorf("%w: multi-search response is an error", domain.ErrResponseIsError)
		}
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, domain.NewMalformed("", "multi-search response is not a list")
	}
	return parts, nil
}

func decodePage(fields map[string]json.RawMessage) (Page, error) {
	values := make(map[string]int, len(pageKeys))
	for _, key := range pageKeys {
		var n int
		if err := json.Unmarshal(fields[key], &n); err != nil {
			return Page{}, domain.NewMalformed("meta.page."+key, "expected an integer")
		}
		values[key] = n
	}
	return Page{
		Current:      values["current"],
		Size:         values["size"],
		TotalPages:   values["total_pages"],
		TotalResults: values["total_results"],
	}, nil
}

func decodeDocument(item map[string]json.RawMessage) Document {
	doc := Document{
		BaseClass: scalarString(item["record_base_class"]),
		RecordID:  scalarString(item["record_id"]),
		ID:        scalarString(item["id"]),
		Fields:    make(map[string]FieldValue, len(item)),
	}
	for name, raw := range item {
		doc.Fields[name] = decodeFieldValue(raw)
	}
	doc.Order = fieldOrder(item)
	if doc.ID == "" {
		doc.ID = metaID(item["_meta"])
	}
	return doc
}

func decodeFieldValue(raw json.RawMessage) FieldValue {
	var obj struct {
		Raw     json.RawMessage `json:"raw"`
		Snippet *string         `json:"snippet"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(raw, &obj) == nil {
		return FieldValue{Raw: obj.Raw, Snippet: obj.Snippet}
	}
	return FieldValue{Raw: raw}
}

func metaID(raw json.RawMessage) string {
	var meta struct {
		ID json.RawMessage `json:"id"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &meta) != nil {
		return ""
	}
	return scalarString(meta.ID)
}

func fieldOrder(item map[string]json.RawMessage) []string {
	names := make([]string, 0, len(item))
	for name := range item {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
