// Package facet reshapes the App Search facets block into a flat list of bucket groups.
package facet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/appsearch/internal/domain"
)

// defaultLookupName is the group name assumed when Lookup is called without one.
// It matches the positional name given to the first unnamed group.
const defaultLookupName = "0"

// Bucket is a single facet count. Absent value, from and to are empty strings.
type Bucket struct {
	Value string `json:"value"`
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Facet is one bucket group of a faceted property.
type Facet struct {
	Property string   `json:"property"`
	Name     string   `json:"name"`
	Data     []Bucket `json:"data"`
}

type rawGroup struct {
	Type string            `json:"type"`
	Name json.RawMessage   `json:"name"`
	Data []json.RawMessage `json:"data"`
}

type rawBucket struct {
	Value json.RawMessage `json:"value"`
	From  json.RawMessage `json:"from"`
	To    json.RawMessage `json:"to"`
	Count *int            `json:"count"`
}

// Extract flattens raw (property -> [group]) into facets.
// Properties keep the order they appear in raw. An empty or null block yields no facets.
func Extract(raw json.RawMessage) ([]Facet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Facet{}, nil
	}

	properties, err := orderedKeys(trimmed)
	if err != nil {
		return nil, domain.NewMalformed("facets", "expected an object")
	}
	var groups map[string][]rawGroup
	if err := json.Unmarshal(trimmed, &groups); err != nil {
		return nil, domain.NewMalformed("facets", "expected lists of bucket groups")
	}

	out := make([]Facet, 0, len(properties))
	for _, property := range properties {
		for i, group := range groups[property] {
			name := scalar(group.Name)
			if name == "" {
				name = strconv.Itoa(i)
			}
			data, err := buckets(property, group.Data)
			if err != nil {
				return nil, err
			}
			out = append(out, Facet{Property: property, Name: name, Data: data})
		}
	}
	return out, nil
}

// Lookup returns the data of the first group matching property and name.
// name defaults to "0"; an unmatched lookup returns an empty slice.
func Lookup(facets []Facet, property string, name ...string) []Bucket {
	want := defaultLookupName
	if len(name) > 0 {
		want = name[0]
	}
	for _, f := range facets {
		if f.Property == property && f.Name == want {
			return f.Data
		}
	}
	return []Bucket{}
}

func buckets(property string, raw []json.RawMessage) ([]Bucket, error) {
	out := make([]Bucket, 0, len(raw))
	for _, item := range raw {
		var b rawBucket
		if err := json.Unmarshal(item, &b); err != nil {
			return nil, domain.NewMalformed("facets."+property, "expected bucket objects")
		}
		if b.Count == nil {
			return nil, domain.NewMalformed("facets."+property, "bucket without count")
		}
		out = append(out, Bucket{
			Value: scalar(b.Value),
			From:  scalar(b.From),
			To:    scalar(b.To),
			Count: *b.Count,
		})
	}
	return out, nil
}

// orderedKeys returns the top-level keys of a JSON object in document order.
func orderedKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func scalar(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(trimmed)
}
