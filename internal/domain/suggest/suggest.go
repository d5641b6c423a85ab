// Package suggest merges per-field spelling suggestions and picks whole-query rewrites.
package suggest

import (
	"sort"
	"strings"
)

// identityScore is given to an original word the engine had no better spelling for.
const identityScore = 1.0

// Option is one spelling offered for a word.
type Option struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Entry is the engine's answer for one original query word.
type Entry struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// FieldSuggestions holds the entries a single field produced, one per query word.
type FieldSuggestions struct {
	Field   string
	Entries []Entry
}

// WordCandidates is the merged, score-ordered candidate list for one original word.
type WordCandidates struct {
	Word       string
	Candidates []Option
}

// Merged is the merge output, ordered by first appearance of each word.
type Merged []WordCandidates

// Candidates returns the candidates for word, or nil.
func (m Merged) Candidates(word string) []Option {
	for _, wc := range m {
		if wc.Word == word {
			return wc.Candidates
		}
	}
	return nil
}

// Merge folds every field's suggestions into one candidate list per word.
// Duplicate spellings keep the highest score seen. A word without options
// contributes itself at score 1. Candidates are ordered by score descending,
// ties keep insertion order.
func Merge(fields []FieldSuggestions) Merged {
	var merged Merged
	index := make(map[string]int)

	for _, field := range fields {
		for _, entry := range field.Entries {
			pos, ok := index[entry.Text]
			if !ok {
				pos = len(merged)
				index[entry.Text] = pos
				merged = append(merged, WordCandidates{Word: entry.Text})
			}

			if len(entry.Options) == 0 {
				merged[pos].Candidates = upsert(merged[pos].Candidates, Option{Text: entry.Text, Score: identityScore})
				continue
			}
			for _, opt := range entry.Options {
				merged[pos].Candidates = upsert(merged[pos].Candidates, opt)
			}
		}
	}

	for i := range merged {
		c := merged[i].Candidates
		sort.SliceStable(c, func(a, b int) bool { return c[a].Score > c[b].Score })
	}
	return merged
}

func upsert(candidates []Option, opt Option) []Option {
	for i := range candidates {
		if candidates[i].Text == opt.Text {
			candidates[i].Score = max(candidates[i].Score, opt.Score)
			return candidates
		}
	}
	return append(candidates, opt)
}

// Select builds up to n rewritten queries by substituting each candidate for its
// word in query. Rewrites identical to query are skipped.
func Select(merged Merged, query string, n int) []string {
	out := make([]string, 0, max(n, 0))
	if n <= 0 {
		return out
	}
	for _, wc := range merged {
		for _, c := range wc.Candidates {
			rewritten := strings.ReplaceAll(query, wc.Word, c.Text)
			if rewritten == query {
				continue
			}
			out = append(out, rewritten)
			if len(out) >= n {
				return out
			}
		}
	}
	return out
}

// Suggestion is a rewritten query plus the link that runs it.
type Suggestion struct {
	Suggestion string `json:"suggestion"`
	Link       string `json:"link"`
}
