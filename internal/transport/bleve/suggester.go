// Package bleve provides an embedded term suggester over local Bleve indexes.
package bleve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

const (
	// DefaultMaxEdits is the largest edit distance considered a candidate.
	DefaultMaxEdits = 2
	// DefaultMaxOptions caps candidates per word.
	DefaultMaxOptions = 5
	// minWordLength skips very short words, mirroring term suggesters upstream.
	minWordLength = 4
)

// Suggester answers term suggestion requests from Bleve field dictionaries.
// Indexes are opened lazily from dir/<index>.
type Suggester struct {
	dir        string
	maxEdits   int
	maxOptions int

	mu      sync.Mutex
	indexes map[string]bleve.Index
}

// New creates a suggester reading indexes under dir.
func New(dir string) *Suggester {
	return &Suggester{
		dir:        dir,
		maxEdits:   DefaultMaxEdits,
		maxOptions: DefaultMaxOptions,
		indexes:    make(map[string]bleve.Index),
	}
}

// NewIndexMapping builds the mapping for a suggestion index: every field uses the
// standard analyzer (lowercase + tokenize, no stemming) so dictionary terms match
// the words users type.
func NewIndexMapping(fields []string) mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	for _, f := range fields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		doc.AddFieldMappingsAt(f, fm)
	}
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// Create creates a new on-disk index named name under the suggester's directory.
func (s *Suggester) Create(name string, fields []string) (bleve.Index, error) {
	idx, err := bleve.New(filepath.Join(s.dir, name), NewIndexMapping(fields))
	if err != nil {
		return nil, fmt.Errorf("create bleve index %s: %w", name, err)
	}
	s.Register(name, idx)
	return idx, nil
}

// Register attaches an already-open index under name.
func (s *Suggester) Register(name string, idx bleve.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[name] = idx
}

func (s *Suggester) index(name string) (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	if s.dir == "" {
		return nil, fmt.Errorf("bleve index %s: %w", name, domain.ErrConfigurationMissing)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("bleve index %s: %w", name, domain.ErrConfigurationMissing)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bleve index %s: %w", name, err)
	}
	s.indexes[name] = idx
	return idx, nil
}

// Suggest returns, per field, one entry per word of text. A word present in the
// field dictionary (or without near terms) gets an entry with no options.
func (s *Suggester) Suggest(
	ctx context.Context, index string, fields []string, text string,
) ([]suggest.FieldSuggestions, error) {
	idx, err := s.index(index)
	if err != nil {
		return nil, err
	}

	words := strings.Fields(strings.ToLower(text))
	out := make([]suggest.FieldSuggestions, 0, len(fields))
	for _, field := range fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		terms, err := fieldTerms(idx, field)
		if err != nil {
			return nil, err
		}
		fs := suggest.FieldSuggestions{Field: field, Entries: make([]suggest.Entry, 0, len(words))}
		for _, w := range words {
			fs.Entries = append(fs.Entries, suggest.Entry{Text: w, Options: s.candidates(w, terms)})
		}
		out = append(out, fs)
	}
	return out, nil
}

// Close closes every open index.
func (s *Suggester) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, idx := range s.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close bleve index %s: %w", name, err)
		}
		delete(s.indexes, name)
	}
	return firstErr
}

func fieldTerms(idx bleve.Index, field string) (map[string]uint64, error) {
	dict, err := idx.FieldDict(field)
	if err != nil {
		return nil, fmt.Errorf("field dictionary %s: %w", field, err)
	}
	defer func() { _ = dict.Close() }()

	terms := make(map[string]uint64)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("field dictionary %s: %w", field, err)
		}
		if entry == nil {
			break
		}
		terms[entry.Term] = entry.Count
	}
	return terms, nil
}

type candidate struct {
	term  string
	score float64
	freq  uint64
}

func (s *Suggester) candidates(word string, terms map[string]uint64) []suggest.Option {
	if _, ok := terms[word]; ok {
		return nil
	}
	wl := len([]rune(word))
	if wl < minWordLength {
		return nil
	}

	var found []candidate
	for term, freq := range terms {
		tl := len([]rune(term))
		if abs(tl-wl) > s.maxEdits {
			continue
		}
		d := levenshtein(word, term)
		if d == 0 || d > s.maxEdits {
			continue
		}
		found = append(found, candidate{
			term:  term,
			score: 1 - float64(d)/float64(max(wl, tl)),
			freq:  freq,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		if found[i].freq != found[j].freq {
			return found[i].freq > found[j].freq
		}
		return found[i].term < found[j].term
	})
	if len(found) > s.maxOptions {
		found = found[:s.maxOptions]
	}

	opts := make([]suggest.Option, len(found))
	for i, c := range found {
		opts[i] = suggest.Option{Text: c.term, Score: c.score}
	}
	return opts
}

// levenshtein is the rune-wise edit distance using two rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
