// Package spellcheck turns a zero-result query into "did you mean" rewrites.
// It never fails the caller: every error is logged and reported as no suggestions.
package spellcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/engine"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

// Defaults.
const (
	DefaultMaxSuggestions = 2
	DefaultQueryParam     = "q"
)

// EngineConfig describes how to find suggestions for one engine.
type EngineConfig struct {
	// InternalIndex and Fields drive the term suggester.
	InternalIndex string
	Fields        []string
	// AppSearchTypes switches the engine to the App Search query_suggestion
	// endpoint, passed through as the "types" parameter.
	AppSearchTypes map[string]any
}

// Config holds spellcheck settings.
type Config struct {
	MaxSuggestions int
	QueryParam     string
	// Engines is keyed by engine name before environment suffixing.
	Engines       map[string]EngineConfig
	EngineVariant string
}

// Service produces spelling suggestions.
type Service struct {
	terms   TermSuggester
	queries QuerySuggester
	cfg     Config
	lower   cases.Caser
	logger  *zap.Logger
}

// New creates a spellcheck service. Either suggester may be nil if no engine uses it.
func New(terms TermSuggester, queries QuerySuggester, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultMaxSuggestions
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = DefaultQueryParam
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		terms:   terms,
		queries: queries,
		cfg:     cfg,
		lower:   cases.Lower(language.Und),
		logger:  logger,
	}
}

// Suggestions returns up to MaxSuggestions rewrites of q for engineName, each
// with a link to currentURL carrying the rewrite. Returns nil on any failure.
func (s *Service) Suggestions(ctx context.Context, q, engineName, currentURL string) []suggest.Suggestion {
	out, err := s.suggestions(ctx, q, engineName, currentURL)
	if err != nil {
		s.logger.Error("Couldn't find spelling suggestions",
			zap.String("query", q),
			zap.String("engine", engineName),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrSuggestion, err)),
		)
		return nil
	}
	return out
}

func (s *Service) suggestions(ctx context.Context, q, engineName, currentURL string) ([]suggest.Suggestion, error) {
	name, ec, err := s.engineConfig(engineName)
	if err != nil {
		return nil, err
	}
	text := s.lower.String(q)

	var rewrites []string
	if ec.AppSearchTypes != nil || s.terms == nil {
		rewrites, err = s.querySuggestions(ctx, engine.Environmentize(name, s.cfg.EngineVariant), text, ec)
	} else {
		rewrites, err = s.termSuggestions(ctx, text, ec)
	}
	if err != nil {
		return nil, err
	}

	out := make([]suggest.Suggestion, 0, len(rewrites))
	for _, r := range rewrites {
		link, err := replaceParam(currentURL, s.cfg.QueryParam, r)
		if err != nil {
			return nil, err
		}
		out = append(out, suggest.Suggestion{Suggestion: r, Link: link})
	}
	return out, nil
}

// engineConfig matches engineName against configured engines, exact names first,
// and returns the matching config key.
func (s *Service) engineConfig(engineName string) (string, EngineConfig, error) {
	if ec, ok := s.cfg.Engines[engineName]; ok {
		return engineName, ec, nil
	}
	names := make([]string, 0, len(s.cfg.Engines))
	for name := range s.cfg.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if engine.Environmentize(name, s.cfg.EngineVariant) == engineName {
			return name, s.cfg.Engines[name], nil
		}
	}
	return "", EngineConfig{}, fmt.Errorf("%w: no spellcheck configuration for engine %q",
		domain.ErrConfigurationMissing, engineName)
}

func (s *Service) termSuggestions(ctx context.Context, text string, ec EngineConfig) ([]string, error) {
	if ec.InternalIndex == "" || len(ec.Fields) == 0 {
		return nil, fmt.Errorf("%w: spellcheck index or fields", domain.ErrConfigurationMissing)
	}
	fields, err := s.terms.Suggest(ctx, ec.InternalIndex, ec.Fields, text)
	if err != nil {
		return nil, fmt.Errorf("term suggest: %w", err)
	}
	return suggest.Select(suggest.Merge(fields), text, s.cfg.MaxSuggestions), nil
}

type querySuggestionResponse struct {
	Results struct {
		Documents []struct {
			Suggestion string `json:"suggestion"`
		} `json:"documents"`
	} `json:"results"`
}

func (s *Service) querySuggestions(ctx context.Context, engineName, text string, ec EngineConfig) ([]string, error) {
	if s.queries == nil {
		return nil, fmt.Errorf("%w: query suggestion transport", domain.ErrConfigurationMissing)
	}
	body := map[string]any{
		"query": text,
		"size":  s.cfg.MaxSuggestions,
	}
	if len(ec.AppSearchTypes) > 0 {
		body["types"] = ec.AppSearchTypes
	}

	raw, err := s.queries.QuerySuggestion(ctx, engineName, body)
	if err != nil {
		return nil, fmt.Errorf("query suggestion: %w", err)
	}
	var resp querySuggestionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.NewMalformed("results.documents", "unreadable query suggestion response")
	}

	out := make([]string, 0, len(resp.Results.Documents))
	for _, d := range resp.Results.Documents {
		if d.Suggestion == "" || d.Suggestion == text {
			continue
		}
		out = append(out, d.Suggestion)
		if len(out) >= s.cfg.MaxSuggestions {
			break
		}
	}
	return out, nil
}

// replaceParam sets param to value on rawURL, keeping path and other parameters.
func replaceParam(rawURL, param, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse current url: %w", err)
	}
	q := u.Query()
	q.Set(param, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
