package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain/engine"
	"github.com/kailas-cloud/appsearch/internal/domain/search/query"
)

// DefaultPaginationSize is the page size applied to queries without explicit pagination.
const DefaultPaginationSize = 10

// Config holds search service settings.
type Config struct {
	PaginationSize int
	// EngineVariant suffixes engine names; "`ENV_VAR`" reads the suffix from the environment.
	EngineVariant string
}

// PreValidationHook may rewrite a raw response before it is validated.
// The input is not guaranteed to be a valid search response.
type PreValidationHook func(raw []byte) []byte

// Service runs searches against App Search and wraps the responses.
type Service struct {
	transport Transport
	mapper    *Mapper
	cfg       Config
	hook      PreValidationHook
	logger    *zap.Logger
}

// New creates a search service.
func New(transport Transport, mapper *Mapper, cfg Config, logger *zap.Logger) *Service {
	if cfg.PaginationSize <= 0 {
		cfg.PaginationSize = DefaultPaginationSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transport: transport, mapper: mapper, cfg: cfg, logger: logger}
}

// SetPreValidationHook installs a hook run on every raw response before validation.
func (s *Service) SetPreValidationHook(h PreValidationHook) { s.hook = h }

// EngineName returns the environment-specific name for engineName.
func (s *Service) EngineName(engineName string) string {
	return engine.Environmentize(engineName, s.cfg.EngineVariant)
}

// PageNum converts a zero-based result offset into a 1-based page number.
// An absent offset and offset 0 both mean page 1.
func (s *Service) PageNum(start int) int {
	if start < 0 {
		start = 0
	}
	return start/s.cfg.PaginationSize + 1
}

// Search runs q against engineName. start is the zero-based result offset used
// when q carries no explicit pagination.
func (s *Service) Search(ctx context.Context, q *query.Query, engineName string, start int) (*Result, error) {
	s.paginate(q, start)
	eng := s.EngineName(engineName)

	raw, err := s.transport.Search(ctx, eng, q.Body())
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", eng, err)
	}
	if s.hook != nil {
		raw = s.hook(raw)
	}

	res, err := NewResult(q, raw, false, s.mapper)
	if err != nil {
		s.logger.Error("Invalid search response", zap.String("engine", eng), zap.Error(err))
		return nil, fmt.Errorf("search %s: %w", eng, err)
	}
	res.SetEngineName(eng)
	return res, nil
}

// MultiSearch runs every query of mq in one request.
func (s *Service) MultiSearch(ctx context.Context, mq *query.Multi, engineName string, start int) (*MultiResult, error) {
	for _, q := range mq.Queries() {
		s.paginate(q, start)
	}
	eng := s.EngineName(engineName)

	raw, err := s.transport.MultiSearch(ctx, eng, mq.Render())
	if err != nil {
		return nil, fmt.Errorf("multi-search %s: %w", eng, err)
	}
	if s.hook != nil {
		raw = s.hook(raw)
	}

	res, err := NewMultiResult(mq, raw, s.mapper)
	if err != nil {
		s.logger.Error("Invalid multi-search response", zap.String("engine", eng), zap.Error(err))
		return nil, fmt.Errorf("multi-search %s: %w", eng, err)
	}
	res.SetEngineName(eng)
	return res, nil
}

func (s *Service) paginate(q *query.Query, start int) {
	if !q.HasPagination() {
		q.SetPagination(s.cfg.PaginationSize, s.PageNum(start))
	}
}
