// Package clickthrough resolves clickthrough tokens to record links and reports
// the click upstream.
package clickthrough

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain"
	ct "github.com/kailas-cloud/appsearch/internal/domain/clickthrough"
)

// Service resolves clickthrough tokens.
type Service struct {
	store  RecordStore
	types  TypeMapper
	clicks ClickLogger
	logger *zap.Logger
}

// New creates a Service. clicks can be nil to skip upstream logging.
func New(store RecordStore, types TypeMapper, clicks ClickLogger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, types: types, clicks: clicks, logger: logger}
}

// Resolve decodes token, loads the record and returns its link. Every failure to
// reach an existing record is reported as domain.ErrNotFound. Upstream logging
// runs before returning and never fails the call.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	p, err := ct.Decode(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}

	class := s.types.TypeToClass(p.Type)
	if class == "" {
		return "", fmt.Errorf("%w: invalid type %q", domain.ErrNotFound, p.Type)
	}

	rec, err := s.store.Resolve(ctx, class, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		s.logger.Error("Couldn't register clickthrough",
			zap.String("class", class),
			zap.String("id", p.ID),
			zap.Any("data", p),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	if rec == nil || !rec.Exists() {
		return "", fmt.Errorf("record %s#%s: %w", class, p.ID, domain.ErrNotFound)
	}

	s.register(ctx, p)
	return rec.Link(), nil
}

func (s *Service) register(ctx context.Context, p ct.Payload) {
	if !p.Loggable() {
		s.logger.Warn("Not enough information to register clickthrough", zap.Any("data", p))
		return
	}
	if s.clicks == nil {
		return
	}

	var tags []string
	if len(p.Tags) > 0 {
		tags = p.Tags
	}
	if err := s.clicks.LogClickthrough(ctx, p.EngineName, p.Query, p.DocumentID, p.RequestID, tags); err != nil {
		s.logger.Error("Error while logging clickthrough",
			zap.String("engine", p.EngineName),
			zap.String("document_id", p.DocumentID),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrClickthroughLogging, err)),
		)
	}
}
