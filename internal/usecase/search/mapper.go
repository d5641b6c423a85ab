package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/clickthrough"
	"github.com/kailas-cloud/appsearch/internal/domain/search/page"
	"github.com/kailas-cloud/appsearch/internal/domain/search/response"
	"github.com/kailas-cloud/appsearch/internal/metrics"
)

// Upstream paging limits: App Search refuses pages past these bounds.
const (
	DefaultPageLimit           = 100
	DefaultAbsoluteResultLimit = 10000
	DefaultClickthroughBaseURL = "_click"
)

// MapperConfig controls result mapping.
type MapperConfig struct {
	PageLimit           int
	AbsoluteResultLimit int
	ClickthroughEnabled bool
	ClickthroughBaseURL string
}

// DefaultMapperConfig returns the upstream limits with clickthrough tracking on.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		PageLimit:           DefaultPageLimit,
		AbsoluteResultLimit: DefaultAbsoluteResultLimit,
		ClickthroughEnabled: true,
		ClickthroughBaseURL: DefaultClickthroughBaseURL,
	}
}

// Augmenter post-processes a resolved record before the visibility check.
type Augmenter func(ctx context.Context, rec domain.Record, doc response.Document)

// ResultContext is what the mapper needs to know about the originating search.
type ResultContext struct {
	Query      string
	RequestID  string
	EngineName string
	Tags       []string
}

// Mapper turns validated hits into a paginated, permission-filtered record list.
type Mapper struct {
	store   RecordStore
	types   TypeMapper
	cfg     MapperConfig
	augment Augmenter
	logger  *zap.Logger
}

// NewMapper creates a result mapper. types and logger may be nil.
func NewMapper(store RecordStore, types TypeMapper, cfg MapperConfig, logger *zap.Logger) *Mapper {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.AbsoluteResultLimit <= 0 {
		cfg.AbsoluteResultLimit = DefaultAbsoluteResultLimit
	}
	if cfg.ClickthroughBaseURL == "" {
		cfg.ClickthroughBaseURL = DefaultClickthroughBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{store: store, types: types, cfg: cfg, logger: logger}
}

// SetAugmenter installs the post-resolution hook.
func (m *Mapper) SetAugmenter(fn Augmenter) *Mapper {
	m.augment = fn
	return m
}

// EffectiveTotal caps total at what upstream can actually page through.
func (m *Mapper) EffectiveTotal(p response.Page) int {
	return min(p.TotalResults, m.cfg.PageLimit*p.Size, m.cfg.AbsoluteResultLimit)
}

// Map resolves every hit in response order. Unresolvable, missing and
// forbidden records are dropped without failing the whole page.
func (m *Mapper) Map(ctx context.Context, resp *response.Response, rc ResultContext) *page.List[domain.Record] {
	member := domain.MemberFromContext(ctx)
	records := make([]domain.Record, 0, len(resp.Documents))

	for _, doc := range resp.Documents {
		rec, err := m.store.Resolve(ctx, doc.BaseClass, doc.RecordID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				m.logger.Warn("Could not resolve search result",
					zap.String("class", doc.BaseClass),
					zap.String("id", doc.RecordID),
					zap.Error(err),
				)
			}
			metrics.RecordsSkippedTotal.WithLabelValues("unresolved").Inc()
			continue
		}
		if rec == nil || !rec.Exists() {
			metrics.RecordsSkippedTotal.WithLabelValues("missing").Inc()
			continue
		}

		if snippets := extractSnippets(doc); len(snippets) > 0 {
			rec.SetSnippets(snippets)
		}
		if m.cfg.ClickthroughEnabled {
			m.attachClickthrough(rec, doc, rc)
		}
		if m.augment != nil {
			m.augment(ctx, rec, doc)
		}

		if !visible(ctx, rec, member) {
			metrics.RecordsSkippedTotal.WithLabelValues("forbidden").Inc()
			continue
		}
		records = append(records, rec)
	}

	return page.New(records, resp.Page.Size, m.EffectiveTotal(resp.Page), resp.Page.Current)
}

func (m *Mapper) attachClickthrough(rec domain.Record, doc response.Document, rc ResultContext) {
	typ := rec.ClassName()
	if m.types != nil {
		typ = m.types.ClassToType(typ)
	}
	link, err := clickthrough.Link(m.cfg.ClickthroughBaseURL, clickthrough.Payload{
		ID:         rec.ID(),
		Type:       typ,
		Tags:       rc.Tags,
		Query:      rc.Query,
		RequestID:  rc.RequestID,
		DocumentID: doc.ID,
		EngineName: rc.EngineName,
	})
	if err != nil {
		m.logger.Warn("Failed to build clickthrough link", zap.String("id", rec.ID()), zap.Error(err))
		return
	}
	rec.SetClickthroughLink(link)
}

func extractSnippets(doc response.Document) map[string]string {
	var snippets map[string]string
	for _, name := range doc.Order {
		if response.IsReservedField(name) {
			continue
		}
		if v := doc.Fields[name]; v.Snippet != nil {
			if snippets == nil {
				snippets = make(map[string]string)
			}
			snippets[name] = *v.Snippet
		}
	}
	return snippets
}

func visible(ctx context.Context, rec domain.Record, member *domain.Member) bool {
	if sv, ok := rec.(domain.SearchViewer); ok {
		if allowed, decided := sv.CanViewInSearch(ctx, member); decided {
			return allowed
		}
	}
	return rec.CanView(ctx, member)
}
