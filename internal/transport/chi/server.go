// Package chi exposes search, clickthrough and health over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain"
	ct "github.com/kailas-cloud/appsearch/internal/domain/clickthrough"
	"github.com/kailas-cloud/appsearch/internal/domain/search/facet"
	"github.com/kailas-cloud/appsearch/internal/domain/search/query"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
	logpkg "github.com/kailas-cloud/appsearch/internal/logger"
	"github.com/kailas-cloud/appsearch/internal/metrics"
	clickthroughuc "github.com/kailas-cloud/appsearch/internal/usecase/clickthrough"
	healthuc "github.com/kailas-cloud/appsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/appsearch/internal/usecase/search"
	spellcheckuc "github.com/kailas-cloud/appsearch/internal/usecase/spellcheck"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest           = "bad_request"
	codeNotFound             = "not_found"
	codeConfigurationMissing = "configuration_missing"
	codeUpstream             = "upstream_error"
	codeMalformedResponse    = "malformed_response"
	codeInternal             = "internal_error"
)

// Defaults for Config.
const (
	DefaultQueryParam       = "q"
	DefaultPaginationGetVar = "start"
	DefaultClickthroughPath = "_click"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Config controls request parsing.
type Config struct {
	// DefaultEngine is searched when the request names none.
	DefaultEngine string
	// QueryParam carries the search string.
	QueryParam string
	// PaginationGetVar carries the zero-based result offset.
	PaginationGetVar string
	// ClickthroughPath is the redirect route, without leading slash.
	ClickthroughPath string
	// SnippetFields are requested as snippets on every search.
	SnippetFields []string
}

// Server serves the HTTP API.
type Server struct {
	search        *searchuc.Service
	spellcheck    *spellcheckuc.Service
	clicks        *clickthroughuc.Service
	health        *healthuc.Service
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. spellcheck may be nil.
func NewServer(
	search *searchuc.Service,
	spellcheck *spellcheckuc.Service,
	clicks *clickthroughuc.Service,
	health *healthuc.Service,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.QueryParam == "" {
		cfg.QueryParam = DefaultQueryParam
	}
	if cfg.PaginationGetVar == "" {
		cfg.PaginationGetVar = DefaultPaginationGetVar
	}
	cfg.ClickthroughPath = strings.Trim(cfg.ClickthroughPath, "/")
	if cfg.ClickthroughPath == "" {
		cfg.ClickthroughPath = DefaultClickthroughPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		search:     search,
		spellcheck: spellcheck,
		clicks:     clicks,
		health:     health,
		cfg:        cfg,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrConfigurationMissing, http.StatusServiceUnavailable, codeConfigurationMissing),
		sentinelHandler(domain.ErrResponseIsError, http.StatusBadGateway, codeUpstream),
		malformedResponseHandler,
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, codeUpstream),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(MemberMiddleware())
	r.Use(metrics.Middleware())

	r.Get("/search", s.Search)
	r.Get("/"+s.cfg.ClickthroughPath, s.Clickthrough)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

type searchParams struct {
	Query       string
	Engine      *string
	Start       *int
	Tags        *[]string
	Sort        *[]string
	Typo        *bool
	Spellcheck  *bool
	SearchField *[]string
}

func (s *Server) bindSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	var p searchParams
	binds := []struct {
		name     string
		required bool
		dest     any
	}{
		{s.cfg.QueryParam, true, &p.Query},
		{"engine", false, &p.Engine},
		{s.cfg.PaginationGetVar, false, &p.Start},
		{"tag", false, &p.Tags},
		{"sort", false, &p.Sort},
		{"typo", false, &p.Typo},
		{"spellcheck", false, &p.Spellcheck},
		{"search_field", false, &p.SearchField},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			return searchParams{}, err
		}
	}
	return p, nil
}

// buildQuery turns request parameters into a search query. Sorts are "field" or "field:dir".
func (s *Server) buildQuery(p searchParams) (*query.Query, error) {
	q := query.New(p.Query)
	for _, f := range s.cfg.SnippetFields {
		q.AddResultField(f, "snippet", 0)
	}
	if p.SearchField != nil {
		for _, f := range *p.SearchField {
			q.AddSearchField(f, 0)
		}
	}
	if p.Sort != nil {
		for _, raw := range *p.Sort {
			field, dir, _ := strings.Cut(raw, ":")
			d := query.Asc
			if dir != "" {
				d = query.Direction(strings.ToLower(dir))
			}
			if field == "" || !d.IsValid() {
				return nil, errors.New("invalid sort " + raw)
			}
			q.AddSort(field, d)
		}
	}
	if p.Tags != nil {
		q.AddTags(*p.Tags...)
	}
	if p.Typo != nil && !*p.Typo {
		q.DisableTypoTolerance()
	}
	return q, nil
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	p, err := s.bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	q, err := s.buildQuery(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	engine := s.cfg.DefaultEngine
	if p.Engine != nil && *p.Engine != "" {
		engine = *p.Engine
	}
	if engine == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "engine is required")
		return
	}
	start := 0
	if p.Start != nil {
		start = *p.Start
	}

	r = r.WithContext(logpkg.With(r.Context(), zap.String("engine", engine)))

	res, err := s.search.Search(r.Context(), q, engine, start)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	records := res.Records(r.Context())
	facets, err := res.Facets()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	wantSpelling := p.Spellcheck == nil || *p.Spellcheck
	if s.spellcheck != nil && wantSpelling && records.TotalItems() == 0 && p.Query != "" {
		// Suggestion config is keyed by the unsuffixed engine name.
		res.SetSuggestions(s.spellcheck.Suggestions(r.Context(), p.Query, engine, r.URL.RequestURI()))
	}

	out := searchResponse{
		Query:     res.Query(),
		Engine:    res.EngineName(),
		RequestID: res.RequestID(),
		Page: pageResponse{
			Current:            records.CurrentPage(),
			Size:               records.PageLength(),
			TotalPages:         records.TotalPages(),
			TotalResults:       records.TotalItems(),
			ActualTotalResults: res.ActualTotalResults(),
			FirstItem:          records.FirstItem(),
			LastItem:           records.LastItem(),
			HasPrev:            records.HasPrev(),
			HasNext:            records.HasNext(),
		},
		Results:     make([]recordResponse, 0, records.Len()),
		Facets:      facets,
		Suggestions: res.Suggestions(),
	}
	for _, rec := range records.Items() {
		out.Results = append(out.Results, recordResponse{
			ID:               rec.ID(),
			Class:            rec.ClassName(),
			Title:            rec.Title(),
			Link:             rec.Link(),
			ClickthroughLink: rec.ClickthroughLink(),
			Snippets:         rec.Snippets(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Clickthrough handles GET /_click: resolves the token and redirects to the record.
func (s *Server) Clickthrough(w http.ResponseWriter, r *http.Request) {
	var token string
	if err := runtime.BindQueryParameter("form", true, true, ct.Param, r.URL.Query(), &token); err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrNotFound.Error())
		return
	}

	link, err := s.clicks.Resolve(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

// HealthCheck handles GET /health. Only an unreachable record store answers 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type pageResponse struct {
	Current            int  `json:"current"`
	Size               int  `json:"size"`
	TotalPages         int  `json:"total_pages"`
	TotalResults       int  `json:"total_results"`
	ActualTotalResults int  `json:"actual_total_results"`
	FirstItem          int  `json:"first_item"`
	LastItem           int  `json:"last_item"`
	HasPrev            bool `json:"has_prev"`
	HasNext            bool `json:"has_next"`
}

type recordResponse struct {
	ID               string            `json:"id"`
	Class            string            `json:"class"`
	Title            string            `json:"title"`
	Link             string            `json:"link"`
	ClickthroughLink string            `json:"clickthrough_link,omitempty"`
	Snippets         map[string]string `json:"snippets,omitempty"`
}

type searchResponse struct {
	Query       string               `json:"query"`
	Engine      string               `json:"engine"`
	RequestID   string               `json:"request_id"`
	Page        pageResponse         `json:"page"`
	Results     []recordResponse     `json:"results"`
	Facets      []facet.Facet        `json:"facets"`
	Suggestions []suggest.Suggestion `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrConfigurationMissing,
		domain.ErrResponseIsError,
		domain.ErrMalformedResponse,
		domain.ErrUpstream,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// malformedResponseHandler reports which response field broke validation.
func malformedResponseHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrMalformedResponse) {
		return false
	}
	resp := errorResponse{Code: codeMalformedResponse, Message: msg}
	var mre *domain.MalformedResponseError
	if errors.As(err, &mre) {
		resp.Field = mre.Field
	}
	writeJSON(w, http.StatusBadGateway, resp)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
