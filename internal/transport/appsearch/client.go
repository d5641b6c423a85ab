// Package appsearch is the HTTP client for the App Search engine API.
package appsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/metrics"
)

// Environment variables consulted when the config leaves endpoint or key empty.
// The ENTERPRISE_SEARCH_* names win over the older APP_SEARCH_* names.
const (
	EnvEndpoint       = "ENTERPRISE_SEARCH_ENDPOINT"
	EnvEndpointLegacy = "APP_SEARCH_ENDPOINT"
	EnvAPIKey         = "ENTERPRISE_SEARCH_API_SEARCH_KEY"
	EnvAPIKeyLegacy   = "APP_SEARCH_API_SEARCH_KEY"
)

const (
	opSearch          = "search"
	opMultiSearch     = "multi_search"
	opQuerySuggestion = "query_suggestion"
	opClick           = "click"

	defaultTimeout = 10 * time.Second
	apiPrefix      = "/api/as/v1/engines/"
)

// Config holds connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client talks to App Search. Credentials are resolved on every call, so a
// missing configuration surfaces on first use rather than at startup.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// New creates a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Search posts one query to the engine's search endpoint.
func (c *Client) Search(ctx context.Context, engineName string, body map[string]any) ([]byte, error) {
	return c.post(ctx, opSearch, engineName, "search", body)
}

// MultiSearch posts several queries in one request.
func (c *Client) MultiSearch(ctx context.Context, engineName string, bodies []map[string]any) ([]byte, error) {
	return c.post(ctx, opMultiSearch, engineName, "multi_search", map[string]any{"queries": bodies})
}

// QuerySuggestion posts to the engine's query_suggestion endpoint.
func (c *Client) QuerySuggestion(ctx context.Context, engineName string, body map[string]any) ([]byte, error) {
	return c.post(ctx, opQuerySuggestion, engineName, "query_suggestion", body)
}

// LogClickthrough registers a click on documentID for query. Empty requestID
// and tags are omitted from the request.
func (c *Client) LogClickthrough(
	ctx context.Context, engineName, query, documentID, requestID string, tags []string,
) error {
	body := map[string]any{
		"query":       query,
		"document_id": documentID,
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}

	raw, err := c.post(ctx, opClick, engineName, "click", body)
	if err != nil {
		return err
	}
	if errs := responseErrors(raw); errs != "" {
		return fmt.Errorf("%w: click: %s", domain.ErrUpstream, errs)
	}
	return nil
}

func (c *Client) credentials() (endpoint, key string, err error) {
	endpoint = firstNonEmpty(c.endpoint, envFallback(EnvEndpoint, EnvEndpointLegacy))
	key = firstNonEmpty(c.apiKey, envFallback(EnvAPIKey, EnvAPIKeyLegacy))
	if endpoint == "" || key == "" {
		return "", "", fmt.Errorf(
			"%w: set %s and %s (or %s and %s)",
			domain.ErrConfigurationMissing, EnvEndpoint, EnvAPIKey, EnvEndpointLegacy, EnvAPIKeyLegacy,
		)
	}
	return strings.TrimRight(endpoint, "/"), key, nil
}

// post returns the response body for any status below 500; App Search reports
// request errors in an "errors" key the response validator understands.
func (c *Client) post(ctx context.Context, op, engineName, action string, body any) (data []byte, err error) {
	endpoint, key, err := c.credentials()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	started := time.Now()
	status := "error"
	defer func() { metrics.ObserveUpstream(op, status, started) }()

	reqURL := endpoint + apiPrefix + url.PathEscape(engineName) + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUpstream, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	status = strconv.Itoa(resp.StatusCode)
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", domain.ErrUpstream, op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrUpstream, op, resp.StatusCode)
	}

	c.logger.Debug("App Search request",
		zap.String("operation", op),
		zap.String("engine", engineName),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)
	return data, nil
}

func responseErrors(raw []byte) string {
	var body struct {
		Errors []string `json:"errors"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Errors) == 0 {
		return ""
	}
	return strings.Join(body.Errors, "; ")
}

func envFallback(primary, legacy string) string {
	return firstNonEmpty(os.Getenv(primary), os.Getenv(legacy))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
