// Package elasticsearch implements the term suggester over the Elasticsearch _search API.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/appsearch/internal/domain"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
	"github.com/kailas-cloud/appsearch/internal/metrics"
)

const (
	operationSuggest = "es_suggest"
	defaultTimeout   = 5 * time.Second
)

// Config holds connection settings. Endpoint wins over CloudID.
type Config struct {
	Endpoint string
	CloudID  string
	APIKeyID string
	APIKey   string
	Timeout  time.Duration
}

// Client is an Elasticsearch term-suggest client.
type Client struct {
	endpoint string
	auth     string
	http     *http.Client
}

// New creates a client. An endpoint (or cloud id) is required.
func New(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.CloudID != "" {
		var err error
		endpoint, err = DecodeCloudID(cfg.CloudID)
		if err != nil {
			return nil, err
		}
	}
	if endpoint == "" {
		return nil, fmt.Errorf("elasticsearch endpoint or cloud id: %w", domain.ErrConfigurationMissing)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
	switch {
	case cfg.APIKeyID != "" && cfg.APIKey != "":
		c.auth = "ApiKey " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKeyID+":"+cfg.APIKey))
	case cfg.APIKey != "":
		// Already encoded id:key pair.
		c.auth = "ApiKey " + cfg.APIKey
	}
	return c, nil
}

// DecodeCloudID turns "name:base64(host$es_uuid$kibana_uuid)" into the cluster URL.
func DecodeCloudID(cloudID string) (string, error) {
	encoded := cloudID
	if i := strings.LastIndex(cloudID, ":"); i >= 0 {
		encoded = cloudID[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode cloud id: %w", err)
	}
	parts := strings.Split(string(data), "$")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("decode cloud id: unexpected format %q", string(data))
	}

	host, port := parts[0], ""
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host, port = host[:i], host[i:]
	}
	if port == ":443" {
		port = ""
	}
	return "https://" + parts[1] + "." + host + port, nil
}

type termSuggestion struct {
	Text    string `json:"text"`
	Options []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
		Freq  int     `json:"freq"`
	} `json:"options"`
}

type suggestResponse struct {
	Suggest map[string][]termSuggestion `json:"suggest"`
}

// Suggest runs one term suggester per field against index.
// Results keep the order of fields; fields missing from the response are skipped.
func (c *Client) Suggest(
	ctx context.Context, index string, fields []string, text string,
) ([]suggest.FieldSuggestions, error) {
	req := map[string]any{"text": text}
	for _, f := range fields {
		req[f] = map[string]any{"term": map[string]any{"field": f}}
	}
	body, err := json.Marshal(map[string]any{"size": 0, "suggest": req})
	if err != nil {
		return nil, fmt.Errorf("marshal suggest request: %w", err)
	}

	raw, err := c.post(ctx, "/"+url.PathEscape(index)+"/_search", body)
	if err != nil {
		return nil, err
	}

	var resp suggestResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}

	out := make([]suggest.FieldSuggestions, 0, len(fields))
	for _, f := range fields {
		entries, ok := resp.Suggest[f]
		if !ok {
			continue
		}
		fs := suggest.FieldSuggestions{Field: f, Entries: make([]suggest.Entry, 0, len(entries))}
		for _, e := range entries {
			entry := suggest.Entry{Text: e.Text}
			for _, o := range e.Options {
				entry.Options = append(entry.Options, suggest.Option{Text: o.Text, Score: o.Score})
			}
			fs.Entries = append(fs.Entries, entry)
		}
		out = append(out, fs)
	}
	return out, nil
}

// Ping checks the cluster root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint+"/", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: elasticsearch ping: %w", domain.ErrUpstream, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: elasticsearch ping: status %d", domain.ErrUpstream, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (data []byte, err error) {
	started := time.Now()
	status := "error"
	defer func() { metrics.ObserveUpstream(operationSuggest, status, started) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Opaque-Id", uuid.NewString())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: elasticsearch: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	status = strconv.Itoa(resp.StatusCode)
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read elasticsearch response: %w", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: elasticsearch: status %d: %s", domain.ErrUpstream, resp.StatusCode, truncate(data))
	}
	return data, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
