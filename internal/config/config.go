package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the appsearch service configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
	AppSearch     AppSearchConfig     `yaml:"app_search"`
	Search        SearchConfig        `yaml:"search"`
	Spellcheck    SpellcheckConfig    `yaml:"spellcheck"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Records       RecordsConfig       `yaml:"records"`
	Types         map[string]string   `yaml:"types"` // record class -> short type token used in links
	Cache         CacheConfig         `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AppSearchConfig holds App Search connection settings. Empty endpoint and
// api_key fall back to the ENTERPRISE_SEARCH_* / APP_SEARCH_* environment.
type AppSearchConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	EngineVariant string `yaml:"engine_variant"` // suffix, or `ENV_VAR` to read it from the environment
	TimeoutSec    int    `yaml:"timeout_sec"`
	FakeResponse  string `yaml:"fake_response"` // path to a canned response; replaces the HTTP client
}

// SearchConfig holds pagination and result mapping settings.
type SearchConfig struct {
	DefaultEngine       string   `yaml:"default_engine"`
	PaginationGetVar    string   `yaml:"pagination_getvar"`
	PaginationSize      int      `yaml:"pagination_size"`
	PageLimit           int      `yaml:"page_limit"`
	AbsoluteResultLimit int      `yaml:"absolute_result_limit"`
	ClickthroughEnabled *bool    `yaml:"clickthrough_enabled"`
	ClickthroughBaseURL string   `yaml:"clickthrough_base_url"`
	SnippetFields       []string `yaml:"snippet_fields"`
}

// SpellcheckEngineConfig describes where suggestions for one engine come from.
type SpellcheckEngineConfig struct {
	InternalIndex  string         `yaml:"internal_index"`
	Fields         []string       `yaml:"fields"`
	AppSearchTypes map[string]any `yaml:"app_search_types"`
}

// SpellcheckConfig holds spelling suggestion settings.
type SpellcheckConfig struct {
	Backend        string                            `yaml:"backend"` // elasticsearch, bleve, app_search
	MaxSuggestions int                               `yaml:"max_suggestions"`
	QueryParam     string                            `yaml:"query_param"`
	Engines        map[string]SpellcheckEngineConfig `yaml:"engines"`
	BleveDir       string                            `yaml:"bleve_dir"`
	CacheTTLSec    int                               `yaml:"cache_ttl_sec"`
}

// ElasticsearchConfig holds settings for the term suggester backend.
type ElasticsearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	CloudID    string `yaml:"cloud_id"`
	APIKeyID   string `yaml:"api_key_id"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RecordsConfig holds the record database settings.
type RecordsConfig struct {
	Driver  string   `yaml:"driver"` // sqlite
	DSN     string   `yaml:"dsn"`
	Classes []string `yaml:"classes"` // resolvable base classes; empty allows any
}

// CacheConfig holds the suggestion cache connection. Empty addrs disables caching.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Spellcheck backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
	BackendAppSearch     = "app_search"
)

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.AppSearch.TimeoutSec <= 0 {
		c.AppSearch.TimeoutSec = 10
	}
	if c.Search.PaginationGetVar == "" {
		c.Search.PaginationGetVar = "start"
	}
	if c.Search.PaginationSize <= 0 {
		c.Search.PaginationSize = 10
	}
	if c.Search.PageLimit <= 0 {
		c.Search.PageLimit = 100
	}
	if c.Search.AbsoluteResultLimit <= 0 {
		c.Search.AbsoluteResultLimit = 10000
	}
	if c.Search.ClickthroughEnabled == nil {
		enabled := true
		c.Search.ClickthroughEnabled = &enabled
	}
	if c.Search.ClickthroughBaseURL == "" {
		c.Search.ClickthroughBaseURL = "_click"
	}
	if c.Spellcheck.Backend == "" {
		c.Spellcheck.Backend = BackendElasticsearch
	}
	if c.Spellcheck.MaxSuggestions <= 0 {
		c.Spellcheck.MaxSuggestions = 2
	}
	if c.Spellcheck.QueryParam == "" {
		c.Spellcheck.QueryParam = "q"
	}
	if c.Elasticsearch.TimeoutSec <= 0 {
		c.Elasticsearch.TimeoutSec = 5
	}
	if c.Records.Driver == "" {
		c.Records.Driver = "sqlite"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
// App Search credentials are resolved on first use and not checked here.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Records.Driver != "sqlite" {
		return fmt.Errorf("records.driver must be \"sqlite\", got %q", c.Records.Driver)
	}
	if c.Records.DSN == "" {
		return fmt.Errorf("records.dsn is required")
	}
	switch c.Spellcheck.Backend {
	case BackendElasticsearch, BackendBleve, BackendAppSearch:
		// ok
	default:
		return fmt.Errorf(
			"spellcheck.backend must be %q, %q or %q, got %q",
			BackendElasticsearch, BackendBleve, BackendAppSearch, c.Spellcheck.Backend,
		)
	}
	if c.Spellcheck.Backend == BackendBleve && c.Spellcheck.BleveDir == "" {
		return fmt.Errorf("spellcheck.bleve_dir is required for the bleve backend")
	}
	for name, e := range c.Spellcheck.Engines {
		if e.AppSearchTypes == nil && c.Spellcheck.Backend != BackendAppSearch && len(e.Fields) == 0 {
			return fmt.Errorf("spellcheck.engines.%s.fields is required", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
