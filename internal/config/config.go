package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the bookscout API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Price      PriceConfig      `yaml:"price"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TextSearch       *bool    `yaml:"text_search"` // default: true for redis, false for valkey
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds the book index shape.
type IndexConfig struct {
	Name            string `yaml:"name"`
	Dimensions      int    `yaml:"dimensions"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// RetryConfig is the bounded backoff policy for one upstream provider.
type RetryConfig struct {
	MaxRetries  *int    `yaml:"max_retries"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// BudgetConfig holds token budget settings for a provider.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"`
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	CacheEnabled     *bool        `yaml:"cache_enabled"`
	Retry            RetryConfig  `yaml:"retry"`
	Budget           BudgetConfig `yaml:"budget"`
}

// ProviderConfig holds credentials for one generative provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig selects a provider and model for one generation task.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai | anthropic
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// GenerationConfig holds generative provider settings.
type GenerationConfig struct {
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Enhancement ModelConfig               `yaml:"enhancement"`
	PriceSearch ModelConfig               `yaml:"price_search"`
	Retry       RetryConfig               `yaml:"retry"`
	Budget      BudgetConfig              `yaml:"budget"`
}

// SearchConfig holds semantic search tuning.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MaxCandidates       int     `yaml:"max_candidates"`
	TieEpsilon          float64 `yaml:"tie_epsilon"`
	Enhancement         bool    `yaml:"enhancement"`
	MaxEnhancedChars    int     `yaml:"max_enhanced_chars"`
}

// PriceConfig holds price lookup settings.
type PriceConfig struct {
	TimeoutSec      int      `yaml:"timeout_sec"`
	MaxPrice        float64  `yaml:"max_price"`
	KnownRetailers  []string `yaml:"known_retailers"`
	CacheDriver     string   `yaml:"cache_driver"` // valkey | sqlite
	SQLitePath      string   `yaml:"sqlite_path"`
	CacheMaxAgeHour int      `yaml:"cache_max_age_hours"` // 0 = entries never expire
	SweepSchedule   string   `yaml:"sweep_schedule"`
}

// Timeout returns the wall-clock cap for one price lookup.
func (p PriceConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// CacheMaxAge returns the price cache retention window.
func (p PriceConfig) CacheMaxAge() time.Duration {
	return time.Duration(p.CacheMaxAgeHour) * time.Hour
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables, decodes YAML, then applies defaults and validation.
func Parse(data []byte) (Config, error) {
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60 // price lookups routinely take tens of seconds
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.TextSearch == nil {
		ts := c.Database.Driver == "redis"
		c.Database.TextSearch = &ts
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "bookscout:"
	}
	if c.Index.Name == "" {
		c.Index.Name = "books:idx"
	}
	if c.Index.Dimensions <= 0 {
		c.Index.Dimensions = 384
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()
	c.applySearchDefaults()
	c.applyPriceDefaults()
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.Index.Dimensions
	}
	if c.Embedding.CacheEnabled == nil {
		enabled := true
		c.Embedding.CacheEnabled = &enabled
	}
	c.Embedding.Retry.applyDefaults()
}

func (c *Config) applyGenerationDefaults() {
	if c.Generation.Enhancement.Provider == "" {
		c.Generation.Enhancement.Provider = "openai"
	}
	if c.Generation.Enhancement.MaxTokens <= 0 {
		c.Generation.Enhancement.MaxTokens = 200
	}
	if c.Generation.PriceSearch.Provider == "" {
		c.Generation.PriceSearch.Provider = c.Generation.Enhancement.Provider
	}
	if c.Generation.PriceSearch.MaxTokens <= 0 {
		c.Generation.PriceSearch.MaxTokens = 2048
	}
	c.Generation.Retry.applyDefaults()
}

func (c *Config) applySearchDefaults() {
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 200
	}
	if c.Search.CandidateMultiplier <= 0 {
		c.Search.CandidateMultiplier = 3
	}
	if c.Search.MaxCandidates <= 0 {
		c.Search.MaxCandidates = 1000
	}
	if c.Search.TieEpsilon <= 0 {
		c.Search.TieEpsilon = 1e-6
	}
	if c.Search.MaxEnhancedChars <= 0 {
		c.Search.MaxEnhancedChars = 500
	}
}

func (c *Config) applyPriceDefaults() {
	if c.Price.TimeoutSec <= 0 {
		c.Price.TimeoutSec = 45
	}
	if c.Price.MaxPrice <= 0 {
		c.Price.MaxPrice = 1000
	}
	if c.Price.CacheDriver == "" {
		c.Price.CacheDriver = "valkey"
	}
	if c.Price.SQLitePath == "" {
		c.Price.SQLitePath = "data/prices.db"
	}
	if c.Price.SweepSchedule == "" {
		c.Price.SweepSchedule = "@hourly"
	}
}

func (r *RetryConfig) applyDefaults() {
	if r.MaxRetries == nil {
		n := 2
		r.MaxRetries = &n
	}
	if r.BaseDelayMS <= 0 {
		r.BaseDelayMS = 2000
	}
	if r.Multiplier < 1 {
		r.Multiplier = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Embedding.Dimensions != c.Index.Dimensions {
		return fmt.Errorf("embedding.dimensions (%d) must match index.dimensions (%d)",
			c.Embedding.Dimensions, c.Index.Dimensions)
	}
	if err := validateBudget("embedding.budget", c.Embedding.Budget); err != nil {
		return err
	}
	if err := validateBudget("generation.budget", c.Generation.Budget); err != nil {
		return err
	}
	for name, mc := range map[string]ModelConfig{
		"generation.enhancement":  c.Generation.Enhancement,
		"generation.price_search": c.Generation.PriceSearch,
	} {
		switch mc.Provider {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("%s.provider must be \"openai\" or \"anthropic\", got %q", name, mc.Provider)
		}
	}
	if err := c.Embedding.Retry.validate("embedding.retry"); err != nil {
		return err
	}
	if err := c.Generation.Retry.validate("generation.retry"); err != nil {
		return err
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	switch c.Price.CacheDriver {
	case "valkey", "sqlite":
	default:
		return fmt.Errorf("price.cache_driver must be \"valkey\" or \"sqlite\", got %q", c.Price.CacheDriver)
	}
	if c.Price.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.Price.SweepSchedule); err != nil {
			return fmt.Errorf("price.sweep_schedule %q: %w", c.Price.SweepSchedule, err)
		}
	}
	return nil
}

func (r RetryConfig) validate(path string) error {
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must not be negative, got %d", path, *r.MaxRetries)
	}
	return nil
}

func validateBudget(path string, b BudgetConfig) error {
	switch b.Action {
	case "", "warn", "reject":
		return nil
	default:
		return fmt.Errorf("%s.action must be \"warn\" or \"reject\", got %q", path, b.Action)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
