package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docsearch/internal/domain"
)

// Config holds all configuration for the search tool.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds ingestion and text analysis configuration.
type IndexConfig struct {
	Includes       []string `yaml:"includes"`
	Excludes       []string `yaml:"excludes"`
	StripStopwords bool     `yaml:"strip_stopwords"`
	Stemming       bool     `yaml:"stemming"`
	K1             float64  `yaml:"k1"`
	B              float64  `yaml:"b"`
}

// RetrieveConfig holds query-time configuration.
type RetrieveConfig struct {
	TopK       int      `yaml:"top_k"`
	Strategy   string   `yaml:"strategy"` // "tfidf", "bm25", "dense", "hybrid"
	Metric     string   `yaml:"metric"`   // "dot_product", "cosine"
	Timeout    Duration `yaml:"timeout"`  // 0 disables the deadline
	CacheSize  int      `yaml:"cache_size"`
	CacheTTL   Duration `yaml:"cache_ttl"`
	RRFK       int      `yaml:"rrf_k"`
	BM25Weight float64  `yaml:"bm25_weight"`
}

// Duration wraps time.Duration so YAML accepts "500ms" style strings as well
// as raw nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// EmbeddingConfig holds the encoder configuration for dense retrieval.
type EmbeddingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"`    // "openai", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // Optional OpenAI-compatible endpoint
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:       []string{"**/*.md", "**/*.txt"},
			Excludes:       []string{"**/node_modules/**", "**/vendor/**", "**/.git/**"},
			StripStopwords: true,
			Stemming:       false,
			K1:             1.2,
			B:              0.75,
		},
		Retrieve: RetrieveConfig{
			TopK:       10,
			Strategy:   string(domain.StrategyBM25),
			Metric:     string(domain.MetricCosine),
			Timeout:    0,
			CacheSize:  100,
			CacheTTL:   Duration(5 * time.Minute),
			RRFK:       60,
			BM25Weight: 0.5,
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate rejects values the rest of the system cannot work with.
func (c *Config) Validate() error {
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	switch domain.Strategy(c.Retrieve.Strategy) {
	case domain.StrategyTFIDF, domain.StrategyBM25, domain.StrategyDense, domain.StrategyHybrid:
	default:
		return fmt.Errorf("retrieve.strategy %q is not one of tfidf, bm25, dense, hybrid", c.Retrieve.Strategy)
	}
	switch domain.Metric(c.Retrieve.Metric) {
	case domain.MetricDotProduct, domain.MetricCosine:
	default:
		return fmt.Errorf("retrieve.metric %q is not one of dot_product, cosine", c.Retrieve.Metric)
	}
	if c.Index.K1 < 0 {
		return fmt.Errorf("index.k1 must not be negative, got %v", c.Index.K1)
	}
	if c.Index.B < 0 || c.Index.B > 1 {
		return fmt.Errorf("index.b must be in [0, 1], got %v", c.Index.B)
	}
	if c.Embedding.Enabled && c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	return nil
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory, looking for
// docsearch.yaml first and .docsearch/config.yaml second.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DBPath returns the path to the database holding the document store and
// both indexes.
func DBPath(dir string) string {
	return filepath.Join(dir, ".docsearch", "index.db")
}

// EnsureDataDir ensures the .docsearch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docsearch"), 0755)
}
