// Package config provides configuration loading and structs for kuchikomi.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kuchikomi/internal/document"
)

// EnvOpenAIKey is the environment variable holding the OpenAI API key.
const EnvOpenAIKey = "OPENAI_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vision    VisionConfig    `yaml:"vision"`
	Datasets  DatasetsConfig  `yaml:"datasets"`
	Index     IndexConfig     `yaml:"index"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database and the vector index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// OpenAIConfig holds credentials shared by the embedding and vision clients.
// APIKey is normally supplied through OPENAI_API_KEY rather than the file.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// VisionConfig holds image description settings.
type VisionConfig struct {
	Model             string  `yaml:"model"`
	Prompt            string  `yaml:"prompt"`
	MaxTokens         int     `yaml:"max_tokens"`
	FetchTimeoutSecs  int     `yaml:"fetch_timeout_secs"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// FetchTimeout returns the per-image download timeout.
func (v VisionConfig) FetchTimeout() time.Duration {
	return time.Duration(v.FetchTimeoutSecs) * time.Second
}

// DatasetsConfig holds dataset locations. Each may be an http(s) URL, a file:// URL or a path.
type DatasetsConfig struct {
	ShopsURL    string `yaml:"shops_url"`
	ReviewsURL  string `yaml:"reviews_url"`
	CatalogURL  string `yaml:"catalog_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the per-dataset download timeout.
func (d DatasetsConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSecs) * time.Second
}

// IndexConfig holds retrieval index settings.
type IndexConfig struct {
	Collection     string `yaml:"collection"`
	DefaultK       int    `yaml:"default_k"`
	ReviewMismatch string `yaml:"review_mismatch"`
}

// HistoryConfig holds history assembly settings.
type HistoryConfig struct {
	RowConcurrency int `yaml:"row_concurrency"`
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and environment overrides. A .env file next to the config or in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	loadDotEnv(configDir)

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Datasets.ShopsURL = expandLocation(cfg.Datasets.ShopsURL, configDir)
	cfg.Datasets.ReviewsURL = expandLocation(cfg.Datasets.ReviewsURL, configDir)
	cfg.Datasets.CatalogURL = expandLocation(cfg.Datasets.CatalogURL, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(configDir string) {
	for _, p := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// ApplyEnv overrides config values with environment variables.
func ApplyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIKey)); key != "" {
		cfg.OpenAI.APIKey = key
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, mock)", c.Embedding.Provider)
	}
	if _, err := document.ParseMismatchPolicy(c.Index.ReviewMismatch); err != nil {
		return err
	}
	if c.Embedding.Dimensions < 0 {
		return errors.New("embedding.dimensions must not be negative")
	}
	return nil
}

// Save writes the config to path. The API key is never written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.OpenAI.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// expandLocation leaves URLs untouched and expands plain paths.
func expandLocation(loc string, configDir string) string {
	if strings.Contains(loc, "://") {
		return loc
	}
	return expandPath(loc, configDir)
}
