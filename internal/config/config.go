// Package config handles configuration loading for sentinews.
// It supports YAML config files, dotenv key files and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SENTINEWS"

// Config represents the complete application configuration.
type Config struct {
	Source     SourceConfig     `mapstructure:"source"     yaml:"source"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"  yaml:"extractor"`
	Language   LanguageConfig   `mapstructure:"language"   yaml:"language"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"   yaml:"pipeline"`
	Cache      CacheConfig      `mapstructure:"cache"      yaml:"cache"`
	Store      StoreConfig      `mapstructure:"store"      yaml:"store"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// SourceConfig configures the news search service client.
type SourceConfig struct {
	BaseURL      string        `mapstructure:"base_url"      yaml:"base_url"`
	Format       string        `mapstructure:"format"        yaml:"format"` // "json" or "rss"
	MaxRecords   int           `mapstructure:"max_records"   yaml:"max_records"`
	SourceLang   string        `mapstructure:"source_lang"   yaml:"source_lang"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"`
	Retries      int           `mapstructure:"retries"       yaml:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

// ExtractorConfig configures full-text retrieval.
type ExtractorConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      yaml:"max_body_bytes"`
	UserAgent         string        `mapstructure:"user_agent"          yaml:"user_agent"`
	MinParagraphChars int           `mapstructure:"min_paragraph_chars" yaml:"min_paragraph_chars"`
}

// LanguageConfig configures language identification.
type LanguageConfig struct {
	Target        string   `mapstructure:"target"         yaml:"target"` // ISO 639-1, e.g. "en"
	MinConfidence float64  `mapstructure:"min_confidence" yaml:"min_confidence"`
	Candidates    []string `mapstructure:"candidates"     yaml:"candidates"` // ISO 639-1; empty = langid.DefaultCandidates
}

// ClassifierConfig configures sentiment classification.
type ClassifierConfig struct {
	Backend     string            `mapstructure:"backend"      yaml:"backend"` // "lexicon", "huggingface", "ollama", "openai"
	ChunkSize   int               `mapstructure:"chunk_size"   yaml:"chunk_size"`
	Timeout     time.Duration     `mapstructure:"timeout"      yaml:"timeout"`
	RatePerSec  int               `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"  yaml:"huggingface"`
	Ollama      OllamaConfig      `mapstructure:"ollama"       yaml:"ollama"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"       yaml:"openai"`
}

// HuggingFaceConfig holds inference endpoint settings.
type HuggingFaceConfig struct {
	URL   string `mapstructure:"url"   yaml:"url"`
	Model string `mapstructure:"model" yaml:"model"`
	Token string `mapstructure:"token" yaml:"token"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	URL   string `mapstructure:"url"   yaml:"url"`
	Model string `mapstructure:"model" yaml:"model"`
}

// OpenAIConfig holds OpenAI settings.
type OpenAIConfig struct {
	Key     string `mapstructure:"key"      yaml:"key"`
	Model   string `mapstructure:"model"    yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// CacheConfig holds extracted-text cache settings.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"` // "memory", "redis", "none"
	TTL     time.Duration `mapstructure:"ttl"     yaml:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"   yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
}

// StoreConfig holds run history settings. An empty DSN disables persistence.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// DefaultEnvFiles are the dotenv key files read by LoadEnvFiles when no
// paths are given.
var DefaultEnvFiles = []string{"keys.env", filepath.Join("..", "keys.env")}

// LoadEnvFiles loads KEY=value pairs from dotenv files into the process
// environment. Missing files are skipped and variables that are already set
// are not overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.sentinews/config.yaml (home directory)
//  3. /etc/sentinews/config.yaml (system)
//
// Environment variables override config file values.
// Format: SENTINEWS_<SECTION>_<KEY>, e.g., SENTINEWS_PIPELINE_WORKERS
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".sentinews"))
	v.AddConfigPath("/etc/sentinews")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars.
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Source defaults (GDELT DOC 2.0 article list)
	v.SetDefault("source.base_url", "https://api.gdeltproject.org/api/v2/doc/doc")
	v.SetDefault("source.format", "json")
	v.SetDefault("source.max_records", 250)
	v.SetDefault("source.source_lang", "english")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("source.retries", 2)
	v.SetDefault("source.retry_backoff", time.Second)

	// Extractor defaults
	v.SetDefault("extractor.timeout", 15*time.Second)
	v.SetDefault("extractor.max_body_bytes", 5<<20)
	v.SetDefault("extractor.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("extractor.min_paragraph_chars", 1)

	// Language defaults
	v.SetDefault("language.target", "en")
	v.SetDefault("language.min_confidence", 0.0)
	v.SetDefault("language.candidates", []string{"en", "fr", "de", "es", "it", "pt", "nl"})

	// Classifier defaults
	v.SetDefault("classifier.backend", "lexicon")
	v.SetDefault("classifier.chunk_size", 500)
	v.SetDefault("classifier.timeout", 5*time.Second)
	v.SetDefault("classifier.rate_per_sec", 0)
	v.SetDefault("classifier.huggingface.url", "https://api-inference.huggingface.co/models")
	v.SetDefault("classifier.huggingface.model", "distilbert/distilbert-base-uncased-finetuned-sst-2-english")
	v.SetDefault("classifier.ollama.url", "http://localhost:11434")
	v.SetDefault("classifier.ollama.model", "qwen2.5:7b")
	v.SetDefault("classifier.openai.model", "gpt-4o-mini")
	v.SetDefault("classifier.openai.base_url", "https://api.openai.com/v1")

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 8)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("SENTINEWS_CLASSIFIER_HUGGINGFACE_TOKEN"); key != "" {
		cfg.Classifier.HuggingFace.Token = key
	} else if key := os.Getenv("HF_TOKEN"); key != "" && cfg.Classifier.HuggingFace.Token == "" {
		cfg.Classifier.HuggingFace.Token = key
	}
	if key := os.Getenv("SENTINEWS_CLASSIFIER_OPENAI_KEY"); key != "" {
		cfg.Classifier.OpenAI.Key = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Classifier.OpenAI.Key == "" {
		cfg.Classifier.OpenAI.Key = key
	}
	if pw := os.Getenv("SENTINEWS_CACHE_REDIS_PASSWORD"); pw != "" {
		cfg.Cache.Redis.Password = pw
	}
	if dsn := os.Getenv("SENTINEWS_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
}

// normalize lower-cases enum-like values and clamps numeric bounds.
func (c *Config) normalize() {
	c.Source.Format = strings.ToLower(strings.TrimSpace(c.Source.Format))
	if c.Source.MaxRecords <= 0 || c.Source.MaxRecords > 250 {
		c.Source.MaxRecords = 250
	}
	if c.Source.Retries < 0 {
		c.Source.Retries = 0
	}
	c.Language.Target = strings.ToLower(strings.TrimSpace(c.Language.Target))
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = 1
	}
}

// Validate checks enum values and required settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source.Format {
	case "json", "rss":
	default:
		errs = append(errs, fmt.Errorf("source.format: unsupported value %q", c.Source.Format))
	}
	if c.Language.Target == "" {
		errs = append(errs, errors.New("language.target: must be set"))
	}
	switch c.Classifier.Backend {
	case "lexicon", "huggingface", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("classifier.backend: unsupported value %q", c.Classifier.Backend))
	}
	if c.Classifier.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("classifier.chunk_size: must be positive, got %d", c.Classifier.ChunkSize))
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none", "":
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
