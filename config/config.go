package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/chunker"
	"github.com/poiesic/lumina/core"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LUMINA"

// AIConfig selects the embedding and completion services.
type AIConfig struct {
	EmbeddingHost   string  `mapstructure:"embedding_host"`
	CompletionHost  string  `mapstructure:"completion_host"`
	EmbeddingModel  string  `mapstructure:"embedding_model"`
	CompletionModel string  `mapstructure:"completion_model"`
	APIKey          string  `mapstructure:"api_key"`
	Temperature     float64 `mapstructure:"temperature"`
}

// Config is the resolved deployment configuration.
type Config struct {
	// DataDir holds the badger record store.
	DataDir string `mapstructure:"data_dir"`

	// VectorStorePath is the snapshot file of the vector index. Empty keeps
	// the snapshot inside the record store.
	VectorStorePath string `mapstructure:"vector_store_path"`

	ListenAddr string `mapstructure:"listen_addr"`
	RedisURL   string `mapstructure:"redis_url"`
	LogLevel   string `mapstructure:"log_level"`

	ChunkSizeChars    int `mapstructure:"chunk_size_chars"`
	ChunkOverlapChars int `mapstructure:"chunk_overlap_chars"`
	DefaultTopK       int `mapstructure:"default_top_k"`
	HistoryLimit      int `mapstructure:"history_limit"`

	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	EmbedTimeout      time.Duration `mapstructure:"embed_timeout"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`

	AI AIConfig `mapstructure:"ai"`
}

func setDefaults(v *viper.Viper) {
	aiDefaults := ai.DefaultConfig()

	v.SetDefault("data_dir", "./data/lumina")
	v.SetDefault("vector_store_path", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("log_level", "info")
	v.SetDefault("chunk_size_chars", chunker.DefaultSize)
	v.SetDefault("chunk_overlap_chars", chunker.DefaultOverlap)
	v.SetDefault("default_top_k", 5)
	v.SetDefault("history_limit", 20)
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("max_attempts", 5)
	v.SetDefault("embed_timeout", 30*time.Second)
	v.SetDefault("generation_timeout", 2*time.Minute)
	v.SetDefault("ai.embedding_host", aiDefaults.EmbeddingHost)
	v.SetDefault("ai.completion_host", aiDefaults.CompletionHost)
	v.SetDefault("ai.embedding_model", aiDefaults.EmbeddingModel)
	v.SetDefault("ai.completion_model", aiDefaults.CompletionModel)
	v.SetDefault("ai.api_key", aiDefaults.APIKey)
	v.SetDefault("ai.temperature", aiDefaults.Temperature)
}

// Default returns the built-in configuration without consulting the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

// Load resolves the configuration. path names an optional YAML file; an
// empty path skips it, a missing file is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that no constructor would catch early.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", core.ErrInvalidConfiguration)
	}
	if _, err := c.Chunker(); err != nil {
		return err
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("%w: default_top_k must be positive, got %d", core.ErrInvalidConfiguration, c.DefaultTopK)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must not be negative, got %d", core.ErrInvalidConfiguration, c.HistoryLimit)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("%w: worker_concurrency must be positive, got %d", core.ErrInvalidConfiguration, c.WorkerConcurrency)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", core.ErrInvalidConfiguration, c.MaxAttempts)
	}
	return nil
}

// Chunker returns the chunker described by the chunk settings.
func (c *Config) Chunker() (chunker.Chunker, error) {
	return chunker.New(c.ChunkSizeChars, c.ChunkOverlapChars)
}

// AIConfig converts the AI section into provider settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithCompletionHost(c.AI.CompletionHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
	)
}
