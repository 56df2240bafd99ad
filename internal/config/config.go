// Package config loads and validates application configuration.
//
// Sources, highest priority first:
//  1. Environment variables (NOTABENE_* plus DATABASE_URL and GEMINI_API_KEY)
//  2. Config file (~/.notabene/config.yaml, or the path given to Load)
//  3. Defaults
//
// A .env file in the working directory is loaded into the environment first
// (godotenv), which keeps local development parity with deployed env vars.
// Sensitive values (passwords, API keys, auth tokens) are never logged.
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

// Sentinel validation errors. Callers match with errors.Is.
var (
	ErrMissingAPIKey            = errors.New("missing API key")
	ErrInvalidModelName         = errors.New("invalid model name")
	ErrInvalidEmbedderModel     = errors.New("invalid embedder model")
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")
	ErrInvalidTemperature       = errors.New("invalid temperature")
	ErrInvalidMaxSteps          = errors.New("invalid max steps")
	ErrInvalidChunkSize         = errors.New("invalid chunk size")
	ErrInvalidChunkOverlap      = errors.New("invalid chunk overlap")
	ErrInvalidConcurrency       = errors.New("invalid ingest concurrency")
	ErrInvalidPostgresHost      = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort      = errors.New("invalid PostgreSQL port")
	ErrInvalidPostgresDBName    = errors.New("invalid PostgreSQL database name")
	ErrInvalidPostgresSSLMode   = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModel is the generative model driving the agent loop.
	DefaultModel = "gemini-2.5-flash"

	// DefaultEmbedderModel produces the chunk embeddings. Output is
	// truncated to EmbeddingDimension via OutputDimensionality.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimension matches the vector(1536) column in the
	// chunks table. Changing one requires changing the other.
	DefaultEmbeddingDimension = 1536

	// DefaultMaxSteps bounds model/tool round trips within one turn.
	DefaultMaxSteps = 5

	// DefaultTurnTimeout bounds one whole chat turn.
	DefaultTurnTimeout = 60 * time.Second

	// DefaultChunkSize and DefaultChunkOverlap are the ingestion chunking
	// policy, in bytes of UTF-8 text.
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// DefaultIngestConcurrency caps parallel embed+insert calls per upload.
	DefaultIngestConcurrency = 4

	// DefaultMaxUploadBytes rejects oversized uploads before chunking.
	DefaultMaxUploadBytes = 1 << 20 // 1 MiB
)

// Config is the resolved application configuration.
type Config struct {
	// AI
	GeminiAPIKey       string  `mapstructure:"gemini_api_key"`
	Model              string  `mapstructure:"model"`
	EmbedderModel      string  `mapstructure:"embedder_model"`
	EmbeddingDimension int     `mapstructure:"embedding_dimension"`
	Temperature        float64 `mapstructure:"temperature"`
	MaxSteps           int     `mapstructure:"max_steps"`

	TurnTimeout time.Duration `mapstructure:"turn_timeout"`

	// Ingestion
	ChunkSize         int   `mapstructure:"chunk_size"`
	ChunkOverlap      int   `mapstructure:"chunk_overlap"`
	IngestConcurrency int   `mapstructure:"ingest_concurrency"`
	MaxUploadBytes    int64 `mapstructure:"max_upload_bytes"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// HTTP server
	ServerAddr  string   `mapstructure:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`

	// AuthTokens maps bearer tokens to tenant identifiers. Stands in for
	// the external auth provider in single-box deployments.
	AuthTokens map[string]string `mapstructure:"auth_tokens"`
}

// Load reads configuration from file, environment, and defaults.
// configPath may be empty, in which case ~/.notabene/config.yaml is tried.
// A missing config file is not an error; defaults and env apply.
func Load(configPath string) (*Config, error) {
	// Best effort: a missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOTABENE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".notabene"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Well-known env vars override file values regardless of prefix.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.GeminiAPIKey = key
	}
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedding_dimension", DefaultEmbeddingDimension)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_steps", DefaultMaxSteps)
	v.SetDefault("turn_timeout", DefaultTurnTimeout)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("ingest_concurrency", DefaultIngestConcurrency)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "notabene")
	v.SetDefault("postgres_dbname", "notabene")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("server_addr", ":8080")
	v.SetDefault("rate_burst", 60)
	v.SetDefault("trust_proxy", false)
}
