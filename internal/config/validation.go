package config

import (
	"fmt"
	"strings"
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks all fields and returns the first violation.
// Error values wrap the package sentinels for errors.Is matching.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.Model) == "" {
		return ErrInvalidModelName
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return ErrInvalidEmbedderModel
	}
	if c.EmbeddingDimension <= 0 || c.EmbeddingDimension > 4096 {
		return fmt.Errorf("%w: %d (want 1-4096)", ErrInvalidEmbedderDimension, c.EmbeddingDimension)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %g (want 0-2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxSteps < 1 || c.MaxSteps > 20 {
		return fmt.Errorf("%w: %d (want 1-20)", ErrInvalidMaxSteps, c.MaxSteps)
	}
	if c.ChunkSize < 100 || c.ChunkSize > 100_000 {
		return fmt.Errorf("%w: %d (want 100-100000)", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: %d (want 0 <= overlap < chunk size %d)", ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}
	if c.IngestConcurrency < 1 || c.IngestConcurrency > 64 {
		return fmt.Errorf("%w: %d (want 1-64)", ErrInvalidConcurrency, c.IngestConcurrency)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return ErrInvalidPostgresDBName
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
