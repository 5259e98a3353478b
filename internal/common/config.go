package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Ingest     IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// LLMConfig holds completion-service configuration
type LLMConfig struct {
	URL             string
	APIKey          string
	Model           string
	Timeout         time.Duration
	Temperature     float32
	ChatTemperature float32
}

// ExtractionConfig holds chunking and pipeline configuration
type ExtractionConfig struct {
	ChunkSize    int
	OverlapSize  int
	Parallelism  int
	TaxonomyFile string
}

// IngestConfig holds upload and drop-directory configuration
type IngestConfig struct {
	UploadDir string
	WatchDir  string
	Workers   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "district_kb.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		LLM: LLMConfig{
			URL:             getEnv("COMPLETIONS_URL", ""),
			APIKey:          getEnv("COMPLETIONS_API_KEY", ""),
			Model:           getEnv("COMPLETIONS_MODEL", "vertex_ai.gemini-2.0-flash"),
			Timeout:         getEnvAsDuration("COMPLETIONS_TIMEOUT", 5*time.Minute),
			Temperature:     getEnvAsFloat32("EXTRACTION_TEMPERATURE", 0.3),
			ChatTemperature: getEnvAsFloat32("CHAT_TEMPERATURE", 0.7),
		},
		Extraction: ExtractionConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 8000),
			OverlapSize:  getEnvAsInt("CHUNK_OVERLAP", 500),
			Parallelism:  getEnvAsInt("CHUNK_PARALLELISM", 4),
			TaxonomyFile: getEnv("TAXONOMY_FILE", ""),
		},
		Ingest: IngestConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
			WatchDir:  getEnv("WATCH_DIR", ""),
			Workers:   getEnvAsInt("EXTRACT_WORKERS", 2),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.URL == "" {
		return NewAppError("CONFIG_ERROR", "COMPLETIONS_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "COMPLETIONS_API_KEY is required", ErrInvalidInput)
	}
	if c.Extraction.ChunkSize <= 0 {
		return NewAppError("CONFIG_ERROR", "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Extraction.OverlapSize < 0 || c.Extraction.OverlapSize >= c.Extraction.ChunkSize {
		return NewAppError("CONFIG_ERROR", "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
