package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// AI
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string

	// Graph
	SnapshotPath string

	// Retrieval
	MaxResults int

	// Import
	MinMessageLength int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		ChatModel:        getEnv("CHAT_MODEL", "gpt-4"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),
		SnapshotPath:     getEnv("SNAPSHOT_PATH", "db/orin_memory.json"),
		MaxResults:       getEnvInt("MAX_RESULTS", 5),
		MinMessageLength: getEnvInt("MIN_MESSAGE_LENGTH", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.ChatModel == "" {
		return fmt.Errorf("CHAT_MODEL is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("EMBEDDING_MODEL is required")
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required")
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("MAX_RESULTS must be at least 1")
	}
	// The API key is optional for development against a local gateway
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
