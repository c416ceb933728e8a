package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the service.
//
// Backend selection is explicit and happens once, at construction: the
// active backend is carried in this struct and passed to NewStore, never
// held in module-level state, so it stays testable and swappable per run.
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        APIKey: "sk-...",
//	        Model:  "gpt-4o-mini",
//	    },
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Path:     "./memchat.db",
//	    },
//	}
type Config struct {
	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Store contains storage backend configuration.
	Store StoreConfig `json:"store"`

	// RequestTimeout bounds every backend call. Operations exceeding it
	// fail with a timeout error instead of hanging the request.
	RequestTimeout time.Duration `json:"request_timeout"`

	// Port is the HTTP listen port, supplied by the hosting platform.
	Port string `json:"port"`
}

// LLMConfig contains configuration for the LLM provider.
type LLMConfig struct {
	// APIKey is the API key for the LLM provider. Required.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Enabled indicates whether embeddings are generated at all.
	// When false, relevance search falls back to lexical scoring.
	Enabled bool `json:"enabled"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors (e.g., 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// StoreConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql, memory.
type StoreConfig struct {
	// Provider is the backend provider name.
	Provider string `json:"provider"`

	// Path is the database file path (sqlite only).
	Path string `json:"path,omitempty"`

	// ConnString is the connection string (postgres only).
	ConnString string `json:"conn_string,omitempty"`

	// DSN is the data source name (mysql only).
	DSN string `json:"dsn,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Backend selection: MEMCHAT_BACKEND names the provider explicitly
// (sqlite, postgres, mysql, memory). When absent, the provider is inferred
// from which configuration is present: DATABASE_URL selects postgres,
// MYSQL_DSN selects mysql, MEMCHAT_STORE_PATH selects sqlite, and with none
// of them the ephemeral in-memory backend is used.
//
// Supported environment variables:
//   - OPENAI_API_KEY (required), OPENAI_MODEL, OPENAI_BASE_URL
//   - EMBEDDING_MODEL, EMBEDDING_DIMS, EMBEDDINGS_ENABLED
//   - MEMCHAT_BACKEND, DATABASE_URL, MYSQL_DSN, MEMCHAT_STORE_PATH
//   - MEMCHAT_REQUEST_TIMEOUT (seconds)
//   - PORT
//
// Returns a Config instance. Selection errors (an explicitly requested
// backend missing its prerequisite) are reported by Validate, not here, so
// callers fail at startup rather than at first request.
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	store := StoreConfig{
		Provider:   os.Getenv("MEMCHAT_BACKEND"),
		Path:       os.Getenv("MEMCHAT_STORE_PATH"),
		ConnString: os.Getenv("DATABASE_URL"),
		DSN:        os.Getenv("MYSQL_DSN"),
	}

	// Infer the provider from the configuration that is present.
	if store.Provider == "" {
		switch {
		case store.ConnString != "":
			store.Provider = "postgres"
		case store.DSN != "":
			store.Provider = "mysql"
		case store.Path != "":
			store.Provider = "sqlite"
		default:
			store.Provider = "memory"
		}
	}
	if store.Provider == "sqlite" && store.Path == "" {
		store.Path = "./memchat.db"
	}

	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))
	timeoutSecs, _ := strconv.Atoi(getEnvOrDefault("MEMCHAT_REQUEST_TIMEOUT", "15"))
	if timeoutSecs <= 0 {
		timeoutSecs = 15
	}

	apiKey := os.Getenv("OPENAI_API_KEY")

	config := &Config{
		LLM: LLMConfig{
			APIKey:  apiKey,
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Embedder: EmbedderConfig{
			Enabled:    getEnvOrDefault("EMBEDDINGS_ENABLED", "true") == "true",
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			Dimensions: dims,
		},
		Store:          store,
		RequestTimeout: time.Duration(timeoutSecs) * time.Second,
		Port:           getEnvOrDefault("PORT", "5000"),
	}

	return config, nil
}

// Validate validates the configuration.
//
// It fails fast on missing mandatory prerequisites:
//   - the LLM API key must be set
//   - a selected backend must carry its connection parameters
//     (postgres without a connection string is the canonical failure)
//
// Returns an error wrapping ErrInvalidConfig if validation fails.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewStoreError("Validate", ErrInvalidConfig)
	}

	switch c.Store.Provider {
	case "sqlite":
		if c.Store.Path == "" {
			return NewStoreError("Validate", ErrInvalidConfig)
		}
	case "postgres":
		if c.Store.ConnString == "" {
			return NewStoreError("Validate", ErrInvalidConfig)
		}
	case "mysql":
		if c.Store.DSN == "" {
			return NewStoreError("Validate", ErrInvalidConfig)
		}
	case "memory":
	default:
		return NewStoreError("Validate", ErrInvalidConfig)
	}

	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for a .env file.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
