package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL    PostgreSQLConfig
	Redis         RedisConfig
	Server        ServerConfig
	State         StateConfig
	Chat          ChatConfig
	Search        SearchConfig
	Ranking       RankingConfig
	Logging       LoggingConfig
	Metrics       MetricsConfig
	Model         ModelConfig
	Transcription TranscriptionConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred over the discrete fields
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// StateConfig selects the conversation state backing.
type StateConfig struct {
	Backend    string // memory, redis or postgres
	TTLSeconds int    // 0 keeps state until the backing evicts it
}

// ChatConfig holds turn orchestration settings
type ChatConfig struct {
	SerializeTurns bool
	CandidateLimit int
}

// SearchConfig holds property search configuration
type SearchConfig struct {
	DefaultLimit  int
	MaxLimit      int
	DefaultOffset int
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightMatch   float64
	WeightPrice   float64
	WeightRecency float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ModelConfig holds the OpenAI-compatible generative model configuration.
// The default endpoint is Gemini's OpenAI-compatible surface.
type ModelConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string
	EmbeddingsEnabled   bool
	BatchSize           int
	Timeout             int
}

// Enabled reports whether a credential is configured.
func (c ModelConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// TranscriptionConfig holds Whisper-compatible transcription configuration
type TranscriptionConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "righthome"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			Enabled:            getEnvAsBool("PG_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_STATE_PREFIX", "righthome:conversation:"),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		State: StateConfig{
			Backend:    strings.ToLower(getEnv("STATE_BACKEND", "memory")),
			TTLSeconds: getEnvAsInt("STATE_TTL_SECONDS", 0),
		},
		Chat: ChatConfig{
			SerializeTurns: getEnvAsBool("CHAT_SERIALIZE_TURNS", false),
			CandidateLimit: getEnvAsInt("CHAT_CANDIDATE_LIMIT", 5),
		},
		Search: SearchConfig{
			DefaultLimit:  getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:      getEnvAsInt("SEARCH_MAX_LIMIT", 100),
			DefaultOffset: getEnvAsInt("SEARCH_DEFAULT_OFFSET", 0),
		},
		Ranking: RankingConfig{
			WeightMatch:   getEnvAsFloat("RANK_WEIGHT_MATCH", 0.5),
			WeightPrice:   getEnvAsFloat("RANK_WEIGHT_PRICE", 0.3),
			WeightRecency: getEnvAsFloat("RANK_WEIGHT_RECENCY", 0.2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Model: ModelConfig{
			APIKey:              getEnv("GEMINI_API_KEY", getEnv("MODEL_API_KEY", "")),
			APIBase:             strings.TrimRight(getEnv("MODEL_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"), "/"),
			ChatModel:           getEnv("MODEL_CHAT_MODEL", "gemini-2.0-flash"),
			ChatTemperature:     getEnvAsFloat("MODEL_CHAT_TEMPERATURE", 0.4),
			ChatTopP:            getEnvAsFloat("MODEL_CHAT_TOP_P", 0.9),
			ChatMaxTokens:       getEnvAsInt("MODEL_CHAT_MAX_TOKENS", 2048),
			ChatExtraBody:       getEnv("MODEL_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("MODEL_EMBEDDING_MODEL", "text-embedding-004"),
			EmbeddingDimensions: getEnvAsInt("MODEL_EMBEDDING_DIMENSIONS", 768),
			EmbeddingExtraBody:  getEnv("MODEL_EMBEDDING_EXTRA_BODY", ""),
			EmbeddingsEnabled:   getEnvAsBool("MODEL_EMBEDDINGS_ENABLED", false),
			BatchSize:           getEnvAsInt("MODEL_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("MODEL_TIMEOUT", 30),
		},
		Transcription: TranscriptionConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			APIBase: strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			Model:   getEnv("WHISPER_MODEL", "whisper-1"),
			Timeout: getEnvAsInt("WHISPER_TIMEOUT", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that cannot be defaulted. A missing model
// credential is not an error here; it surfaces on first model use.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case "memory", "redis":
	case "postgres":
		if !c.PostgreSQL.Enabled {
			return fmt.Errorf("STATE_BACKEND=postgres requires PG_ENABLED=true")
		}
	default:
		return fmt.Errorf("invalid STATE_BACKEND %q, must be one of: memory, redis, postgres", c.State.Backend)
	}
	if c.State.TTLSeconds < 0 {
		return fmt.Errorf("STATE_TTL_SECONDS must not be negative")
	}
	if c.Chat.CandidateLimit <= 0 {
		return fmt.Errorf("CHAT_CANDIDATE_LIMIT must be positive")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch valueStr {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("invalid boolean value, using default")
		return defaultValue
	}
}
