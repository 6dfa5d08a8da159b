package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Session    SessionConfig
	Attom      AttomConfig
	Estimator  EstimatorConfig
	Search     SearchConfig
	Geo        GeoConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// PostgreSQLConfig holds PostgreSQL database configuration, used when the
// property provider is "postgres"
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes priority
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// RedisConfig holds Redis connection configuration, used when the session
// store is "redis"
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig holds conversation session settings
type SessionConfig struct {
	// Store selects the session backend: "memory" or "redis"
	Store string
	// TTLSeconds is how long an idle session survives before eviction
	TTLSeconds int
}

// AttomConfig holds the ATTOM property data API configuration
type AttomConfig struct {
	APIKey  string
	APIBase string
	Timeout int
	Enabled bool
}

// EstimatorConfig holds the fair-value estimation API configuration. Any
// OpenAI-compatible chat completion endpoint works.
type EstimatorConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     int
	Enabled     bool
}

// SearchConfig holds search orchestration settings
type SearchConfig struct {
	// Provider selects the property data source: "attom", "postgres" or "mock"
	Provider string
	// MaxResults caps how many properties one search returns
	MaxResults int
	// EnrichConcurrency bounds parallel valuation calls per search
	EnrichConcurrency int
	// EstimateTimeoutSeconds bounds a single fair-value estimation call
	EstimateTimeoutSeconds int
}

// GeoConfig holds the city-to-ZIP gazetteer configuration
type GeoConfig struct {
	// MappingFile optionally points at a city2zip JSON file that extends
	// the built-in table
	MappingFile string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "dealscout"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "memory"),
			TTLSeconds: getEnvAsInt("SESSION_TTL_SECONDS", 1800),
		},
		Attom: AttomConfig{
			APIKey:  getEnv("ATTOM_API_KEY", ""),
			APIBase: getEnv("ATTOM_API_BASE", "https://api.gateway.attomdata.com/propertyapi/v1.0.0"),
			Timeout: getEnvAsInt("ATTOM_TIMEOUT", 30),
			Enabled: getEnv("ATTOM_API_KEY", "") != "",
		},
		Estimator: EstimatorConfig{
			APIKey:      getEnv("ESTIMATOR_API_KEY", ""),
			APIBase:     getEnv("ESTIMATOR_API_BASE", "https://api.openai.com/v1"),
			Model:       getEnv("ESTIMATOR_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("ESTIMATOR_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("ESTIMATOR_MAX_TOKENS", 1000),
			Timeout:     getEnvAsInt("ESTIMATOR_TIMEOUT", 30),
			Enabled:     getEnv("ESTIMATOR_API_KEY", "") != "",
		},
		Search: SearchConfig{
			Provider:               getEnv("PROPERTY_PROVIDER", "mock"),
			MaxResults:             getEnvAsInt("SEARCH_MAX_RESULTS", 10),
			EnrichConcurrency:      getEnvAsInt("SEARCH_ENRICH_CONCURRENCY", 4),
			EstimateTimeoutSeconds: getEnvAsInt("SEARCH_ESTIMATE_TIMEOUT", 20),
		},
		Geo: GeoConfig{
			MappingFile: getEnv("GEO_MAPPING_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns the PostgreSQL connection string
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
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}
