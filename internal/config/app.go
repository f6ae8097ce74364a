package config

import (
	"chat-relay/internal/logger"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage drivers
const (
	StorageFile     = "file"
	StorageS3       = "s3"
	StoragePostgres = "postgres"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Models    *ModelsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port              string
	StaticDir         string
	AllowedOrigins    []string
	KeepAliveInterval time.Duration
	ShutdownTimeout   time.Duration
}

// StorageConfig selects where the users, shares and conversations documents live
type StorageConfig struct {
	Driver            string
	DataDir           string
	UsersFile         string
	SharesFile        string
	ConversationsFile string
	S3                S3Config
	Database          DatabaseConfig
}

// S3Config holds the object storage settings for the s3 driver
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	AnthropicAPIKey   string
	AnthropicBaseURL  string
	AnthropicVersion  string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	HTTPReferer       string
	AppTitle          string
	DefaultModel      string
	DefaultMaxTokens  int
	ConnectTimeout    time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	DefaultAdminPassword string
	HashPasswords        bool
}

// RateLimitConfig throttles chat requests per user; zero disables it
type RateLimitConfig struct {
	ChatPerMinute int
	Burst         int
}

// LoadConfig loads and validates application configuration from environment.
// A key=value env file (ENV_FILE, default .env) is read first when present;
// variables already set in the process take precedence.
func LoadConfig() (*AppConfig, error) {
	envFile := getEnvOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		logger.Log.WithField("env_file", envFile).Debug("No env file loaded")
	} else {
		logger.Log.WithField("env_file", envFile).Info("Loaded env file")
	}

	config := &AppConfig{}

	// Load Server config
	config.Server = ServerConfig{
		Port:              getEnvOrDefault("PORT", "3002"),
		StaticDir:         os.Getenv("STATIC_DIR"),
		AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		KeepAliveInterval: getEnvAsDuration("STREAM_KEEPALIVE_INTERVAL", 15*time.Second),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	// Load Storage config
	config.Storage = StorageConfig{
		Driver:            getEnvOrDefault("STORAGE_DRIVER", StorageFile),
		DataDir:           getEnvOrDefault("DATA_DIR", "."),
		UsersFile:         getEnvOrDefault("USERS_FILE", "users.json"),
		SharesFile:        getEnvOrDefault("SHARES_FILE", "shares.json"),
		ConversationsFile: getEnvOrDefault("CONVERSATIONS_FILE", "conversations.json"),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Prefix:    os.Getenv("S3_PREFIX"),
			Region:    getEnvOrDefault("AWS_REGION", "us-east-1"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "chatrelay"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
	}
	if err := config.Storage.validate(); err != nil {
		return nil, err
	}

	// Load LLM config
	config.LLM = LLMConfig{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL:  strings.TrimRight(getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"), "/"),
		AnthropicVersion:  getEnvOrDefault("ANTHROPIC_VERSION", "2023-06-01"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: strings.TrimRight(getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
		HTTPReferer:       getEnvOrDefault("OPENROUTER_REFERER", "http://localhost:3002"),
		AppTitle:          getEnvOrDefault("OPENROUTER_TITLE", "Chat Relay"),
		DefaultModel:      getEnvOrDefault("LLM_DEFAULT_MODEL", "claude-sonnet-4-5-20250929"),
		DefaultMaxTokens:  getEnvAsInt("LLM_DEFAULT_MAX_TOKENS", DefaultFallbackMaxTokens),
		ConnectTimeout:    getEnvAsDuration("LLM_CONNECT_TIMEOUT", 30*time.Second),
	}
	if config.LLM.AnthropicAPIKey == "" {
		logger.Log.Warn("ANTHROPIC_API_KEY environment variable not set")
	}
	if config.LLM.OpenRouterAPIKey == "" {
		logger.Log.Warn("OPENROUTER_API_KEY environment variable not set")
	}

	// Load Auth config
	config.Auth = AuthConfig{
		DefaultAdminPassword: getEnvOrDefault("DEFAULT_ADMIN_PASSWORD", "admin123"),
		HashPasswords:        getEnvAsBool("AUTH_HASH_PASSWORDS", false),
	}

	config.RateLimit = RateLimitConfig{
		ChatPerMinute: getEnvAsInt("CHAT_RATE_PER_MINUTE", 0),
		Burst:         getEnvAsInt("CHAT_RATE_BURST", 5),
	}

	// Load Models config
	var models *ModelsConfig
	var err error
	if path := os.Getenv("MODELS_CONFIG_PATH"); path != "" {
		models, err = NewModelsConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load models config: %w", err)
		}
	} else {
		models, err = NewModelsConfigFromList(DefaultModels())
		if err != nil {
			return nil, fmt.Errorf("failed to build default models config: %w", err)
		}
	}
	models.SetDefaultModel(config.LLM.DefaultModel)
	models.SetFallbackMaxTokens(config.LLM.DefaultMaxTokens)
	config.Models = models

	return config, nil
}

func (s *StorageConfig) validate() error {
	switch s.Driver {
	case StorageFile:
		return nil
	case StorageS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set when STORAGE_DRIVER=s3")
		}
		return nil
	case StoragePostgres:
		return nil
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want file, s3 or postgres)", s.Driver)
	}
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
