package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Scoring modes for per-email total scores
const (
	ScoringSum      = "sum"
	ScoringWeighted = "weighted"
)

// Config holds all configuration for the application
type Config struct {
	Port          string
	Version       string
	LogLevel      string
	EnableSwagger bool

	// AI responder
	OpenAIKey                string
	OpenAIBaseURL            string // Optional OpenAI-compatible endpoint (local models, proxies)
	OpenAIModel              string
	AzureOpenAIEndpoint      string
	AzureOpenAIKey           string
	AzureOpenAIGPTDeployment string
	OpenAITimeout            int // Per-call timeout in seconds
	OpenAIMaxTokens          int

	// Rule engine
	RulesPath   string
	ScoringMode string // "sum" or "weighted"

	// Report delivery
	SendGridAPIKey    string
	ReportSenderEmail string

	// Admin routes
	AdminUsername string
	AdminPassword string
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:                     getEnv("PORT", "8080"),
		Version:                  getEnv("VERSION", "1.0.0"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		EnableSwagger:            getEnvBool("ENABLE_SWAGGER", true),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:            os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:              getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AzureOpenAIEndpoint:      os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIKey:           os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIGPTDeployment: getEnv("AZURE_OPENAI_GPT_DEPLOYMENT", "gpt-4o-mini"),
		OpenAITimeout:            getEnvInt("OPENAI_TIMEOUT", 60),     // Default 60 seconds
		OpenAIMaxTokens:          getEnvInt("OPENAI_MAX_TOKENS", 512), // Enough for a summary
		RulesPath:                getEnv("RULES_PATH", "config/rules.yaml"),
		ScoringMode:              getScoringMode("SCORING_MODE", ScoringSum),
		SendGridAPIKey:           os.Getenv("SENDGRID_API_KEY"),
		ReportSenderEmail:        getEnv("REPORT_SENDER_EMAIL", "audit-noreply@mailaudit.local"),
		AdminUsername:            os.Getenv("ADMIN_USERNAME"),
		AdminPassword:            os.Getenv("ADMIN_PASSWORD"),
	}

	return config
}

// UseAzureOpenAI reports whether Azure OpenAI is fully configured
func (c *Config) UseAzureOpenAI() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIKey != ""
}

// HasOpenAIFallback reports whether an OpenAI platform (or compatible) provider is configured
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != "" || c.OpenAIBaseURL != ""
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getScoringMode reads a scoring mode, ignoring unknown values
func getScoringMode(key, defaultValue string) string {
	switch mode := strings.ToLower(strings.TrimSpace(os.Getenv(key))); mode {
	case ScoringSum, ScoringWeighted:
		return mode
	default:
		return defaultValue
	}
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "mailaudit").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
