package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion       string
	ProductsTable   string
	CategoriesTable string
	ImagesBucket    string
	CategoryIndex   string // GSI on the flat Italian category value
	CodeIndex       string // GSI on the unique product code

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Retry and circuit breaker tuning
	RetryMaxAttempts        int
	RetryInitialDelay       time.Duration
	RetryMaxDelay           time.Duration
	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:       getEnv("AWS_REGION", "eu-south-1"),
		ProductsTable:   getEnv("PRODUCTS_TABLE", "catalogo-products"),
		CategoriesTable: getEnv("CATEGORIES_TABLE", "catalogo-categories"),
		ImagesBucket:    getEnv("IMAGES_BUCKET", "catalogo-images"),
		CategoryIndex:   getEnv("CATEGORY_INDEX", "CategoryIndex"),
		CodeIndex:       getEnv("CODE_INDEX", "CodeIndex"),

		IsLambda:           getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		RetryMaxAttempts:        getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay:       getEnvDuration("RETRY_INITIAL_DELAY", 100*time.Millisecond),
		RetryMaxDelay:           getEnvDuration("RETRY_MAX_DELAY", 5*time.Second),
		BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerResetTimeout:     getEnvDuration("BREAKER_RESET_TIMEOUT", 60*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "catalogo-backend"),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.ProductsTable == "" {
		return fmt.Errorf("PRODUCTS_TABLE is required")
	}
	if c.CategoriesTable == "" {
		return fmt.Errorf("CATEGORIES_TABLE is required")
	}
	if c.ImagesBucket == "" {
		return fmt.Errorf("IMAGES_BUCKET is required")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.BreakerFailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
