package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds process-level configuration. Domain thresholds live in
// the system_settings table, not here.
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Photo verification
	GeminiAPIKey  string
	GeminiModel   string
	VerifyTimeout time.Duration

	// RabbitMQ for resolved-report notifications
	AMQPURL      string
	ExchangeName string
	RoutingKey   string

	// Background sweeps
	SweepInterval time.Duration
	DecayInterval time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "ekokampus"),

		Port: getEnv("PORT", "8080"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		VerifyTimeout: time.Duration(getIntEnv("VERIFY_TIMEOUT_SEC", 10)) * time.Second,

		AMQPURL:      getEnv("AMQP_URL", ""),
		ExchangeName: getEnv("AMQP_EXCHANGE", "ekokampus"),
		RoutingKey:   getEnv("AMQP_ROUTING_KEY", "report.resolved"),

		SweepInterval: time.Duration(getIntEnv("SWEEP_INTERVAL_SEC", 60)) * time.Second,
		DecayInterval: time.Duration(getIntEnv("DECAY_SWEEP_INTERVAL_MIN", 60)) * time.Minute,
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
