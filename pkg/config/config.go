package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL           string
	Port                  string
	IsProduction          bool
	JWTSecret             string
	SettlementTrustPolicy string
	RateLimit             string
	DBConnectTimeout      time.Duration
	RequestTimeout        time.Duration
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Environment variables win over .env values.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("SETTLEMENT_TRUST_POLICY", "both")
	viper.SetDefault("RATE_LIMIT", "120-M")
	viper.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	cfg.SettlementTrustPolicy = viper.GetString("SETTLEMENT_TRUST_POLICY")
	switch cfg.SettlementTrustPolicy {
	case "single", "both":
	default:
		log.Printf("Warning: Invalid SETTLEMENT_TRUST_POLICY (%q). Defaulting to \"both\".\n", cfg.SettlementTrustPolicy)
		cfg.SettlementTrustPolicy = "both"
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	timeoutStr := viper.GetString("DB_CONNECT_TIMEOUT")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 5 * time.Second
		log.Printf("Warning: Invalid DB_CONNECT_TIMEOUT (%q). Defaulting to %s.\n", timeoutStr, timeout)
	}
	cfg.DBConnectTimeout = timeout

	requestTimeoutStr := viper.GetString("REQUEST_TIMEOUT")
	requestTimeout, err := time.ParseDuration(requestTimeoutStr)
	if err != nil {
		requestTimeout = 10 * time.Second
		log.Printf("Warning: Invalid REQUEST_TIMEOUT (%q). Defaulting to %s.\n", requestTimeoutStr, requestTimeout)
	}
	cfg.RequestTimeout = requestTimeout

	return cfg, nil
}
