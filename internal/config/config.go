// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is loaded first when present;
// real environment variables always win over it.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config groups the settings of both binaries. Each binary reads only the
// sections it needs.
type Config struct {
	Server  Server
	Client  Client
	Payment Payment
}

// Server holds backend settings.
type Server struct {
	Port            string
	DBPath          string
	FunctionsPrefix string
	ReceiptSecret   string
	ReceiptTTL      time.Duration
}

// Client holds API client settings.
type Client struct {
	BaseURL        string
	Timeout        time.Duration
	PaymentTimeout time.Duration
	HealthTimeout  time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Payment holds money-related constants shared by client and server.
type Payment struct {
	ServiceFeePercent float64
	MinAmount         float64
	MaxAmount         float64
	CurrencyCode      string
	CurrencySymbol    string
}

// Load reads the configuration. Missing or malformed values fall back to
// defaults.
func Load() Config {
	_ = godotenv.Load()

	timeout := getEnvDuration("API_TIMEOUT_MS", 30000)

	return Config{
		Server: Server{
			Port:            getEnv("PORT", "8080"),
			DBPath:          getEnv("DB_PATH", "./data/payfees.db"),
			FunctionsPrefix: getEnv("FUNCTIONS_PREFIX", "/.netlify/functions/api"),
			ReceiptSecret:   getEnv("RECEIPT_SECRET", "dev-secret-change-me"),
			ReceiptTTL:      time.Duration(getEnvInt("RECEIPT_TTL_MINUTES", 1440)) * time.Minute,
		},
		Client: Client{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
			Timeout:        timeout,
			PaymentTimeout: getEnvDuration("API_PAYMENT_TIMEOUT_MS", 2*timeout.Milliseconds()),
			HealthTimeout:  getEnvDuration("API_HEALTH_TIMEOUT_MS", 5000),
			RetryAttempts:  getEnvInt("API_RETRY_ATTEMPTS", 3),
			RetryDelay:     getEnvDuration("API_RETRY_DELAY_MS", 1000),
		},
		Payment: Payment{
			ServiceFeePercent: getEnvFloat("SERVICE_FEE_PERCENT", 2.5),
			MinAmount:         getEnvFloat("MIN_PAYMENT_AMOUNT", 1),
			MaxAmount:         getEnvFloat("MAX_PAYMENT_AMOUNT", 1000000),
			CurrencyCode:      getEnv("CURRENCY_CODE", "UGX"),
			CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "USh"),
		},
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, defMillis int64) time.Duration {
	return time.Duration(getEnvInt(key, int(defMillis))) * time.Millisecond
}
