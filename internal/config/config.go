package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Paystack PaystackConfig
	App      AppConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
}

type AppConfig struct {
	BaseURL            string
	FrontendURL        string
	HoldTTL            time.Duration
	ReapInterval       time.Duration
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	IdempotencyTTL     time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paystackSecret := os.Getenv("PAYSTACK_SECRET_KEY")
	if paystackSecret == "" {
		return nil, fmt.Errorf("%s: missing PAYSTACK_SECRET_KEY", op)
	}

	paystackBaseURL := os.Getenv("PAYSTACK_BASE_URL")
	if paystackBaseURL == "" {
		paystackBaseURL = "https://api.paystack.co"
	}

	currency := os.Getenv("PAYSTACK_CURRENCY")
	if currency == "" {
		currency = "NGN"
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = fmt.Sprintf("http://%s:%d", serverHost, serverPort)
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = appBaseURL
	}

	holdTTLSec, err := intEnv("HOLD_TTL_SECONDS", 900)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reapSec, err := intEnv("REAP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := intEnv("CHECKOUT_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateWindowSec, err := intEnv("CHECKOUT_RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTLSec, err := intEnv("IDEMPOTENCY_TTL_SECONDS", 7200)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: serverHost,
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     postgresHost,
			Port:     postgresPort,
			SSLMode:  postgresSSLMode,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		},
		Paystack: PaystackConfig{
			BaseURL:   paystackBaseURL,
			SecretKey: paystackSecret,
			Currency:  currency,
		},
		App: AppConfig{
			BaseURL:            appBaseURL,
			FrontendURL:        frontendURL,
			HoldTTL:            time.Duration(holdTTLSec) * time.Second,
			ReapInterval:       time.Duration(reapSec) * time.Second,
			CheckoutRateLimit:  rateLimit,
			CheckoutRateWindow: time.Duration(rateWindowSec) * time.Second,
			IdempotencyTTL:     time.Duration(idemTTLSec) * time.Second,
		},
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
