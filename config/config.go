package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL     string
	JWTSecretKey    string
	ServerPort      int
	StripeSecretKey string
	StripeCurrency  string

	// Если RedisAddr пустой, кэш конкурсов отключён.
	RedisAddr     string
	RedisPassword string

	// Если поля R2 пустые, загрузка изображений отключена.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is not set")
	}

	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "gbp"
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:     dbURL,
		JWTSecretKey:    jwtKey,
		ServerPort:      port,
		StripeSecretKey: stripeKey,
		StripeCurrency:  currency,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// R2Configured сообщает, заданы ли все обязательные поля объектного хранилища.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" &&
		c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" &&
		c.R2BucketName != ""
}
