package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "store-backend"
	ServiceVersion = "0.1.0"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=store_admin port=5432 sslmode=disable"

type Config struct {
	HTTPPort     string
	DatabaseDSN  string
	JWTSecret    string
	CORSOrigins  string
	LogLevel     string
	Environment  string // development, production
	OtelEndpoint string // boşsa tracing kapalı
	KafkaBrokers []string
	KafkaTopic   string
	TxMaxRetries int // deadlock/serialization hatalarında tekrar sayısı
	// olay yayını için üst sınır; broker erişilemezse yanıt bu kadar bekler
	PublishTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:  getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Environment:  getEnv("APP_ENV", "development"),
		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_PURCHASE_TOPIC", "purchase-events"),
	}

	retries, err := strconv.Atoi(getEnv("TX_MAX_RETRIES", "3"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("TX_MAX_RETRIES negatif olmayan bir tam sayı olmalı: %q", os.Getenv("TX_MAX_RETRIES"))
	}
	cfg.TxMaxRetries = retries

	timeout, err := time.ParseDuration(getEnv("EVENT_PUBLISH_TIMEOUT", "2s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("EVENT_PUBLISH_TIMEOUT pozitif bir süre olmalı (ör. 2s): %q", os.Getenv("EVENT_PUBLISH_TIMEOUT"))
	}
	cfg.PublishTimeout = timeout

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment değişkeni tanımlanmamış")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET en az 32 karakter olmalıdır")
	}

	return cfg, nil
}

// Warnings: production için güvensiz varsayılanlar
func (c *Config) Warnings() []string {
	var warnings []string
	if c.DatabaseDSN == defaultDSN {
		warnings = append(warnings, "DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantı bilgisini tanımla")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		warnings = append(warnings, "CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla")
	}
	return warnings
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
