package global

import (
	"errors"
	"fmt"
	"time"
)

// Config holds everything the service reads from the environment at start-up.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	BackendBaseURL string
	BackendTimeout time.Duration
	JWTSecret      string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string

	SessionTTL      time.Duration
	ProductCacheTTL time.Duration
	CORSOrigins     []string

	CardlessDownPaymentBase    string
	LocalFreeShippingThreshold float64
	LocalShippingCost          float64
}

var ErrMissingConfig = errors.New("missing required configuration")

func LoadConfig() (Config, error) {
	cfg := Config{
		Env:      GetEnvOrDefault("ENV", "development"),
		Port:     GetEnvOrDefault("PORT", "8000"),
		LogLevel: GetEnvOrDefault("LOG_LEVEL", "info"),

		BackendBaseURL: GetEnvOrDefault("BACKEND_BASE_URL", ""),
		BackendTimeout: GetEnvDurationOrDefault("BACKEND_TIMEOUT", 15*time.Second),
		JWTSecret:      GetEnvOrDefault("JWT_SECRET", ""),

		RedisAddress:  GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvIntOrDefault("REDIS_DB", 0),

		MongoURI:      GetEnvOrDefault("MONGODB_URI", ""),
		MongoDatabase: GetEnvOrDefault("MONGODB_DATABASE", "storefront"),

		SessionTTL:      GetEnvDurationOrDefault("SESSION_TTL", 7*24*time.Hour),
		ProductCacheTTL: GetEnvDurationOrDefault("PRODUCT_CACHE_TTL", 10*time.Minute),
		CORSOrigins: GetEnvListOrDefault("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		CardlessDownPaymentBase:    GetEnvOrDefault("CARDLESS_DOWN_PAYMENT_BASE", "total_with_interest"),
		LocalFreeShippingThreshold: GetEnvFloatOrDefault("LOCAL_FREE_SHIPPING_THRESHOLD", 5000),
		LocalShippingCost:          GetEnvFloatOrDefault("LOCAL_SHIPPING_COST", 120),
	}

	if cfg.BackendBaseURL == "" {
		return cfg, fmt.Errorf("%w: BACKEND_BASE_URL", ErrMissingConfig)
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("%w: JWT_SECRET", ErrMissingConfig)
	}
	if cfg.MongoURI == "" {
		return cfg, fmt.Errorf("%w: MONGODB_URI", ErrMissingConfig)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
