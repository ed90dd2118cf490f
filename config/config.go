package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSweeperDB   int    `mapstructure:"REDIS_SWEEPER_DB"`
	SweepIntervalMin int    `mapstructure:"SWEEP_INTERVAL_MIN"`

	// Stripe configuration.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	FrontendURL         string `mapstructure:"FRONTEND_URL"`

	// Pricing. Rates are fractions of the final price, the fixed fee is in pounds.
	PlatformFeeRate  float64 `mapstructure:"PLATFORM_FEE_RATE"`
	StripeFeeRate    float64 `mapstructure:"STRIPE_FEE_RATE"`
	StripeFixedFee   float64 `mapstructure:"STRIPE_FIXED_FEE"`
	Currency         string  `mapstructure:"CURRENCY"`
	MaxActiveMatches int     `mapstructure:"MAX_ACTIVE_MATCHES"`

	// Minutes a PENDING payment may hold its spots before being swept.
	StaleReservationMin int `mapstructure:"STALE_RESERVATION_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SWEEPER_DB", 1)
	viper.SetDefault("SWEEP_INTERVAL_MIN", 5)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "footyreserve")
	viper.SetDefault("PLATFORM_FEE_RATE", 0.05)
	viper.SetDefault("STRIPE_FEE_RATE", 0.014)
	viper.SetDefault("STRIPE_FIXED_FEE", 0.20)
	viper.SetDefault("CURRENCY", "gbp")
	viper.SetDefault("MAX_ACTIVE_MATCHES", 3)
	viper.SetDefault("STALE_RESERVATION_MIN", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
