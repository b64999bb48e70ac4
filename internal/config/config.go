package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CatalogPath    string   `mapstructure:"CATALOG_PATH"`
	JWTSigningKey  string   `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer      string   `mapstructure:"JWT_ISSUER"`
	DefaultClinic  string   `mapstructure:"DEFAULT_CLINIC"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	AnalysisURL    string   `mapstructure:"ANALYSIS_URL"`
	AnalysisAPIKey string   `mapstructure:"ANALYSIS_API_KEY"`
	CheckoutURL    string   `mapstructure:"CHECKOUT_URL"`
	CheckoutAPIKey string   `mapstructure:"CHECKOUT_API_KEY"`
	DispensaryURL  string   `mapstructure:"DISPENSARY_URL"`
	DispensaryKey  string   `mapstructure:"DISPENSARY_API_KEY"`
	// DispensaryDiscountPct is the affiliate discount advertised to
	// clinic-linked users. Marketing keeps changing the number, so it is
	// configuration, not a constant.
	DispensaryDiscountPct int    `mapstructure:"DISPENSARY_DISCOUNT_PCT"`
	MaxUploadSize         string `mapstructure:"MAX_UPLOAD_SIZE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CATALOG_PATH", "./config/catalog.json")
	v.SetDefault("DEFAULT_CLINIC", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("DISPENSARY_DISCOUNT_PCT", 15)
	v.SetDefault("MAX_UPLOAD_SIZE", "25M")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CATALOG_PATH")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("DEFAULT_CLINIC")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("ANALYSIS_URL")
	v.BindEnv("ANALYSIS_API_KEY")
	v.BindEnv("CHECKOUT_URL")
	v.BindEnv("CHECKOUT_API_KEY")
	v.BindEnv("DISPENSARY_URL")
	v.BindEnv("DISPENSARY_API_KEY")
	v.BindEnv("DISPENSARY_DISCOUNT_PCT")
	v.BindEnv("MAX_UPLOAD_SIZE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: unauthenticated requests are granted a dev identity.")
		log.Println("WARNING: set ENV=production and JWT_SIGNING_KEY before deploying.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production mode
// refuses to start without a signing key and the outbound service endpoints
// the report and checkout workflows depend on.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required in production")
	}
	if c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
	}
	if c.DispensaryDiscountPct < 0 || c.DispensaryDiscountPct > 100 {
		return fmt.Errorf("DISPENSARY_DISCOUNT_PCT must be between 0 and 100, got %d", c.DispensaryDiscountPct)
	}
	if c.IsProduction() {
		if c.AnalysisURL == "" {
			return fmt.Errorf("ANALYSIS_URL is required in production")
		}
		if c.CheckoutURL == "" {
			return fmt.Errorf("CHECKOUT_URL is required in production")
		}
	}
	return nil
}
