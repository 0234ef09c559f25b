package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every option the service recognizes. It is built once in main
// and passed to each component constructor.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000" validate:"required,numeric"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres" validate:"oneof=postgres mysql sqlite"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required"`

	DefaultFrameID string `env:"DEFAULT_POC_FRAME_ID"`
	BaseURL        string `env:"BASE_URL" validate:"omitempty,url"`
	AppBaseURL     string `env:"APP_BASE_URL" validate:"omitempty,url"`
	AssetsBaseURL  string `env:"ASSETS_BASE_URL" envDefault:"https://jopwkvlrcjvsluwgyjkm.supabase.co/storage/v1/object/public/poc-images" validate:"url"`

	IgnoreOwnershipCheck      bool `env:"CHALLENGE_IGNORE_OWNERSHIP_CHECK"`
	AllowMultipleFramesPerFid bool `env:"FRAME_ALLOW_MULTIPLE_FOR_SAME_FID"`
	// VerifyBody takes the user from the hub-validated frame message instead of the request body.
	VerifyBody bool `env:"VERIFY_BODY"`

	IssuanceURL       string        `env:"PHOSPHOR_URL" validate:"required,url"`
	IssuancePublicURL string        `env:"PHOSPHOR_PUBLIC_URL" validate:"omitempty,url"`
	IssuanceAPIKey    string        `env:"PHOSPHOR_APIKEY"`
	IssuanceTimeout   time.Duration `env:"PHOSPHOR_TIMEOUT" envDefault:"15s"`

	IdentityURL    string `env:"NEYNAR_URL" envDefault:"https://api.neynar.com" validate:"url"`
	IdentityAPIKey string `env:"NEYNAR_APIKEY"`

	OwnershipMinQuantity   int    `env:"OWNERSHIP_MIN_QUANTITY" envDefault:"1" validate:"min=1"`
	ItemMaxSupply          int    `env:"ITEM_MAX_SUPPLY" envDefault:"1000" validate:"min=1"`
	ChallengeQuestionCount int    `env:"CHALLENGE_QUESTION_COUNT" envDefault:"0" validate:"min=0"`
	ShuffleQuestions       bool   `env:"CHALLENGE_SHUFFLE_QUESTIONS"`
	ReconcileSchedule      string `env:"ITEM_RECONCILE_SCHEDULE" envDefault:"@every 15m"`

	JWTSecret         string `env:"JWT_SECRET" validate:"omitempty,min=32"`
	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	RateLimitEnabled     bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100" validate:"min=1"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AdminEnabled reports whether the admin API can issue and verify tokens.
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

// PublicIssuanceURL falls back to the authenticated base URL.
func (c *Config) PublicIssuanceURL() string {
	if c.IssuancePublicURL != "" {
		return c.IssuancePublicURL
	}
	return c.IssuanceURL
}

// Load reads .env (if present) and the process environment into a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.IsProduction() && cfg.CORSOrigins == "*" {
		log.Println("WARNING: CORS_ORIGINS not properly configured for production")
	}
	return cfg, nil
}
