package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Database    DatabaseConfig
	Token       TokenConfig
	Crypto      CryptoConfig
	Storage     StorageConfig
	AWS         AWSConfig
	Queue       QueueConfig
	Mail        MailConfig
	Billing     BillingConfig
	Facebook    FacebookConfig
	App         AppConfig
	Warmer      WarmerConfig
	RateLimit   RateLimitConfig
}

// TokenConfig holds session token settings
type TokenConfig struct {
	Secret string `validate:"required"`
	// EmailUserExpiryDays applies to accounts without a linked social identity
	EmailUserExpiryDays int `validate:"min=1"`
	// SocialUserExpiryDays applies to accounts with a linked social identity
	SocialUserExpiryDays int `validate:"min=1"`
	// SignupExpiryDays applies to tokens issued by signup and password reset
	SignupExpiryDays int `validate:"min=1"`
}

// CryptoConfig holds keys for personal field encryption
type CryptoConfig struct {
	FieldKey string `validate:"required"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Type      string `validate:"oneof=local s3 mock"`
	LocalPath string
	BaseURL   string
	S3Bucket  string `validate:"required_if=Type s3"`
	S3Region  string
	// PictureKeyPrefix is the key prefix for uploaded and generated pictures
	PictureKeyPrefix string
}

// AWSConfig holds shared AWS client settings
type AWSConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// QueueConfig holds task queue configuration
type QueueConfig struct {
	Type     string `validate:"oneof=memory sqs"`
	QueueURL string `validate:"required_if=Type sqs"`
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	Type    string `validate:"oneof=log ses"`
	From    string
	AlertTo string
}

// BillingConfig holds billing provider configuration
type BillingConfig struct {
	Site    string
	APIKey  string
	BaseURL string
	// WebhookUsername and WebhookPassword guard the webhook receiver
	WebhookUsername string
	WebhookPassword string
	// CardExpiryEvent is the webhook event type that creates a notification
	CardExpiryEvent            string
	CardExpiryNotificationType int
	UpdatePaymentLink          string
	// Plans maps a product id to the billing plan it is sold as
	Plans map[int64]string
}

// FacebookConfig holds Graph API settings
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	GraphURL    string
	RedirectURI string
}

// AppConfig holds product-level settings shared by handlers
type AppConfig struct {
	EnvironmentURL     string
	ProfilesLink       string
	ResetPasswordPath  string
	ResetTokenTTL      time.Duration
	CancelWindow       time.Duration
	MysteryUnlockCount int `validate:"min=1"`
	MysteryWindow      time.Duration
	DefaultLocale      int
}

// WarmerConfig lists the functions kept warm by the scheduled warmer
type WarmerConfig struct {
	Functions []string
	Suffix    string
}

// RateLimitConfig configures the local server limiter
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	plans, err := ParsePlans(v.GetString("BILLING_PLANS"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			DSN:             v.GetString("DB_CONNECTION_STRING"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Token: TokenConfig{
			Secret:               v.GetString("TOKEN_SECRET_KEY"),
			EmailUserExpiryDays:  v.GetInt("TOKEN_EXP_TIME_EMAIL_USER"),
			SocialUserExpiryDays: v.GetInt("TOKEN_EXPIRY_TIME"),
			SignupExpiryDays:     v.GetInt("TOKEN_SIGNUP_EXPIRY_DAYS"),
		},
		Crypto: CryptoConfig{
			FieldKey: v.GetString("DB_ENCRYPTION_KEY"),
		},
		Storage: StorageConfig{
			Type:             v.GetString("STORAGE_TYPE"),
			LocalPath:        v.GetString("STORAGE_LOCAL_PATH"),
			BaseURL:          v.GetString("STORAGE_BASE_URL"),
			S3Bucket:         v.GetString("S3_BUCKET"),
			S3Region:         v.GetString("S3_REGION"),
			PictureKeyPrefix: v.GetString("PICTURE_KEY_PREFIX"),
		},
		AWS: AWSConfig{
			Region:    v.GetString("AWS_REGION"),
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:  v.GetString("AWS_ENDPOINT_URL"),
		},
		Queue: QueueConfig{
			Type:     v.GetString("QUEUE_TYPE"),
			QueueURL: v.GetString("TASK_QUEUE_URL"),
		},
		Mail: MailConfig{
			Type:    v.GetString("MAIL_TYPE"),
			From:    v.GetString("MAIL_FROM"),
			AlertTo: v.GetString("ALERT_EMAIL"),
		},
		Billing: BillingConfig{
			Site:                       v.GetString("CHARGEBEE_SITE"),
			APIKey:                     v.GetString("CHARGEBEE_API_KEY"),
			BaseURL:                    v.GetString("CHARGEBEE_BASE_URL"),
			WebhookUsername:            v.GetString("WEBHOOK_USERNAME"),
			WebhookPassword:            v.GetString("WEBHOOK_PASSWORD"),
			CardExpiryEvent:            v.GetString("EVENT_TYPE"),
			CardExpiryNotificationType: v.GetInt("NOTIFICATION_TYPE"),
			UpdatePaymentLink:          v.GetString("UPDATE_LINK"),
			Plans:                      plans,
		},
		Facebook: FacebookConfig{
			AppID:       v.GetString("FACEBOOK_APP_ID"),
			AppSecret:   v.GetString("FACEBOOK_APP_SECRET"),
			GraphURL:    v.GetString("FACEBOOK_GRAPH_URL"),
			RedirectURI: v.GetString("FACEBOOK_REDIRECT_URI"),
		},
		App: AppConfig{
			EnvironmentURL:     v.GetString("ENVIRONMENT_URL"),
			ProfilesLink:       v.GetString("PROFILES_LINK"),
			ResetPasswordPath:  v.GetString("RESET_PASSWORD_LINK"),
			ResetTokenTTL:      v.GetDuration("RESET_TOKEN_TTL"),
			CancelWindow:       time.Duration(v.GetInt("TIME_DIFF")) * time.Minute,
			MysteryUnlockCount: v.GetInt("MYSTERY_UNLOCK_USER_COUNT"),
			MysteryWindow:      v.GetDuration("MYSTERY_WINDOW"),
			DefaultLocale:      v.GetInt("DEFAULT_LANGUAGE_ID"),
		},
		Warmer: WarmerConfig{
			Functions: splitList(v.GetString("WARM_FUNCTIONS")),
			Suffix:    v.GetString("ENVIRONMENT_TYPE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite3")
	v.SetDefault("DB_CONNECTION_STRING", "./data/profiles.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("TOKEN_EXP_TIME_EMAIL_USER", 365)
	v.SetDefault("TOKEN_EXPIRY_TIME", 60)
	v.SetDefault("TOKEN_SIGNUP_EXPIRY_DAYS", 365)
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./data/files")
	v.SetDefault("STORAGE_BASE_URL", "http://localhost:8081/files")
	v.SetDefault("PICTURE_KEY_PREFIX", "profile-pictures")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("QUEUE_TYPE", "memory")
	v.SetDefault("MAIL_TYPE", "log")
	v.SetDefault("MAIL_FROM", "no-reply@profiles.local")
	v.SetDefault("EVENT_TYPE", "card_expiry_reminder")
	v.SetDefault("NOTIFICATION_TYPE", 7)
	v.SetDefault("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("ENVIRONMENT_URL", "http://localhost:3000")
	v.SetDefault("PROFILES_LINK", "http://localhost:3000/profile/")
	v.SetDefault("RESET_PASSWORD_LINK", "/reset-password/")
	v.SetDefault("RESET_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("TIME_DIFF", 30)
	v.SetDefault("MYSTERY_UNLOCK_USER_COUNT", 3)
	v.SetDefault("MYSTERY_WINDOW", 24*time.Hour)
	v.SetDefault("DEFAULT_LANGUAGE_ID", 165)
	v.SetDefault("ENVIRONMENT_TYPE", "")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// Validate checks required settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the application runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParsePlans reads a "product_id=plan_id" list such as "12=report-basic,13=report-plus"
func ParsePlans(value string) (map[int64]string, error) {
	plans := make(map[int64]string)
	for _, entry := range splitList(value) {
		product, plan, ok := strings.Cut(entry, "=")
		plan = strings.TrimSpace(plan)
		if !ok || plan == "" {
			return nil, fmt.Errorf("invalid BILLING_PLANS entry %q", entry)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(product), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id in BILLING_PLANS entry %q", entry)
		}
		plans[id] = plan
	}
	return plans, nil
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt gets an environment variable as integer with a fallback value
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
