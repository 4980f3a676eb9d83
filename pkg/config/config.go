package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smartscheduler/backend/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Env          string
	Server       ServerConfig
	Store        StoreConfig
	Mongo        MongoConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Typesense    TypesenseConfig
	Calendar     CalendarConfig
	Recommender  RecommenderConfig
	OpenAI       OpenAIConfig
	Gemini       GeminiConfig
	Notification NotificationConfig
	SMTP         SMTPConfig
	Queue        QueueConfig
	Scheduling   SchedulingConfig
	OTEL         OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPM   int
	RateLimitBurst int
	TrustedProxies []string
	AdminToken     string
}

// StoreConfig selects the availability store backend: memory, mongo or postgres
type StoreConfig struct {
	Driver string
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string
	Database string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// CalendarConfig holds calendar provider configuration
type CalendarConfig struct {
	Driver          string
	CredentialsFile string
	AllowMockReads  bool
}

// RecommenderConfig selects the LLM backend: openai, gemini or mock
type RecommenderConfig struct {
	Driver string
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	RateLimitRPM   int
	RateLimitBurst int
}

// GeminiConfig holds Gemini configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NotificationConfig controls confirmation delivery: log, direct or queue
type NotificationConfig struct {
	Mode            string
	RetryAttempts   int
	DisplayLocation string
	SenderName      string
}

// SMTPConfig holds outbound mail configuration
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// QueueConfig holds asynq configuration
type QueueConfig struct {
	RedisDB     int
	Concurrency int
	MaxRetry    int
}

// SchedulingConfig holds slot generation and recommendation settings
type SchedulingConfig struct {
	Windows             []DailyWindow
	Step                time.Duration
	HorizonDays         int
	Location            string
	AvailabilitySource  string
	CompensationTimeout time.Duration
	SeedOnStartup       bool
}

// DailyWindow is an [StartHour, EndHour) range of bookable hours
type DailyWindow struct {
	StartHour int
	EndHour   int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from .env, Vault (when VAULT_ENABLED), an optional
// config.yaml and environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	if _, err := secrets.Apply(context.Background(), secrets.VaultConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	windows, err := ParseWindows(v.GetString("SCHEDULING_WINDOWS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			RateLimitRPM:   v.GetInt("RATE_LIMIT_RPM"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
			AdminToken:     v.GetString("ADMIN_TOKEN"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Typesense: TypesenseConfig{
			URL:    v.GetString("TYPESENSE_URL"),
			APIKey: v.GetString("TYPESENSE_API_KEY"),
		},
		Calendar: CalendarConfig{
			Driver:          strings.ToLower(v.GetString("CALENDAR_DRIVER")),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			AllowMockReads:  v.GetBool("CALENDAR_ALLOW_MOCK_READS"),
		},
		Recommender: RecommenderConfig{
			Driver: strings.ToLower(v.GetString("RECOMMENDER_DRIVER")),
		},
		OpenAI: OpenAIConfig{
			APIKey:         v.GetString("OPENAI_API_KEY"),
			Model:          v.GetString("OPENAI_MODEL"),
			RateLimitRPM:   v.GetInt("OPENAI_RATE_LIMIT_RPM"),
			RateLimitBurst: v.GetInt("OPENAI_RATE_LIMIT_BURST"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
		Notification: NotificationConfig{
			Mode:            strings.ToLower(v.GetString("NOTIFICATION_MODE")),
			RetryAttempts:   v.GetInt("NOTIFICATION_RETRY_ATTEMPTS"),
			DisplayLocation: v.GetString("NOTIFICATION_DISPLAY_LOCATION"),
			SenderName:      v.GetString("NOTIFICATION_SENDER_NAME"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Queue: QueueConfig{
			RedisDB:     v.GetInt("QUEUE_REDIS_DB"),
			Concurrency: v.GetInt("QUEUE_CONCURRENCY"),
			MaxRetry:    v.GetInt("QUEUE_MAX_RETRY"),
		},
		Scheduling: SchedulingConfig{
			Windows:             windows,
			Step:                v.GetDuration("SCHEDULING_STEP"),
			HorizonDays:         v.GetInt("SCHEDULING_HORIZON_DAYS"),
			Location:            v.GetString("SCHEDULING_LOCATION"),
			AvailabilitySource:  strings.ToLower(v.GetString("AVAILABILITY_SOURCE")),
			CompensationTimeout: v.GetDuration("BOOKING_COMPENSATION_TIMEOUT"),
			SeedOnStartup:       v.GetBool("SEED_ON_STARTUP"),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "scheduler_db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "smart_scheduler")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPM", 60)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TYPESENSE_URL", "")
	v.SetDefault("TYPESENSE_API_KEY", "xyz")
	v.SetDefault("CALENDAR_DRIVER", "mock")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("CALENDAR_ALLOW_MOCK_READS", false)
	v.SetDefault("RECOMMENDER_DRIVER", "mock")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_RATE_LIMIT_RPM", 60)
	v.SetDefault("OPENAI_RATE_LIMIT_BURST", 5)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	v.SetDefault("NOTIFICATION_MODE", "log")
	v.SetDefault("NOTIFICATION_RETRY_ATTEMPTS", 3)
	v.SetDefault("NOTIFICATION_DISPLAY_LOCATION", "Australia/Melbourne")
	v.SetDefault("NOTIFICATION_SENDER_NAME", "Smart Scheduler Admin")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("QUEUE_REDIS_DB", 3)
	v.SetDefault("QUEUE_CONCURRENCY", 10)
	v.SetDefault("QUEUE_MAX_RETRY", 5)
	v.SetDefault("SCHEDULING_WINDOWS", "9-12,14-17")
	v.SetDefault("SCHEDULING_STEP", "30m")
	v.SetDefault("SCHEDULING_HORIZON_DAYS", 30)
	v.SetDefault("SCHEDULING_LOCATION", "Australia/Melbourne")
	v.SetDefault("AVAILABILITY_SOURCE", "store")
	v.SetDefault("BOOKING_COMPENSATION_TIMEOUT", "10s")
	v.SetDefault("SEED_ON_STARTUP", false)
	v.SetDefault("OTEL_SERVICE_NAME", "smart-scheduler")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_ENABLED", false)
}

// ParseWindows parses "9-12,14-17" into daily windows
func ParseWindows(raw string) ([]DailyWindow, error) {
	var windows []DailyWindow
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid scheduling window %q: expected START-END", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid scheduling window %q: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid scheduling window %q: %w", part, err)
		}
		if start < 0 || end > 24 || start >= end {
			return nil, fmt.Errorf("invalid scheduling window %q: hours must satisfy 0 <= start < end <= 24", part)
		}
		windows = append(windows, DailyWindow{StartHour: start, EndHour: end})
	}
	return windows, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadLocation resolves an IANA location name, falling back to UTC when empty
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", name, err)
	}
	return loc, nil
}
