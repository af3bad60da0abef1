package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Env string

	API       APIConfig
	Log       LogConfig
	Redis     RedisConfig
	WeekCache WeekCacheConfig
	Watch     WatchConfig
	Export    ExportConfig
	Stub      StubConfig
	Database  DatabaseConfig
	CORS      CORSConfig
}

// APIConfig points the client at the scheduling service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// WeekCacheConfig governs how long fetched weeks are reused by the CLI.
type WeekCacheConfig struct {
	Enabled    bool
	StaleAfter time.Duration
}

// WatchConfig drives the periodic week refresh.
type WatchConfig struct {
	Schedule string
}

// ExportConfig controls where rendered schedules are written and how long
// they are kept.
type ExportConfig struct {
	Dir       string
	Retention time.Duration
}

// StubConfig configures the local stand-in for the scheduling service.
type StubConfig struct {
	Port          int
	Store         string
	AdminEmail    string
	AdminPassword string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.API = APIConfig{
		BaseURL: strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("API_TIMEOUT"), 30*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.WeekCache = WeekCacheConfig{
		Enabled:    v.GetBool("WEEK_CACHE_ENABLED"),
		StaleAfter: parseDuration(v.GetString("WEEK_CACHE_STALE_AFTER"), 30*time.Second),
	}

	cfg.Watch = WatchConfig{
		Schedule: v.GetString("WATCH_SCHEDULE"),
	}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 0),
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString("STUB_STORE")))
	if store != StorePostgres {
		store = StoreMemory
	}
	cfg.Stub = StubConfig{
		Port:          v.GetInt("STUB_PORT"),
		Store:         store,
		AdminEmail:    v.GetString("STUB_ADMIN_EMAIL"),
		AdminPassword: v.GetString("STUB_ADMIN_PASSWORD"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("API_BASE_URL", "https://guardguys.herokuapp.com")
	v.SetDefault("API_TIMEOUT", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("WEEK_CACHE_ENABLED", false)
	v.SetDefault("WEEK_CACHE_STALE_AFTER", "30s")

	v.SetDefault("WATCH_SCHEDULE", "@every 30s")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_RETENTION", "720h")

	v.SetDefault("STUB_PORT", 8080)
	v.SetDefault("STUB_STORE", StoreMemory)
	v.SetDefault("STUB_ADMIN_EMAIL", "admin@guardguys.local")
	v.SetDefault("STUB_ADMIN_PASSWORD", "changeme")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "guardguys")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ALLOWED_ORIGINS", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
