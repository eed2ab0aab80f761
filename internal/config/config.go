package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Game       GameConfig
	LocalStore LocalStoreConfig
	Cloud      CloudConfig
	Accounts   AccountsConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"tycoon-engine"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin stats login key
}

// GameConfig holds the simulation and autosave settings.
type GameConfig struct {
	TickInterval      time.Duration `envconfig:"GAME_TICK_INTERVAL" default:"1s"`
	HoursPerTick      float64       `envconfig:"GAME_HOURS_PER_TICK" default:"0.016666666666666666"`
	IntroBonus        float64       `envconfig:"GAME_INTRO_BONUS" default:"10000"`
	LocalSaveInterval time.Duration `envconfig:"GAME_LOCAL_SAVE_INTERVAL" default:"10s"`
	CloudSaveInterval time.Duration `envconfig:"GAME_CLOUD_SAVE_INTERVAL" default:"60s"`
	SaveDebounce      time.Duration `envconfig:"GAME_SAVE_DEBOUNCE" default:"2s"`
	SaveTimeout       time.Duration `envconfig:"GAME_SAVE_TIMEOUT" default:"30s"`
	CloudLoadTimeout  time.Duration `envconfig:"GAME_CLOUD_LOAD_TIMEOUT" default:"10s"`
	SaveKey           string        `envconfig:"GAME_SAVE_KEY" default:"tycoon_save_v3"`
	CatalogPath       string        `envconfig:"GAME_CATALOG_PATH" default:""`
	Seed              int64         `envconfig:"GAME_SEED" default:"0"` // 0 seeds from the clock
}

// LocalStoreConfig holds the local save database settings.
type LocalStoreConfig struct {
	Type  string `envconfig:"LOCAL_STORE_TYPE" default:"sqlite"` // sqlite or memory
	Path  string `envconfig:"LOCAL_STORE_PATH" default:"./data/saves.db"`
	Codec string `envconfig:"LOCAL_STORE_CODEC" default:"zstd"` // zstd, lz4 or none
}

// CloudConfig holds the remote document store settings.
type CloudConfig struct {
	Type string `envconfig:"CLOUD_TYPE" default:"memory"` // memory, mongodb or postgres
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"tycoon"`
	// PostgreSQL settings (player documents only)
	Host     string `envconfig:"CLOUD_PG_HOST" default:"localhost"`
	Port     int    `envconfig:"CLOUD_PG_PORT" default:"5432"`
	Name     string `envconfig:"CLOUD_PG_NAME" default:"tycoon"`
	User     string `envconfig:"CLOUD_PG_USER" default:"postgres"`
	Password string `envconfig:"CLOUD_PG_PASS" default:""`
	SSLMode  string `envconfig:"CLOUD_PG_SSLMODE" default:"disable"`
}

// AccountsConfig holds identity account storage settings.
type AccountsConfig struct {
	Type     string `envconfig:"ACCOUNTS_TYPE" default:"memory"` // memory or mysql
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"tycoon"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// CacheConfig holds cache and realtime hub settings.
type CacheConfig struct {
	Type     string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"tycoon"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *CloudConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (a *AccountsConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		a.User, a.Password, a.Host, a.Port, a.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
