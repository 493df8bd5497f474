package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Identity      IdentityConfig
	Records       RecordsConfig
	TMDB          TMDBConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REELKEEP_APP_ENV" required:"true"`
	Port         string `envconfig:"REELKEEP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REELKEEP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REELKEEP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"REELKEEP_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"REELKEEP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REELKEEP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REELKEEP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REELKEEP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REELKEEP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REELKEEP_REDIS_ADDR"`
	Password     string        `envconfig:"REELKEEP_REDIS_PASSWORD"`
	DB           int           `envconfig:"REELKEEP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REELKEEP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REELKEEP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REELKEEP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REELKEEP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REELKEEP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	CookieName string `envconfig:"REELKEEP_SESSION_COOKIE_NAME" default:"reelkeep_session"`
	// DefaultTTLMinutes caps the session when the identity backend's access
	// token carries no usable expiry.
	DefaultTTLMinutes int  `envconfig:"REELKEEP_SESSION_DEFAULT_TTL_MINUTES" default:"60"`
	CookieSecure      bool `envconfig:"REELKEEP_SESSION_COOKIE_SECURE" default:"true"`
}

func (s SessionConfig) DefaultTTL() time.Duration {
	if s.DefaultTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.DefaultTTLMinutes) * time.Minute
}

type IdentityConfig struct {
	BaseURL string `envconfig:"REELKEEP_IDENTITY_URL" required:"true"`
	// APIKey authenticates this service to the identity platform; it is not
	// a user credential and never leaves the server.
	APIKey string `envconfig:"REELKEEP_IDENTITY_API_KEY" required:"true"`
	// AdminKey is the elevated credential used only for account deletion.
	AdminKey string        `envconfig:"REELKEEP_IDENTITY_ADMIN_KEY" required:"true"`
	Timeout  time.Duration `envconfig:"REELKEEP_IDENTITY_TIMEOUT" default:"10s"`
}

type RecordsConfig struct {
	BaseURL string        `envconfig:"REELKEEP_RECORDS_URL" required:"true"`
	APIKey  string        `envconfig:"REELKEEP_RECORDS_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"REELKEEP_RECORDS_TIMEOUT" default:"10s"`
}

type TMDBConfig struct {
	BaseURL string        `envconfig:"REELKEEP_TMDB_URL" default:"https://api.themoviedb.org/3"`
	APIKey  string        `envconfig:"REELKEEP_TMDB_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"REELKEEP_TMDB_TIMEOUT" default:"10s"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"REELKEEP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"REELKEEP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"REELKEEP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"REELKEEP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"REELKEEP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"REELKEEP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"REELKEEP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
