package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects where peritagens are persisted
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendREST     Backend = "rest"
)

const developmentSecret = "default_super_secret_key"

// Config is the process configuration read from configs/.env and the environment
type Config struct {
	Port    string
	AppEnv  string
	GinMode string

	DataBackend Backend
	DB          DBConfig

	BackendURL     string
	BackendAnonKey string
	BackendEmail   string
	BackendSecret  string
	OfflineMode    bool
	LocalStorePath string

	JWTSecret   []byte
	CORSOrigins []string

	SeedPerStage         int
	AuthBootstrapTimeout time.Duration
	ProfileCacheTTL      time.Duration
	ProfileCacheSize     int
	EmailTriggerEnabled  bool

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

// DBConfig holds the postgres connection parameters
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN assembles the postgres connection URL
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Release reports whether gin runs in release mode
func (c *Config) Release() bool {
	return c.GinMode == "release"
}

// Development reports whether the development logger should be used
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// BackendHost is the host part of BackendURL, used to match intercepted requests
func (c *Config) BackendHost() string {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Load reads configs/.env when present and then the environment
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return FromEnv()
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:    getenvDefault("PORT", "8080"),
		AppEnv:  getenvDefault("APP_ENV", "production"),
		GinMode: os.Getenv("GIN_MODE"),

		DataBackend: Backend(strings.ToLower(getenvDefault("DATA_BACKEND", string(BackendPostgres)))),
		DB: DBConfig{
			Host:     getenvDefault("DB_HOST", "localhost"),
			Port:     getenvDefault("DB_PORT", "5432"),
			User:     getenvDefault("DB_USER", "postgres"),
			Password: getenvDefault("DB_PASSWORD", "postgres"),
			Name:     getenvDefault("DB_NAME", "postgres"),
			SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
		},

		BackendURL:     strings.TrimRight(getenvDefault("BACKEND_URL", "https://hidracil.supabase.co"), "/"),
		BackendAnonKey: os.Getenv("BACKEND_ANON_KEY"),
		BackendEmail:   os.Getenv("BACKEND_EMAIL"),
		BackendSecret:  os.Getenv("BACKEND_PASSWORD"),
		LocalStorePath: getenvDefault("LOCAL_STORE_PATH", "data/local.db"),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     getenvDefault("BOOTSTRAP_ADMIN_NAME", "Administrador"),
	}

	var err error
	if cfg.OfflineMode, err = getenvBool("OFFLINE_MODE", false); err != nil {
		return nil, err
	}
	if cfg.EmailTriggerEnabled, err = getenvBool("EMAIL_TRIGGER_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.SeedPerStage, err = getenvInt("SEED_PER_STAGE", 20); err != nil {
		return nil, err
	}
	if cfg.ProfileCacheSize, err = getenvInt("PROFILE_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.AuthBootstrapTimeout, err = getenvDuration("AUTH_BOOTSTRAP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProfileCacheTTL, err = getenvDuration("PROFILE_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	origins := getenvDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if cfg.Release() {
			return nil, errors.New("JWT_SECRET environment variable is required in release mode")
		}
		secret = developmentSecret
	}
	cfg.JWTSecret = []byte(secret)

	switch cfg.DataBackend {
	case BackendPostgres, BackendREST:
	default:
		return nil, fmt.Errorf("DATA_BACKEND must be %q or %q, got %q", BackendPostgres, BackendREST, cfg.DataBackend)
	}
	if cfg.SeedPerStage < 1 {
		return nil, fmt.Errorf("SEED_PER_STAGE must be positive, got %d", cfg.SeedPerStage)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
