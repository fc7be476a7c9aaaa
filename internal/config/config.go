package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environments recognized by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Store drivers recognized by STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

const devJWTSecret = "bashrometer-dev-secret-do-not-use-in-production"

// Config is loaded once at process start and passed down; it is never
// mutated after Load returns.
type Config struct {
	Env  string
	Port string

	// --- Database ---
	StoreDriver       string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	RunMigrations     bool

	// --- Auth ---
	JWTSecret           string
	TokenTTL            time.Duration
	AllowRoleSelfAssign bool

	// --- Moderation ---
	StrictStatusTransitions bool

	// --- HTTP ---
	AllowedOrigins []string

	// --- Logging ---
	LogLevel string
	LogFile  string

	// --- Bootstrap admin ---
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

// Debug reports whether error details may be returned to clients.
func (c Config) Debug() bool {
	return c.Env == EnvDevelopment
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests can supply values
// without touching the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Env:                     p.str("APP_ENV", EnvDevelopment),
		Port:                    p.str("PORT", "8080"),
		StoreDriver:             strings.ToLower(p.str("STORE_DRIVER", StoreMySQL)),
		DBDSN:                   p.str("DB_DSN", ""),
		DBMaxOpenConns:          p.integer("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:          p.integer("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime:       p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		RunMigrations:           p.boolean("RUN_MIGRATIONS", true),
		JWTSecret:               p.str("JWT_SECRET", ""),
		TokenTTL:                p.duration("TOKEN_TTL", 2*time.Hour),
		AllowRoleSelfAssign:     p.boolean("ALLOW_ROLE_SELF_ASSIGN", false),
		StrictStatusTransitions: p.boolean("STRICT_STATUS_TRANSITIONS", false),
		AllowedOrigins:          p.list("ALLOWED_ORIGINS"),
		LogLevel:                strings.ToLower(p.str("LOG_LEVEL", "info")),
		LogFile:                 p.str("LOG_FILE", ""),
		BootstrapAdminEmail:     strings.ToLower(p.str("BOOTSTRAP_ADMIN_EMAIL", "")),
		BootstrapAdminPassword:  p.str("BOOTSTRAP_ADMIN_PASSWORD", ""),
		BootstrapAdminName:      p.str("BOOTSTRAP_ADMIN_NAME", "Administrator"),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return Config{}, fmt.Errorf("config: unknown APP_ENV %q", cfg.Env)
	}

	switch cfg.StoreDriver {
	case StoreMySQL:
		if cfg.DBDSN == "" {
			return Config{}, fmt.Errorf("config: DB_DSN is required when STORE_DRIVER=%s", StoreMySQL)
		}
		cfg.DBDSN = withParseTime(cfg.DBDSN)
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == EnvProduction {
			return Config{}, fmt.Errorf("config: JWT_SECRET is required in production")
		}
		log.Println("WARNING: JWT_SECRET not set, using the development fallback secret.")
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	if cfg.BootstrapAdminEmail != "" && len(cfg.BootstrapAdminPassword) < 6 {
		return Config{}, fmt.Errorf("config: BOOTSTRAP_ADMIN_PASSWORD must be at least 6 characters")
	}

	return cfg, nil
}

// withParseTime makes DATE/DATETIME columns scan into time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// parser records the first malformed value it meets.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) list(key string) []string {
	var out []string
	for _, item := range strings.Split(p.getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s %q: %w", key, value, err)
	}
}
