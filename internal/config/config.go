// Package config loads application configuration from UVCSWEB_ environment
// variables, optionally layered over a JSON file.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "UVCSWEB_"

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the validated application configuration.
type Config struct {
	APIURL     string
	APITimeout time.Duration
	ListenAddr string

	SessionBackend     string
	DBPath             string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration
	SecretKey          []byte // nil when session keys are stored unsealed
	CookieSecure       bool

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the JSON file named by UVCSWEB_CONFIG_FILE (when set), overlays
// UVCSWEB_* environment variables, applies defaults and validates the result.
// File keys are the variable names without the prefix, lower-cased
// (e.g. "api_url"). Errors name the offending variable.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("%sCONFIG_FILE %q: %w", envPrefix, path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("read %s environment: %w", envPrefix, err)
	}

	l := loader{k: k}
	cfg := &Config{
		APIURL:             l.str("api_url", "http://localhost:8080"),
		APITimeout:         l.duration("api_timeout", 0),
		ListenAddr:         l.str("listen_addr", "127.0.0.1:3000"),
		SessionBackend:     strings.ToLower(l.str("session_backend", BackendSQLite)),
		DBPath:             l.str("db_path", "uvcsweb.db"),
		RedisAddr:          l.str("redis_addr", "localhost:6379"),
		RedisPassword:      l.str("redis_password", ""),
		RedisDB:            l.integer("redis_db", 0),
		SessionTTL:         l.duration("session_ttl", 720*time.Hour),
		SessionIdleTimeout: l.duration("session_idle_timeout", 30*time.Minute),
		CookieSecure:       l.boolean("cookie_secure", false),
		LogFormat:          strings.ToLower(l.str("log_format", "text")),
	}
	cfg.SecretKey = l.secretKey("secret_key")
	cfg.LogLevel = l.level("log_level", slog.LevelInfo)

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%sAPI_URL must be an absolute http(s) URL, got %q", envPrefix, c.APIURL)
	}
	if c.SessionBackend != BackendSQLite && c.SessionBackend != BackendRedis {
		return fmt.Errorf("%sSESSION_BACKEND must be %q or %q, got %q", envPrefix, BackendSQLite, BackendRedis, c.SessionBackend)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("%sREDIS_DB must not be negative, got %d", envPrefix, c.RedisDB)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("%sSESSION_IDLE_TIMEOUT must be positive, got %s", envPrefix, c.SessionIdleTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%sLOG_FORMAT must be \"text\" or \"json\", got %q", envPrefix, c.LogFormat)
	}
	return nil
}

// loader reads typed values from koanf and keeps the first error.
type loader struct {
	k   *koanf.Koanf
	err error
}

func (l *loader) fail(key string, format string, args ...any) {
	if l.err == nil {
		l.err = fmt.Errorf("%s%s "+format, append([]any{envPrefix, strings.ToUpper(key)}, args...)...)
	}
}

func (l *loader) str(key, def string) string {
	if !l.k.Exists(key) {
		return def
	}
	return l.k.String(key)
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	if !l.k.Exists(key) {
		return def
	}
	v := l.k.String(key)
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, "has invalid duration %q: %v", v, err)
		return def
	}
	if d < 0 {
		l.fail(key, "must not be negative, got %s", d)
		return def
	}
	return d
}

func (l *loader) integer(key string, def int) int {
	if !l.k.Exists(key) {
		return def
	}
	v := l.k.String(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, "has invalid integer %q", v)
		return def
	}
	return n
}

func (l *loader) boolean(key string, def bool) bool {
	if !l.k.Exists(key) {
		return def
	}
	v := l.k.String(key)
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, "has invalid boolean %q", v)
		return def
	}
	return b
}

func (l *loader) level(key string, def slog.Level) slog.Level {
	if !l.k.Exists(key) {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.k.String(key))); err != nil {
		l.fail(key, "has invalid level %q", l.k.String(key))
		return def
	}
	return lvl
}

// secretKey decodes a 64-character hex key into 32 bytes. Absent or empty
// yields nil.
func (l *loader) secretKey(key string) []byte {
	v := l.k.String(key)
	if v == "" {
		return nil
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		l.fail(key, "must be hex-encoded: %v", err)
		return nil
	}
	if len(b) != 32 {
		l.fail(key, "must be 64 hex characters (32 bytes), got %d bytes", len(b))
		return nil
	}
	return b
}
