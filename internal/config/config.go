// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const minTokenSecretLength = 32

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Notify    NotifyConfig    `koanf:"notify"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	PublicURL   string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
	KeyPrefix    string `koanf:"key_prefix"`
}

type AuthConfig struct {
	TokenSecret      string        `koanf:"token_secret"`
	TokenExpire      time.Duration `koanf:"token_expire"`
	Issuer           string        `koanf:"issuer"`
	CookieName       string        `koanf:"cookie_name"`
	AdminCookieName  string        `koanf:"admin_cookie_name"`
	CookieDomain     string        `koanf:"cookie_domain"`
	AdminEmail       string        `koanf:"admin_email"`
	AdminEmailDomain string        `koanf:"admin_email_domain"`
	PhoneRegion      string        `koanf:"phone_region"`
	CSRFTokenTTL     time.Duration `koanf:"csrf_token_ttl"`
}

type RateLimitConfig struct {
	Requests   int           `koanf:"requests"`
	Window     time.Duration `koanf:"window"`
	Burst      int           `koanf:"burst"`
	Store      string        `koanf:"store"`
	MaxEntries int           `koanf:"max_entries"`
	Login      WindowLimit   `koanf:"login"`
	Register   WindowLimit   `koanf:"register"`
	OTP        WindowLimit   `koanf:"otp"`
	Attempt    WindowLimit   `koanf:"attempt"`
	CodeSend   WindowLimit   `koanf:"code_send"`
	CodeVerify WindowLimit   `koanf:"code_verify"`
}

type WindowLimit struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

type NotifyConfig struct {
	Driver string     `koanf:"driver"`
	SMTP   SMTPConfig `koanf:"smtp"`
	SMS    SMSConfig  `koanf:"sms"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type SMSConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Sender  string        `koanf:"sender"`
	Timeout time.Duration `koanf:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		err := k.Load(file.Provider(configPath), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "househelp-api",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.public_url":  "http://localhost:3000",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.max_body_bytes":   1 << 20,

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.key_prefix":     "househelp:",

		"auth.token_expire":      "168h",
		"auth.issuer":            "househelp-api",
		"auth.cookie_name":       "househelp-token",
		"auth.admin_cookie_name": "househelp-admin-token",
		"auth.phone_region":      "RW",
		"auth.csrf_token_ttl":    "2h",

		"rate_limit.requests":        100,
		"rate_limit.window":          "1m",
		"rate_limit.burst":           20,
		"rate_limit.store":           "memory",
		"rate_limit.max_entries":     10000,
		"rate_limit.login.max":       5,
		"rate_limit.login.window":    "15m",
		"rate_limit.register.max":    5,
		"rate_limit.register.window": "1h",
		"rate_limit.otp.max":         3,
		"rate_limit.otp.window":      "10m",
		"rate_limit.attempt.max":     5,
		"rate_limit.attempt.window":  "15m",

		"rate_limit.code_send.max":      10,
		"rate_limit.code_send.window":   "10m",
		"rate_limit.code_verify.max":    30,
		"rate_limit.code_verify.window": "15m",

		"notify.driver":      "log",
		"notify.smtp.port":   587,
		"notify.sms.timeout": "10s",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "househelp-api",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"AUTH_TOKEN_SECRET":           "auth.token_secret",
	"JWT_SECRET":                  "auth.token_secret",
	"AUTH_TOKEN_EXPIRE":           "auth.token_expire",
	"AUTH_ISSUER":                 "auth.issuer",
	"AUTH_COOKIE_NAME":            "auth.cookie_name",
	"AUTH_ADMIN_COOKIE_NAME":      "auth.admin_cookie_name",
	"AUTH_COOKIE_DOMAIN":          "auth.cookie_domain",
	"ADMIN_EMAIL":                 "auth.admin_email",
	"ADMIN_EMAIL_DOMAIN":          "auth.admin_email_domain",
	"PHONE_REGION":                "auth.phone_region",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_STORE":            "rate_limit.store",
	"NOTIFY_DRIVER":               "notify.driver",
	"SMTP_HOST":                   "notify.smtp.host",
	"SMTP_PORT":                   "notify.smtp.port",
	"SMTP_USERNAME":               "notify.smtp.username",
	"SMTP_PASSWORD":               "notify.smtp.password",
	"SMTP_FROM":                   "notify.smtp.from",
	"SMS_URL":                     "notify.sms.url",
	"SMS_API_KEY":                 "notify.sms.api_key",
	"SMS_SENDER":                  "notify.sms.sender",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("AUTH_TOKEN_SECRET is required")
	}

	if len(c.Auth.TokenSecret) < minTokenSecretLength {
		return fmt.Errorf(
			"AUTH_TOKEN_SECRET must be at least %d bytes",
			minTokenSecretLength,
		)
	}

	if c.Auth.TokenExpire <= 0 {
		return fmt.Errorf("auth.token_expire must be positive")
	}

	if c.Auth.AdminEmail == "" && c.Auth.AdminEmailDomain == "" {
		return fmt.Errorf("ADMIN_EMAIL or ADMIN_EMAIL_DOMAIN is required")
	}

	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("rate_limit.store must be memory or redis")
	}

	if c.RateLimit.CodeVerify.Max <= c.RateLimit.Attempt.Max {
		return fmt.Errorf("rate_limit.code_verify.max must exceed rate_limit.attempt.max")
	}

	switch c.Notify.Driver {
	case "log":
	case "smtp":
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.From == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required for smtp driver")
		}
	default:
		return fmt.Errorf("notify.driver must be log or smtp")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Notify.Driver == "log" {
			return fmt.Errorf("notify.driver log is not allowed in production")
		}
		if c.Notify.SMS.URL == "" {
			return fmt.Errorf("SMS_URL is required in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AdminAllowed reports whether email is on the admin allow-list: an exact
// match on the configured address or a match on the organizational domain.
func (a *AuthConfig) AdminAllowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}

	if a.AdminEmail != "" &&
		email == strings.ToLower(strings.TrimSpace(a.AdminEmail)) {
		return true
	}

	domain := strings.ToLower(strings.TrimPrefix(
		strings.TrimSpace(a.AdminEmailDomain),
		"@",
	))
	if domain == "" {
		return false
	}

	return strings.HasSuffix(email, "@"+domain)
}
