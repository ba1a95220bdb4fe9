package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	FrontendURL    string   `mapstructure:"FRONTEND_URL"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	DBHost        string `mapstructure:"POSTGRES_HOST"`
	DBPort        string `mapstructure:"POSTGRES_PORT"`
	DBUser        string `mapstructure:"POSTGRES_USER"`
	DBPassword    string `mapstructure:"POSTGRES_PASSWORD"`
	DBName        string `mapstructure:"POSTGRES_DB"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret    string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTExpiresIn        time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	JWTRefreshExpiresIn time.Duration `mapstructure:"JWT_REFRESH_EXPIRES_IN"`

	CacheTTL             time.Duration `mapstructure:"CACHE_TTL"`
	CacheCleanupInterval time.Duration `mapstructure:"CACHE_CLEANUP_INTERVAL"`

	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL"`

	FacebookAppID       string `mapstructure:"FACEBOOK_APP_ID"`
	FacebookAppSecret   string `mapstructure:"FACEBOOK_APP_SECRET"`
	FacebookCallbackURL string `mapstructure:"FACEBOOK_CALLBACK_URL"`

	proxies []netip.Prefix
}

var defaults = map[string]any{
	"PORT":                   ":8000",
	"ENVIRONMENT":            "development",
	"VERSION":                "1.0.0",
	"TRUSTED_ORIGINS":        "http://localhost:5173",
	"FRONTEND_URL":           "http://localhost:5173",
	"TLS_CERT_FILE":          "",
	"TLS_KEY_FILE":           "",
	"TRUSTED_PROXIES":        "",
	"POSTGRES_HOST":          "localhost",
	"POSTGRES_PORT":          "5432",
	"POSTGRES_USER":          "postgres",
	"POSTGRES_PASSWORD":      "",
	"POSTGRES_DB":            "blogsphere",
	"DB_AUTO_MIGRATE":        false,
	"RABBITMQ_HOST":          "",
	"RABBITMQ_PORT":          "5672",
	"RABBITMQ_USER":          "guest",
	"RABBITMQ_PASSWORD":      "guest",
	"MAIL_HOST":              "",
	"MAIL_PORT":              587,
	"MAIL_USER":              "",
	"MAIL_PASSWORD":          "",
	"MAIL_SENDER":            "Blogsphere <no-reply@blogsphere.dev>",
	"JWT_SECRET":             "",
	"JWT_REFRESH_SECRET":     "",
	"JWT_EXPIRES_IN":         "168h",
	"JWT_REFRESH_EXPIRES_IN": "720h",
	"CACHE_TTL":              "600s",
	"CACHE_CLEANUP_INTERVAL": "120s",
	"RATE_LIMIT_REQUESTS":    100,
	"RATE_LIMIT_WINDOW":      "15m",
	"GOOGLE_CLIENT_ID":       "",
	"GOOGLE_CLIENT_SECRET":   "",
	"GOOGLE_CALLBACK_URL":    "",
	"FACEBOOK_APP_ID":        "",
	"FACEBOOK_APP_SECRET":    "",
	"FACEBOOK_CALLBACK_URL":  "",
}

// loadConfig reads path as a dotenv file when it exists. Environment variables take precedence over the file and
// every key has a default.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.TrustedOrigins = splitList(config.TrustedOrigins)
	config.TrustedProxies = splitList(config.TrustedProxies)

	proxies, err := parseProxies(config.TrustedProxies)
	if err != nil {
		return nil, err
	}
	config.proxies = proxies

	if config.JWTSecret == "" || config.JWTRefreshSecret == "" {
		return nil, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}

	return &config, nil
}

// splitList flattens comma-separated entries, which is how a list arrives from a dotenv file or the environment.
func splitList(values []string) []string {
	list := []string{}
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.Trim(strings.TrimSpace(item), `"`)
			if item != "" {
				list = append(list, item)
			}
		}
	}

	return list
}

func (c *Config) production() bool {
	return c.Environment == "production"
}

// parseProxies accepts single addresses and CIDR ranges.
func parseProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", entry)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes, nil
}

// trustedProxy reports whether ip belongs to one of the configured proxies.
func (c *Config) trustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range c.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}
