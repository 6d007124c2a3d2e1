// Package config loads storefront settings from the environment and an
// optional config file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/store"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	OrdersMemory   = "memory"
	OrdersPostgres = "postgres"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	InstanceID string `mapstructure:"INSTANCE_ID"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	GRPCPort        string        `mapstructure:"GRPC_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CookieSecure    bool          `mapstructure:"SESSION_COOKIE_SECURE"`

	StoreBackend     string        `mapstructure:"STORE_BACKEND"`
	CartWriteTimeout time.Duration `mapstructure:"CART_WRITE_TIMEOUT"`
	CartTTL          time.Duration `mapstructure:"CART_TTL"`
	CartIdleTimeout  time.Duration `mapstructure:"CART_IDLE_TIMEOUT"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	MongoURI         string        `mapstructure:"MONGO_URI"`
	MongoDB          string        `mapstructure:"MONGO_DB"`
	SQLitePath       string        `mapstructure:"SQLITE_PATH"`

	CatalogDBPath string `mapstructure:"CATALOG_DB_PATH"`

	OrdersBackend string `mapstructure:"ORDERS_BACKEND"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        int    `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`

	AuthURL     string        `mapstructure:"AUTH_URL"`
	AuthAPIKey  string        `mapstructure:"AUTH_API_KEY"`
	AuthTimeout time.Duration `mapstructure:"AUTH_TIMEOUT"`
	AdminEmails string        `mapstructure:"ADMIN_EMAILS"`

	PaymentSuccessPercent int           `mapstructure:"PAYMENT_SUCCESS_PERCENT"`
	PaymentDelay          time.Duration `mapstructure:"PAYMENT_DELAY"`

	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                 "development",
	"INSTANCE_ID":             "",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"HTTP_PORT":               "8080",
	"GRPC_PORT":               "50051",
	"REQUEST_TIMEOUT":         "30s",
	"SHUTDOWN_TIMEOUT":        "10s",
	"SESSION_COOKIE_SECURE":   false,
	"STORE_BACKEND":           store.BackendMemory,
	"CART_WRITE_TIMEOUT":      "2s",
	"CART_TTL":                "0s",
	"CART_IDLE_TIMEOUT":       "30m",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"MONGO_URI":               "mongodb://localhost:27017",
	"MONGO_DB":                "storefront",
	"SQLITE_PATH":             "cart.db",
	"CATALOG_DB_PATH":         "catalog.db",
	"ORDERS_BACKEND":          OrdersMemory,
	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_USER":                 "postgres",
	"DB_PASSWORD":             "postgres",
	"DB_NAME":                 "storefront",
	"DB_SSLMODE":              "disable",
	"KAFKA_BROKERS":           "",
	"AUTH_URL":                "",
	"AUTH_API_KEY":            "",
	"AUTH_TIMEOUT":            "10s",
	"ADMIN_EMAILS":            "",
	"PAYMENT_SUCCESS_PERCENT": 100,
	"PAYMENT_DELAY":           "2s",
	"OTEL_EXPORTER_ENDPOINT":  "",
}

// Load reads defaults, then the file named by CONFIG_FILE if set, then the
// environment. Later sources win.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

// Watch calls onChange with the reloaded config whenever the file named by
// CONFIG_FILE changes. It is a no-op without a config file.
func Watch(onChange func(*Config), onError func(error)) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		onError(fmt.Errorf("read config file: %w", err))
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "storefront"
		}
		cfg.InstanceID = host
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case store.BackendMemory, store.BackendRedis, store.BackendMongo, store.BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.OrdersBackend {
	case OrdersMemory, OrdersPostgres:
	default:
		return fmt.Errorf("unknown ORDERS_BACKEND %q", c.OrdersBackend)
	}
	if c.PaymentSuccessPercent < 0 || c.PaymentSuccessPercent > 100 {
		return fmt.Errorf("PAYMENT_SUCCESS_PERCENT must be between 0 and 100, got %d", c.PaymentSuccessPercent)
	}
	if c.CartWriteTimeout <= 0 {
		return fmt.Errorf("CART_WRITE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.StoreBackend,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisTTL:      c.CartTTL,
		MongoURI:      c.MongoURI,
		MongoDB:       c.MongoDB,
		SQLitePath:    c.SQLitePath,
	}
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// Admins returns the lower-cased admin email allow-list.
func (c *Config) Admins() []string {
	emails := splitList(c.AdminEmails)
	for i, e := range emails {
		emails[i] = strings.ToLower(e)
	}
	return emails
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
