package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, OrdersMemory, cfg.OrdersBackend)
	assert.Equal(t, 2*time.Second, cfg.CartWriteTimeout)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTimeout)
	assert.Equal(t, 100, cfg.PaymentSuccessPercent)
	assert.NotEmpty(t, cfg.InstanceID)
	assert.Empty(t, cfg.Brokers())
	assert.Empty(t, cfg.Admins())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("CART_TTL", "720h")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ADMIN_EMAILS", "Admin@Reez.ng ,ops@reez.ng")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("INSTANCE_ID", "replica-7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Equal(t, []string{"admin@reez.ng", "ops@reez.ng"}, cfg.Admins())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "replica-7", cfg.InstanceID)

	opts := cfg.StoreOptions()
	assert.Equal(t, "redis", opts.Backend)
	assert.Equal(t, 720*time.Hour, opts.RedisTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: \"7070\"\nORDERS_BACKEND: postgres\nDB_PORT: 6543\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_PORT", "7654")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, OrdersPostgres, cfg.OrdersBackend)
	assert.Equal(t, 7654, cfg.DBPort)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_BACKEND": "etcd"}},
		{"unknown orders backend", map[string]string{"ORDERS_BACKEND": "mysql"}},
		{"success percent", map[string]string{"PAYMENT_SUCCESS_PERCENT": "101"}},
		{"write timeout", map[string]string{"CART_WRITE_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
