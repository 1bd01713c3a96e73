package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	for _, key := range []string{"ENV", "LOG_LEVEL", "PORT", "DATABASE_URL", "NATS_URL", "REDIS_URL",
		"CORS_ALLOWED_ORIGINS", "GUEST_EMAIL_DOMAIN", "CHECKOUT_TX_TIMEOUT", "CHECKOUT_LOCK_TIMEOUT",
		"REQUEST_TIMEOUT", "INVOICE_AUTO_MATERIALIZE", "WORKER_CONCURRENCY", "STORE_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := configFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, devDatabaseURL, cfg.DatabaseUrl)
	assert.Equal(t, 5*time.Second, cfg.Checkout.TxTimeout)
	assert.Equal(t, 2*time.Second, cfg.Checkout.LockTimeout)
	assert.Equal(t, 30*time.Second, cfg.Checkout.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StoreTTL)
	assert.Equal(t, 5, cfg.Invoice.WorkerConcurrency)
	assert.False(t, cfg.Invoice.AutoMaterialize)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://db/prod")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CHECKOUT_TX_TIMEOUT", "3s")
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "500ms")
	t.Setenv("INVOICE_AUTO_MATERIALIZE", "true")
	t.Setenv("WORKER_CONCURRENCY", "12")

	cfg, err := configFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, "postgres://db/prod", cfg.DatabaseUrl)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Checkout.TxTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Checkout.LockTimeout)
	assert.True(t, cfg.Invoice.AutoMaterialize)
	assert.Equal(t, 12, cfg.Invoice.WorkerConcurrency)
}

func TestConfig_Fallbacks(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("DATABASE_URL", "postgres://db/x")

	cfg, err := configFrom(newViper())
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "prod without database", env: map[string]string{"ENV": "prod", "DATABASE_URL": ""}},
		{name: "prod with blank database", env: map[string]string{"ENV": "prod", "DATABASE_URL": "   "}},
		{name: "unknown env without database", env: map[string]string{"ENV": "staging", "DATABASE_URL": ""}},
		{name: "lock timeout exceeds tx timeout", env: map[string]string{"CHECKOUT_TX_TIMEOUT": "1s", "CHECKOUT_LOCK_TIMEOUT": "2s"}},
		{name: "zero tx timeout", env: map[string]string{"CHECKOUT_TX_TIMEOUT": "0s"}},
		{name: "auto invoicing without nats", env: map[string]string{"INVOICE_AUTO_MATERIALIZE": "true", "NATS_URL": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "dev")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := configFrom(newViper())
			assert.Error(t, err)
		})
	}
}
