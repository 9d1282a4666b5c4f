package config_test

import (
	"testing"
	"time"

	"github.com/nikolayk812/cart-service/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 2*time.Second, cfg.OracleTimeout)
	assert.Equal(t, currency.EUR, cfg.Shipping.Currency)
	assert.True(t, decimal.NewFromInt(150).Equal(cfg.Shipping.FreeThreshold))
	assert.True(t, decimal.NewFromInt(15).Equal(cfg.Shipping.FlatFee))
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("ORACLE_TIMEOUT", "750ms")
	t.Setenv("CART_CURRENCY", "usd")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "100.00")
	t.Setenv("SHIPPING_FEE", "0")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:5173, https://shop.example.com,")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 750*time.Millisecond, cfg.OracleTimeout)
	assert.Equal(t, currency.USD, cfg.Shipping.Currency)
	assert.True(t, decimal.NewFromInt(100).Equal(cfg.Shipping.FreeThreshold))
	assert.True(t, cfg.Shipping.FlatFee.IsZero())
	assert.Equal(t, []string{"http://localhost:5173", "https://shop.example.com"}, cfg.CORSAllowOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "currency", key: "CART_CURRENCY", value: "EURO"},
		{name: "threshold", key: "FREE_SHIPPING_THRESHOLD", value: "fifty"},
		{name: "negative fee", key: "SHIPPING_FEE", value: "-1"},
		{name: "timeout", key: "REQUEST_TIMEOUT", value: "soon"},
		{name: "zero timeout", key: "ORACLE_TIMEOUT", value: "0s"},
		{name: "bool", key: "RUN_MIGRATIONS", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
