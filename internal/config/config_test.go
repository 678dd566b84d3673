package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":          "postgres://localhost/duka",
		"REDIS_URL":             "redis://localhost:6379/0",
		"JWT_SECRET":            "test-secret",
		"PRICING_TAX_RATE_BPS":  "",
		"CART_RECENT_ITEMS_MAX": "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 1600, cfg.TaxRateBPS)
	require.InDelta(t, 0.16, cfg.TaxRate(), 1e-12)
	require.Equal(t, 5, cfg.LowStockThreshold)
	require.Equal(t, 5, cfg.RecentItemsMax)
	require.Equal(t, "KES", cfg.CurrencyCode)
}

func TestLoadRequiresCoreSettings(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "s",
	})
	require.Error(t, err)
}

func TestTaxRateOverride(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/duka",
		"REDIS_URL":            "redis://localhost:6379/0",
		"JWT_SECRET":           "test-secret",
		"PRICING_TAX_RATE_BPS": "800",
	})
	require.NoError(t, err)
	require.InDelta(t, 0.08, cfg.TaxRate(), 1e-12)
}
