package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGarageConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := NewGarageConfigHolder(Config{})
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 5, cfg.CheckoutBurst)
	assert.Equal(t, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
}

func TestGarageConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garage.yml")
	body := []byte("garage:\n  currency: gbp\n  checkoutSuccessURL: https://shop.example/invoices\n  checkoutRate: 1\n  checkoutBurst: 2\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	holder, err := NewGarageConfigHolder(Config{GarageConfigPath: path})
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "GBP", cfg.Currency)
	assert.Equal(t, "https://shop.example/invoices", cfg.CheckoutSuccessURL)
	assert.Equal(t, "https://shop.example/invoices", cfg.CheckoutCancelURL)
	assert.Equal(t, 2, cfg.CheckoutBurst)
}

func TestGarageConfigRejectsInvalidCurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garage.yml")
	require.NoError(t, os.WriteFile(path, []byte("garage:\n  currency: dollars\n"), 0o600))

	_, err := NewGarageConfigHolder(Config{GarageConfigPath: path})
	assert.Error(t, err)
}

func TestNilGarageHolderFallsBackToDefaults(t *testing.T) {
	var holder *GarageConfigHolder
	assert.Equal(t, DefaultGarageConfig(), holder.Get())
}
