package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.hunter.io/v2", cfg.Hunter.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, 1, cfg.Billing.SearchCost)
	assert.Equal(t, 2, cfg.Crawl.MaxDepth)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
	assert.Equal(t, 40, cfg.Extract.MinProbability)
	assert.Equal(t, "default", cfg.Search.Approach)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONTACT_STORE_DRIVER", "sqlite")
	t.Setenv("CONTACT_SERVER_PORT", "9090")
	t.Setenv("CONTACT_BILLING_SEARCH_COST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Billing.SearchCost)
}

func TestSearchConfig_ProviderTimeout(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.Search.ProviderTimeout().String())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense"})
	assert.Error(t, err)
}
