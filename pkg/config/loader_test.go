package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths("nonexistent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "dispatch-core", cfg.App.Name)
	assert.Equal(t, 50000, cfg.Optimize.SolutionLimit)
}

func TestLoad_NamedEnvOverridesWin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/dispatch")
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")

	cfg, err := NewLoader(WithConfigPaths("nonexistent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/dispatch", cfg.Database.URL)
	assert.Equal(t, "test-key", cfg.Distance.GoogleMapsAPIKey)
}

func TestLoad_DispatchPrefixedEnv(t *testing.T) {
	t.Setenv("DISPATCH_APP_NAME", "custom-name")
	cfg, err := NewLoader(WithConfigPaths("nonexistent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "custom-name", cfg.App.Name)
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	// Construct an invalid state indirectly: point CONFIG_PATH at a file
	// with a bad log level and confirm MustLoad panics rather than
	// returning silently-wrong config.
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("log:\n  level: verbose\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("CONFIG_PATH", f.Name())

	assert.Panics(t, func() {
		MustLoad()
	})
}
