package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "caseledger.db", cfg.DB.Path)
	assert.Equal(t, "America/Phoenix", cfg.Store.Zone)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Logger.DisableStacktrace)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("STORE_ZONE", "America/Denver")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_ENCODING", "console")
	t.Setenv("LOG_DISABLE_CALLER", "true")

	cfg := LoadEnv()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, "America/Denver", cfg.Store.Zone)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "console", cfg.Logger.Encoding)
	assert.True(t, cfg.Logger.DisableCaller)
	assert.Equal(t, ":9000", cfg.Addr())
}

func TestLoadEnv_UnparsableFallsBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("LOG_DISABLE_STACKTRACE", "maybe")

	cfg := LoadEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Logger.DisableStacktrace)
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	// GIVEN: environment says one thing
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "env.db")
	cfg := LoadEnv()

	// WHEN: flags say another
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-port", "3000", "-db", ":memory:"}))

	// THEN: flags win, untouched values keep the env
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, "America/Phoenix", cfg.Store.Zone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db path", func(c *Config) { c.DB.Path = " " }},
		{"unknown zone", func(c *Config) { c.Store.Zone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
