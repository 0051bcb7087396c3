package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpbridge/internal/app"
	"mcpbridge/internal/domain"
)

func parseServeFlags(t *testing.T, args ...string) (*pflag.FlagSet, *serveOptions) {
	t.Helper()
	opts := defaultServeOptions()
	flags := pflag.NewFlagSet("mcpbridge", pflag.ContinueOnError)
	bindServeFlags(flags, &opts)
	require.NoError(t, flags.Parse(args))
	return flags, &opts
}

func TestFlagOverrides_OnlyExplicitFlags(t *testing.T) {
	flags, opts := parseServeFlags(t)
	assert.Equal(t, app.ConfigOverrides{}, flagOverrides(flags, opts))
}

func TestFlagOverrides_SetFlags(t *testing.T) {
	flags, opts := parseServeFlags(t,
		"--port", "9000",
		"--backend-url", "http://laravel.test/mcp",
		"--log-format", "console",
		"--mcp=false",
		"--healthz=true",
	)

	overrides := flagOverrides(flags, opts)
	assert.Equal(t, 9000, overrides.Port)
	assert.Equal(t, "http://laravel.test/mcp", overrides.BackendURL)
	assert.Equal(t, "console", overrides.LogFormat)
	assert.Empty(t, overrides.Host)
	assert.Empty(t, overrides.LogLevel)
	require.NotNil(t, overrides.MCPEnabled)
	assert.False(t, *overrides.MCPEnabled)
	require.NotNil(t, overrides.HealthzEnabled)
	assert.True(t, *overrides.HealthzEnabled)
	assert.Nil(t, overrides.MetricsEnabled)
}

func TestServeConfig(t *testing.T) {
	flags, opts := parseServeFlags(t, "--config", "gateway.yaml", "--env-file", "a.env", "--env-file", "b.env")

	cfg := serveConfig(flags, opts)
	assert.Equal(t, "gateway.yaml", cfg.ConfigPath)
	assert.Equal(t, []string{"a.env", "b.env"}, cfg.EnvFiles)
}

func TestValidateCommand(t *testing.T) {
	t.Setenv(domain.EnvBackendURL, "")
	os.Unsetenv(domain.EnvBackendURL)
	t.Setenv(domain.EnvServerPort, "")
	os.Unsetenv(domain.EnvServerPort)

	missing := filepath.Join(t.TempDir(), "none.env")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"validate", "--env-file", missing, "--port", "9001"})
	require.NoError(t, root.Execute())

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"validate", "--env-file", missing, "--backend-url", "ftp://nope"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), app.Version)
}
