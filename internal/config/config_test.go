package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, home, body string) string {
	t.Helper()

	dir := filepath.Join(home, configDir)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, configFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.StepDelay)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown)
	assert.Empty(t, cfg.Owners)
	assert.Equal(t, filepath.Join(home, ".engage", "accounts.toml"), cfg.AccountsPath)
	assert.Equal(t, filepath.Join(home, ".engage", "engage.db"), cfg.StorePath)
	assert.Equal(t, filepath.Join(home, ".engage", "secrets"), cfg.SecretsPath)
	assert.Equal(t, SecretsBackendFile, cfg.SecretsBackend)
	assert.True(t, cfg.DryRun())
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "127.0.0.1:8089", cfg.ServeAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)

	for _, kind := range domain.ActionKinds {
		assert.Equal(t, application.Limit{Max: 10}, cfg.Limits[kind], kind)
	}
	assert.Equal(t, cfg.AccountsPath, cfg.Viper().GetString("accounts.path"))
}

func TestLoadReadsTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, `
owners = ["alice", "bob"]

[request]
step_delay = "2s"
cooldown = "1h"

[accounts]
path = "~/roster.toml"

[transport]
base_url = "http://127.0.0.1:9000"
timeout = "5s"

[limits.comment]
max = 0
owner_max = 3

[log]
level = "debug"
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.StepDelay)
	assert.Equal(t, time.Hour, cfg.Cooldown)
	assert.Equal(t, []domain.UserID{"alice", "bob"}, cfg.Owners)
	assert.Equal(t, filepath.Join(home, "roster.toml"), cfg.AccountsPath)
	assert.False(t, cfg.DryRun())
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, application.Limit{Max: 0, OwnerMax: 3}, cfg.Limits[domain.ActionComment])
	assert.Equal(t, application.Limit{Max: 10}, cfg.Limits[domain.ActionUpvote])

	orch := cfg.Orchestrator()
	assert.Equal(t, 2*time.Second, orch.StepDelay)
	assert.Equal(t, cfg.Limits, orch.Limits)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, `
[request]
cooldown = "1h"
`)
	t.Setenv("EA_REQUEST_COOLDOWN", "30s")
	t.Setenv("EA_OWNERS", "carol, dave")
	t.Setenv("EA_LIMITS_UPVOTE_MAX", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, []domain.UserID{"carol", "dave"}, cfg.Owners)
	assert.Equal(t, 4, cfg.Limits[domain.ActionUpvote].Max)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := Load(filepath.Join(home, "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: "[request\n", want: "read config"},
		{name: "negative delay", body: "[request]\nstep_delay = \"-1s\"\n", want: "request.step_delay must not be negative"},
		{name: "backend", body: "[secrets]\nbackend = \"vault\"\n", want: "secrets.backend must be one of"},
		{name: "log level", body: "[log]\nlevel = \"loud\"\n", want: "log.level must be one of"},
		{name: "negative limit", body: "[limits.downvote]\nmax = -1\n", want: "limits.downvote must not be negative"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			writeConfig(t, home, tc.body)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}
