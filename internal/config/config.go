// Package config loads ea settings from ~/.engage/config.toml and EA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/spf13/viper"
)

const (
	configDir  = ".engage"
	configFile = "config.toml"
	envPrefix  = "EA"

	SecretsBackendFile  = "file"
	SecretsBackendPass  = "pass"
	SecretsBackendChain = "chain"
)

const (
	keyStepDelay      = "request.step_delay"
	keyCooldown       = "request.cooldown"
	keyOwners         = "owners"
	keyAccountsPath   = "accounts.path"
	keyStorePath      = "store.path"
	keySecretsPath    = "secrets.path"
	keySecretsBackend = "secrets.backend"
	keyBaseURL        = "transport.base_url"
	keyTimeout        = "transport.timeout"
	keyServeAddr      = "serve.addr"
	keyLogLevel       = "log.level"

	defaultKindMax = 10
)

type Config struct {
	StepDelay      time.Duration
	Cooldown       time.Duration
	Owners         []domain.UserID
	Limits         map[domain.ActionKind]application.Limit
	AccountsPath   string
	StorePath      string
	SecretsPath    string
	SecretsBackend string
	BaseURL        string
	Timeout        time.Duration
	ServeAddr      string
	LogLevel       slog.Level

	v *viper.Viper
}

// Load reads path, or ~/.engage/config.toml when path is empty. Only an explicit
// path has to exist.
func Load(path string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, filepath.Join(homeDir, configDir))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, configDir, configFile)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(v, homeDir)
}

// Viper exposes the merged settings for adapters that read their own keys.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

func (c *Config) Orchestrator() application.OrchestratorConfig {
	limits := make(map[domain.ActionKind]application.Limit, len(c.Limits))
	for kind, limit := range c.Limits {
		limits[kind] = limit
	}
	return application.OrchestratorConfig{StepDelay: c.StepDelay, Limits: limits}
}

// DryRun reports whether actions are only logged.
func (c *Config) DryRun() bool {
	return c.BaseURL == ""
}

func setDefaults(v *viper.Viper, base string) {
	v.SetDefault(keyStepDelay, 15*time.Second)
	v.SetDefault(keyCooldown, 10*time.Minute)
	v.SetDefault(keyOwners, []string{})
	v.SetDefault(keyAccountsPath, filepath.Join(base, "accounts.toml"))
	v.SetDefault(keyStorePath, filepath.Join(base, "engage.db"))
	v.SetDefault(keySecretsPath, filepath.Join(base, "secrets"))
	v.SetDefault(keySecretsBackend, SecretsBackendFile)
	v.SetDefault(keyBaseURL, "")
	v.SetDefault(keyTimeout, 30*time.Second)
	v.SetDefault(keyServeAddr, "127.0.0.1:8089")
	v.SetDefault(keyLogLevel, "info")

	for _, kind := range domain.ActionKinds {
		v.SetDefault(limitKey(kind, "max"), defaultKindMax)
		v.SetDefault(limitKey(kind, "owner_max"), 0)
	}
}

func fromViper(v *viper.Viper, homeDir string) (*Config, error) {
	cfg := &Config{
		StepDelay:      v.GetDuration(keyStepDelay),
		Cooldown:       v.GetDuration(keyCooldown),
		Owners:         parseOwners(v.GetStringSlice(keyOwners)),
		Limits:         make(map[domain.ActionKind]application.Limit, len(domain.ActionKinds)),
		AccountsPath:   expandHome(v.GetString(keyAccountsPath), homeDir),
		StorePath:      expandHome(v.GetString(keyStorePath), homeDir),
		SecretsPath:    expandHome(v.GetString(keySecretsPath), homeDir),
		SecretsBackend: strings.ToLower(strings.TrimSpace(v.GetString(keySecretsBackend))),
		BaseURL:        strings.TrimSpace(v.GetString(keyBaseURL)),
		Timeout:        v.GetDuration(keyTimeout),
		ServeAddr:      v.GetString(keyServeAddr),
		v:              v,
	}
	v.Set(keyAccountsPath, cfg.AccountsPath)

	var errs []error
	if cfg.StepDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keyStepDelay))
	}
	if cfg.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keyCooldown))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keyTimeout))
	}

	switch cfg.SecretsBackend {
	case SecretsBackendFile, SecretsBackendPass, SecretsBackendChain:
	default:
		errs = append(errs, fmt.Errorf("%s must be one of file, pass, chain (got %q)", keySecretsBackend, cfg.SecretsBackend))
	}

	for _, kind := range domain.ActionKinds {
		limit := application.Limit{
			Max:      v.GetInt(limitKey(kind, "max")),
			OwnerMax: v.GetInt(limitKey(kind, "owner_max")),
		}
		if limit.Max < 0 || limit.OwnerMax < 0 {
			errs = append(errs, fmt.Errorf("limits.%s must not be negative", kind))
		}
		cfg.Limits[kind] = limit
	}

	level, err := ParseLogLevel(v.GetString(keyLogLevel))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%s must be one of debug, info, warn, error (got %q)", keyLogLevel, raw)
	}
}

func limitKey(kind domain.ActionKind, field string) string {
	return "limits." + string(kind) + "." + field
}

// parseOwners accepts both TOML arrays and comma separated env values.
func parseOwners(raw []string) []domain.UserID {
	var owners []domain.UserID
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				owners = append(owners, domain.UserID(trimmed))
			}
		}
	}
	return owners
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
