package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/adapters/api"
	statusadapter "github.com/bnema/engagement-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/engagement-accounts-cli/internal/adapters/repo/memory"
	"github.com/bnema/engagement-accounts-cli/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/engagement-accounts-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/engagement-accounts-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/engagement-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/engagement-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/engagement-accounts-cli/internal/adapters/transport/dryrun"
	"github.com/bnema/engagement-accounts-cli/internal/adapters/transport/httpbridge"
	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/config"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/metrics"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const skipWiringAnnotation = "ea/skip-wiring"

type app struct {
	cfg          *config.Config
	accounts     *application.AccountService
	orchestrator *application.Orchestrator
	registry     ports.RequestRegistry
	collector    *metrics.Collector
	remote       *api.Client
	now          func() time.Time

	renderRequests func([]domain.RequestEntry, statusadapter.RenderOptions) (string, error)
	renderFailures func(domain.TargetID, map[domain.AccountID]domain.FailureDetail, statusadapter.RenderOptions) (string, error)
	renderAccounts func([]domain.Account, map[domain.AccountID]time.Time, statusadapter.RenderOptions) (string, error)

	closers []io.Closer
}

type wireOptions struct {
	ConfigPath string
	ServerAddr string
	LogOutput  io.Writer
}

func wireApp(opts wireOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(opts.LogOutput, &slog.HandlerOptions{Level: cfg.LogLevel})))

	repo, err := tomlrepo.NewRepository(cfg.Viper())
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	store, err := sqlite.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("wire store: %w", err)
	}

	clock := ports.SystemClock{}
	registry := memory.NewRequestRegistry()
	accounts := application.NewAccountService(repo, secretStore, clock)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(promRegistry)

	resolver, transport, notifier := newBridge(cfg, secretStore)

	orchestrator := application.NewOrchestrator(application.OrchestratorDeps{
		Registry:  registry,
		Pool:      application.NewAccountPool(repo, store.Ledger(), registry, clock),
		Cooldowns: application.NewCooldownTracker(store.Cooldowns(), clock, cfg.Cooldown, cfg.Owners),
		Accounts:  accounts,
		Ledger:    store.Ledger(),
		Resolver:  resolver,
		Transport: transport,
		Notifier:  notifier,
		Clock:     clock,
		Observer:  collector,
	}, cfg.Orchestrator())

	serverAddr := opts.ServerAddr
	if serverAddr == "" {
		serverAddr = cfg.ServeAddr
	}

	return &app{
		cfg:            cfg,
		accounts:       accounts,
		orchestrator:   orchestrator,
		registry:       registry,
		collector:      collector,
		remote:         api.NewClient(serverAddr, &http.Client{Timeout: cfg.Timeout}),
		now:            time.Now,
		renderRequests: statusadapter.RenderRequests,
		renderFailures: statusadapter.RenderFailures,
		renderAccounts: statusadapter.RenderAccounts,
		closers:        []io.Closer{store},
	}, nil
}

func newSecretStore(cfg *config.Config) (ports.SecretStore, error) {
	switch cfg.SecretsBackend {
	case config.SecretsBackendPass:
		return passstore.NewStore(), nil
	case config.SecretsBackendChain:
		return chainstore.NewStore(passstore.NewStore(), filestore.NewStore(cfg.SecretsPath))
	default:
		return filestore.NewStore(cfg.SecretsPath), nil
	}
}

func newBridge(cfg *config.Config, secrets ports.SecretStore) (ports.TargetResolver, ports.ActionTransport, ports.Notifier) {
	if cfg.DryRun() {
		bridge := dryrun.New()
		return bridge, bridge, bridge
	}

	client := &httpbridge.Client{
		BaseURL:        cfg.BaseURL,
		HTTPClient:     &http.Client{},
		Secrets:        secrets,
		RequestTimeout: cfg.Timeout,
	}
	return client, client, client
}

func (a *app) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
