package application

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/endpoints-tools/config-fetcher/internal/auth"
	"github.com/endpoints-tools/config-fetcher/internal/config"
	"github.com/endpoints-tools/config-fetcher/internal/metadata"
	"github.com/endpoints-tools/config-fetcher/internal/serviceconfig"
	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

// App encapsulates the fetch-and-validate pipeline and its collaborators.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	doer     transport.Doer
	metadata *metadata.Client
	selector *serviceconfig.Selector
	fetcher  *serviceconfig.Fetcher
	tokens   *auth.TokenSource
}

// Option configures App construction.
type Option func(*App)

// WithDoer replaces the HTTP transport (primarily for tests).
func WithDoer(doer transport.Doer) Option {
	return func(a *App) {
		a.doer = doer
	}
}

// New initializes the pipeline with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.doer == nil {
		a.doer = transport.New(
			transport.WithTimeout(cfg.HTTPTimeout),
			transport.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		)
	}

	a.metadata = metadata.NewClient(a.doer, cfg.MetadataURL)
	a.selector = serviceconfig.NewSelector(a.doer, cfg.ManagementURL)
	a.fetcher = serviceconfig.NewFetcher(a.doer)
	if cfg.ServiceAccountKey != "" {
		a.tokens = auth.NewTokenSource(a.doer, cfg.ServiceAccountKey)
	}

	return a
}

// Run executes the pipeline to completion: resolve the service identity,
// obtain a credential, determine the active configuration version, fetch the
// document, and validate it. Any step failure aborts the run.
func (a *App) Run(ctx context.Context) (serviceconfig.Document, error) {
	serviceName, err := a.serviceName(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("service name resolved", zap.String("service", serviceName))

	accessToken, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	version, err := a.configVersion(ctx, serviceName, accessToken)
	if err != nil {
		return nil, err
	}
	a.logger.Info("service config version resolved", zap.String("version", version))

	configURL := fmt.Sprintf("%s/v1/services/%s/configs/%s",
		a.cfg.ManagementURL, url.PathEscape(serviceName), url.PathEscape(version))

	doc, err := a.fetcher.Fetch(ctx, configURL, accessToken)
	if err != nil {
		return nil, err
	}

	doc, err = serviceconfig.ValidateAndNormalize(doc, serviceName, version, a.logger)
	if err != nil {
		return nil, err
	}

	a.logger.Info("service configuration validated",
		zap.String("service", serviceName),
		zap.String("version", version),
	)
	return doc, nil
}

func (a *App) serviceName(ctx context.Context) (string, error) {
	if a.cfg.ServiceName != "" {
		return a.cfg.ServiceName, nil
	}
	return a.metadata.ServiceName(ctx)
}

// accessToken resolves a credential: an explicitly supplied token wins, then
// the service-account key exchange, then metadata delegation.
func (a *App) accessToken(ctx context.Context) (string, error) {
	if a.cfg.AccessToken != "" {
		return a.cfg.AccessToken, nil
	}
	if a.tokens != nil {
		return a.tokens.Token(ctx)
	}
	return a.metadata.AccessToken(ctx)
}

func (a *App) configVersion(ctx context.Context, serviceName, accessToken string) (string, error) {
	if a.cfg.ConfigID != "" {
		return a.cfg.ConfigID, nil
	}

	if a.cfg.RolloutStrategy == config.StrategyManaged {
		percentages, err := a.selector.SelectActiveVersions(ctx, serviceName, accessToken)
		if err != nil {
			return "", err
		}
		version := highestTrafficVersion(percentages)
		a.logger.Info("active rollout selected",
			zap.String("version", version),
			zap.Int("candidates", len(percentages)),
		)
		return version, nil
	}

	return a.metadata.ConfigID(ctx)
}

// highestTrafficVersion picks the version carrying the most traffic. Ties
// break towards the lexicographically smallest ID so the choice is
// deterministic across runs.
func highestTrafficVersion(percentages map[string]float64) string {
	versions := make([]string, 0, len(percentages))
	for version := range percentages {
		versions = append(versions, version)
	}
	sort.Strings(versions)

	var (
		best        string
		bestPercent = -1.0
	)
	for _, version := range versions {
		if percentages[version] > bestPercent {
			best = version
			bestPercent = percentages[version]
		}
	}
	return best
}
