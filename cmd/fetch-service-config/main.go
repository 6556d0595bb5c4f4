package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/endpoints-tools/config-fetcher/internal/application"
	"github.com/endpoints-tools/config-fetcher/internal/config"
	"github.com/endpoints-tools/config-fetcher/internal/logging"
	"github.com/endpoints-tools/config-fetcher/internal/serviceconfig"
)

var osExit = os.Exit

func main() {
	kingpinApp := kingpin.New("fetch-service-config", "Fetches and validates the service configuration used to bootstrap the proxy at startup")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	metadataURL := kingpinApp.Flag("metadata", "Instance metadata server base URL").String()
	managementURL := kingpinApp.Flag("management", "Service management API base URL").String()
	serviceName := kingpinApp.Flag("service", "Service name (discovered from metadata when omitted)").String()
	configID := kingpinApp.Flag("version", "Service config ID to fetch (resolved when omitted)").String()
	rolloutStrategy := kingpinApp.Flag("rollout-strategy", "Config version resolution: fixed or managed").String()
	serviceAccountKey := kingpinApp.Flag("service-account-key", "Path to a service account key JSON file").String()
	accessToken := kingpinApp.Flag("access-token", "Bearer token to use instead of acquiring one").String()
	outputPath := kingpinApp.Flag("output", "Write the validated config to this file instead of stdout").String()
	httpTimeout := kingpinApp.Flag("http-timeout", "Per-request HTTP timeout").Duration()
	rateLimitRPS := kingpinApp.Flag("rate-limit-rps", "Management API requests per second (set 0 to disable pacing)").Default("-1").Float64()
	rateLimitBurst := kingpinApp.Flag("rate-limit-burst", "Burst capacity for request pacing").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}
	if *metadataURL != "" {
		overrides.MetadataURL = metadataURL
	}
	if *managementURL != "" {
		overrides.ManagementURL = managementURL
	}
	if *serviceName != "" {
		overrides.ServiceName = serviceName
	}
	if *configID != "" {
		overrides.ConfigID = configID
	}
	if *rolloutStrategy != "" {
		overrides.RolloutStrategy = rolloutStrategy
	}
	if *serviceAccountKey != "" {
		overrides.ServiceAccountKey = serviceAccountKey
	}
	if *accessToken != "" {
		overrides.AccessToken = accessToken
	}
	if *outputPath != "" {
		overrides.OutputPath = outputPath
	}
	if *httpTimeout > 0 {
		overrides.HTTPTimeout = httpTimeout
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	app := application.New(cfg, logger)
	doc, err := app.Run(context.Background())
	if err != nil {
		logger.Error("fetching service config failed",
			zap.Error(err),
			zap.Int("code", serviceconfig.CodeOf(err)),
		)
		osExit(serviceconfig.CodeOf(err))
		return
	}

	if err := writeDocument(doc, cfg.OutputPath); err != nil {
		logger.Error("writing service config failed", zap.Error(err))
		osExit(serviceconfig.CodeFetch)
	}
}

// writeDocument emits the validated document as indented JSON to the given
// path, or to stdout when the path is empty.
func writeDocument(doc serviceconfig.Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode service config: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write service config: %w", err)
	}
	return nil
}
