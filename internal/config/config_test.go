package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("METADATA_URL", "")
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("ROLLOUT_STRATEGY", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.MetadataURL != defaultMetadataURL {
		t.Fatalf("expected default metadata URL, got %s", cfg.MetadataURL)
	}
	if cfg.ManagementURL != defaultManagementURL {
		t.Fatalf("expected default management URL, got %s", cfg.ManagementURL)
	}
	if cfg.RolloutStrategy != StrategyFixed {
		t.Fatalf("expected fixed strategy by default, got %s", cfg.RolloutStrategy)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected HTTP timeout: %s", cfg.HTTPTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "svc.example.com")
	t.Setenv("SERVICE_CONFIG_ID", "2024-01-03r0")
	t.Setenv("ROLLOUT_STRATEGY", "managed")
	t.Setenv("RATE_LIMIT_RPS", "3.5")
	t.Setenv("RATE_LIMIT_BURST", "7")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServiceName != "svc.example.com" {
		t.Fatalf("expected env service name, got %s", cfg.ServiceName)
	}
	if cfg.ConfigID != "2024-01-03r0" {
		t.Fatalf("expected env config ID, got %s", cfg.ConfigID)
	}
	if cfg.RolloutStrategy != StrategyManaged {
		t.Fatalf("expected managed strategy, got %s", cfg.RolloutStrategy)
	}
	if cfg.RateLimitRPS != 3.5 || cfg.RateLimitBurst != 7 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadYAMLAndPrecedence(t *testing.T) {
	t.Setenv("SERVICE_NAME", "env.example.com")
	t.Setenv("MANAGEMENT_URL", "")

	path := filepath.Join(t.TempDir(), "fetcher.yaml")
	yamlBody := `
service_name: yaml.example.com
management_url: https://management.yaml.example.com
http_timeout: 5s
rate_limit:
  rps: 2
  burst: 4
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	flagName := "flag.example.com"
	cfg, err := Load(&CLIOverrides{
		ConfigFile:  path,
		ServiceName: &flagName,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// CLI beats env, env beats YAML, YAML beats defaults.
	if cfg.ServiceName != flagName {
		t.Fatalf("expected CLI override to win, got %s", cfg.ServiceName)
	}
	if cfg.ManagementURL != "https://management.yaml.example.com" {
		t.Fatalf("expected YAML management URL, got %s", cfg.ManagementURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("expected YAML timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.RateLimitRPS != 2 || cfg.RateLimitBurst != 4 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadEnvBeatsYAML(t *testing.T) {
	t.Setenv("SERVICE_NAME", "env.example.com")

	path := filepath.Join(t.TempDir(), "fetcher.yaml")
	if err := os.WriteFile(path, []byte("service_name: yaml.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServiceName != "env.example.com" {
		t.Fatalf("expected env to beat YAML, got %s", cfg.ServiceName)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("ROLLOUT_STRATEGY", "weekly")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for unknown rollout strategy")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "absent.yaml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
