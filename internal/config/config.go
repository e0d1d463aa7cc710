// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcem/pregate/internal/quarantine"
)

// GmailConfig holds OAuth2 credentials for the Gmail fetcher used by the
// triage CLI's live mode.
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	User         string `yaml:"user"`
}

// Configured reports whether live Gmail access is usable.
func (g GmailConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

// Config holds all configuration for the pre-gate service.
type Config struct {
	// Redis
	RedisURL      string
	EmailsQueue   string
	VerdictsQueue string

	// Postgres (service audit trail)
	DatabaseURL string

	// JSONL audit runs (CLI)
	AuditDir string

	// Server (health check only)
	Port int

	Gmail GmailConfig

	// Policy is the quarantine allow-list table set. Absent sections fall
	// back to the compiled-in default policy.
	Policy *quarantine.Policy
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Emails   string `yaml:"emails"`
			Verdicts string `yaml:"verdicts"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Audit struct {
		Dir string `yaml:"dir"`
	} `yaml:"audit"`
	Gmail  GmailConfig              `yaml:"gmail"`
	Policy *quarantine.PolicyConfig `yaml:"policy"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. A missing config file is
// not an error; everything has an env fallback or a default.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case os.IsNotExist(err):
		// Env-only configuration.
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		RedisURL:      firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		EmailsQueue:   firstNonEmpty(raw.Redis.Queues.Emails, envOrDefault("EMAILS_QUEUE", "emails")),
		VerdictsQueue: firstNonEmpty(raw.Redis.Queues.Verdicts, envOrDefault("VERDICTS_QUEUE", "verdicts")),
		DatabaseURL:   firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		AuditDir:      firstNonEmpty(raw.Audit.Dir, envOrDefault("AUDIT_DIR", defaultAuditDir())),
		Port:          envOrDefaultInt("PORT", 8080),
		Gmail:         raw.Gmail,
	}

	if raw.Policy != nil {
		if raw.Policy.TrustedDomain == "" {
			return nil, fmt.Errorf("policy.trusted_domain is required when a policy is configured")
		}
		cfg.Policy = quarantine.NewPolicy(*raw.Policy)
	} else {
		cfg.Policy = quarantine.DefaultPolicy()
	}

	return cfg, nil
}

func defaultAuditDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./runs"
	}
	return home + "/.pregate/runs"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
