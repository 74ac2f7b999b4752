// Package config holds operator-wide settings loaded from the environment.
// Per-resource settings (repository URL, branch, target) live on the
// VPARecommendation spec; everything here is deployment-level policy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the VPA GitOps recommender operator.
type Config struct {
	// Controller configuration
	MetricsAddr          string
	ProbeAddr            string
	EnableLeaderElection bool

	// Git commit identity used for patch commits
	CommitAuthorName  string
	CommitAuthorEmail string

	// ResyncInterval is the default timer-tick period between cycles for
	// resources that do not set spec.resyncInterval.
	ResyncInterval time.Duration

	// CloneTimeout bounds each git transport operation within a cycle.
	CloneTimeout time.Duration

	// GitHubAPIBaseURL overrides the review-service endpoint; used against
	// GitHub Enterprise installs and by tests.
	GitHubAPIBaseURL string

	// WorkdirRoot is where per-cycle working copies are created.
	WorkdirRoot string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MetricsAddr:       ":8080",
		ProbeAddr:         ":8081",
		CommitAuthorName:  "VPA Recommender Bot",
		CommitAuthorEmail: "vpa-recommender@k8s.io",
		ResyncInterval:    time.Hour,
		CloneTimeout:      5 * time.Minute,
		WorkdirRoot:       os.TempDir(),
	}
}

// LoadFromEnv loads configuration from environment variables, falling back
// to defaults, and validates the result.
func LoadFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("METRICS_ADDR"); val != "" {
		cfg.MetricsAddr = val
	}

	if val := os.Getenv("PROBE_ADDR"); val != "" {
		cfg.ProbeAddr = val
	}

	if val := os.Getenv("ENABLE_LEADER_ELECTION"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.EnableLeaderElection = b
		}
	}

	if val := os.Getenv("COMMIT_AUTHOR_NAME"); val != "" {
		cfg.CommitAuthorName = val
	}

	if val := os.Getenv("COMMIT_AUTHOR_EMAIL"); val != "" {
		cfg.CommitAuthorEmail = val
	}

	if val := os.Getenv("RESYNC_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.ResyncInterval = d
		}
	}

	if val := os.Getenv("CLONE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.CloneTimeout = d
		}
	}

	if val := os.Getenv("GITHUB_API_BASE_URL"); val != "" {
		cfg.GitHubAPIBaseURL = val
	}

	if val := os.Getenv("WORKDIR_ROOT"); val != "" {
		cfg.WorkdirRoot = val
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	var problems []string

	if c.CommitAuthorName == "" {
		problems = append(problems, "COMMIT_AUTHOR_NAME must not be empty")
	}

	if c.CommitAuthorEmail == "" || !strings.Contains(c.CommitAuthorEmail, "@") {
		problems = append(problems, "COMMIT_AUTHOR_EMAIL must be a plausible email address")
	}

	if c.ResyncInterval < time.Minute {
		problems = append(problems, "RESYNC_INTERVAL must be at least 1m to avoid hammering the git remote")
	}

	if c.GitHubAPIBaseURL != "" && !strings.HasPrefix(c.GitHubAPIBaseURL, "http") {
		problems = append(problems, "GITHUB_API_BASE_URL must be an http(s) URL")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}
