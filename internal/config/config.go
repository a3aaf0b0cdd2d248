// Package config loads application configuration from environment variables
// and an optional repo-level .reviewbot.yml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when required credentials are absent.
// Credential errors are fatal before any network call.
var ErrMissingCredentials = errors.New("missing credentials")

// Config holds the application configuration.
type Config struct {
	GitHubToken string
	OpenAIKey   string
	// Repo is the "owner/repo" the run targets.
	Repo string
	// BotUser is the login the bot posts as; used to recognize its own
	// comments and mentions.
	BotUser string

	// LightModel summarizes and triages; HeavyModel reviews.
	LightModel string
	HeavyModel string

	// ModelConcurrency and VCSConcurrency bound the two independent pools.
	ModelConcurrency int
	VCSConcurrency   int

	// MaxFiles caps how many changed files one run processes; 0 means no cap.
	MaxFiles int

	// ReviewEnabled gates the deep review phase; when false the run posts the
	// summary only.
	ReviewEnabled bool
	// ReviewSimpleChanges reviews files the triage verdict approved.
	ReviewSimpleChanges bool
	// ReleaseNotes gates writing release notes into the PR description.
	ReleaseNotes bool
	// PostLGTM posts comments matching the LGTM phrase instead of counting
	// them silently.
	PostLGTM bool

	IncludePaths []string
	ExcludePaths []string

	Debug bool
}

// fileConfig is the subset of options settable from .reviewbot.yml. Values in
// the file override environment defaults for path rules and review gates.
type fileConfig struct {
	IncludePaths        []string `yaml:"include_paths"`
	ExcludePaths        []string `yaml:"exclude_paths"`
	ReviewSimpleChanges *bool    `yaml:"review_simple_changes"`
	ReleaseNotes        *bool    `yaml:"release_notes"`
	MaxFiles            *int     `yaml:"max_files"`
}

// Load reads configuration from environment variables and returns a validated
// Config. GITHUB_TOKEN and OPENAI_API_KEY are required. Optional variables
// with defaults: REVIEWBOT_LIGHT_MODEL (gpt-4o-mini), REVIEWBOT_HEAVY_MODEL
// (gpt-4o), REVIEWBOT_MODEL_CONCURRENCY (6), REVIEWBOT_VCS_CONCURRENCY (6),
// REVIEWBOT_MAX_FILES (150), REVIEWBOT_BOT_USER (reviewbot).
func Load() (*Config, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is not set: %w", ErrMissingCredentials)
	}
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set: %w", ErrMissingCredentials)
	}

	cfg := &Config{
		GitHubToken:         token,
		OpenAIKey:           openAIKey,
		Repo:                os.Getenv("GITHUB_REPOSITORY"),
		BotUser:             envDefault("REVIEWBOT_BOT_USER", "reviewbot"),
		LightModel:          envDefault("REVIEWBOT_LIGHT_MODEL", "gpt-4o-mini"),
		HeavyModel:          envDefault("REVIEWBOT_HEAVY_MODEL", "gpt-4o"),
		ModelConcurrency:    6,
		VCSConcurrency:      6,
		MaxFiles:            150,
		ReviewEnabled:       envBool("REVIEWBOT_REVIEW", true),
		ReviewSimpleChanges: envBool("REVIEWBOT_REVIEW_SIMPLE_CHANGES", false),
		ReleaseNotes:        envBool("REVIEWBOT_RELEASE_NOTES", true),
		PostLGTM:            envBool("REVIEWBOT_POST_LGTM", false),
		Debug:               envBool("REVIEWBOT_DEBUG", false),
	}

	var err error
	if cfg.ModelConcurrency, err = envInt("REVIEWBOT_MODEL_CONCURRENCY", cfg.ModelConcurrency); err != nil {
		return nil, err
	}
	if cfg.VCSConcurrency, err = envInt("REVIEWBOT_VCS_CONCURRENCY", cfg.VCSConcurrency); err != nil {
		return nil, err
	}
	if cfg.MaxFiles, err = envInt("REVIEWBOT_MAX_FILES", cfg.MaxFiles); err != nil {
		return nil, err
	}
	if cfg.ModelConcurrency < 1 || cfg.VCSConcurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1 (model=%d vcs=%d)", cfg.ModelConcurrency, cfg.VCSConcurrency)
	}

	cfg.IncludePaths = splitList(os.Getenv("REVIEWBOT_INCLUDE_PATHS"))
	cfg.ExcludePaths = splitList(os.Getenv("REVIEWBOT_EXCLUDE_PATHS"))

	return cfg, nil
}

// ApplyFile merges options from a .reviewbot.yml file into the Config. A
// missing file is not an error; a malformed one is.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if len(fc.IncludePaths) > 0 {
		c.IncludePaths = fc.IncludePaths
	}
	if len(fc.ExcludePaths) > 0 {
		c.ExcludePaths = fc.ExcludePaths
	}
	if fc.ReviewSimpleChanges != nil {
		c.ReviewSimpleChanges = *fc.ReviewSimpleChanges
	}
	if fc.ReleaseNotes != nil {
		c.ReleaseNotes = *fc.ReleaseNotes
	}
	if fc.MaxFiles != nil {
		c.MaxFiles = *fc.MaxFiles
	}
	return nil
}

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return parsed, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
