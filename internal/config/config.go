package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "TRITON_MIGRATE_CONFIG"
	sourceBaseURLEnv = "TRITON_SOURCE_URL"
	sanityProjectEnv = "SANITY_PROJECT_ID"
	sanityDatasetEnv = "SANITY_DATASET"
	sanityTokenEnv   = "SANITY_TOKEN"
)

// Config holds high-level settings required across the migration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Sanity    SanityConfig    `yaml:"sanity"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig describes the legacy WordPress endpoint.
type SourceConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	PageSize int    `yaml:"pageSize"`
}

// SanityConfig wires the destination content store project.
type SanityConfig struct {
	ProjectID  string `yaml:"projectId"`
	Dataset    string `yaml:"dataset"`
	APIVersion string `yaml:"apiVersion"`
	Token      string `yaml:"token"`
}

// MigrationConfig holds the on-host state files and category fallback.
type MigrationConfig struct {
	CheckpointPath  string `yaml:"checkpointPath"`
	AssetCachePath  string `yaml:"assetCachePath"`
	DefaultCategory string `yaml:"defaultCategory"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An explicit path wins over the env-provided one.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(sourceBaseURLEnv); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv(sanityProjectEnv); v != "" {
		c.Sanity.ProjectID = v
	}
	if v := os.Getenv(sanityDatasetEnv); v != "" {
		c.Sanity.Dataset = v
	}
	if v := os.Getenv(sanityTokenEnv); v != "" {
		c.Sanity.Token = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Source.BaseURL != "" {
		base.Source.BaseURL = override.Source.BaseURL
	}
	if override.Source.PageSize > 0 {
		base.Source.PageSize = override.Source.PageSize
	}

	if override.Sanity.ProjectID != "" {
		base.Sanity.ProjectID = override.Sanity.ProjectID
	}
	if override.Sanity.Dataset != "" {
		base.Sanity.Dataset = override.Sanity.Dataset
	}
	if override.Sanity.APIVersion != "" {
		base.Sanity.APIVersion = override.Sanity.APIVersion
	}
	if override.Sanity.Token != "" {
		base.Sanity.Token = override.Sanity.Token
	}

	if override.Migration.CheckpointPath != "" {
		base.Migration.CheckpointPath = override.Migration.CheckpointPath
	}
	if override.Migration.AssetCachePath != "" {
		base.Migration.AssetCachePath = override.Migration.AssetCachePath
	}
	if override.Migration.DefaultCategory != "" {
		base.Migration.DefaultCategory = override.Migration.DefaultCategory
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Source: SourceConfig{
			BaseURL:  "https://www.the-triton.com",
			PageSize: 20,
		},
		Sanity: SanityConfig{
			Dataset:    "production",
			APIVersion: "v2021-10-21",
		},
		Migration: MigrationConfig{
			CheckpointPath:  "migrated.json",
			AssetCachePath:  "asset-cache.json",
			DefaultCategory: "news",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
