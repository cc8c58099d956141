// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then environment variables, in ascending
// precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reminisce/config.yaml",
	"/etc/reminisce/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Storage   StorageConfig   `koanf:"storage"`
	Bandit    BanditConfig    `koanf:"bandit"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the DuckDB feedback database.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// StorageConfig configures the Badger model store.
type StorageConfig struct {
	// Path is the Badger directory for serialized bandit models.
	Path string `koanf:"path"`

	// FlushInterval is how often the background flush service writes
	// dirty models, independent of the update-count threshold.
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// BanditConfig tunes the hierarchical bandit engine.
type BanditConfig struct {
	Alpha            float64       `koanf:"alpha"`
	MinUserUpdates   int           `koanf:"min_user_updates"`
	CacheSize        int           `koanf:"cache_size"`
	FlushThreshold   int           `koanf:"flush_threshold"`
	BlendRampUpdates int           `koanf:"blend_ramp_updates"`
	MaxUserWeight    float64       `koanf:"max_user_weight"`
	StoreTimeout     time.Duration `koanf:"store_timeout"`
}

// RecommendConfig tunes candidate preparation.
type RecommendConfig struct {
	MinNostalgiaScore float64 `koanf:"min_nostalgia_score"`
	MaxMovieRatings   float64 `koanf:"max_movie_ratings"`
	MaxSongPopularity float64 `koanf:"max_song_popularity"`
	TopN              int     `koanf:"top_n"`
}

// defaultConfig returns production defaults; file and env override them.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8600,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/reminisce.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Storage: StorageConfig{
			Path:          "/data/models",
			FlushInterval: 30 * time.Second,
		},
		Bandit: BanditConfig{
			Alpha:            1.0,
			MinUserUpdates:   10,
			CacheSize:        500,
			FlushThreshold:   10,
			BlendRampUpdates: 50,
			MaxUserWeight:    0.7,
			StoreTimeout:     5 * time.Second,
		},
		Recommend: RecommendConfig{
			MinNostalgiaScore: 0.3,
			MaxMovieRatings:   100000,
			MaxSongPopularity: 100,
			TopN:              5,
		},
	}
}

// Load builds the configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("REMINISCE_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set")
	}
	if c.Bandit.Alpha <= 0 {
		return fmt.Errorf("bandit.alpha must be positive, got %v", c.Bandit.Alpha)
	}
	if c.Bandit.CacheSize <= 0 {
		return fmt.Errorf("bandit.cache_size must be positive, got %d", c.Bandit.CacheSize)
	}
	if c.Bandit.FlushThreshold <= 0 {
		return fmt.Errorf("bandit.flush_threshold must be positive, got %d", c.Bandit.FlushThreshold)
	}
	if c.Bandit.MaxUserWeight <= 0 || c.Bandit.MaxUserWeight > 1 {
		return fmt.Errorf("bandit.max_user_weight %v outside (0,1]", c.Bandit.MaxUserWeight)
	}
	if c.Recommend.TopN <= 0 {
		return fmt.Errorf("recommend.top_n must be positive, got %d", c.Recommend.TopN)
	}
	if c.Recommend.MinNostalgiaScore < 0 || c.Recommend.MinNostalgiaScore > 1 {
		return fmt.Errorf("recommend.min_nostalgia_score %v outside [0,1]", c.Recommend.MinNostalgiaScore)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps REMINISCE_* environment variables to koanf
// paths. The first underscore separates the section; the rest of the
// name is the key: REMINISCE_SERVER_PORT -> server.port,
// REMINISCE_BANDIT_FLUSH_THRESHOLD -> bandit.flush_threshold.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "REMINISCE_"))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// sliceConfigPaths lists paths parsed as comma-separated slices when
// they arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
