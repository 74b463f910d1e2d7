// Package config loads process configuration for the nodeflow binary.
//
// Values are layered: built-in defaults, then an optional YAML or JSON file
// (chosen by extension), then variables from a .env file, then NODEFLOW_*
// environment variables. Later layers win.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NODEFLOW_"

// Config is the process configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
	Runner RunnerConfig `yaml:"runner"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig selects the Redis bus. An empty Addr keeps the bus in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LLMConfig holds defaults for agent and embeddings nodes that leave these
// fields empty.
type LLMConfig struct {
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"api_key"`
	Model              string `yaml:"model"`
	EmbeddingsEndpoint string `yaml:"embeddings_endpoint"`
	EmbeddingsModel    string `yaml:"embeddings_model"`
}

type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type RunnerConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	RunTimeout     time.Duration `yaml:"run_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		LLM: LLMConfig{
			Endpoint:           "https://api.openai.com/v1/chat/completions",
			Model:              "gpt-4o-mini",
			EmbeddingsEndpoint: "https://api.openai.com/v1/embeddings",
			EmbeddingsModel:    "text-embedding-3-small",
		},
		Runner: RunnerConfig{MaxConcurrency: 1},
	}
}

// Load builds the configuration. path may be empty. envFiles default to
// ".env"; missing env files are ignored, a missing config file is not.
func Load(path string, envFiles ...string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (config *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return fmt.Errorf("config %s: unsupported extension, want .yaml, .yml or .json", path)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "yaml",
		Result:           config,
	})
	if err != nil {
		return err
	}
	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from NODEFLOW_* variables. OPENAI_API_KEY is
// accepted when NODEFLOW_LLM_API_KEY is unset.
func (config *Config) applyEnv() error {
	stringFields := map[string]*string{
		"LOG_LEVEL":       &config.Log.Level,
		"LOG_FORMAT":      &config.Log.Format,
		"SERVER_ADDR":     &config.Server.Addr,
		"REDIS_ADDR":      &config.Redis.Addr,
		"REDIS_PASSWORD":  &config.Redis.Password,
		"REDIS_PREFIX":    &config.Redis.Prefix,
		"LLM_ENDPOINT":    &config.LLM.Endpoint,
		"LLM_API_KEY":     &config.LLM.APIKey,
		"LLM_MODEL":       &config.LLM.Model,
		"SEARCH_ENDPOINT": &config.Search.Endpoint,

		"LLM_EMBEDDINGS_ENDPOINT": &config.LLM.EmbeddingsEndpoint,
		"LLM_EMBEDDINGS_MODEL":    &config.LLM.EmbeddingsModel,
	}
	for name, target := range stringFields {
		if value, set := os.LookupEnv(EnvPrefix + name); set {
			*target = value
		}
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	intFields := map[string]*int{
		"REDIS_DB":        &config.Redis.DB,
		"MAX_CONCURRENCY": &config.Runner.MaxConcurrency,
	}
	for name, target := range intFields {
		value, set := os.LookupEnv(EnvPrefix + name)
		if !set {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*target = parsed
	}

	durationFields := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &config.Server.ShutdownTimeout,
		"RUN_TIMEOUT":      &config.Runner.RunTimeout,
	}
	for name, target := range durationFields {
		value, set := os.LookupEnv(EnvPrefix + name)
		if !set {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*target = parsed
	}
	return nil
}
