package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LookupFunc func(string) (string, bool)

// Provider names accepted in the llm block.
const (
	ProviderCortex      = "cortex"
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderAnthropic   = "anthropic"
)

type Config struct {
	Snowflake     SnowflakeConfig     `yaml:"snowflake" json:"snowflake"`
	SemanticModel SemanticModelConfig `yaml:"semantic_model" json:"semantic_model"`
	LLM           *LLMConfig          `yaml:"llm,omitempty" json:"llm,omitempty"`
	Publish       PublishConfig       `yaml:"publish,omitempty" json:"publish,omitempty"`
	Observability ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty"`
}

type SnowflakeConfig struct {
	Account              string `yaml:"account" json:"account"`
	User                 string `yaml:"user" json:"user"`
	Password             string `yaml:"password,omitempty" json:"password,omitempty"`
	Role                 string `yaml:"role,omitempty" json:"role,omitempty"`
	Warehouse            string `yaml:"warehouse,omitempty" json:"warehouse,omitempty"`
	Database             string `yaml:"database,omitempty" json:"database,omitempty"`
	Schema               string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Host                 string `yaml:"host,omitempty" json:"host,omitempty"`
	PrivateKeyPath       string `yaml:"private_key_path,omitempty" json:"private_key_path,omitempty"`
	PrivateKeyPassphrase string `yaml:"private_key_passphrase,omitempty" json:"private_key_passphrase,omitempty"`
	Token                string `yaml:"token,omitempty" json:"token,omitempty"`
	Authenticator        string `yaml:"authenticator,omitempty" json:"authenticator,omitempty"`
}

type SemanticModelConfig struct {
	Name          string   `yaml:"name" json:"name"`
	BaseTables    []string `yaml:"base_tables" json:"base_tables"`
	NSampleValues int      `yaml:"n_sample_values,omitempty" json:"n_sample_values,omitempty"`
	AllowJoins    bool     `yaml:"allow_joins,omitempty" json:"allow_joins,omitempty"`
	BestEffort    bool     `yaml:"best_effort,omitempty" json:"best_effort,omitempty"`
	Workers       int      `yaml:"workers,omitempty" json:"workers,omitempty"`
}

type LLMConfig struct {
	Provider            string        `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model               string        `yaml:"model,omitempty" json:"model,omitempty"`
	APIKey              string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIEndpoint         string        `yaml:"api_endpoint,omitempty" json:"api_endpoint,omitempty"`
	APIVersion          string        `yaml:"api_version,omitempty" json:"api_version,omitempty"`
	AzureDeploymentName string        `yaml:"azure_deployment_name,omitempty" json:"azure_deployment_name,omitempty"`
	Temperature         float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens           int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout             Duration      `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	FallbackProvider    string        `yaml:"fallback_provider,omitempty" json:"fallback_provider,omitempty"`
	FallbackModel       string        `yaml:"fallback_model,omitempty" json:"fallback_model,omitempty"`
	FallbackAPIKey      string        `yaml:"fallback_api_key,omitempty" json:"fallback_api_key,omitempty"`

	// Legacy fields still found in older config files. Migrated by
	// normalizeLegacy and never read past Finalize.
	UseCortex       *bool  `yaml:"use_cortex,omitempty" json:"use_cortex,omitempty"`
	FallbackService string `yaml:"fallback_service,omitempty" json:"fallback_service,omitempty"`
}

type PublishConfig struct {
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Bucket          string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	AccessKeyID     string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretAccessKey string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
	UseSSL          bool   `yaml:"use_ssl,omitempty" json:"use_ssl,omitempty"`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

type ObservabilityConfig struct {
	LogLevelName string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LogJSON      bool   `yaml:"log_json,omitempty" json:"log_json,omitempty"`

	// Parsed from LogLevelName by Finalize.
	LogLevel slog.Level `yaml:"-" json:"-"`
}

// LoadFile reads a YAML or JSON configuration file (dispatched on extension),
// applies SEMGEN_* environment overrides and validates the result.
func LoadFile(path string) (Config, error) {
	return LoadFileWithLookup(path, os.LookupEnv)
}

func LoadFileWithLookup(path string, lookup LookupFunc) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse json config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %q", ext)
	}

	return Finalize(cfg, lookup)
}

// Finalize applies legacy migration, defaults, environment overrides and
// validation to an in-memory configuration. Callers constructing Config in
// code go through the same path as file loading.
func Finalize(cfg Config, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	normalizeLegacy(&cfg)
	applyDefaults(&cfg)

	if err := applyOverrides(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := parseLogLevel(&cfg.Observability); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalizeLegacy maps the retired use_cortex / fallback_service fields onto
// the provider field so old config files keep working.
func normalizeLegacy(cfg *Config) {
	llm := cfg.LLM
	if llm == nil || llm.UseCortex == nil {
		return
	}
	if llm.Provider == "" {
		switch {
		case *llm.UseCortex:
			llm.Provider = ProviderCortex
		case llm.FallbackService != "":
			llm.Provider = llm.FallbackService
			if llm.APIKey == "" {
				llm.APIKey = llm.FallbackAPIKey
			}
			llm.FallbackAPIKey = ""
		default:
			llm.Provider = ProviderOpenAI
		}
	}
	llm.UseCortex = nil
	llm.FallbackService = ""
}

func applyDefaults(cfg *Config) {
	if cfg.SemanticModel.NSampleValues == 0 {
		cfg.SemanticModel.NSampleValues = 3
	}
	if cfg.SemanticModel.Workers == 0 {
		cfg.SemanticModel.Workers = 1
	}
	if cfg.Observability.LogLevelName == "" {
		cfg.Observability.LogLevelName = "info"
	}
	if cfg.LLM == nil {
		return
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderCortex
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3-8b"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(30 * time.Second)
	}
	if cfg.LLM.Provider == ProviderAzureOpenAI && cfg.LLM.APIVersion == "" {
		cfg.LLM.APIVersion = "2023-05-15"
	}
}

func applyOverrides(cfg *Config, lookup LookupFunc) error {
	applyString(lookup, "SEMGEN_SNOWFLAKE_ACCOUNT", &cfg.Snowflake.Account)
	applyString(lookup, "SEMGEN_SNOWFLAKE_USER", &cfg.Snowflake.User)
	applyString(lookup, "SEMGEN_SNOWFLAKE_PASSWORD", &cfg.Snowflake.Password)
	applyString(lookup, "SEMGEN_SNOWFLAKE_ROLE", &cfg.Snowflake.Role)
	applyString(lookup, "SEMGEN_SNOWFLAKE_WAREHOUSE", &cfg.Snowflake.Warehouse)
	applyString(lookup, "SEMGEN_SNOWFLAKE_DATABASE", &cfg.Snowflake.Database)
	applyString(lookup, "SEMGEN_SNOWFLAKE_SCHEMA", &cfg.Snowflake.Schema)
	applyString(lookup, "SEMGEN_SNOWFLAKE_TOKEN", &cfg.Snowflake.Token)
	if err := applyInt(lookup, "SEMGEN_MODEL_SAMPLE_VALUES", &cfg.SemanticModel.NSampleValues); err != nil {
		return err
	}
	if err := applyBool(lookup, "SEMGEN_MODEL_BEST_EFFORT", &cfg.SemanticModel.BestEffort); err != nil {
		return err
	}
	if err := applyInt(lookup, "SEMGEN_MODEL_WORKERS", &cfg.SemanticModel.Workers); err != nil {
		return err
	}
	applyString(lookup, "SEMGEN_PUBLISH_ENDPOINT", &cfg.Publish.Endpoint)
	applyString(lookup, "SEMGEN_PUBLISH_BUCKET", &cfg.Publish.Bucket)
	applyString(lookup, "SEMGEN_PUBLISH_ACCESS_KEY", &cfg.Publish.AccessKeyID)
	applyString(lookup, "SEMGEN_PUBLISH_SECRET_KEY", &cfg.Publish.SecretAccessKey)
	if err := applyBool(lookup, "SEMGEN_PUBLISH_USE_SSL", &cfg.Publish.UseSSL); err != nil {
		return err
	}
	applyString(lookup, "SEMGEN_LOG_LEVEL", &cfg.Observability.LogLevelName)
	if err := applyBool(lookup, "SEMGEN_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return err
	}
	if cfg.LLM != nil {
		applyString(lookup, "SEMGEN_LLM_PROVIDER", &cfg.LLM.Provider)
		applyString(lookup, "SEMGEN_LLM_MODEL", &cfg.LLM.Model)
		if err := applyDuration(lookup, "SEMGEN_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
			return err
		}
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Snowflake.Account) == "" {
		return fmt.Errorf("snowflake account is required")
	}
	if strings.TrimSpace(cfg.Snowflake.User) == "" {
		return fmt.Errorf("snowflake user is required")
	}
	if strings.TrimSpace(cfg.SemanticModel.Name) == "" {
		return fmt.Errorf("semantic model name is required")
	}
	if len(cfg.SemanticModel.BaseTables) == 0 {
		return fmt.Errorf("at least one base table is required")
	}
	if cfg.SemanticModel.NSampleValues < 0 {
		return fmt.Errorf("n_sample_values must not be negative")
	}
	if cfg.SemanticModel.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if cfg.LLM != nil {
		if !isValidProvider(cfg.LLM.Provider) {
			return fmt.Errorf("unsupported llm provider: %q", cfg.LLM.Provider)
		}
		if cfg.LLM.FallbackProvider != "" && !isValidProvider(cfg.LLM.FallbackProvider) {
			return fmt.Errorf("unsupported llm fallback provider: %q", cfg.LLM.FallbackProvider)
		}
	}
	return nil
}

// FallbackLLM derives the fallback provider configuration from the primary
// block. Model, temperature and token budget are inherited when not set
// explicitly for the fallback.
func (c LLMConfig) FallbackLLM() *LLMConfig {
	if c.FallbackProvider == "" || c.FallbackProvider == c.Provider {
		return nil
	}
	model := c.FallbackModel
	if model == "" {
		model = c.Model
	}
	return &LLMConfig{
		Provider:    c.FallbackProvider,
		Model:       model,
		APIKey:      c.FallbackAPIKey,
		APIEndpoint: c.APIEndpoint,
		APIVersion:  c.APIVersion,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	}
}

func isValidProvider(provider string) bool {
	switch provider {
	case ProviderCortex, ProviderOpenAI, ProviderAzureOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

func parseLogLevel(cfg *ObservabilityConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.LogLevelName)) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info", "":
		cfg.LogLevel = slog.LevelInfo
	case "warn", "warning":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %q", cfg.LogLevelName)
	}
	return nil
}

func applyString(lookup LookupFunc, key string, dst *string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	*dst = strings.TrimSpace(raw)
}

func applyDuration(lookup LookupFunc, key string, dst *Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = Duration(value)
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}
