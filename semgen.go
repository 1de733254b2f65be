// Package semgen generates semantic model YAML documents for Snowflake
// databases, optionally enriching tables and columns with LLM-generated
// descriptions.
package semgen

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/semgen/semgen/internal/config"
	"github.com/semgen/semgen/internal/llm"
	"github.com/semgen/semgen/internal/observability"
	"github.com/semgen/semgen/internal/semantic"
	"github.com/semgen/semgen/internal/warehouse/snowflake"
)

// Configuration types, re-exported for embedders.
type (
	Config              = config.Config
	SnowflakeConfig     = config.SnowflakeConfig
	SemanticModelConfig = config.SemanticModelConfig
	LLMConfig           = config.LLMConfig
	PublishConfig       = config.PublishConfig

	// Model is the assembled document, should callers want the object
	// tree rather than its YAML rendering.
	Model = semantic.Model
)

// LoadConfig reads and validates a YAML or JSON configuration file.
func LoadConfig(path string) (Config, error) {
	return config.LoadFile(path)
}

type options struct {
	conn      *sql.DB
	logger    *slog.Logger
	logWriter io.Writer
	lookup    config.LookupFunc
}

type Option func(*options)

// WithConnection supplies an already-open warehouse session. Generate will
// not close it.
func WithConnection(db *sql.DB) Option {
	return func(o *options) { o.conn = db }
}

// WithLogger overrides the logger built from the observability config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEnvLookup replaces the process environment for credential and override
// resolution. Tests use this to avoid mutating real environment state.
func WithEnvLookup(lookup config.LookupFunc) Option {
	return func(o *options) { o.lookup = lookup }
}

// Generate assembles the semantic model described by cfg and returns it as a
// YAML string. A warehouse session is opened from the snowflake config block
// unless one is supplied via WithConnection; sessions opened here are closed
// before returning.
func Generate(ctx context.Context, cfg Config, opts ...Option) (string, error) {
	model, err := Build(ctx, cfg, opts...)
	if err != nil {
		return "", err
	}
	return model.EncodeYAML()
}

// Build is Generate without the final YAML rendering.
func Build(ctx context.Context, cfg Config, opts ...Option) (*Model, error) {
	o := options{lookup: os.LookupEnv, logWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Finalize(cfg, o.lookup)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = observability.NewLogger(cfg.Observability, o.logWriter)
	}

	db := o.conn
	if db == nil {
		opened, err := snowflake.Open(ctx, cfg.Snowflake)
		if err != nil {
			return nil, fmt.Errorf("connect to snowflake: %w", err)
		}
		defer func() { _ = opened.Close() }()
		db = opened
	}

	var gen semantic.DescriptionGenerator
	if cfg.LLM != nil {
		g, err := llm.New(*cfg.LLM, llm.Deps{Lookup: o.lookup, Conn: db}, logger)
		if err != nil {
			return nil, err
		}
		gen = g
	}

	assembler := semantic.NewAssembler(
		snowflake.NewRepository(db),
		gen,
		semantic.Options{
			Name:          cfg.SemanticModel.Name,
			BaseTables:    cfg.SemanticModel.BaseTables,
			NSampleValues: cfg.SemanticModel.NSampleValues,
			AllowJoins:    cfg.SemanticModel.AllowJoins,
			BestEffort:    cfg.SemanticModel.BestEffort,
			Workers:       cfg.SemanticModel.Workers,
		},
		logger,
	)
	return assembler.Build(ctx)
}

// GenerateFromFile loads a configuration file and generates the model YAML.
func GenerateFromFile(ctx context.Context, configPath string, opts ...Option) (string, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return "", err
	}
	return Generate(ctx, cfg, opts...)
}

// ParseModel loads a semantic model back from its YAML form.
func ParseModel(data []byte) (*Model, error) {
	return semantic.DecodeYAML(data)
}

// ParseModelFile loads a semantic model from a YAML file.
func ParseModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return semantic.DecodeYAML(data)
}
