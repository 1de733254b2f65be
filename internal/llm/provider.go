package llm

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/semgen/semgen/internal/config"
)

type EntityKind string

const (
	KindTable  EntityKind = "table"
	KindColumn EntityKind = "column"
)

// Request carries everything needed to describe one table or column. Built
// once per entity during assembly and immutable afterwards.
type Request struct {
	EntityName    string
	EntityKind    EntityKind
	SampleValues  []string
	SchemaContext string
}

// Provider is the uniform capability contract over the supported LLM
// backends.
type Provider interface {
	Name() string
	GenerateDescription(ctx context.Context, req Request) (string, error)
}

// Deps carries the collaborators a provider may need: the warehouse session
// for Cortex, an environment lookup for credential fallback, and an optional
// HTTP client override for tests.
type Deps struct {
	Lookup     config.LookupFunc
	Conn       *sql.DB
	HTTPClient *http.Client
}

const systemPrompt = "You are a helpful assistant for generating semantic model descriptions."

// BuildPrompt renders the fixed description prompt for a request. The output
// is deterministic for a given request; the only nondeterminism in a
// generation is the provider temperature.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise business description (one or two sentences) for the %s %q in a database semantic model.\n", req.EntityKind, req.EntityName)
	if req.SchemaContext != "" {
		b.WriteString("\nSchema context:\n")
		b.WriteString(req.SchemaContext)
		b.WriteString("\n")
	}
	if len(req.SampleValues) > 0 {
		b.WriteString("\nSample values: ")
		b.WriteString(strings.Join(req.SampleValues, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with the description only. No markdown, no preamble.")
	return b.String()
}

// newProvider is the single dispatch point over the closed set of provider
// kinds. Credentials are resolved here so misconfiguration fails before any
// network call.
func newProvider(cfg config.LLMConfig, deps Deps) (Provider, error) {
	resolver := NewCredentialResolver(deps.Lookup)

	switch cfg.Provider {
	case config.ProviderCortex:
		return newCortexProvider(cfg, deps.Conn)
	case config.ProviderOpenAI:
		apiKey, err := resolver.Resolve(cfg.Provider, "api_key", cfg.APIKey, envOpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		return newOpenAIProvider(cfg, apiKey, deps.HTTPClient), nil
	case config.ProviderAzureOpenAI:
		apiKey, err := resolver.Resolve(cfg.Provider, "api_key", cfg.APIKey, envAzureAPIKey)
		if err != nil {
			return nil, err
		}
		endpoint, err := resolver.Resolve(cfg.Provider, "api_endpoint", cfg.APIEndpoint, envAzureEndpoint)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.AzureDeploymentName) == "" {
			return nil, &MissingCredentialError{Provider: cfg.Provider, Field: "azure_deployment_name"}
		}
		return newAzureOpenAIProvider(cfg, apiKey, endpoint, deps.HTTPClient), nil
	case config.ProviderAnthropic:
		apiKey, err := resolver.Resolve(cfg.Provider, "api_key", cfg.APIKey, envAnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		return newAnthropicProvider(cfg, apiKey, deps.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
