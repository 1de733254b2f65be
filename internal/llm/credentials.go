package llm

import (
	"os"
	"strings"

	"github.com/semgen/semgen/internal/config"
)

// Environment variables consulted when a credential is absent from the config.
const (
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	envAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// CredentialResolver resolves provider credentials from explicit config
// values with environment fallback. The lookup function is injected so tests
// can supply a fake environment without touching process state.
type CredentialResolver struct {
	lookup config.LookupFunc
}

func NewCredentialResolver(lookup config.LookupFunc) *CredentialResolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &CredentialResolver{lookup: lookup}
}

// Resolve returns the explicit value when non-empty, otherwise the value of
// envVar. A MissingCredentialError is returned when neither is set.
func (r *CredentialResolver) Resolve(provider, field, explicit, envVar string) (string, error) {
	if value := strings.TrimSpace(explicit); value != "" {
		return value, nil
	}
	if envVar != "" {
		if value, ok := r.lookup(envVar); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", &MissingCredentialError{Provider: provider, Field: field, EnvVar: envVar}
}
