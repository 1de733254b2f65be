package llm

import "fmt"

// MissingCredentialError reports a provider credential that is neither set in
// the configuration nor resolvable from the environment. It surfaces at
// construction time, before any network call.
type MissingCredentialError struct {
	Provider string
	Field    string
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	if e.EnvVar == "" {
		return fmt.Sprintf("%s: %s must be set in the llm config", e.Provider, e.Field)
	}
	return fmt.Sprintf("%s: %s must be set in the llm config or via %s", e.Provider, e.Field, e.EnvVar)
}

// ProviderError wraps a single provider call failure: transport error, auth
// rejection, timeout or malformed response.
type ProviderError struct {
	Provider string
	Err      error
	Timeout  bool
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %s: timeout: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationError is returned when both the primary and the fallback provider
// failed for a single description request.
type GenerationError struct {
	Primary  error
	Fallback error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("description generation failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *GenerationError) Unwrap() error { return e.Primary }
