package llm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/semgen/semgen/internal/config"
)

// Snowflake rejects oversized statements; prompts are capped well below the
// limit.
const cortexMaxPromptLen = 10000

// cortexProvider runs inference through the warehouse session itself via
// SNOWFLAKE.CORTEX.COMPLETE. No credential beyond the open connection is
// needed.
type cortexProvider struct {
	db      *sql.DB
	model   string
	timeout time.Duration
}

func newCortexProvider(cfg config.LLMConfig, db *sql.DB) (*cortexProvider, error) {
	if db == nil {
		return nil, fmt.Errorf("cortex provider requires an open snowflake connection")
	}
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &cortexProvider{db: db, model: cfg.Model, timeout: timeout}, nil
}

func (p *cortexProvider) Name() string { return config.ProviderCortex }

func (p *cortexProvider) GenerateDescription(ctx context.Context, req Request) (string, error) {
	prompt := systemPrompt + "\n\n" + BuildPrompt(req)
	if len(prompt) > cortexMaxPromptLen {
		prompt = prompt[:cortexMaxPromptLen]
	}

	queryCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var completion sql.NullString
	row := p.db.QueryRowContext(queryCtx, "SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?)", p.model, prompt)
	if err := row.Scan(&completion); err != nil {
		return "", &ProviderError{
			Provider: p.Name(),
			Err:      fmt.Errorf("cortex complete: %w", err),
			Timeout:  isTimeout(err),
		}
	}
	text := strings.TrimSpace(completion.String)
	if !completion.Valid || text == "" {
		return "", &ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty cortex completion")}
	}
	return text, nil
}
