package llm

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/semgen/semgen/internal/config"
)

func cortexTestConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider: config.ProviderCortex,
		Model:    "llama3-8b",
		Timeout:  config.Duration(5 * time.Second),
	}
}

func TestCortexGenerateDescription(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"complete"}).AddRow(" Order identifier. "))

	p, err := newCortexProvider(cortexTestConfig(), db)
	if err != nil {
		t.Fatalf("newCortexProvider() error = %v", err)
	}
	text, err := p.GenerateDescription(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateDescription() error = %v", err)
	}
	if text != "Order identifier." {
		t.Fatalf("text = %q", text)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCortexEmptyCompletion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"complete"}).AddRow(""))

	p, err := newCortexProvider(cortexTestConfig(), db)
	if err != nil {
		t.Fatalf("newCortexProvider() error = %v", err)
	}
	_, err = p.GenerateDescription(context.Background(), testRequest())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T, want *ProviderError", err)
	}
	if pe.Provider != config.ProviderCortex {
		t.Fatalf("Provider = %q", pe.Provider)
	}
}

func TestCortexQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?)")).
		WillReturnError(errors.New("warehouse suspended"))

	p, err := newCortexProvider(cortexTestConfig(), db)
	if err != nil {
		t.Fatalf("newCortexProvider() error = %v", err)
	}
	_, err = p.GenerateDescription(context.Background(), testRequest())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T, want *ProviderError", err)
	}
}

func TestCortexRequiresConnection(t *testing.T) {
	if _, err := newCortexProvider(cortexTestConfig(), nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
