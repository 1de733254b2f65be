package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) GenerateDescription(ctx context.Context, req Request) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func testRequest() Request {
	return Request{
		EntityName:    "ORDERS.ORDER_ID",
		EntityKind:    KindColumn,
		SampleValues:  []string{"1001", "1002"},
		SchemaContext: "Table SALES.PUBLIC.ORDERS with columns:\n- ORDER_ID (NUMBER)",
	}
}

func TestGeneratePrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "cortex", text: "Unique order identifier."}
	fallback := &stubProvider{name: "openai", text: "unused"}
	gen := NewGenerator(primary, fallback, nil)

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Provider != "cortex" {
		t.Fatalf("Provider = %q, want primary", result.Provider)
	}
	if result.Text != "Unique order identifier." {
		t.Fatalf("Text = %q", result.Text)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestGenerateFallbackOnPrimaryFailure(t *testing.T) {
	primary := &stubProvider{name: "cortex", err: &ProviderError{Provider: "cortex", Err: fmt.Errorf("boom")}}
	fallback := &stubProvider{name: "openai", text: "Order identifier."}
	gen := NewGenerator(primary, fallback, nil)

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Provider != "openai" {
		t.Fatalf("Provider = %q, want fallback", result.Provider)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestGenerateBothFail(t *testing.T) {
	primaryErr := &ProviderError{Provider: "cortex", Err: fmt.Errorf("boom")}
	fallbackErr := &ProviderError{Provider: "openai", Err: fmt.Errorf("also boom")}
	gen := NewGenerator(
		&stubProvider{name: "cortex", err: primaryErr},
		&stubProvider{name: "openai", err: fallbackErr},
		nil,
	)

	_, err := gen.Generate(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected generation error")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %T, want *GenerationError", err)
	}
	if !errors.Is(genErr.Primary, primaryErr) {
		t.Fatalf("Primary = %v, want original primary cause", genErr.Primary)
	}
	if !errors.Is(genErr.Fallback, fallbackErr) {
		t.Fatalf("Fallback = %v, want original fallback cause", genErr.Fallback)
	}
	if !errors.Is(err, primaryErr) {
		t.Fatal("GenerationError should unwrap to the primary cause")
	}
}

func TestGenerateNoFallbackPropagatesPrimaryError(t *testing.T) {
	primaryErr := &ProviderError{Provider: "anthropic", Err: fmt.Errorf("timeout"), Timeout: true}
	gen := NewGenerator(&stubProvider{name: "anthropic", err: primaryErr}, nil, nil)

	_, err := gen.Generate(context.Background(), testRequest())
	if !errors.Is(err, primaryErr) {
		t.Fatalf("error = %v, want primary provider error unchanged", err)
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		t.Fatal("no fallback configured: error must not be a GenerationError")
	}
}
