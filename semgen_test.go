package semgen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func emptyLookup(string) (string, bool) { return "", false }

func testConfig() Config {
	return Config{
		Snowflake: SnowflakeConfig{Account: "acme-xy12345", User: "SVC_SEMGEN"},
		SemanticModel: SemanticModelConfig{
			Name:       "sales_model",
			BaseTables: []string{"sales.public.orders"},
		},
	}
}

func TestGenerateWithConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM SALES.information_schema.columns").
		WithArgs("PUBLIC", "ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "comment"}).
			AddRow("ORDER_ID", "NUMBER", "Unique order identifier"))
	mock.ExpectQuery(`SELECT DISTINCT "ORDER_ID"`).
		WillReturnRows(sqlmock.NewRows([]string{"ORDER_ID"}).AddRow(int64(1001)))

	out, err := Generate(context.Background(), testConfig(),
		WithConnection(db),
		WithEnvLookup(emptyLookup),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(out, "name: sales_model") {
		t.Fatalf("output missing model name:\n%s", out)
	}
	if !strings.Contains(out, "ORDER_ID") {
		t.Fatalf("output missing column:\n%s", out)
	}
	// without an llm block the warehouse comment is the description
	if !strings.Contains(out, "Unique order identifier") {
		t.Fatalf("output missing comment description:\n%s", out)
	}

	model, err := ParseModel([]byte(out))
	if err != nil {
		t.Fatalf("ParseModel() error = %v", err)
	}
	if len(model.Tables) != 1 || model.Tables[0].Name != "ORDERS" {
		t.Fatalf("parsed model = %+v", model)
	}

	// connection supplied by the caller stays open
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticModel.BaseTables = nil
	if _, err := Generate(context.Background(), cfg, WithEnvLookup(emptyLookup)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigAndParseModelFile(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "semgen.yaml")
	configBody := `snowflake:
  account: acme-xy12345
  user: SVC_SEMGEN
semantic_model:
  name: sales_model
  base_tables:
    - sales.public.orders
`
	if err := os.WriteFile(configPath, []byte(configBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.SemanticModel.Name != "sales_model" {
		t.Fatalf("Name = %q", cfg.SemanticModel.Name)
	}

	modelPath := filepath.Join(dir, "model.yaml")
	modelBody := "name: sales_model\ntables: []\n"
	if err := os.WriteFile(modelPath, []byte(modelBody), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	model, err := ParseModelFile(modelPath)
	if err != nil {
		t.Fatalf("ParseModelFile() error = %v", err)
	}
	if model.Name != "sales_model" {
		t.Fatalf("Name = %q", model.Name)
	}
}
