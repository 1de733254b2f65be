package semantic

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Model is the semantic model document serialized to YAML. It grounds
// natural-language-to-SQL tooling with table and column descriptions.
type Model struct {
	Name          string         `yaml:"name" json:"name"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Tables        []Table        `yaml:"tables" json:"tables"`
	Relationships []Relationship `yaml:"relationships,omitempty" json:"relationships,omitempty"`
}

type Table struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	BaseTable   BaseTable `yaml:"base_table" json:"base_table"`
	Columns     []Column  `yaml:"columns" json:"columns"`
}

type BaseTable struct {
	Database string `yaml:"database" json:"database"`
	Schema   string `yaml:"schema" json:"schema"`
	Table    string `yaml:"table" json:"table"`
}

type Column struct {
	Name         string   `yaml:"name" json:"name"`
	Type         string   `yaml:"type" json:"type"`
	Description  string   `yaml:"description" json:"description"`
	SampleValues []string `yaml:"sample_values,omitempty" json:"sample_values,omitempty"`
}

// Relationship entries are emitted as placeholders when joins are allowed;
// the user fills in the join semantics by hand.
type Relationship struct {
	Name             string   `yaml:"name" json:"name"`
	LeftTable        string   `yaml:"left_table" json:"left_table"`
	RightTable       string   `yaml:"right_table" json:"right_table"`
	JoinType         string   `yaml:"join_type" json:"join_type"`
	RelationshipType string   `yaml:"relationship_type" json:"relationship_type"`
	Columns          []string `yaml:"relationship_columns,omitempty" json:"relationship_columns,omitempty"`
}

// EncodeYAML renders the model document as YAML with two-space indentation.
func (m *Model) EncodeYAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("encode semantic model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flush semantic model encoder: %w", err)
	}
	return buf.String(), nil
}

// DecodeYAML loads a semantic model document back from its YAML form.
func DecodeYAML(data []byte) (*Model, error) {
	var model Model
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode semantic model: %w", err)
	}
	if model.Name == "" {
		return nil, fmt.Errorf("semantic model has no name")
	}
	return &model, nil
}
