package publish

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

const YAMLContentType = "application/x-yaml"

// Sink persists a generated semantic model document.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ModelKey derives the object key for a generated model: the model name,
// lowercased, with a UTC timestamp so repeated runs do not overwrite each
// other.
func ModelKey(modelName string, now time.Time) string {
	name := strings.ToLower(strings.TrimSpace(modelName))
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%s/%s.yaml", name, now.UTC().Format("20060102T150405Z"))
}

// CleanKey rejects empty and traversal-shaped keys and strips a leading
// slash.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return cleaned, nil
}
