package application

import (
	"fmt"
	"strings"
)

// MaxPageSize bounds the page size accepted from users and remote callers.
const MaxPageSize = 1000

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "parentKey" -> "parent key")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"key":       "key",
		"parentKey": "parent key",
		"state":     "check state",
		"pageSize":  "page size",
		"maxPages":  "max pages",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}

	return fieldName
}

// ValidatePageSize checks that n is a usable page size.
func ValidatePageSize(fieldName string, n int) error {
	if n < 1 || n > MaxPageSize {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be between 1 and %d, got: %d", formatFieldName(fieldName), MaxPageSize, n),
		}
	}
	return nil
}

// ValidateNonNegative checks that n is zero or positive.
func ValidateNonNegative(fieldName string, n int) error {
	if n < 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must not be negative, got: %d", formatFieldName(fieldName), n),
		}
	}
	return nil
}

// ResolveNode looks up a materialized node by key. The empty key resolves
// to the root.
func ResolveNode(m *LazyTreeModel, key string) (*Node, error) {
	if key == "" || key == m.Root().Key {
		return m.Root(), nil
	}
	node, ok := m.FindByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not loaded", ErrNotFound, key)
	}
	return node, nil
}
