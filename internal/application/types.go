package application

import "catalogtree/internal/domain"

// Re-export check states for use by adapters
type CheckState = domain.CheckState

const (
	Unchecked        = domain.Unchecked
	PartiallyChecked = domain.PartiallyChecked
	Checked          = domain.Checked
)

// Re-export domain types for use by adapters
type (
	Node = domain.Node
	Item = domain.Item
	Page = domain.Page
)

// ParseCheckState parses a user supplied check state
func ParseCheckState(s string) (CheckState, error) {
	return domain.ParseCheckState(s)
}

// ParseSelectionMode parses "roots" or "leaves".
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch s {
	case "", "roots":
		return SelectRoots, nil
	case "leaves":
		return SelectLeaves, nil
	}
	return SelectRoots, &ValidationError{Field: "mode", Message: "expected roots or leaves, got: " + s}
}
