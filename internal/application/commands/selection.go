package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"catalogtree/internal/application"
)

// SelectionEntry is one selected node
type SelectionEntry struct {
	Key        string            `json:"key" yaml:"key"`
	Name       string            `json:"name" yaml:"name"`
	Path       string            `json:"path" yaml:"path"`
	Expandable bool              `json:"expandable,omitempty" yaml:"expandable,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SelectionCommand lists the checked nodes
type SelectionCommand struct {
	model *application.LazyTreeModel
	Mode  string
}

// NewSelectionCommand creates a new SelectionCommand
func NewSelectionCommand(model *application.LazyTreeModel, mode string) *SelectionCommand {
	return &SelectionCommand{
		model: model,
		Mode:  mode,
	}
}

// Validate checks the selection mode
func (c *SelectionCommand) Validate() error {
	_, err := application.ParseSelectionMode(c.Mode)
	return err
}

// Execute returns the selection in display order
func (c *SelectionCommand) Execute(ctx context.Context) ([]SelectionEntry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	mode, _ := application.ParseSelectionMode(c.Mode)

	nodes := c.model.Selection(mode)
	entries := make([]SelectionEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, SelectionEntry{
			Key:        n.Key,
			Name:       n.Name,
			Path:       namePath(n),
			Expandable: n.Expandable,
			Metadata:   n.Metadata,
		})
	}
	return entries, nil
}

// selectionDocument is the exported file layout
type selectionDocument struct {
	Mode     string           `json:"mode" yaml:"mode"`
	Count    int              `json:"count" yaml:"count"`
	Selected []SelectionEntry `json:"selected" yaml:"selected"`
}

// ExportSelectionCommand writes the selection as YAML or JSON
type ExportSelectionCommand struct {
	model  *application.LazyTreeModel
	Mode   string
	Format string
	out    io.Writer
}

// NewExportSelectionCommand creates a new ExportSelectionCommand
func NewExportSelectionCommand(model *application.LazyTreeModel, mode, format string, w io.Writer) *ExportSelectionCommand {
	return &ExportSelectionCommand{
		model:  model,
		Mode:   mode,
		Format: format,
		out:    w,
	}
}

// Validate checks the mode and format
func (c *ExportSelectionCommand) Validate() error {
	if _, err := application.ParseSelectionMode(c.Mode); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "yaml", "yml", "json":
		return nil
	}
	return &application.ValidationError{
		Field:   "format",
		Message: fmt.Sprintf("expected yaml or json, got: %s", c.Format),
	}
}

// Execute writes the document and returns the number of entries
func (c *ExportSelectionCommand) Execute(ctx context.Context) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	entries, err := NewSelectionCommand(c.model, c.Mode).Execute(ctx)
	if err != nil {
		return 0, err
	}

	mode := c.Mode
	if mode == "" {
		mode = "roots"
	}
	doc := selectionDocument{Mode: mode, Count: len(entries), Selected: entries}

	switch strings.ToLower(c.Format) {
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	default:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		err = enc.Encode(doc)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write selection: %w", err)
	}
	return len(entries), nil
}

// namePath joins display names from the first level below the root.
func namePath(n *application.Node) string {
	var parts []string
	for a := n; a != nil && !a.IsRoot(); a = a.Parent() {
		parts = append(parts, a.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
