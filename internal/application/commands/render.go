package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"catalogtree/internal/application"
)

// RenderTreeCommand writes the materialized subtree under Key as text, one
// node per line with its checkbox mark.
type RenderTreeCommand struct {
	model *application.LazyTreeModel
	Key   string
	out   io.Writer
}

// NewRenderTreeCommand creates a new RenderTreeCommand
func NewRenderTreeCommand(model *application.LazyTreeModel, key string, w io.Writer) *RenderTreeCommand {
	return &RenderTreeCommand{
		model: model,
		Key:   key,
		out:   w,
	}
}

// Validate checks the start node
func (c *RenderTreeCommand) Validate() error {
	_, err := application.ResolveNode(c.model, c.Key)
	return err
}

// Execute renders the tree
func (c *RenderTreeCommand) Execute(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	start, _ := application.ResolveNode(c.model, c.Key)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", start.CheckState().Mark(), start.Name)
	renderChildren(&sb, start, "")

	_, err := io.WriteString(c.out, sb.String())
	return err
}

func renderChildren(sb *strings.Builder, node *application.Node, prefix string) {
	children := node.Children()
	for i, child := range children {
		last := i == len(children)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}

		if child.Sentinel {
			fmt.Fprintf(sb, "%s%s%s\n", prefix, branch, child.Name)
			continue
		}

		name := child.Name
		if child.Expandable {
			name += "/"
		}
		fmt.Fprintf(sb, "%s%s%s %s\n", prefix, branch, child.CheckState().Mark(), name)
		renderChildren(sb, child, prefix+indent)
	}
}
