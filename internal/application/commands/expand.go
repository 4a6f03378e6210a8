package commands

import (
	"context"
	"fmt"

	"catalogtree/internal/application"
)

// ExpandResult summarizes how much of a subtree was loaded
type ExpandResult struct {
	Key      string
	Nodes    int
	Pages    int
	Complete bool // Every visited branch is fully loaded
}

// ExpandCommand loads a subtree down to Depth levels below Key. Each branch
// gets at most MaxPages pages (0 loads everything).
type ExpandCommand struct {
	model    *application.LazyTreeModel
	Key      string
	Depth    int
	MaxPages int
}

// NewExpandCommand creates a new ExpandCommand
func NewExpandCommand(model *application.LazyTreeModel, key string, depth, maxPages int) *ExpandCommand {
	return &ExpandCommand{
		model:    model,
		Key:      key,
		Depth:    depth,
		MaxPages: maxPages,
	}
}

// Validate checks the limits and the start node
func (c *ExpandCommand) Validate() error {
	if err := application.ValidateNonNegative("depth", c.Depth); err != nil {
		return err
	}
	if err := application.ValidateNonNegative("maxPages", c.MaxPages); err != nil {
		return err
	}
	_, err := application.ResolveNode(c.model, c.Key)
	return err
}

// Execute loads the subtree breadth first
func (c *ExpandCommand) Execute(ctx context.Context) (*ExpandResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	start, _ := application.ResolveNode(c.model, c.Key)

	res := &ExpandResult{Key: c.Key, Complete: true}
	level := []*application.Node{start}
	for depth := 0; depth <= c.Depth && len(level) > 0; depth++ {
		var next []*application.Node
		for _, node := range level {
			pages, err := c.model.LoadAll(ctx, node, c.MaxPages)
			res.Pages += pages
			if err != nil {
				return res, fmt.Errorf("failed to expand %s: %w", displayKey(node.Key), err)
			}
			if c.model.CanFetchMore(node) {
				res.Complete = false
			}
			node.Expand()
			for _, child := range node.Children() {
				if child.Sentinel {
					continue
				}
				res.Nodes++
				if child.Expandable {
					next = append(next, child)
				}
			}
		}
		level = next
	}
	return res, nil
}
