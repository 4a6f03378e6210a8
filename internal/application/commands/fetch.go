package commands

import (
	"context"
	"fmt"

	"catalogtree/internal/application"
)

// FetchMoreResult describes the page a fetch added
type FetchMoreResult struct {
	Key     string
	Added   int
	Total   int
	HasMore bool
	Message string
}

// FetchMoreCommand fetches the next page of a materialized node
type FetchMoreCommand struct {
	model *application.LazyTreeModel
	Key   string
}

// NewFetchMoreCommand creates a new FetchMoreCommand
func NewFetchMoreCommand(model *application.LazyTreeModel, key string) *FetchMoreCommand {
	return &FetchMoreCommand{
		model: model,
		Key:   key,
	}
}

// Validate checks that the node is loaded and pageable
func (c *FetchMoreCommand) Validate() error {
	node, err := application.ResolveNode(c.model, c.Key)
	if err != nil {
		return err
	}
	if node.Sentinel || !node.Expandable {
		return &application.ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("%s has no children to fetch", displayKey(c.Key)),
		}
	}
	return nil
}

// Execute runs the fetch. A fully loaded node is reported, not refetched.
func (c *FetchMoreCommand) Execute(ctx context.Context) (*FetchMoreResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	node, _ := application.ResolveNode(c.model, c.Key)

	before := dataChildren(node)
	if err := c.model.FetchMore(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}
	return pageResult(c.Key, before, node), nil
}

// ActivateSentinelCommand activates the load-more row of a node
type ActivateSentinelCommand struct {
	model     *application.LazyTreeModel
	ParentKey string
}

// NewActivateSentinelCommand creates a new ActivateSentinelCommand
func NewActivateSentinelCommand(model *application.LazyTreeModel, parentKey string) *ActivateSentinelCommand {
	return &ActivateSentinelCommand{
		model:     model,
		ParentKey: parentKey,
	}
}

// Validate checks that the parent is loaded
func (c *ActivateSentinelCommand) Validate() error {
	_, err := application.ResolveNode(c.model, c.ParentKey)
	return err
}

// Execute activates the row. A parent without one yields ErrNotSentinel.
func (c *ActivateSentinelCommand) Execute(ctx context.Context) (*FetchMoreResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	parent, _ := application.ResolveNode(c.model, c.ParentKey)

	before := dataChildren(parent)
	if err := c.model.ActivateSentinel(ctx, parent.LastChild()); err != nil {
		return nil, fmt.Errorf("failed to load more: %w", err)
	}
	return pageResult(c.ParentKey, before, parent), nil
}

func pageResult(key string, before int, node *application.Node) *FetchMoreResult {
	total := dataChildren(node)
	res := &FetchMoreResult{
		Key:     key,
		Added:   total - before,
		Total:   total,
		HasMore: node.HasSentinel(),
	}
	switch {
	case res.HasMore:
		res.Message = fmt.Sprintf("Loaded %d children of %s, more available", total, displayKey(key))
	default:
		res.Message = fmt.Sprintf("Loaded all %d children of %s", total, displayKey(key))
	}
	return res
}

func dataChildren(node *application.Node) int {
	n := node.ChildCount()
	if node.HasSentinel() {
		n--
	}
	return n
}

func displayKey(key string) string {
	if key == "" {
		return "root"
	}
	return key
}
