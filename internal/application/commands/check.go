package commands

import (
	"context"
	"fmt"

	"catalogtree/internal/application"
)

// SetCheckedResult contains the states after a selection change
type SetCheckedResult struct {
	Key       string
	State     application.CheckState
	RootState application.CheckState
	Message   string
}

// SetCheckedCommand checks or unchecks a node and everything loaded below it
type SetCheckedCommand struct {
	model *application.LazyTreeModel
	Key   string
	State string

	parsed application.CheckState
}

// NewSetCheckedCommand creates a new SetCheckedCommand
func NewSetCheckedCommand(model *application.LazyTreeModel, key, state string) *SetCheckedCommand {
	return &SetCheckedCommand{
		model: model,
		Key:   key,
		State: state,
	}
}

// Validate checks the state and the target node
func (c *SetCheckedCommand) Validate() error {
	if err := application.ValidateRequired("state", c.State); err != nil {
		return err
	}
	state, err := application.ParseCheckState(c.State)
	if err != nil {
		return &application.ValidationError{Field: "state", Message: err.Error()}
	}
	c.parsed = state

	node, err := application.ResolveNode(c.model, c.Key)
	if err != nil {
		return err
	}
	if node.Sentinel {
		return &application.ValidationError{Field: "key", Message: "load-more rows cannot be checked"}
	}
	return nil
}

// Execute applies the change
func (c *SetCheckedCommand) Execute(ctx context.Context) (*SetCheckedResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	node, _ := application.ResolveNode(c.model, c.Key)
	c.model.SetChecked(node, c.parsed)

	return &SetCheckedResult{
		Key:       c.Key,
		State:     node.CheckState(),
		RootState: c.model.Root().CheckState(),
		Message:   fmt.Sprintf("%s is now %s", displayKey(c.Key), node.CheckState()),
	}, nil
}
