package application

import (
	"fmt"
	"strings"

	"catalogtree/internal/domain"
)

// Role selects which datum ItemModel.Data returns.
type Role int

const (
	DisplayRole Role = iota
	KeyRole
	CheckStateRole
	ToolTipRole
)

// ItemFlags describe what a view may do with a row.
type ItemFlags uint8

const (
	ItemEnabled ItemFlags = 1 << iota
	ItemSelectable
	ItemUserCheckable
	ItemAutoTristate
	ItemNeverHasChildren
)

// Has reports whether all bits of f2 are set in f.
func (f ItemFlags) Has(f2 ItemFlags) bool {
	return f&f2 == f2
}

// ItemModel is the toolkit independent surface a view binds to.
type ItemModel interface {
	RowCount(node *domain.Node) int
	Data(node *domain.Node, role Role) any
	Flags(node *domain.Node) ItemFlags
}

var _ ItemModel = (*LazyTreeModel)(nil)

// RowCount returns the number of rows under node, load-more row included.
func (m *LazyTreeModel) RowCount(node *domain.Node) int {
	if node == nil {
		return 0
	}
	return node.ChildCount()
}

// Data returns the datum for role, or nil when the role does not apply.
func (m *LazyTreeModel) Data(node *domain.Node, role Role) any {
	if node == nil {
		return nil
	}
	switch role {
	case DisplayRole:
		return node.Name
	case KeyRole:
		if node.Sentinel {
			return nil
		}
		return node.Key
	case CheckStateRole:
		if node.Sentinel {
			return nil
		}
		return node.CheckState()
	case ToolTipRole:
		return m.tooltip(node)
	}
	return nil
}

// Flags returns the interaction flags for node.
func (m *LazyTreeModel) Flags(node *domain.Node) ItemFlags {
	if node == nil {
		return 0
	}
	if node.Sentinel {
		return ItemEnabled | ItemSelectable | ItemNeverHasChildren
	}
	flags := ItemEnabled | ItemSelectable | ItemUserCheckable
	if node.Expandable {
		flags |= ItemAutoTristate
	} else {
		flags |= ItemNeverHasChildren
	}
	return flags
}

func (m *LazyTreeModel) tooltip(node *domain.Node) string {
	if node.Sentinel {
		if p := node.Parent(); p != nil {
			return fmt.Sprintf("%d loaded, more available", p.ChildCount()-1)
		}
		return ""
	}
	var parts []string
	if node.Key != "" {
		parts = append(parts, node.Key)
	}
	if node.Expandable {
		parts = append(parts, m.State(node).String())
	}
	for _, k := range []string{"size", "mtime"} {
		if v, ok := node.Metadata[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " · ")
}
