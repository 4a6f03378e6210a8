package domain

import (
	"fmt"
	"strings"
)

// CheckState is the tri-state selection flag of a node.
type CheckState int

const (
	Unchecked CheckState = iota
	PartiallyChecked
	Checked
)

func (s CheckState) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case PartiallyChecked:
		return "partial"
	case Checked:
		return "checked"
	default:
		return fmt.Sprintf("CheckState(%d)", int(s))
	}
}

// Mark returns the checkbox glyph used in text renderings.
func (s CheckState) Mark() string {
	switch s {
	case Checked:
		return "[x]"
	case PartiallyChecked:
		return "[-]"
	default:
		return "[ ]"
	}
}

// ParseCheckState accepts the String() forms, a few aliases and the numeric
// values 0, 1 and 2.
func ParseCheckState(s string) (CheckState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unchecked", "off", "false", "0":
		return Unchecked, nil
	case "partial", "partially-checked", "partially_checked", "1":
		return PartiallyChecked, nil
	case "checked", "on", "true", "2":
		return Checked, nil
	}
	return Unchecked, fmt.Errorf("unknown check state: %q", s)
}

// Derive computes a node's state from its materialized children. A node
// without children is a leaf and its stored state is authoritative.
func Derive(n *Node) CheckState {
	if !n.HasChildren() {
		return n.state
	}
	states := make([]CheckState, 0, len(n.children))
	for _, c := range n.children {
		if c.Sentinel {
			continue
		}
		states = append(states, Derive(c))
	}
	return Aggregate(states)
}

// DeriveShallow is Derive using the children's stored states, which is
// enough once every child is known to be consistent.
func DeriveShallow(n *Node) CheckState {
	if !n.HasChildren() {
		return n.state
	}
	states := make([]CheckState, 0, len(n.children))
	for _, c := range n.children {
		if !c.Sentinel {
			states = append(states, c.state)
		}
	}
	return Aggregate(states)
}

// Aggregate folds child states into a parent state.
func Aggregate(states []CheckState) CheckState {
	if len(states) == 0 {
		return Unchecked
	}
	allChecked, allUnchecked := true, true
	for _, s := range states {
		if s != Checked {
			allChecked = false
		}
		if s != Unchecked {
			allUnchecked = false
		}
	}
	switch {
	case allChecked:
		return Checked
	case allUnchecked:
		return Unchecked
	default:
		return PartiallyChecked
	}
}
