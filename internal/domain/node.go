package domain

import "fmt"

// Node is an entry in the lazily materialized catalog tree. A node owns its
// children exclusively; the parent reference is only used to walk upwards.
type Node struct {
	Name       string
	Key        string // Opaque provider key; empty for the root
	Expandable bool   // Children come from the provider rather than being known up front
	Traversed  bool   // Every page of children has been fetched
	Sentinel   bool   // Synthetic "load more" row
	Expanded   bool   // View state only
	Metadata   map[string]string

	state    CheckState
	parent   *Node
	children []*Node
}

// NewNode creates a detached data node.
func NewNode(name, key string, expandable bool) *Node {
	return &Node{
		Name:       name,
		Key:        key,
		Expandable: expandable,
	}
}

// NewNodeFromItem wraps a provider item descriptor in a detached node.
func NewNodeFromItem(item Item) *Node {
	n := NewNode(item.Name, item.Key, item.Expandable)
	if len(item.Metadata) > 0 {
		n.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			n.Metadata[k] = v
		}
	}
	return n
}

// NewSentinel creates a detached "load more" node.
func NewSentinel(label string) *Node {
	return &Node{
		Name:     label,
		Sentinel: true,
	}
}

// Parent returns the owning node, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// CheckState returns the stored selection state. For branch nodes the tree
// model keeps this equal to Derive(n).
func (n *Node) CheckState() CheckState {
	return n.state
}

// SetCheckState overwrites the stored state without touching relatives.
// Outside the tree model use LazyTreeModel.SetChecked instead.
func (n *Node) SetCheckState(s CheckState) {
	n.state = s
}

// ChildCount returns the number of children, sentinel included.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// HasChildren reports whether any child is materialized.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Child returns the child at index i, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// HasSentinel reports whether the last child is a "load more" row.
func (n *Node) HasSentinel() bool {
	last := n.LastChild()
	return last != nil && last.Sentinel
}

// Row returns the index of this node within its parent, 0 for a root.
func (n *Node) Row() int {
	if n.parent == nil {
		return 0
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	panic(fmt.Sprintf("domain: node %q missing from its parent's children", n.Key))
}

// InsertChild inserts child at pos and takes ownership of it. It returns
// false without mutating anything when pos is out of range, when child is
// already owned, when the insert would create a cycle, or when the insert
// would break the single trailing sentinel rule.
func (n *Node) InsertChild(pos int, child *Node) bool {
	if child == nil || child.parent != nil {
		return false
	}
	if pos < 0 || pos > len(n.children) {
		return false
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return false
		}
	}
	if child.Sentinel {
		if n.HasSentinel() || pos != len(n.children) {
			return false
		}
	} else if n.HasSentinel() && pos == len(n.children) {
		return false
	}

	n.children = append(n.children, nil)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = child
	child.parent = n
	return true
}

// AppendChild inserts child at the end.
func (n *Node) AppendChild(child *Node) bool {
	return n.InsertChild(len(n.children), child)
}

// RemoveChild detaches and returns the child at index.
func (n *Node) RemoveChild(index int) (*Node, bool) {
	if index < 0 || index >= len(n.children) {
		return nil, false
	}
	child := n.children[index]
	n.checkParent(child)

	copy(n.children[index:], n.children[index+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	child.parent = nil
	return child, true
}

// RemoveLastChild detaches and returns the last child, or nil when there is
// none.
func (n *Node) RemoveLastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	child, _ := n.RemoveChild(len(n.children) - 1)
	return child
}

// Walk visits n and its materialized descendants in pre-order. Returning
// false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	depth := 0
	for p := n.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Flatten returns the node followed by every visible descendant, in display
// order. Children of collapsed nodes are hidden.
func (n *Node) Flatten() []*Node {
	var result []*Node
	n.flattenRecursive(&result)
	return result
}

func (n *Node) flattenRecursive(result *[]*Node) {
	*result = append(*result, n)
	if n.Expanded {
		for _, child := range n.children {
			child.flattenRecursive(result)
		}
	}
}

// Toggle expands or collapses the node
func (n *Node) Toggle() {
	n.Expanded = !n.Expanded
}

// Expand marks the node as expanded
func (n *Node) Expand() {
	n.Expanded = true
}

// Collapse marks the node as collapsed
func (n *Node) Collapse() {
	n.Expanded = false
}

func (n *Node) checkParent(child *Node) {
	if child.parent != n {
		panic(fmt.Sprintf("domain: child %q of %q has a foreign parent", child.Key, n.Key))
	}
}
