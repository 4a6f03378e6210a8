package domain

import "testing"

func buildNode(t *testing.T, parent *Node, names ...string) []*Node {
	t.Helper()
	var out []*Node
	for _, name := range names {
		c := NewNode(name, parent.Key+"/"+name, false)
		if !parent.AppendChild(c) {
			t.Fatalf("append %s failed", name)
		}
		out = append(out, c)
	}
	return out
}

func assertOwnership(t *testing.T, root *Node) {
	t.Helper()
	root.Walk(func(n *Node) bool {
		seen := map[*Node]int{}
		for _, c := range n.Children() {
			if c.Parent() != n {
				t.Errorf("child %q of %q has parent %v", c.Key, n.Key, c.Parent())
			}
			seen[c]++
		}
		for c, count := range seen {
			if count != 1 {
				t.Errorf("child %q appears %d times under %q", c.Key, count, n.Key)
			}
		}
		return true
	})
}

func TestInsertChild(t *testing.T) {
	tests := []struct {
		name    string
		pos     int
		wantOK  bool
		wantSeq []string
	}{
		{name: "front", pos: 0, wantOK: true, wantSeq: []string{"x", "a", "b"}},
		{name: "middle", pos: 1, wantOK: true, wantSeq: []string{"a", "x", "b"}},
		{name: "end", pos: 2, wantOK: true, wantSeq: []string{"a", "b", "x"}},
		{name: "negative", pos: -1, wantOK: false, wantSeq: []string{"a", "b"}},
		{name: "past end", pos: 3, wantOK: false, wantSeq: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewNode("root", "", true)
			buildNode(t, root, "a", "b")
			x := NewNode("x", "/x", false)

			ok := root.InsertChild(tt.pos, x)
			if ok != tt.wantOK {
				t.Fatalf("InsertChild(%d) = %v, want %v", tt.pos, ok, tt.wantOK)
			}

			var got []string
			for _, c := range root.Children() {
				got = append(got, c.Name)
			}
			if len(got) != len(tt.wantSeq) {
				t.Fatalf("children = %v, want %v", got, tt.wantSeq)
			}
			for i := range got {
				if got[i] != tt.wantSeq[i] {
					t.Fatalf("children = %v, want %v", got, tt.wantSeq)
				}
			}

			if tt.wantOK && x.Parent() != root {
				t.Error("inserted child does not point at its parent")
			}
			if !tt.wantOK && x.Parent() != nil {
				t.Error("rejected child was attached")
			}
			assertOwnership(t, root)
		})
	}
}

func TestInsertChild_RejectsOwnedAndCycles(t *testing.T) {
	root := NewNode("root", "", true)
	kids := buildNode(t, root, "a")
	a := kids[0]

	if root.AppendChild(a) {
		t.Error("re-inserting an owned child should fail")
	}
	if a.AppendChild(root) {
		t.Error("inserting an ancestor should fail")
	}
	if a.AppendChild(a) {
		t.Error("inserting a node into itself should fail")
	}
	if root.AppendChild(nil) {
		t.Error("inserting nil should fail")
	}
	assertOwnership(t, root)
}

func TestSentinelPlacement(t *testing.T) {
	root := NewNode("root", "", true)
	buildNode(t, root, "a", "b")

	if !root.AppendChild(NewSentinel("more")) {
		t.Fatal("appending the first sentinel should succeed")
	}
	if !root.HasSentinel() {
		t.Fatal("HasSentinel should be true")
	}
	if root.AppendChild(NewSentinel("more")) {
		t.Error("a second sentinel must be rejected")
	}
	if root.AppendChild(NewNode("c", "/c", false)) {
		t.Error("a data node after the sentinel must be rejected")
	}
	if !root.InsertChild(2, NewNode("c", "/c", false)) {
		t.Error("a data node before the sentinel should be accepted")
	}
	if root.InsertChild(0, NewSentinel("more")) {
		t.Error("a sentinel not in last position must be rejected")
	}

	if !root.LastChild().Sentinel {
		t.Error("sentinel must stay last")
	}
	if root.ChildCount() != 4 {
		t.Errorf("ChildCount = %d, want 4", root.ChildCount())
	}
}

func TestRemoveChild(t *testing.T) {
	root := NewNode("root", "", true)
	kids := buildNode(t, root, "a", "b", "c")

	removed, ok := root.RemoveChild(1)
	if !ok || removed != kids[1] {
		t.Fatalf("RemoveChild(1) = %v, %v", removed, ok)
	}
	if removed.Parent() != nil {
		t.Error("removed child still references its parent")
	}
	if _, ok := root.RemoveChild(5); ok {
		t.Error("RemoveChild out of range should fail")
	}
	if _, ok := root.RemoveChild(-1); ok {
		t.Error("RemoveChild(-1) should fail")
	}
	if root.ChildCount() != 2 || root.Child(1) != kids[2] {
		t.Errorf("unexpected children after removal")
	}

	last := root.RemoveLastChild()
	if last != kids[2] {
		t.Errorf("RemoveLastChild = %v, want c", last)
	}
	root.RemoveLastChild()
	if root.RemoveLastChild() != nil {
		t.Error("RemoveLastChild on empty node should return nil")
	}
	if root.HasChildren() {
		t.Error("root should have no children left")
	}
}

func TestRowAndDepth(t *testing.T) {
	root := NewNode("root", "", true)
	kids := buildNode(t, root, "a", "b", "c")
	grand := buildNode(t, kids[2], "x", "y")

	if root.Row() != 0 {
		t.Errorf("root row = %d", root.Row())
	}
	for i, k := range kids {
		if k.Row() != i {
			t.Errorf("%s row = %d, want %d", k.Name, k.Row(), i)
		}
	}
	if grand[1].Row() != 1 || grand[1].Depth() != 2 {
		t.Errorf("y row=%d depth=%d", grand[1].Row(), grand[1].Depth())
	}
	if !root.IsRoot() || kids[0].IsRoot() {
		t.Error("IsRoot mismatch")
	}
}

func TestChildrenIsACopy(t *testing.T) {
	root := NewNode("root", "", true)
	buildNode(t, root, "a", "b")

	view := root.Children()
	view[0] = nil
	if root.Child(0) == nil {
		t.Error("mutating Children() result changed the node")
	}
}

func TestFlatten(t *testing.T) {
	root := NewNode("root", "", true)
	kids := buildNode(t, root, "a", "b")
	buildNode(t, kids[0], "a1", "a2")
	buildNode(t, kids[1], "b1")

	root.Expand()
	if got := len(root.Flatten()); got != 3 {
		t.Fatalf("collapsed children: got %d nodes, want 3", got)
	}

	kids[0].Expand()
	flat := root.Flatten()
	want := []string{"root", "a", "a1", "a2", "b"}
	if len(flat) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(flat), len(want))
	}
	for i, n := range flat {
		if n.Name != want[i] {
			t.Errorf("flat[%d] = %s, want %s", i, n.Name, want[i])
		}
	}

	kids[0].Toggle()
	if kids[0].Expanded {
		t.Error("Toggle should collapse an expanded node")
	}
}

func TestNewNodeFromItem_CopiesMetadata(t *testing.T) {
	item := Item{Key: "k", Name: "n", Expandable: true, Metadata: map[string]string{"size": "1"}}
	n := NewNodeFromItem(item)
	item.Metadata["size"] = "2"

	if n.Metadata["size"] != "1" {
		t.Error("node metadata should not alias the item map")
	}
	if !n.Expandable || n.Key != "k" || n.Name != "n" {
		t.Errorf("unexpected node %+v", n)
	}
}
