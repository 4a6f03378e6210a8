package application

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

const (
	// DefaultPageSize is the number of children requested per page.
	DefaultPageSize = 50

	DefaultSentinelLabel = "Load more…"
)

// NodeState is the paging state of a node.
type NodeState int

const (
	NodeStatic NodeState = iota // Not expandable; children are never fetched
	NodeUnfetched
	NodePartiallyLoaded
	NodeFullyLoaded
)

func (s NodeState) String() string {
	switch s {
	case NodeUnfetched:
		return "unfetched"
	case NodePartiallyLoaded:
		return "partially-loaded"
	case NodeFullyLoaded:
		return "fully-loaded"
	default:
		return "static"
	}
}

// SelectionMode controls which checked nodes Selection reports.
type SelectionMode int

const (
	// SelectRoots reports the highest fully checked nodes only.
	SelectRoots SelectionMode = iota
	// SelectLeaves reports every checked node without materialized children.
	SelectLeaves
)

type pageMark struct {
	token string // Token the page was requested with
	count int
}

type cursor struct {
	next  string
	pages []pageMark
}

// PageRequest is a snapshot of the next page a node would fetch. It lets a
// caller run the provider call off the UI loop and apply the result later.
type PageRequest struct {
	Node      *domain.Node
	Key       string
	PageToken string
	Limit     int

	generation uint64
}

// LazyTreeModel materializes a provider's tree one page at a time and keeps
// tri-state selection consistent. It is not safe for concurrent use; every
// call must come from the same goroutine or be serialized by the caller.
type LazyTreeModel struct {
	notifier

	provider      ports.ItemProvider
	log           logrus.FieldLogger
	root          *domain.Node
	pageSize      int
	sentinelLabel string
	cursors       map[*domain.Node]*cursor
	// generations counts the resets of each node; a request from an
	// earlier generation is never applied.
	generations map[*domain.Node]uint64
}

// ModelOption configures a LazyTreeModel.
type ModelOption func(*LazyTreeModel)

// WithPageSize sets the page size hint passed to the provider.
func WithPageSize(n int) ModelOption {
	return func(m *LazyTreeModel) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithLogger sets the logger used for anomalies and provider failures.
func WithLogger(l logrus.FieldLogger) ModelOption {
	return func(m *LazyTreeModel) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRoot names the root node and sets the key its first page is listed
// under.
func WithRoot(name, key string) ModelOption {
	return func(m *LazyTreeModel) {
		m.root.Name = name
		m.root.Key = key
	}
}

// WithSentinelLabel sets the display name of "load more" rows.
func WithSentinelLabel(label string) ModelOption {
	return func(m *LazyTreeModel) {
		m.sentinelLabel = label
	}
}

// NewLazyTreeModel creates a model whose root is an unfetched expandable
// node.
func NewLazyTreeModel(provider ports.ItemProvider, opts ...ModelOption) *LazyTreeModel {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	root := domain.NewNode("root", "", true)
	root.Expanded = true

	m := &LazyTreeModel{
		provider:      provider,
		log:           discard,
		root:          root,
		pageSize:      DefaultPageSize,
		sentinelLabel: DefaultSentinelLabel,
		cursors:       make(map[*domain.Node]*cursor),
		generations:   make(map[*domain.Node]uint64),
	}
	if namer, ok := provider.(ports.RootNamer); ok {
		root.Name = namer.RootName()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the root node.
func (m *LazyTreeModel) Root() *domain.Node {
	return m.root
}

// PageSize returns the configured page size.
func (m *LazyTreeModel) PageSize() int {
	return m.pageSize
}

// CanFetchMore reports whether node still has pages to fetch.
func (m *LazyTreeModel) CanFetchMore(node *domain.Node) bool {
	return node != nil && node.Expandable && !node.Traversed && !node.Sentinel
}

// State reports the paging state of node.
func (m *LazyTreeModel) State(node *domain.Node) NodeState {
	switch {
	case node == nil || !node.Expandable || node.Sentinel:
		return NodeStatic
	case node.Traversed:
		return NodeFullyLoaded
	case node.HasSentinel():
		return NodePartiallyLoaded
	default:
		return NodeUnfetched
	}
}

// FetchMore fetches exactly one page of node's children. It is a no-op when
// CanFetchMore is false. A provider failure leaves the tree untouched and
// is returned as a *ProviderError.
func (m *LazyTreeModel) FetchMore(ctx context.Context, node *domain.Node) error {
	req, ok := m.NextRequest(node)
	if !ok {
		return nil
	}
	page, err := m.Load(ctx, req)
	if err != nil {
		return err
	}
	return m.ApplyPage(req, page)
}

// NextRequest snapshots the page node would fetch next.
func (m *LazyTreeModel) NextRequest(node *domain.Node) (PageRequest, bool) {
	if !m.CanFetchMore(node) {
		return PageRequest{}, false
	}
	req := PageRequest{Node: node, Key: node.Key, Limit: m.pageSize, generation: m.generations[node]}
	if c := m.cursors[node]; c != nil {
		req.PageToken = c.next
	}
	return req, true
}

// Load performs the provider call for req. It reads no tree state and may
// run on any goroutine.
func (m *LazyTreeModel) Load(ctx context.Context, req PageRequest) (domain.Page, error) {
	page, err := m.provider.ListChildren(ctx, req.Key, req.PageToken, req.Limit)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"op":    "fetch_more",
			"key":   req.Key,
			"token": req.PageToken,
		}).WithError(err).Warn("provider failed to produce a page")
		return domain.Page{}, &ProviderError{Key: req.Key, PageToken: req.PageToken, Err: err}
	}
	return page, nil
}

// ApplyPage inserts a page loaded for req. It refuses pages that no longer
// match the node's cursor, for example after an invalidation.
func (m *LazyTreeModel) ApplyPage(req PageRequest, page domain.Page) error {
	node := req.Node
	if !m.attached(node) || !m.CanFetchMore(node) || req.generation != m.generations[node] {
		return &PreconditionError{Op: "apply_page", Key: req.Key, Reason: ErrInconsistentState}
	}
	c := m.cursors[node]
	expected := ""
	if c != nil {
		expected = c.next
	}
	if expected != req.PageToken {
		return &PreconditionError{Op: "apply_page", Key: req.Key, Reason: ErrInconsistentState}
	}
	if c == nil {
		c = &cursor{}
		m.cursors[node] = c
	}

	if node.HasSentinel() {
		row := node.ChildCount() - 1
		node.RemoveLastChild()
		m.emit(ChangeEvent{Kind: RowsRemoved, Parent: node, First: row, Last: row})
	}

	inherit := node.CheckState() == domain.Checked
	first := node.ChildCount()
	for _, item := range page.Items {
		child := domain.NewNodeFromItem(item)
		if inherit {
			child.SetCheckState(domain.Checked)
		}
		node.AppendChild(child)
	}
	if len(page.Items) > 0 {
		m.emit(ChangeEvent{Kind: RowsInserted, Parent: node, First: first, Last: first + len(page.Items) - 1})
	}
	c.pages = append(c.pages, pageMark{token: req.PageToken, count: len(page.Items)})

	if page.HasMore() {
		c.next = page.NextPageToken
		m.appendSentinel(node)
	} else {
		c.next = ""
		node.Traversed = true
	}

	m.rederiveFrom(node)
	return nil
}

// ActivateSentinel handles activation of a "load more" row: the row is
// replaced by the next page of its parent. Calls on anything else are
// logged and refused.
func (m *LazyTreeModel) ActivateSentinel(ctx context.Context, sentinel *domain.Node) error {
	if sentinel == nil || !sentinel.Sentinel {
		key := ""
		if sentinel != nil {
			key = sentinel.Key
		}
		m.log.WithFields(logrus.Fields{"op": "activate_sentinel", "key": key}).
			Warn("activation of a row that is not a load-more row ignored")
		return &PreconditionError{Op: "activate_sentinel", Key: key, Reason: ErrNotSentinel}
	}

	parent := sentinel.Parent()
	if parent == nil || parent.LastChild() != sentinel || !m.CanFetchMore(parent) || !m.attached(parent) {
		key := ""
		if parent != nil {
			key = parent.Key
		}
		m.log.WithFields(logrus.Fields{"op": "activate_sentinel", "key": key}).
			Warn("load-more row does not belong to a node being paged")
		return &PreconditionError{Op: "activate_sentinel", Key: key, Reason: ErrInconsistentState}
	}

	return m.FetchMore(ctx, parent)
}

// LoadAll fetches pages for node until it is fully loaded or maxPages pages
// were fetched (maxPages <= 0 means no limit). It returns the number of
// pages fetched.
func (m *LazyTreeModel) LoadAll(ctx context.Context, node *domain.Node, maxPages int) (int, error) {
	fetched := 0
	for m.CanFetchMore(node) && (maxPages <= 0 || fetched < maxPages) {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		if err := m.FetchMore(ctx, node); err != nil {
			return fetched, err
		}
		fetched++
	}
	return fetched, nil
}

// Invalidate forgets everything fetched below node, returning it to the
// unfetched state.
func (m *LazyTreeModel) Invalidate(node *domain.Node) bool {
	if node == nil || node.Sentinel || !node.Expandable || !m.attached(node) {
		return false
	}
	if count := node.ChildCount(); count > 0 {
		for node.HasChildren() {
			m.forget(node.RemoveLastChild())
		}
		m.emit(ChangeEvent{Kind: RowsRemoved, Parent: node, First: 0, Last: count - 1})
	}
	delete(m.cursors, node)
	m.generations[node]++
	node.Traversed = false

	if node.CheckState() == domain.PartiallyChecked {
		m.setState(node, domain.Unchecked)
	}
	m.rederiveFrom(node.Parent())
	return true
}

// RemoveLastPage drops the most recently fetched page of node. The node
// becomes fetchable again from that page; dropping the only page returns
// it to the unfetched state.
func (m *LazyTreeModel) RemoveLastPage(node *domain.Node) bool {
	if node == nil || !m.attached(node) {
		return false
	}
	c := m.cursors[node]
	if c == nil || len(c.pages) == 0 {
		return false
	}
	last := c.pages[len(c.pages)-1]
	if node.HasSentinel() {
		row := node.ChildCount() - 1
		node.RemoveLastChild()
		m.emit(ChangeEvent{Kind: RowsRemoved, Parent: node, First: row, Last: row})
	}
	if last.count > 0 {
		end := node.ChildCount() - 1
		for i := 0; i < last.count; i++ {
			m.forget(node.RemoveLastChild())
		}
		m.emit(ChangeEvent{Kind: RowsRemoved, Parent: node, First: end - last.count + 1, Last: end})
	}

	c.pages = c.pages[:len(c.pages)-1]
	c.next = last.token
	m.generations[node]++
	node.Traversed = false
	if len(c.pages) == 0 {
		delete(m.cursors, node)
		if node.CheckState() == domain.PartiallyChecked {
			m.setState(node, domain.Unchecked)
		}
	} else {
		m.appendSentinel(node)
	}

	m.rederiveFrom(node)
	return true
}

// SetChecked applies a selection change. On a branch the state is cascaded
// to every descendant (partial is collapsed to checked); every ancestor is
// then re-derived. Load-more rows cannot be checked.
func (m *LazyTreeModel) SetChecked(node *domain.Node, state domain.CheckState) bool {
	if node == nil || node.Sentinel {
		return false
	}
	if state == domain.PartiallyChecked {
		state = domain.Checked
	}

	m.cascade(node, state, -1)
	m.rederiveFrom(node.Parent())
	return true
}

// ToggleChecked checks an unchecked or partial node and unchecks a checked
// one.
func (m *LazyTreeModel) ToggleChecked(node *domain.Node) bool {
	if node == nil {
		return false
	}
	if node.CheckState() == domain.Checked {
		return m.SetChecked(node, domain.Unchecked)
	}
	return m.SetChecked(node, domain.Checked)
}

// ChildrenOf returns node's materialized children.
func (m *LazyTreeModel) ChildrenOf(node *domain.Node) []*domain.Node {
	if node == nil {
		return nil
	}
	return node.Children()
}

// CheckedStateOf returns the node's current selection state.
func (m *LazyTreeModel) CheckedStateOf(node *domain.Node) domain.CheckState {
	if node == nil {
		return domain.Unchecked
	}
	return node.CheckState()
}

// RowOf returns the node's index within its parent.
func (m *LazyTreeModel) RowOf(node *domain.Node) int {
	if node == nil {
		return 0
	}
	return node.Row()
}

// FindByKey returns the first materialized data node with key.
func (m *LazyTreeModel) FindByKey(key string) (*domain.Node, bool) {
	var found *domain.Node
	m.root.Walk(func(n *domain.Node) bool {
		if found != nil {
			return false
		}
		if !n.Sentinel && n.Key == key {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Selection returns the checked nodes according to mode, in display order.
func (m *LazyTreeModel) Selection(mode SelectionMode) []*domain.Node {
	var out []*domain.Node
	m.root.Walk(func(n *domain.Node) bool {
		if n.Sentinel {
			return false
		}
		switch mode {
		case SelectLeaves:
			if !n.HasChildren() && n.CheckState() == domain.Checked && n != m.root {
				out = append(out, n)
			}
			return true
		default:
			if n.CheckState() == domain.Checked && n != m.root {
				out = append(out, n)
				return false
			}
			return n.CheckState() != domain.Unchecked || n == m.root
		}
	})
	return out
}

func (m *LazyTreeModel) appendSentinel(node *domain.Node) {
	s := domain.NewSentinel(m.sentinelLabel)
	if !node.AppendChild(s) {
		panic("application: sentinel rejected by " + node.Key)
	}
	row := node.ChildCount() - 1
	m.emit(ChangeEvent{Kind: RowsInserted, Parent: node, First: row, Last: row})
}

// cascade sets state on the whole subtree, deepest nodes first, so every
// branch ends up with the state its children derive. row is n's index in
// its parent, or -1 when unknown.
func (m *LazyTreeModel) cascade(n *domain.Node, state domain.CheckState, row int) {
	if n.Sentinel {
		return
	}
	for i, c := range n.Children() {
		m.cascade(c, state, i)
	}
	if n.HasChildren() {
		m.setStateAt(n, domain.DeriveShallow(n), row)
		return
	}
	m.setStateAt(n, state, row)
}

// rederiveFrom recomputes the derived state of n and every ancestor up to
// the root.
func (m *LazyTreeModel) rederiveFrom(n *domain.Node) {
	for ; n != nil; n = n.Parent() {
		if !n.HasChildren() {
			continue
		}
		m.setState(n, domain.DeriveShallow(n))
	}
}

func (m *LazyTreeModel) setState(n *domain.Node, s domain.CheckState) {
	m.setStateAt(n, s, -1)
}

// setStateAt stores s and notifies. The row is looked up only when the
// caller does not know it and the state actually changed.
func (m *LazyTreeModel) setStateAt(n *domain.Node, s domain.CheckState, row int) {
	if n.CheckState() == s {
		return
	}
	n.SetCheckState(s)
	if row < 0 {
		row = n.Row()
	}
	m.emit(ChangeEvent{Kind: CheckStateChanged, Parent: n.Parent(), Node: n, First: row, Last: row})
}

// forget drops cursor bookkeeping for a removed subtree.
func (m *LazyTreeModel) forget(n *domain.Node) {
	if n == nil {
		return
	}
	n.Walk(func(d *domain.Node) bool {
		delete(m.cursors, d)
		delete(m.generations, d)
		return true
	})
}

func (m *LazyTreeModel) attached(n *domain.Node) bool {
	for a := n; a != nil; a = a.Parent() {
		if a == m.root {
			return true
		}
	}
	return false
}
