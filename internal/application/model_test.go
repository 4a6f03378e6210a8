package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"catalogtree/internal/domain"
)

func newScenarioModel() (*LazyTreeModel, *pagedProvider) {
	p := newPagedProvider()
	p.add("", "a", "b", "c", "d", "e")
	return NewLazyTreeModel(p, WithPageSize(3)), p
}

func TestFetchMore_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	m, p := newScenarioModel()
	root := m.Root()

	if !m.CanFetchMore(root) {
		t.Fatal("root should be fetchable before the first page")
	}
	if m.State(root) != NodeUnfetched {
		t.Fatalf("state = %v, want unfetched", m.State(root))
	}

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatalf("FetchMore failed: %v", err)
	}
	if got := names(m.ChildrenOf(root)); !equalStrings(got, []string{"a", "b", "c", "SENTINEL"}) {
		t.Fatalf("children = %v", got)
	}
	if m.State(root) != NodePartiallyLoaded {
		t.Fatalf("state = %v, want partially-loaded", m.State(root))
	}

	kids := m.ChildrenOf(root)
	m.SetChecked(kids[0], domain.Checked)
	m.SetChecked(kids[1], domain.Checked)
	if got := m.CheckedStateOf(root); got != domain.PartiallyChecked {
		t.Errorf("root state = %v, want partial", got)
	}
	m.SetChecked(kids[2], domain.Checked)
	if got := m.CheckedStateOf(root); got != domain.Checked {
		t.Errorf("root state = %v, want checked", got)
	}

	if err := m.ActivateSentinel(ctx, kids[3]); err != nil {
		t.Fatalf("ActivateSentinel failed: %v", err)
	}
	if got := names(m.ChildrenOf(root)); !equalStrings(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("children = %v", got)
	}
	if !root.Traversed || m.State(root) != NodeFullyLoaded {
		t.Error("root should be fully loaded")
	}
	if m.CanFetchMore(root) {
		t.Error("CanFetchMore should be false once traversed")
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls)
	}
	if got := domain.Derive(root); got != m.CheckedStateOf(root) {
		t.Errorf("stored root state %v differs from derived %v", m.CheckedStateOf(root), got)
	}
}

func TestFetchMore_PaginationTerminates(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
	}{
		{name: "exact multiple", total: 6, pageSize: 3},
		{name: "remainder", total: 7, pageSize: 3},
		{name: "single page", total: 2, pageSize: 10},
		{name: "page of one", total: 4, pageSize: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPagedProvider()
			for i := 0; i < tt.total; i++ {
				p.add("", string(rune('a'+i)))
			}
			m := NewLazyTreeModel(p, WithPageSize(tt.pageSize))
			root := m.Root()

			if err := m.FetchMore(context.Background(), root); err != nil {
				t.Fatal(err)
			}
			for root.HasSentinel() {
				if err := m.ActivateSentinel(context.Background(), root.LastChild()); err != nil {
					t.Fatal(err)
				}
			}

			wantCalls := (tt.total + tt.pageSize - 1) / tt.pageSize
			if p.calls != wantCalls {
				t.Errorf("provider calls = %d, want %d", p.calls, wantCalls)
			}
			if !root.Traversed || root.HasSentinel() {
				t.Error("root should be traversed without a sentinel")
			}
			if root.ChildCount() != tt.total {
				t.Errorf("children = %d, want %d", root.ChildCount(), tt.total)
			}
		})
	}
}

func TestFetchMore_NoOpWhenNotFetchable(t *testing.T) {
	m, p := newScenarioModel()
	ctx := context.Background()

	if _, err := m.LoadAll(ctx, m.Root(), 0); err != nil {
		t.Fatal(err)
	}
	calls := p.calls

	if err := m.FetchMore(ctx, m.Root()); err != nil {
		t.Errorf("FetchMore on a traversed node should be a no-op, got %v", err)
	}
	leaf := m.Root().Child(0)
	if err := m.FetchMore(ctx, leaf); err != nil {
		t.Errorf("FetchMore on a leaf should be a no-op, got %v", err)
	}
	if err := m.FetchMore(ctx, nil); err != nil {
		t.Errorf("FetchMore(nil) should be a no-op, got %v", err)
	}
	if p.calls != calls {
		t.Errorf("provider called %d more times", p.calls-calls)
	}
}

func TestFetchMore_ProviderFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	m, p := newScenarioModel()
	root := m.Root()

	p.failNext = true
	err := m.FetchMore(ctx, root)
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) || !perr.Retryable() || !errors.Is(err, errBackendDown) {
		t.Fatalf("expected retryable ProviderError wrapping the cause, got %v", err)
	}
	if root.ChildCount() != 0 || m.State(root) != NodeUnfetched {
		t.Fatal("failed first fetch must leave the root unfetched")
	}

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	before := names(m.ChildrenOf(root))

	p.failNext = true
	sentinel := root.LastChild()
	if err := m.ActivateSentinel(ctx, sentinel); !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if got := names(m.ChildrenOf(root)); !equalStrings(got, before) {
		t.Fatalf("children changed after failure: %v, want %v", got, before)
	}
	if root.LastChild() != sentinel {
		t.Fatal("the same sentinel must remain activatable")
	}

	if err := m.ActivateSentinel(ctx, sentinel); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if root.ChildCount() != 5 || !root.Traversed {
		t.Errorf("expected the full listing after retry, got %v", names(m.ChildrenOf(root)))
	}
}

func TestActivateSentinel_Anomalies(t *testing.T) {
	ctx := context.Background()
	logger, hook := logtest.NewNullLogger()
	p := newPagedProvider()
	p.add("", "a", "b", "c", "d")
	m := NewLazyTreeModel(p, WithPageSize(2), WithLogger(logger))

	if err := m.FetchMore(ctx, m.Root()); err != nil {
		t.Fatal(err)
	}
	calls := p.calls

	err := m.ActivateSentinel(ctx, m.Root().Child(0))
	if !errors.Is(err, ErrNotSentinel) {
		t.Errorf("expected ErrNotSentinel, got %v", err)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Error("expected a warning for a non-sentinel activation")
	}

	detached := domain.NewSentinel("more")
	if err := m.ActivateSentinel(ctx, detached); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState for a detached sentinel, got %v", err)
	}
	if err := m.ActivateSentinel(ctx, nil); !errors.Is(err, ErrNotSentinel) {
		t.Errorf("expected ErrNotSentinel for nil, got %v", err)
	}

	if len(hook.AllEntries()) != 3 {
		t.Errorf("expected 3 log entries, got %d", len(hook.AllEntries()))
	}
	if p.calls != calls {
		t.Error("anomalies must not reach the provider")
	}
	if got := names(m.ChildrenOf(m.Root())); !equalStrings(got, []string{"a", "b", "SENTINEL"}) {
		t.Errorf("tree changed: %v", got)
	}
}

func TestSetChecked_CascadeAndAncestors(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.addBranch("", "dir")
	p.add("", "file")
	p.add("/dir", "x", "y")
	m := NewLazyTreeModel(p)

	if err := m.FetchMore(ctx, m.Root()); err != nil {
		t.Fatal(err)
	}
	dir := m.Root().Child(0)
	file := m.Root().Child(1)
	if err := m.FetchMore(ctx, dir); err != nil {
		t.Fatal(err)
	}

	m.SetChecked(dir, domain.Checked)
	for _, c := range dir.Children() {
		if c.CheckState() != domain.Checked {
			t.Errorf("%s not checked by cascade", c.Name)
		}
	}
	if m.CheckedStateOf(m.Root()) != domain.PartiallyChecked {
		t.Errorf("root = %v, want partial", m.CheckedStateOf(m.Root()))
	}

	m.SetChecked(file, domain.Checked)
	if m.CheckedStateOf(m.Root()) != domain.Checked {
		t.Errorf("root = %v, want checked", m.CheckedStateOf(m.Root()))
	}

	m.SetChecked(dir.Child(0), domain.Unchecked)
	if dir.CheckState() != domain.PartiallyChecked || m.Root().CheckState() != domain.PartiallyChecked {
		t.Errorf("dir=%v root=%v, want partial/partial", dir.CheckState(), m.Root().CheckState())
	}

	// Partial is not a cascade target.
	m.SetChecked(m.Root(), domain.PartiallyChecked)
	m.Root().Walk(func(n *domain.Node) bool {
		if n.CheckState() != domain.Checked {
			t.Errorf("%q = %v after cascading partial, want checked", n.Key, n.CheckState())
		}
		return true
	})
}

func TestSetChecked_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.addBranch("", "dir")
	p.add("/dir", "x", "y", "z")
	m := NewLazyTreeModel(p, WithPageSize(2))
	rec := &EventRecorder{}

	if err := m.FetchMore(ctx, m.Root()); err != nil {
		t.Fatal(err)
	}
	dir := m.Root().Child(0)
	if err := m.FetchMore(ctx, dir); err != nil {
		t.Fatal(err)
	}

	m.SetChecked(dir, domain.Checked)
	snapshot := map[*domain.Node]domain.CheckState{}
	m.Root().Walk(func(n *domain.Node) bool {
		snapshot[n] = n.CheckState()
		return true
	})

	unsubscribe := m.Subscribe(rec.Record)
	defer unsubscribe()
	m.SetChecked(dir, domain.Checked)

	m.Root().Walk(func(n *domain.Node) bool {
		if snapshot[n] != n.CheckState() {
			t.Errorf("%q changed from %v to %v", n.Key, snapshot[n], n.CheckState())
		}
		return true
	})
	if len(rec.Events) != 0 {
		t.Errorf("second identical SetChecked emitted %d events", len(rec.Events))
	}
}

func TestSetChecked_SentinelRejected(t *testing.T) {
	m, _ := newScenarioModel()
	if err := m.FetchMore(context.Background(), m.Root()); err != nil {
		t.Fatal(err)
	}
	if m.SetChecked(m.Root().LastChild(), domain.Checked) {
		t.Error("checking a sentinel should fail")
	}
	if m.SetChecked(nil, domain.Checked) {
		t.Error("checking nil should fail")
	}
	if m.CheckedStateOf(m.Root()) != domain.Unchecked {
		t.Error("root state changed")
	}
}

func TestFetchMore_CheckedParentPassesStateToNewRows(t *testing.T) {
	ctx := context.Background()
	m, _ := newScenarioModel()
	root := m.Root()

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatal(err)
	}
	m.SetChecked(root, domain.Checked)
	if err := m.ActivateSentinel(ctx, root.LastChild()); err != nil {
		t.Fatal(err)
	}
	for _, c := range root.Children() {
		if c.CheckState() != domain.Checked {
			t.Errorf("%s = %v, want checked", c.Name, c.CheckState())
		}
	}
	if root.CheckState() != domain.Checked {
		t.Errorf("root = %v, want checked", root.CheckState())
	}
}

func TestEvents_OrderAndRanges(t *testing.T) {
	ctx := context.Background()
	m, _ := newScenarioModel()
	rec := &EventRecorder{}
	m.Subscribe(rec.Record)
	root := m.Root()

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatal(err)
	}
	evs := rec.Drain()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Kind != RowsInserted || evs[0].Parent != root || evs[0].First != 0 || evs[0].Last != 2 {
		t.Errorf("unexpected first event %+v", evs[0])
	}
	if evs[1].Kind != RowsInserted || evs[1].First != 3 || evs[1].Last != 3 {
		t.Errorf("unexpected sentinel event %+v", evs[1])
	}

	if err := m.ActivateSentinel(ctx, root.LastChild()); err != nil {
		t.Fatal(err)
	}
	evs = rec.Drain()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Kind != RowsRemoved || evs[0].First != 3 || evs[0].Last != 3 {
		t.Errorf("unexpected removal %+v", evs[0])
	}
	if evs[1].Kind != RowsInserted || evs[1].First != 3 || evs[1].Last != 4 {
		t.Errorf("unexpected insertion %+v", evs[1])
	}

	m.SetChecked(root.Child(4), domain.Checked)
	evs = rec.Drain()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Kind != CheckStateChanged || evs[0].Node != root.Child(4) || evs[0].First != 4 {
		t.Errorf("unexpected leaf event %+v", evs[0])
	}
	if evs[1].Kind != CheckStateChanged || evs[1].Node != root {
		t.Errorf("unexpected root event %+v", evs[1])
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m, _ := newScenarioModel()
	first, second := &EventRecorder{}, &EventRecorder{}
	unsubscribe := m.Subscribe(first.Record)
	m.Subscribe(second.Record)
	unsubscribe()

	if err := m.FetchMore(context.Background(), m.Root()); err != nil {
		t.Fatal(err)
	}
	if len(first.Events) != 0 {
		t.Error("unsubscribed listener still notified")
	}
	if len(second.Events) == 0 {
		t.Error("remaining listener not notified")
	}
}

func TestSubscribe_UnsubscribeDuringDelivery(t *testing.T) {
	m, _ := newScenarioModel()
	calls := map[string]int{}
	var unsubscribeA func()
	unsubscribeA = m.Subscribe(func(ChangeEvent) {
		calls["A"]++
		unsubscribeA()
	})
	m.Subscribe(func(ChangeEvent) { calls["B"]++ })
	m.Subscribe(func(ChangeEvent) { calls["C"]++ })

	leaf := domain.NewNode("leaf", "/leaf", false)
	if !m.Root().AppendChild(leaf) {
		t.Fatal("append failed")
	}
	m.SetChecked(leaf, domain.Checked)

	// leaf and root change: two events
	if calls["A"] != 1 || calls["B"] != 2 || calls["C"] != 2 {
		t.Errorf("calls = %v, want A:1 B:2 C:2", calls)
	}
}

func TestSetChecked_CascadeEventsCarryRows(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.addBranch("", "wide")
	p.add("/wide", "a", "b", "c", "d", "e", "f")
	m := NewLazyTreeModel(p)
	if _, err := m.LoadAll(ctx, m.Root(), 0); err != nil {
		t.Fatal(err)
	}
	wide := m.Root().Child(0)
	if _, err := m.LoadAll(ctx, wide, 0); err != nil {
		t.Fatal(err)
	}

	rec := &EventRecorder{}
	m.Subscribe(rec.Record)
	m.SetChecked(wide, domain.Checked)

	evs := rec.Drain()
	// six leaves, the branch and the root
	if len(evs) != 8 {
		t.Fatalf("got %d events, want 8", len(evs))
	}
	for i, ev := range evs[:6] {
		if ev.Kind != CheckStateChanged || ev.Parent != wide || ev.First != i || ev.Last != i {
			t.Errorf("event %d = %+v, want row %d under wide", i, ev, i)
		}
	}
	if evs[6].Node != wide || evs[6].First != 0 {
		t.Errorf("unexpected branch event %+v", evs[6])
	}
	if evs[7].Node != m.Root() || evs[7].First != 0 {
		t.Errorf("unexpected root event %+v", evs[7])
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.addBranch("", "dir")
	p.add("/dir", "x", "y", "z")
	m := NewLazyTreeModel(p, WithPageSize(2))

	if _, err := m.LoadAll(ctx, m.Root(), 0); err != nil {
		t.Fatal(err)
	}
	dir := m.Root().Child(0)
	if _, err := m.LoadAll(ctx, dir, 0); err != nil {
		t.Fatal(err)
	}
	m.SetChecked(dir.Child(0), domain.Checked)

	if !m.Invalidate(dir) {
		t.Fatal("Invalidate failed")
	}
	if dir.HasChildren() || dir.Traversed || m.State(dir) != NodeUnfetched {
		t.Error("dir should be back to unfetched")
	}
	if dir.CheckState() != domain.Unchecked || m.Root().CheckState() != domain.Unchecked {
		t.Errorf("partial state should reset, dir=%v root=%v", dir.CheckState(), m.Root().CheckState())
	}

	p.add("/dir", "w")
	if _, err := m.LoadAll(ctx, dir, 0); err != nil {
		t.Fatal(err)
	}
	if dir.ChildCount() != 4 {
		t.Errorf("refetch got %d children, want 4", dir.ChildCount())
	}
	if m.Invalidate(dir.Child(0)) {
		t.Error("invalidating a leaf should fail")
	}
}

func TestRemoveLastPage(t *testing.T) {
	ctx := context.Background()
	m, _ := newScenarioModel()
	root := m.Root()

	if m.RemoveLastPage(root) {
		t.Error("nothing to remove before the first fetch")
	}
	if _, err := m.LoadAll(ctx, root, 0); err != nil {
		t.Fatal(err)
	}

	if !m.RemoveLastPage(root) {
		t.Fatal("RemoveLastPage failed")
	}
	if got := names(m.ChildrenOf(root)); !equalStrings(got, []string{"a", "b", "c", "SENTINEL"}) {
		t.Fatalf("children = %v", got)
	}
	if root.Traversed || m.State(root) != NodePartiallyLoaded {
		t.Error("root should be partially loaded again")
	}

	if err := m.ActivateSentinel(ctx, root.LastChild()); err != nil {
		t.Fatal(err)
	}
	if got := names(m.ChildrenOf(root)); !equalStrings(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("children after refetch = %v", got)
	}

	m.RemoveLastPage(root)
	m.RemoveLastPage(root)
	if root.HasChildren() || m.State(root) != NodeUnfetched {
		t.Errorf("removing every page should leave the root unfetched, got %v", names(m.ChildrenOf(root)))
	}
}

func TestApplyPage_RejectsStaleRequest(t *testing.T) {
	ctx := context.Background()
	m, _ := newScenarioModel()
	root := m.Root()

	req, ok := m.NextRequest(root)
	if !ok {
		t.Fatal("root should be fetchable")
	}
	page, err := m.Load(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyPage(req, page); err != nil {
		t.Fatal(err)
	}

	// Same request twice: the cursor has moved on.
	if err := m.ApplyPage(req, page); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState, got %v", err)
	}
	if root.ChildCount() != 4 {
		t.Errorf("stale page was applied: %v", names(m.ChildrenOf(root)))
	}
}

func TestApplyPage_RejectsFirstPageFromBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.add("", "old")
	m := NewLazyTreeModel(p)
	root := m.Root()

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatal(err)
	}
	m.Invalidate(root)
	stale, _ := m.NextRequest(root)
	stalePage, err := m.Load(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}

	// Both requests ask for the first page with the same empty token
	m.Invalidate(root)
	p.add("", "new")
	fresh, _ := m.NextRequest(root)
	freshPage, err := m.Load(ctx, fresh)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.ApplyPage(stale, stalePage); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState for the stale page, got %v", err)
	}
	if err := m.ApplyPage(fresh, freshPage); err != nil {
		t.Fatalf("fresh page rejected: %v", err)
	}
	if got := strings.Join(names(m.ChildrenOf(root)), ","); got != "old,new" {
		t.Errorf("children = %s, want old,new", got)
	}
}

func TestApplyPage_RejectsPageFromBeforeRemoveLastPage(t *testing.T) {
	ctx := context.Background()
	m, _ := newScenarioModel()
	root := m.Root()

	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatal(err)
	}
	m.RemoveLastPage(root)
	stale, _ := m.NextRequest(root)
	if err := m.FetchMore(ctx, root); err != nil {
		t.Fatal(err)
	}
	m.RemoveLastPage(root)

	page, err := m.Load(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyPage(stale, page); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState, got %v", err)
	}
	if root.HasChildren() {
		t.Errorf("stale page was applied: %v", names(m.ChildrenOf(root)))
	}
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	p := newPagedProvider()
	p.addBranch("", "dir", "other")
	p.add("", "file")
	p.add("/dir", "x", "y")
	p.add("/other", "z", "w")
	m := NewLazyTreeModel(p)

	if _, err := m.LoadAll(ctx, m.Root(), 0); err != nil {
		t.Fatal(err)
	}
	dir, _ := m.FindByKey("/dir")
	other, _ := m.FindByKey("/other")
	for _, n := range []*domain.Node{dir, other} {
		if _, err := m.LoadAll(ctx, n, 0); err != nil {
			t.Fatal(err)
		}
	}

	m.SetChecked(dir, domain.Checked)
	z, _ := m.FindByKey("/other/z")
	m.SetChecked(z, domain.Checked)

	roots := keys(m.Selection(SelectRoots))
	if !equalStrings(roots, []string{"/dir", "/other/z"}) {
		t.Errorf("roots selection = %v", roots)
	}
	leaves := keys(m.Selection(SelectLeaves))
	if !equalStrings(leaves, []string{"/dir/x", "/dir/y", "/other/z"}) {
		t.Errorf("leaves selection = %v", leaves)
	}
}

func TestFindByKey(t *testing.T) {
	m, _ := newScenarioModel()
	if _, ok := m.FindByKey("/a"); ok {
		t.Error("nothing is materialized yet")
	}
	if err := m.FetchMore(context.Background(), m.Root()); err != nil {
		t.Fatal(err)
	}
	n, ok := m.FindByKey("/b")
	if !ok || n.Name != "b" || m.RowOf(n) != 1 {
		t.Errorf("FindByKey(/b) = %v, %v", n, ok)
	}
}

func keys(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}
