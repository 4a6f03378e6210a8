package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"catalogtree/internal/application"
	"catalogtree/internal/application/commands"
	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

// BrowserKeyMap defines key bindings for the browser view
type BrowserKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Left     key.Binding
	Right    key.Binding
	Enter    key.Binding
	Toggle   key.Binding
	LoadAll  key.Binding
	DropPage key.Binding
	Reload   key.Binding
	Copy     key.Binding
	Open     key.Binding
	Filter   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var BrowserKeys = BrowserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+b"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+f"),
		key.WithHelp("pgdown", "page down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "toggle/load more"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "check"),
	),
	LoadAll: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "load all"),
	),
	DropPage: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "drop page"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy selection"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// FilterKeyMap defines key bindings while the filter input has focus
type FilterKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Accept key.Binding
	Cancel key.Binding
}

var FilterKeys = FilterKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Accept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "go to"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// Rows taken by everything but the tree: padding, title, status, message
// and help line.
const chromeHeight = 9

// maxFilterResults caps the number of filter matches shown at once
const maxFilterResults = 15

type pageLoadedMsg struct {
	req  application.PageRequest
	page domain.Page
	err  error
}

// OpenEditorMsg asks the app to open a file in the external editor
type OpenEditorMsg struct {
	Path string
}

// Messages for view switching
type SwitchToHelpMsg struct{}

type SwitchToBrowserMsg struct{}

// BrowserOption configures a BrowserModel
type BrowserOption func(*BrowserModel)

// WithWatcher registers every fetched node with w so the app can reload it
// when it changes.
func WithWatcher(w ports.ChangeWatcher) BrowserOption {
	return func(m *BrowserModel) {
		m.watcher = w
	}
}

// WithPathResolver enables opening leaves in the editor. resolve maps a
// key to a file path.
func WithPathResolver(resolve func(key string) string) BrowserOption {
	return func(m *BrowserModel) {
		m.resolve = resolve
	}
}

// WithClipboard replaces the system clipboard
func WithClipboard(write func(string) error) BrowserOption {
	return func(m *BrowserModel) {
		m.copy = write
	}
}

// WithLogger sets the logger for discarded pages and watcher failures
func WithLogger(l logrus.FieldLogger) BrowserOption {
	return func(m *BrowserModel) {
		if l != nil {
			m.log = l
		}
	}
}

// BrowserModel is the tree browser. Pages are loaded off the update loop
// and applied to the tree model when they arrive.
type BrowserModel struct {
	ViewState

	model   *application.LazyTreeModel
	ctx     context.Context
	watcher ports.ChangeWatcher
	resolve func(key string) string
	copy    func(string) error
	log     logrus.FieldLogger

	rows        []*domain.Node
	pager       *Paginator
	dirty       bool
	unsubscribe func()

	// loading holds the request in flight for each node
	loading map[*domain.Node]application.PageRequest
	loadAll map[*domain.Node]bool

	filter      textinput.Model
	filtering   bool
	results     []commands.SearchResult
	resultPager *Paginator
}

// NewBrowserModel creates a browser over model. ctx bounds every provider
// call the browser makes.
func NewBrowserModel(ctx context.Context, model *application.LazyTreeModel, opts ...BrowserOption) *BrowserModel {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	input := textinput.New()
	input.Placeholder = "filter loaded rows..."
	input.CharLimit = 100
	input.Width = 40

	m := &BrowserModel{
		model:       model,
		ctx:         ctx,
		copy:        clipboard.WriteAll,
		log:         discard,
		pager:       NewPaginator(1000),
		loading:     make(map[*domain.Node]application.PageRequest),
		loadAll:     make(map[*domain.Node]bool),
		filter:      input,
		resultPager: NewPaginator(maxFilterResults),
		dirty:       true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = model.Subscribe(func(application.ChangeEvent) {
		m.dirty = true
	})
	m.refreshRows()
	return m
}

// Init fetches the first page of the root
func (m *BrowserModel) Init() tea.Cmd {
	return m.fetch(m.model.Root())
}

// Close stops listening to the tree model
func (m *BrowserModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles messages for the browser
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.dirty {
		m.refreshRows()
	}
	return m, cmd
}

func (m *BrowserModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return nil

	case pageLoadedMsg:
		return m.pageLoaded(msg)

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		m.ClearMessage()
		return m.handleKey(msg)
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return cmd
	}
	return nil
}

func (m *BrowserModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, BrowserKeys.Quit):
		return tea.Quit

	case key.Matches(msg, BrowserKeys.Up):
		m.pager.CursorUp()

	case key.Matches(msg, BrowserKeys.Down):
		m.pager.CursorDown()

	case key.Matches(msg, BrowserKeys.PageUp):
		m.pager.PrevPage()

	case key.Matches(msg, BrowserKeys.PageDown):
		m.pager.NextPage()

	case key.Matches(msg, BrowserKeys.Left):
		node := m.selectedNode()
		if node == nil {
			return nil
		}
		if node.Expandable && node.Expanded && !node.Sentinel {
			node.Collapse()
			m.dirty = true
		} else if p := node.Parent(); p != nil {
			m.moveTo(p)
		}

	case key.Matches(msg, BrowserKeys.Right):
		node := m.selectedNode()
		if node == nil {
			return nil
		}
		if node.Sentinel {
			return m.activate(node)
		}
		if node.Expandable {
			node.Expand()
			m.dirty = true
			return m.fetchIfUnfetched(node)
		}

	case key.Matches(msg, BrowserKeys.Enter):
		node := m.selectedNode()
		if node == nil {
			return nil
		}
		switch {
		case node.Sentinel:
			return m.activate(node)
		case node.Expandable && node.Expanded:
			node.Collapse()
			m.dirty = true
		case node.Expandable:
			node.Expand()
			m.dirty = true
			return m.fetchIfUnfetched(node)
		default:
			return m.open(node)
		}

	case key.Matches(msg, BrowserKeys.Toggle):
		if node := m.selectedNode(); node != nil && !node.Sentinel {
			m.model.ToggleChecked(node)
		}

	case key.Matches(msg, BrowserKeys.LoadAll):
		node := m.pagingTarget()
		if node == nil {
			return nil
		}
		if !m.model.CanFetchMore(node) {
			m.SetMessage(fmt.Sprintf("%s is fully loaded", node.Name), false)
			return nil
		}
		node.Expand()
		m.dirty = true
		m.loadAll[node] = true
		return m.fetch(node)

	case key.Matches(msg, BrowserKeys.DropPage):
		node := m.pagingTarget()
		if node != nil && m.model.RemoveLastPage(node) {
			m.SetMessage(fmt.Sprintf("Dropped the last page of %s", node.Name), false)
		}

	case key.Matches(msg, BrowserKeys.Reload):
		node := m.pagingTarget()
		if node == nil {
			return nil
		}
		return m.reload(node)

	case key.Matches(msg, BrowserKeys.Copy):
		return m.copySelection()

	case key.Matches(msg, BrowserKeys.Open):
		if node := m.selectedNode(); node != nil && !node.Expandable && !node.Sentinel {
			return m.open(node)
		}

	case key.Matches(msg, BrowserKeys.Filter):
		m.filtering = true
		m.filter.SetValue("")
		m.results = nil
		m.resultPager.Reset()
		return tea.Batch(m.filter.Focus(), textinput.Blink)

	case key.Matches(msg, BrowserKeys.Help):
		return func() tea.Msg {
			return SwitchToHelpMsg{}
		}
	}
	return nil
}

func (m *BrowserModel) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, FilterKeys.Cancel):
		m.closeFilter()
		return nil

	case key.Matches(msg, FilterKeys.Accept):
		if i := m.resultPager.Cursor(); i < len(m.results) {
			m.reveal(m.results[i].Node)
		}
		m.closeFilter()
		return nil

	case key.Matches(msg, FilterKeys.Up):
		m.resultPager.CursorUp()
		return nil

	case key.Matches(msg, FilterKeys.Down):
		m.resultPager.CursorDown()
		return nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.results = commands.FuzzyFilter(m.model.Root(), m.filter.Value())
	m.resultPager.Reset()
	m.resultPager.SetTotal(len(m.results))
	return cmd
}

func (m *BrowserModel) closeFilter() {
	m.filtering = false
	m.filter.Blur()
	m.results = nil
}

// fetch starts loading the next page of node. At most one page per node is
// awaited; a reload forgets the one before it.
func (m *BrowserModel) fetch(node *domain.Node) tea.Cmd {
	if m.isLoading(node) {
		return nil
	}
	req, ok := m.model.NextRequest(node)
	if !ok {
		return nil
	}
	m.loading[node] = req

	ctx, load := m.ctx, m.model.Load
	return func() tea.Msg {
		page, err := load(ctx, req)
		return pageLoadedMsg{req: req, page: page, err: err}
	}
}

func (m *BrowserModel) isLoading(node *domain.Node) bool {
	_, ok := m.loading[node]
	return ok
}

func (m *BrowserModel) fetchIfUnfetched(node *domain.Node) tea.Cmd {
	if m.model.State(node) != application.NodeUnfetched {
		return nil
	}
	return m.fetch(node)
}

// activate loads the page a load-more row stands for
func (m *BrowserModel) activate(sentinel *domain.Node) tea.Cmd {
	parent := sentinel.Parent()
	if parent == nil || parent.LastChild() != sentinel {
		return nil
	}
	return m.fetch(parent)
}

func (m *BrowserModel) pageLoaded(msg pageLoadedMsg) tea.Cmd {
	node := msg.req.Node
	if current, ok := m.loading[node]; !ok || current != msg.req {
		// Superseded by a reload; the newer request is still awaited
		m.log.WithField("key", msg.req.Key).Debug("discarded superseded page")
		return nil
	}
	delete(m.loading, node)

	if msg.err != nil {
		delete(m.loadAll, node)
		m.SetError(msg.err)
		return nil
	}
	if err := m.model.ApplyPage(msg.req, msg.page); err != nil {
		// Reloaded or dropped while the page was in flight
		m.log.WithField("key", msg.req.Key).WithError(err).Debug("discarded page")
		delete(m.loadAll, node)
		if found, ok := m.model.FindByKey(node.Key); ok && found == node && node.Expanded {
			return m.fetchIfUnfetched(node)
		}
		return nil
	}

	if m.watcher != nil && msg.req.PageToken == "" {
		if err := m.watcher.Watch(node.Key); err != nil {
			m.log.WithField("key", node.Key).WithError(err).Debug("not watching")
		}
	}

	if m.loadAll[node] {
		if m.model.CanFetchMore(node) {
			m.SetMessage(loadedMessage(node), false)
			return m.fetch(node)
		}
		delete(m.loadAll, node)
	}
	m.SetMessage(loadedMessage(node), false)
	return nil
}

func (m *BrowserModel) reload(node *domain.Node) tea.Cmd {
	if !m.model.Invalidate(node) {
		return nil
	}
	delete(m.loadAll, node)
	delete(m.loading, node)
	m.SetMessage(fmt.Sprintf("Reloading %s", node.Name), false)
	if node.Expanded {
		return m.fetch(node)
	}
	return nil
}

// Invalidate reloads the loaded node with key, if any. The app calls it
// for changes reported by the watcher.
func (m *BrowserModel) Invalidate(key string) tea.Cmd {
	node, ok := m.model.FindByKey(key)
	if !ok || !node.Expandable {
		return nil
	}
	cmd := m.reload(node)
	if m.dirty {
		m.refreshRows()
	}
	return cmd
}

func (m *BrowserModel) copySelection() tea.Cmd {
	selected := m.model.Selection(application.SelectRoots)
	if len(selected) == 0 {
		m.SetMessage("Nothing is checked", true)
		return nil
	}
	keys := make([]string, 0, len(selected))
	for _, n := range selected {
		keys = append(keys, n.Key)
	}
	if err := m.copy(strings.Join(keys, "\n")); err != nil {
		m.SetMessage(fmt.Sprintf("Copy failed: %v", err), true)
		return nil
	}
	m.SetMessage(fmt.Sprintf("Copied %d keys", len(keys)), false)
	return nil
}

func (m *BrowserModel) open(node *domain.Node) tea.Cmd {
	if m.resolve == nil {
		m.SetMessage("This source has no files to open", true)
		return nil
	}
	path := m.resolve(node.Key)
	return func() tea.Msg {
		return OpenEditorMsg{Path: path}
	}
}

// pagingTarget is the node paging keys act on: the selected branch, or the
// parent of a selected leaf or load-more row.
func (m *BrowserModel) pagingTarget() *domain.Node {
	node := m.selectedNode()
	if node == nil {
		return nil
	}
	if node.Sentinel || !node.Expandable {
		return node.Parent()
	}
	return node
}

// reveal expands every ancestor of node and moves the cursor to it
func (m *BrowserModel) reveal(node *domain.Node) {
	for p := node.Parent(); p != nil; p = p.Parent() {
		p.Expand()
	}
	m.refreshRows()
	m.moveTo(node)
}

func (m *BrowserModel) moveTo(node *domain.Node) {
	for i, n := range m.rows {
		if n == node {
			m.pager.SetCursor(i)
			return
		}
	}
}

func (m *BrowserModel) selectedNode() *domain.Node {
	if i := m.pager.Cursor(); i >= 0 && i < len(m.rows) {
		return m.rows[i]
	}
	return nil
}

func (m *BrowserModel) refreshRows() {
	selected := m.selectedNode()
	m.rows = m.model.Root().Flatten()
	m.pager.SetTotal(len(m.rows))
	if selected != nil {
		m.moveTo(selected)
	}
	m.dirty = false
}

// SetSize updates the view dimensions
func (m *BrowserModel) SetSize(width, height int) {
	m.ViewState.SetSize(width, height)
	if height > chromeHeight {
		m.pager.SetPageSize(height - chromeHeight)
	}
}

// View renders the browser
func (m *BrowserModel) View() string {
	v := NewViewBuilder()
	v.Line(RenderTitle("Catalog Tree"))
	m.renderStatus(v)
	v.BlankLine()

	if m.filtering {
		v.Line(m.filter.View())
		v.BlankLine()
		m.renderResults(v)
	} else {
		start, end := m.pager.VisibleRange()
		for i := start; i < end; i++ {
			v.Node(m.rows[i], m.rowOptions(m.rows[i], i == m.pager.Cursor()))
		}
	}

	v.BlankLine()
	v.Message(m.Message, m.MessageErr)
	if m.filtering {
		v.Help(FilterKeys.Up, FilterKeys.Down, FilterKeys.Accept, FilterKeys.Cancel)
	} else {
		v.Help(BrowserKeys.Enter, BrowserKeys.Toggle, BrowserKeys.LoadAll,
			BrowserKeys.Reload, BrowserKeys.Copy, BrowserKeys.Filter,
			BrowserKeys.Help, BrowserKeys.Quit)
	}
	return v.String()
}

func (m *BrowserModel) renderStatus(v *ViewBuilder) {
	loaded := -1 // root
	m.model.Root().Walk(func(n *domain.Node) bool {
		if !n.Sentinel {
			loaded++
		}
		return true
	})
	v.Status(loaded, len(m.model.Selection(application.SelectRoots)), len(m.loading))
}

func (m *BrowserModel) renderResults(v *ViewBuilder) {
	if m.filter.Value() == "" {
		v.Muted("Type to filter the loaded rows")
		return
	}
	if len(m.results) == 0 {
		v.Muted("No loaded rows match")
		return
	}
	start, end := m.resultPager.VisibleRange()
	for i := start; i < end; i++ {
		v.Match(m.results[i].Node, m.results[i].MatchedIndexes, i == m.resultPager.Cursor())
	}
}

// rowOptions collects what the row of node shows besides the node itself
func (m *BrowserModel) rowOptions(node *domain.Node, selected bool) RowOptions {
	opts := RowOptions{Selected: selected}
	if node.Sentinel {
		opts.Loading = m.isLoading(node.Parent())
		return opts
	}
	opts.Loading = m.isLoading(node)
	opts.Count = m.countSuffix(node)
	return opts
}

// countSuffix shows how many children are loaded: "(12)" when complete,
// "(50+)" while more pages exist.
func (m *BrowserModel) countSuffix(node *domain.Node) string {
	switch m.model.State(node) {
	case application.NodeFullyLoaded:
		return fmt.Sprintf("(%d)", node.ChildCount())
	case application.NodePartiallyLoaded:
		return fmt.Sprintf("(%d+)", node.ChildCount()-1)
	}
	return ""
}

func loadedMessage(node *domain.Node) string {
	if node.HasSentinel() {
		return fmt.Sprintf("Loaded %d children of %s, more available", node.ChildCount()-1, node.Name)
	}
	return fmt.Sprintf("Loaded all %d children of %s", node.ChildCount(), node.Name)
}
