package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"catalogtree/internal/adapters/tui/views"
	"catalogtree/internal/application"
	"catalogtree/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewBrowser ViewState = iota
	ViewHelp
)

// Options wires the optional collaborators of the app
type Options struct {
	// Editor opens leaves; nil disables opening.
	Editor ports.EditorOpener
	// Resolve maps a key to a file path for the editor.
	Resolve func(key string) string
	// Watcher reports keys to reload; nil disables live reload.
	Watcher ports.ChangeWatcher
	// BrowserOptions are passed to the browser view.
	BrowserOptions []views.BrowserOption
}

// App is the main TUI application model
type App struct {
	model   *application.LazyTreeModel
	editor  ports.EditorOpener
	watcher ports.ChangeWatcher

	state   ViewState
	browser *views.BrowserModel
	help    *views.HelpModel

	width  int
	height int
}

// NewApp creates a new TUI application
func NewApp(ctx context.Context, model *application.LazyTreeModel, opts Options) *App {
	browserOpts := append([]views.BrowserOption(nil), opts.BrowserOptions...)
	if opts.Watcher != nil {
		browserOpts = append(browserOpts, views.WithWatcher(opts.Watcher))
	}
	if opts.Editor != nil && opts.Resolve != nil {
		browserOpts = append(browserOpts, views.WithPathResolver(opts.Resolve))
	}

	return &App{
		model:   model,
		editor:  opts.Editor,
		watcher: opts.Watcher,
		state:   ViewBrowser,
		browser: views.NewBrowserModel(ctx, model, browserOpts...),
		help:    views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.browser.Init(), a.waitForChange())
}

type changedMsg struct{ key string }

// waitForChange delivers the next key reported by the watcher
func (a *App) waitForChange() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	changes := a.watcher.Changes()
	return func() tea.Msg {
		key, ok := <-changes
		if !ok {
			return nil
		}
		return changedMsg{key: key}
	}
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.browser.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)
		return a, nil

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToBrowserMsg:
		a.state = ViewBrowser
		return a, nil

	case changedMsg:
		return a, tea.Batch(a.browser.Invalidate(msg.key), a.waitForChange())

	case views.OpenEditorMsg:
		return a, a.openEditor(msg.Path)

	case editorFinishedMsg:
		if msg.err != nil {
			a.browser.SetMessage(fmt.Sprintf("Editor failed: %v", msg.err), true)
		}
		return a, nil
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewBrowser:
		_, cmd = a.browser.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}
	return a, cmd
}

type editorFinishedMsg struct{ err error }

func (a *App) openEditor(path string) tea.Cmd {
	if a.editor == nil {
		return nil
	}

	cmd, err := a.editor.Command(path)
	if err != nil {
		return func() tea.Msg {
			return editorFinishedMsg{err: err}
		}
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

// View renders the current view
func (a *App) View() string {
	if a.state == ViewHelp {
		return a.help.View()
	}
	return a.browser.View()
}

// Close releases the browser's model subscription
func (a *App) Close() {
	a.browser.Close()
}
