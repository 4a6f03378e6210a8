package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"catalogtree/internal/adapters/tui/styles"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, HelpKeys.Close) {
			return m, func() tea.Msg {
				return SwitchToBrowserMsg{}
			}
		}
	}

	return m, nil
}

// View renders the help view
func (m *HelpModel) View() string {
	v := NewViewBuilder().
		Title("Catalog Tree Help").
		Subtitle("Browse a large catalog one page at a time")

	v.Line(styles.InputLabel.Render("Navigation"))
	v.Raw(helpLine("j / k / ↑ / ↓", "Move up/down"))
	v.Raw(helpLine("pgup / pgdown", "Scroll one screen"))
	v.Raw(helpLine("h / ←", "Collapse / go to parent"))
	v.Raw(helpLine("l / → / Enter", "Expand, fetching the first page"))
	v.Raw(helpLine("Enter on load more", "Fetch the next page"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("Selection"))
	v.Raw(helpLine("space", "Toggle checked (cascades to loaded children)"))
	v.Raw(helpLine("y", "Copy the selected keys to the clipboard"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("Paging"))
	v.Raw(helpLine("L", "Load every remaining page"))
	v.Raw(helpLine("x", "Drop the last fetched page"))
	v.Raw(helpLine("r", "Reload (forget fetched children)"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("General"))
	v.Raw(helpLine("/", "Filter loaded rows"))
	v.Raw(helpLine("o", "Open file in editor"))
	v.Raw(helpLine("?", "Toggle help"))
	v.Raw(helpLine("q / Ctrl+C", "Quit"))
	v.BlankLine()

	v.Muted("Only loaded rows are searched and copied; unfetched pages are")
	v.Muted("selected implicitly when their parent is checked.")
	v.BlankLine()

	v.Raw(styles.HelpDesc.Render("Press "))
	v.Raw(styles.HelpKey.Render("esc"))
	v.Raw(styles.HelpDesc.Render(" or "))
	v.Raw(styles.HelpKey.Render("?"))
	v.Raw(styles.HelpDesc.Render(" to close"))

	return v.String()
}

func helpLine(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 20)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
