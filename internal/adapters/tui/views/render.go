package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"catalogtree/internal/adapters/tui/styles"
	"catalogtree/internal/domain"
)

// RenderKeyHelp formats a key binding as help text (key + description)
func RenderKeyHelp(b key.Binding) string {
	help := b.Help()
	return fmt.Sprintf("%s %s",
		styles.HelpKey.Render(help.Key),
		styles.HelpDesc.Render(help.Desc),
	)
}

// RenderHelpLine renders multiple key bindings as a help line separated by bullets
func RenderHelpLine(bindings ...key.Binding) string {
	var parts []string
	for _, b := range bindings {
		parts = append(parts, RenderKeyHelp(b))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}

// RenderMessage renders a message with appropriate styling based on isError
func RenderMessage(message string, isError bool) string {
	if message == "" {
		return ""
	}
	if isError {
		return styles.ErrorMsg.Render(message)
	}
	return styles.Success.Render(message)
}

// RenderTitle renders a title with the standard title style
func RenderTitle(title string) string {
	return styles.Title.Render(title)
}

// RenderSubtitle renders a subtitle with the standard subtitle style
func RenderSubtitle(subtitle string) string {
	return styles.Subtitle.Render(subtitle)
}

// RenderMuted renders muted/secondary text
func RenderMuted(text string) string {
	return styles.MutedText.Render(text)
}

// RenderMark renders the checkbox glyph for a selection state
func RenderMark(state domain.CheckState) string {
	style := styles.MarkStyle(state == domain.Checked, state == domain.PartiallyChecked)
	return style.Render(state.Mark())
}

// RowOptions is what a tree row shows besides the node itself.
type RowOptions struct {
	Selected bool
	// Loading is set while a page of the node is awaited. For a load-more
	// row it refers to the parent's page.
	Loading bool
	// Count is the child count suffix, "(12)" or "(50+)".
	Count string
}

// RenderNode renders one tree row: indent, expander, mark and name. A
// load-more row has no mark and reads "Loading…" while its page is awaited.
func RenderNode(node *domain.Node, opts RowOptions) string {
	indent := strings.Repeat("  ", node.Depth())

	if node.Sentinel {
		text := node.Name
		if opts.Loading {
			text = "Loading…"
		}
		style := styles.NodeSentinel
		if opts.Selected {
			style = styles.NodeSelected
		}
		return indent + styles.TreeBranch.Render(styles.TreeLeaf) + "    " + style.Render(text)
	}

	var prefix string
	switch {
	case !node.Expandable:
		prefix = styles.TreeLeaf
	case opts.Loading:
		prefix = styles.TreeLoading
	case node.Expanded:
		prefix = styles.TreeExpanded
	default:
		prefix = styles.TreeCollapsed
	}

	style := styles.NodeLeaf
	if node.Expandable {
		style = styles.NodeBranch
	}
	if opts.Selected {
		style = styles.NodeSelected
	}

	line := indent + styles.TreeBranch.Render(prefix) + RenderMark(node.CheckState()) + " " + style.Render(node.Name)
	if opts.Count != "" {
		line += " " + RenderMuted(opts.Count)
	}
	return line
}

// RenderMatch renders a filter hit: mark, name with the matched bytes
// highlighted, and the path of its parent.
func RenderMatch(node *domain.Node, matched []int, selected bool) string {
	line := fmt.Sprintf("%s %s  %s",
		RenderMark(node.CheckState()),
		highlight(node.Name, matched),
		RenderMuted(NodePath(node)),
	)
	if selected {
		return styles.NodeSelected.Render("›") + " " + line
	}
	return "  " + line
}

// RenderStatus renders the counts line of the browser
func RenderStatus(loaded, selected, loading int) string {
	status := fmt.Sprintf("%d loaded • %d selected", loaded, selected)
	if loading > 0 {
		status += styles.StatusText.Render(fmt.Sprintf(" • loading %d", loading))
	}
	return styles.StatusBar.Render(status)
}

// NodePath joins the names between the root and node's parent
func NodePath(node *domain.Node) string {
	var parts []string
	for p := node.Parent(); p != nil && p.Parent() != nil; p = p.Parent() {
		parts = append(parts, p.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func highlight(s string, matched []int) string {
	if len(matched) == 0 {
		return s
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range s {
		if hit[i] {
			b.WriteString(styles.SearchMatch.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ViewBuilder helps construct view output with consistent formatting
type ViewBuilder struct {
	b strings.Builder
}

// NewViewBuilder creates a new view builder
func NewViewBuilder() *ViewBuilder {
	return &ViewBuilder{}
}

// Title adds a title section
func (v *ViewBuilder) Title(title string) *ViewBuilder {
	v.b.WriteString(RenderTitle(title))
	v.b.WriteString("\n\n")
	return v
}

// Subtitle adds a subtitle section
func (v *ViewBuilder) Subtitle(subtitle string) *ViewBuilder {
	v.b.WriteString(RenderSubtitle(subtitle))
	v.b.WriteString("\n\n")
	return v
}

// Status adds the counts line
func (v *ViewBuilder) Status(loaded, selected, loading int) *ViewBuilder {
	return v.Line(RenderStatus(loaded, selected, loading))
}

// Node adds a tree row
func (v *ViewBuilder) Node(node *domain.Node, opts RowOptions) *ViewBuilder {
	return v.Line(RenderNode(node, opts))
}

// Match adds a filter hit
func (v *ViewBuilder) Match(node *domain.Node, matched []int, selected bool) *ViewBuilder {
	return v.Line(RenderMatch(node, matched, selected))
}

// Line adds a line of text
func (v *ViewBuilder) Line(text string) *ViewBuilder {
	v.b.WriteString(text)
	v.b.WriteString("\n")
	return v
}

// BlankLine adds a blank line
func (v *ViewBuilder) BlankLine() *ViewBuilder {
	v.b.WriteString("\n")
	return v
}

// Muted adds muted text followed by a newline
func (v *ViewBuilder) Muted(text string) *ViewBuilder {
	v.b.WriteString(RenderMuted(text))
	v.b.WriteString("\n")
	return v
}

// Message adds a message if non-empty, followed by a blank line
func (v *ViewBuilder) Message(message string, isError bool) *ViewBuilder {
	if message == "" {
		return v
	}
	v.b.WriteString(RenderMessage(message, isError))
	v.b.WriteString("\n\n")
	return v
}

// Help adds a help line with key bindings
func (v *ViewBuilder) Help(bindings ...key.Binding) *ViewBuilder {
	v.b.WriteString(RenderHelpLine(bindings...))
	return v
}

// Raw adds raw text without any formatting
func (v *ViewBuilder) Raw(text string) *ViewBuilder {
	v.b.WriteString(text)
	return v
}

// String returns the built view string wrapped in the app style
func (v *ViewBuilder) String() string {
	return styles.App.Render(v.b.String())
}
