package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"catalogtree/internal/application"
	"catalogtree/internal/application/commands"
)

// Session owns the tree shared by every tool call. Handlers may run
// concurrently, so each call holds the session lock.
type Session struct {
	mu    sync.Mutex
	model *application.LazyTreeModel
}

// NewSession wraps a model
func NewSession(model *application.LazyTreeModel) *Session {
	return &Session{model: model}
}

func (s *Session) with(fn func(m *application.LazyTreeModel) (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.model)
}

// RegisterTreeTools adds the catalog tree tools to the MCP server.
func RegisterTreeTools(srv *server.MCPServer, sess *Session) {
	srv.AddTool(childrenTool(), childrenHandler(sess))
	srv.AddTool(fetchMoreTool(), fetchMoreHandler(sess))
	srv.AddTool(loadMoreTool(), loadMoreHandler(sess))
	srv.AddTool(checkTool(), checkHandler(sess))
	srv.AddTool(selectionTool(), selectionHandler(sess))
	srv.AddTool(treeTool(), treeHandler(sess))
	srv.AddTool(invalidateTool(), invalidateHandler(sess))
}

// --- children ---

func childrenTool() mcp.Tool {
	return mcp.NewTool("children",
		mcp.WithDescription("List the loaded children of a node. A node that was never fetched gets its first page fetched. The last row reads \"load more\" when further pages exist."),
		mcp.WithString("key",
			mcp.Description("Key of a loaded node. Omit for the root."),
		),
	)
}

func childrenHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			node, err := application.ResolveNode(m, key)
			if err != nil {
				return toolError(err)
			}
			if m.State(node) == application.NodeUnfetched {
				if err := m.FetchMore(ctx, node); err != nil {
					return toolError(err)
				}
			}
			return formatChildren(m, node)
		})
	}
}

// --- fetch_more ---

func fetchMoreTool() mcp.Tool {
	return mcp.NewTool("fetch_more",
		mcp.WithDescription("Fetch the next page of children of a loaded node."),
		mcp.WithString("key",
			mcp.Description("Key of a loaded node. Omit for the root."),
		),
	)
}

func fetchMoreHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			result, err := commands.NewFetchMoreCommand(m, key).Execute(ctx)
			if err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(result.Message), nil
		})
	}
}

// --- load_more ---

func loadMoreTool() mcp.Tool {
	return mcp.NewTool("load_more",
		mcp.WithDescription("Activate the \"load more\" row of a node, replacing it with the next page."),
		mcp.WithString("key",
			mcp.Description("Key of the node whose load-more row to activate. Omit for the root."),
		),
	)
}

func loadMoreHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			result, err := commands.NewActivateSentinelCommand(m, key).Execute(ctx)
			if err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(result.Message), nil
		})
	}
}

// --- check ---

func checkTool() mcp.Tool {
	return mcp.NewTool("check",
		mcp.WithDescription("Check or uncheck a loaded node. Branches cascade to every loaded descendant; ancestors become partial or checked accordingly."),
		mcp.WithString("key",
			mcp.Description("Key of a loaded node"),
			mcp.Required(),
		),
		mcp.WithString("state",
			mcp.Description("checked or unchecked (default checked)"),
		),
	)
}

func checkHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		state := req.GetString("state", "checked")
		if key == "" {
			return toolError(fmt.Errorf("key is required"))
		}
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			result, err := commands.NewSetCheckedCommand(m, key, state).Execute(ctx)
			if err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(fmt.Sprintf("%s (root is %s)", result.Message, result.RootState)), nil
		})
	}
}

// --- selection ---

func selectionTool() mcp.Tool {
	return mcp.NewTool("selection",
		mcp.WithDescription("Export the checked nodes."),
		mcp.WithString("mode",
			mcp.Description("roots (highest checked nodes, default) or leaves"),
		),
		mcp.WithString("format",
			mcp.Description("yaml (default) or json"),
		),
	)
}

func selectionHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode := req.GetString("mode", "")
		format := req.GetString("format", "yaml")
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			var buf bytes.Buffer
			if _, err := commands.NewExportSelectionCommand(m, mode, format, &buf).Execute(ctx); err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(buf.String()), nil
		})
	}
}

// --- tree ---

func treeTool() mcp.Tool {
	return mcp.NewTool("tree",
		mcp.WithDescription("Display the loaded part of the tree with check marks."),
		mcp.WithString("key",
			mcp.Description("Key of the subtree root. Omit for the whole tree."),
		),
		mcp.WithNumber("depth",
			mcp.Description("Load this many levels below the node before rendering (default 0: render what is loaded)"),
		),
	)
}

func treeHandler(sess *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		depth := req.GetInt("depth", 0)
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			if depth > 0 {
				if _, err := commands.NewExpandCommand(m, key, depth-1, 1).Execute(ctx); err != nil {
					return toolError(err)
				}
			}
			var buf bytes.Buffer
			if err := commands.NewRenderTreeCommand(m, key, &buf).Execute(ctx); err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(buf.String()), nil
		})
	}
}

// --- invalidate ---

func invalidateTool() mcp.Tool {
	return mcp.NewTool("invalidate",
		mcp.WithDescription("Forget the loaded children of a node so the next listing refetches them."),
		mcp.WithString("key",
			mcp.Description("Key of a loaded branch. Omit for the root."),
		),
	)
}

func invalidateHandler(sess *Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		return sess.with(func(m *application.LazyTreeModel) (*mcp.CallToolResult, error) {
			node, err := application.ResolveNode(m, key)
			if err != nil {
				return toolError(err)
			}
			if !m.Invalidate(node) {
				return toolError(fmt.Errorf("%s is not a branch", node.Name))
			}
			return mcp.NewToolResultText(fmt.Sprintf("Invalidated %s", node.Name)), nil
		})
	}
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatChildren(m *application.LazyTreeModel, node *application.Node) (*mcp.CallToolResult, error) {
	children := m.ChildrenOf(node)
	if len(children) == 0 {
		return mcp.NewToolResultText("No children."), nil
	}
	var sb strings.Builder
	for _, c := range children {
		if c.Sentinel {
			fmt.Fprintf(&sb, "%s (call load_more with key %q)\n", c.Name, node.Key)
			continue
		}
		kind := "leaf"
		if c.Expandable {
			kind = m.State(c).String()
		}
		fmt.Fprintf(&sb, "%s %s  %s  [%s]\n", c.CheckState().Mark(), c.Key, c.Name, kind)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
