package layout

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

// NewMCPServer exposes svc as MCP tools.
func NewMCPServer(svc *Service, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("wmglue-layout", version)
	h := &mcpHandlers{svc: svc}

	s.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List the tiled windows with geometry, class, title and focus state"),
			mcp.WithBoolean("cached", mcp.Description("Return the last listing instead of querying the window manager")),
		),
		h.listWindows,
	)
	s.AddTool(
		mcp.NewTool("focus_window",
			mcp.WithDescription("Activate a window by its X window id"),
			mcp.WithString("wid", mcp.Required(), mcp.Description("Window id, e.g. 0x1c00003")),
		),
		h.focusWindow,
	)
	s.AddTool(
		mcp.NewTool("send_hotkey",
			mcp.WithDescription("Send a key chord to the focused window, e.g. super+j"),
			mcp.WithString("hotkey", mcp.Required(), mcp.Description("xdotool key names joined with +")),
		),
		h.sendHotkey,
	)
	return s
}

// ServeMCP runs the MCP server over stdio until stdin closes.
func ServeMCP(svc *Service, version string) error {
	return mcpserver.ServeStdio(NewMCPServer(svc, version))
}

type mcpHandlers struct {
	svc *Service
}

func snapshotText(snap Snapshot) string {
	b, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Sprintf("size: %d", snap.Size)
	}
	return string(b)
}

func (h *mcpHandlers) listWindows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if cached, _ := request.GetArguments()["cached"].(bool); cached {
		return mcp.NewToolResultText(snapshotText(h.svc.Cached())), nil
	}
	snap, err := h.svc.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(snapshotText(snap)), nil
}

func (h *mcpHandlers) focusWindow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wid, _ := request.GetArguments()["wid"].(string)
	if wid == "" {
		return mcp.NewToolResultError("wid is required"), nil
	}
	snap, err := h.svc.Focus(ctx, wid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(snapshotText(snap)), nil
}

func (h *mcpHandlers) sendHotkey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, _ := request.GetArguments()["hotkey"].(string)
	if keys == "" {
		return mcp.NewToolResultError("hotkey is required"), nil
	}
	if err := h.svc.Hotkey(ctx, keys); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("sent " + keys), nil
}
