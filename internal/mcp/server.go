package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/lcsync/internal/config"
	"github.com/hpungsan/lcsync/internal/host"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"get_user_info": {
		def:     getUserInfoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetUserInfo },
	},
	"problem_completed": {
		def:     problemCompletedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProblemCompleted },
	},
	"delete_row": {
		def:     deleteRowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleteRow },
	},
	"check_completed_last_day": {
		def:     checkCompletedLastDayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCheckCompletedLastDay },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing the host actions as tools.
// Tools listed in cfg.DisabledTools are not registered.
func NewServer(d *host.Dispatcher, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lcsync",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(d)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the MCP server over stdio until stdin closes, then waits for
// background jobs to finish.
func Run(d *host.Dispatcher, cfg *config.Config, version string) error {
	s := NewServer(d, cfg, version)
	err := server.ServeStdio(s)
	d.Close()
	return err
}
