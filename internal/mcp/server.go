package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow workout session runner. Inspect live workout sessions (phase, elapsed time, rest countdown, per-set progress) and look up exercise catalog details."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetExerciseDetails, Handler: h.getExerciseDetails},
	)

	s.AddResources(
		server.ServerResource{Resource: resLiveSessions, Handler: h.liveSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Tool definitions ---

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List all live workout sessions with their id, name, and phase (not_started, active, paused, completed)."),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get the full snapshot of one live session: phase, cursor position, elapsed seconds, rest countdown, and every exercise with its sets and details."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetExerciseDetails = mcp.NewTool("get_exercise_details",
	mcp.WithDescription("Look up catalog details for an exercise: category, muscle groups, equipment, instructions, tips, and media. Unknown exercises return a minimal fallback entry."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise catalog id")),
	mcp.WithString("name", mcp.Description("Display name used for the fallback when the catalog has no entry")),
)

// --- Tool handlers ---

func (h *handlers) listSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := h.ds.ListSessions(ctx)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summaries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + err.Error()), nil
	}

	snap, err := h.ds.GetSession(ctx, id)
	if err != nil {
		h.log.Error("mcp get_session", "session_id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(snap)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	name := req.GetString("name", "")

	details, err := h.ds.GetExerciseDetails(ctx, exerciseID, name)
	if err != nil {
		h.log.Error("mcp get_exercise_details", "exercise_id", exerciseID, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(details)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resource definitions ---

var resLiveSessions = mcp.NewResource(
	"repflow://live_sessions",
	"Live Sessions",
	mcp.WithResourceDescription("All currently loaded workout sessions with name and phase"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) liveSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summaries, err := h.ds.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
