package mcp

import "github.com/mark3labs/mcp-go/mcp"

var getUserInfoToolDef = mcp.NewTool("get_user_info",
	mcp.WithDescription("Return the active username and their completion records, ordered by repeat date. "+
		"Loads the table from the remote service on first use."),
	mcp.WithBoolean("should_refresh",
		mcp.Description("Re-resolve the username and reload the table even if a session is loaded"),
	),
)

var problemCompletedToolDef = mcp.NewTool("problem_completed",
	mcp.WithDescription("Record a completed problem. The insert runs in the background; the result carries its job id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Problem slug, e.g. two-sum")),
	mcp.WithString("link", mcp.Description("Problem URL")),
	mcp.WithString("difficulty", mcp.Required(),
		mcp.Description("Problem difficulty"),
		mcp.Enum("Easy", "Medium", "Hard"),
	),
	mcp.WithString("repeat_date", mcp.Required(), mcp.Description("Next review date (YYYY-MM-DD or RFC 3339)")),
	mcp.WithString("last_completion_date", mcp.Description("Completion time (RFC 3339). Defaults to now")),
)

var deleteRowToolDef = mcp.NewTool("delete_row",
	mcp.WithDescription("Delete a problem's completion record remotely and locally"),
	mcp.WithString("id", mcp.Required(), mcp.Description("Problem slug")),
)

var checkCompletedLastDayToolDef = mcp.NewTool("check_completed_last_day",
	mcp.WithDescription("Report whether a problem was completed within the last 24 hours"),
	mcp.WithString("id", mcp.Required(), mcp.Description("Problem slug")),
)
