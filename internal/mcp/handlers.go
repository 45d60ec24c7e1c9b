package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/host"
	"github.com/hpungsan/lcsync/internal/record"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	dispatcher *host.Dispatcher
	now        func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d *host.Dispatcher) *Handlers {
	return &Handlers{dispatcher: d, now: time.Now}
}

// GetUserInfoRequest represents the arguments for get_user_info.
type GetUserInfoRequest struct {
	ShouldRefresh bool `json:"should_refresh,omitempty"`
}

// ProblemCompletedRequest represents the arguments for problem_completed.
type ProblemCompletedRequest struct {
	ID                 string `json:"id"`
	Link               string `json:"link,omitempty"`
	Difficulty         string `json:"difficulty"`
	RepeatDate         string `json:"repeat_date"`
	LastCompletionDate string `json:"last_completion_date,omitempty"`
}

// IDRequest represents the arguments for tools addressing one problem.
type IDRequest struct {
	ID string `json:"id"`
}

// toRecord builds a Record from the request. Link defaults to the problem
// page and the completion time to now.
func (r ProblemCompletedRequest) toRecord(now time.Time) (record.Record, error) {
	rec := record.Record{ID: strings.TrimSpace(r.ID), Link: r.Link}
	if rec.ID == "" {
		return rec, errors.NewInvalidRequest("id is required")
	}
	if rec.Link == "" {
		rec.Link = "https://leetcode.com/problems/" + rec.ID + "/"
	}

	var err error
	if rec.Difficulty, err = record.ParseDifficulty(r.Difficulty); err != nil {
		return rec, errors.NewInvalidRequest(err.Error())
	}
	if rec.RepeatDate, err = record.ParseDate(r.RepeatDate); err != nil {
		return rec, errors.NewInvalidRequest("repeat_date: " + err.Error())
	}
	if r.LastCompletionDate == "" {
		rec.LastCompletionDate = record.NewDate(now)
	} else if rec.LastCompletionDate, err = record.ParseDate(r.LastCompletionDate); err != nil {
		return rec, errors.NewInvalidRequest("last_completion_date: " + err.Error())
	}
	return rec, nil
}

// HandleGetUserInfo handles the get_user_info tool call.
func (h *Handlers) HandleGetUserInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetUserInfoRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return h.dispatch(ctx, host.Message{Action: host.ActionGetUserInfo, ShouldRefresh: input.ShouldRefresh})
}

// HandleProblemCompleted handles the problem_completed tool call.
func (h *Handlers) HandleProblemCompleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProblemCompletedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	rec, err := input.toRecord(h.now())
	if err != nil {
		return errorResult(err), nil
	}
	return h.dispatch(ctx, host.Message{Action: host.ActionProblemCompleted, Record: &rec})
}

// HandleDeleteRow handles the delete_row tool call.
func (h *Handlers) HandleDeleteRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	return h.dispatch(ctx, host.Message{Action: host.ActionDeleteRow, ID: input.ID})
}

// HandleCheckCompletedLastDay handles the check_completed_last_day tool call.
func (h *Handlers) HandleCheckCompletedLastDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	return h.dispatch(ctx, host.Message{Action: host.ActionCheckCompletedLastDay, ID: input.ID})
}

func (h *Handlers) dispatch(ctx context.Context, msg host.Message) (*mcp.CallToolResult, error) {
	resp, err := h.dispatcher.Handle(ctx, msg)
	if err != nil {
		return errorResult(err), nil
	}
	if resp.Failure() != nil {
		return failedResult(resp)
	}
	return successResult(resp)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		msg := sErr.Message
		if err != error(sErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// failedResult renders a response carrying a typed error. The fallback data
// stays in the payload next to the error.
func failedResult(resp host.Response) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}, nil
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
