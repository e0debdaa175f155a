package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/2beens/liftlog/internal/datastore"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

// Handler turns MCP tool calls into service calls and formats the results.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// failed reports a service error to the client; an unknown session user gets a
// hint instead of the raw error.
func failed(what string, err error) *mcp.CallToolResult {
	if errors.Is(err, datastore.ErrUnauthenticated) {
		return errorResult("Error " + what + ": no liftlog user configured for this MCP server")
	}
	log.Errorf("mcp %s: %s", what, err)
	return errorResult("Error " + what + ": " + err.Error())
}

// NoInput is the input of tools without arguments.
type NoInput struct{}

func (h *Handler) GetSchemaTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return failed("fetching schema", err), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

// ExerciseInput is the input of the per-exercise tools.
type ExerciseInput struct {
	ExerciseName string `json:"exercise_name" jsonschema:"Exercise name, case-insensitive (e.g. Bench Press)"`
	Limit        int    `json:"limit,omitempty" jsonschema:"Max number of sets to consider, newest first; 0 means all"`
}

func (in ExerciseInput) name() (string, bool) {
	name := strings.TrimSpace(in.ExerciseName)
	return name, name != ""
}

func (h *Handler) GetExerciseHistoryTool() func(context.Context, *mcp.CallToolRequest, ExerciseInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseInput) (*mcp.CallToolResult, any, error) {
		name, ok := in.name()
		if !ok {
			return errorResult("exercise_name is required"), nil, nil
		}
		entries, err := h.service.ExerciseHistory(ctx, name, in.Limit)
		if err != nil {
			return failed("fetching exercise history", err), nil, nil
		}
		return jsonResult(entries), nil, nil
	}
}

func (h *Handler) GetExerciseProgressTool() func(context.Context, *mcp.CallToolRequest, ExerciseInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseInput) (*mcp.CallToolResult, any, error) {
		name, ok := in.name()
		if !ok {
			return errorResult("exercise_name is required"), nil, nil
		}
		progress, err := h.service.ExerciseProgress(ctx, name, in.Limit)
		if err != nil {
			return failed("fetching exercise progress", err), nil, nil
		}
		return jsonResult(progress), nil, nil
	}
}

type WeeklySummariesInput struct {
	Weeks int `json:"weeks,omitempty" jsonschema:"Number of weeks ending with the current one (default 8)"`
}

func (h *Handler) GetWeeklySummariesTool() func(context.Context, *mcp.CallToolRequest, WeeklySummariesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WeeklySummariesInput) (*mcp.CallToolResult, any, error) {
		if in.Weeks < 0 {
			return errorResult("weeks must not be negative"), nil, nil
		}
		overview, err := h.service.WeeklySummaries(ctx, in.Weeks)
		if err != nil {
			return failed("fetching weekly summaries", err), nil, nil
		}
		return jsonResult(overview), nil, nil
	}
}

type LastOccurrenceInput struct {
	ExerciseName     string  `json:"exercise_name" jsonschema:"Exercise name, case-insensitive"`
	ExcludeWorkoutID string  `json:"exclude_workout_id,omitempty" jsonschema:"Workout to ignore, usually the one being logged"`
	CurrentMaxWeight float64 `json:"current_max_weight,omitempty" jsonschema:"Heaviest weight of the current workout, used for the trend"`
}

func (h *Handler) GetLastOccurrenceTool() func(context.Context, *mcp.CallToolRequest, LastOccurrenceInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in LastOccurrenceInput) (*mcp.CallToolResult, any, error) {
		name := strings.TrimSpace(in.ExerciseName)
		if name == "" {
			return errorResult("exercise_name is required"), nil, nil
		}
		res, err := h.service.LastOccurrence(ctx, name, in.ExcludeWorkoutID, in.CurrentMaxWeight)
		if err != nil {
			return failed("fetching last occurrence", err), nil, nil
		}
		return jsonResult(res), nil, nil
	}
}

func (h *Handler) GetPersonalRecordsTool() func(context.Context, *mcp.CallToolRequest, ExerciseInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseInput) (*mcp.CallToolResult, any, error) {
		name, ok := in.name()
		if !ok {
			return errorResult("exercise_name is required"), nil, nil
		}
		prs, err := h.service.PersonalRecords(ctx, name)
		if err != nil {
			return failed("fetching personal records", err), nil, nil
		}
		return jsonResult(prs), nil, nil
	}
}
