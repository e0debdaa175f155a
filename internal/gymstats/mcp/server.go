package mcp

import (
	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/comparison"
	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/records"
	"github.com/2beens/liftlog/internal/gymstats/stats"
	"github.com/2beens/liftlog/internal/telemetry/metrics"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ServerParams struct {
	Store datastore.Store
	// Schema is optional; without it get_liftlog_schema reports an error.
	Schema              SchemaRepo
	MetricsManager      *metrics.Manager
	ComparisonScanLimit int
}

// NewServer builds an MCP server exposing the read-only analytics of the
// store's session user: history, progress, weekly summaries, last occurrence, PRs.
func NewServer(params ServerParams) *mcp.Server {
	reader := history.NewReader(params.Store)
	svc := NewContextService(ContextServiceParams{
		Schema:     params.Schema,
		Reader:     reader,
		Stats:      stats.NewService(reader),
		Comparison: comparison.NewEngine(params.Store, params.MetricsManager).WithScanLimit(params.ComparisonScanLimit),
		Records:    records.NewTracker(params.Store, params.MetricsManager),
	})
	return newServer(NewHandler(svc))
}

func newServer(h *Handler) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "liftlog-gymstats",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_liftlog_schema",
		Description: "Returns the DB schema of the liftlog tables (workouts, sets, exercises, personal records, templates, library): columns, types, nullable, default.",
	}, h.GetSchemaTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_history",
		Description: "Returns every logged set of an exercise, newest workout first, with workout date and title. Args: exercise_name; optional: limit.",
	}, h.GetExerciseHistoryTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_progress",
		Description: "Returns chart series for an exercise: max weight per workout, volume per workout, weekly volume, and the best set. Use to see how a lift progressed.",
	}, h.GetExerciseProgressTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weekly_summaries",
		Description: "Returns Monday-aligned weekly summaries (workouts, total volume, sets, exercises) and the change between the two most recent weeks. Optional: weeks (default 8).",
	}, h.GetWeeklySummariesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_last_occurrence",
		Description: "Returns the most recent earlier workout containing an exercise, its max weight and reps, and whether the current max is up, down or the same.",
	}, h.GetLastOccurrenceTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_personal_records",
		Description: "Returns the personal record timeline of an exercise, oldest first, and the current max.",
	}, h.GetPersonalRecordsTool())

	return s
}
