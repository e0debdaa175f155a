package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/gymstats/comparison"
	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/records"
	"github.com/2beens/liftlog/internal/gymstats/stats"
)

var ErrSchemaUnavailable = errors.New("schema not available")

type historyReader interface {
	ForExercise(ctx context.Context, exerciseName string, limit int) ([]history.Entry, error)
}

type progressService interface {
	ExerciseProgress(ctx context.Context, exerciseName string, limit int) (*stats.ExerciseProgress, error)
	WeeklyOverview(ctx context.Context, weeksCount int, now time.Time) (*stats.WeeklyOverview, error)
}

type comparisonEngine interface {
	LastOccurrence(ctx context.Context, exerciseName, excludeWorkoutID string, currentMaxWeight float64) (*comparison.Result, error)
}

type recordsTracker interface {
	Timeline(ctx context.Context, exerciseName string) ([]records.Record, error)
}

// contextService is what the tool handlers need.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	ExerciseHistory(ctx context.Context, exerciseName string, limit int) ([]history.Entry, error)
	ExerciseProgress(ctx context.Context, exerciseName string, limit int) (*stats.ExerciseProgress, error)
	WeeklySummaries(ctx context.Context, weeksCount int) (*stats.WeeklyOverview, error)
	LastOccurrence(ctx context.Context, exerciseName, excludeWorkoutID string, currentMaxWeight float64) (*comparison.Result, error)
	PersonalRecords(ctx context.Context, exerciseName string) (*PersonalRecords, error)
}

type PersonalRecords struct {
	ExerciseName string           `json:"exerciseName"`
	Records      []records.Record `json:"records"`
	CurrentMax   *records.Record  `json:"currentMax,omitempty"`
}

type ContextServiceParams struct {
	Schema     SchemaRepo
	Reader     historyReader
	Stats      progressService
	Comparison comparisonEngine
	Records    recordsTracker
	Now        func() time.Time
}

// ContextService answers the analytics questions asked through MCP tools.
type ContextService struct {
	schema     SchemaRepo
	reader     historyReader
	stats      progressService
	comparison comparisonEngine
	records    recordsTracker
	now        func() time.Time
}

func NewContextService(params ContextServiceParams) *ContextService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ContextService{
		schema:     params.Schema,
		reader:     params.Reader,
		stats:      params.Stats,
		comparison: params.Comparison,
		records:    params.Records,
		now:        now,
	}
}

// GetSchema returns the column layout of the liftlog tables as markdown.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	if s.schema == nil {
		return "", ErrSchemaUnavailable
	}
	cols, err := s.schema.GetColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatSchema(cols), nil
}

func formatSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# Liftlog DB Schema\n\nNo liftlog tables found in the database.\n"
	}

	byTable := make(map[string][]SchemaColumn)
	for _, c := range cols {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}

	tableOrder := make([]string, 0, len(byTable))
	for t := range byTable {
		tableOrder = append(tableOrder, t)
	}
	sort.Strings(tableOrder)

	var b strings.Builder
	b.WriteString("# Liftlog DB Schema\n\n")
	b.WriteString(fmt.Sprintf("Tables: %s (schema: public).\n\n", strings.Join(tableOrder, ", ")))

	for _, tableName := range tableOrder {
		b.WriteString("## ")
		b.WriteString(tableName)
		b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|--------|\n")
		for _, c := range byTable[tableName] {
			def := "-"
			if c.ColumnDef != nil && *c.ColumnDef != "" {
				def = *c.ColumnDef
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def))
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n\n") + "\n"
}

func (s *ContextService) ExerciseHistory(ctx context.Context, exerciseName string, limit int) ([]history.Entry, error) {
	return s.reader.ForExercise(ctx, exerciseName, limit)
}

func (s *ContextService) ExerciseProgress(ctx context.Context, exerciseName string, limit int) (*stats.ExerciseProgress, error) {
	return s.stats.ExerciseProgress(ctx, exerciseName, limit)
}

// WeeklySummaries covers the weeksCount weeks up to and including the current one.
func (s *ContextService) WeeklySummaries(ctx context.Context, weeksCount int) (*stats.WeeklyOverview, error) {
	return s.stats.WeeklyOverview(ctx, weeksCount, s.now())
}

func (s *ContextService) LastOccurrence(ctx context.Context, exerciseName, excludeWorkoutID string, currentMaxWeight float64) (*comparison.Result, error) {
	return s.comparison.LastOccurrence(ctx, exerciseName, excludeWorkoutID, currentMaxWeight)
}

// PersonalRecords returns the PR timeline of an exercise together with its current max.
func (s *ContextService) PersonalRecords(ctx context.Context, exerciseName string) (*PersonalRecords, error) {
	timeline, err := s.records.Timeline(ctx, exerciseName)
	if err != nil {
		return nil, err
	}
	prs := &PersonalRecords{
		ExerciseName: exerciseName,
		Records:      timeline,
	}
	if current, ok := records.CurrentMax(timeline); ok {
		prs.CurrentMax = &current
	}
	return prs, nil
}
