package stats

import (
	"context"
	"time"

	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultOverviewWeeks = 8

type ExerciseProgress struct {
	Exercise     string          `json:"exercise"`
	History      []history.Entry `json:"history"`
	MaxWeight    []Point         `json:"maxWeight"`
	Volume       []Point         `json:"volume"`
	WeeklyVolume []Point         `json:"weeklyVolume"`
	Best         *history.Entry  `json:"best,omitempty"`
}

type WeeklyOverview struct {
	Weeks []WeekSummary `json:"weeks"`
	// Comparison is nil when fewer than two weeks have data.
	Comparison *WeekComparison `json:"comparison,omitempty"`
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=stats_test

type historyReader interface {
	ForExercise(ctx context.Context, exerciseName string, limit int) ([]history.Entry, error)
	WorkoutsInRange(ctx context.Context, from, to time.Time) ([]history.Workout, error)
}

type Service struct {
	reader historyReader
}

func NewService(reader historyReader) *Service {
	return &Service{
		reader: reader,
	}
}

func (s *Service) ExerciseProgress(ctx context.Context, exerciseName string, limit int) (_ *ExerciseProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stats.exerciseProgress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exerciseName))

	entries, err := s.reader.ForExercise(ctx, exerciseName, limit)
	if err != nil {
		return nil, err
	}

	progress := &ExerciseProgress{
		Exercise:     exerciseName,
		History:      entries,
		MaxWeight:    MaxWeightSeries(entries),
		Volume:       VolumeSeries(entries),
		WeeklyVolume: WeeklyVolumeSeries(entries),
	}
	if best, ok := BestSet(entries); ok {
		progress.Best = &best
	}
	return progress, nil
}

// WeeklyOverview summarizes the weeksCount weeks ending with the week containing now.
func (s *Service) WeeklyOverview(ctx context.Context, weeksCount int, now time.Time) (_ *WeeklyOverview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stats.weeklyOverview")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if weeksCount <= 0 {
		weeksCount = DefaultOverviewWeeks
	}
	span.SetAttributes(attribute.Int("weeks", weeksCount))

	to := weeks.WeekEnd(now)
	from := weeks.WeekStart(now).AddDate(0, 0, -7*(weeksCount-1))

	workouts, err := s.reader.WorkoutsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	overview := &WeeklyOverview{
		Weeks: WeeklySummaries(workouts, weeksCount),
	}
	if cmp, ok := CompareWeeks(overview.Weeks); ok {
		overview.Comparison = &cmp
	}
	return overview, nil
}
