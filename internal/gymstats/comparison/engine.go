// Package comparison finds the previous occurrence of an exercise and compares
// the current effort against it.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultScanLimit = 20

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
)

// Classify compares the current max weight with the previous one.
func Classify(current, previous float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendSame
	}
}

type Result struct {
	Available     bool      `json:"available"`
	WorkoutID     string    `json:"workoutId,omitempty"`
	Date          time.Time `json:"date,omitempty"`
	Label         string    `json:"label,omitempty"`
	PrevMaxWeight float64   `json:"prevMaxWeight"`
	PrevMaxReps   int       `json:"prevMaxReps"`
	Trend         Trend     `json:"trend,omitempty"`
}

type Engine struct {
	store          datastore.Store
	metricsManager *metrics.Manager
	scanLimit      int
}

func NewEngine(store datastore.Store, metricsManager *metrics.Manager) *Engine {
	return &Engine{
		store:          store,
		metricsManager: metricsManager,
		scanLimit:      DefaultScanLimit,
	}
}

// WithScanLimit bounds how many candidate occurrences are read per lookup.
func (e *Engine) WithScanLimit(limit int) *Engine {
	if limit > 0 {
		e.scanLimit = limit
	}
	return e
}

// LastOccurrence looks up the most recent workout, other than excludeWorkoutID, in which
// exerciseName was performed. Store failures degrade to an unavailable result.
func (e *Engine) LastOccurrence(
	ctx context.Context,
	exerciseName string,
	excludeWorkoutID string,
	currentMaxWeight float64,
) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "comparison.lastOccurrence")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exerciseName))

	res, err := e.lastOccurrence(ctx, exerciseName, excludeWorkoutID, currentMaxWeight)
	if err != nil {
		if errors.Is(err, datastore.ErrUnauthenticated) {
			return nil, err
		}
		log.Warnf("last occurrence of [%s]: %s", exerciseName, err)
		e.metricsManager.EnrichmentFallback("comparison")
		return &Result{Available: false}, nil
	}
	return res, nil
}

func (e *Engine) lastOccurrence(
	ctx context.Context,
	exerciseName string,
	excludeWorkoutID string,
	currentMaxWeight float64,
) (*Result, error) {
	userID, err := e.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}
	name := datastore.FoldName(exerciseName)
	if name == "" {
		return &Result{Available: false}, nil
	}

	filters := []datastore.Filter{
		datastore.Eq(datastore.ColumnUserID, userID),
		datastore.Eq("workout.user_id", userID),
		datastore.Eq("exercise.user_id", userID),
		datastore.EqFold("exercise.name", name),
	}
	if excludeWorkoutID != "" {
		filters = append(filters, datastore.Neq("workout_id", excludeWorkoutID))
	}

	rows, err := e.store.Query(ctx, datastore.Query{
		Table: datastore.TableWorkoutExercises,
		Joins: []datastore.Join{
			{Table: datastore.TableExercises, As: "exercise", On: "exercise_id"},
			{Table: datastore.TableWorkouts, As: "workout", On: "workout_id"},
		},
		Filters: filters,
		Order:   []datastore.Order{datastore.Desc("workout.date")},
		Limit:   e.scanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}

	// the exercise may fill several slots of that workout; all of them count
	var (
		slotIDs []string
		match   datastore.Row
	)
	for _, row := range rows {
		if row.UserID() != userID || (excludeWorkoutID != "" && row.String("workout_id") == excludeWorkoutID) {
			continue
		}
		exercise, ok := row.Relation("exercise").One()
		if !ok || datastore.FoldName(exercise.String("name")) != name {
			continue
		}
		workout, ok := row.Relation("workout").One()
		if !ok || workout.UserID() != userID {
			continue
		}
		if match == nil {
			match = workout
		}
		if workout.ID() == match.ID() {
			slotIDs = append(slotIDs, row.ID())
		}
	}
	if match == nil {
		return &Result{Available: false}, nil
	}

	setRows, err := e.store.Query(ctx, datastore.Query{
		Table: datastore.TableSets,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.In("workout_exercise_id", slotIDs),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query sets of workout %s: %w", match.ID(), err)
	}

	var (
		maxWeight float64
		maxReps   int
	)
	for _, row := range setRows {
		if row.UserID() != userID {
			continue
		}
		if w := row.Float("weight"); w > maxWeight {
			maxWeight = w
		}
		if r := row.Int("reps"); r > maxReps {
			maxReps = r
		}
	}

	date, _ := match.Time("date")
	date = weeks.Truncate(date)
	return &Result{
		Available:     true,
		WorkoutID:     match.ID(),
		Date:          date,
		Label:         weeks.Label(date),
		PrevMaxWeight: maxWeight,
		PrevMaxReps:   maxReps,
		Trend:         Classify(currentMaxWeight, maxWeight),
	}, nil
}
