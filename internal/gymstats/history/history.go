// Package history reads a user's logged sets and workouts back from the store
// and flattens the joined row shapes into plain values.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Entry is one logged set together with the workout it belongs to.
type Entry struct {
	SetID             string    `json:"setId"`
	Reps              int       `json:"reps"`
	Weight            float64   `json:"weight"`
	WorkoutID         string    `json:"workoutId"`
	WorkoutDate       time.Time `json:"workoutDate"`
	WorkoutTitle      string    `json:"workoutTitle"`
	WorkoutExerciseID string    `json:"workoutExerciseId"`
	ExerciseName      string    `json:"exerciseName"`
}

type Set struct {
	ID     string  `json:"id"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// ExerciseLog is a single exercise slot of a workout.
type ExerciseLog struct {
	ID         string `json:"id"`
	ExerciseID string `json:"exerciseId"`
	Name       string `json:"name"`
	Sets       []Set  `json:"sets"`
}

type Workout struct {
	ID        string        `json:"id"`
	Date      time.Time     `json:"date"`
	Title     string        `json:"title"`
	Exercises []ExerciseLog `json:"exercises"`
}

type Reader struct {
	store datastore.Store
}

func NewReader(store datastore.Store) *Reader {
	return &Reader{
		store: store,
	}
}

// ForExercise returns the user's sets of every exercise named exerciseName
// (trimmed, case-insensitive), newest workout first. limit <= 0 means all.
func (r *Reader) ForExercise(ctx context.Context, exerciseName string, limit int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.forExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exerciseName))

	userID, err := r.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(exerciseName)
	if name == "" {
		return []Entry{}, nil
	}

	rows, err := r.store.Query(ctx, datastore.Query{
		Table: datastore.TableSets,
		Joins: []datastore.Join{
			{Table: datastore.TableWorkoutExercises, As: "workout_exercise", On: "workout_exercise_id"},
			{Table: datastore.TableExercises, As: "exercise", On: "exercise_id", Parent: "workout_exercise"},
			{Table: datastore.TableWorkouts, As: "workout", On: "workout_id", Parent: "workout_exercise"},
		},
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.Eq("workout.user_id", userID),
			datastore.Eq("exercise.user_id", userID),
			datastore.EqFold("exercise.name", name),
		},
		Order: []datastore.Order{datastore.Desc("workout.date")},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query sets of %q: %w", name, err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry, ok := normalizeSetRow(row, userID)
		if !ok || datastore.FoldName(entry.ExerciseName) != datastore.FoldName(name) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].WorkoutDate.After(entries[j].WorkoutDate)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// LatestWeight returns the weight of the most recent logged set of exerciseName.
func (r *Reader) LatestWeight(ctx context.Context, exerciseName string) (float64, bool, error) {
	entries, err := r.ForExercise(ctx, exerciseName, 1)
	if err != nil {
		return 0, false, err
	}
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[0].Weight, true, nil
}

// WorkoutsInRange returns the user's workouts dated within [from, to], oldest first,
// each with its exercises and sets in stored order.
func (r *Reader) WorkoutsInRange(ctx context.Context, from, to time.Time) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.workoutsInRange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	userID, err := r.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}

	workoutRows, err := r.store.Query(ctx, datastore.Query{
		Table: datastore.TableWorkouts,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.Gte("date", weeks.Truncate(from)),
			datastore.Lte("date", weeks.Truncate(to)),
		},
		Order: []datastore.Order{datastore.Asc("date")},
	})
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}

	workouts := make([]Workout, 0, len(workoutRows))
	workoutIdx := map[string]int{}
	for _, row := range workoutRows {
		if row.UserID() != userID {
			continue
		}
		date, _ := row.Time("date")
		workoutIdx[row.ID()] = len(workouts)
		workouts = append(workouts, Workout{
			ID:        row.ID(),
			Date:      weeks.Truncate(date),
			Title:     row.String("title"),
			Exercises: []ExerciseLog{},
		})
	}
	if len(workouts) == 0 {
		return workouts, nil
	}

	weRows, err := r.store.Query(ctx, datastore.Query{
		Table: datastore.TableWorkoutExercises,
		Joins: []datastore.Join{
			{Table: datastore.TableExercises, As: "exercise", On: "exercise_id"},
		},
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.In("workout_id", keys(workoutIdx)),
		},
		Order: []datastore.Order{datastore.Asc("order_index")},
	})
	if err != nil {
		return nil, fmt.Errorf("query workout exercises: %w", err)
	}

	type slot struct{ workout, exercise int }
	slots := map[string]slot{}
	for _, row := range weRows {
		wi, ok := workoutIdx[row.String("workout_id")]
		if !ok || row.UserID() != userID {
			continue
		}
		exercise, _ := row.Relation("exercise").One()
		w := &workouts[wi]
		slots[row.ID()] = slot{workout: wi, exercise: len(w.Exercises)}
		w.Exercises = append(w.Exercises, ExerciseLog{
			ID:         row.ID(),
			ExerciseID: row.String("exercise_id"),
			Name:       exercise.String("name"),
			Sets:       []Set{},
		})
	}
	if len(slots) == 0 {
		return workouts, nil
	}

	slotIDs := make([]string, 0, len(slots))
	for id := range slots {
		slotIDs = append(slotIDs, id)
	}
	sort.Strings(slotIDs)

	setRows, err := r.store.Query(ctx, datastore.Query{
		Table: datastore.TableSets,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.In("workout_exercise_id", slotIDs),
		},
		Order: []datastore.Order{datastore.Asc("order_index")},
	})
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}

	for _, row := range setRows {
		sl, ok := slots[row.String("workout_exercise_id")]
		if !ok || row.UserID() != userID {
			continue
		}
		ex := &workouts[sl.workout].Exercises[sl.exercise]
		ex.Sets = append(ex.Sets, Set{
			ID:     row.ID(),
			Reps:   row.Int("reps"),
			Weight: row.Float("weight"),
		})
	}

	span.SetAttributes(attribute.Int("workouts", len(workouts)))
	return workouts, nil
}

// normalizeSetRow flattens a set row joined with workout_exercise -> {exercise, workout}.
// Rows of other users and rows with missing relations are rejected.
func normalizeSetRow(row datastore.Row, userID string) (Entry, bool) {
	if row.UserID() != userID {
		return Entry{}, false
	}

	we, ok := row.Relation("workout_exercise").One()
	if !ok || we.UserID() != userID {
		return Entry{}, false
	}
	workout, ok := we.Relation("workout").One()
	if !ok || workout.UserID() != userID {
		return Entry{}, false
	}
	exercise, ok := we.Relation("exercise").One()
	if !ok || exercise.UserID() != userID {
		return Entry{}, false
	}

	date, ok := workout.Time("date")
	if !ok {
		return Entry{}, false
	}

	return Entry{
		SetID:             row.ID(),
		Reps:              row.Int("reps"),
		Weight:            row.Float("weight"),
		WorkoutID:         workout.ID(),
		WorkoutDate:       weeks.Truncate(date),
		WorkoutTitle:      workout.String("title"),
		WorkoutExerciseID: we.ID(),
		ExerciseName:      exercise.String("name"),
	}, true
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
