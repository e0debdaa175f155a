// Package templates expands a week template into logged workouts for a calendar week.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/clone"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

var ErrInvalidTemplate = errors.New("invalid template")

type State string

const (
	StateIdle            State = "idle"
	StateExpanding       State = "expanding"
	StateResolvingWeight State = "resolving_weight"
	StateWriting         State = "writing"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Transition describes a generator state change. Day, Exercise and Set
// are set when the new state concerns them.
type Transition struct {
	From     State
	To       State
	Day      string
	Exercise string
	Set      int
}

type GeneratedWorkout struct {
	WorkoutID string    `json:"workoutId"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Exercises int       `json:"exercises"`
	Sets      int       `json:"sets"`
}

type SkippedDay struct {
	DayOfWeek string    `json:"dayOfWeek"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Reason    string    `json:"reason"`
	Err       error     `json:"-"`
}

type Report struct {
	WeekTemplateID string             `json:"weekTemplateId"`
	WeekStart      time.Time          `json:"weekStart"`
	Workouts       []GeneratedWorkout `json:"workouts"`
	Skipped        []SkippedDay       `json:"skipped"`
	RowsWritten    int                `json:"rowsWritten"`
	State          State              `json:"state"`
}

// SkipErr combines the reasons of every skipped day, nil when none was skipped.
func (r *Report) SkipErr() error {
	var err error
	for _, s := range r.Skipped {
		err = multierr.Append(err, fmt.Errorf("%s %s: %w", s.DayOfWeek, s.Date.Format(time.DateOnly), s.Err))
	}
	return err
}

type Generator struct {
	store          datastore.Store
	cloner         *clone.Cloner
	reader         latestWeightReader
	metricsManager *metrics.Manager
	now            func() time.Time

	// OnTransition, when set, observes every state change.
	OnTransition func(Transition)
}

func NewGenerator(store datastore.Store, reader latestWeightReader, metricsManager *metrics.Manager) *Generator {
	return &Generator{
		store:          store,
		cloner:         clone.NewCloner(store, metricsManager),
		reader:         reader,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// run holds the state of a single Generate call.
type run struct {
	g         *Generator
	userID    string
	state     State
	resolver  *WeightResolver
	exercises map[string]string
	report    *Report
}

func (r *run) transition(t Transition) {
	t.From, r.state = r.state, t.To
	log.Tracef("generate %s: %s -> %s [%s %s %d]", r.report.WeekTemplateID, t.From, t.To, t.Day, t.Exercise, t.Set)
	if r.g.OnTransition != nil {
		r.g.OnTransition(t)
	}
}

func (r *run) insert(ctx context.Context, table string, row datastore.Row) (datastore.Row, error) {
	inserted, err := r.g.store.Insert(ctx, table, []datastore.Row{row})
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("insert into %s: no row returned", table)
	}
	r.report.RowsWritten++
	return inserted[0], nil
}

// Generate writes one workout per template day into the week containing weekStart.
// A day whose workout already exists is skipped. Any other failure stops the run
// with a *datastore.PartialWriteError; the returned report then lists what was written.
func (g *Generator) Generate(ctx context.Context, weekTemplateID string, weekStart time.Time) (_ *Report, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templates.generate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("week_template", weekTemplateID))

	started := g.now()
	r := &run{
		g:         g,
		state:     StateIdle,
		resolver:  NewWeightResolver(g.reader, g.metricsManager),
		exercises: map[string]string{},
		report: &Report{
			WeekTemplateID: weekTemplateID,
			WeekStart:      weeks.WeekStart(weekStart),
			Workouts:       []GeneratedWorkout{},
			Skipped:        []SkippedDay{},
			State:          StateIdle,
		},
	}
	defer func() {
		r.report.State = r.state
		g.metricsManager.Generation(g.now().Sub(started).Seconds(), len(r.report.Workouts), len(r.report.Skipped))
	}()

	r.userID, err = g.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}

	week, err := g.cloner.LoadWeek(ctx, weekTemplateID)
	if err != nil {
		return nil, err
	}
	offsets, err := validate(week)
	if err != nil {
		return nil, err
	}

	for i, day := range week.Days {
		if err := r.generateDay(ctx, week.Name, day, r.report.WeekStart.AddDate(0, 0, offsets[i])); err != nil {
			r.transition(Transition{To: StateFailed, Day: day.DayOfWeek})
			var partial *datastore.PartialWriteError
			if !errors.As(err, &partial) {
				err = &datastore.PartialWriteError{Op: "generate week", Completed: r.report.RowsWritten, Err: err}
			}
			return r.report, err
		}
	}

	r.transition(Transition{To: StateDone})
	span.SetAttributes(
		attribute.Int("workouts", len(r.report.Workouts)),
		attribute.Int("skipped", len(r.report.Skipped)),
	)
	return r.report, nil
}

// validate checks every day before anything is written and returns each day's offset from Monday.
func validate(week *clone.WeekTree) ([]int, error) {
	offsets := make([]int, len(week.Days))
	for i, day := range week.Days {
		offset, ok := weeks.DayOffset(day.DayOfWeek)
		if !ok {
			return nil, fmt.Errorf("%w: day %q has unknown weekday %q", ErrInvalidTemplate, day.Tree.Name, day.DayOfWeek)
		}
		for _, ex := range day.Tree.Exercises {
			if strings.TrimSpace(ex.Name) == "" {
				return nil, fmt.Errorf("%w: day %q has an unnamed exercise", ErrInvalidTemplate, day.DayOfWeek)
			}
		}
		offsets[i] = offset
	}
	return offsets, nil
}

func (r *run) generateDay(ctx context.Context, templateName string, day clone.WeekDay, date time.Time) error {
	r.transition(Transition{To: StateExpanding, Day: day.DayOfWeek})

	dayName := strings.TrimSpace(day.Tree.Name)
	if dayName == "" {
		dayName = strings.TrimSpace(day.DayOfWeek)
	}
	title := fmt.Sprintf("%s — %s", dayName, templateName)

	r.transition(Transition{To: StateWriting, Day: day.DayOfWeek})
	workout, err := r.insert(ctx, datastore.TableWorkouts, datastore.Row{
		"date":       date,
		"title":      title,
		"created_at": r.g.now().UTC(),
	})
	if errors.Is(err, datastore.ErrConstraintViolation) {
		log.Infof("generate %s: workout [%s] on %s exists, skipping", r.report.WeekTemplateID, title, date.Format(time.DateOnly))
		r.report.Skipped = append(r.report.Skipped, SkippedDay{
			DayOfWeek: day.DayOfWeek,
			Date:      date,
			Title:     title,
			Reason:    "workout already exists",
			Err:       err,
		})
		return nil
	}
	if err != nil {
		return err
	}

	generated := GeneratedWorkout{
		WorkoutID: workout.ID(),
		Date:      date,
		Title:     title,
	}
	for i, ex := range day.Tree.Exercises {
		exerciseID, err := r.findOrCreateExercise(ctx, ex.Name, ex.MuscleGroup)
		if err != nil {
			return err
		}
		slot, err := r.insert(ctx, datastore.TableWorkoutExercises, datastore.Row{
			"workout_id":  workout.ID(),
			"exercise_id": exerciseID,
			"order_index": i,
		})
		if err != nil {
			return err
		}
		generated.Exercises++

		for j, set := range ex.Sets {
			r.transition(Transition{To: StateResolvingWeight, Day: day.DayOfWeek, Exercise: ex.Name, Set: j})
			weight := r.resolver.Resolve(ctx, ex.Name, set.Weight)

			r.transition(Transition{To: StateWriting, Day: day.DayOfWeek, Exercise: ex.Name, Set: j})
			if _, err := r.insert(ctx, datastore.TableSets, datastore.Row{
				"workout_exercise_id": slot.ID(),
				"reps":                clone.SanitizeReps(set.Reps),
				"weight":              clone.SanitizeWeight(weight),
				"order_index":         j,
			}); err != nil {
				return err
			}
			generated.Sets++
		}
	}

	r.report.Workouts = append(r.report.Workouts, generated)
	return nil
}

// findOrCreateExercise returns the oldest exercise of the user with that name, creating it when missing.
func (r *run) findOrCreateExercise(ctx context.Context, name, muscleGroup string) (string, error) {
	name = strings.TrimSpace(name)
	key := datastore.FoldName(name)
	if id, ok := r.exercises[key]; ok {
		return id, nil
	}

	rows, err := r.g.store.Query(ctx, datastore.Query{
		Table: datastore.TableExercises,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, r.userID),
			datastore.EqFold("name", name),
		},
		Order: []datastore.Order{datastore.Asc("created_at")},
		Limit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("find exercise %q: %w", name, err)
	}
	if len(rows) > 0 && rows[0].UserID() == r.userID {
		r.exercises[key] = rows[0].ID()
		return rows[0].ID(), nil
	}

	created, err := r.insert(ctx, datastore.TableExercises, datastore.Row{
		"name":         name,
		"muscle_group": muscleGroup,
		"created_at":   r.g.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	r.exercises[key] = created.ID()
	return created.ID(), nil
}
