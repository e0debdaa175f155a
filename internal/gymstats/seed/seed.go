// Package seed fills a store with a push/pull/legs week template and a few
// weeks of progressing workout history, for local development and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
)

// weekly progression per exercise, in kg
const progressionStep = 2.5

type exercisePlan struct {
	Name        string
	MuscleGroup string
	StartWeight float64
	Sets        int
}

type dayPlan struct {
	DayOfWeek   string
	Name        string
	MuscleGroup string
	Exercises   []exercisePlan
}

var pushPullLegs = []dayPlan{
	{
		DayOfWeek: "Monday", Name: "Push", MuscleGroup: "chest",
		Exercises: []exercisePlan{
			{Name: "Bench Press", MuscleGroup: "chest", StartWeight: 60, Sets: 4},
			{Name: "Overhead Press", MuscleGroup: "shoulders", StartWeight: 35, Sets: 3},
			{Name: "Dips", MuscleGroup: "triceps", StartWeight: 0, Sets: 3},
		},
	},
	{
		DayOfWeek: "Wednesday", Name: "Pull", MuscleGroup: "back",
		Exercises: []exercisePlan{
			{Name: "Deadlift", MuscleGroup: "back", StartWeight: 100, Sets: 3},
			{Name: "Barbell Row", MuscleGroup: "back", StartWeight: 50, Sets: 4},
			{Name: "Pull Up", MuscleGroup: "back", StartWeight: 0, Sets: 3},
		},
	},
	{
		DayOfWeek: "Friday", Name: "Legs", MuscleGroup: "legs",
		Exercises: []exercisePlan{
			{Name: "Squat", MuscleGroup: "legs", StartWeight: 80, Sets: 4},
			{Name: "Romanian Deadlift", MuscleGroup: "hamstrings", StartWeight: 60, Sets: 3},
			{Name: "Calf Raise", MuscleGroup: "calves", StartWeight: 40, Sets: 3},
		},
	},
}

type Summary struct {
	WeekTemplateID string `json:"weekTemplateId,omitempty"`
	Workouts       int    `json:"workouts"`
	Sets           int    `json:"sets"`
	// Existing counts sessions left alone because that day was already logged.
	Existing int `json:"existing"`
}

type Seeder struct {
	store datastore.Store
	faker *gofakeit.Faker
	// skipChance is the percentage of sessions left out to make the history uneven
	skipChance  int
	exerciseIDs map[string]string
}

// New returns a seeder; the same seed reproduces the same history.
func New(store datastore.Store, seed int64) *Seeder {
	return &Seeder{
		store:       store,
		faker:       gofakeit.New(seed),
		skipChance:  15,
		exerciseIDs: map[string]string{},
	}
}

// WithSkipChance sets the percentage of planned sessions that are not logged.
func (s *Seeder) WithSkipChance(percent int) *Seeder {
	s.skipChance = max(0, min(percent, 100))
	return s
}

// Template writes the push/pull/legs week template and returns its id.
func (s *Seeder) Template(ctx context.Context, name string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "seed.template")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	week, err := s.insertOne(ctx, datastore.TableWeekTemplates, datastore.Row{"name": name})
	if err != nil {
		return "", err
	}

	for i, day := range pushPullLegs {
		d, err := s.insertOne(ctx, datastore.TableDayTemplates, datastore.Row{
			"week_template_id": week.ID(),
			"day_of_week":      day.DayOfWeek,
			"name":             day.Name,
			"muscle_group":     day.MuscleGroup,
			"order_index":      i,
		})
		if err != nil {
			return "", err
		}

		for j, ex := range day.Exercises {
			e, err := s.insertOne(ctx, datastore.TableExerciseTemplates, datastore.Row{
				"day_template_id": d.ID(),
				"name":            ex.Name,
				"muscle_group":    ex.MuscleGroup,
				"order_index":     j,
			})
			if err != nil {
				return "", err
			}

			sets := make([]datastore.Row, ex.Sets)
			for k := range sets {
				sets[k] = datastore.Row{
					"exercise_template_id": e.ID(),
					"reps":                 8,
					"weight":               ex.StartWeight,
					"order_index":          k,
				}
			}
			if _, err := s.store.Insert(ctx, datastore.TableTemplateSets, sets); err != nil {
				return "", fmt.Errorf("template sets: %w", err)
			}
		}
	}

	return week.ID(), nil
}

// History logs weeksBack weeks of sessions ending with the week before now.
// Weights grow by a fixed step each week so progress and PR views have a trend.
func (s *Seeder) History(ctx context.Context, weeksBack int, now time.Time) (_ Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "seed.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var summary Summary
	currentWeek := weeks.WeekStart(now)
	for w := weeksBack; w >= 1; w-- {
		weekStart := currentWeek.AddDate(0, 0, -7*w)
		progress := float64(weeksBack-w) * progressionStep

		for _, day := range pushPullLegs {
			if s.faker.Number(1, 100) <= s.skipChance {
				continue
			}

			offset, _ := weeks.DayOffset(day.DayOfWeek)
			date := weekStart.AddDate(0, 0, offset)
			sets, err := s.logSession(ctx, day, date, progress)
			if errors.Is(err, datastore.ErrConstraintViolation) {
				log.Debugf("seed: %s %s already logged", day.Name, date.Format(time.DateOnly))
				summary.Existing++
				continue
			}
			if err != nil {
				return summary, err
			}
			summary.Workouts++
			summary.Sets += sets
		}
	}

	return summary, nil
}

func (s *Seeder) logSession(ctx context.Context, day dayPlan, date time.Time, progress float64) (int, error) {
	workout, err := s.insertOne(ctx, datastore.TableWorkouts, datastore.Row{
		"date":  weeks.Truncate(date),
		"title": day.Name,
		"notes": s.faker.Sentence(6),
	})
	if err != nil {
		return 0, err
	}

	setsWritten := 0
	for i, ex := range day.Exercises {
		exerciseID, err := s.exerciseID(ctx, ex)
		if err != nil {
			return setsWritten, err
		}

		we, err := s.insertOne(ctx, datastore.TableWorkoutExercises, datastore.Row{
			"workout_id":  workout.ID(),
			"exercise_id": exerciseID,
			"order_index": i,
		})
		if err != nil {
			return setsWritten, err
		}

		weight := 0.0
		if ex.StartWeight > 0 {
			weight = ex.StartWeight + progress
		}
		sets := make([]datastore.Row, ex.Sets)
		for k := range sets {
			sets[k] = datastore.Row{
				"workout_exercise_id": we.ID(),
				"reps":                s.faker.Number(5, 10),
				"weight":              roundToPlate(weight),
				"order_index":         k,
			}
		}
		if _, err := s.store.Insert(ctx, datastore.TableSets, sets); err != nil {
			return setsWritten, fmt.Errorf("sets: %w", err)
		}
		setsWritten += len(sets)
	}

	return setsWritten, nil
}

// exerciseID finds the user's exercise by name, creating it on first use.
func (s *Seeder) exerciseID(ctx context.Context, ex exercisePlan) (string, error) {
	key := datastore.FoldName(ex.Name)
	if id, ok := s.exerciseIDs[key]; ok {
		return id, nil
	}

	rows, err := s.store.Query(ctx, datastore.Query{
		Table:   datastore.TableExercises,
		Filters: []datastore.Filter{datastore.EqFold("name", ex.Name)},
		Limit:   1,
	})
	if err != nil {
		return "", fmt.Errorf("find exercise %s: %w", ex.Name, err)
	}

	var id string
	if len(rows) > 0 {
		id = rows[0].ID()
	} else {
		row, err := s.insertOne(ctx, datastore.TableExercises, datastore.Row{
			"name":         ex.Name,
			"muscle_group": ex.MuscleGroup,
		})
		if err != nil {
			return "", err
		}
		id = row.ID()
	}

	s.exerciseIDs[key] = id
	return id, nil
}

func (s *Seeder) insertOne(ctx context.Context, table string, row datastore.Row) (datastore.Row, error) {
	rows, err := s.store.Insert(ctx, table, []datastore.Row{row})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("insert %s: got %d rows back", table, len(rows))
	}
	return rows[0], nil
}

func roundToPlate(weight float64) float64 {
	return math.Round(weight/progressionStep) * progressionStep
}
