// Package gymstatstest seeds in-memory stores with logged workouts and blueprints for tests.
package gymstatstest

import (
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/datastore/memstore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
)

const UserID = "user-1"

type SetSpec struct {
	Reps   int
	Weight float64
}

type ExerciseSpec struct {
	Name        string
	MuscleGroup string
	Sets        []SetSpec
}

type DaySpec struct {
	DayOfWeek   string
	Name        string
	MuscleGroup string
	Exercises   []ExerciseSpec
}

// NewStore returns a memstore logged in as UserID.
func NewStore(opts ...memstore.Option) *memstore.Store {
	return memstore.New(append([]memstore.Option{memstore.WithUser(UserID)}, opts...)...)
}

// Sets is shorthand for n sets of the same reps and weight.
func Sets(n, reps int, weight float64) []SetSpec {
	out := make([]SetSpec, n)
	for i := range out {
		out[i] = SetSpec{Reps: reps, Weight: weight}
	}
	return out
}

// LogWorkout seeds a logged workout for userID. Exercises are found by exact name
// among the user's exercise rows or created.
func LogWorkout(s *memstore.Store, userID string, date time.Time, title string, exercises ...ExerciseSpec) string {
	workout := s.Seed(datastore.TableWorkouts, datastore.Row{
		"user_id": userID,
		"date":    weeks.Truncate(date),
		"title":   title,
	})[0]

	for i, ex := range exercises {
		exerciseID := ""
		for _, row := range s.All(datastore.TableExercises) {
			if row.UserID() == userID && row.String("name") == ex.Name {
				exerciseID = row.ID()
				break
			}
		}
		if exerciseID == "" {
			exerciseID = s.Seed(datastore.TableExercises, datastore.Row{
				"user_id":      userID,
				"name":         ex.Name,
				"muscle_group": ex.MuscleGroup,
			})[0].ID()
		}

		we := s.Seed(datastore.TableWorkoutExercises, datastore.Row{
			"user_id":     userID,
			"workout_id":  workout.ID(),
			"exercise_id": exerciseID,
			"order_index": i,
		})[0]
		for j, set := range ex.Sets {
			s.Seed(datastore.TableSets, datastore.Row{
				"user_id":             userID,
				"workout_exercise_id": we.ID(),
				"reps":                set.Reps,
				"weight":              set.Weight,
				"order_index":         j,
			})
		}
	}
	return workout.ID()
}

// WeekTemplate seeds a week template with its days, exercises and sets and returns its id.
func WeekTemplate(s *memstore.Store, userID, name string, days ...DaySpec) string {
	week := s.Seed(datastore.TableWeekTemplates, datastore.Row{
		"user_id": userID,
		"name":    name,
	})[0]
	for i, day := range days {
		d := s.Seed(datastore.TableDayTemplates, datastore.Row{
			"user_id":          userID,
			"week_template_id": week.ID(),
			"day_of_week":      day.DayOfWeek,
			"name":             day.Name,
			"muscle_group":     day.MuscleGroup,
			"order_index":      i,
		})[0]
		seedExercises(s, userID, datastore.TableExerciseTemplates, "day_template_id", d.ID(),
			datastore.TableTemplateSets, "exercise_template_id", day.Exercises)
	}
	return week.ID()
}

// LibraryDay seeds a standalone library day and returns its id.
func LibraryDay(s *memstore.Store, userID string, day DaySpec) string {
	d := s.Seed(datastore.TableLibraryDays, datastore.Row{
		"user_id":      userID,
		"name":         day.Name,
		"muscle_group": day.MuscleGroup,
		"usage_count":  0,
	})[0]
	seedExercises(s, userID, datastore.TableLibraryDayExercises, "library_day_id", d.ID(),
		datastore.TableLibraryDaySets, "library_day_exercise_id", day.Exercises)
	return d.ID()
}

// LibraryExercise seeds a standalone library exercise and returns its id.
func LibraryExercise(s *memstore.Store, userID string, ex ExerciseSpec) string {
	e := s.Seed(datastore.TableLibraryExercises, datastore.Row{
		"user_id":      userID,
		"name":         ex.Name,
		"muscle_group": ex.MuscleGroup,
		"usage_count":  0,
	})[0]
	for j, set := range ex.Sets {
		s.Seed(datastore.TableLibraryExerciseSets, datastore.Row{
			"user_id":             userID,
			"library_exercise_id": e.ID(),
			"reps":                set.Reps,
			"weight":              set.Weight,
			"order_index":         j,
		})
	}
	return e.ID()
}

func seedExercises(
	s *memstore.Store,
	userID string,
	exTable, exParent, parentID string,
	setTable, setParent string,
	exercises []ExerciseSpec,
) {
	for i, ex := range exercises {
		e := s.Seed(exTable, datastore.Row{
			"user_id":      userID,
			exParent:       parentID,
			"name":         ex.Name,
			"muscle_group": ex.MuscleGroup,
			"order_index":  i,
		})[0]
		for j, set := range ex.Sets {
			s.Seed(setTable, datastore.Row{
				"user_id":     userID,
				setParent:     e.ID(),
				"reps":        set.Reps,
				"weight":      set.Weight,
				"order_index": j,
			})
		}
	}
}

// IDsOf collects every id stored in the given tables.
func IDsOf(s *memstore.Store, tables ...string) map[string]string {
	ids := map[string]string{}
	for _, table := range tables {
		for _, row := range s.All(table) {
			ids[row.ID()] = table
		}
	}
	return ids
}
