package clone

import (
	"math"

	"github.com/2beens/liftlog/internal/datastore"
)

type SetTree struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

type ExerciseTree struct {
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Sets        []SetTree `json:"sets"`
}

type DayTree struct {
	Name        string         `json:"name"`
	MuscleGroup string         `json:"muscleGroup"`
	Exercises   []ExerciseTree `json:"exercises"`
}

// WeekDay is a day of a week template together with its weekday name.
type WeekDay struct {
	ID        string  `json:"id"`
	DayOfWeek string  `json:"dayOfWeek"`
	Tree      DayTree `json:"tree"`
}

type WeekTree struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Days []WeekDay `json:"days"`
}

// ExerciseLayout names the tables of an exercise and its sets.
type ExerciseLayout struct {
	Table     string
	SetsTable string
	// SetParent is the sets column referencing the exercise.
	SetParent string
}

// DayLayout names the tables of a day tree.
type DayLayout struct {
	Table string
	// ExerciseParent is the exercises column referencing the day.
	ExerciseParent string
	Exercises      ExerciseLayout
}

var (
	TemplateExerciseLayout = ExerciseLayout{
		Table:     datastore.TableExerciseTemplates,
		SetsTable: datastore.TableTemplateSets,
		SetParent: "exercise_template_id",
	}
	LibraryExerciseLayout = ExerciseLayout{
		Table:     datastore.TableLibraryExercises,
		SetsTable: datastore.TableLibraryExerciseSets,
		SetParent: "library_exercise_id",
	}

	WeekDayLayout = DayLayout{
		Table:          datastore.TableDayTemplates,
		ExerciseParent: "day_template_id",
		Exercises:      TemplateExerciseLayout,
	}
	LibraryDayLayout = DayLayout{
		Table:          datastore.TableLibraryDays,
		ExerciseParent: "library_day_id",
		Exercises: ExerciseLayout{
			Table:     datastore.TableLibraryDayExercises,
			SetsTable: datastore.TableLibraryDaySets,
			SetParent: "library_day_exercise_id",
		},
	}
)

// SanitizeReps clamps reps to at least one.
func SanitizeReps(reps int) int {
	if reps < 1 {
		return 1
	}
	return reps
}

// SanitizeWeight clamps weight to a finite, non-negative value.
func SanitizeWeight(weight float64) float64 {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return 0
	}
	return weight
}
