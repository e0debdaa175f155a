package datastore

const (
	TableExercises        = "exercises"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
	TableSets             = "sets"
	TablePersonalRecords  = "personal_records"

	TableWeekTemplates     = "week_templates"
	TableDayTemplates      = "day_templates"
	TableExerciseTemplates = "exercise_templates"
	TableTemplateSets      = "template_sets"

	TableLibraryDays         = "library_days"
	TableLibraryDayExercises = "library_day_exercises"
	TableLibraryDaySets      = "library_day_sets"
	TableLibraryExercises    = "library_exercises"
	TableLibraryExerciseSets = "library_exercise_sets"
)

const (
	ColumnID     = "id"
	ColumnUserID = "user_id"
)

// BlueprintTables lists the tables holding templates and library items.
// Live rows never reference them.
var BlueprintTables = []string{
	TableWeekTemplates,
	TableDayTemplates,
	TableExerciseTemplates,
	TableTemplateSets,
	TableLibraryDays,
	TableLibraryDayExercises,
	TableLibraryDaySets,
	TableLibraryExercises,
	TableLibraryExerciseSets,
}

var LiveTables = []string{
	TableExercises,
	TableWorkouts,
	TableWorkoutExercises,
	TableSets,
}
