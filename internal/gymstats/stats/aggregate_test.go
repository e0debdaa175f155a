package stats_test

import (
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/stats"
	"github.com/2beens/liftlog/internal/gymstats/weeks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(date time.Time, reps int, weight float64) history.Entry {
	return history.Entry{WorkoutDate: date, Reps: reps, Weight: weight}
}

func TestMaxWeightSeries(t *testing.T) {
	d1 := weeks.Date(2024, 1, 1)
	d2 := weeks.Date(2024, 1, 3)
	// history comes newest first
	entries := []history.Entry{
		entry(d2, 5, 50),
		entry(d2, 3, 55),
		entry(d1, 8, 40),
		entry(d1, 6, 45),
	}

	series := stats.MaxWeightSeries(entries)
	require.Len(t, series, 2)
	assert.Equal(t, stats.Point{Date: d1, Value: 45}, series[0])
	assert.Equal(t, stats.Point{Date: d2, Value: 55}, series[1])

	assert.Empty(t, stats.MaxWeightSeries(nil))
}

func TestMaxWeightSeries_ZeroWeights(t *testing.T) {
	d := weeks.Date(2024, 1, 1)
	series := stats.MaxWeightSeries([]history.Entry{entry(d, 10, 0), entry(d, 12, 0)})
	require.Len(t, series, 1)
	assert.Equal(t, 0.0, series[0].Value)
}

func TestVolumeSeries(t *testing.T) {
	d1 := weeks.Date(2024, 1, 1)
	d2 := weeks.Date(2024, 1, 9)
	entries := []history.Entry{
		entry(d2, 5, 52.5),
		entry(d1, 8, 40),
		entry(d1, 6, 45),
	}

	series := stats.VolumeSeries(entries)
	require.Len(t, series, 2)
	assert.Equal(t, d1, series[0].Date)
	assert.InDelta(t, 8*40+6*45, series[0].Value, 0.0001)
	assert.InDelta(t, 262.5, series[1].Value, 0.0001)

	weekly := stats.WeeklyVolumeSeries(append(entries, entry(weeks.Date(2024, 1, 3), 1, 10)))
	require.Len(t, weekly, 2)
	assert.Equal(t, weeks.Date(2024, 1, 1), weekly[0].Date)
	assert.InDelta(t, 8*40+6*45+10, weekly[0].Value, 0.0001)
	assert.Equal(t, weeks.Date(2024, 1, 8), weekly[1].Date)
}

func workout(id string, date time.Time, exercises ...history.ExerciseLog) history.Workout {
	return history.Workout{ID: id, Date: date, Exercises: exercises}
}

func slot(id, name string, sets ...history.Set) history.ExerciseLog {
	return history.ExerciseLog{ID: id, Name: name, Sets: sets}
}

func TestWeeklySummaries(t *testing.T) {
	workouts := []history.Workout{
		workout("w1", weeks.Date(2024, 1, 1),
			slot("we1", "Bench Press", history.Set{Reps: 10, Weight: 50}, history.Set{Reps: 10, Weight: 50}),
		),
		workout("w2", weeks.Date(2024, 1, 3),
			// same exercise name again is another slot
			slot("we2", "Bench Press", history.Set{Reps: 3, Weight: 0.5}),
			slot("we3", "Squat"),
		),
		workout("w3", weeks.Date(2024, 1, 8),
			slot("we4", "Bench Press", history.Set{Reps: 10, Weight: 60}, history.Set{Reps: 10, Weight: 60}),
		),
		workout("w4", weeks.Date(2024, 1, 14),
			slot("we5", "Row", history.Set{Reps: 0, Weight: 0.25}, history.Set{Reps: 1, Weight: 0.25}),
		),
	}

	summaries := stats.WeeklySummaries(workouts, 0)
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, weeks.Date(2024, 1, 1), first.WeekStart)
	assert.Equal(t, weeks.Date(2024, 1, 7), first.WeekEnd)
	assert.Equal(t, 1, first.WeekNumber)
	assert.Equal(t, 2, first.Workouts)
	// 1000 + 1.5 rounds once at the summary level
	assert.Equal(t, int64(1002), first.TotalVolume)
	assert.Equal(t, 3, first.TotalSets)
	assert.Equal(t, 3, first.TotalExercises)

	second := summaries[1]
	assert.Equal(t, weeks.Date(2024, 1, 8), second.WeekStart)
	// 1200 + 0.25, never rounded per set
	assert.Equal(t, int64(1200), second.TotalVolume)
	assert.Equal(t, 4, second.TotalSets)
	assert.Equal(t, 2, second.TotalExercises)

	latest := stats.WeeklySummaries(workouts, 1)
	require.Len(t, latest, 1)
	assert.Equal(t, weeks.Date(2024, 1, 8), latest[0].WeekStart)
}

func TestWeeklySummaries_RoundsOnlyAtTheEnd(t *testing.T) {
	// three sets of 0.4 volume each: per-set rounding would give 0, summary rounding gives 1
	workouts := []history.Workout{
		workout("w1", weeks.Date(2024, 2, 5),
			slot("we1", "Curl", history.Set{Reps: 1, Weight: 0.4}, history.Set{Reps: 1, Weight: 0.4}, history.Set{Reps: 1, Weight: 0.4}),
		),
	}
	summaries := stats.WeeklySummaries(workouts, 4)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].TotalVolume)
}

func TestCompareWeeks(t *testing.T) {
	_, ok := stats.CompareWeeks(nil)
	assert.False(t, ok)

	one := []stats.WeekSummary{{WeekStart: weeks.Date(2024, 1, 1), TotalVolume: 1000}}
	_, ok = stats.CompareWeeks(one)
	assert.False(t, ok, "a single week is not compared against zero")

	summaries := []stats.WeekSummary{
		{WeekStart: weeks.Date(2024, 1, 1), TotalVolume: 1000, TotalSets: 10, TotalExercises: 4},
		{WeekStart: weeks.Date(2024, 1, 8), TotalVolume: 1200, TotalSets: 8, TotalExercises: 4},
	}
	cmp, ok := stats.CompareWeeks(summaries)
	require.True(t, ok)
	assert.Equal(t, int64(200), cmp.VolumeChange)
	assert.Equal(t, -2, cmp.SetsChange)
	assert.Equal(t, 0, cmp.ExercisesChange)
	assert.Equal(t, weeks.Date(2024, 1, 8), cmp.Current.WeekStart)
	assert.Equal(t, weeks.Date(2024, 1, 1), cmp.Previous.WeekStart)
}

func TestBestSet(t *testing.T) {
	_, ok := stats.BestSet(nil)
	assert.False(t, ok)

	d1, d2 := weeks.Date(2024, 1, 1), weeks.Date(2024, 1, 8)
	best, ok := stats.BestSet([]history.Entry{
		entry(d1, 5, 60),
		entry(d1, 8, 60),
		entry(d2, 8, 60),
		entry(d2, 12, 55),
	})
	require.True(t, ok)
	assert.Equal(t, 60.0, best.Weight)
	assert.Equal(t, 8, best.Reps)
	assert.Equal(t, d2, best.WorkoutDate)
}
