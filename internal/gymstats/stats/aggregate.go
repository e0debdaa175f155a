package stats

import (
	"math"
	"sort"
	"time"

	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
)

// Point is a single chart sample.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type WeekSummary struct {
	WeekStart  time.Time `json:"weekStart"`
	WeekEnd    time.Time `json:"weekEnd"`
	WeekNumber int       `json:"weekNumber"`
	Workouts   int       `json:"workouts"`
	// TotalVolume is the sum of weight*reps, rounded to the nearest integer.
	TotalVolume int64 `json:"totalVolume"`
	TotalSets   int   `json:"totalSets"`
	// TotalExercises counts distinct workout exercise slots, not distinct names.
	TotalExercises int `json:"totalExercises"`
}

type WeekComparison struct {
	Current         WeekSummary `json:"current"`
	Previous        WeekSummary `json:"previous"`
	VolumeChange    int64       `json:"volumeChange"`
	SetsChange      int         `json:"setsChange"`
	ExercisesChange int         `json:"exercisesChange"`
}

// MaxWeightSeries returns the heaviest set weight per workout date, oldest first.
func MaxWeightSeries(entries []history.Entry) []Point {
	return groupByDate(entries, func(e history.Entry) time.Time {
		return weeks.Truncate(e.WorkoutDate)
	}, func(acc float64, e history.Entry, first bool) float64 {
		if first || e.Weight > acc {
			return e.Weight
		}
		return acc
	})
}

// VolumeSeries returns the summed weight*reps per workout date, oldest first.
func VolumeSeries(entries []history.Entry) []Point {
	return groupByDate(entries, func(e history.Entry) time.Time {
		return weeks.Truncate(e.WorkoutDate)
	}, sumVolume)
}

// WeeklyVolumeSeries returns the summed weight*reps per training week, keyed by week start.
func WeeklyVolumeSeries(entries []history.Entry) []Point {
	return groupByDate(entries, func(e history.Entry) time.Time {
		return weeks.WeekStart(e.WorkoutDate)
	}, sumVolume)
}

func sumVolume(acc float64, e history.Entry, _ bool) float64 {
	return acc + e.Weight*float64(e.Reps)
}

func groupByDate(
	entries []history.Entry,
	key func(history.Entry) time.Time,
	fold func(acc float64, e history.Entry, first bool) float64,
) []Point {
	values := map[time.Time]float64{}
	for _, e := range entries {
		k := key(e)
		acc, seen := values[k]
		values[k] = fold(acc, e, !seen)
	}

	points := make([]Point, 0, len(values))
	for date, v := range values {
		points = append(points, Point{Date: date, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// WeeklySummaries buckets workouts into their Monday-aligned weeks, oldest first,
// and keeps the most recent weeksCount weeks (all of them when weeksCount <= 0).
func WeeklySummaries(workouts []history.Workout, weeksCount int) []WeekSummary {
	type bucket struct {
		volume    float64
		sets      int
		workouts  int
		exercises map[string]struct{}
	}

	buckets := map[time.Time]*bucket{}
	for _, w := range workouts {
		start := weeks.WeekStart(w.Date)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{exercises: map[string]struct{}{}}
			buckets[start] = b
		}
		b.workouts++
		for _, ex := range w.Exercises {
			b.exercises[ex.ID] = struct{}{}
			for _, set := range ex.Sets {
				b.volume += set.Weight * float64(set.Reps)
				b.sets++
			}
		}
	}

	summaries := make([]WeekSummary, 0, len(buckets))
	for start, b := range buckets {
		summaries = append(summaries, WeekSummary{
			WeekStart:      start,
			WeekEnd:        weeks.WeekEnd(start),
			WeekNumber:     weeks.ISOWeekNumber(start),
			Workouts:       b.workouts,
			TotalVolume:    int64(math.Round(b.volume)),
			TotalSets:      b.sets,
			TotalExercises: len(b.exercises),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].WeekStart.Before(summaries[j].WeekStart)
	})

	if weeksCount > 0 && len(summaries) > weeksCount {
		summaries = summaries[len(summaries)-weeksCount:]
	}
	return summaries
}

// CompareWeeks compares the two most recent summaries. It reports false when
// fewer than two weeks are available.
func CompareWeeks(summaries []WeekSummary) (WeekComparison, bool) {
	if len(summaries) < 2 {
		return WeekComparison{}, false
	}

	sorted := append([]WeekSummary(nil), summaries...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].WeekStart.Before(sorted[j].WeekStart)
	})
	current := sorted[len(sorted)-1]
	previous := sorted[len(sorted)-2]

	return WeekComparison{
		Current:         current,
		Previous:        previous,
		VolumeChange:    current.TotalVolume - previous.TotalVolume,
		SetsChange:      current.TotalSets - previous.TotalSets,
		ExercisesChange: current.TotalExercises - previous.TotalExercises,
	}, true
}

// BestSet picks the heaviest entry; ties go to more reps, then the more recent workout.
func BestSet(entries []history.Entry) (history.Entry, bool) {
	if len(entries) == 0 {
		return history.Entry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		switch {
		case e.Weight > best.Weight:
			best = e
		case e.Weight == best.Weight && e.Reps > best.Reps:
			best = e
		case e.Weight == best.Weight && e.Reps == best.Reps && e.WorkoutDate.After(best.WorkoutDate):
			best = e
		}
	}
	return best, true
}
