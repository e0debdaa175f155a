// Package records keeps the append-only personal record log per exercise.
package records

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEmptyExerciseName = errors.New("exercise name is empty")
	ErrInvalidRecord     = errors.New("invalid record")
)

// ValidateWeight rejects negative and non-finite weights; bodyweight is 0.
func ValidateWeight(weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return fmt.Errorf("%w: weight must be a number >= 0", ErrInvalidRecord)
	}
	return nil
}

func ValidateReps(reps int) error {
	if reps < 1 {
		return fmt.Errorf("%w: reps must be >= 1", ErrInvalidRecord)
	}
	return nil
}

type Record struct {
	ID           string    `json:"id"`
	ExerciseName string    `json:"exerciseName"`
	Weight       float64   `json:"weight"`
	Reps         int       `json:"reps"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Tracker struct {
	store          datastore.Store
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewTracker(store datastore.Store, metricsManager *metrics.Manager) *Tracker {
	return &Tracker{
		store:          store,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// DetectPR reports whether candidateWeight beats every recorded weight for the exercise.
// A first record is always a PR, a tie never is. Read failures fall back to false;
// only ErrUnauthenticated is returned.
func (t *Tracker) DetectPR(ctx context.Context, exerciseName string, candidateWeight float64) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "records.detectPR")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exerciseName))

	records, err := t.records(ctx, exerciseName)
	if err != nil {
		if errors.Is(err, datastore.ErrUnauthenticated) {
			return false, err
		}
		log.Warnf("detect pr for [%s]: %s", exerciseName, err)
		t.metricsManager.EnrichmentFallback("pr")
		return false, nil
	}

	best, ok := CurrentMax(records)
	if !ok {
		return true, nil
	}
	return candidateWeight > best.Weight, nil
}

// SaveRecord appends a record without checking it against earlier ones.
func (t *Tracker) SaveRecord(ctx context.Context, exerciseName string, weight float64, reps int, date time.Time) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "records.saveRecord")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	name := strings.TrimSpace(exerciseName)
	if name == "" {
		return nil, ErrEmptyExerciseName
	}
	if err := ValidateWeight(weight); err != nil {
		return nil, err
	}
	if err := ValidateReps(reps); err != nil {
		return nil, err
	}

	if _, err := t.store.FindUser(ctx); err != nil {
		return nil, err
	}

	inserted, err := t.store.Insert(ctx, datastore.TablePersonalRecords, []datastore.Row{{
		"exercise_name": name,
		"weight":        weight,
		"reps":          reps,
		"date":          weeks.Truncate(date),
		"created_at":    t.now().UTC(),
	}})
	if err != nil {
		return nil, fmt.Errorf("save record for %q: %w", name, err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("save record for %q: no row returned", name)
	}

	t.metricsManager.PersonalRecord()
	record := toRecord(inserted[0])
	return &record, nil
}

// CheckAndSave stores a record only when weight is a new PR.
func (t *Tracker) CheckAndSave(ctx context.Context, exerciseName string, weight float64, reps int, date time.Time) (*Record, bool, error) {
	isPR, err := t.DetectPR(ctx, exerciseName, weight)
	if err != nil || !isPR {
		return nil, false, err
	}
	record, err := t.SaveRecord(ctx, exerciseName, weight, reps, date)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Timeline lists the exercise's records, oldest first.
func (t *Tracker) Timeline(ctx context.Context, exerciseName string) (_ []Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "records.timeline")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	records, err := t.records(ctx, exerciseName)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date.Equal(records[j].Date) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

// CurrentMax returns the heaviest record; the earliest one wins a tie.
func CurrentMax(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.Weight > best.Weight || (r.Weight == best.Weight && r.Date.Before(best.Date)) {
			best = r
		}
	}
	return best, true
}

func (t *Tracker) records(ctx context.Context, exerciseName string) ([]Record, error) {
	userID, err := t.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(exerciseName)
	if name == "" {
		return []Record{}, nil
	}

	rows, err := t.store.Query(ctx, datastore.Query{
		Table: datastore.TablePersonalRecords,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.EqFold("exercise_name", name),
		},
		Order: []datastore.Order{datastore.Asc("date")},
	})
	if err != nil {
		return nil, fmt.Errorf("query records of %q: %w", name, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row.UserID() != userID {
			continue
		}
		records = append(records, toRecord(row))
	}
	return records, nil
}

func toRecord(row datastore.Row) Record {
	date, _ := row.Time("date")
	createdAt, _ := row.Time("created_at")
	return Record{
		ID:           row.ID(),
		ExerciseName: row.String("exercise_name"),
		Weight:       row.Float("weight"),
		Reps:         row.Int("reps"),
		Date:         weeks.Truncate(date),
		CreatedAt:    createdAt,
	}
}
