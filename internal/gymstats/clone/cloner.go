// Package clone deep-copies blueprint trees (template weeks, days, exercises and
// their library counterparts). Copies always get new identities and never
// reference the rows they were copied from.
package clone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidDayOfWeek = errors.New("invalid day of week")

type Cloner struct {
	store          datastore.Store
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewCloner(store datastore.Store, metricsManager *metrics.Manager) *Cloner {
	return &Cloner{
		store:          store,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// LoadDay reads the day dayID shaped by layout, with exercises and sets in stored order.
func (c *Cloner) LoadDay(ctx context.Context, layout DayLayout, dayID string) (_ *DayTree, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.loadDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", layout.Table))

	userID, err := c.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}
	day, err := c.getRow(ctx, userID, layout.Table, dayID)
	if err != nil {
		return nil, err
	}

	exercises, err := c.loadExercises(ctx, userID, layout.Exercises, layout.ExerciseParent, []string{dayID})
	if err != nil {
		return nil, err
	}

	return &DayTree{
		Name:        day.String("name"),
		MuscleGroup: day.String("muscle_group"),
		Exercises:   exercises[dayID],
	}, nil
}

// LoadExercise reads a standalone exercise with its sets.
func (c *Cloner) LoadExercise(ctx context.Context, layout ExerciseLayout, exerciseID string) (_ *ExerciseTree, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.loadExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	userID, err := c.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}
	row, err := c.getRow(ctx, userID, layout.Table, exerciseID)
	if err != nil {
		return nil, err
	}
	sets, err := c.loadSets(ctx, userID, layout, []string{exerciseID})
	if err != nil {
		return nil, err
	}

	return &ExerciseTree{
		Name:        row.String("name"),
		MuscleGroup: row.String("muscle_group"),
		Sets:        nonNilSets(sets[exerciseID]),
	}, nil
}

// LoadWeek reads a week template with all of its days in template order.
func (c *Cloner) LoadWeek(ctx context.Context, weekTemplateID string) (_ *WeekTree, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.loadWeek")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	userID, err := c.store.FindUser(ctx)
	if err != nil {
		return nil, err
	}
	week, err := c.getRow(ctx, userID, datastore.TableWeekTemplates, weekTemplateID)
	if err != nil {
		return nil, err
	}

	dayRows, err := c.store.Query(ctx, datastore.Query{
		Table: datastore.TableDayTemplates,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.Eq("week_template_id", weekTemplateID),
		},
		Order: []datastore.Order{datastore.Asc("order_index")},
	})
	if err != nil {
		return nil, fmt.Errorf("query days of week %s: %w", weekTemplateID, err)
	}

	tree := &WeekTree{
		ID:   week.ID(),
		Name: week.String("name"),
		Days: []WeekDay{},
	}
	dayIDs := make([]string, 0, len(dayRows))
	for _, row := range dayRows {
		if row.UserID() != userID {
			continue
		}
		dayIDs = append(dayIDs, row.ID())
		tree.Days = append(tree.Days, WeekDay{
			ID:        row.ID(),
			DayOfWeek: row.String("day_of_week"),
			Tree: DayTree{
				Name:        row.String("name"),
				MuscleGroup: row.String("muscle_group"),
			},
		})
	}
	if len(dayIDs) == 0 {
		return tree, nil
	}

	exercises, err := c.loadExercises(ctx, userID, WeekDayLayout.Exercises, WeekDayLayout.ExerciseParent, dayIDs)
	if err != nil {
		return nil, err
	}
	for i := range tree.Days {
		tree.Days[i].Tree.Exercises = exercises[tree.Days[i].ID]
	}
	return tree, nil
}

func (c *Cloner) getRow(ctx context.Context, userID, table, id string) (datastore.Row, error) {
	rows, err := c.store.Query(ctx, datastore.Query{
		Table: table,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnID, id),
			datastore.Eq(datastore.ColumnUserID, userID),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", table, id, err)
	}
	if len(rows) == 0 || rows[0].UserID() != userID {
		return nil, fmt.Errorf("%s %s: %w", table, id, datastore.ErrNotFound)
	}
	return rows[0], nil
}

// loadExercises returns the exercises of every parent, keyed by parent id.
func (c *Cloner) loadExercises(
	ctx context.Context,
	userID string,
	layout ExerciseLayout,
	parentColumn string,
	parentIDs []string,
) (map[string][]ExerciseTree, error) {
	rows, err := c.store.Query(ctx, datastore.Query{
		Table: layout.Table,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.In(parentColumn, parentIDs),
		},
		Order: []datastore.Order{datastore.Asc("order_index")},
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", layout.Table, err)
	}

	type ref struct {
		parent string
		idx    int
	}
	out := make(map[string][]ExerciseTree, len(parentIDs))
	for _, id := range parentIDs {
		out[id] = []ExerciseTree{}
	}
	refs := map[string]ref{}
	exerciseIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		parent := row.String(parentColumn)
		if _, ok := out[parent]; !ok || row.UserID() != userID {
			continue
		}
		refs[row.ID()] = ref{parent: parent, idx: len(out[parent])}
		exerciseIDs = append(exerciseIDs, row.ID())
		out[parent] = append(out[parent], ExerciseTree{
			Name:        row.String("name"),
			MuscleGroup: row.String("muscle_group"),
			Sets:        []SetTree{},
		})
	}
	if len(exerciseIDs) == 0 {
		return out, nil
	}

	sets, err := c.loadSets(ctx, userID, layout, exerciseIDs)
	if err != nil {
		return nil, err
	}
	for exerciseID, r := range refs {
		out[r.parent][r.idx].Sets = nonNilSets(sets[exerciseID])
	}
	return out, nil
}

func (c *Cloner) loadSets(ctx context.Context, userID string, layout ExerciseLayout, exerciseIDs []string) (map[string][]SetTree, error) {
	rows, err := c.store.Query(ctx, datastore.Query{
		Table: layout.SetsTable,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.In(layout.SetParent, exerciseIDs),
		},
		Order: []datastore.Order{datastore.Asc("order_index")},
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", layout.SetsTable, err)
	}

	out := map[string][]SetTree{}
	for _, row := range rows {
		if row.UserID() != userID {
			continue
		}
		parent := row.String(layout.SetParent)
		out[parent] = append(out[parent], SetTree{
			Reps:   row.Int("reps"),
			Weight: row.Float("weight"),
		})
	}
	return out, nil
}

func nonNilSets(sets []SetTree) []SetTree {
	if sets == nil {
		return []SetTree{}
	}
	return sets
}

// WriteDay inserts tree as a new day of layout, parent rows first. extra adds
// columns to the day row (its parent reference, weekday, position).
// A failure after the first insert returns a *datastore.PartialWriteError;
// rows already written stay in place.
func (c *Cloner) WriteDay(ctx context.Context, layout DayLayout, tree *DayTree, extra datastore.Row) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.writeDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	w := c.newWriter("write day")
	id, err := w.writeDay(ctx, layout, tree, extra)
	if err != nil {
		return "", w.fail(err)
	}
	return id, nil
}

// CloneDay copies the day dayID of layout from into layout to.
func (c *Cloner) CloneDay(ctx context.Context, from, to DayLayout, dayID string, extra datastore.Row) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.cloneDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", from.Table), attribute.String("to", to.Table))

	tree, err := c.LoadDay(ctx, from, dayID)
	if err != nil {
		return "", err
	}
	return c.WriteDay(ctx, to, tree, extra)
}

type writer struct {
	store   datastore.Store
	op      string
	written int
}

func (c *Cloner) newWriter(op string) *writer {
	return &writer{store: c.store, op: op}
}

func (w *writer) fail(err error) error {
	var partial *datastore.PartialWriteError
	if errors.As(err, &partial) {
		return err
	}
	return &datastore.PartialWriteError{Op: w.op, Completed: w.written, Err: err}
}

func (w *writer) insert(ctx context.Context, table string, row datastore.Row) (datastore.Row, error) {
	inserted, err := w.store.Insert(ctx, table, []datastore.Row{row})
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("insert into %s: no row returned", table)
	}
	w.written++
	return inserted[0], nil
}

func (w *writer) writeDay(ctx context.Context, layout DayLayout, tree *DayTree, extra datastore.Row) (string, error) {
	row := datastore.Row{
		"name":         tree.Name,
		"muscle_group": tree.MuscleGroup,
	}
	for k, v := range extra {
		row[k] = v
	}
	day, err := w.insert(ctx, layout.Table, row)
	if err != nil {
		return "", err
	}

	for i, ex := range tree.Exercises {
		if _, err := w.writeExercise(ctx, layout.Exercises, &ex, datastore.Row{
			layout.ExerciseParent: day.ID(),
			"order_index":         i,
		}); err != nil {
			return day.ID(), err
		}
	}
	return day.ID(), nil
}

func (w *writer) writeExercise(ctx context.Context, layout ExerciseLayout, ex *ExerciseTree, extra datastore.Row) (string, error) {
	row := datastore.Row{
		"name":         ex.Name,
		"muscle_group": ex.MuscleGroup,
	}
	for k, v := range extra {
		row[k] = v
	}
	inserted, err := w.insert(ctx, layout.Table, row)
	if err != nil {
		return "", err
	}

	for j, set := range ex.Sets {
		if _, err := w.insert(ctx, layout.SetsTable, datastore.Row{
			layout.SetParent: inserted.ID(),
			"reps":           SanitizeReps(set.Reps),
			"weight":         SanitizeWeight(set.Weight),
			"order_index":    j,
		}); err != nil {
			return inserted.ID(), err
		}
	}
	return inserted.ID(), nil
}
