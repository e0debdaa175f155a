package clone

import (
	"context"
	"fmt"
	"strings"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// LibraryDayToWeek copies a library day into a week template as dayOfWeek,
// placed after the week's existing days.
func (c *Cloner) LibraryDayToWeek(ctx context.Context, libraryDayID, weekTemplateID, dayOfWeek string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.libraryDayToWeek")
	defer func() {
		c.metricsManager.Clone("library_day_to_week", err)
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("library_day", libraryDayID), attribute.String("week", weekTemplateID))

	dayOfWeek = strings.TrimSpace(dayOfWeek)
	if _, ok := weeks.DayOffset(dayOfWeek); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayOfWeek, dayOfWeek)
	}

	userID, err := c.store.FindUser(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.getRow(ctx, userID, datastore.TableWeekTemplates, weekTemplateID); err != nil {
		return "", err
	}
	position, err := c.countChildren(ctx, userID, datastore.TableDayTemplates, "week_template_id", weekTemplateID)
	if err != nil {
		return "", err
	}

	id, err := c.CloneDay(ctx, LibraryDayLayout, WeekDayLayout, libraryDayID, datastore.Row{
		"week_template_id": weekTemplateID,
		"day_of_week":      dayOfWeek,
		"order_index":      position,
	})
	if err != nil {
		return "", err
	}

	c.bumpUsage(ctx, datastore.TableLibraryDays, libraryDayID)
	return id, nil
}

// DayToLibrary saves a week template day as a new library day.
func (c *Cloner) DayToLibrary(ctx context.Context, dayTemplateID string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.dayToLibrary")
	defer func() {
		c.metricsManager.Clone("day_to_library", err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.CloneDay(ctx, WeekDayLayout, LibraryDayLayout, dayTemplateID, datastore.Row{
		"usage_count": 0,
		"created_at":  c.now().UTC(),
	})
}

// LibraryExerciseToDay appends a copy of a library exercise to a template day.
func (c *Cloner) LibraryExerciseToDay(ctx context.Context, libraryExerciseID, dayTemplateID string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.libraryExerciseToDay")
	defer func() {
		c.metricsManager.Clone("library_exercise_to_day", err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	userID, err := c.store.FindUser(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.getRow(ctx, userID, datastore.TableDayTemplates, dayTemplateID); err != nil {
		return "", err
	}
	position, err := c.countChildren(ctx, userID, datastore.TableExerciseTemplates, "day_template_id", dayTemplateID)
	if err != nil {
		return "", err
	}

	tree, err := c.LoadExercise(ctx, LibraryExerciseLayout, libraryExerciseID)
	if err != nil {
		return "", err
	}

	w := c.newWriter("library exercise to day")
	id, err := w.writeExercise(ctx, TemplateExerciseLayout, tree, datastore.Row{
		"day_template_id": dayTemplateID,
		"order_index":     position,
	})
	if err != nil {
		return "", w.fail(err)
	}

	c.bumpUsage(ctx, datastore.TableLibraryExercises, libraryExerciseID)
	return id, nil
}

// ExerciseToLibrary saves a template exercise as a new library exercise.
func (c *Cloner) ExerciseToLibrary(ctx context.Context, exerciseTemplateID string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.exerciseToLibrary")
	defer func() {
		c.metricsManager.Clone("exercise_to_library", err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tree, err := c.LoadExercise(ctx, TemplateExerciseLayout, exerciseTemplateID)
	if err != nil {
		return "", err
	}

	w := c.newWriter("exercise to library")
	id, err := w.writeExercise(ctx, LibraryExerciseLayout, tree, datastore.Row{
		"usage_count": 0,
		"created_at":  c.now().UTC(),
	})
	if err != nil {
		return "", w.fail(err)
	}
	return id, nil
}

// CloneWeek deep-copies a week template with every day. An empty newName
// yields "<name> (copy)".
func (c *Cloner) CloneWeek(ctx context.Context, weekTemplateID, newName string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clone.cloneWeek")
	defer func() {
		c.metricsManager.Clone("week", err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	week, err := c.LoadWeek(ctx, weekTemplateID)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(newName)
	if name == "" {
		name = week.Name + " (copy)"
	}

	w := c.newWriter("clone week")
	newWeek, err := w.insert(ctx, datastore.TableWeekTemplates, datastore.Row{
		"name":       name,
		"created_at": c.now().UTC(),
	})
	if err != nil {
		return "", w.fail(err)
	}

	for i, day := range week.Days {
		if _, err := w.writeDay(ctx, WeekDayLayout, &day.Tree, datastore.Row{
			"week_template_id": newWeek.ID(),
			"day_of_week":      day.DayOfWeek,
			"order_index":      i,
		}); err != nil {
			return "", w.fail(err)
		}
	}
	return newWeek.ID(), nil
}

func (c *Cloner) countChildren(ctx context.Context, userID, table, parentColumn, parentID string) (int, error) {
	rows, err := c.store.Query(ctx, datastore.Query{
		Table: table,
		Filters: []datastore.Filter{
			datastore.Eq(datastore.ColumnUserID, userID),
			datastore.Eq(parentColumn, parentID),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return len(rows), nil
}

// bumpUsage records a library item use. The copy already exists, so failures are only logged.
func (c *Cloner) bumpUsage(ctx context.Context, table, id string) {
	userID, err := c.store.FindUser(ctx)
	if err != nil {
		log.Warnf("bump usage of %s %s: %s", table, id, err)
		return
	}
	row, err := c.getRow(ctx, userID, table, id)
	if err != nil {
		log.Warnf("bump usage of %s %s: %s", table, id, err)
		return
	}
	if _, err := c.store.Update(ctx, table, id, datastore.Row{
		"usage_count":  row.Int("usage_count") + 1,
		"last_used_at": c.now().UTC(),
	}); err != nil {
		log.Warnf("bump usage of %s %s: %s", table, id, err)
	}
}
