package records_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/datastore/memstore"
	"github.com/2beens/liftlog/internal/datastore/mocks"
	"github.com/2beens/liftlog/internal/gymstats/gymstatstest"
	"github.com/2beens/liftlog/internal/gymstats/records"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTracker_DetectPR(t *testing.T) {
	ctx := context.Background()
	s := gymstatstest.NewStore()
	tracker := records.NewTracker(s, nil)

	// no prior record
	isPR, err := tracker.DetectPR(ctx, "Bench Press", 40)
	require.NoError(t, err)
	assert.True(t, isPR)

	_, err = tracker.SaveRecord(ctx, "Bench Press", 80, 5, weeks.Date(2024, 1, 1))
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		weight float64
		want   bool
	}{
		{"bench press", 85, true},
		{"BENCH PRESS ", 80, false},
		{"Bench Press", 75, false},
		{"Squat", 20, true},
	} {
		isPR, err := tracker.DetectPR(ctx, tc.name, tc.weight)
		require.NoError(t, err)
		assert.Equal(t, tc.want, isPR, "%s %.1f", tc.name, tc.weight)
	}
}

func TestTracker_DetectPR_ConsidersEveryRecord(t *testing.T) {
	ctx := context.Background()
	s := gymstatstest.NewStore()
	tracker := records.NewTracker(s, nil)

	// a manual backfill lower than the max does not lower the bar
	_, err := tracker.SaveRecord(ctx, "Squat", 120, 3, weeks.Date(2024, 1, 1))
	require.NoError(t, err)
	_, err = tracker.SaveRecord(ctx, "Squat", 100, 5, weeks.Date(2024, 2, 1))
	require.NoError(t, err)

	isPR, err := tracker.DetectPR(ctx, "Squat", 110)
	require.NoError(t, err)
	assert.False(t, isPR)
}

func TestTracker_DetectPR_ReadFailureFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	m := metrics.NewTestManager()

	store.EXPECT().FindUser(gomock.Any()).Return(gymstatstest.UserID, nil)
	store.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	isPR, err := records.NewTracker(store, m).DetectPR(context.Background(), "Bench Press", 100)
	require.NoError(t, err)
	assert.False(t, isPR)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterEnrichmentFallbacks.WithLabelValues("pr")))
}

func TestTracker_DetectPR_Unauthenticated(t *testing.T) {
	tracker := records.NewTracker(memstore.New(), nil)
	_, err := tracker.DetectPR(context.Background(), "Bench Press", 100)
	assert.ErrorIs(t, err, datastore.ErrUnauthenticated)
}

func TestTracker_SaveRecord(t *testing.T) {
	ctx := context.Background()
	s := gymstatstest.NewStore()
	m := metrics.NewTestManager()
	tracker := records.NewTracker(s, m)

	record, err := tracker.SaveRecord(ctx, " Deadlift ", 140, 2, weeks.Date(2024, 3, 4))
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "Deadlift", record.ExerciseName)
	assert.Equal(t, 140.0, record.Weight)
	assert.Equal(t, 2, record.Reps)
	assert.Equal(t, weeks.Date(2024, 3, 4), record.Date)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPersonalRecords))

	_, err = tracker.SaveRecord(ctx, "  ", 1, 1, weeks.Date(2024, 3, 4))
	assert.ErrorIs(t, err, records.ErrEmptyExerciseName)

	for _, bad := range []struct {
		weight float64
		reps   int
	}{
		{weight: -2.5, reps: 5},
		{weight: math.NaN(), reps: 5},
		{weight: 100, reps: 0},
		{weight: 100, reps: -3},
	} {
		_, err = tracker.SaveRecord(ctx, "Deadlift", bad.weight, bad.reps, weeks.Date(2024, 3, 4))
		assert.ErrorIs(t, err, records.ErrInvalidRecord, "%v x %d", bad.weight, bad.reps)
	}
	assert.Len(t, s.All(datastore.TablePersonalRecords), 1)

	// bodyweight
	_, err = tracker.SaveRecord(ctx, "Pull Up", 0, 8, weeks.Date(2024, 3, 4))
	assert.NoError(t, err)

	_, err = records.NewTracker(memstore.New(), nil).SaveRecord(ctx, "Deadlift", 1, 1, weeks.Date(2024, 3, 4))
	assert.ErrorIs(t, err, datastore.ErrUnauthenticated)
}

func TestTracker_SaveRecord_InsertError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	boom := errors.New("disk full")

	store.EXPECT().FindUser(gomock.Any()).Return(gymstatstest.UserID, nil)
	store.EXPECT().Insert(gomock.Any(), datastore.TablePersonalRecords, gomock.Len(1)).Return(nil, boom)

	_, err := records.NewTracker(store, nil).SaveRecord(context.Background(), "Row", 60, 8, weeks.Date(2024, 1, 1))
	assert.ErrorIs(t, err, boom)
}

func TestTracker_CheckAndSave(t *testing.T) {
	ctx := context.Background()
	s := gymstatstest.NewStore()
	tracker := records.NewTracker(s, nil)

	record, saved, err := tracker.CheckAndSave(ctx, "Bench Press", 80, 5, weeks.Date(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, saved)
	require.NotNil(t, record)

	record, saved, err = tracker.CheckAndSave(ctx, "Bench Press", 80, 8, weeks.Date(2024, 1, 8))
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Nil(t, record)

	_, saved, err = tracker.CheckAndSave(ctx, "Bench Press", 82.5, 3, weeks.Date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, saved)

	assert.Len(t, s.All(datastore.TablePersonalRecords), 2)
}

func TestTracker_Timeline(t *testing.T) {
	ctx := context.Background()
	s := gymstatstest.NewStore()
	tracker := records.NewTracker(s, nil)

	_, err := tracker.SaveRecord(ctx, "Bench Press", 85, 3, weeks.Date(2024, 2, 1))
	require.NoError(t, err)
	_, err = tracker.SaveRecord(ctx, "bench press", 80, 5, weeks.Date(2024, 1, 1))
	require.NoError(t, err)
	_, err = tracker.SaveRecord(ctx, "Squat", 100, 5, weeks.Date(2024, 1, 5))
	require.NoError(t, err)

	timeline, err := tracker.Timeline(ctx, "Bench Press")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, 80.0, timeline[0].Weight)
	assert.Equal(t, 85.0, timeline[1].Weight)

	best, ok := records.CurrentMax(timeline)
	require.True(t, ok)
	assert.Equal(t, 85.0, best.Weight)

	empty, err := tracker.Timeline(ctx, "Deadlift")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCurrentMax(t *testing.T) {
	_, ok := records.CurrentMax(nil)
	assert.False(t, ok)

	best, ok := records.CurrentMax([]records.Record{
		{ID: "b", Weight: 100, Date: weeks.Date(2024, 2, 1)},
		{ID: "a", Weight: 100, Date: weeks.Date(2024, 1, 1)},
		{ID: "c", Weight: 90, Date: weeks.Date(2024, 3, 1)},
	})
	require.True(t, ok)
	assert.Equal(t, "a", best.ID)
}
