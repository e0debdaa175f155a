package gymstats_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/datastore/memstore"
	"github.com/2beens/liftlog/internal/gymstats"
	"github.com/2beens/liftlog/internal/gymstats/gymstatstest"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = gymstatstest.UserID

func newRouter(s datastore.Store, mutationMiddleware ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	gymstats.NewHandler(gymstats.HandlerParams{
		Store:          s,
		MetricsManager: metrics.NewTestManager(),
		Now: func() time.Time {
			return weeks.Date(2024, 1, 10)
		},
	}).SetupRoutes(r, mutationMiddleware...)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func pushDayWeek(s *memstore.Store) string {
	return gymstatstest.WeekTemplate(s, user, "PPL",
		gymstatstest.DaySpec{DayOfWeek: "Monday", Name: "Push Day", Exercises: []gymstatstest.ExerciseSpec{
			{Name: "Bench Press", MuscleGroup: "chest", Sets: gymstatstest.Sets(3, 8, 40)},
		}},
		gymstatstest.DaySpec{DayOfWeek: "Thursday", Name: "Pull Day", Exercises: []gymstatstest.ExerciseSpec{
			{Name: "Row", MuscleGroup: "back", Sets: gymstatstest.Sets(2, 10, 50)},
		}},
	)
}

func TestHandler_HistoryAndProgress(t *testing.T) {
	s := gymstatstest.NewStore()
	gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 1), "Push",
		gymstatstest.ExerciseSpec{Name: "Bench Press", Sets: gymstatstest.Sets(2, 10, 40)},
	)
	gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 8), "Push",
		gymstatstest.ExerciseSpec{Name: "Bench Press", Sets: gymstatstest.Sets(1, 5, 50)},
	)
	r := newRouter(s)

	rr := serve(r, http.MethodGet, "/gymstats/exercises/bench%20press/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	historyResp := decode[gymstats.HistoryResponse](t, rr)
	assert.Equal(t, "bench press", historyResp.ExerciseName)
	require.Len(t, historyResp.Entries, 3)
	assert.Equal(t, weeks.Date(2024, 1, 8), historyResp.Entries[0].WorkoutDate.UTC())

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Bench%20Press/history?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[gymstats.HistoryResponse](t, rr).Entries, 1)

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Bench%20Press/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Bench%20Press/progress", "")
	require.Equal(t, http.StatusOK, rr.Code)
	progress := decode[struct {
		MaxWeight []struct {
			Value float64 `json:"value"`
		} `json:"maxWeight"`
		Best *struct {
			Weight float64 `json:"weight"`
		} `json:"best"`
	}](t, rr)
	require.Len(t, progress.MaxWeight, 2)
	assert.Equal(t, 40.0, progress.MaxWeight[0].Value)
	assert.Equal(t, 50.0, progress.MaxWeight[1].Value)
	require.NotNil(t, progress.Best)
	assert.Equal(t, 50.0, progress.Best.Weight)
}

func TestHandler_LastOccurrence(t *testing.T) {
	s := gymstatstest.NewStore()
	gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 1), "Push",
		gymstatstest.ExerciseSpec{Name: "Bench Press", Sets: gymstatstest.Sets(3, 8, 40)},
	)
	current := gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 8), "Push",
		gymstatstest.ExerciseSpec{Name: "Bench Press", Sets: gymstatstest.Sets(1, 5, 52.5)},
	)
	r := newRouter(s)

	rr := serve(r, http.MethodGet, "/gymstats/exercises/Bench%20Press/last?exclude="+current+"&current=52.5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[struct {
		Available     bool    `json:"available"`
		PrevMaxWeight float64 `json:"prevMaxWeight"`
		Trend         string  `json:"trend"`
	}](t, rr)
	assert.True(t, res.Available)
	assert.Equal(t, 40.0, res.PrevMaxWeight)
	assert.Equal(t, "up", res.Trend)

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Squat/last", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"available":false`)

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Squat/last?current=heavy", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Weeks(t *testing.T) {
	s := gymstatstest.NewStore()
	gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 1), "A",
		gymstatstest.ExerciseSpec{Name: "Squat", Sets: gymstatstest.Sets(1, 10, 100)},
	)
	gymstatstest.LogWorkout(s, user, weeks.Date(2024, 1, 8), "B",
		gymstatstest.ExerciseSpec{Name: "Squat", Sets: gymstatstest.Sets(1, 12, 100)},
	)
	r := newRouter(s)

	rr := serve(r, http.MethodGet, "/gymstats/weeks?count=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	overview := decode[struct {
		Weeks      []json.RawMessage `json:"weeks"`
		Comparison *struct {
			VolumeChange int64 `json:"volumeChange"`
		} `json:"comparison"`
	}](t, rr)
	assert.Len(t, overview.Weeks, 2)
	require.NotNil(t, overview.Comparison)
	assert.Equal(t, int64(200), overview.Comparison.VolumeChange)

	rr = serve(r, http.MethodGet, "/gymstats/weeks?count=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "comparison")
}

func TestHandler_Records(t *testing.T) {
	s := gymstatstest.NewStore()
	r := newRouter(s)

	rr := serve(r, http.MethodPost, "/gymstats/records/check", `{"exerciseName":"Deadlift","weight":140,"reps":3,"date":"2024-01-08","save":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	check := decode[gymstats.RecordCheckResponse](t, rr)
	assert.True(t, check.IsPR)
	require.NotNil(t, check.Record)
	assert.Equal(t, 140.0, check.Record.Weight)

	// a tie is not a PR
	rr = serve(r, http.MethodPost, "/gymstats/records/check", `{"exerciseName":"deadlift","weight":140,"reps":1,"save":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	check = decode[gymstats.RecordCheckResponse](t, rr)
	assert.False(t, check.IsPR)
	assert.Nil(t, check.Record)

	rr = serve(r, http.MethodPost, "/gymstats/records", `{"exerciseName":"Deadlift","weight":150,"reps":1,"date":"2024-01-15"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(r, http.MethodGet, "/gymstats/exercises/Deadlift/records", "")
	require.Equal(t, http.StatusOK, rr.Code)
	timeline := decode[gymstats.TimelineResponse](t, rr)
	assert.Len(t, timeline.Records, 2)
	require.NotNil(t, timeline.CurrentMax)
	assert.Equal(t, 150.0, timeline.CurrentMax.Weight)

	rr = serve(r, http.MethodPost, "/gymstats/records", `{"exerciseName":"  ","weight":150}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/records", `{"exerciseName":"Deadlift","date":"15.01.2024"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/records", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, body := range []string{
		`{"exerciseName":"Deadlift","weight":-10,"reps":1}`,
		`{"exerciseName":"Deadlift","weight":160,"reps":0}`,
		`{"exerciseName":"Deadlift","weight":160}`,
	} {
		rr = serve(r, http.MethodPost, "/gymstats/records", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	rr = serve(r, http.MethodPost, "/gymstats/records/check", `{"exerciseName":"Deadlift","weight":-1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/records/check", `{"exerciseName":"Deadlift","weight":170,"reps":0,"save":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	// checking alone needs no reps
	rr = serve(r, http.MethodPost, "/gymstats/records/check", `{"exerciseName":"Deadlift","weight":170}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, s.All(datastore.TablePersonalRecords), 2)
}

func TestHandler_Generate(t *testing.T) {
	s := gymstatstest.NewStore()
	weekID := pushDayWeek(s)
	r := newRouter(s)

	rr := serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/generate", `{"weekStart":"2024-01-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	report := decode[struct {
		WeekStart time.Time `json:"weekStart"`
		Workouts  []struct {
			Title string `json:"title"`
		} `json:"workouts"`
		Skipped []json.RawMessage `json:"skipped"`
		State   string            `json:"state"`
	}](t, rr)
	assert.Equal(t, weeks.Date(2024, 1, 8), report.WeekStart.UTC())
	require.Len(t, report.Workouts, 2)
	assert.Equal(t, "Push Day — PPL", report.Workouts[0].Title)
	assert.Equal(t, "done", report.State)

	// the handler's clock also falls into the week of 2024-01-08
	logHook := logtest.NewGlobal()
	defer logHook.Reset()
	rr = serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/generate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"workouts":[]`)
	assert.Len(t, s.All(datastore.TableWorkouts), 2)

	var skippedLog *logrus.Entry
	for _, entry := range logHook.AllEntries() {
		if strings.Contains(entry.Message, "days skipped") {
			skippedLog = entry
		}
	}
	require.NotNil(t, skippedLog, "skipped days are logged")
	assert.Contains(t, skippedLog.Message, "2 days skipped")
	assert.Contains(t, skippedLog.Message, "Monday 2024-01-08")

	rr = serve(r, http.MethodPost, "/gymstats/templates/missing/generate", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/generate", `{"weekStart":"next monday"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	broken := gymstatstest.WeekTemplate(s, user, "Broken", gymstatstest.DaySpec{DayOfWeek: "Caturday"})
	rr = serve(r, http.MethodPost, "/gymstats/templates/"+broken+"/generate", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Generate_PartialWrite(t *testing.T) {
	setInserts := 0
	s := gymstatstest.NewStore(memstore.WithInsertHook(func(table string, _ []datastore.Row) error {
		if table == datastore.TableSets {
			setInserts++
			if setInserts == 4 {
				return errors.New("connection lost")
			}
		}
		return nil
	}))
	weekID := pushDayWeek(s)

	rr := serve(newRouter(s), http.MethodPost, "/gymstats/templates/"+weekID+"/generate", `{"weekStart":"2024-01-08"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[struct {
		Error     string `json:"error"`
		Completed *int   `json:"completed"`
		Report    *struct {
			State    string            `json:"state"`
			Workouts []json.RawMessage `json:"workouts"`
		} `json:"report"`
	}](t, rr)
	assert.Contains(t, resp.Error, "connection lost")
	require.NotNil(t, resp.Completed)
	// monday: workout, bench, slot, 3 sets; thursday: workout, row, slot
	assert.Equal(t, 9, *resp.Completed)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "failed", resp.Report.State)
	assert.Len(t, resp.Report.Workouts, 1)
}

func TestHandler_Clone(t *testing.T) {
	s := gymstatstest.NewStore()
	weekID := pushDayWeek(s)
	libDayID := gymstatstest.LibraryDay(s, user, gymstatstest.DaySpec{Name: "Legs", Exercises: []gymstatstest.ExerciseSpec{
		{Name: "Squat", Sets: gymstatstest.Sets(3, 5, 100)},
	}})
	libExID := gymstatstest.LibraryExercise(s, user, gymstatstest.ExerciseSpec{Name: "Curl", Sets: gymstatstest.Sets(2, 12, 15)})
	r := newRouter(s)

	rr := serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/clone", `{"name":"PPL v2"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cloned := decode[gymstats.CreatedResponse](t, rr)
	assert.NotEqual(t, weekID, cloned.ID)
	assert.Len(t, s.All(datastore.TableWeekTemplates), 2)

	rr = serve(r, http.MethodPost, "/gymstats/library/days/"+libDayID+"/clone", `{"weekTemplateId":"`+weekID+`","dayOfWeek":"Saturday"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	newDayID := decode[gymstats.CreatedResponse](t, rr).ID
	require.NotEmpty(t, newDayID)

	rr = serve(r, http.MethodPost, "/gymstats/templates/days/"+newDayID+"/library", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Len(t, s.All(datastore.TableLibraryDays), 2)

	rr = serve(r, http.MethodPost, "/gymstats/library/exercises/"+libExID+"/clone", `{"dayTemplateId":"`+newDayID+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	newExID := decode[gymstats.CreatedResponse](t, rr).ID

	rr = serve(r, http.MethodPost, "/gymstats/templates/exercises/"+newExID+"/library", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Len(t, s.All(datastore.TableLibraryExercises), 2)

	rr = serve(r, http.MethodPost, "/gymstats/library/days/"+libDayID+"/clone", `{"weekTemplateId":"`+weekID+`","dayOfWeek":"Caturday"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/library/days/"+libDayID+"/clone", `{"dayOfWeek":"Monday"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/library/exercises/"+libExID+"/clone", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(r, http.MethodPost, "/gymstats/templates/days/missing/library", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	r := newRouter(memstore.New())

	for _, tc := range []struct {
		method, target, body string
	}{
		{http.MethodGet, "/gymstats/exercises/Squat/history", ""},
		{http.MethodGet, "/gymstats/weeks", ""},
		{http.MethodGet, "/gymstats/exercises/Squat/records", ""},
		{http.MethodGet, "/gymstats/exercises/Squat/last", ""},
		{http.MethodPost, "/gymstats/records/check", `{"exerciseName":"Squat","weight":100}`},
		{http.MethodPost, "/gymstats/templates/w1/generate", ""},
		{http.MethodPost, "/gymstats/templates/w1/clone", ""},
	} {
		rr := serve(r, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.target)
	}
}

func TestHandler_MutationMiddleware(t *testing.T) {
	s := gymstatstest.NewStore()
	weekID := pushDayWeek(s)
	r := newRouter(s, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Mutation", "1")
			next.ServeHTTP(w, r)
		})
	})

	rr := serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/clone", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Mutation"))

	rr = serve(r, http.MethodGet, "/gymstats/weeks", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("X-Mutation"))

	rr = serve(r, http.MethodGet, "/gymstats/templates/"+weekID+"/clone", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Empty(t, rr.Header().Get("X-Mutation"))
}

func TestHandler_MutationMiddlewareOrder(t *testing.T) {
	s := gymstatstest.NewStore()
	weekID := pushDayWeek(s)

	var calls []string
	named := func(name string) mux.MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	r := newRouter(s, named("outer"), named("inner"))

	rr := serve(r, http.MethodPost, "/gymstats/templates/"+weekID+"/clone", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []string{"outer", "inner"}, calls)

	rr = serve(r, http.MethodPost, "/gymstats/library/days/missing/clone", `{"weekTemplateId":"w","dayOfWeek":"Monday"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Len(t, calls, 4)
}
