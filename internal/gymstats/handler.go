package gymstats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/gymstats/clone"
	"github.com/2beens/liftlog/internal/gymstats/comparison"
	"github.com/2beens/liftlog/internal/gymstats/history"
	"github.com/2beens/liftlog/internal/gymstats/records"
	"github.com/2beens/liftlog/internal/gymstats/stats"
	"github.com/2beens/liftlog/internal/gymstats/templates"
	"github.com/2beens/liftlog/internal/gymstats/weeks"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/pkg"

	"github.com/gorilla/mux"
	"go.uber.org/multierr"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string `json:"error"`
	// Completed is the number of rows written before a multi-row write failed.
	Completed *int `json:"completed,omitempty"`
}

type GenerateFailedResponse struct {
	ErrorResponse
	Report *templates.Report `json:"report,omitempty"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type RecordRequest struct {
	ExerciseName string  `json:"exerciseName"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
	// Date is YYYY-MM-DD, today when empty.
	Date string `json:"date"`
	// Save makes a record check store the record when it is a PR.
	Save bool `json:"save"`
}

type RecordCheckResponse struct {
	ExerciseName string          `json:"exerciseName"`
	Weight       float64         `json:"weight"`
	IsPR         bool            `json:"isPR"`
	Record       *records.Record `json:"record,omitempty"`
}

type TimelineResponse struct {
	ExerciseName string           `json:"exerciseName"`
	Records      []records.Record `json:"records"`
	CurrentMax   *records.Record  `json:"currentMax,omitempty"`
}

type HistoryResponse struct {
	ExerciseName string          `json:"exerciseName"`
	Entries      []history.Entry `json:"entries"`
}

type GenerateRequest struct {
	WeekStart string `json:"weekStart"`
}

type CloneWeekRequest struct {
	Name string `json:"name"`
}

type LibraryDayCloneRequest struct {
	WeekTemplateID string `json:"weekTemplateId"`
	DayOfWeek      string `json:"dayOfWeek"`
}

type LibraryExerciseCloneRequest struct {
	DayTemplateID string `json:"dayTemplateId"`
}

type HandlerParams struct {
	Store               datastore.Store
	MetricsManager      *metrics.Manager
	ComparisonScanLimit int
	SummaryWeeks        int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	reader     *history.Reader
	stats      *stats.Service
	records    *records.Tracker
	comparison *comparison.Engine
	cloner     *clone.Cloner
	generator  *templates.Generator

	summaryWeeks int
	now          func() time.Time
}

func NewHandler(params HandlerParams) *Handler {
	reader := history.NewReader(params.Store)
	now := params.Now
	if now == nil {
		now = time.Now
	}
	summaryWeeks := params.SummaryWeeks
	if summaryWeeks <= 0 {
		summaryWeeks = stats.DefaultOverviewWeeks
	}
	return &Handler{
		reader:       reader,
		stats:        stats.NewService(reader),
		records:      records.NewTracker(params.Store, params.MetricsManager),
		comparison:   comparison.NewEngine(params.Store, params.MetricsManager).WithScanLimit(params.ComparisonScanLimit),
		cloner:       clone.NewCloner(params.Store, params.MetricsManager),
		generator:    templates.NewGenerator(params.Store, reader, params.MetricsManager),
		summaryWeeks: summaryWeeks,
		now:          now,
	}
}

// SetupRoutes registers every route on r. Writes are wrapped with
// mutationMiddleware, the first one outermost.
func (handler *Handler) SetupRoutes(r *mux.Router, mutationMiddleware ...mux.MiddlewareFunc) {
	r.HandleFunc("/gymstats/exercises/{name}/history", handler.HandleHistory).Methods("GET", "OPTIONS").Name("gymstats-history")
	r.HandleFunc("/gymstats/exercises/{name}/progress", handler.HandleProgress).Methods("GET", "OPTIONS").Name("gymstats-progress")
	r.HandleFunc("/gymstats/exercises/{name}/records", handler.HandleTimeline).Methods("GET", "OPTIONS").Name("gymstats-records")
	r.HandleFunc("/gymstats/exercises/{name}/last", handler.HandleLastOccurrence).Methods("GET", "OPTIONS").Name("gymstats-last")
	r.HandleFunc("/gymstats/weeks", handler.HandleWeeks).Methods("GET", "OPTIONS").Name("gymstats-weeks")

	// writes stay on r itself so a method mismatch still yields 405
	mutation := func(path, name string, h http.HandlerFunc) {
		var wrapped http.Handler = h
		for i := len(mutationMiddleware) - 1; i >= 0; i-- {
			wrapped = mutationMiddleware[i](wrapped)
		}
		r.Handle(path, wrapped).Methods("POST", "OPTIONS").Name(name)
	}
	mutation("/gymstats/records/check", "gymstats-records-check", handler.HandleCheckRecord)
	mutation("/gymstats/records", "gymstats-records-save", handler.HandleSaveRecord)
	mutation("/gymstats/templates/{id}/generate", "gymstats-generate", handler.HandleGenerate)
	mutation("/gymstats/templates/{id}/clone", "gymstats-clone-week", handler.HandleCloneWeek)
	mutation("/gymstats/templates/days/{id}/library", "gymstats-day-to-library", handler.HandleDayToLibrary)
	mutation("/gymstats/templates/exercises/{id}/library", "gymstats-exercise-to-library", handler.HandleExerciseToLibrary)
	mutation("/gymstats/library/days/{id}/clone", "gymstats-library-day-clone", handler.HandleLibraryDayToWeek)
	mutation("/gymstats/library/exercises/{id}/clone", "gymstats-library-exercise-clone", handler.HandleLibraryExerciseToDay)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.history")
	defer span.End()

	name := mux.Vars(r)["name"]
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := handler.reader.ForExercise(ctx, name, limit)
	if err != nil {
		writeError(w, "exercise history", err)
		return
	}

	pkg.WriteJSON(w, HistoryResponse{ExerciseName: name, Entries: entries}, http.StatusOK)
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.progress")
	defer span.End()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	progress, err := handler.stats.ExerciseProgress(ctx, mux.Vars(r)["name"], limit)
	if err != nil {
		writeError(w, "exercise progress", err)
		return
	}

	pkg.WriteJSON(w, progress, http.StatusOK)
}

func (handler *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.timeline")
	defer span.End()

	name := mux.Vars(r)["name"]
	timeline, err := handler.records.Timeline(ctx, name)
	if err != nil {
		writeError(w, "records timeline", err)
		return
	}

	resp := TimelineResponse{
		ExerciseName: name,
		Records:      timeline,
	}
	if current, ok := records.CurrentMax(timeline); ok {
		resp.CurrentMax = &current
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleLastOccurrence(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.last")
	defer span.End()

	current := 0.0
	if raw := r.URL.Query().Get("current"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "error, current weight NaN", http.StatusBadRequest)
			return
		}
		current = parsed
	}

	res, err := handler.comparison.LastOccurrence(ctx, mux.Vars(r)["name"], r.URL.Query().Get("exclude"), current)
	if err != nil {
		writeError(w, "last occurrence", err)
		return
	}

	pkg.WriteJSON(w, res, http.StatusOK)
}

func (handler *Handler) HandleWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.weeks")
	defer span.End()

	count, err := queryInt(r, "count", handler.summaryWeeks)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	overview, err := handler.stats.WeeklyOverview(ctx, count, handler.now())
	if err != nil {
		writeError(w, "weekly overview", err)
		return
	}

	pkg.WriteJSON(w, overview, http.StatusOK)
}

func (handler *Handler) HandleCheckRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.checkRecord")
	defer span.End()

	req, date, ok := handler.decodeRecordRequest(w, r, false)
	if !ok {
		return
	}

	resp := RecordCheckResponse{
		ExerciseName: req.ExerciseName,
		Weight:       req.Weight,
	}
	if req.Save {
		record, isPR, err := handler.records.CheckAndSave(ctx, req.ExerciseName, req.Weight, req.Reps, date)
		if err != nil {
			writeError(w, "check and save record", err)
			return
		}
		resp.IsPR = isPR
		resp.Record = record
	} else {
		isPR, err := handler.records.DetectPR(ctx, req.ExerciseName, req.Weight)
		if err != nil {
			writeError(w, "detect record", err)
			return
		}
		resp.IsPR = isPR
	}

	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleSaveRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.saveRecord")
	defer span.End()

	req, date, ok := handler.decodeRecordRequest(w, r, true)
	if !ok {
		return
	}

	record, err := handler.records.SaveRecord(ctx, req.ExerciseName, req.Weight, req.Reps, date)
	if err != nil {
		writeError(w, "save record", err)
		return
	}

	log.Debugf("record saved: [%s] %.2f x %d", record.ExerciseName, record.Weight, record.Reps)
	pkg.WriteJSON(w, record, http.StatusCreated)
}

// decodeRecordRequest validates a record body; reps only matter when the record gets stored.
func (handler *Handler) decodeRecordRequest(w http.ResponseWriter, r *http.Request, store bool) (RecordRequest, time.Time, bool) {
	var req RecordRequest
	if err := decodeBody(r, &req); err != nil {
		log.Errorf("record request, unmarshal json params: %s", err)
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return req, time.Time{}, false
	}
	if strings.TrimSpace(req.ExerciseName) == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return req, time.Time{}, false
	}
	if err := records.ValidateWeight(req.Weight); err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return req, time.Time{}, false
	}
	if store || req.Save {
		if err := records.ValidateReps(req.Reps); err != nil {
			http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
			return req, time.Time{}, false
		}
	}

	date := weeks.Truncate(handler.now())
	if req.Date != "" {
		parsed, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			http.Error(w, "error, date must be YYYY-MM-DD", http.StatusBadRequest)
			return req, time.Time{}, false
		}
		date = parsed
	}
	return req, date, true
}

func (handler *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.generate")
	defer span.End()

	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return
	}

	weekStart := handler.now()
	if req.WeekStart != "" {
		parsed, err := time.Parse(time.DateOnly, req.WeekStart)
		if err != nil {
			http.Error(w, "error, weekStart must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		weekStart = parsed
	}

	weekTemplateID := mux.Vars(r)["id"]
	report, err := handler.generator.Generate(ctx, weekTemplateID, weekStart)
	var partial *datastore.PartialWriteError
	if errors.As(err, &partial) {
		log.Errorf("generate week [%s]: %s", weekTemplateID, err)
		pkg.WriteJSON(w, GenerateFailedResponse{
			ErrorResponse: ErrorResponse{Error: err.Error(), Completed: &partial.Completed},
			Report:        report,
		}, http.StatusInternalServerError)
		return
	}
	if err != nil {
		writeError(w, "generate week", err)
		return
	}

	if skipErr := report.SkipErr(); skipErr != nil {
		log.Infof("generate week [%s]: %d days skipped: %s", weekTemplateID, len(multierr.Errors(skipErr)), skipErr)
	}

	status := http.StatusOK
	if report.RowsWritten > 0 {
		status = http.StatusCreated
	}
	log.Debugf("generated week [%s] from %s: %d workouts, %d skipped",
		weekTemplateID, report.WeekStart.Format(time.DateOnly), len(report.Workouts), len(report.Skipped))
	pkg.WriteJSON(w, report, status)
}

func (handler *Handler) HandleCloneWeek(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.cloneWeek")
	defer span.End()

	var req CloneWeekRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return
	}

	id, err := handler.cloner.CloneWeek(ctx, mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, "clone week", err)
		return
	}
	pkg.WriteJSON(w, CreatedResponse{ID: id}, http.StatusCreated)
}

func (handler *Handler) HandleLibraryDayToWeek(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.libraryDayToWeek")
	defer span.End()

	var req LibraryDayCloneRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return
	}
	if req.WeekTemplateID == "" {
		http.Error(w, "error, week template id empty", http.StatusBadRequest)
		return
	}

	id, err := handler.cloner.LibraryDayToWeek(ctx, mux.Vars(r)["id"], req.WeekTemplateID, req.DayOfWeek)
	if err != nil {
		writeError(w, "library day to week", err)
		return
	}
	pkg.WriteJSON(w, CreatedResponse{ID: id}, http.StatusCreated)
}

func (handler *Handler) HandleDayToLibrary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.dayToLibrary")
	defer span.End()

	id, err := handler.cloner.DayToLibrary(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "day to library", err)
		return
	}
	pkg.WriteJSON(w, CreatedResponse{ID: id}, http.StatusCreated)
}

func (handler *Handler) HandleLibraryExerciseToDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.libraryExerciseToDay")
	defer span.End()

	var req LibraryExerciseCloneRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return
	}
	if req.DayTemplateID == "" {
		http.Error(w, "error, day template id empty", http.StatusBadRequest)
		return
	}

	id, err := handler.cloner.LibraryExerciseToDay(ctx, mux.Vars(r)["id"], req.DayTemplateID)
	if err != nil {
		writeError(w, "library exercise to day", err)
		return
	}
	pkg.WriteJSON(w, CreatedResponse{ID: id}, http.StatusCreated)
}

func (handler *Handler) HandleExerciseToLibrary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.gymstats.exerciseToLibrary")
	defer span.End()

	id, err := handler.cloner.ExerciseToLibrary(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "exercise to library", err)
		return
	}
	pkg.WriteJSON(w, CreatedResponse{ID: id}, http.StatusCreated)
}

// decodeBody accepts an empty body and leaves v untouched then.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("error, %s must be a non-negative integer", key)
	}
	return v, nil
}

// writeError maps engine errors onto status codes. Partial writes are checked
// first since they wrap the store error that stopped them.
func writeError(w http.ResponseWriter, op string, err error) {
	var partial *datastore.PartialWriteError
	switch {
	case errors.As(err, &partial):
		log.Errorf("%s: %s", op, err)
		pkg.WriteJSON(w, ErrorResponse{Error: err.Error(), Completed: &partial.Completed}, http.StatusInternalServerError)
	case errors.Is(err, datastore.ErrUnauthenticated):
		pkg.WriteJSON(w, ErrorResponse{Error: "unauthenticated"}, http.StatusUnauthorized)
	case errors.Is(err, datastore.ErrNotFound):
		pkg.WriteJSON(w, ErrorResponse{Error: err.Error()}, http.StatusNotFound)
	case errors.Is(err, datastore.ErrConstraintViolation):
		pkg.WriteJSON(w, ErrorResponse{Error: err.Error()}, http.StatusConflict)
	case errors.Is(err, templates.ErrInvalidTemplate),
		errors.Is(err, clone.ErrInvalidDayOfWeek),
		errors.Is(err, records.ErrEmptyExerciseName),
		errors.Is(err, records.ErrInvalidRecord):
		pkg.WriteJSON(w, ErrorResponse{Error: err.Error()}, http.StatusBadRequest)
	default:
		log.Errorf("%s: %s", op, err)
		pkg.WriteJSON(w, ErrorResponse{Error: op + " failed"}, http.StatusInternalServerError)
	}
}
