// Package memstore is an in-memory datastore.Store used by tests, the seed tool and local runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/liftlog/internal/datastore"

	"github.com/google/uuid"
)

// unique constraints per table
var uniqueKeys = map[string][]string{
	datastore.TableWorkouts: {"user_id", "date", "title"},
}

type childRef struct {
	table  string
	column string
}

// rows deleted together with their parent
var cascades = map[string][]childRef{
	datastore.TableWorkouts:          {{datastore.TableWorkoutExercises, "workout_id"}},
	datastore.TableWorkoutExercises:  {{datastore.TableSets, "workout_exercise_id"}},
	datastore.TableExercises:         {{datastore.TableWorkoutExercises, "exercise_id"}},
	datastore.TableWeekTemplates:     {{datastore.TableDayTemplates, "week_template_id"}},
	datastore.TableDayTemplates:      {{datastore.TableExerciseTemplates, "day_template_id"}},
	datastore.TableExerciseTemplates: {{datastore.TableTemplateSets, "exercise_template_id"}},
	datastore.TableLibraryDays:       {{datastore.TableLibraryDayExercises, "library_day_id"}},
	datastore.TableLibraryDayExercises: {
		{datastore.TableLibraryDaySets, "library_day_exercise_id"},
	},
	datastore.TableLibraryExercises: {{datastore.TableLibraryExerciseSets, "library_exercise_id"}},
}

type Option func(*Store)

// WithUser fixes the session user for every call.
func WithUser(userID string) Option {
	return func(s *Store) {
		s.findUser = func(context.Context) (string, error) {
			if userID == "" {
				return "", datastore.ErrUnauthenticated
			}
			return userID, nil
		}
	}
}

// WithUserResolver resolves the session user from the call context.
func WithUserResolver(findUser func(ctx context.Context) (string, error)) Option {
	return func(s *Store) {
		s.findUser = findUser
	}
}

// WithArrayRelations makes joined rows come back wrapped in single-element arrays.
func WithArrayRelations() Option {
	return func(s *Store) {
		s.arrayRelations = true
	}
}

// WithInsertHook runs hook before every insert; a non-nil error fails the insert.
func WithInsertHook(hook func(table string, rows []datastore.Row) error) Option {
	return func(s *Store) {
		s.insertHook = hook
	}
}

type Store struct {
	mu     sync.Mutex
	tables map[string][]datastore.Row

	findUser       func(ctx context.Context) (string, error)
	arrayRelations bool
	insertHook     func(table string, rows []datastore.Row) error
}

var _ datastore.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string][]datastore.Row),
		findUser: func(context.Context) (string, error) {
			return "", datastore.ErrUnauthenticated
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) FindUser(ctx context.Context) (string, error) {
	return s.findUser(ctx)
}

// Seed inserts rows as-is, bypassing the session user. Rows without an id get one.
func (s *Store) Seed(table string, rows ...datastore.Row) []datastore.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := make([]datastore.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.ID() == "" {
			r[datastore.ColumnID] = uuid.NewString()
		}
		s.tables[table] = append(s.tables[table], r)
		seeded = append(seeded, r.Clone())
	}
	return seeded
}

// All returns every row of table, for every user.
func (s *Store) All(table string) []datastore.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]datastore.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, r.Clone())
	}
	return out
}

func (s *Store) Query(ctx context.Context, q datastore.Query) ([]datastore.Row, error) {
	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []map[string]datastore.Row
	for _, root := range s.tables[q.Table] {
		if root.UserID() != userID {
			continue
		}

		aliases, ok := s.resolveJoins(root.Clone(), q.Joins, userID)
		if !ok {
			continue
		}

		keep := true
		for _, f := range q.Filters {
			v, found := lookup(aliases, f.Column)
			if !found || !matches(v, f) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, aliases)
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				a, _ := lookup(matched[i], o.Column)
				b, _ := lookup(matched[j], o.Column)
				c := compare(a, b)
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]datastore.Row, 0, len(matched))
	for _, aliases := range matched {
		out = append(out, s.embed(aliases, q.Joins))
	}
	return out, nil
}

// resolveJoins returns the root row under "" and each joined row under its alias.
func (s *Store) resolveJoins(root datastore.Row, joins []datastore.Join, userID string) (map[string]datastore.Row, bool) {
	aliases := map[string]datastore.Row{"": root}
	for _, j := range joins {
		parent, ok := aliases[j.Parent]
		if !ok {
			return nil, false
		}
		fk := parent.String(j.On)
		if fk == "" {
			return nil, false
		}
		var joined datastore.Row
		for _, candidate := range s.tables[j.Table] {
			if candidate.ID() == fk && candidate.UserID() == userID {
				joined = candidate.Clone()
				break
			}
		}
		if joined == nil {
			return nil, false
		}
		aliases[j.As] = joined
	}
	return aliases, true
}

func (s *Store) embed(aliases map[string]datastore.Row, joins []datastore.Join) datastore.Row {
	for _, j := range joins {
		var v any = aliases[j.As]
		if s.arrayRelations {
			v = []any{aliases[j.As]}
		}
		aliases[j.Parent][j.As] = v
	}
	return aliases[""]
}

func (s *Store) Insert(ctx context.Context, table string, rows []datastore.Row) ([]datastore.Row, error) {
	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertHook != nil {
		if err := s.insertHook(table, rows); err != nil {
			return nil, err
		}
	}

	prepared := make([]datastore.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.ID() == "" {
			r[datastore.ColumnID] = uuid.NewString()
		}
		if owner := r.UserID(); owner != "" && owner != userID {
			return nil, fmt.Errorf("%w: row owned by another user", datastore.ErrConstraintViolation)
		}
		r[datastore.ColumnUserID] = userID
		if err := s.checkUnique(table, r, "", prepared); err != nil {
			return nil, err
		}
		prepared = append(prepared, r)
	}

	out := make([]datastore.Row, 0, len(prepared))
	for _, r := range prepared {
		s.tables[table] = append(s.tables[table], r)
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table, id string, patch datastore.Row) (datastore.Row, error) {
	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.tables[table] {
		if row.ID() != id || row.UserID() != userID {
			continue
		}
		updated := row.Clone()
		for k, v := range patch {
			if k == datastore.ColumnID || k == datastore.ColumnUserID {
				continue
			}
			updated[k] = v
		}
		if err := s.checkUnique(table, updated, id, nil); err != nil {
			return nil, err
		}
		s.tables[table][i] = updated
		return updated.Clone(), nil
	}
	return nil, fmt.Errorf("%s %s: %w", table, id, datastore.ErrNotFound)
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	userID, err := s.findUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deleteCascade(table, id, userID) {
		return fmt.Errorf("%s %s: %w", table, id, datastore.ErrNotFound)
	}
	return nil
}

func (s *Store) deleteCascade(table, id, userID string) bool {
	rows := s.tables[table]
	idx := -1
	for i, row := range rows {
		if row.ID() == id && row.UserID() == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.tables[table] = append(rows[:idx:idx], rows[idx+1:]...)

	for _, child := range cascades[table] {
		var childIDs []string
		for _, row := range s.tables[child.table] {
			if row.String(child.column) == id && row.UserID() == userID {
				childIDs = append(childIDs, row.ID())
			}
		}
		for _, childID := range childIDs {
			s.deleteCascade(child.table, childID, userID)
		}
	}
	return true
}

func (s *Store) checkUnique(table string, row datastore.Row, skipID string, pending []datastore.Row) error {
	cols, ok := uniqueKeys[table]
	if !ok {
		return nil
	}
	candidates := append(append([]datastore.Row{}, s.tables[table]...), pending...)
	for _, existing := range candidates {
		if existing.ID() == skipID && skipID != "" {
			continue
		}
		same := true
		for _, c := range cols {
			if compare(existing[c], row[c]) != 0 {
				same = false
				break
			}
		}
		if same {
			return fmt.Errorf("%w: duplicate %s (%s)", datastore.ErrConstraintViolation, table, strings.Join(cols, ", "))
		}
	}
	return nil
}

func lookup(aliases map[string]datastore.Row, column string) (any, bool) {
	alias, name := datastore.SplitColumn(column)
	row, ok := aliases[alias]
	if !ok {
		return nil, false
	}
	v, ok := row[name]
	return v, ok
}

func matches(v any, f datastore.Filter) bool {
	switch f.Op {
	case datastore.OpEq:
		return compare(v, f.Value) == 0
	case datastore.OpNeq:
		return compare(v, f.Value) != 0
	case datastore.OpEqFold:
		return datastore.FoldName(datastore.AsString(v)) == datastore.FoldName(datastore.AsString(f.Value))
	case datastore.OpGte:
		return compare(v, f.Value) >= 0
	case datastore.OpLte:
		return compare(v, f.Value) <= 0
	case datastore.OpIn:
		values, _ := f.Value.([]string)
		s := datastore.AsString(v)
		for _, candidate := range values {
			if candidate == s {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// compare orders nil first, then times, numbers and strings.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := datastore.AsTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if tb, ok := b.(time.Time); ok {
		if ta, ok := datastore.AsTime(a); ok {
			return ta.Compare(tb)
		}
	}

	if isNumber(a) && isNumber(b) {
		fa, fb := datastore.AsFloat(a), datastore.AsFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(datastore.AsString(a), datastore.AsString(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int16, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
