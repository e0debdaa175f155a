// Package pgstore is the PostgreSQL datastore.Store.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type Store struct {
	db       *pgxpool.Pool
	findUser func(ctx context.Context) (string, error)
}

var _ datastore.Store = (*Store)(nil)

// New returns a store over db. findUser resolves the session user of a call.
func New(db *pgxpool.Pool, findUser func(ctx context.Context) (string, error)) *Store {
	return &Store{
		db:       db,
		findUser: findUser,
	}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Debugln("pgstore schema up to date")
	return nil
}

func (s *Store) FindUser(ctx context.Context) (string, error) {
	return s.findUser(ctx)
}

func (s *Store) Query(ctx context.Context, q datastore.Query) (_ []datastore.Row, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "pgstore.query")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", q.Table))

	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	sql, args, err := buildSelect(q, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, mapError(err))
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", q.Table, mapError(err))
	}

	out := make([]datastore.Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, nest(m, q.Joins))
	}
	return out, nil
}

// nest moves joined objects under their parent alias.
func nest(m map[string]any, joins []datastore.Join) datastore.Row {
	row := datastore.Row(m)
	for _, j := range joins {
		if j.Parent == "" {
			continue
		}
		parent, ok := row[j.Parent].(map[string]any)
		if !ok {
			continue
		}
		parent[j.As] = row[j.As]
		delete(row, j.As)
	}
	return row
}

// Insert writes rows in one transaction. Rows get a new id unless they carry one.
func (s *Store) Insert(ctx context.Context, table string, rows []datastore.Row) (_ []datastore.Row, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "pgstore.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table), attribute.Int("rows", len(rows)))

	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Errorf("rollback insert into %s: %s", table, rbErr)
			}
		}
	}()

	inserted := make([]datastore.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.ID() == "" {
			r[datastore.ColumnID] = uuid.NewString()
		}
		if owner := r.UserID(); owner != "" && owner != userID {
			return nil, fmt.Errorf("%w: row owned by another user", datastore.ErrConstraintViolation)
		}
		r[datastore.ColumnUserID] = userID

		sql, args, err := buildInsert(table, r)
		if err != nil {
			return nil, err
		}
		res, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("insert into %s: %w", table, mapError(err))
		}
		stored, err := pgx.CollectExactlyOneRow(res, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("insert into %s: %w", table, mapError(err))
		}
		inserted = append(inserted, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", mapError(err))
	}
	return inserted, nil
}

func (s *Store) Update(ctx context.Context, table, id string, patch datastore.Row) (_ datastore.Row, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "pgstore.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table))

	userID, err := s.findUser(ctx)
	if err != nil {
		return nil, err
	}

	sql, args, err := buildUpdate(table, id, userID, patch)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, mapError(err))
	}
	updated, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, mapError(err))
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, table, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "pgstore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table))

	userID, err := s.findUser(ctx)
	if err != nil {
		return err
	}
	t, err := tableIdent(table)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1 AND "user_id" = $2`, t), id, userID)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, datastore.ErrNotFound)
	}
	return nil
}

func mapError(err error) error {
	switch {
	case pkg.IsUniqueViolationError(err), pkg.IsInvalidValueError(err):
		return fmt.Errorf("%w: %w", datastore.ErrConstraintViolation, err)
	case pkg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %w", datastore.ErrNotFound, err)
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %w", datastore.ErrNotFound, err)
	default:
		return err
	}
}
