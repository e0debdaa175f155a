package mcp

import (
	"context"
	"fmt"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaRepo provides liftlog DB schema (information_schema) data.
type SchemaRepo interface {
	GetColumns(ctx context.Context) ([]SchemaColumn, error)
}

// SchemaColumn is one row of information_schema.columns.
type SchemaColumn struct {
	TableSchema string
	TableName   string
	ColumnName  string
	DataType    string
	IsNullable  string
	ColumnDef   *string
}

func liftlogTables() []string {
	tables := []string{
		datastore.TableExercises,
		datastore.TableWorkouts,
		datastore.TableWorkoutExercises,
		datastore.TableSets,
		datastore.TablePersonalRecords,
	}
	return append(tables, datastore.BlueprintTables...)
}

type poolSchemaRepo struct {
	pool *pgxpool.Pool
}

func NewPoolSchemaRepo(pool *pgxpool.Pool) SchemaRepo {
	return &poolSchemaRepo{pool: pool}
}

const columnsQuery = `
	SELECT table_schema, table_name, column_name, data_type, is_nullable, column_default
	FROM information_schema.columns
	WHERE table_schema = 'public' AND table_name = ANY($1)
	ORDER BY table_name, ordinal_position`

func (r *poolSchemaRepo) GetColumns(ctx context.Context) (_ []SchemaColumn, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mcp.schema.columns")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.pool.Query(ctx, columnsQuery, liftlogTables())
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	// SchemaColumn fields follow the select list
	cols, err := pgx.CollectRows(rows, pgx.RowToStructByPos[SchemaColumn])
	if err != nil {
		return nil, fmt.Errorf("collect columns: %w", err)
	}
	return cols, nil
}
