// Package datastore defines the record store the gym stats engine reads and writes through.
package datastore

import (
	"context"
	"strings"
)

//go:generate mockgen -source=$GOFILE -destination=mocks/store.go -package=mocks

// Store is a user-scoped keyed CRUD store with a filtered, ordered query primitive.
// Every call is implicitly scoped to the user returned by FindUser.
type Store interface {
	// FindUser returns the current user id or ErrUnauthenticated.
	FindUser(ctx context.Context) (string, error)
	Query(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Update(ctx context.Context, table, id string, patch Row) (Row, error)
	Delete(ctx context.Context, table, id string) error
}

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	// OpEqFold compares trimmed strings case-insensitively.
	OpEqFold Op = "eqfold"
	OpIn     Op = "in"
	OpGte    Op = "gte"
	OpLte    Op = "lte"
)

// Filter restricts a query. Column may be qualified with a join alias, e.g. "workout.user_id".
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Neq(column string, value any) Filter {
	return Filter{Column: column, Op: OpNeq, Value: value}
}

func EqFold(column, value string) Filter {
	return Filter{Column: column, Op: OpEqFold, Value: value}
}

func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

func Lte(column string, value any) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

type Order struct {
	Column string
	Desc   bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Join embeds the row of Table whose id equals the On column of the parent
// (the root row, or the row joined as Parent). The embedded row is keyed by As.
// Joins are inner: a root row without a match is dropped.
type Join struct {
	Table  string
	As     string
	On     string
	Parent string
}

type Query struct {
	Table   string
	Filters []Filter
	Joins   []Join
	Order   []Order
	// Limit <= 0 means no limit.
	Limit int
}

// SplitColumn splits "alias.column" into its parts. Unqualified columns have an empty alias.
func SplitColumn(column string) (alias, name string) {
	if i := strings.LastIndex(column, "."); i >= 0 {
		return column[:i], column[i+1:]
	}
	return "", column
}

// FoldName is the canonical form used when matching exercise names.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
