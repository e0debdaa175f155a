package pgstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/2beens/liftlog/internal/datastore"

	"github.com/jackc/pgx/v5"
)

const rootAlias = "root"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var knownTables = func() map[string]bool {
	tables := map[string]bool{datastore.TablePersonalRecords: true}
	for _, t := range append(append([]string{}, datastore.LiveTables...), datastore.BlueprintTables...) {
		tables[t] = true
	}
	return tables
}()

func ident(parts ...string) (string, error) {
	for _, p := range parts {
		if !identRe.MatchString(p) {
			return "", fmt.Errorf("invalid identifier %q", p)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func tableIdent(table string) (string, error) {
	if !knownTables[table] {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return ident(table)
}

// column resolves "name" against the root table and "alias.name" against a join.
func column(qualified string) (string, error) {
	alias, name := datastore.SplitColumn(qualified)
	if alias == "" {
		alias = rootAlias
	}
	return ident(alias, name)
}

type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// buildSelect renders q as a single statement scoped to userID. Joined rows come
// back as JSON objects under their alias.
func buildSelect(q datastore.Query, userID string) (string, []any, error) {
	table, err := tableIdent(q.Table)
	if err != nil {
		return "", nil, err
	}

	var (
		a       args
		sb      strings.Builder
		userArg = a.add(userID)
	)

	sb.WriteString("SELECT " + rootAlias + ".*")
	for _, j := range q.Joins {
		alias, err := ident(j.As)
		if err != nil {
			return "", nil, err
		}
		if j.As == rootAlias {
			return "", nil, fmt.Errorf("join alias %q is reserved", j.As)
		}
		sb.WriteString(fmt.Sprintf(", row_to_json(%s.*) AS %s", alias, alias))
	}
	sb.WriteString(fmt.Sprintf(" FROM %s AS %s", table, rootAlias))

	for _, j := range q.Joins {
		joined, err := tableIdent(j.Table)
		if err != nil {
			return "", nil, err
		}
		alias, _ := ident(j.As)
		parent := j.Parent
		if parent == "" {
			parent = rootAlias
		}
		fk, err := ident(parent, j.On)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(fmt.Sprintf(
			" JOIN %s AS %s ON %s.%s = %s AND %s.%s = %s",
			joined, alias, alias, `"id"`, fk, alias, `"user_id"`, userArg,
		))
	}

	sb.WriteString(" WHERE " + rootAlias + `."user_id" = ` + userArg)
	for _, f := range q.Filters {
		cond, err := filterSQL(f, &a)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND " + cond)
	}

	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			col, err := column(o.Column)
			if err != nil {
				return "", nil, err
			}
			// nulls sort as the smallest value
			if o.Desc {
				parts = append(parts, col+" DESC NULLS LAST")
			} else {
				parts = append(parts, col+" ASC NULLS FIRST")
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}

	return sb.String(), a, nil
}

func filterSQL(f datastore.Filter, a *args) (string, error) {
	col, err := column(f.Column)
	if err != nil {
		return "", err
	}

	switch f.Op {
	case datastore.OpEq:
		if f.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + a.add(f.Value), nil
	case datastore.OpNeq:
		return col + " IS DISTINCT FROM " + a.add(f.Value), nil
	case datastore.OpEqFold:
		return fmt.Sprintf("lower(trim(%s)) = lower(trim(%s))", col, a.add(datastore.AsString(f.Value))), nil
	case datastore.OpIn:
		values, ok := f.Value.([]string)
		if !ok {
			return "", fmt.Errorf("filter %s: IN expects []string, got %T", f.Column, f.Value)
		}
		return col + " = ANY(" + a.add(values) + ")", nil
	case datastore.OpGte:
		return col + " >= " + a.add(f.Value), nil
	case datastore.OpLte:
		return col + " <= " + a.add(f.Value), nil
	default:
		return "", fmt.Errorf("filter %s: unsupported op %q", f.Column, f.Op)
	}
}

// buildInsert renders a single-row insert returning the stored row.
func buildInsert(table string, row datastore.Row) (string, []any, error) {
	t, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}

	names := sortedKeys(row)
	cols := make([]string, 0, len(names))
	placeholders := make([]string, 0, len(names))
	var a args
	for _, name := range names {
		col, err := ident(name)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, col)
		placeholders = append(placeholders, a.add(row[name]))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	), a, nil
}

// buildUpdate renders an owner-scoped update by id. id and user_id are never patched.
func buildUpdate(table, id, userID string, patch datastore.Row) (string, []any, error) {
	t, err := tableIdent(table)
	if err != nil {
		return "", nil, err
	}

	var (
		a    args
		sets []string
	)
	for _, name := range sortedKeys(patch) {
		if name == datastore.ColumnID || name == datastore.ColumnUserID {
			continue
		}
		col, err := ident(name)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, col+" = "+a.add(patch[name]))
	}
	if len(sets) == 0 {
		return fmt.Sprintf(`SELECT * FROM %s WHERE "id" = %s AND "user_id" = %s`, t, a.add(id), a.add(userID)), a, nil
	}

	return fmt.Sprintf(
		`UPDATE %s SET %s WHERE "id" = %s AND "user_id" = %s RETURNING *`,
		t, strings.Join(sets, ", "), a.add(id), a.add(userID),
	), a, nil
}

func sortedKeys(row datastore.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
