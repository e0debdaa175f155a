package datastore

// RelationKind tells how a store embedded a joined row.
type RelationKind int

const (
	RelationNone RelationKind = iota
	RelationSingle
	RelationCollection
)

// Relation is a joined relation as it came back from the store: either a single
// nested row or a collection of rows (some stores wrap to-one joins in an array).
type Relation struct {
	Kind RelationKind
	row  Row
	rows []Row
}

// AsRelation classifies a raw embedded value. Unknown shapes yield RelationNone.
func AsRelation(v any) Relation {
	switch val := v.(type) {
	case Row:
		if val == nil {
			return Relation{}
		}
		return Relation{Kind: RelationSingle, row: val}
	case map[string]any:
		if val == nil {
			return Relation{}
		}
		return Relation{Kind: RelationSingle, row: Row(val)}
	case []Row:
		return Relation{Kind: RelationCollection, rows: val}
	case []map[string]any:
		rows := make([]Row, 0, len(val))
		for _, m := range val {
			rows = append(rows, Row(m))
		}
		return Relation{Kind: RelationCollection, rows: rows}
	case []any:
		rows := make([]Row, 0, len(val))
		for _, item := range val {
			switch m := item.(type) {
			case Row:
				rows = append(rows, m)
			case map[string]any:
				rows = append(rows, Row(m))
			}
		}
		return Relation{Kind: RelationCollection, rows: rows}
	default:
		return Relation{}
	}
}

// One returns the row of a to-one relation regardless of its shape.
func (r Relation) One() (Row, bool) {
	switch r.Kind {
	case RelationSingle:
		return r.row, true
	case RelationCollection:
		if len(r.rows) == 0 {
			return nil, false
		}
		return r.rows[0], true
	default:
		return nil, false
	}
}
