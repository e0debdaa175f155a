package datastore

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// Row is a single record as returned by a Store. Values keep whatever type the
// store produced; use the typed getters to read them.
type Row map[string]any

func (r Row) ID() string {
	return r.String(ColumnID)
}

func (r Row) UserID() string {
	return r.String(ColumnUserID)
}

func (r Row) String(key string) string {
	return AsString(r[key])
}

func (r Row) Float(key string) float64 {
	return AsFloat(r[key])
}

func (r Row) Int(key string) int {
	return AsInt(r[key])
}

func (r Row) Time(key string) (time.Time, bool) {
	return AsTime(r[key])
}

// Relation returns the embedded relation stored under key.
func (r Row) Relation(key string) Relation {
	return AsRelation(r[key])
}

// Clone returns a shallow copy of r. Embedded relations are copied recursively.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case Row:
			c[k] = val.Clone()
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				if row, ok := item.(Row); ok {
					items[i] = row.Clone()
				} else {
					items[i] = item
				}
			}
			c[k] = items
		default:
			c[k] = v
		}
	}
	return c
}

func AsString(v any) string {
	str, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return str
}

// AsFloat reads numbers, numeric strings and json.Number; anything else is 0.
func AsFloat(v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// AsInt rounds fractional values instead of truncating them.
func AsInt(v any) int {
	return int(math.Round(AsFloat(v)))
}

// AsTime accepts time values and the textual date forms stores emit for JSON-embedded rows.
func AsTime(v any) (time.Time, bool) {
	if ptr, ok := v.(*time.Time); ok {
		if ptr == nil {
			return time.Time{}, false
		}
		v = *ptr
	}
	if v == nil {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}
