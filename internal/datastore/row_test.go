package datastore

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRow_Getters(t *testing.T) {
	created := time.Date(2024, 1, 8, 18, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6f1c2a8e-2b1b-4a55-9d35-3f0c8f3c9a11")
	row := Row{
		"id":          id,
		"user_id":     []byte("user-1"),
		"weight":      json.Number("52.5"),
		"reps":        "8",
		"order_index": int64(2),
		"rounded":     7.6,
		"created_at":  "2024-01-08T18:30:00Z",
		"date":        "2024-01-08",
		"nan":         math.NaN(),
		"flag":        struct{}{},
	}

	assert.Equal(t, id.String(), row.ID())
	assert.Equal(t, "user-1", row.UserID())
	assert.Equal(t, 52.5, row.Float("weight"))
	assert.Equal(t, 8, row.Int("reps"))
	assert.Equal(t, 2, row.Int("order_index"))
	assert.Equal(t, 8, row.Int("rounded"))
	assert.Equal(t, 0.0, row.Float("nan"))
	assert.Equal(t, 0.0, row.Float("flag"))
	assert.Equal(t, 0, row.Int("missing"))
	assert.Equal(t, "", row.String("missing"))
	assert.Equal(t, "{}", row.String("flag"))

	got, ok := row.Time("created_at")
	assert.True(t, ok)
	assert.True(t, created.Equal(got))

	got, ok = row.Time("date")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-08", got.Format(time.DateOnly))
}

func TestAsTime(t *testing.T) {
	now := time.Now().UTC()
	var nilTime *time.Time

	testCases := []struct {
		name   string
		raw    any
		wantOK bool
	}{
		{name: "time value", raw: now, wantOK: true},
		{name: "time pointer", raw: &now, wantOK: true},
		{name: "nil pointer", raw: nilTime, wantOK: false},
		{name: "zero time", raw: time.Time{}, wantOK: false},
		{name: "timestamp without zone", raw: "2024-01-08T18:30:00.123456", wantOK: true},
		{name: "garbage", raw: "last tuesday", wantOK: false},
		{name: "nil", raw: nil, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := AsTime(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}
