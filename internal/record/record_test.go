package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		input   string
		want    Difficulty
		wantErr bool
	}{
		{"Easy", Easy, false},
		{"medium", Medium, false},
		{" HARD ", Hard, false},
		{"extreme", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDifficulty(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	input := `{"link":"https://leetcode.com/problems/two-sum/","id":"two-sum","difficulty":"easy","repeatDate":"2024-03-01","lastCompletionDate":"2024-02-20T10:30:00Z"}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))

	assert.Equal(t, "two-sum", r.ID)
	assert.Equal(t, Easy, r.Difficulty)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.RepeatDate.Time)
	assert.Equal(t, time.Date(2024, 2, 20, 10, 30, 0, 0, time.UTC), r.LastCompletionDate.Time)
}

func TestRecord_UnmarshalJSON_LegacyTitleSlug(t *testing.T) {
	input := `{"link":"l","titleSlug":"add-two-numbers","difficulty":"Medium","repeatDate":"2024-01-01","lastCompletionDate":"2024-01-01"}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))
	assert.Equal(t, "add-two-numbers", r.ID)
}

func TestRecord_UnmarshalJSON_BadDifficulty(t *testing.T) {
	input := `{"id":"x","difficulty":"Impossible","repeatDate":"2024-01-01","lastCompletionDate":"2024-01-01"}`

	var r Record
	assert.Error(t, json.Unmarshal([]byte(input), &r))
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := Record{
		Link:               "https://leetcode.com/problems/two-sum/",
		ID:                 "two-sum",
		Difficulty:         Easy,
		RepeatDate:         MustParseDate("2024-03-01"),
		LastCompletionDate: MustParseDate("2024-02-20T10:30:00Z"),
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"link":"https://leetcode.com/problems/two-sum/","id":"two-sum","difficulty":"Easy","repeatDate":"2024-03-01","lastCompletionDate":"2024-02-20T10:30:00Z"}`, string(data))
}

func TestRecord_Validate(t *testing.T) {
	valid := Record{
		ID:                 "two-sum",
		Difficulty:         Easy,
		RepeatDate:         MustParseDate("2024-03-01"),
		LastCompletionDate: MustParseDate("2024-02-01"),
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing id", func(r *Record) { r.ID = "  " }},
		{"bad difficulty", func(r *Record) { r.Difficulty = "Trivial" }},
		{"missing repeat date", func(r *Record) { r.RepeatDate = Date{} }},
		{"missing completion date", func(r *Record) { r.LastCompletionDate = Date{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024-01-15T08:00:00", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), false},
		{"2024-01-15T08:00:00+02:00", time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC), false},
		{"2024-01-15T08:00:00.123Z", time.Date(2024, 1, 15, 8, 0, 0, 123000000, time.UTC), false},
		{"January 15", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v, want %v", got.Time, tt.want)
		})
	}
}

func TestDate_UnmarshalJSON_Empty(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "2024-03-01", MustParseDate("2024-03-01").String())
	assert.Equal(t, "2024-03-01T12:00:00Z", MustParseDate("2024-03-01T12:00:00Z").String())
	assert.Equal(t, "", Date{}.String())
}
