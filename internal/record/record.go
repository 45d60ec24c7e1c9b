package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Difficulty is the problem difficulty tier.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty maps a case-insensitive name onto a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// UnmarshalJSON accepts any casing of the three tiers.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("difficulty: %w", err)
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is one completed problem tracked for spaced repetition.
// ID is the cache key; two Records with the same ID are the same entry.
type Record struct {
	// Link is the problem URL
	Link string `json:"link"`

	// ID is the stable problem identifier (the problem's title slug)
	ID string `json:"id"`

	Difficulty Difficulty `json:"difficulty"`

	// RepeatDate is when the problem is next due for review
	RepeatDate Date `json:"repeatDate"`

	// LastCompletionDate is when the problem was last solved
	LastCompletionDate Date `json:"lastCompletionDate"`
}

// wireRecord mirrors Record for decoding. Rows written by older clients key
// the problem by titleSlug instead of id.
type wireRecord struct {
	Link               string     `json:"link"`
	ID                 string     `json:"id"`
	TitleSlug          string     `json:"titleSlug"`
	Difficulty         Difficulty `json:"difficulty"`
	RepeatDate         Date       `json:"repeatDate"`
	LastCompletionDate Date       `json:"lastCompletionDate"`
}

// UnmarshalJSON decodes a record from either the current or the legacy row shape.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := w.ID
	if id == "" {
		id = w.TitleSlug
	}
	*r = Record{
		Link:               w.Link,
		ID:                 strings.TrimSpace(id),
		Difficulty:         w.Difficulty,
		RepeatDate:         w.RepeatDate,
		LastCompletionDate: w.LastCompletionDate,
	}
	return nil
}

// Validate reports the first missing or malformed field.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := ParseDifficulty(string(r.Difficulty)); err != nil {
		return err
	}
	if r.RepeatDate.IsZero() {
		return fmt.Errorf("repeatDate is required")
	}
	if r.LastCompletionDate.IsZero() {
		return fmt.Errorf("lastCompletionDate is required")
	}
	return nil
}
