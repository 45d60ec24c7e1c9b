package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
)

// ReplaceSnapshot stores recs as username's snapshot, replacing any previous
// one. Record order is preserved through the position column.
func ReplaceSnapshot(ctx context.Context, db *sql.DB, username string, recs []record.Record, savedAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records WHERE username = ?`, username); err != nil {
		return errors.NewInternal(err)
	}

	upsert := `
		INSERT INTO snapshots (username, saved_at) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET saved_at = excluded.saved_at
	`
	if _, err := tx.ExecContext(ctx, upsert, username, savedAt.UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_records (
			username, position, problem_id, link, difficulty, repeat_date, last_completion_date
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		_, err := stmt.ExecContext(ctx,
			username, i, rec.ID, rec.Link, string(rec.Difficulty),
			rec.RepeatDate.String(), rec.LastCompletionDate.String(),
		)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("insert %s: %w", rec.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadSnapshot returns username's records in stored order and the time they were saved.
// Returns ErrNotFound if no snapshot exists.
func LoadSnapshot(ctx context.Context, db *sql.DB, username string) ([]record.Record, time.Time, error) {
	var savedAtMs int64
	err := db.QueryRowContext(ctx, `SELECT saved_at FROM snapshots WHERE username = ?`, username).Scan(&savedAtMs)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, errors.NewNotFound(username)
	}
	if err != nil {
		return nil, time.Time{}, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT problem_id, link, difficulty, repeat_date, last_completion_date
		FROM snapshot_records
		WHERE username = ?
		ORDER BY position ASC
	`, username)
	if err != nil {
		return nil, time.Time{}, errors.NewInternal(err)
	}
	defer rows.Close()

	recs := make([]record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, time.Time{}, errors.NewInternal(err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, errors.NewInternal(err)
	}

	return recs, time.UnixMilli(savedAtMs), nil
}

// DeleteSnapshot removes username's snapshot. Absent snapshots are a no-op.
func DeleteSnapshot(ctx context.Context, db *sql.DB, username string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE username = ?`, username); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// scanRecord scans one snapshot_records row into a Record.
func scanRecord(rows *sql.Rows) (record.Record, error) {
	var (
		rec                  record.Record
		difficulty           string
		repeatDate, lastDate string
	)
	if err := rows.Scan(&rec.ID, &rec.Link, &difficulty, &repeatDate, &lastDate); err != nil {
		return record.Record{}, err
	}

	var err error
	if rec.Difficulty, err = record.ParseDifficulty(difficulty); err != nil {
		return record.Record{}, err
	}
	if rec.RepeatDate, err = record.ParseDate(repeatDate); err != nil {
		return record.Record{}, err
	}
	if rec.LastCompletionDate, err = record.ParseDate(lastDate); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}
