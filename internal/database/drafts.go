package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

const draftColumns = `uuid, date, stock_number, stock_name, price, industry, notion, future, comment`

// SaveDraft inserts a draft, or updates it in place when its uuid exists.
func (db *DB) SaveDraft(o observation.Observation) error {
	industry, err := json.Marshal(nonNil(o.IndustryTags))
	if err != nil {
		return err
	}
	concept, err := json.Marshal(nonNil(o.ConceptTags))
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT INTO drafts (`+draftColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			date = excluded.date,
			stock_number = excluded.stock_number,
			stock_name = excluded.stock_name,
			price = excluded.price,
			industry = excluded.industry,
			notion = excluded.notion,
			future = excluded.future,
			comment = excluded.comment,
			updated_at = datetime('now')`,
		o.ID, o.Date, o.TickerCode, o.TickerName, o.Price,
		string(industry), string(concept), string(o.Forecast), o.Comment,
	)
	if err != nil {
		return fmt.Errorf("saving draft %s: %w", o.ID, err)
	}
	return nil
}

// GetDrafts returns all drafts in the order they were first saved.
func (db *DB) GetDrafts() ([]observation.Observation, error) {
	rows, err := db.conn.Query(`SELECT ` + draftColumns + ` FROM drafts ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := []observation.Observation{}
	for rows.Next() {
		o, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *o)
	}
	return drafts, rows.Err()
}

// GetDraft returns a single draft, or nil when it does not exist.
func (db *DB) GetDraft(id string) (*observation.Observation, error) {
	row := db.conn.QueryRow(`SELECT `+draftColumns+` FROM drafts WHERE uuid = ?`, id)
	o, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteDraft removes a draft. It reports whether a row was deleted.
func (db *DB) DeleteDraft(id string) (bool, error) {
	result, err := db.conn.Exec(`DELETE FROM drafts WHERE uuid = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ClearDrafts removes every draft.
// DeleteDrafts removes the drafts with the given uuids in one transaction and
// returns how many were deleted.
func (db *DB) DeleteDrafts(ids []string) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		result, err := tx.Exec(`DELETE FROM drafts WHERE uuid = ?`, id)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		deleted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

func (db *DB) ClearDrafts() error {
	_, err := db.conn.Exec(`DELETE FROM drafts`)
	return err
}

// CountDrafts returns the number of pending drafts.
func (db *DB) CountDrafts() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM drafts`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*observation.Observation, error) {
	var o observation.Observation
	var industry, concept, forecast string
	if err := s.Scan(&o.ID, &o.Date, &o.TickerCode, &o.TickerName, &o.Price,
		&industry, &concept, &forecast, &o.Comment); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(industry), &o.IndustryTags); err != nil {
		return nil, fmt.Errorf("draft %s industry tags: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(concept), &o.ConceptTags); err != nil {
		return nil, fmt.Errorf("draft %s concept tags: %w", o.ID, err)
	}
	o.IndustryTags = nonNil(o.IndustryTags)
	o.ConceptTags = nonNil(o.ConceptTags)
	o.Forecast = observation.Forecast(forecast)
	return &o, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
