package database

import (
	"database/sql"
	"time"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

const lastDateKey = "last_date"

// GetSetting returns a stored value, or "" when unset.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting stores a value under key.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value,
	)
	return err
}

// LastDate returns the date of the most recently entered draft, or "".
func (db *DB) LastDate() (string, error) {
	return db.GetSetting(lastDateKey)
}

// SetLastDate remembers the date used for the next entry.
func (db *DB) SetLastDate(date string) error {
	return db.SetSetting(lastDateKey, date)
}

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(observation.DateLayout)
}
