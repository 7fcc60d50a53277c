// Package db implements the optional sqlite recorder for emitted telemetry.
// Every run gets its own session ID so recordings from separate patches can
// be told apart afterwards.
package db

import (
	"database/sql"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	session string
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			session           TEXT,
			address           TEXT,
			value             DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS readings_session_address
			ON readings (session, address);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, session: uuid.NewString()}, nil
}

// Session returns the recorder's session identifier.
func (db *DB) Session() string {
	return db.session
}

// RecordReading stores one emitted telemetry value.
func (db *DB) RecordReading(address string, value float64) error {
	_, err := db.Exec("INSERT INTO readings (session, address, value) VALUES (?, ?, ?)", db.session, address, value)
	if err != nil {
		return err
	}
	return nil
}
