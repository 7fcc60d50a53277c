package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReading(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NotEmpty(t, db.Session())

	require.NoError(t, db.RecordReading("/ch/1", 3.3))
	require.NoError(t, db.RecordReading("/ch/1", 3.4))
	require.NoError(t, db.RecordReading("/switch", 2.0))

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM readings WHERE session = ? AND address = ?",
		db.Session(), "/ch/1",
	).Scan(&count))
	assert.Equal(t, 2, count)

	var value float64
	require.NoError(t, db.QueryRow(
		"SELECT value FROM readings WHERE address = ? ORDER BY rowid DESC LIMIT 1",
		"/ch/1",
	).Scan(&value))
	assert.Equal(t, 3.4, value)
}

func TestSessionsAreUnique(t *testing.T) {
	dir := t.TempDir()

	first, err := NewDB(filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	defer first.Close()

	second, err := NewDB(filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Session(), second.Session())
}
