package database_test

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requisas/database"
	"requisas/loader"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requisas_test.db")
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, loader.InitDatabase(db))
	return db
}

func nextCode(t *testing.T, db *sqlx.DB, day string) string {
	t.Helper()
	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()
	code, err := database.NextRequisitionCodeInTx(tx, day)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return code
}

func TestNextRequisitionCodeFormatAndIncrement(t *testing.T) {
	db := newTestDB(t)

	assert.Equal(t, "REQ-20260825-0001", nextCode(t, db, "20260825"))
	assert.Equal(t, "REQ-20260825-0002", nextCode(t, db, "20260825"))
	assert.Equal(t, "REQ-20260825-0003", nextCode(t, db, "20260825"))
}

func TestNextRequisitionCodeSeparateDays(t *testing.T) {
	db := newTestDB(t)

	assert.Equal(t, "REQ-20260825-0001", nextCode(t, db, "20260825"))
	assert.Equal(t, "REQ-20260826-0001", nextCode(t, db, "20260826"))
	assert.Equal(t, "REQ-20260825-0002", nextCode(t, db, "20260825"),
		"each day keeps its own counter")
}

func TestNextRequisitionCodeRollsBackWithTransaction(t *testing.T) {
	db := newTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	_, err = database.NextRequisitionCodeInTx(tx, "20260825")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	// The aborted reservation must not burn a sequence number.
	assert.Equal(t, "REQ-20260825-0001", nextCode(t, db, "20260825"))
}
