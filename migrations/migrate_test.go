package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestUpAppliesPendingAndSkipsRecorded(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations_scheduling`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("0001_create_scheduling_tables.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("0002_add_search_indices.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_teacher_availability_search`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations_scheduling`).WithArgs("0002_add_search_indices.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Up(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpStopsOnHardFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations_scheduling`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("0001_create_scheduling_tables.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS classrooms`).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := Up(context.Background(), db, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_create_scheduling_tables.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsIgnorable(t *testing.T) {
	assert.True(t, isIgnorable(&pq.Error{Code: "42P07"}))
	assert.False(t, isIgnorable(&pq.Error{Code: "42601"}))
	assert.False(t, isIgnorable(errors.New("boom")))
}
