package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"0002_more.sql":    {Data: []byte("ALTER TABLE a ADD COLUMN b INT;")},
		"0001_initial.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"README.md":        {Data: []byte("not a migration")},
	}
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, applied_at FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "applied_at"}).AddRow("0001_initial.sql", testNow))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE a ADD COLUMN b INT;")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES ($1)")).
		WithArgs("0002_more.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := Migrate(context.Background(), db, migrationFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_more.sql"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsAtFirstFailure(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, applied_at FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT);")).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), db, migrationFS())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply 0001_initial.sql")
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationStatus(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, applied_at FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "applied_at"}).AddRow("0001_initial.sql", testNow))

	states, err := MigrationStatus(context.Background(), db, migrationFS())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "0001_initial.sql", states[0].Name)
	require.NotNil(t, states[0].AppliedAt)
	assert.Equal(t, testNow, *states[0].AppliedAt)
	assert.Nil(t, states[1].AppliedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
