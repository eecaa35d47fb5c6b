package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/propconf/pkg/registry"
)

func TestRegistryEnsureTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS validation_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	r := &Registry{db: db}
	require.NoError(t, r.ensureTables())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryEnsureTablesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_documents").
		WillReturnError(assert.AnError)

	r := &Registry{db: db}
	err = r.ensureTables()
	assert.Error(t, err)
}

func TestRegistryGetSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"content", "created_at"}).
		AddRow([]byte("version: 1\n"), now)
	mock.ExpectQuery("SELECT content, created_at FROM schema_documents").
		WithArgs("worker", "1.0.0").
		WillReturnRows(rows)

	r := &Registry{db: db}
	doc, err := r.GetSchema(context.Background(), "worker", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "worker", doc.Name)
	assert.Equal(t, "version: 1\n", string(doc.Content))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryGetSchemaNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT content, created_at FROM schema_documents").
		WithArgs("missing", "1.0.0").
		WillReturnError(sql.ErrNoRows)

	r := &Registry{db: db}
	_, err = r.GetSchema(context.Background(), "missing", "1.0.0")
	assert.Error(t, err)
}

func TestRegistryPutSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO schema_documents").
		WithArgs("worker", "1.0.0", []byte("version: 1\n"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := &Registry{db: db}
	err = r.PutSchema(context.Background(), &registry.SchemaDocument{
		Name: "worker", Version: "1.0.0", Content: []byte("version: 1\n"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryLatestSchemaVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"version"}).AddRow("1.2.0")
	mock.ExpectQuery("SELECT version FROM schema_documents").
		WithArgs("worker").
		WillReturnRows(rows)

	r := &Registry{db: db}
	v, err := r.LatestSchemaVersion(context.Background(), "worker")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v)
}

func TestRegistryListSchemaNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name"}).AddRow("app").AddRow("worker")
	mock.ExpectQuery("SELECT DISTINCT name FROM schema_documents").WillReturnRows(rows)

	r := &Registry{db: db}
	names, err := r.ListSchemaNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "worker"}, names)
}

func TestRegistryRecordRunGeneratesID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO validation_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := &Registry{db: db}
	run := &registry.Run{SchemaName: "worker", SchemaVersion: "1.0.0", Role: "worker"}
	err = r.RecordRun(context.Background(), run)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	r := &Registry{db: db}
	require.NoError(t, r.HealthCheck(context.Background()))
}
