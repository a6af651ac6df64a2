//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

const postgresStartupTimeout = 60 * time.Second

// startPostgres runs a throwaway PostgreSQL container and returns its
// connection settings.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "huginn",
				"POSTGRES_PASSWORD": "huginn",
				"POSTGRES_DB":       "huginn_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(postgresStartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Skipping integration test: could not start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "huginn",
		Password: "huginn",
		DBName:   "huginn_test",
		SSLMode:  "disable",
	}
	return cfg
}

func TestIntegration_MigrateAndRecover(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	migrationDB, err := database.NewPostgresConnection(ctx, cfg)
	require.NoError(t, err)
	m, err := database.NewMigrator(migrationDB.DB, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Positive(t, version)
	require.NoError(t, m.Close())

	db, err := database.NewPostgresConnection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	contractors := database.NewContractorRepository(db)
	sessions := database.NewSessionRepository(db)

	c := &models.Contractor{
		Name:          "Acme",
		Domain:        "acme.test",
		IsActive:      true,
		CheckSchedule: models.ScheduleDaily,
		Tags:          models.StringList{"retail"},
	}
	require.NoError(t, contractors.Create(ctx, c))
	assert.Positive(t, c.ID)

	dup := &models.Contractor{Name: "Acme 2", Domain: "acme.test", CheckSchedule: models.ScheduleDaily}
	require.ErrorIs(t, contractors.Create(ctx, dup), database.ErrDuplicate)

	now := time.Now().UTC()
	sess, err := sessions.Start(ctx, c.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, sess.Status)

	n, err := sessions.FailOrphaned(ctx, "interrupted by restart", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "interrupted by restart", *got.ErrorMessage)

	_, err = contractors.GetByID(ctx, c.ID+1000)
	require.ErrorIs(t, err, database.ErrNotFound)
}
