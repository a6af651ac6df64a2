package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/huginn/internal/database"
)

func TestDashboardRepository_Stats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewDashboardRepository(db)

	mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM contractors\) AS total_contractors`).
		WillReturnRows(sqlmock.NewRows([]string{
			"total_contractors", "active_contractors", "active_forbidden_words",
			"scanned_pages", "pages_with_violations", "total_violations", "running_sessions",
		}).AddRow(3, 2, 10, 120, 7, 15, 1))
	mock.ExpectQuery("SELECT severity, COUNT\\(\\*\\) AS count FROM violations GROUP BY severity").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).
			AddRow("high", 12).
			AddRow("low", 3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scan_sessions s`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalContractors)
	assert.Equal(t, 1, stats.RunningSessions)
	assert.Equal(t, map[string]int{"low": 3, "medium": 0, "high": 12, "critical": 0}, stats.ViolationsBySeverity)
	assert.NotNil(t, stats.RecentSessions)
	assert.Empty(t, stats.RecentSessions)

	expectationsMet(t, mock)
}
