package optimize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
)

type pgxMockAdapter struct {
	mock pgxmock.PgxPoolIface
}

func (a *pgxMockAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return a.mock.Exec(ctx, sql, args...)
}

func (a *pgxMockAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return a.mock.Query(ctx, sql, args...)
}

func (a *pgxMockAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return a.mock.QueryRow(ctx, sql, args...)
}

func (a *pgxMockAdapter) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return a.mock.BeginTx(ctx, txOptions)
}

func (a *pgxMockAdapter) Close() {
	a.mock.Close()
}

func (a *pgxMockAdapter) Ping(ctx context.Context) error {
	return a.mock.Ping(ctx)
}

func setupRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, NewPostgresRepository(&pgxMockAdapter{mock: mock})
}

func TestPostgresRepository_LoadCases(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, patient_id, care_type_id").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "care_type_id", "scheduled_date", "time_window_type",
			"window_start_minutes", "window_end_minutes", "latitude", "longitude",
			"priority", "status", "estimated_duration_minutes",
		}).
			AddRow(int64(1), int64(10), int64(30), "2026-08-01", "AM", 480, 720, -33.44, -70.66, "medium", "pending", 30).
			AddRow(int64(2), int64(11), int64(30), "2026-08-01", "PM", 840, 1020, -33.02, -71.55, "urgent", "pending", 60))

	cases, err := repo.LoadCases(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, domain.PriorityUrgent, cases[1].Priority)
	assert.Equal(t, domain.ClockTime(480), cases[0].Window.Start)
}

func TestPostgresRepository_LoadCasesEmptyInput(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	cases, err := repo.LoadCases(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cases)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadCareType(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT name, estimated_duration_minutes").
		WithArgs(int64(30)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "estimated_duration_minutes"}).
			AddRow("wound care", 45))
	mock.ExpectQuery("SELECT s.name FROM skills").
		WithArgs(int64(30)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("nurse").
			AddRow("wound_care"))

	ct, err := repo.LoadCareType(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "wound care", ct.Name)
	assert.True(t, domain.NewSkillSet("nurse", "wound_care").IsSubsetOf(ct.RequiredSkills))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LoadCareTypeNotFound(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT name, estimated_duration_minutes").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LoadCareType(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestPostgresRepository_CommitPlan(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	plan := Plan{
		RouteDate: "2026-08-01",
		Routes: []PlannedRoute{
			{
				VehicleID:            5,
				AssignedPersonnelIDs: []int64{7},
				TotalDistanceKM:      12.5,
				TotalDurationMinutes: 95,
				Visits: []PlannedVisit{
					{CaseID: 1, SequenceNumber: 0, EstimatedArrival: arrival, EstimatedDeparture: arrival.Add(30 * time.Minute)},
				},
			},
			// zero-visit routes are skipped, not persisted
			{VehicleID: 6},
		},
		Metrics: OptimizationMetrics{StrategyUsed: "cp", Success: true},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO routes").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec("INSERT INTO route_personnel").
		WithArgs(int64(11), int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO visits").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE cases SET status").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO optimization_metrics").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	routeIDs, err := repo.CommitPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, routeIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CommitPlanRollsBackOnError(t *testing.T) {
	mock, repo := setupRepo(t)
	defer mock.Close()

	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	plan := Plan{
		RouteDate: "2026-08-01",
		Routes: []PlannedRoute{
			{
				VehicleID: 5,
				Visits: []PlannedVisit{
					{CaseID: 1, SequenceNumber: 0, EstimatedArrival: arrival, EstimatedDeparture: arrival.Add(30 * time.Minute)},
				},
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO routes").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err := repo.CommitPlan(context.Background(), plan)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
