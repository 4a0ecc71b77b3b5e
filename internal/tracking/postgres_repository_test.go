package tracking

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

func setupLocationRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresLocationRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, NewPostgresLocationRepository(&pgxMockAdapter{mock: mock})
}

func setupRouteRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRouteRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, NewPostgresRouteRepository(&pgxMockAdapter{mock: mock})
}

func TestPostgresLocationRepository_VehicleExists(t *testing.T) {
	mock, repo := setupLocationRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.VehicleExists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLocationRepository_InsertLocation(t *testing.T) {
	mock, repo := setupLocationRepo(t)
	defer mock.Close()

	speed := 42.5
	loc, err := domain.NewLocation(-33.45, -70.66)
	require.NoError(t, err)
	sample, err := domain.NewLocationLog(0, 7, loc, &speed, nil, nil, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO location_logs").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(99)))

	id, err := repo.InsertLocation(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLocationRepository_LatestLocationNoRows(t *testing.T) {
	mock, repo := setupLocationRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, vehicle_id").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	latest, err := repo.LatestLocation(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, latest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLocationRepository_LatestLocation(t *testing.T) {
	mock, repo := setupLocationRepo(t)
	defer mock.Close()

	recorded := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	speed := 35.0
	mock.ExpectQuery("SELECT id, vehicle_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vehicle_id", "latitude", "longitude", "speed_kmh", "heading_degrees", "accuracy_meters", "recorded_at",
		}).AddRow(int64(3), int64(7), -33.45, -70.66, &speed, (*float64)(nil), (*float64)(nil), recorded))

	latest, err := repo.LatestLocation(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(7), latest.VehicleID)
	assert.Equal(t, recorded, latest.Timestamp)
	require.NotNil(t, latest.SpeedKMH)
	assert.InDelta(t, 35.0, *latest.SpeedKMH, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLocationRepository_DeleteOlderThan(t *testing.T) {
	mock, repo := setupLocationRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM location_logs").
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	removed, err := repo.DeleteOlderThan(context.Background(), time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRouteRepository_LoadRoute(t *testing.T) {
	mock, repo := setupRouteRepo(t)
	defer mock.Close()

	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	departure := arrival.Add(30 * time.Minute)

	mock.ExpectQuery("SELECT vehicle_id, route_date").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"vehicle_id", "route_date", "status"}).
			AddRow(int64(5), "2026-08-01", "active"))
	mock.ExpectQuery("SELECT id, route_id, case_id").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "route_id", "case_id", "sequence_number", "estimated_arrival", "estimated_departure",
			"actual_arrival", "actual_departure", "status", "notes",
		}).
			AddRow(int64(10), int64(1), int64(100), 0, arrival, departure, (*time.Time)(nil), (*time.Time)(nil), "pending", "").
			AddRow(int64(11), int64(1), int64(101), 1, arrival.Add(time.Hour), departure.Add(time.Hour), (*time.Time)(nil), (*time.Time)(nil), "pending", ""))

	route, err := repo.LoadRoute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteActive, route.Status)
	require.Len(t, route.Visits, 2)
	assert.Equal(t, 0, route.Visits[0].SequenceNumber)
	assert.Equal(t, int64(101), route.Visits[1].CaseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRouteRepository_LoadRouteNotFound(t *testing.T) {
	mock, repo := setupRouteRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT vehicle_id, route_date").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LoadRoute(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRouteRepository_SaveVisit(t *testing.T) {
	mock, repo := setupRouteRepo(t)
	defer mock.Close()

	arrival := time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC)
	visit := domain.Visit{
		ID:            10,
		Status:        domain.VisitArrived,
		ActualArrival: &arrival,
		Notes:         "gate code 1234",
	}

	mock.ExpectExec("UPDATE visits").
		WithArgs("arrived", &arrival, (*time.Time)(nil), "gate code 1234", int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SaveVisit(context.Background(), visit))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRouteRepository_SaveRouteStatusError(t *testing.T) {
	mock, repo := setupRouteRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE routes").
		WillReturnError(errors.New("connection reset"))

	err := repo.SaveRouteStatus(context.Background(), 1, domain.RouteCompleted)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRouteRepository_LoadCase(t *testing.T) {
	mock, repo := setupRouteRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT patient_id, care_type_id").
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{
			"patient_id", "care_type_id", "scheduled_date", "time_window_type",
			"window_start_minutes", "window_end_minutes", "latitude", "longitude",
			"priority", "status", "estimated_duration_minutes",
		}).AddRow(int64(20), int64(30), "2026-08-01", "AM", 480, 720, -33.45, -70.66, "high", "assigned", 45))

	c, err := repo.LoadCase(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), c.ID)
	assert.Equal(t, domain.PriorityHigh, c.Priority)
	assert.Equal(t, domain.ClockTime(480), c.Window.Start)
	assert.Equal(t, 45, c.EstimatedDurationMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}
