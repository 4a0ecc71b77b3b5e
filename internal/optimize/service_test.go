package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dispatch/internal/distance"
	"dispatch/pkg/domain"
)

// fakeRepository is an in-memory Repository used to exercise Service
// without a database; pgxmock stays in the repository tests where the
// SQL shape is actually under test.
type fakeRepository struct {
	cases     map[int64]domain.Case
	careTypes map[int64]domain.CareType
	vehicles  map[int64]domain.Vehicle
	personnel []domain.Personnel

	committed []Plan
}

func (f *fakeRepository) LoadCases(_ context.Context, caseIDs []int64) ([]domain.Case, error) {
	var out []domain.Case
	for _, id := range caseIDs {
		if c, ok := f.cases[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepository) LoadCareType(_ context.Context, careTypeID int64) (domain.CareType, error) {
	return f.careTypes[careTypeID], nil
}

func (f *fakeRepository) LoadVehicles(_ context.Context, vehicleIDs []int64) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, id := range vehicleIDs {
		if v, ok := f.vehicles[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepository) LoadActivePersonnel(_ context.Context) ([]domain.Personnel, error) {
	return f.personnel, nil
}

func (f *fakeRepository) CommitPlan(_ context.Context, plan Plan) ([]int64, error) {
	f.committed = append(f.committed, plan)
	ids := make([]int64, len(plan.Routes))
	for i, r := range plan.Routes {
		ids[i] = int64(1000 + i)
		_ = r
	}
	return ids, nil
}

func newTestDistanceService() *distance.Service {
	return distance.NewService([]distance.Provider{distance.NewGeodesicProvider(40)})
}

func TestService_Optimize_CommitsFeasiblePlan(t *testing.T) {
	loc := mustLoc(t, -33.45, -70.66)
	caseLoc := mustLoc(t, -33.44, -70.65)
	window := mustWindow(t, 8*60, 17*60)

	vehicle, err := domain.NewVehicle(1, "VAN-1", 3, loc, domain.VehicleAvailable, nil, true)
	require.NoError(t, err)

	skills := domain.NewSkillSet("wound_care")
	p, err := domain.NewPersonnel(1, "Nurse A", skills, domain.ClockTime(8*60), domain.ClockTime(17*60), loc, true)
	require.NoError(t, err)

	c, err := domain.NewCase(1, 1, 1, "2026-08-03", domain.TimeWindowAM, window, caseLoc, domain.PriorityMedium, 30)
	require.NoError(t, err)

	careType, err := domain.NewCareType(1, "Wound dressing", 30, skills)
	require.NoError(t, err)

	repo := &fakeRepository{
		cases:     map[int64]domain.Case{1: c},
		careTypes: map[int64]domain.CareType{1: careType},
		vehicles:  map[int64]domain.Vehicle{1: vehicle},
		personnel: []domain.Personnel{p},
	}

	svc := NewService(repo, newTestDistanceService())

	outcome, err := svc.Optimize(context.Background(), Request{
		CaseIDs:             []int64{1},
		VehicleIDs:          []int64{1},
		RouteDate:           "2026-08-03",
		MaxOptimizationTime: 2 * time.Second,
	})
	require.NoError(t, err)

	require.True(t, outcome.Success)
	require.Len(t, outcome.RouteIDs, 1)
	require.Empty(t, outcome.UnassignedCaseIDs)
	require.Len(t, repo.committed, 1)
	require.Equal(t, "cp", outcome.StrategyUsed)
}

func TestService_Optimize_NoActiveVehiclesIsInvalidInput(t *testing.T) {
	repo := &fakeRepository{
		cases:     map[int64]domain.Case{},
		careTypes: map[int64]domain.CareType{},
		vehicles:  map[int64]domain.Vehicle{},
	}
	svc := NewService(repo, newTestDistanceService())

	_, err := svc.Optimize(context.Background(), Request{
		CaseIDs:    []int64{1},
		VehicleIDs: []int64{99},
		RouteDate:  "2026-08-03",
	})
	require.Error(t, err)
}
