package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVisit(t *testing.T) {
	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	departure := arrival.Add(30 * time.Minute)

	v, err := NewVisit(1, 100, 200, 0, arrival, departure)
	require.NoError(t, err)
	assert.Equal(t, VisitPending, v.Status)
}

func TestNewVisit_RejectsBadDeparture(t *testing.T) {
	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	_, err := NewVisit(1, 100, 200, 0, arrival, arrival)
	require.Error(t, err)
}

func TestVisit_Transition(t *testing.T) {
	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	departure := arrival.Add(30 * time.Minute)
	v, err := NewVisit(1, 100, 200, 0, arrival, departure)
	require.NoError(t, err)

	v, err = v.Transition(VisitEnRoute, arrival.Add(-10*time.Minute))
	require.NoError(t, err)

	v, err = v.Transition(VisitArrived, arrival)
	require.NoError(t, err)
	require.NotNil(t, v.ActualArrival)
	assert.Equal(t, arrival, *v.ActualArrival)

	v, err = v.Transition(VisitInProgress, arrival)
	require.NoError(t, err)

	v, err = v.Transition(VisitCompleted, departure)
	require.NoError(t, err)
	require.NotNil(t, v.ActualDeparture)
	assert.True(t, v.Status.IsTerminal())

	_, err = v.Transition(VisitEnRoute, departure)
	require.Error(t, err)
}

func TestVisit_TransitionToCancelledFromPending(t *testing.T) {
	arrival := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	departure := arrival.Add(30 * time.Minute)
	v, err := NewVisit(1, 100, 200, 0, arrival, departure)
	require.NoError(t, err)

	v, err = v.Transition(VisitCancelled, arrival)
	require.NoError(t, err)
	assert.True(t, v.Status.IsTerminal())
}
