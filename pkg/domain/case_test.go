package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWindow(t *testing.T) TimeWindow {
	t.Helper()
	w, err := NewTimeWindow(NewClockTime(8, 0), NewClockTime(12, 0))
	require.NoError(t, err)
	return w
}

func TestNewCase(t *testing.T) {
	loc, _ := NewLocation(-33.45, -70.65)
	c, err := NewCase(1, 10, 20, "2026-08-01", TimeWindowAM, newTestWindow(t), loc, PriorityHigh, 30)
	require.NoError(t, err)
	assert.Equal(t, CasePending, c.Status)
}

func TestNewCase_RejectsBadPriority(t *testing.T) {
	loc, _ := NewLocation(-33.45, -70.65)
	_, err := NewCase(1, 10, 20, "2026-08-01", TimeWindowAM, newTestWindow(t), loc, CasePriority("critical"), 30)
	require.Error(t, err)
}

func TestCase_Transition(t *testing.T) {
	loc, _ := NewLocation(-33.45, -70.65)
	c, err := NewCase(1, 10, 20, "2026-08-01", TimeWindowAM, newTestWindow(t), loc, PriorityHigh, 30)
	require.NoError(t, err)

	c, err = c.Transition(CaseAssigned)
	require.NoError(t, err)
	assert.Equal(t, CaseAssigned, c.Status)

	c, err = c.Transition(CaseInProgress)
	require.NoError(t, err)

	c, err = c.Transition(CaseCompleted)
	require.NoError(t, err)
	assert.Equal(t, CaseCompleted, c.Status)

	_, err = c.Transition(CaseAssigned)
	require.Error(t, err)
}
