package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTime(t *testing.T) {
	c := NewClockTime(14, 30)
	assert.Equal(t, 14, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "14:30", c.String())
	assert.Equal(t, NewClockTime(15, 0), c.Add(30))
}

func TestNewTimeWindow(t *testing.T) {
	w, err := NewTimeWindow(NewClockTime(8, 0), NewClockTime(12, 0))
	require.NoError(t, err)
	assert.True(t, w.Contains(NewClockTime(9, 0)))
	assert.False(t, w.Contains(NewClockTime(12, 0)))
}

func TestNewTimeWindow_RejectsBadOrder(t *testing.T) {
	_, err := NewTimeWindow(NewClockTime(12, 0), NewClockTime(8, 0))
	require.Error(t, err)

	_, err = NewTimeWindow(NewClockTime(8, 0), NewClockTime(8, 0))
	require.Error(t, err)
}
