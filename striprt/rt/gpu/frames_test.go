package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTrackerProtocol(t *testing.T) {
	var ft FrameTracker

	assert.ErrorIs(t, ft.Check(FrameHandle{}), ErrStaleFrame, "nothing submitted yet")
	require.NoError(t, ft.Begin())
	assert.Equal(t, uint64(1), ft.Next())

	h := ft.Issue()
	assert.Equal(t, uint64(1), h.Seq)
	assert.True(t, ft.InFlight())
	require.NoError(t, ft.Check(h))
	assert.ErrorIs(t, ft.Check(FrameHandle{Seq: 2}), ErrStaleFrame)

	require.NoError(t, ft.Retire(h))
	assert.False(t, ft.InFlight())
	assert.ErrorIs(t, ft.Retire(h), ErrStaleFrame, "a handle retires once")
}

func TestFrameTrackerBeginAbandonsFrame(t *testing.T) {
	var ft FrameTracker
	require.NoError(t, ft.Begin())
	old := ft.Issue()

	// A failed submit after Begin leaves nothing in flight.
	require.NoError(t, ft.Begin())
	assert.ErrorIs(t, ft.Check(old), ErrStaleFrame)
	assert.Equal(t, uint64(2), ft.Next())
}

func TestFrameTrackerRelease(t *testing.T) {
	var ft FrameTracker
	require.NoError(t, ft.Begin())
	h := ft.Issue()

	assert.True(t, ft.Release())
	assert.False(t, ft.Release(), "second release is a no-op")
	assert.True(t, ft.Released())
	assert.ErrorIs(t, ft.Begin(), ErrReleased)
	assert.ErrorIs(t, ft.Check(h), ErrReleased)
}
