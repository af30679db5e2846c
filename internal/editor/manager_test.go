package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/scheduler/internal/calendar"
)

func TestManager_OneSessionAtATime(t *testing.T) {
	m := NewManager(testSchema(t), testOptions(calendar.NewMemoryCollection()), 0, 0)

	first, err := m.Open(hourRange())
	require.NoError(t, err)
	assert.Same(t, first, m.Current())
	assert.Same(t, first, m.Get(first.ID))
	assert.Nil(t, m.Get("other"))

	_, err = m.Open(nil)
	assert.ErrorIs(t, err, ErrSessionOpen)

	require.NoError(t, m.Close(first.ID, true))
	assert.Nil(t, m.Current())

	second, err := m.Open(nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestManager_SaveReleasesSession(t *testing.T) {
	m := NewManager(testSchema(t), testOptions(calendar.NewMemoryCollection()), 0, 0)
	sess, err := m.Open(hourRange())
	require.NoError(t, err)

	out, err := sess.Save(context.Background(), false)
	require.NoError(t, err)
	require.True(t, out.Saved)
	assert.Nil(t, m.Current())
}

func TestManager_StaleSessionsAreDropped(t *testing.T) {
	now := t0
	opts := testOptions(nil)
	opts.Now = func() time.Time { return now }
	m := NewManager(testSchema(t), opts, time.Hour, 10*time.Minute)

	_, err := m.Open(nil)
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	m.Cleanup()
	assert.Nil(t, m.Current())

	_, err = m.Open(nil)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = m.Open(nil)
	assert.NoError(t, err, "an expired session does not block a new one")
}
