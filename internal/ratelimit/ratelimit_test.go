package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseHonoursProviderLimit(t *testing.T) {
	l := New(map[string]int{"gemini": 2}, 0, 24*time.Hour)

	require.NoError(t, l.Use("gemini"))
	require.NoError(t, l.Use("gemini"))
	assert.False(t, l.Allow("gemini"))
	assert.ErrorIs(t, l.Use("gemini"), ErrLimitExceeded)

	// other providers are only bound by the total
	assert.NoError(t, l.Use("openai"))
}

func TestUseHonoursTotalLimit(t *testing.T) {
	l := New(map[string]int{"gemini": 0, "openai": 0}, 2, 24*time.Hour)

	require.NoError(t, l.Use("gemini"))
	require.NoError(t, l.Use("openai"))
	assert.ErrorIs(t, l.Use("gemini"), ErrLimitExceeded)
}

func TestZeroMeansUnlimited(t *testing.T) {
	l := New(map[string]int{"gemini": 0}, 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Use("gemini"))
	}
	assert.Equal(t, 100, l.GetStats()["gemini_used"])
}

func TestWindowReset(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	l := New(map[string]int{"gemini": 1}, 0, time.Hour)
	l.now = func() time.Time { return now }
	l.resetTime = now.Add(time.Hour)

	require.NoError(t, l.Use("gemini"))
	assert.Error(t, l.Use("gemini"))

	now = now.Add(2 * time.Hour)
	assert.NoError(t, l.Use("gemini"))
}
