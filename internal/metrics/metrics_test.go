package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersConcurrent(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementAIFallbacks()
			m.AddCandidates(2)
		}()
	}
	wg.Wait()

	stats := m.GetStats()
	assert.Equal(t, int64(50), stats["ai_fallbacks"])
	assert.Equal(t, int64(100), stats["candidates_seen"])
}

func TestErrorAndRecovery(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())

	m.SetError("scrape failed")
	assert.False(t, m.Healthy())
	assert.Equal(t, "scrape failed", m.GetStats()["last_error"])

	m.SetLastRun()
	assert.True(t, m.Healthy())
}

func TestProcessingTimeAverage(t *testing.T) {
	m := New()
	m.RecordProcessingTime(100 * time.Millisecond)
	m.RecordProcessingTime(300 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(300), stats["last_processing_time_ms"])
	assert.Equal(t, int64(200), stats["average_processing_time_ms"])
}
