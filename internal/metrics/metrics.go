package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsTotal            int64
	CandidatesSeen       int64
	AlreadySentSkipped   int64
	AISelections         int64
	AIFallbacks          int64
	AnalysisFailures     int64
	ArticlesPublished    int64
	TelegramMessagesSent int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) IncrementRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsTotal++
}

func (m *Metrics) AddCandidates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesSeen += int64(n)
}

func (m *Metrics) IncrementAlreadySent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlreadySentSkipped++
}

func (m *Metrics) IncrementAISelections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AISelections++
}

func (m *Metrics) IncrementAIFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AIFallbacks++
}

func (m *Metrics) IncrementAnalysisFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysisFailures++
}

func (m *Metrics) IncrementArticlesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPublished++
}

func (m *Metrics) IncrementTelegramMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelegramMessagesSent++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_total":                 m.RunsTotal,
		"candidates_seen":            m.CandidatesSeen,
		"already_sent_skipped":       m.AlreadySentSkipped,
		"ai_selections":              m.AISelections,
		"ai_fallbacks":               m.AIFallbacks,
		"analysis_failures":          m.AnalysisFailures,
		"articles_published":         m.ArticlesPublished,
		"telegram_messages_sent":     m.TelegramMessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
