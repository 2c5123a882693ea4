// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"
)

// Counter keys published by the poller and connector layers.
const (
	MetricPollsetWork      = "pollset.work"
	MetricPollsetKicks     = "pollset.kicks"
	MetricAlarmFired       = "alarm.fired"
	MetricAlarmCancelled   = "alarm.cancelled"
	MetricConnectStarted   = "connect.started"
	MetricConnectOK        = "connect.ok"
	MetricConnectFailed    = "connect.failed"
	MetricConnectDeadline  = "connect.deadline"
	MetricConnectRetried   = "connect.retried"
	MetricAttemptsReleased = "connect.attempts_released"
)

// MetricsRegistry holds monotonically increasing counters.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]int64
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]int64),
	}
}

// Inc increments a counter key by one.
func (mr *MetricsRegistry) Inc(key string) {
	mr.Add(key, 1)
}

// Add increments a counter key by n.
func (mr *MetricsRegistry) Add(key string, n int64) {
	mr.mu.Lock()
	mr.counters[key] += n
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Get returns the current value of a counter key.
func (mr *MetricsRegistry) Get(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.counters[key]
}

// GetSnapshot returns the latest counters.
func (mr *MetricsRegistry) GetSnapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.counters))
	for k, v := range mr.counters {
		out[k] = v
	}
	return out
}
