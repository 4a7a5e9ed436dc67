package services

import (
	"sync"
	"time"
)

// OperationMetrics est le snapshot lecture seule d'une opération.
type OperationMetrics struct {
	Count         uint64  `json:"count"`
	AvgDurationUs float64 `json:"avg_duration_us"`
}

// ServiceMetrics agrège les compteurs du service.
type ServiceMetrics struct {
	ServiceName     string                      `json:"service_name"`
	UptimeSeconds   int64                       `json:"uptime_seconds"`
	TotalOperations uint64                      `json:"total_operations"`
	Operations      map[string]OperationMetrics `json:"operation_metrics"`
}

// PerformanceTracker maintient compteurs et moyennes lissées par opération.
// La moyenne utilise le lissage cumulatif (avg+d)/2 : les dernières mesures
// pèsent plus lourd, suffisant pour l'observabilité du service.
type PerformanceTracker struct {
	mu        sync.Mutex
	startTime time.Time
	counts    map[string]uint64
	avgUs     map[string]float64
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		startTime: time.Now(),
		counts:    make(map[string]uint64),
		avgUs:     make(map[string]float64),
	}
}

func (t *PerformanceTracker) Record(operation string, duration time.Duration) {
	us := float64(duration.Microseconds())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[operation]++
	if prev, ok := t.avgUs[operation]; ok {
		t.avgUs[operation] = (prev + us) / 2.0
	} else {
		t.avgUs[operation] = us
	}
}

// Metrics renvoie une copie : le snapshot ne partage rien avec l'état interne.
func (t *PerformanceTracker) Metrics() ServiceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := make(map[string]OperationMetrics, len(t.counts))
	var total uint64
	for op, count := range t.counts {
		total += count
		ops[op] = OperationMetrics{Count: count, AvgDurationUs: t.avgUs[op]}
	}

	return ServiceMetrics{
		ServiceName:     "follow-service",
		UptimeSeconds:   int64(time.Since(t.startTime).Seconds()),
		TotalOperations: total,
		Operations:      ops,
	}
}
