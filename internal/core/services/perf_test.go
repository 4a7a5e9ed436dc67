package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceTracker_FirstRecord(t *testing.T) {
	tracker := NewPerformanceTracker()

	tracker.Record("follow_user", 100*time.Microsecond)

	m := tracker.Metrics()
	op := m.Operations["follow_user"]
	assert.Equal(t, uint64(1), op.Count)
	assert.InDelta(t, 100.0, op.AvgDurationUs, 1e-9)
}

func TestPerformanceTracker_Smoothing(t *testing.T) {
	tracker := NewPerformanceTracker()

	// avg = (avg + d) / 2 : 100 -> (100+200)/2=150 -> (150+400)/2=275
	tracker.Record("op", 100*time.Microsecond)
	tracker.Record("op", 200*time.Microsecond)
	tracker.Record("op", 400*time.Microsecond)

	op := tracker.Metrics().Operations["op"]
	assert.Equal(t, uint64(3), op.Count)
	assert.InDelta(t, 275.0, op.AvgDurationUs, 1e-9)
}

func TestPerformanceTracker_IndependentOperations(t *testing.T) {
	tracker := NewPerformanceTracker()

	tracker.Record("follow_user", 10*time.Microsecond)
	tracker.Record("unfollow_user", 20*time.Microsecond)
	tracker.Record("follow_user", 30*time.Microsecond)

	m := tracker.Metrics()
	assert.Equal(t, uint64(3), m.TotalOperations)
	assert.Equal(t, uint64(2), m.Operations["follow_user"].Count)
	assert.Equal(t, uint64(1), m.Operations["unfollow_user"].Count)
	assert.Equal(t, "follow-service", m.ServiceName)
}

func TestPerformanceTracker_SnapshotIsolated(t *testing.T) {
	tracker := NewPerformanceTracker()
	tracker.Record("op", 10*time.Microsecond)

	snapshot := tracker.Metrics()
	snapshot.Operations["op"] = OperationMetrics{Count: 999}

	// Modifier le snapshot ne touche pas l'état interne
	assert.Equal(t, uint64(1), tracker.Metrics().Operations["op"].Count)
}

func TestPerformanceTracker_ConcurrentRecords(t *testing.T) {
	tracker := NewPerformanceTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tracker.Record("op", time.Microsecond)
			}
		}()
	}
	wg.Wait()

	m := tracker.Metrics()
	require.Equal(t, uint64(1000), m.Operations["op"].Count)
	assert.Equal(t, uint64(1000), m.TotalOperations)
}
