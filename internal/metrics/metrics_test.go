package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementCounter(CounterReservationsGranted)
	m.IncrementCounter(CounterReservationsGranted)
	m.IncrementCounterBy(CounterOutboxForwarded, 5)

	counters := m.GetCounters()
	require.Equal(t, int64(2), counters[CounterReservationsGranted])
	require.Equal(t, int64(5), counters[CounterOutboxForwarded])
}

func TestCountersConcurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementCounter(CounterFactsProcessed)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(5000), m.GetCounters()[CounterFactsProcessed])
}

func TestGauges(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("goroutines", 12)
	m.SetGauge("goroutines", 8)

	require.Equal(t, int64(8), m.GetGauges()["goroutines"])
}

func TestTimers(t *testing.T) {
	m := NewMetrics()

	m.RecordTimer("reserve", 10)
	m.RecordTimer("reserve", 30)
	m.RecordTimer("reserve", 20)

	timer := m.GetTimers()["reserve"]
	require.Equal(t, int64(3), timer.Count)
	require.Equal(t, int64(60), timer.TotalTimeMs)
	require.Equal(t, float64(20), timer.AverageTimeMs)
	require.Equal(t, int64(10), timer.MinTimeMs)
	require.Equal(t, int64(30), timer.MaxTimeMs)
}

func TestErrorRates(t *testing.T) {
	m := NewMetrics()

	m.RecordSuccess("reserve")
	m.RecordSuccess("reserve")
	m.RecordSuccess("reserve")
	m.RecordError("reserve")

	rate := m.GetErrorRates()["reserve"]
	require.Equal(t, int64(4), rate.Total)
	require.Equal(t, int64(1), rate.Errors)
	require.Equal(t, float64(25), rate.ErrorRate)
}

func TestHealthChecks(t *testing.T) {
	m := NewMetrics()

	m.SetHealth("database", true)
	m.SetHealth("redis", false)

	checks := m.GetHealthChecks()
	require.True(t, checks["database"])
	require.False(t, checks["redis"])

	m.SetHealth("redis", true)
	require.True(t, m.GetHealthChecks()["redis"])
}

func TestGetAllMetrics(t *testing.T) {
	m := NewMetrics()
	m.IncrementCounter(CounterReservationsGranted)

	all := m.GetAllMetrics()
	require.Contains(t, all, "counters")
	require.Contains(t, all, "gauges")
	require.Contains(t, all, "timers")
	require.Contains(t, all, "error_rates")
	require.Contains(t, all, "health")
	require.Contains(t, all, "uptime_seconds")
}
