package widekv

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsTickers(t *testing.T) {
	s := NewStatistics()
	s.RecordTick(TickerEntitiesWritten, 2)
	s.RecordTick(TickerEntitiesWritten, 3)
	s.RecordTick(TickerEnumMax, 1)

	assert.Equal(t, uint64(5), s.GetTickerCount(TickerEntitiesWritten))
	assert.Zero(t, s.GetTickerCount(TickerEnumMax))
	assert.Contains(t, s.String(), "widekv.entity.written COUNT : 5")

	s.Reset()
	assert.Zero(t, s.GetTickerCount(TickerEntitiesWritten))
}

func TestStatisticsConcurrentTicks(t *testing.T) {
	s := NewStatistics()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				s.RecordTick(TickerColumnsWritten, 1)
				s.RecordInHistogram(HistogramColumnsPerEntity, 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8000), s.GetTickerCount(TickerColumnsWritten))
	assert.Equal(t, uint64(8000), s.GetHistogramData(HistogramColumnsPerEntity).Count)
}

func TestStatisticsHistogram(t *testing.T) {
	s := NewStatistics()
	assert.Zero(t, s.GetHistogramData(HistogramEntitySize).Count)

	for v := uint64(1); v <= 100; v++ {
		s.RecordInHistogram(HistogramEntitySize, v)
	}
	d := s.GetHistogramData(HistogramEntitySize)
	assert.Equal(t, uint64(100), d.Count)
	assert.Equal(t, uint64(5050), d.Sum)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 100.0, d.Max)
	assert.InDelta(t, 50.5, d.Average, 1e-9)
	assert.InDelta(t, 28.87, d.StdDev, 0.01)

	assert.GreaterOrEqual(t, d.Median, 32.0)
	assert.LessOrEqual(t, d.Median, 64.0)
	assert.LessOrEqual(t, d.P99, 100.0)
	assert.GreaterOrEqual(t, d.P99, d.P95)

	last := d.Buckets[len(d.Buckets)-1]
	assert.Equal(t, uint64(100), last.Count)
	assert.True(t, strings.Contains(s.String(), "widekv.entity.size P50"))
}

func TestCollectorExportsStatistics(t *testing.T) {
	s := NewStatistics()
	s.RecordTick(TickerEntitiesRead, 7)
	s.RecordInHistogram(HistogramGetMicros, 10)
	s.RecordInHistogram(HistogramGetMicros, 1000)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(s, "widekv", prometheus.Labels{"db": "test"})))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	var getCount uint64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				byName[mf.GetName()] = c.GetValue()
			}
			if h := m.GetHistogram(); h != nil && mf.GetName() == "widekv_db_get_micros" {
				getCount = h.GetSampleCount()
			}
			require.Equal(t, "test", m.GetLabel()[0].GetValue())
		}
	}
	assert.Equal(t, 7.0, byName["widekv_entity_read_total"])
	assert.Equal(t, uint64(2), getCount)
	assert.Len(t, families, int(TickerEnumMax)+int(HistogramEnumMax))
}
