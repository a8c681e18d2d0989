// statistics.go implements engine statistics: monotonically increasing
// tickers and value histograms.
//
// Reference: RocksDB include/rocksdb/statistics.h, monitoring/statistics.cc
package widekv

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"sync/atomic"
)

// TickerType identifies a counter.
type TickerType int

const (
	// TickerEntitiesWritten counts entities written through PutEntity.
	TickerEntitiesWritten TickerType = iota
	// TickerEntitiesRead counts entities returned by GetEntity.
	TickerEntitiesRead
	// TickerEntityNotFound counts GetEntity lookups that found nothing.
	TickerEntityNotFound
	// TickerColumnsWritten counts columns written across all entities.
	TickerColumnsWritten
	// TickerColumnsRead counts columns returned by GetEntity.
	TickerColumnsRead
	// TickerKeysWritten counts plain values written through Put.
	TickerKeysWritten
	// TickerKeysRead counts plain Get lookups that found a value.
	TickerKeysRead
	// TickerKeysDeleted counts Delete calls.
	TickerKeysDeleted
	// TickerBytesWritten counts user key and value bytes written.
	TickerBytesWritten
	// TickerBytesRead counts user value bytes returned by reads.
	TickerBytesRead
	// TickerBatchWrites counts batches applied through Write.
	TickerBatchWrites
	// TickerBatchEntityPuts counts entity records staged into batches.
	TickerBatchEntityPuts
	// TickerWALBytes counts bytes appended to the write-ahead log.
	TickerWALBytes
	// TickerWALSyncs counts log syncs.
	TickerWALSyncs
	// TickerWritesWithoutWAL counts writes that skipped the log.
	TickerWritesWithoutWAL
	// TickerIterColumns counts column sets read from iterators.
	TickerIterColumns
	// TickerIterNext counts iterator advances.
	TickerIterNext
	// TickerEnumMax must be last.
	TickerEnumMax
)

var tickerNames = [...]string{
	TickerEntitiesWritten:  "widekv.entity.written",
	TickerEntitiesRead:     "widekv.entity.read",
	TickerEntityNotFound:   "widekv.entity.notfound",
	TickerColumnsWritten:   "widekv.columns.written",
	TickerColumnsRead:      "widekv.columns.read",
	TickerKeysWritten:      "widekv.number.keys.written",
	TickerKeysRead:         "widekv.number.keys.read",
	TickerKeysDeleted:      "widekv.number.keys.deleted",
	TickerBytesWritten:     "widekv.bytes.written",
	TickerBytesRead:        "widekv.bytes.read",
	TickerBatchWrites:      "widekv.write.batch",
	TickerBatchEntityPuts:  "widekv.write.batch.entity.puts",
	TickerWALBytes:         "widekv.wal.bytes",
	TickerWALSyncs:         "widekv.wal.synced",
	TickerWritesWithoutWAL: "widekv.write.wal.disabled",
	TickerIterColumns:      "widekv.iter.columns",
	TickerIterNext:         "widekv.number.db.next",
}

func (t TickerType) String() string {
	if t >= 0 && int(t) < len(tickerNames) {
		return tickerNames[t]
	}
	return "unknown"
}

// HistogramType identifies a value distribution.
type HistogramType int

const (
	// HistogramColumnsPerEntity is the column count of written entities.
	HistogramColumnsPerEntity HistogramType = iota
	// HistogramEntitySize is the encoded size of written entities.
	HistogramEntitySize
	// HistogramWriteMicros is the latency of writes.
	HistogramWriteMicros
	// HistogramGetMicros is the latency of point lookups.
	HistogramGetMicros
	// HistogramWALSyncMicros is the latency of log syncs.
	HistogramWALSyncMicros
	// HistogramEnumMax must be last.
	HistogramEnumMax
)

var histogramNames = [...]string{
	HistogramColumnsPerEntity: "widekv.entity.columns",
	HistogramEntitySize:       "widekv.entity.size",
	HistogramWriteMicros:      "widekv.db.write.micros",
	HistogramGetMicros:        "widekv.db.get.micros",
	HistogramWALSyncMicros:    "widekv.wal.file.sync.micros",
}

func (h HistogramType) String() string {
	if h >= 0 && int(h) < len(histogramNames) {
		return histogramNames[h]
	}
	return "unknown"
}

// histogramBuckets is the number of power-of-two buckets. The last one is
// unbounded.
const histogramBuckets = 40

// Bucket is one cumulative histogram bucket: Count values were <= UpperBound.
type Bucket struct {
	UpperBound float64
	Count      uint64
}

// HistogramData is a snapshot of a histogram.
type HistogramData struct {
	Count   uint64
	Sum     uint64
	Min     float64
	Max     float64
	Average float64
	Median  float64
	P95     float64
	P99     float64
	StdDev  float64

	// Buckets are cumulative and end with an unbounded bucket.
	Buckets []Bucket
}

// Statistics collects tickers and histograms. Implementations are safe for
// concurrent use.
type Statistics interface {
	// GetTickerCount returns the current value of a ticker.
	GetTickerCount(t TickerType) uint64

	// RecordTick adds count to a ticker.
	RecordTick(t TickerType, count uint64)

	// RecordInHistogram adds one value to a histogram.
	RecordInHistogram(h HistogramType, value uint64)

	// GetHistogramData returns a snapshot of a histogram.
	GetHistogramData(h HistogramType) HistogramData

	// Reset zeroes every ticker and histogram.
	Reset()

	String() string
}

type statisticsImpl struct {
	tickers    [TickerEnumMax]atomic.Uint64
	histograms [HistogramEnumMax]histogramImpl
}

type histogramImpl struct {
	min     atomic.Uint64
	max     atomic.Uint64
	sum     atomic.Uint64
	sumSq   atomic.Uint64
	count   atomic.Uint64
	buckets [histogramBuckets]atomic.Uint64
}

// NewStatistics returns an empty Statistics.
func NewStatistics() Statistics {
	s := &statisticsImpl{}
	s.Reset()
	return s
}

func (s *statisticsImpl) GetTickerCount(t TickerType) uint64 {
	if t < 0 || t >= TickerEnumMax {
		return 0
	}
	return s.tickers[t].Load()
}

func (s *statisticsImpl) RecordTick(t TickerType, count uint64) {
	if t < 0 || t >= TickerEnumMax {
		return
	}
	s.tickers[t].Add(count)
}

func (s *statisticsImpl) RecordInHistogram(h HistogramType, value uint64) {
	if h < 0 || h >= HistogramEnumMax {
		return
	}
	s.histograms[h].add(value)
}

func (s *statisticsImpl) GetHistogramData(h HistogramType) HistogramData {
	if h < 0 || h >= HistogramEnumMax {
		return HistogramData{}
	}
	return s.histograms[h].data()
}

func (s *statisticsImpl) Reset() {
	for i := range s.tickers {
		s.tickers[i].Store(0)
	}
	for i := range s.histograms {
		s.histograms[i].reset()
	}
}

func (s *statisticsImpl) String() string {
	var b strings.Builder
	b.WriteString("TICKERS:\n")
	for t := range TickerEnumMax {
		if n := s.GetTickerCount(t); n > 0 {
			fmt.Fprintf(&b, "  %s COUNT : %d\n", t, n)
		}
	}
	b.WriteString("HISTOGRAMS:\n")
	for h := range HistogramEnumMax {
		d := s.GetHistogramData(h)
		if d.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s P50 : %.2f P95 : %.2f P99 : %.2f MAX : %.0f COUNT : %d SUM : %d\n",
			h, d.Median, d.P95, d.P99, d.Max, d.Count, d.Sum)
	}
	return b.String()
}

func bucketIndex(v uint64) int {
	if v == 0 {
		return 0
	}
	return min(bits.Len64(v-1), histogramBuckets-1)
}

func bucketUpperBound(i int) float64 {
	if i >= histogramBuckets-1 {
		return math.Inf(1)
	}
	return float64(uint64(1) << i)
}

func (h *histogramImpl) add(v uint64) {
	h.count.Add(1)
	h.sum.Add(v)
	h.sumSq.Add(v * v)
	h.buckets[bucketIndex(v)].Add(1)
	for {
		old := h.min.Load()
		if v >= old || h.min.CompareAndSwap(old, v) {
			break
		}
	}
	for {
		old := h.max.Load()
		if v <= old || h.max.CompareAndSwap(old, v) {
			break
		}
	}
}

func (h *histogramImpl) reset() {
	h.min.Store(math.MaxUint64)
	h.max.Store(0)
	h.sum.Store(0)
	h.sumSq.Store(0)
	h.count.Store(0)
	for i := range h.buckets {
		h.buckets[i].Store(0)
	}
}

func (h *histogramImpl) data() HistogramData {
	count := h.count.Load()
	if count == 0 {
		return HistogramData{}
	}
	d := HistogramData{
		Count: count,
		Sum:   h.sum.Load(),
		Min:   float64(h.min.Load()),
		Max:   float64(h.max.Load()),
	}
	d.Average = float64(d.Sum) / float64(count)
	if v := float64(h.sumSq.Load())/float64(count) - d.Average*d.Average; v > 0 {
		d.StdDev = math.Sqrt(v)
	}

	var cum uint64
	d.Buckets = make([]Bucket, histogramBuckets)
	for i := range h.buckets {
		cum += h.buckets[i].Load()
		d.Buckets[i] = Bucket{UpperBound: bucketUpperBound(i), Count: cum}
	}
	d.Median = d.percentile(50)
	d.P95 = d.percentile(95)
	d.P99 = d.percentile(99)
	return d
}

// percentile interpolates within the bucket holding the p-th percentile and
// clamps the result to [Min, Max].
func (d *HistogramData) percentile(p float64) float64 {
	total := d.Buckets[len(d.Buckets)-1].Count
	if total == 0 {
		return 0
	}
	threshold := float64(total) * p / 100
	var prevCount uint64
	lower := 0.0
	for _, b := range d.Buckets {
		if float64(b.Count) >= threshold {
			upper := b.UpperBound
			if math.IsInf(upper, 1) {
				upper = d.Max
			}
			inBucket := float64(b.Count - prevCount)
			r := lower
			if inBucket > 0 {
				r = lower + (upper-lower)*(threshold-float64(prevCount))/inBucket
			}
			return math.Max(d.Min, math.Min(r, d.Max))
		}
		prevCount = b.Count
		lower = b.UpperBound
	}
	return d.Max
}
