package memorystore

import (
	"sort"
	"sync"

	"quantfeed/internal/metrics"
	"quantfeed/pkg/market"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCapacity is the per-symbol ring size used when none is configured.
const DefaultCapacity = 10_000

// TickBuffer keeps the most recent ticks per symbol in fixed-size rings.
// Each symbol has one writer (its stream connector) and any number of readers.
type TickBuffer struct {
	capacity int

	globalMu sync.RWMutex
	data     map[string]*symbolRing
}

type symbolRing struct {
	mu       sync.RWMutex
	ticks    []market.Tick // backing array, len == capacity
	head     int           // index of the oldest retained tick
	size     int           // retained ticks
	appended uint64        // ticks ever appended; the flush watermark is measured against this
	evicted  uint64

	evictions prometheus.Counter
}

func NewTickBuffer(capacity int) *TickBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TickBuffer{
		capacity: capacity,
		data:     make(map[string]*symbolRing),
	}
}

// Capacity returns the per-symbol ring size.
func (b *TickBuffer) Capacity() int {
	return b.capacity
}

// Append stores t in its symbol's ring, creating the ring on first use.
// When the ring is full the oldest tick is overwritten and counted as evicted.
func (b *TickBuffer) Append(t market.Tick) {
	ring := b.ring(t.Symbol)

	ring.mu.Lock()
	defer ring.mu.Unlock()

	if ring.size < b.capacity {
		ring.ticks[(ring.head+ring.size)%b.capacity] = t
		ring.size++
	} else {
		ring.ticks[ring.head] = t
		ring.head = (ring.head + 1) % b.capacity
		ring.evicted++
		ring.evictions.Inc()
	}
	ring.appended++
}

// Recent returns up to n most recent ticks for symbol, oldest first.
func (b *TickBuffer) Recent(symbol string, n int) []market.Tick {
	ring := b.lookup(symbol)
	if ring == nil || n <= 0 {
		return nil
	}

	ring.mu.RLock()
	defer ring.mu.RUnlock()

	return ring.tail(n, b.capacity)
}

// Last returns the newest tick for symbol, if any.
func (b *TickBuffer) Last(symbol string) (market.Tick, bool) {
	ring := b.lookup(symbol)
	if ring == nil {
		return market.Tick{}, false
	}

	ring.mu.RLock()
	defer ring.mu.RUnlock()

	if ring.size == 0 {
		return market.Tick{}, false
	}
	return ring.ticks[(ring.head+ring.size-1)%b.capacity], true
}

// Size returns the number of ticks currently retained for symbol.
func (b *TickBuffer) Size(symbol string) int {
	ring := b.lookup(symbol)
	if ring == nil {
		return 0
	}

	ring.mu.RLock()
	defer ring.mu.RUnlock()
	return ring.size
}

// Evicted returns how many ticks of symbol were overwritten by newer ones.
func (b *TickBuffer) Evicted(symbol string) uint64 {
	ring := b.lookup(symbol)
	if ring == nil {
		return 0
	}

	ring.mu.RLock()
	defer ring.mu.RUnlock()
	return ring.evicted
}

// Symbols returns every symbol with a ring, sorted.
func (b *TickBuffer) Symbols() []string {
	b.globalMu.RLock()
	defer b.globalMu.RUnlock()

	out := make([]string, 0, len(b.data))
	for sym := range b.data {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Since returns the retained ticks appended after the first watermark ticks
// of symbol's sequence, the sequence position to use as the next watermark,
// and how many ticks past the watermark were evicted before this call and can
// no longer be returned.
func (b *TickBuffer) Since(symbol string, watermark uint64) (ticks []market.Tick, next uint64, lost uint64) {
	ring := b.lookup(symbol)
	if ring == nil {
		return nil, watermark, 0
	}

	ring.mu.RLock()
	defer ring.mu.RUnlock()

	if ring.appended <= watermark {
		return nil, watermark, 0
	}

	pending := ring.appended - watermark
	if pending > uint64(ring.size) {
		lost = pending - uint64(ring.size)
		pending = uint64(ring.size)
	}
	return ring.tail(int(pending), b.capacity), ring.appended, lost
}

// CountAll returns the total number of ticks retained across all symbols.
func (b *TickBuffer) CountAll() int {
	b.globalMu.RLock()
	defer b.globalMu.RUnlock()

	total := 0
	for _, ring := range b.data {
		ring.mu.RLock()
		total += ring.size
		ring.mu.RUnlock()
	}
	return total
}

// tail copies the n newest ticks in arrival order. Caller holds ring.mu.
func (r *symbolRing) tail(n, capacity int) []market.Tick {
	if n > r.size {
		n = r.size
	}
	if n == 0 {
		return nil
	}

	out := make([]market.Tick, n)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.ticks[(start+i)%capacity]
	}
	return out
}

func (b *TickBuffer) lookup(symbol string) *symbolRing {
	b.globalMu.RLock()
	defer b.globalMu.RUnlock()
	return b.data[symbol]
}

func (b *TickBuffer) ring(symbol string) *symbolRing {
	// Fast path: ring already exists
	b.globalMu.RLock()
	ring, ok := b.data[symbol]
	b.globalMu.RUnlock()
	if ok {
		return ring
	}

	b.globalMu.Lock()
	defer b.globalMu.Unlock()
	if ring, ok = b.data[symbol]; !ok {
		ring = &symbolRing{
			ticks:     make([]market.Tick, b.capacity),
			evictions: metrics.BufferEvictions.WithLabelValues(symbol),
		}
		b.data[symbol] = ring
	}
	return ring
}
