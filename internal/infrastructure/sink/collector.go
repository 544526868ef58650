// ABOUTME: In-memory frame sink backed by a FIFO queue
// ABOUTME: Optionally bounded; evicts the oldest frame when the bound is hit
package sink

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/harper/frame-extractor/internal/domain"
)

// Collector keeps emitted frames until they are drained. A limit of 0
// keeps everything.
type Collector struct {
	q       *queue.Queue
	limit   int
	evicted uint64
	mu      sync.Mutex
}

func NewCollector(limit int) *Collector {
	return &Collector{q: queue.New(), limit: limit}
}

func (c *Collector) Emit(f domain.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limit > 0 && c.q.Length() >= c.limit {
		c.q.Remove()
		c.evicted++
	}
	c.q.Add(f)
	return nil
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.Length()
}

// Evicted counts frames dropped to honor the bound.
func (c *Collector) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}

// Drain returns the queued frames, oldest first, and empties the queue.
func (c *Collector) Drain() []domain.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Frame, 0, c.q.Length())
	for c.q.Length() > 0 {
		out = append(out, c.q.Remove().(domain.Frame))
	}
	return out
}
