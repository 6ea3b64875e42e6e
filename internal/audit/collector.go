package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchInserter is the interface used by Collector to persist events. It
// exists to allow testing without a real database.
type BatchInserter interface {
	BatchInsert(ctx context.Context, events []Event) error
}

// Collector buffers audit events in memory and periodically flushes them to
// the store in batches. It is safe for concurrent use and is the only
// background goroutine in the service.
type Collector struct {
	store         BatchInserter
	buffer        []Event
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}

	// OnRecord, if set, is called after each event is buffered with the
	// current buffer length. OnFlush, if set, is called after each flush
	// attempt. Both must be set before Start.
	OnRecord func(buffered int)
	OnFlush  func(count int, took time.Duration, err error)
}

// NewCollector creates a Collector that flushes to the given store when the
// buffer reaches batchSize or every flushInterval, whichever comes first.
func NewCollector(store BatchInserter, batchSize int, flushInterval time.Duration) *Collector {
	return &Collector{
		store:         store,
		buffer:        make([]Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// Start begins the flush loop. It blocks until Stop is called or the context
// is cancelled, flushing once more on the way out.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		case <-c.done:
			c.flush()
			return
		}
	}
}

// Record adds an event to the buffer. If the buffer reaches batchSize, a
// flush is triggered immediately.
func (c *Collector) Record(ev Event) {
	c.mu.Lock()
	c.buffer = append(c.buffer, ev)
	buffered := len(c.buffer)
	c.mu.Unlock()

	if c.OnRecord != nil {
		c.OnRecord(buffered)
	}
	if buffered >= c.batchSize {
		c.flush()
	}
}

// BufferLen returns the number of buffered, unflushed events.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// flush drains the buffer and writes it to the store. Errors are logged
// rather than returned so recording callers are never blocked.
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]Event, 0, c.batchSize)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	err := c.store.BatchInsert(ctx, batch)
	if err != nil {
		slog.Error("failed to flush audit events", "count", len(batch), "error", err)
	}
	if c.OnFlush != nil {
		c.OnFlush(len(batch), time.Since(start), err)
	}
}

// Stop signals the flush loop to exit and performs a final flush.
func (c *Collector) Stop() {
	close(c.done)
}
