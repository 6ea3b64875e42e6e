package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeInserter records batches passed to BatchInsert.
type fakeInserter struct {
	mu      sync.Mutex
	batches [][]Event
}

func (f *fakeInserter) BatchInsert(_ context.Context, events []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeInserter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesAtBatchSize(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 3, time.Hour)

	c.Record(Event{Tenant: "acme", Action: "field_config.save"})
	c.Record(Event{Tenant: "acme", Action: "field_config.save"})
	if store.total() != 0 {
		t.Fatalf("flushed before reaching batch size: %d", store.total())
	}

	c.Record(Event{Tenant: "acme", Action: "mappings.replace"})
	if store.total() != 3 {
		t.Errorf("expected 3 flushed events, got %d", store.total())
	}
	if c.BufferLen() != 0 {
		t.Errorf("buffer not drained, %d left", c.BufferLen())
	}
}

func TestCollectorFlushesOnStop(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 100, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Record(Event{Tenant: "acme", Action: "user.provision"})
	c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if store.total() != 1 {
		t.Errorf("expected final flush of 1 event, got %d", store.total())
	}
}

func TestCollectorFlushesOnContextCancel(t *testing.T) {
	store := &fakeInserter{}
	c := NewCollector(store, 100, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	c.Record(Event{Tenant: "acme", Action: "tenant.update"})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if store.total() != 1 {
		t.Errorf("expected final flush of 1 event, got %d", store.total())
	}
}
