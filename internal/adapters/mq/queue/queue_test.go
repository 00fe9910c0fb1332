package queue

import (
	"context"
	"sync"
	"testing"
)

func noop(context.Context) error { return nil }

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job := NewJob(ctx, "all_years", noop)
	if job.ID == "" {
		t.Error("expected job id to be generated")
	}
	if !q.Enqueue(ctx, job) {
		t.Error("expected enqueue to succeed")
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("expected enqueue time to be recorded")
	}

	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue()
	if got.Op != "all_years" {
		t.Errorf("expected all_years, got %v", got.Op)
	}

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
	if !q.Enqueue(ctx, NewJob(ctx, "a", noop)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, NewJob(ctx, "b", noop)) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, NewJob(ctx, "c", noop)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, NewJob(ctx, "a", noop)) {
		t.Error("expected enqueue to fail with cancelled context")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, NewJob(ctx, "pending", noop)) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, NewJob(ctx, "late", noop)) {
		t.Error("expected enqueue to fail after close")
	}

	var drained []string
	for j := range q.Dequeue() {
		drained = append(drained, j.Op)
	}
	if len(drained) != 1 || drained[0] != "pending" {
		t.Errorf("expected the pending job to drain, got %v", drained)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !q.Enqueue(ctx, NewJob(ctx, "op", noop)) {
					t.Error("unexpected enqueue failure")
				}
			}
		}()
	}
	wg.Wait()

	if l := q.Len(); l != 1000 {
		t.Errorf("expected length 1000, got %d", l)
	}
}
