package analysis_test

import (
	"context"
	"errors"
	"testing"

	"crate/internal/analysis"
)

func TestMemoryQueueOrder(t *testing.T) {
	q := analysis.NewMemoryQueue(8)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	got := q.Drain()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Drain = %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain = %d, want 0", q.Len())
	}
}

func TestMemoryQueueCapacity(t *testing.T) {
	q := analysis.NewMemoryQueue(1)
	ctx := context.Background()
	if err := q.Enqueue(ctx, "a"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, "b"); !errors.Is(err, analysis.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestMemoryQueueCancelled(t *testing.T) {
	q := analysis.NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
