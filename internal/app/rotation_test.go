package app

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func newTestPool(t *testing.T, n int) (*RotationPool, *QuestionStore) {
	t.Helper()
	store, _ := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < n; i++ {
		category := ""
		if i%2 == 0 {
			category = "even"
		}
		if _, err := store.Add(ctx, fmt.Sprintf("Question number %d?", i), fourOptions(), 0, category, false); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return NewRotationPool(store, zap.NewNop()), store
}

func TestNextServesEachQuestionOncePerCycle(t *testing.T) {
	const n = 10
	pool, _ := newTestPool(t, n)

	seen := make(map[int64]int)
	for i := 0; i < n; i++ {
		q, ok := pool.Next(1, "")
		if !ok {
			t.Fatalf("expected a question on draw %d", i)
		}
		seen[q.ID]++
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct questions in one cycle, got %d", n, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("question %d served %d times within one cycle", id, count)
		}
	}

	// The pool reshuffles and keeps serving after exhaustion.
	if _, ok := pool.Next(1, ""); !ok {
		t.Fatalf("expected a question after reshuffle")
	}
}

func TestNextIsolatesChats(t *testing.T) {
	const n = 5
	pool, _ := newTestPool(t, n)

	for i := 0; i < n; i++ {
		if _, ok := pool.Next(1, ""); !ok {
			t.Fatalf("chat 1 draw %d failed", i)
		}
	}
	// Chat 2 still gets a full fresh cycle.
	seen := make(map[int64]bool)
	for i := 0; i < n; i++ {
		q, ok := pool.Next(2, "")
		if !ok {
			t.Fatalf("chat 2 draw %d failed", i)
		}
		seen[q.ID] = true
	}
	if len(seen) != n {
		t.Fatalf("chat 2 cycle incomplete: %d distinct", len(seen))
	}
}

func TestNextFiltersByCategory(t *testing.T) {
	pool, store := newTestPool(t, 6)

	evenCount := len(store.ByCategory("even"))
	for i := 0; i < evenCount; i++ {
		q, ok := pool.Next(1, "even")
		if !ok {
			t.Fatalf("draw %d failed", i)
		}
		if q.Category != "even" {
			t.Fatalf("category filter leaked question %+v", q)
		}
	}

	if _, ok := pool.Next(1, "missing"); ok {
		t.Fatalf("unknown category must serve nothing")
	}
}

func TestNextOnEmptyStore(t *testing.T) {
	pool, _ := newTestPool(t, 0)
	if _, ok := pool.Next(1, ""); ok {
		t.Fatalf("empty store must serve nothing")
	}
}

func TestNextSkipsDeletedQuestions(t *testing.T) {
	pool, store := newTestPool(t, 3)
	ctx := context.Background()

	// Prime the pool, then delete a question behind its back.
	if _, ok := pool.Next(1, ""); !ok {
		t.Fatalf("first draw failed")
	}
	all := store.All()
	if _, err := store.Delete(ctx, all[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Delete(ctx, all[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for i := 0; i < 4; i++ {
		q, ok := pool.Next(1, "")
		if !ok {
			t.Fatalf("draw %d failed", i)
		}
		if _, live := store.Get(q.ID); !live {
			t.Fatalf("served deleted question %d", q.ID)
		}
	}
}

func TestReset(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	pool.Next(1, "")
	if pool.Remaining(1, "") == 0 {
		t.Fatalf("expected pending questions before reset")
	}
	pool.Reset(1)
	if pool.Remaining(1, "") != 0 {
		t.Fatalf("reset must drop chat pool state")
	}
}
