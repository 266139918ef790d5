package memory

import (
	"context"
	"testing"

	"telequiz/internal/domain"
)

func TestQuestionRepositoryLifecycle(t *testing.T) {
	repo := NewQuestionRepository()
	ctx := context.Background()

	q := domain.Question{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectIndex: 1}
	id, err := repo.Insert(ctx, q)
	if err != nil || id != 1 {
		t.Fatalf("insert: id=%d err=%v", id, err)
	}

	q.ID = id
	q.Text = "What is 3 + 3?"
	if updated, err := repo.Update(ctx, q); err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 || list[0].Text != "What is 3 + 3?" {
		t.Fatalf("list: %+v err=%v", list, err)
	}

	if deleted, err := repo.Delete(ctx, id); err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if deleted, _ := repo.Delete(ctx, id); deleted {
		t.Fatalf("second delete must report false")
	}
}

func TestStatsRepositoryDeepCopies(t *testing.T) {
	repo := NewStatsRepository()
	ctx := context.Background()

	in := &domain.UserStats{
		UserID: 7, CurrentScore: 2,
		Groups: map[int64]*domain.GroupStats{100: {Score: 2}},
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy or a returned copy must not leak in.
	in.Groups[100].Score = 50
	got, err := repo.Get(ctx, 7)
	if err != nil || got.Groups[100].Score != 2 {
		t.Fatalf("stored stats aliased caller memory: %+v err=%v", got, err)
	}
	got.CurrentScore = 99
	again, _ := repo.Get(ctx, 7)
	if again.CurrentScore != 2 {
		t.Fatalf("Get must return independent copies, got %d", again.CurrentScore)
	}

	if missing, err := repo.Get(ctx, 42); err != nil || missing != nil {
		t.Fatalf("absent user must be nil, nil; got %+v %v", missing, err)
	}
}
