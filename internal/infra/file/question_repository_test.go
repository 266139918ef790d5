package file

import (
	"context"
	"path/filepath"
	"testing"

	"telequiz/internal/domain"
)

func testQuestion(text string) domain.Question {
	return domain.Question{
		Text:         text,
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 1,
		Category:     "general",
	}
}

func TestQuestionRepositorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	ctx := context.Background()

	repo, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id1, err := repo.Insert(ctx, testQuestion("First question?"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := repo.Insert(ctx, testQuestion("Second question?"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("unexpected ids %d %d", id1, id2)
	}

	reopened, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	list, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Text != "First question?" || list[1].ID != 2 {
		t.Fatalf("unexpected list after reopen: %+v", list)
	}

	// Ids keep climbing after a restart; deleted ids are never reused.
	if deleted, err := reopened.Delete(ctx, id2); err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	id3, err := reopened.Insert(ctx, testQuestion("Third question?"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id3 != 3 {
		t.Fatalf("expected id 3, got %d", id3)
	}
}

func TestQuestionRepositoryUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	ctx := context.Background()

	repo, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := repo.Insert(ctx, testQuestion("Original question?"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	q := testQuestion("Edited question?")
	q.ID = id
	updated, err := repo.Update(ctx, q)
	if err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}

	q.ID = 999
	if updated, _ := repo.Update(ctx, q); updated {
		t.Fatalf("update of missing id must report false")
	}

	reopened, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	list, _ := reopened.List(ctx)
	if list[0].Text != "Edited question?" {
		t.Fatalf("edit not persisted: %+v", list[0])
	}
}

func TestQuestionRepositoryReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	ctx := context.Background()

	repo, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo.Insert(ctx, testQuestion("Keep this question?"))
	repo.Insert(ctx, testQuestion("Drop this question?"))

	list, _ := repo.List(ctx)
	if err := repo.Replace(ctx, list[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}

	reopened, err := NewQuestionRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	list, _ = reopened.List(ctx)
	if len(list) != 1 || list[0].Text != "Keep this question?" {
		t.Fatalf("unexpected list after replace: %+v", list)
	}
}
