package file

import (
	"context"
	"path/filepath"
	"testing"

	"telequiz/internal/domain"
)

func TestStatsRepositorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ctx := context.Background()

	repo, err := NewStatsRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	stats := &domain.UserStats{
		UserID:          7,
		TotalQuizzes:    4,
		CorrectAnswers:  3,
		WrongAnswers:    1,
		SuccessRate:     75,
		CurrentScore:    3,
		CurrentStreak:   2,
		LongestStreak:   2,
		LastCorrectDate: "2025-03-10",
		Groups: map[int64]*domain.GroupStats{
			100: {TotalQuizzes: 4, CorrectAnswers: 3, Score: 3, CurrentStreak: 2},
		},
	}
	if err := repo.Save(ctx, stats); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := NewStatsRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.CurrentScore != 3 || got.LastCorrectDate != "2025-03-10" {
		t.Fatalf("unexpected stats after reopen: %+v", got)
	}
	if g := got.Groups[100]; g == nil || g.Score != 3 {
		t.Fatalf("group stats lost on reopen: %+v", got.Groups)
	}

	if missing, err := reopened.Get(ctx, 99); err != nil || missing != nil {
		t.Fatalf("absent user must be nil, nil; got %+v, %v", missing, err)
	}
}

func TestStatsRepositoryReturnsCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ctx := context.Background()

	repo, err := NewStatsRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Save(ctx, &domain.UserStats{UserID: 7, CurrentScore: 1, Groups: map[int64]*domain.GroupStats{}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, _ := repo.Get(ctx, 7)
	first.CurrentScore = 99
	second, _ := repo.Get(ctx, 7)
	if second.CurrentScore != 1 {
		t.Fatalf("Get must return independent copies, got %d", second.CurrentScore)
	}
}
