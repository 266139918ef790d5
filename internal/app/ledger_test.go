package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"telequiz/internal/domain"
)

// fakeStatsRepo is an in-test StatsRepository returning deep copies.
type fakeStatsRepo struct {
	users    map[int64]*domain.UserStats
	failSave bool
	saves    int
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{users: make(map[int64]*domain.UserStats)}
}

func (r *fakeStatsRepo) Get(_ context.Context, userID int64) (*domain.UserStats, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	return copyStats(u), nil
}

func (r *fakeStatsRepo) Save(_ context.Context, stats *domain.UserStats) error {
	if r.failSave {
		return fmt.Errorf("boom")
	}
	r.saves++
	r.users[stats.UserID] = copyStats(stats)
	return nil
}

func (r *fakeStatsRepo) All(_ context.Context) ([]*domain.UserStats, error) {
	out := make([]*domain.UserStats, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, copyStats(u))
	}
	return out, nil
}

func copyStats(u *domain.UserStats) *domain.UserStats {
	cp := *u
	cp.Groups = make(map[int64]*domain.GroupStats, len(u.Groups))
	for chatID, g := range u.Groups {
		gc := *g
		cp.Groups[chatID] = &gc
	}
	return &cp
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context) { f.calls++ }

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger(t *testing.T) (*AnswerLedger, *fakeStatsRepo, *fakeInvalidator, *fixedClock) {
	t.Helper()
	repo := newFakeStatsRepo()
	board := &fakeInvalidator{}
	clock := &fixedClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	ledger := newAnswerLedgerWithClock(repo, nil, board, zap.NewNop(), clock.now)
	return ledger, repo, board, clock
}

func TestRecordAnswerCorrectAndWrong(t *testing.T) {
	ledger, repo, board, clock := newTestLedger(t)
	ctx := context.Background()

	ledger.BindQuestion("poll-1", 100, 1, 2, clock.t)

	result, err := ledger.RecordAnswer(ctx, "poll-1", 7, 2)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !result.IsCorrect || result.Score != 1 || result.Streak != 1 || result.ChatID != 100 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if board.calls != 1 {
		t.Fatalf("expected 1 invalidation, got %d", board.calls)
	}

	ledger.BindQuestion("poll-2", 100, 2, 0, clock.t)
	result, err = ledger.RecordAnswer(ctx, "poll-2", 7, 3)
	if err != nil {
		t.Fatalf("record wrong: %v", err)
	}
	if result.IsCorrect || result.Score != 0 || result.Streak != 0 {
		t.Fatalf("unexpected wrong result: %+v", result)
	}

	u := repo.users[7]
	if u.TotalQuizzes != 2 || u.CorrectAnswers != 1 || u.WrongAnswers != 1 {
		t.Fatalf("unexpected totals: %+v", u)
	}
	if u.SuccessRate != 50 {
		t.Fatalf("expected 50%% success rate, got %v", u.SuccessRate)
	}
	g := u.Groups[100]
	if g == nil || g.TotalQuizzes != 2 || g.Score != 1 {
		t.Fatalf("unexpected group stats: %+v", g)
	}
}

func TestRecordAnswerScoreNeverNegative(t *testing.T) {
	ledger, repo, _, clock := newTestLedger(t)
	ctx := context.Background()

	ledger.BindQuestion("poll-1", 100, 1, 0, clock.t)
	if _, err := ledger.RecordAnswer(ctx, "poll-1", 7, 3); err != nil {
		t.Fatalf("record: %v", err)
	}
	if repo.users[7].CurrentScore != 0 {
		t.Fatalf("score must floor at zero, got %d", repo.users[7].CurrentScore)
	}
}

func TestRecordAnswerIdempotent(t *testing.T) {
	ledger, repo, board, clock := newTestLedger(t)
	ctx := context.Background()

	ledger.BindQuestion("poll-1", 100, 1, 0, clock.t)
	if _, err := ledger.RecordAnswer(ctx, "poll-1", 7, 0); err != nil {
		t.Fatalf("first record: %v", err)
	}
	before := copyStats(repo.users[7])
	invalidations := board.calls

	if _, err := ledger.RecordAnswer(ctx, "poll-1", 7, 1); err != domain.ErrAlreadyAnswered {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	after := repo.users[7]
	if after.TotalQuizzes != before.TotalQuizzes || after.CurrentScore != before.CurrentScore || after.CurrentStreak != before.CurrentStreak {
		t.Fatalf("repeat answer mutated stats: before=%+v after=%+v", before, after)
	}
	if board.calls != invalidations {
		t.Fatalf("repeat answer must not invalidate the leaderboard")
	}

	// A different user on the same poll is a fresh event.
	if _, err := ledger.RecordAnswer(ctx, "poll-1", 8, 0); err != nil {
		t.Fatalf("second user: %v", err)
	}
}

func TestRecordAnswerUnknownPoll(t *testing.T) {
	ledger, _, _, _ := newTestLedger(t)
	if _, err := ledger.RecordAnswer(context.Background(), "nope", 7, 0); err != domain.ErrUnknownPoll {
		t.Fatalf("expected ErrUnknownPoll, got %v", err)
	}
}

func TestRecordAnswerRetriesAfterPersistFailure(t *testing.T) {
	ledger, repo, _, clock := newTestLedger(t)
	ctx := context.Background()

	ledger.BindQuestion("poll-1", 100, 1, 0, clock.t)
	repo.failSave = true
	if _, err := ledger.RecordAnswer(ctx, "poll-1", 7, 0); err == nil {
		t.Fatalf("expected persist error")
	}

	// The answer was not marked recorded, so the retry succeeds once.
	repo.failSave = false
	if _, err := ledger.RecordAnswer(ctx, "poll-1", 7, 0); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if repo.users[7].TotalQuizzes != 1 {
		t.Fatalf("expected exactly one recorded answer, got %d", repo.users[7].TotalQuizzes)
	}
}

func TestStreakCalendarRule(t *testing.T) {
	ledger, repo, _, clock := newTestLedger(t)
	ctx := context.Background()

	answer := func(poll string, correctIdx, chosen int) domain.AnswerResult {
		t.Helper()
		ledger.BindQuestion(poll, 100, 1, correctIdx, clock.t)
		result, err := ledger.RecordAnswer(ctx, poll, 7, chosen)
		if err != nil {
			t.Fatalf("record %s: %v", poll, err)
		}
		return result
	}

	// Day 1: first correct answer starts the streak.
	if r := answer("p1", 0, 0); r.Streak != 1 {
		t.Fatalf("day 1: expected streak 1, got %d", r.Streak)
	}
	// Day 1 again: same-day repeat does not extend.
	if r := answer("p2", 0, 0); r.Streak != 1 {
		t.Fatalf("day 1 repeat: expected streak 1, got %d", r.Streak)
	}
	// Day 2: consecutive day extends.
	clock.advance(24 * time.Hour)
	if r := answer("p3", 0, 0); r.Streak != 2 {
		t.Fatalf("day 2: expected streak 2, got %d", r.Streak)
	}
	// Day 3: a wrong answer resets.
	clock.advance(24 * time.Hour)
	if r := answer("p4", 0, 1); r.Streak != 0 {
		t.Fatalf("day 3 wrong: expected streak 0, got %d", r.Streak)
	}
	// Same day, correct again: restart at 1.
	if r := answer("p5", 0, 0); r.Streak != 1 {
		t.Fatalf("day 3 recovery: expected streak 1, got %d", r.Streak)
	}
	// Day 6: gap longer than one day restarts at 1.
	clock.advance(72 * time.Hour)
	if r := answer("p6", 0, 0); r.Streak != 1 {
		t.Fatalf("after gap: expected streak 1, got %d", r.Streak)
	}

	if repo.users[7].LongestStreak != 2 {
		t.Fatalf("expected longest streak 2, got %d", repo.users[7].LongestStreak)
	}
}

func TestEvictExpiredBindings(t *testing.T) {
	ledger, _, _, clock := newTestLedger(t)
	ctx := context.Background()

	ledger.BindQuestion("old", 100, 1, 0, clock.t)
	clock.advance(2 * time.Hour)
	ledger.BindQuestion("fresh", 100, 2, 0, clock.t)

	if evicted := ledger.EvictExpiredBindings(time.Hour); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if ledger.BindingCount() != 1 {
		t.Fatalf("expected 1 binding left, got %d", ledger.BindingCount())
	}

	if _, err := ledger.RecordAnswer(ctx, "old", 7, 0); err != domain.ErrUnknownPoll {
		t.Fatalf("answer to evicted poll: expected ErrUnknownPoll, got %v", err)
	}
	if _, err := ledger.RecordAnswer(ctx, "fresh", 7, 0); err != nil {
		t.Fatalf("fresh poll must still work: %v", err)
	}
}
