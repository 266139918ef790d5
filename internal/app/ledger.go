package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"telequiz/internal/domain"
)

const dateLayout = "2006-01-02"

// StatsRepository persists per-user aggregate statistics. Implementations
// must return independent copies from Get/All and make Save atomic with
// respect to process crashes.
type StatsRepository interface {
	Get(ctx context.Context, userID int64) (*domain.UserStats, error)
	Save(ctx context.Context, stats *domain.UserStats) error
	All(ctx context.Context) ([]*domain.UserStats, error)
}

// HistoryRecorder appends an immutable answer-history row. Optional; a nil
// recorder disables history.
type HistoryRecorder interface {
	RecordAnswer(ctx context.Context, userID, chatID, questionID int64, chosenIndex, correctIndex int, isCorrect bool, answeredAt time.Time) error
}

// Invalidator is notified after every stats mutation so derived views can
// drop stale caches.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// AnswerLedger converts inbound answer events into exactly one stats
// mutation per (poll, user) pair. It is the only component allowed to
// mutate score and streak state; every scoring entry point funnels through
// RecordAnswer. A single mutex serializes binding mutation and eviction.
type AnswerLedger struct {
	stats   StatsRepository
	history HistoryRecorder
	board   Invalidator
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	bindings map[string]*domain.PollBinding
}

// NewAnswerLedger builds a ledger. history and board may be nil.
func NewAnswerLedger(stats StatsRepository, history HistoryRecorder, board Invalidator, logger *zap.Logger) *AnswerLedger {
	return newAnswerLedgerWithClock(stats, history, board, logger, time.Now)
}

// newAnswerLedgerWithClock allows deterministic dates in tests.
func newAnswerLedgerWithClock(stats StatsRepository, history HistoryRecorder, board Invalidator, logger *zap.Logger, now func() time.Time) *AnswerLedger {
	return &AnswerLedger{
		stats:    stats,
		history:  history,
		board:    board,
		logger:   logger,
		now:      now,
		bindings: make(map[string]*domain.PollBinding),
	}
}

// BindQuestion records the binding for a freshly dispatched poll. Poll ids
// are platform-generated and unique; if one is ever rebound, last write
// wins.
func (l *AnswerLedger) BindQuestion(pollID string, chatID, questionID int64, correctIndex int, sentAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings[pollID] = &domain.PollBinding{
		PollID:       pollID,
		ChatID:       chatID,
		QuestionID:   questionID,
		CorrectIndex: correctIndex,
		SentAt:       sentAt,
		AnsweredBy:   make(map[int64]domain.AnswerRecord),
	}
}

// RecordAnswer applies one answer event. It returns ErrUnknownPoll when the
// binding is absent and ErrAlreadyAnswered when the user already answered
// this poll; in both cases no state changes. On a persistence failure the
// answer is not marked recorded, so the caller may retry the whole event.
func (l *AnswerLedger) RecordAnswer(ctx context.Context, pollID string, userID int64, chosenIndex int) (domain.AnswerResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	binding, ok := l.bindings[pollID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrUnknownPoll
	}
	if binding.Answered(userID) {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	now := l.now()
	isCorrect := chosenIndex == binding.CorrectIndex

	stats, err := l.stats.Get(ctx, userID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if stats == nil {
		stats = &domain.UserStats{UserID: userID}
	}

	l.applyLocked(stats, binding.ChatID, isCorrect, now)

	if err := l.stats.Save(ctx, stats); err != nil {
		return domain.AnswerResult{}, err
	}

	// The answer becomes visible only after the stats mutation is durable.
	binding.AnsweredBy[userID] = domain.AnswerRecord{
		ChosenIndex: chosenIndex,
		IsCorrect:   isCorrect,
		AnsweredAt:  now,
	}

	if l.history != nil {
		if err := l.history.RecordAnswer(ctx, userID, binding.ChatID, binding.QuestionID, chosenIndex, binding.CorrectIndex, isCorrect, now); err != nil {
			l.logger.Warn("answer history append failed", zap.Error(err))
		}
	}
	if l.board != nil {
		l.board.Invalidate(ctx)
	}

	l.logger.Info("answer recorded",
		zap.String("poll_id", pollID),
		zap.Int64("user_id", userID),
		zap.Bool("correct", isCorrect),
		zap.Int("streak", stats.CurrentStreak))

	return domain.AnswerResult{
		ChatID:    binding.ChatID,
		IsCorrect: isCorrect,
		Score:     stats.CurrentScore,
		Streak:    stats.CurrentStreak,
	}, nil
}

// EvictExpiredBindings removes bindings older than maxAge and returns how
// many were dropped. Runs under the same mutex as RecordAnswer, so a sweep
// never races an in-flight answer for the same binding.
func (l *AnswerLedger) EvictExpiredBindings(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	evicted := 0
	for pollID, binding := range l.bindings {
		if binding.SentAt.Before(cutoff) {
			delete(l.bindings, pollID)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Info("evicted expired poll bindings", zap.Int("count", evicted))
	}
	return evicted
}

// BindingCount reports how many live bindings the ledger holds.
func (l *AnswerLedger) BindingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bindings)
}

func (l *AnswerLedger) applyLocked(stats *domain.UserStats, chatID int64, isCorrect bool, now time.Time) {
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	stats.TotalQuizzes++
	if isCorrect {
		stats.CorrectAnswers++
		stats.CurrentScore++
		advanceStreak(&stats.CurrentStreak, &stats.LongestStreak, &stats.LastCorrectDate, today, yesterday)
	} else {
		stats.WrongAnswers++
		stats.CurrentStreak = 0
		if stats.CurrentScore > 0 {
			stats.CurrentScore--
		}
	}
	stats.SuccessRate = successRate(stats.CorrectAnswers, stats.TotalQuizzes)

	g := stats.Group(chatID)
	g.TotalQuizzes++
	g.LastActiveDate = today
	if isCorrect {
		g.CorrectAnswers++
		g.Score++
		advanceStreak(&g.CurrentStreak, &g.LongestStreak, &g.LastCorrectDate, today, yesterday)
	} else {
		g.WrongAnswers++
		g.CurrentStreak = 0
	}
}

// advanceStreak implements the calendar-day streak rule: a correct answer
// extends the streak when the previous correct day was yesterday; repeats
// on the same day neither extend nor reset; any other gap restarts at 1.
func advanceStreak(current, longest *int, lastCorrect *string, today, yesterday string) {
	switch *lastCorrect {
	case today:
		if *current == 0 {
			*current = 1
		}
	case yesterday:
		*current++
	default:
		*current = 1
	}
	if *current > *longest {
		*longest = *current
	}
	*lastCorrect = today
}

func successRate(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
