package domain

import "time"

// OptionCount is the fixed number of answer options every question carries.
const OptionCount = 4

// Question models a multiple-choice question with exactly four options and
// one correct index. The zero-based CorrectIndex convention is used
// everywhere past the intake boundary; callers that speak 1-based (batch
// imports, chat commands) are normalized before a Question is built.
type Question struct {
	ID           int64    `json:"id"`
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_answer"`
	Category     string   `json:"category,omitempty"`
}

// GroupStats is the per-chat slice of a user's aggregates.
type GroupStats struct {
	TotalQuizzes    int    `json:"total_quizzes"`
	CorrectAnswers  int    `json:"correct_answers"`
	WrongAnswers    int    `json:"wrong_answers"`
	Score           int    `json:"score"`
	CurrentStreak   int    `json:"current_streak"`
	LongestStreak   int    `json:"longest_streak"`
	LastCorrectDate string `json:"last_correct_date,omitempty"`
	LastActiveDate  string `json:"last_activity_date,omitempty"`
}

// UserStats is the authoritative per-user aggregate derived from answer
// events. Mutated only by the answer ledger, exactly once per answer.
// SuccessRate is recomputed on every mutation and never stored stale.
type UserStats struct {
	UserID          int64                 `json:"user_id"`
	TotalQuizzes    int                   `json:"total_quizzes"`
	CorrectAnswers  int                   `json:"correct_answers"`
	WrongAnswers    int                   `json:"wrong_answers"`
	SuccessRate     float64               `json:"success_rate"`
	CurrentScore    int                   `json:"current_score"`
	CurrentStreak   int                   `json:"current_streak"`
	LongestStreak   int                   `json:"longest_streak"`
	LastCorrectDate string                `json:"last_correct_date,omitempty"`
	Groups          map[int64]*GroupStats `json:"groups,omitempty"`
}

// Group returns the per-chat breakdown for chatID, creating it if absent.
func (s *UserStats) Group(chatID int64) *GroupStats {
	if s.Groups == nil {
		s.Groups = make(map[int64]*GroupStats)
	}
	g, ok := s.Groups[chatID]
	if !ok {
		g = &GroupStats{}
		s.Groups[chatID] = g
	}
	return g
}

// AnswerRecord captures one user's answer to one dispatched poll.
type AnswerRecord struct {
	ChosenIndex int       `json:"chosen_index"`
	IsCorrect   bool      `json:"is_correct"`
	AnsweredAt  time.Time `json:"answered_at"`
}

// PollBinding links a dispatched poll to the question it carries and the
// answers received so far. Bindings are ephemeral; an evicted binding makes
// late answers permanently unanswerable.
type PollBinding struct {
	PollID       string
	ChatID       int64
	QuestionID   int64
	CorrectIndex int
	SentAt       time.Time
	AnsweredBy   map[int64]AnswerRecord
}

// Answered reports whether userID has already answered this poll.
func (b *PollBinding) Answered(userID int64) bool {
	_, ok := b.AnsweredBy[userID]
	return ok
}

// AnswerResult is the outcome of recording a single answer.
type AnswerResult struct {
	ChatID    int64 `json:"chatId"`
	IsCorrect bool  `json:"isCorrect"`
	Score     int   `json:"score"`
	Streak    int   `json:"streak"`
}

// LeaderboardEntry is a derived ranking row. Ordering is
// (score desc, success rate desc, streak desc), nothing else.
type LeaderboardEntry struct {
	UserID       int64   `json:"userId"`
	Score        int     `json:"score"`
	TotalQuizzes int     `json:"totalQuizzes"`
	SuccessRate  float64 `json:"successRate"`
	Streak       int     `json:"streak"`
}

// BatchReport summarizes a batch question import. Per-item failures are
// counted, never raised.
type BatchReport struct {
	Added    int      `json:"added"`
	Rejected Rejected `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// Rejected breaks rejected batch items down by cause.
type Rejected struct {
	Duplicates     int `json:"duplicates"`
	InvalidFormat  int `json:"invalid_format"`
	InvalidOptions int `json:"invalid_options"`
}
