package app

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"telequiz/internal/domain"
)

// BatchCap is the maximum number of questions accepted in one batch import.
const BatchCap = 500

const minQuestionLen = 5

// QuestionRepository abstracts where questions durably live (legacy JSON
// file or Postgres). List must return questions in insertion order.
type QuestionRepository interface {
	Insert(ctx context.Context, q domain.Question) (int64, error)
	Update(ctx context.Context, q domain.Question) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Replace(ctx context.Context, qs []domain.Question) error
	List(ctx context.Context) ([]domain.Question, error)
}

// QuestionStore owns the canonical ordered question list. Every mutation
// persists through the repository before the in-memory list is touched, so
// a crash never loses an accepted question or resurrects a deleted one.
type QuestionStore struct {
	repo   QuestionRepository
	logger *zap.Logger

	mu        sync.RWMutex
	questions []domain.Question
}

// BatchItem is one question in a batch import. CorrectIndex follows the
// import convention: values > 0 are 1-based and normalized down, 0 means
// the first option.
type BatchItem struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_answer"`
	Category     string   `json:"category,omitempty"`
}

// NewQuestionStore loads the current question list from the repository.
func NewQuestionStore(ctx context.Context, repo QuestionRepository, logger *zap.Logger) (*QuestionStore, error) {
	questions, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("question store loaded", zap.Int("questions", len(questions)))
	return &QuestionStore{repo: repo, logger: logger, questions: questions}, nil
}

// NormalizeText strips a leading slash-command token (e.g. "/addquiz") and
// surrounding whitespace. Duplicate detection compares normalized text
// case-insensitively.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		if i := strings.IndexAny(text, " \t\n"); i > 0 {
			text = strings.TrimSpace(text[i:])
		} else {
			text = ""
		}
	}
	return text
}

// Validate reports whether a question is structurally sound: exactly four
// non-empty options and a correct index in range. It never mutates state.
func Validate(q domain.Question) bool {
	if len(strings.TrimSpace(q.Text)) < minQuestionLen {
		return false
	}
	if len(q.Options) != domain.OptionCount {
		return false
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < domain.OptionCount
}

// Add validates, dedupes and persists one question, returning its id.
// correctIndex is zero-based here; normalize 1-based input before calling.
// allowDuplicates skips the duplicate check only, never validation.
func (s *QuestionStore) Add(ctx context.Context, text string, options []string, correctIndex int, category string, allowDuplicates bool) (int64, error) {
	q, err := buildQuestion(text, options, correctIndex, category)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !allowDuplicates && s.isDuplicateLocked(q.Text) {
		return 0, domain.ErrDuplicateQuestion
	}

	id, err := s.repo.Insert(ctx, q)
	if err != nil {
		return 0, err
	}
	q.ID = id
	s.questions = append(s.questions, q)
	s.logger.Info("question added", zap.Int64("id", id), zap.String("category", q.Category))
	return id, nil
}

// AddBatch imports up to BatchCap questions in one call. Individual items
// that fail validation or duplicate detection are counted in the report and
// skipped; only batch-level violations return an error.
func (s *QuestionStore) AddBatch(ctx context.Context, items []BatchItem) (domain.BatchReport, error) {
	var report domain.BatchReport
	if len(items) > BatchCap {
		return report, domain.ErrBatchTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		idx := item.CorrectIndex
		if idx > 0 {
			idx-- // import convention is 1-based
		}
		q, err := buildQuestion(item.Text, item.Options, idx, item.Category)
		switch err {
		case nil:
		case domain.ErrInvalidOptions:
			report.Rejected.InvalidOptions++
			report.Errors = append(report.Errors, "invalid options: "+NormalizeText(item.Text))
			continue
		default:
			report.Rejected.InvalidFormat++
			report.Errors = append(report.Errors, "invalid format: "+NormalizeText(item.Text))
			continue
		}

		if s.isDuplicateLocked(q.Text) {
			report.Rejected.Duplicates++
			report.Errors = append(report.Errors, "duplicate: "+q.Text)
			continue
		}

		id, err := s.repo.Insert(ctx, q)
		if err != nil {
			return report, err
		}
		q.ID = id
		s.questions = append(s.questions, q)
		report.Added++
	}

	s.logger.Info("batch import finished",
		zap.Int("added", report.Added),
		zap.Int("duplicates", report.Rejected.Duplicates),
		zap.Int("invalid_format", report.Rejected.InvalidFormat),
		zap.Int("invalid_options", report.Rejected.InvalidOptions))
	return report, nil
}

// Delete removes a question by its canonical id.
func (s *QuestionStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, id)
}

// DeleteByPosition removes the question at a zero-based position in the
// current ordered listing. Compatibility shim for legacy call sites that
// address by index; the id-based Delete is canonical.
func (s *QuestionStore) DeleteByPosition(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return false, nil
	}
	return s.deleteLocked(ctx, s.questions[index].ID)
}

func (s *QuestionStore) deleteLocked(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			break
		}
	}
	s.logger.Info("question deleted", zap.Int64("id", id))
	return true, nil
}

// Update replaces the text, options, correct index and category of an
// existing question.
func (s *QuestionStore) Update(ctx context.Context, id int64, text string, options []string, correctIndex int, category string) error {
	q, err := buildQuestion(text, options, correctIndex, category)
	if err != nil {
		return err
	}
	q.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.repo.Update(ctx, q)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrQuestionNotFound
	}
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions[i] = q
			break
		}
	}
	return nil
}

// All returns a copy of the questions in insertion order.
func (s *QuestionStore) All() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// ByCategory returns questions tagged with the given category
// (case-insensitive), in insertion order.
func (s *QuestionStore) ByCategory(category string) []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if strings.EqualFold(q.Category, category) {
			out = append(out, q)
		}
	}
	return out
}

// Get looks a question up by id.
func (s *QuestionStore) Get(id int64) (domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

// Len reports the number of stored questions.
func (s *QuestionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// SweepInvalid discards structurally malformed questions, typically after a
// faulty import, and returns how many were removed.
func (s *QuestionStore) SweepInvalid(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if Validate(q) {
			kept = append(kept, q)
		}
	}
	removed := len(s.questions) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.repo.Replace(ctx, kept); err != nil {
		return 0, err
	}
	s.questions = kept
	s.logger.Info("swept invalid questions", zap.Int("removed", removed), zap.Int("remaining", len(kept)))
	return removed, nil
}

// ClearAll removes every stored question. Destructive; exposed only to the
// admin CLI.
func (s *QuestionStore) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.questions)
	if removed == 0 {
		return 0, nil
	}
	if err := s.repo.Replace(ctx, nil); err != nil {
		return 0, err
	}
	s.questions = nil
	s.logger.Warn("all questions cleared", zap.Int("removed", removed))
	return removed, nil
}

func (s *QuestionStore) isDuplicateLocked(normalized string) bool {
	for _, q := range s.questions {
		if strings.EqualFold(q.Text, normalized) {
			return true
		}
	}
	return false
}

func buildQuestion(text string, options []string, correctIndex int, category string) (domain.Question, error) {
	normalized := NormalizeText(text)
	if len(normalized) < minQuestionLen {
		return domain.Question{}, domain.ErrInvalidFormat
	}
	if len(options) != domain.OptionCount {
		return domain.Question{}, domain.ErrInvalidOptions
	}
	trimmed := make([]string, domain.OptionCount)
	for i, opt := range options {
		trimmed[i] = strings.TrimSpace(opt)
		if trimmed[i] == "" {
			return domain.Question{}, domain.ErrInvalidOptions
		}
	}
	if correctIndex < 0 || correctIndex >= domain.OptionCount {
		return domain.Question{}, domain.ErrInvalidFormat
	}
	return domain.Question{
		Text:         normalized,
		Options:      trimmed,
		CorrectIndex: correctIndex,
		Category:     strings.TrimSpace(category),
	}, nil
}
