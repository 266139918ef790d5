// Package telegram drives the bot: long-polling for updates, dispatching
// commands to the quiz services and feeding poll answers into the ledger.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telequiz/internal/app"
	"telequiz/internal/domain"
)

const (
	cmdStart       = "start"
	cmdQuiz        = "quiz"
	cmdCategory    = "category"
	cmdMyStats     = "mystats"
	cmdLeaderboard = "leaderboard"
	cmdRank        = "rank"
	cmdAddQuiz     = "addquiz"
	cmdDelQuiz     = "delquiz"
	cmdListQuiz    = "listquiz"

	leaderboardSize = 10
	listQuizLimit   = 25
)

// Bot wires Telegram updates into the quiz services.
type Bot struct {
	api      *tgbotapi.BotAPI
	store    *app.QuestionStore
	pool     *app.RotationPool
	ledger   *app.AnswerLedger
	board    *app.LeaderboardView
	cooldown *app.CommandCooldown
	stats    app.StatsRepository
	logger   *zap.Logger

	bindingTTL    time.Duration
	sweepInterval time.Duration
}

// Options carries the bot's maintenance knobs.
type Options struct {
	BindingTTL    time.Duration
	SweepInterval time.Duration
}

func New(token string, store *app.QuestionStore, pool *app.RotationPool, ledger *app.AnswerLedger, board *app.LeaderboardView, cooldown *app.CommandCooldown, stats app.StatsRepository, logger *zap.Logger, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if opts.BindingTTL <= 0 {
		opts.BindingTTL = time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Minute
	}
	return &Bot{
		api:           api,
		store:         store,
		pool:          pool,
		ledger:        ledger,
		board:         board,
		cooldown:      cooldown,
		stats:         stats,
		logger:        logger,
		bindingTTL:    opts.BindingTTL,
		sweepInterval: opts.SweepInterval,
	}, nil
}

// Run polls for updates until the context is cancelled. Expired poll
// bindings and stale cooldown entries are swept on a fixed interval.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot polling started", zap.String("username", b.api.Self.UserName))

	go b.sweepLoop(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.PollAnswer != nil:
				b.handlePollAnswer(ctx, update.PollAnswer)
			case update.Message != nil && update.Message.IsCommand():
				b.handleCommand(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.ledger.EvictExpiredBindings(b.bindingTTL)
			b.cooldown.Sweep()
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case cmdStart:
		b.handleStart(msg)
	case cmdQuiz:
		b.handleQuiz(msg)
	case cmdCategory:
		b.handleCategory(msg)
	case cmdMyStats:
		b.handleMyStats(ctx, msg)
	case cmdLeaderboard:
		b.handleLeaderboard(ctx, msg)
	case cmdRank:
		b.handleRank(ctx, msg)
	case cmdAddQuiz:
		b.handleAddQuiz(ctx, msg)
	case cmdDelQuiz:
		b.handleDelQuiz(ctx, msg)
	case cmdListQuiz:
		b.handleListQuiz(msg)
	default:
		b.send(msg.Chat.ID, "Unknown command. Try /quiz for a question or /leaderboard for standings.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.send(msg.Chat.ID, strings.Join([]string{
		"Welcome to the quiz bot!",
		"",
		"/quiz [category] - get a question",
		"/category - list categories",
		"/mystats - your statistics",
		"/leaderboard - top players",
		"/rank - your position",
		"/addquiz question | opt1 | opt2 | opt3 | opt4 | correct(1-4) [| category]",
		"/delquiz id (or #position)",
		"/listquiz - stored questions",
	}, "\n"))
}

func (b *Bot) handleQuiz(msg *tgbotapi.Message) {
	if !b.cooldown.Allow(msg.From.ID, cmdQuiz) {
		b.send(msg.Chat.ID, "Easy there! Wait a moment before requesting another quiz.")
		return
	}

	category := strings.TrimSpace(msg.CommandArguments())
	q, ok := b.pool.Next(msg.Chat.ID, category)
	if !ok {
		if category != "" {
			b.send(msg.Chat.ID, fmt.Sprintf("No questions in category %q. Try /category for the list.", category))
		} else {
			b.send(msg.Chat.ID, "No questions available yet. Add some with /addquiz.")
		}
		return
	}

	poll := tgbotapi.NewPoll(msg.Chat.ID, q.Text, q.Options...)
	poll.Type = "quiz"
	poll.IsAnonymous = false
	poll.CorrectOptionID = int64(q.CorrectIndex)

	sent, err := b.api.Send(poll)
	if err != nil {
		b.logger.Error("send poll failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		b.send(msg.Chat.ID, "Could not send the quiz, please try again.")
		return
	}
	if sent.Poll == nil {
		b.logger.Error("sent poll has no poll payload", zap.Int64("chat_id", msg.Chat.ID))
		return
	}
	b.ledger.BindQuestion(sent.Poll.ID, msg.Chat.ID, q.ID, q.CorrectIndex, time.Now())
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	// An empty option list is a vote retraction, which never rescores.
	if len(answer.OptionIDs) == 0 {
		return
	}

	result, err := b.ledger.RecordAnswer(ctx, answer.PollID, answer.User.ID, answer.OptionIDs[0])
	switch {
	case errors.Is(err, domain.ErrUnknownPoll):
		b.logger.Debug("answer for unknown poll dropped", zap.String("poll_id", answer.PollID))
		return
	case errors.Is(err, domain.ErrAlreadyAnswered):
		b.logger.Debug("repeat answer dropped",
			zap.String("poll_id", answer.PollID),
			zap.Int64("user_id", answer.User.ID))
		return
	case err != nil:
		b.logger.Error("record answer failed", zap.Error(err), zap.String("poll_id", answer.PollID))
		return
	}

	if result.IsCorrect && result.Streak > 1 {
		b.send(result.ChatID, fmt.Sprintf("%s is on a %d-day streak! 🔥", displayName(&answer.User), result.Streak))
	}
}

func (b *Bot) handleCategory(msg *tgbotapi.Message) {
	seen := make(map[string]struct{})
	var categories []string
	for _, q := range b.store.All() {
		c := strings.TrimSpace(q.Category)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		b.send(msg.Chat.ID, "No categories yet; questions without a category are served by plain /quiz.")
		return
	}
	sort.Strings(categories)
	b.send(msg.Chat.ID, "Categories:\n"+strings.Join(categories, "\n")+"\n\nUse /quiz <category> to play one.")
}

func (b *Bot) handleMyStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := b.stats.Get(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("load user stats failed", zap.Error(err), zap.Int64("user_id", msg.From.ID))
		b.send(msg.Chat.ID, "Could not load your statistics, please try again.")
		return
	}
	if stats == nil || stats.TotalQuizzes == 0 {
		b.send(msg.Chat.ID, "No answers recorded yet. Try /quiz!")
		return
	}

	text := fmt.Sprintf(`📊 Your statistics

Quizzes answered: %d
Correct: %d ✅
Wrong: %d ❌
Accuracy: %.1f%%
Score: %d
Streak: %d (best %d)`,
		stats.TotalQuizzes, stats.CorrectAnswers, stats.WrongAnswers,
		stats.SuccessRate, stats.CurrentScore, stats.CurrentStreak, stats.LongestStreak)

	if g, ok := stats.Groups[msg.Chat.ID]; ok && msg.Chat.ID != msg.From.ID {
		text += fmt.Sprintf("\n\nIn this chat: %d answered, score %d, streak %d",
			g.TotalQuizzes, g.Score, g.CurrentStreak)
	}
	b.send(msg.Chat.ID, text)
}

func (b *Bot) handleLeaderboard(ctx context.Context, msg *tgbotapi.Message) {
	entries, total, err := b.board.Rank(ctx, leaderboardSize, 0)
	if err != nil {
		b.logger.Error("leaderboard failed", zap.Error(err))
		b.send(msg.Chat.ID, "Could not load the leaderboard, please try again.")
		return
	}
	if total == 0 {
		b.send(msg.Chat.ID, "The leaderboard is empty. Answer a /quiz to get on it!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard\n\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s — %d pts (%.0f%%, streak %d)\n",
			i+1, mention(e.UserID), e.Score, e.SuccessRate, e.Streak)
	}
	if total > len(entries) {
		fmt.Fprintf(&sb, "\n…and %d more players", total-len(entries))
	}
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleRank(ctx context.Context, msg *tgbotapi.Message) {
	pos, ok, err := b.board.RankFor(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("rank lookup failed", zap.Error(err), zap.Int64("user_id", msg.From.ID))
		b.send(msg.Chat.ID, "Could not look up your rank, please try again.")
		return
	}
	if !ok {
		b.send(msg.Chat.ID, "You are not ranked yet — answer a /quiz first.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Your rank: #%d", pos))
}

func (b *Bot) handleAddQuiz(ctx context.Context, msg *tgbotapi.Message) {
	parsed, err := parseAddQuiz(msg.CommandArguments())
	if err != nil {
		b.send(msg.Chat.ID, "Format: /addquiz question | opt1 | opt2 | opt3 | opt4 | correct(1-4) [| category]")
		return
	}

	id, err := b.store.Add(ctx, parsed.Text, parsed.Options, parsed.CorrectIndex, parsed.Category, false)
	switch {
	case errors.Is(err, domain.ErrDuplicateQuestion):
		b.send(msg.Chat.ID, "That question already exists.")
	case errors.Is(err, domain.ErrInvalidFormat), errors.Is(err, domain.ErrInvalidOptions):
		b.send(msg.Chat.ID, "Format: /addquiz question | opt1 | opt2 | opt3 | opt4 | correct(1-4) [| category]")
	case err != nil:
		b.logger.Error("add question failed", zap.Error(err))
		b.send(msg.Chat.ID, "Could not save the question, please try again.")
	default:
		b.send(msg.Chat.ID, fmt.Sprintf("Question #%d added. %d questions stored.", id, b.store.Len()))
	}
}

func (b *Bot) handleDelQuiz(ctx context.Context, msg *tgbotapi.Message) {
	id, position, byPosition, err := parseDeleteArg(msg.CommandArguments())
	if err != nil {
		b.send(msg.Chat.ID, "Usage: /delquiz <id> or /delquiz #<position>")
		return
	}

	var deleted bool
	if byPosition {
		deleted, err = b.store.DeleteByPosition(ctx, position)
	} else {
		deleted, err = b.store.Delete(ctx, id)
	}
	if err != nil {
		b.logger.Error("delete question failed", zap.Error(err))
		b.send(msg.Chat.ID, "Could not delete the question, please try again.")
		return
	}
	if !deleted {
		b.send(msg.Chat.ID, "No such question.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Deleted. %d questions remain.", b.store.Len()))
}

func (b *Bot) handleListQuiz(msg *tgbotapi.Message) {
	questions := b.store.All()
	if len(questions) == 0 {
		b.send(msg.Chat.ID, "No questions stored. Add one with /addquiz.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d questions stored:\n\n", len(questions))
	for i, q := range questions {
		if i == listQuizLimit {
			fmt.Fprintf(&sb, "…and %d more", len(questions)-listQuizLimit)
			break
		}
		text := truncate(q.Text, 60)
		if q.Category != "" {
			fmt.Fprintf(&sb, "#%d (id %d, %s): %s\n", i+1, q.ID, q.Category, text)
		} else {
			fmt.Fprintf(&sb, "#%d (id %d): %s\n", i+1, q.ID, text)
		}
	}
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func mention(userID int64) string {
	return fmt.Sprintf("player %d", userID)
}

// truncate shortens s to at most max runes, appending an ellipsis. Cutting
// on rune boundaries keeps multibyte question text valid.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
