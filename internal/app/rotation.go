package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"telequiz/internal/domain"
)

const recentTextsCap = 50

// RotationPool hands out one question per request per chat without repeats
// until every eligible question has been served once, then reshuffles from
// the live store. Pool state is in-memory only; losing it on restart costs
// at most one near-term repeat.
type RotationPool struct {
	store  *QuestionStore
	logger *zap.Logger
	rnd    *rand.Rand

	mu     sync.Mutex
	pools  map[poolKey][]int64
	recent map[int64][]string
}

// Pools are kept per (chat, category) so the no-repeat guarantee holds
// within each filtered view independently.
type poolKey struct {
	chatID   int64
	category string
}

func NewRotationPool(store *QuestionStore, logger *zap.Logger) *RotationPool {
	return &RotationPool{
		store:  store,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pools:  make(map[poolKey][]int64),
		recent: make(map[int64][]string),
	}
}

// Next returns the next question for the chat, optionally filtered by
// category. ok is false when no eligible questions exist; that is an empty
// result, not an error.
func (p *RotationPool) Next(chatID int64, category string) (domain.Question, bool) {
	eligible := p.eligible(category)
	if len(eligible) == 0 {
		return domain.Question{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey{chatID: chatID, category: strings.ToLower(category)}

	// Ids can vanish from the store between shuffles. Drain the queued ids
	// until one resolves; after a reshuffle the queue holds only live ids.
	for cycle := 0; cycle < 2; cycle++ {
		for len(p.pools[key]) > 0 {
			ids := p.pools[key]
			id := ids[len(ids)-1]
			p.pools[key] = ids[:len(ids)-1]

			q, ok := p.store.Get(id)
			if !ok {
				continue
			}
			p.rememberLocked(chatID, q.Text)
			return q, true
		}
		p.reshuffleLocked(key, eligible, chatID)
	}
	return domain.Question{}, false
}

// Reset drops all pool state for a chat, e.g. when the chat is removed.
func (p *RotationPool) Reset(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.pools {
		if key.chatID == chatID {
			delete(p.pools, key)
		}
	}
	delete(p.recent, chatID)
}

// Remaining reports how many questions are left before the chat's default
// pool exhausts.
func (p *RotationPool) Remaining(chatID int64, category string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pools[poolKey{chatID: chatID, category: strings.ToLower(category)}])
}

func (p *RotationPool) eligible(category string) []domain.Question {
	if category == "" {
		return p.store.All()
	}
	return p.store.ByCategory(category)
}

func (p *RotationPool) reshuffleLocked(key poolKey, eligible []domain.Question, chatID int64) {
	ids := make([]int64, len(eligible))
	for i, q := range eligible {
		ids[i] = q.ID
	}
	p.rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	// Keep the first pop of a fresh cycle from repeating the question the
	// chat just saw.
	if last := p.lastServedLocked(chatID); last != "" && len(ids) > 1 {
		if q, ok := p.store.Get(ids[len(ids)-1]); ok && q.Text == last {
			ids[0], ids[len(ids)-1] = ids[len(ids)-1], ids[0]
		}
	}

	p.pools[key] = ids
	p.logger.Info("question pool reshuffled",
		zap.Int64("chat_id", key.chatID),
		zap.String("category", key.category),
		zap.Int("size", len(ids)))
}

func (p *RotationPool) rememberLocked(chatID int64, text string) {
	ring := append(p.recent[chatID], text)
	if len(ring) > recentTextsCap {
		ring = ring[len(ring)-recentTextsCap:]
	}
	p.recent[chatID] = ring
}

func (p *RotationPool) lastServedLocked(chatID int64) string {
	ring := p.recent[chatID]
	if len(ring) == 0 {
		return ""
	}
	return ring[len(ring)-1]
}
