// Package ws exposes a read-only websocket feed of the current leaderboard,
// for dashboards that want live standings without polling the bot.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telequiz/internal/domain"
)

// Snapshotter is the slice of the leaderboard view the feed needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

type outboundMessage struct {
	Type    string                    `json:"type"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// LeaderboardFeed pushes a leaderboard snapshot on connect and then on a
// fixed interval until the client goes away.
type LeaderboardFeed struct {
	board    Snapshotter
	interval time.Duration
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewLeaderboardFeed(board Snapshotter, interval time.Duration, logger *zap.Logger) *LeaderboardFeed {
	return &LeaderboardFeed{
		board:    board,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (f *LeaderboardFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// Drain inbound frames so close/ping handling keeps working; the feed
	// ignores anything the client says.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	f.push(r, send)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !f.push(r, send) {
				close(send)
				<-writerDone
				return
			}
		case <-readerDone:
			close(send)
			<-writerDone
			return
		case <-r.Context().Done():
			close(send)
			<-writerDone
			return
		}
	}
}

func (f *LeaderboardFeed) push(r *http.Request, send chan<- outboundMessage) bool {
	entries, err := f.board.Snapshot(r.Context())
	if err != nil {
		f.logger.Warn("leaderboard snapshot failed", zap.Error(err))
		return true
	}
	select {
	case send <- outboundMessage{Type: "leaderboard", Entries: entries}:
		return true
	default:
		// Slow client, drop it rather than blocking the feed.
		return false
	}
}
