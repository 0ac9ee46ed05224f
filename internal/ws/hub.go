package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"rainet_server/internal/bot"
	"rainet_server/internal/config"
	"rainet_server/internal/game"
	"rainet_server/internal/protocol"
	"rainet_server/internal/repository"
	"rainet_server/internal/service"
)

// Hub is the lobby: the registry of sessions players can create, list
// and join. Its lock covers the registry only; each session serializes
// itself, so a busy match never blocks unrelated lobby traffic.
type Hub struct {
	mu      sync.Mutex
	games   map[string]*entry
	seq     int64
	seedSeq int64

	cfg     *config.Config
	rules   game.RuleConfig
	store   repository.UserStore
	tokens  *service.TokenService
	ratings *service.RatingService
	log     *slog.Logger
}

type entry struct {
	sess  *game.Session
	conns [3]*Conn // by seat; nil for an AI seat
}

func NewHub(cfg *config.Config, store repository.UserStore, tokens *service.TokenService, ratings *service.RatingService, log *slog.Logger) *Hub {
	return &Hub{
		games: make(map[string]*entry),
		cfg:   cfg,
		rules: game.RuleConfig{
			FirewallStrength:   cfg.FirewallStrength,
			StalemateLoses:     cfg.StalemateLoses,
			VirusChecksPerSeat: game.DefaultRules().VirusChecksPerSeat,
		},
		store:   store,
		tokens:  tokens,
		ratings: ratings,
		log:     log,
	}
}

// newRand hands each session (and bot) its own source so games are
// independent and seedable under test.
func (h *Hub) newRand() *rand.Rand {
	h.seedSeq++
	return rand.New(rand.NewSource(time.Now().UnixNano() ^ h.seedSeq<<32))
}

// CreateGame allocates a session with the creator on seat 1. With vsAI
// an AI player takes seat 2 immediately and the game never shows up in
// the lobby list.
func (h *Hub) CreateGame(c *Conn, name string, vsAI bool) (*game.Session, error) {
	h.mu.Lock()
	h.seq++
	id := strconv.FormatInt(h.seq, 10)
	if name == "" {
		name = c.user + "'s game"
	}
	sess := game.NewSession(id, name, h.rules, h.newRand(), h.log)
	e := &entry{sess: sess}
	e.conns[1] = c
	h.games[id] = e
	GamesActive.Set(float64(len(h.games)))
	botRng := h.newRand()
	h.mu.Unlock()

	sess.SetOnFinish(func(winner int, reason string) { h.onFinish(sess, winner, reason) })

	if err := sess.Bind(1, game.SeatInfo{Name: c.user, Rating: c.rating}, c.pushSync); err != nil {
		h.remove(id)
		return nil, err
	}

	if vsAI {
		if err := bot.Join(sess, 2, botRng, h.log); err != nil {
			h.remove(id)
			return nil, fmt.Errorf("bot join: %w", err)
		}
	}

	h.log.Info("game created", "id", id, "host", c.user, "vs_ai", vsAI)
	return sess, nil
}

// JoinGame binds seat 2. The session's own lock decides races: of two
// concurrent joins exactly one sees a free seat.
func (h *Hub) JoinGame(id string, c *Conn) (*game.Session, int) {
	h.mu.Lock()
	e, ok := h.games[id]
	h.mu.Unlock()
	if !ok {
		return nil, LobbyNotFound
	}

	err := e.sess.Bind(2, game.SeatInfo{Name: c.user, Rating: c.rating}, c.pushSync)
	switch {
	case errors.Is(err, game.ErrSeatTaken):
		return nil, LobbyFull
	case err != nil:
		return nil, LobbyNotJoinable
	}

	h.mu.Lock()
	e.conns[2] = c
	host := e.conns[1]
	h.mu.Unlock()

	// Tell the host the seat filled; deployment can start.
	if host != nil {
		host.sendPacket(protocol.PacketJoinGame, JoinReply{
			Code: LobbyOK, ID: id, Seat: 1, Opponent: c.user,
		})
	}
	h.log.Info("game joined", "id", id, "player", c.user)
	return e.sess, LobbyOK
}

// ListGames returns joinable sessions only.
func (h *Hub) ListGames() []GameListEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []GameListEntry
	for id, e := range h.games {
		if e.sess.Joinable() {
			out = append(out, GameListEntry{
				ID:   id,
				Name: e.sess.Name,
				Host: e.sess.SeatName(1),
			})
		}
	}
	return out
}

// Leave detaches a connection from its session: forfeit when the game
// runs, a plain unbind before it starts. The entry disappears once no
// human connection remains.
func (h *Hub) Leave(c *Conn, reason string) {
	sess := c.sess
	if sess == nil {
		return
	}

	switch sess.Phase() {
	case game.InProgress:
		sess.Forfeit(c.seat, reason)
	case game.AwaitingPlayers:
		sess.Unbind(c.seat)
	}

	h.mu.Lock()
	if e, ok := h.games[sess.ID]; ok {
		if e.conns[c.seat] == c {
			e.conns[c.seat] = nil
		}
		if e.conns[1] == nil && e.conns[2] == nil {
			delete(h.games, sess.ID)
		}
	}
	GamesActive.Set(float64(len(h.games)))
	h.mu.Unlock()

	c.sess = nil
	c.seat = 0
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.games, id)
	GamesActive.Set(float64(len(h.games)))
	h.mu.Unlock()
}

func (h *Hub) onFinish(sess *game.Session, winner int, reason string) {
	GamesFinished.WithLabelValues(reason).Inc()
	if winner == 0 || reason == game.ReasonSessionFault {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.ratings.RecordResult(ctx, sess.SeatName(winner), sess.SeatName(3-winner))
}

// StartSweep launches the background janitor: drops stale finished
// sessions, times out never-started ones and forfeits seats that sit
// on their turn past the turn timeout.
func (h *Hub) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.sweep()
			}
		}
	}()
}

func (h *Hub) sweep() {
	h.mu.Lock()
	entries := make(map[string]*entry, len(h.games))
	for id, e := range h.games {
		entries[id] = e
	}
	h.mu.Unlock()

	now := time.Now()
	for id, e := range entries {
		idle := now.Sub(e.sess.LastActive())
		switch e.sess.Phase() {
		case game.Finished:
			if idle > time.Minute {
				h.remove(id)
			}
		case game.AwaitingPlayers:
			if idle > h.cfg.IdleTimeout {
				e.sess.ForceFinish(game.ReasonTimeout)
				h.remove(id)
			}
		case game.InProgress:
			if idle > h.cfg.TurnTimeout {
				if owner := e.sess.TurnOwner(); owner != 0 {
					h.log.Info("turn timeout", "session", id, "seat", owner)
					e.sess.Forfeit(owner, game.ReasonTimeout)
				}
			}
		}
	}
}
