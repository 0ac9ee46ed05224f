// Package bot is the built-in AI opponent. It plays through exactly
// the surface a remote player has: it binds a seat, deploys, receives
// redacted sync states and submits moves. It never reaches into the
// engine, so it cannot see an unrevealed card any more than a human
// client can.
package bot

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"rainet_server/internal/game"
)

const (
	thinkDelay  = 300 * time.Millisecond
	idleGiveUp  = 10 * time.Minute
	syncBufSize = 8
)

type Bot struct {
	sess *game.Session
	seat int
	rng  *rand.Rand
	log  *slog.Logger

	syncs chan game.SyncState
}

// Join binds an AI player to the given seat and starts its loop.
func Join(sess *game.Session, seat int, rng *rand.Rand, log *slog.Logger) error {
	b := &Bot{
		sess:  sess,
		seat:  seat,
		rng:   rng,
		log:   log.With("bot_seat", seat, "session", sess.ID),
		syncs: make(chan game.SyncState, syncBufSize),
	}

	name := fmt.Sprintf("cpu-%04d", rng.Intn(10000))
	if err := sess.Bind(seat, game.SeatInfo{Name: name}, b.onSync); err != nil {
		return err
	}
	if err := sess.Deploy(seat, rng.Perm(game.CardsPerSeat)); err != nil {
		return err
	}

	go b.run()
	return nil
}

// onSync runs under the session lock; it must not block. Dropping a
// stale state is fine, a newer one follows.
func (b *Bot) onSync(st game.SyncState) {
	select {
	case b.syncs <- st:
	default:
	}
}

func (b *Bot) run() {
	for {
		select {
		case st := <-b.syncs:
			b.handle(st)
		case <-time.After(idleGiveUp):
			b.log.Info("bot retiring, session idle")
			return
		}
	}
}

func (b *Bot) handle(st game.SyncState) {
	switch st.Phase {
	case game.AwaitingPlayers.String():
		// Rematch reset; redeploy. "already deployed" is expected noise.
		_ = b.sess.Deploy(b.seat, b.rng.Perm(game.CardsPerSeat))
	case game.Finished.String():
		// Always up for another round.
		_, _ = b.sess.Rematch(b.seat)
	case game.InProgress.String():
		if st.Turn == b.seat {
			time.Sleep(thinkDelay)
			b.play(st)
		}
	}
}

// play picks a move from the redacted view: capture if possible, push
// links toward the exit row, otherwise anything legal.
func (b *Bot) play(st game.SyncState) {
	occupied := make(map[game.Position]game.CardView, len(st.Cells))
	for _, cell := range st.Cells {
		occupied[cell.Pos] = *cell.Card
	}

	var captures, advances, rest []game.Move
	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	for _, cell := range st.Cells {
		c := cell.Card
		if c.Owner != b.seat || c.Kind != "online" || cell.Pos.Y >= game.MainRows {
			continue
		}
		for _, d := range dirs {
			to := game.Position{X: cell.Pos.X + d[0], Y: cell.Pos.Y + d[1]}
			if !to.InMain() {
				continue
			}
			mv := game.Move{Kind: game.MoveStep, From: cell.Pos, To: to}
			if tgt, ok := occupied[to]; ok {
				if tgt.Owner != b.seat && tgt.Kind == "online" {
					captures = append(captures, mv)
				}
				continue
			}
			if c.Type == "link" && forward(b.seat, d[1]) {
				advances = append(advances, mv)
			} else {
				rest = append(rest, mv)
			}
		}
	}

	for _, group := range [][]game.Move{captures, advances, rest} {
		b.rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		for _, mv := range group {
			if b.sess.Submit(b.seat, mv) == game.RejectNone {
				return
			}
		}
	}

	// Out of step ideas: burn the virus check on some hidden card.
	if st.VirusChecksLeft > 0 {
		for _, cell := range st.Cells {
			c := cell.Card
			if c.Owner != b.seat && c.Kind == "online" && c.Type == "hidden" && cell.Pos.Y < game.MainRows {
				mv := game.Move{Kind: game.MoveVirusCheck, To: cell.Pos}
				if b.sess.Submit(b.seat, mv) == game.RejectNone {
					return
				}
			}
		}
	}
	b.log.Debug("no move accepted")
}

func forward(seat, dy int) bool {
	if seat == 1 {
		return dy > 0
	}
	return dy < 0
}
