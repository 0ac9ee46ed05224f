package game

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

type Phase int

const (
	AwaitingPlayers Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "awaiting_players"
	}
}

// Finish reasons carried in the final GameSync.
const (
	ReasonGameComplete = "game_complete"
	ReasonStalemate    = "stalemate"
	ReasonForfeit      = "forfeit"
	ReasonTimeout      = "timeout"
	ReasonSessionFault = "session_fault"
)

var (
	ErrBadSeat   = errors.New("seat must be 1 or 2")
	ErrSeatTaken = errors.New("seat already bound")
	ErrNotBound  = errors.New("seat not bound")
)

type SeatInfo struct {
	Name   string
	Rating int
}

// SyncFunc pushes a seat's view out. Implementations must not block;
// they run under the session lock.
type SyncFunc func(SyncState)

// Session is one authoritative match. All mutation goes through the
// single mutex, so the two connection workers can never interleave a
// command mid-validation.
type Session struct {
	ID   string
	Name string

	mu  sync.Mutex
	cfg RuleConfig
	eng *Engine
	rng *rand.Rand
	log *slog.Logger

	phase    Phase
	seats    [3]*SeatInfo
	syncFn   [3]SyncFunc
	deployed [3]bool

	winner  int
	draw    bool
	reason  string
	rematch [3]bool

	onFinish func(winner int, reason string)

	createdAt  time.Time
	lastActive time.Time
}

// NewSession takes its randomness and logging as explicit collaborators
// so matches are reproducible under test.
func NewSession(id, name string, cfg RuleConfig, rng *rand.Rand, log *slog.Logger) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Name:       name,
		cfg:        cfg,
		eng:        NewEngine(cfg),
		rng:        rng,
		log:        log.With("session", id),
		createdAt:  now,
		lastActive: now,
	}
}

// Bind attaches a player to a seat. The sync callback receives every
// subsequent state broadcast for that seat.
func (s *Session) Bind(seat int, info SeatInfo, fn SyncFunc) error {
	if seat != 1 && seat != 2 {
		return ErrBadSeat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seats[seat] != nil {
		return ErrSeatTaken
	}
	s.seats[seat] = &info
	s.syncFn[seat] = fn
	s.touch()

	s.log.Info("seat bound", "seat", seat, "player", info.Name)
	return nil
}

// Unbind frees a seat while the match has not started. In-game
// departures go through Forfeit instead.
func (s *Session) Unbind(seat int) {
	if seat != 1 && seat != 2 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != AwaitingPlayers {
		return
	}
	s.seats[seat] = nil
	s.syncFn[seat] = nil
	s.deployed[seat] = false
}

// Deploy places the seat's 8 stack cards onto its deployment fields.
// A nil or invalid order is replaced by a shuffle from the session's
// random source. Once both seats are bound and deployed the match
// starts and both seats get their first sync.
func (s *Session) Deploy(seat int, order []int) error {
	if seat != 1 && seat != 2 {
		return ErrBadSeat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seats[seat] == nil {
		return ErrNotBound
	}
	if s.phase != AwaitingPlayers || s.deployed[seat] {
		return errors.New("already deployed")
	}

	if order == nil || !isPermutation(order) || len(order) != CardsPerSeat {
		order = s.rng.Perm(CardsPerSeat)
	}
	if !s.eng.Deploy(seat, order) {
		return errors.New("deploy failed")
	}
	s.deployed[seat] = true
	s.touch()

	if s.deployed[1] && s.deployed[2] && s.seats[1] != nil && s.seats[2] != nil {
		s.phase = InProgress
		s.log.Info("match started",
			"player1", s.seats[1].Name, "player2", s.seats[2].Name)
		s.broadcastLocked()
	}
	return nil
}

// Submit runs one command for a seat through the rules engine. On
// success both seats receive a fresh sync. Rejections leave the board
// untouched and the turn unconsumed.
func (s *Session) Submit(seat int, mv Move) RejectCode {
	if seat != 1 && seat != 2 {
		return RejectBadCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case AwaitingPlayers:
		return RejectNotDeployed
	case Finished:
		return RejectGameOver
	}

	d, code := s.eng.Apply(seat, mv)
	if code != RejectNone {
		return code
	}
	s.touch()

	// Invariant audit. A mismatch is a SessionFault: this match dies,
	// the process does not.
	if n := s.eng.Board().OnlineCardCount(); n != TotalCards {
		s.log.Error("card count invariant broken", "count", n)
		s.finishLocked(0, ReasonSessionFault)
		return RejectNone
	}

	if s.eng.Over() {
		reason := ReasonGameComplete
		if d.Stalemate {
			reason = ReasonStalemate
		}
		s.finishLocked(s.eng.Winner(), reason)
		return RejectNone
	}

	s.broadcastLocked()
	return RejectNone
}

// Forfeit finishes the match in the opponent's favor: explicit exit,
// dropped connection, or keep-alive timeout.
func (s *Session) Forfeit(seat int, reason string) {
	if seat != 1 && seat != 2 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Finished {
		return
	}
	s.log.Info("seat forfeits", "seat", seat, "reason", reason)
	s.finishLocked(opponent(seat), reason)
}

// ForceFinish ends the session without a winner (idle sweep, fault).
func (s *Session) ForceFinish(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Finished {
		return
	}
	s.finishLocked(0, reason)
}

func (s *Session) finishLocked(winner int, reason string) {
	s.phase = Finished
	s.winner = winner
	s.draw = winner == 0 && s.eng.Draw()
	s.reason = reason
	s.log.Info("match finished", "winner", winner, "reason", reason)
	s.broadcastLocked()
	if s.onFinish != nil {
		go s.onFinish(winner, reason)
	}
}

// SetOnFinish registers a hook fired once per finished game, off the
// session lock. The lobby uses it for rating updates and metrics.
func (s *Session) SetOnFinish(fn func(winner int, reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

// Rematch records a seat's wish to replay. When both agree the session
// resets to a fresh board with the same seats; the previous loser moves
// first. Returns true once the reset happened.
func (s *Session) Rematch(seat int) (bool, error) {
	if seat != 1 && seat != 2 {
		return false, ErrBadSeat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Finished {
		return false, errors.New("game not finished")
	}
	if s.seats[1] == nil || s.seats[2] == nil {
		return false, errors.New("opponent gone")
	}
	s.rematch[seat] = true
	if !(s.rematch[1] && s.rematch[2]) {
		return false, nil
	}

	first := 1
	if s.winner == 1 {
		first = 2
	}
	s.eng = NewEngine(s.cfg)
	s.eng.turn = first
	s.phase = AwaitingPlayers
	s.deployed[1], s.deployed[2] = false, false
	s.rematch[1], s.rematch[2] = false, false
	s.winner, s.draw, s.reason = 0, false, ""
	s.touch()

	s.log.Info("rematch accepted", "first_turn", first)
	s.broadcastLocked() // both clients redeploy off this sync
	return true, nil
}

// View renders the seat's redacted state.
func (s *Session) View(seat int) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(seat)
}

func (s *Session) viewLocked(seat int) SyncState {
	return SyncState{
		Phase:           s.phase.String(),
		You:             seat,
		Turn:            s.eng.Turn(),
		TurnCount:       s.eng.TurnCount(),
		Winner:          s.winner,
		Draw:            s.draw,
		Reason:          s.reason,
		VirusChecksLeft: s.eng.VirusChecksLeft(seat),
		Cells:           s.eng.viewFor(seat),
	}
}

func (s *Session) broadcastLocked() {
	for seat := 1; seat <= 2; seat++ {
		if fn := s.syncFn[seat]; fn != nil {
			fn(s.viewLocked(seat))
		}
	}
}

func (s *Session) touch() { s.lastActive = time.Now() }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Joinable reports whether a second player can still take seat 2.
func (s *Session) Joinable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == AwaitingPlayers && s.seats[1] != nil && s.seats[2] == nil
}

func (s *Session) Winner() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner, s.reason
}

func (s *Session) SeatName(seat int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seat != 1 && seat != 2 || s.seats[seat] == nil {
		return ""
	}
	return s.seats[seat].Name
}

func (s *Session) TurnOwner() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != InProgress {
		return 0
	}
	return s.eng.Turn()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
