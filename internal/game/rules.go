package game

type MoveKind uint8

const (
	MoveStep MoveKind = iota
	MoveFirewall
	MoveVirusCheck
)

// Move is one player action. Step uses From and To. Firewall and
// VirusCheck target To only.
type Move struct {
	Kind MoveKind `json:"kind"`
	From Position `json:"from"`
	To   Position `json:"to"`
}

// RejectCode is the machine-readable reason a command was not applied.
// The values go on the wire; do not renumber.
type RejectCode int

const (
	RejectNone RejectCode = iota
	RejectNotYourTurn
	RejectSourceEmpty
	RejectSourceNotOwned
	RejectDestOccupiedOwn
	RejectIllegalGeometry
	RejectBlockedByFirewall
	RejectGameOver
	RejectNoVirusCheckLeft
	RejectBadFirewallTarget
	RejectBadCommand
	RejectNotDeployed
)

func (c RejectCode) String() string {
	switch c {
	case RejectNone:
		return "ok"
	case RejectNotYourTurn:
		return "not_your_turn"
	case RejectSourceEmpty:
		return "source_empty"
	case RejectSourceNotOwned:
		return "source_not_owned"
	case RejectDestOccupiedOwn:
		return "dest_occupied_own"
	case RejectIllegalGeometry:
		return "illegal_geometry"
	case RejectBlockedByFirewall:
		return "blocked_by_firewall"
	case RejectGameOver:
		return "game_over"
	case RejectNoVirusCheckLeft:
		return "no_virus_check_left"
	case RejectBadFirewallTarget:
		return "bad_firewall_target"
	case RejectNotDeployed:
		return "not_deployed"
	default:
		return "bad_command"
	}
}

// RuleConfig fixes the policy points the rules leave open.
type RuleConfig struct {
	// FirewallStrength is how many blocked entry attempts a firewall
	// absorbs before it is removed from the board.
	FirewallStrength int
	// StalemateLoses: the side to move with no legal move loses. When
	// false a stalemate finishes the game as a draw.
	StalemateLoses bool
	// VirusChecksPerSeat is the per-game budget of virus-check actions.
	VirusChecksPerSeat int
}

func DefaultRules() RuleConfig {
	return RuleConfig{FirewallStrength: 2, StalemateLoses: true, VirusChecksPerSeat: 1}
}

// Delta describes the side effects of one applied move.
type Delta struct {
	Move      Move
	Seat      int
	Revealed  []Position // cards whose type became public, post-move positions
	Captured  *Position  // stack slot the captured card landed on
	Winner    int        // 0 while the game goes on
	Stalemate bool       // game ended because the next seat had no move
}

// Engine is the authoritative rules engine over one board. It is not
// concurrency-safe; Session serializes access.
type Engine struct {
	board *Board
	cfg   RuleConfig

	turn      int // seat to move
	turnCount int
	winner    int
	over      bool
	draw      bool

	virusChecksLeft [3]int
	firewallField   [3]*BoardField // each seat's placed firewall, nil if none
}

// NewEngine builds a board with all 16 online cards on the stack rows.
// Stack slots 0..3 hold links, 4..7 viruses, for both seats. That
// placement invariant is what makes the deployment permutation the only
// secret of the setup phase.
func NewEngine(cfg RuleConfig) *Engine {
	e := &Engine{
		board: NewBoard(),
		cfg:   cfg,
		turn:  1,
	}
	e.virusChecksLeft[1] = cfg.VirusChecksPerSeat
	e.virusChecksLeft[2] = cfg.VirusChecksPerSeat

	for seat := 1; seat <= 2; seat++ {
		for i, f := range e.board.stack[seat] {
			t := LinkCard
			if i >= CardsPerSeat/2 {
				t = VirusCard
			}
			e.board.PlaceCard(f.Pos, newOnlineCard(seat, t))
		}
	}
	return e
}

func (e *Engine) Board() *Board  { return e.board }
func (e *Engine) Turn() int      { return e.turn }
func (e *Engine) TurnCount() int { return e.turnCount }
func (e *Engine) Winner() int    { return e.winner }
func (e *Engine) Over() bool     { return e.over }
func (e *Engine) Draw() bool     { return e.draw }

func (e *Engine) VirusChecksLeft(seat int) int {
	if seat != 1 && seat != 2 {
		return 0
	}
	return e.virusChecksLeft[seat]
}

// Deploy moves the seat's stack cards onto its deployment fields.
// order is a permutation of 0..7: deployment field i receives the card
// from stack slot order[i].
func (e *Engine) Deploy(seat int, order []int) bool {
	if seat != 1 && seat != 2 {
		return false
	}
	if len(order) != CardsPerSeat || !isPermutation(order) {
		return false
	}

	stack := e.board.stack[seat]
	for _, idx := range order {
		if stack[idx].Card == nil {
			return false // already deployed
		}
	}

	dep := e.board.deployment[seat]
	for i, idx := range order {
		c := e.board.take(stack[idx].Pos)
		if !e.board.PlaceCard(dep[i].Pos, c) {
			return false
		}
	}
	return true
}

func isPermutation(order []int) bool {
	var seen [CardsPerSeat]bool
	for _, v := range order {
		if v < 0 || v >= CardsPerSeat || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func opponent(seat int) int {
	if seat == 1 {
		return 2
	}
	return 1
}

// exitRow is the back row a seat attacks: its opponent's back rank.
func exitRow(seat int) int {
	if seat == 1 {
		return MainRows - 1
	}
	return 0
}

func (e *Engine) isDeploymentField(seat int, p Position) bool {
	for _, f := range e.board.deployment[seat] {
		if f.Pos == p {
			return true
		}
	}
	return false
}

// Validate checks a move without applying it.
func (e *Engine) Validate(seat int, mv Move) RejectCode {
	if e.over {
		return RejectGameOver
	}
	if seat != e.turn {
		return RejectNotYourTurn
	}

	switch mv.Kind {
	case MoveStep:
		return e.validateStep(seat, mv)
	case MoveFirewall:
		return e.validateFirewall(seat, mv)
	case MoveVirusCheck:
		return e.validateVirusCheck(seat, mv)
	default:
		return RejectBadCommand
	}
}

func (e *Engine) validateStep(seat int, mv Move) RejectCode {
	src := e.board.FieldAt(mv.From)
	dst := e.board.FieldAt(mv.To)
	if src == nil || dst == nil || !mv.From.InMain() || !mv.To.InMain() {
		return RejectIllegalGeometry
	}
	if src.Card == nil {
		return RejectSourceEmpty
	}
	if src.Card.Owner != seat || src.Card.Kind != OnlineKind {
		return RejectSourceNotOwned
	}

	// One orthogonal step.
	dx, dy := mv.To.X-mv.From.X, mv.To.Y-mv.From.Y
	if dx*dx+dy*dy != 1 {
		return RejectIllegalGeometry
	}

	// Own exits are walls; only the opponent scores there.
	if dst.Kind == FieldExit && mv.To.Y != exitRow(seat) {
		return RejectIllegalGeometry
	}

	if dst.Card != nil {
		if dst.Card.Owner == seat {
			return RejectDestOccupiedOwn
		}
		if dst.Card.Kind == FirewallKind {
			return RejectBlockedByFirewall
		}
	}
	return RejectNone
}

func (e *Engine) validateFirewall(seat int, mv Move) RejectCode {
	f := e.board.FieldAt(mv.To)
	if f == nil || !mv.To.InMain() {
		return RejectBadFirewallTarget
	}

	// Picking up your own firewall is always fine.
	if f.Card != nil && f.Card.Kind == FirewallKind && f.Card.Owner == seat {
		return RejectNone
	}

	if e.firewallField[seat] != nil {
		return RejectBadFirewallTarget // one on the board at a time
	}
	if f.Kind != FieldMain || f.Card != nil {
		return RejectBadFirewallTarget
	}
	// Placement is restricted to the seat's own half, outside both
	// deployment zones.
	half := mv.To.Y < MainRows/2
	if (seat == 1) != half {
		return RejectBadFirewallTarget
	}
	if e.isDeploymentField(1, mv.To) || e.isDeploymentField(2, mv.To) {
		return RejectBadFirewallTarget
	}
	return RejectNone
}

func (e *Engine) validateVirusCheck(seat int, mv Move) RejectCode {
	if e.virusChecksLeft[seat] <= 0 {
		return RejectNoVirusCheckLeft
	}
	c := e.board.CardAt(mv.To)
	if c == nil || !mv.To.InMain() {
		return RejectBadCommand
	}
	if c.Kind != OnlineKind || c.Owner == seat || c.Revealed {
		return RejectBadCommand
	}
	return RejectNone
}

// Apply validates and applies a move. A RejectBlockedByFirewall result
// additionally drains one strength point from the blocking firewall;
// the turn is not consumed (documented policy, see DESIGN.md).
func (e *Engine) Apply(seat int, mv Move) (*Delta, RejectCode) {
	if code := e.Validate(seat, mv); code != RejectNone {
		if code == RejectBlockedByFirewall {
			e.drainFirewall(mv.To)
		}
		return nil, code
	}

	d := &Delta{Move: mv, Seat: seat}

	switch mv.Kind {
	case MoveStep:
		e.applyStep(seat, mv, d)
	case MoveFirewall:
		e.applyFirewall(seat, mv)
	case MoveVirusCheck:
		e.virusChecksLeft[seat]--
		e.board.CardAt(mv.To).reveal()
		d.Revealed = append(d.Revealed, mv.To)
	}

	if d.Winner == 0 {
		e.endTurn(d)
	} else {
		e.winner = d.Winner
		e.over = true
	}
	return d, RejectNone
}

func (e *Engine) applyStep(seat int, mv Move, d *Delta) {
	dst := e.board.FieldAt(mv.To)

	// Capture: the opposing card is revealed and banked in the mover's
	// stack, so the 16-card total never changes.
	if dst.Card != nil {
		captured := e.board.take(mv.To)
		captured.reveal()
		slot := e.board.freeStackSlot(seat)
		e.board.PlaceCard(slot.Pos, captured)
		p := slot.Pos
		d.Captured = &p
		d.Revealed = append(d.Revealed, p)
	}

	mover := e.board.take(mv.From)
	e.board.PlaceCard(mv.To, mover)

	// Reveal on entering the opponent's deployment zone or an exit.
	if !mover.Revealed &&
		(e.isDeploymentField(opponent(seat), mv.To) || dst.Kind == FieldExit) {
		mover.reveal()
		d.Revealed = append(d.Revealed, mv.To)
	}

	if dst.Kind == FieldExit && mv.To.Y == exitRow(seat) && mover.Type == LinkCard {
		d.Winner = seat
	}

	// Banking the opponent's fourth link wins; banking their fourth
	// virus loses.
	if d.Captured != nil && d.Winner == 0 {
		links, viruses := e.capturedCounts(seat)
		if links >= CardsPerSeat/2 {
			d.Winner = seat
		} else if viruses >= CardsPerSeat/2 {
			d.Winner = opponent(seat)
		}
	}
}

// capturedCounts tallies opposing cards sitting in the seat's stack.
// After deployment the stack holds captures only.
func (e *Engine) capturedCounts(seat int) (links, viruses int) {
	for _, f := range e.board.stack[seat] {
		c := f.Card
		if c == nil || c.Owner == seat {
			continue
		}
		if c.Type == LinkCard {
			links++
		} else {
			viruses++
		}
	}
	return links, viruses
}

func (e *Engine) applyFirewall(seat int, mv Move) {
	f := e.board.FieldAt(mv.To)
	if f.Card != nil {
		// pick up
		e.board.take(mv.To)
		e.firewallField[seat] = nil
		return
	}
	e.board.PlaceCard(mv.To, newFirewallCard(seat, e.cfg.FirewallStrength))
	e.firewallField[seat] = f
}

func (e *Engine) drainFirewall(p Position) {
	c := e.board.CardAt(p)
	if c == nil || c.Kind != FirewallKind {
		return
	}
	c.Strength--
	if c.Strength <= 0 {
		e.board.take(p)
		e.firewallField[c.Owner] = nil
	}
}

func (e *Engine) endTurn(d *Delta) {
	e.turnCount++
	e.turn = opponent(e.turn)

	if !e.HasLegalMove(e.turn) {
		d.Stalemate = true
		if e.cfg.StalemateLoses {
			d.Winner = opponent(e.turn)
			e.winner = d.Winner
		} else {
			e.draw = true
		}
		e.over = true
	}
}

// HasLegalMove reports whether the seat has at least one legal action.
func (e *Engine) HasLegalMove(seat int) bool {
	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < MainRows; y++ {
			from := Position{x, y}
			c := e.board.CardAt(from)
			if c == nil || c.Owner != seat || c.Kind != OnlineKind {
				continue
			}
			for _, dxy := range dirs {
				to := Position{x + dxy[0], y + dxy[1]}
				if e.validateStep(seat, Move{Kind: MoveStep, From: from, To: to}) == RejectNone {
					return true
				}
			}
		}
	}

	// A firewall placement or pickup also counts as a turn.
	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < MainRows; y++ {
			if e.validateFirewall(seat, Move{Kind: MoveFirewall, To: Position{x, y}}) == RejectNone {
				return true
			}
		}
	}

	if e.virusChecksLeft[seat] > 0 {
		for x := 0; x < BoardWidth; x++ {
			for y := 0; y < MainRows; y++ {
				if e.validateVirusCheck(seat, Move{Kind: MoveVirusCheck, To: Position{x, y}}) == RejectNone {
					return true
				}
			}
		}
	}
	return false
}

// LegalMoves enumerates every legal action for the seat. AI and tests
// use this; the server path never needs it.
func (e *Engine) LegalMoves(seat int) []Move {
	var out []Move
	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < MainRows; y++ {
			from := Position{x, y}
			for _, dxy := range dirs {
				mv := Move{Kind: MoveStep, From: from, To: Position{x + dxy[0], y + dxy[1]}}
				if e.validateStep(seat, mv) == RejectNone {
					out = append(out, mv)
				}
			}
			if mv := (Move{Kind: MoveFirewall, To: from}); e.validateFirewall(seat, mv) == RejectNone {
				out = append(out, mv)
			}
			if mv := (Move{Kind: MoveVirusCheck, To: from}); e.validateVirusCheck(seat, mv) == RejectNone {
				out = append(out, mv)
			}
		}
	}
	return out
}
