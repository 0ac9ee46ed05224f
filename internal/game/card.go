package game

// Card is a tagged variant over the two card kinds. The rules engine
// switches on Kind exhaustively; there is no behavior on the card
// itself.
type CardKind uint8

const (
	OnlineKind CardKind = iota
	FirewallKind
)

type OnlineType uint8

const (
	LinkCard OnlineType = iota
	VirusCard
)

func (t OnlineType) String() string {
	if t == VirusCard {
		return "virus"
	}
	return "link"
}

type Card struct {
	Kind  CardKind
	Owner int // seat 1 or 2

	// Online cards only. Revealed is monotonic: reveal() is the only
	// writer and it never clears.
	Type     OnlineType
	Revealed bool

	// Firewall cards only.
	Strength int
}

func newOnlineCard(owner int, t OnlineType) *Card {
	return &Card{Kind: OnlineKind, Owner: owner, Type: t}
}

func newFirewallCard(owner, strength int) *Card {
	return &Card{Kind: FirewallKind, Owner: owner, Strength: strength}
}

func (c *Card) reveal() {
	if c.Kind == OnlineKind {
		c.Revealed = true
	}
}
