package game

// Board geometry. 8 columns by 10 rows. Rows 0..7 are playable, rows 8
// and 9 hold the two hidden-card stacks (seat 1 row 8, seat 2 row 9).
// Exit fields sit at columns 3 and 4 on rows 0 and 7. Deployment rows
// bend one row inward at the exit columns so pieces never start on an
// exit:
//
//	seat 1: (0,0)..(2,0) (3,1) (4,1) (5,0)..(7,0)
//	seat 2: (0,7)..(2,7) (3,6) (4,6) (5,7)..(7,7)
const (
	BoardWidth  = 8
	BoardHeight = 10
	MainRows    = 8

	CardsPerSeat = 8
	TotalCards   = 16
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) InBoard() bool {
	return p.X >= 0 && p.X < BoardWidth && p.Y >= 0 && p.Y < BoardHeight
}

func (p Position) InMain() bool {
	return p.X >= 0 && p.X < BoardWidth && p.Y >= 0 && p.Y < MainRows
}

type FieldKind uint8

const (
	FieldMain FieldKind = iota
	FieldExit
	FieldStack
)

func (k FieldKind) String() string {
	switch k {
	case FieldExit:
		return "exit"
	case FieldStack:
		return "stack"
	default:
		return "main"
	}
}

// BoardField holds at most one card. Kind is fixed at construction.
type BoardField struct {
	Pos  Position
	Kind FieldKind
	Card *Card
}

type Board struct {
	fields [BoardWidth][BoardHeight]*BoardField

	deployment [3][]*BoardField // indexed by seat, [0] unused
	stack      [3][]*BoardField
}

func NewBoard() *Board {
	b := &Board{}
	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < BoardHeight; y++ {
			kind := FieldMain
			if y >= MainRows {
				kind = FieldStack
			} else if (x == 3 || x == 4) && (y == 0 || y == MainRows-1) {
				kind = FieldExit
			}
			b.fields[x][y] = &BoardField{Pos: Position{x, y}, Kind: kind}
		}
	}

	b.deployment[1] = b.row([8]Position{
		{0, 0}, {1, 0}, {2, 0}, {3, 1}, {4, 1}, {5, 0}, {6, 0}, {7, 0}})
	b.deployment[2] = b.row([8]Position{
		{0, 7}, {1, 7}, {2, 7}, {3, 6}, {4, 6}, {5, 7}, {6, 7}, {7, 7}})

	for x := 0; x < BoardWidth; x++ {
		b.stack[1] = append(b.stack[1], b.fields[x][8])
		b.stack[2] = append(b.stack[2], b.fields[x][9])
	}
	return b
}

func (b *Board) row(ps [8]Position) []*BoardField {
	out := make([]*BoardField, 0, 8)
	for _, p := range ps {
		out = append(out, b.fields[p.X][p.Y])
	}
	return out
}

// FieldAt returns nil for positions outside the 8x10 grid.
func (b *Board) FieldAt(p Position) *BoardField {
	if !p.InBoard() {
		return nil
	}
	return b.fields[p.X][p.Y]
}

func (b *Board) CardAt(p Position) *Card {
	f := b.FieldAt(p)
	if f == nil {
		return nil
	}
	return f.Card
}

// PlaceCard is the single mutation point for field contents. It fails
// without mutating anything when the position is off the grid or the
// field is occupied.
func (b *Board) PlaceCard(p Position, c *Card) bool {
	f := b.FieldAt(p)
	if f == nil || f.Card != nil || c == nil {
		return false
	}
	f.Card = c
	return true
}

// take clears a field and returns its card. Rules-engine internal; every
// move is a take followed by PlaceCard so ownership transfers whole.
func (b *Board) take(p Position) *Card {
	f := b.FieldAt(p)
	if f == nil || f.Card == nil {
		return nil
	}
	c := f.Card
	f.Card = nil
	return c
}

// DeploymentFields returns the seat's 8 starting fields in column order.
// The slice is freshly allocated; the underlying set never changes.
func (b *Board) DeploymentFields(seat int) []*BoardField {
	if seat != 1 && seat != 2 {
		return nil
	}
	return append([]*BoardField(nil), b.deployment[seat]...)
}

// StackFields returns the seat's 8 stack fields in column order.
func (b *Board) StackFields(seat int) []*BoardField {
	if seat != 1 && seat != 2 {
		return nil
	}
	return append([]*BoardField(nil), b.stack[seat]...)
}

// freeStackSlot returns the seat's first empty stack field, nil if full.
func (b *Board) freeStackSlot(seat int) *BoardField {
	for _, f := range b.stack[seat] {
		if f.Card == nil {
			return f
		}
	}
	return nil
}

// OnlineCardCount counts online cards everywhere on the grid, stacks
// included. It must equal TotalCards for the whole life of a game.
func (b *Board) OnlineCardCount() int {
	n := 0
	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < BoardHeight; y++ {
			if c := b.fields[x][y].Card; c != nil && c.Kind == OnlineKind {
				n++
			}
		}
	}
	return n
}
