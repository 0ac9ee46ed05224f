package game

// SyncState is the full-state view one seat is allowed to see. It is
// the payload of every GameSync packet; redaction happens here and
// nowhere later, so nothing past this point can leak a hidden type.

type CardView struct {
	Kind     string `json:"kind"` // "online" | "firewall"
	Owner    int    `json:"owner"`
	Type     string `json:"type,omitempty"` // "link" | "virus" | "hidden"
	Revealed bool   `json:"revealed,omitempty"`
	Strength int    `json:"strength,omitempty"`
}

type CellView struct {
	Pos  Position  `json:"pos"`
	Kind string    `json:"kind"`
	Card *CardView `json:"card"`
}

type SyncState struct {
	Phase           string     `json:"phase"`
	You             int        `json:"you"`
	Turn            int        `json:"turn"`
	TurnCount       int        `json:"turn_count"`
	Winner          int        `json:"winner"`
	Draw            bool       `json:"draw,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	VirusChecksLeft int        `json:"virus_checks_left"`
	Cells           []CellView `json:"cells"`
}

// viewFor renders the board for one seat. Opposing online cards keep
// their type hidden until revealed.
func (e *Engine) viewFor(seat int) []CellView {
	var cells []CellView
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			f := e.board.fields[x][y]
			if f.Card == nil {
				continue
			}
			cells = append(cells, CellView{
				Pos:  f.Pos,
				Kind: f.Kind.String(),
				Card: redact(f.Card, seat),
			})
		}
	}
	return cells
}

func redact(c *Card, seat int) *CardView {
	switch c.Kind {
	case FirewallKind:
		return &CardView{Kind: "firewall", Owner: c.Owner, Strength: c.Strength}
	default:
		v := &CardView{Kind: "online", Owner: c.Owner, Revealed: c.Revealed}
		if c.Owner == seat || c.Revealed {
			v.Type = c.Type.String()
		} else {
			v.Type = "hidden"
		}
		return v
	}
}
