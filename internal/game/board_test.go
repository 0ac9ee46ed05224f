package game

import "testing"

func TestPlaceCardOutOfRange(t *testing.T) {
	cases := []Position{
		{-1, 0}, {0, -1}, {8, 0}, {0, 10}, {8, 10}, {-1, -1}, {100, 100},
	}

	for _, pos := range cases {
		b := NewBoard()
		before := b.OnlineCardCount()
		if b.PlaceCard(pos, newOnlineCard(1, LinkCard)) {
			t.Fatalf("PlaceCard(%v) succeeded for out-of-range position", pos)
		}
		if b.OnlineCardCount() != before {
			t.Fatalf("PlaceCard(%v) mutated the board on failure", pos)
		}
	}
}

func TestPlaceCardOccupied(t *testing.T) {
	b := NewBoard()
	pos := Position{2, 3}

	if !b.PlaceCard(pos, newOnlineCard(1, LinkCard)) {
		t.Fatal("first placement failed")
	}
	second := newOnlineCard(2, VirusCard)
	if b.PlaceCard(pos, second) {
		t.Fatal("placement on occupied field succeeded")
	}
	if got := b.CardAt(pos); got == nil || got.Owner != 1 {
		t.Fatal("occupied field was mutated by failed placement")
	}
}

func TestPlaceCardNil(t *testing.T) {
	b := NewBoard()
	if b.PlaceCard(Position{0, 0}, nil) {
		t.Fatal("nil card placement succeeded")
	}
}

func TestFieldKinds(t *testing.T) {
	b := NewBoard()
	cases := []struct {
		pos  Position
		want FieldKind
	}{
		{Position{0, 0}, FieldMain},
		{Position{3, 0}, FieldExit},
		{Position{4, 0}, FieldExit},
		{Position{3, 7}, FieldExit},
		{Position{4, 7}, FieldExit},
		{Position{2, 0}, FieldMain},
		{Position{5, 7}, FieldMain},
		{Position{3, 3}, FieldMain},
		{Position{0, 8}, FieldStack},
		{Position{7, 9}, FieldStack},
	}
	for _, tc := range cases {
		if got := b.FieldAt(tc.pos).Kind; got != tc.want {
			t.Fatalf("FieldAt(%v).Kind = %v; want %v", tc.pos, got, tc.want)
		}
	}
}

func TestSeatFieldSetsDisjointAndStable(t *testing.T) {
	b := NewBoard()

	for _, query := range []func(int) []*BoardField{b.DeploymentFields, b.StackFields} {
		s1, s2 := query(1), query(2)
		if len(s1) != 8 || len(s2) != 8 {
			t.Fatalf("field sets must have 8 entries, got %d and %d", len(s1), len(s2))
		}
		seen := map[Position]bool{}
		for _, f := range append(append([]*BoardField{}, s1...), s2...) {
			if seen[f.Pos] {
				t.Fatalf("field %v appears in both seats' sets", f.Pos)
			}
			seen[f.Pos] = true
		}

		// Stable across repeated queries.
		again := query(1)
		for i := range s1 {
			if s1[i].Pos != again[i].Pos {
				t.Fatalf("field set changed between queries at index %d", i)
			}
		}
	}

	if b.DeploymentFields(0) != nil || b.StackFields(3) != nil {
		t.Fatal("invalid seats must return nil")
	}
}

func TestStackFieldsColumnOrder(t *testing.T) {
	b := NewBoard()
	for i, f := range b.StackFields(1) {
		if f.Pos != (Position{i, 8}) {
			t.Fatalf("stack field %d of seat 1 at %v; want (%d,8)", i, f.Pos, i)
		}
	}
	for i, f := range b.StackFields(2) {
		if f.Pos != (Position{i, 9}) {
			t.Fatalf("stack field %d of seat 2 at %v; want (%d,9)", i, f.Pos, i)
		}
	}
}
