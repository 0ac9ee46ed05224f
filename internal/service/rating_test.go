package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"rainet_server/internal/repository"
)

func TestElo(t *testing.T) {
	cases := []struct {
		name          string
		winner, loser int
		wantW, wantL  int
	}{
		{"equal ratings", 1000, 1000, 1016, 984},
		{"favorite wins", 1200, 1000, 1208, 992},
		{"upset", 1000, 1200, 1024, 1176},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotW, gotL := Elo(tc.winner, tc.loser)
			if gotW != tc.wantW || gotL != tc.wantL {
				t.Fatalf("Elo(%d, %d) = %d, %d; want %d, %d",
					tc.winner, tc.loser, gotW, gotL, tc.wantW, tc.wantL)
			}
		})
	}
}

func TestEloZeroSum(t *testing.T) {
	for _, pair := range [][2]int{{800, 1600}, {1234, 1233}, {1500, 900}} {
		w, l := Elo(pair[0], pair[1])
		if w+l != pair[0]+pair[1] {
			t.Fatalf("Elo(%d, %d) leaked points: %d + %d", pair[0], pair[1], w, l)
		}
		if w < pair[0] || l > pair[1] {
			t.Fatalf("Elo(%d, %d) moved ratings the wrong way: %d, %d", pair[0], pair[1], w, l)
		}
	}
}

func TestRecordResult(t *testing.T) {
	store := repository.NewMemoryUserStore()
	ctx := context.Background()
	store.AddUser(ctx, "alice", "pw", 1000)
	store.AddUser(ctx, "bob", "pw", 1000)

	svc := NewRatingService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.RecordResult(ctx, "alice", "bob")

	if r, _ := store.GetRating(ctx, "alice"); r != 1016 {
		t.Fatalf("winner rating = %d; want 1016", r)
	}
	if r, _ := store.GetRating(ctx, "bob"); r != 984 {
		t.Fatalf("loser rating = %d; want 984", r)
	}
}

func TestRecordResultSkipsUnknownPlayers(t *testing.T) {
	store := repository.NewMemoryUserStore()
	ctx := context.Background()
	store.AddUser(ctx, "alice", "pw", 1000)

	svc := NewRatingService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	// AI opponent is not in the store: the human's rating must not move.
	svc.RecordResult(ctx, "alice", "cpu-0001")

	if r, _ := store.GetRating(ctx, "alice"); r != 1000 {
		t.Fatalf("rating moved to %d in a game against an unknown player", r)
	}
}
