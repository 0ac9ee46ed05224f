package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"rainet_server/internal/repository"
)

const eloK = 32

// RatingService applies ELO updates through the user store after each
// decided game. Store trouble is logged and swallowed; a rating write
// must never take a session down with it.
type RatingService struct {
	store repository.UserStore
	log   *slog.Logger
}

func NewRatingService(store repository.UserStore, log *slog.Logger) *RatingService {
	return &RatingService{store: store, log: log}
}

func (s *RatingService) RecordResult(ctx context.Context, winner, loser string) {
	wr, err := s.store.GetRating(ctx, winner)
	if err != nil {
		s.skip(winner, err)
		return
	}
	lr, err := s.store.GetRating(ctx, loser)
	if err != nil {
		s.skip(loser, err)
		return
	}

	newW, newL := Elo(wr, lr)
	if err := s.store.SetRating(ctx, winner, newW); err != nil {
		s.log.Error("rating update failed", "player", winner, "error", err)
		return
	}
	if err := s.store.SetRating(ctx, loser, newL); err != nil {
		s.log.Error("rating update failed", "player", loser, "error", err)
		return
	}
	s.log.Info("ratings updated",
		"winner", winner, "winner_rating", newW,
		"loser", loser, "loser_rating", newL)
}

func (s *RatingService) skip(name string, err error) {
	// AI seats and open-mode guests are not in the store.
	if errors.Is(err, repository.ErrUserNotFound) {
		return
	}
	s.log.Error("rating lookup failed", "player", name, "error", err)
}

// Elo returns the post-game ratings for winner and loser.
func Elo(winner, loser int) (int, int) {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loser-winner)/400.0))
	delta := int(math.Round(eloK * (1.0 - expected)))
	return winner + delta, loser - delta
}
