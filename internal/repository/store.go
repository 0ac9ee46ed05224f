package repository

import (
	"context"

	"rainet_server/internal/domain"
)

// UserStore is the narrow account contract the session layer logs in
// against and reports ratings through. Implementations must be safe for
// concurrent use.
type UserStore interface {
	AddUser(ctx context.Context, name, password string, rating int) bool
	CheckLogin(ctx context.Context, name, password string) domain.LoginResult
	MustChangePassword(ctx context.Context, name string) (bool, error)
	GetRating(ctx context.Context, name string) (int, error)
	SetRating(ctx context.Context, name string, rating int) error
}
