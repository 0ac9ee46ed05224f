package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"rainet_server/internal/domain"
	"rainet_server/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the Postgres-backed account store.
//
// Schema (see cmd/migrate_apply):
//
//	users(id BIGSERIAL, name VARCHAR(32) UNIQUE, rating INT,
//	      password_hash CHAR(64), password_salt CHAR(64),
//	      must_change_password BOOL, enabled BOOL, created_at TIMESTAMPTZ)
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) AddUser(ctx context.Context, name, password string, rating int) bool {
	if !ValidUserName(name) || password == "" {
		return false
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return false
	}
	saltHex := hex.EncodeToString(salt)

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (name, rating, password_hash, password_salt, must_change_password, enabled)
		 VALUES ($1, $2, $3, $4, false, true)`,
		name, rating, hashPassword(password, saltHex), saltHex,
	)
	if err != nil {
		logger.Error("user insert failed", "name", name, "error", err)
		return false
	}
	return true
}

func (r *UserRepository) CheckLogin(ctx context.Context, name, password string) domain.LoginResult {
	if !ValidUserName(name) {
		return domain.LoginInvalidUser
	}

	var hash, salt string
	var enabled bool
	err := r.db.QueryRow(ctx,
		`SELECT password_hash, password_salt, enabled FROM users WHERE name = $1`,
		name,
	).Scan(&hash, &salt, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LoginInvalidUser
	}
	if err != nil {
		logger.Error("login query failed", "name", name, "error", err)
		return domain.LoginStoreError
	}
	if !enabled {
		return domain.LoginInvalidUser
	}

	if subtle.ConstantTimeCompare([]byte(hash), []byte(hashPassword(password, salt))) != 1 {
		return domain.LoginInvalidPassword
	}
	return domain.LoginOK
}

func (r *UserRepository) MustChangePassword(ctx context.Context, name string) (bool, error) {
	var must bool
	err := r.db.QueryRow(ctx,
		`SELECT must_change_password FROM users WHERE name = $1`, name,
	).Scan(&must)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrUserNotFound
	}
	return must, err
}

func (r *UserRepository) GetRating(ctx context.Context, name string) (int, error) {
	var rating int
	err := r.db.QueryRow(ctx,
		`SELECT rating FROM users WHERE name = $1`, name,
	).Scan(&rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return rating, err
}

func (r *UserRepository) SetRating(ctx context.Context, name string, rating int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET rating = $2 WHERE name = $1`, name, rating,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetTopByRating returns the leaderboard, best rating first.
func (r *UserRepository) GetTopByRating(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, rating, must_change_password, enabled, created_at
		 FROM users WHERE enabled ORDER BY rating DESC, name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Rating, &u.MustChangePassword, &u.Enabled, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func hashPassword(password, saltHex string) string {
	sum := sha256.Sum256([]byte(saltHex + password))
	return hex.EncodeToString(sum[:])
}

// ValidUserName limits names to 1..32 visible ASCII characters, no
// spaces or control bytes.
func ValidUserName(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] <= ' ' || name[i] > '~' {
			return false
		}
	}
	return true
}
