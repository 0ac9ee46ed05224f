package domain

import "time"

// DefaultRating is the rating assigned to freshly registered accounts.
const DefaultRating = 1000

type User struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Rating             int       `json:"rating"`
	MustChangePassword bool      `json:"must_change_password"`
	Enabled            bool      `json:"enabled"`
	CreatedAt          time.Time `json:"created_at"`
}

// LoginResult classifies the outcome of a credential check.
type LoginResult int

const (
	LoginOK LoginResult = iota
	LoginInvalidUser
	LoginInvalidPassword
	LoginStoreError
)

func (r LoginResult) String() string {
	switch r {
	case LoginOK:
		return "ok"
	case LoginInvalidUser:
		return "invalid_user"
	case LoginInvalidPassword:
		return "invalid_password"
	default:
		return "store_error"
	}
}
