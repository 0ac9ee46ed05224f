package repository

import (
	"context"
	"strings"
	"testing"

	"rainet_server/internal/domain"
)

func TestValidUserName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"alice", true},
		{"a", true},
		{"Neo_2046", true},
		{strings.Repeat("x", 32), true},
		{"", false},
		{strings.Repeat("x", 33), false},
		{"with space", false},
		{"tab\there", false},
		{"nonascii\xc3\xa9", false},
	}
	for _, tc := range cases {
		if got := ValidUserName(tc.name); got != tc.want {
			t.Fatalf("ValidUserName(%q) = %v; want %v", tc.name, got, tc.want)
		}
	}
}

func TestMemoryStoreLoginFlow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	if !s.AddUser(ctx, "alice", "pw", 1000) {
		t.Fatal("AddUser failed")
	}
	if s.AddUser(ctx, "alice", "other", 1000) {
		t.Fatal("duplicate user accepted")
	}
	if s.AddUser(ctx, "bad name", "pw", 1000) {
		t.Fatal("invalid name accepted")
	}

	cases := []struct {
		name, password string
		want           domain.LoginResult
	}{
		{"alice", "pw", domain.LoginOK},
		{"alice", "wrong", domain.LoginInvalidPassword},
		{"ghost", "pw", domain.LoginInvalidUser},
	}
	for _, tc := range cases {
		if got := s.CheckLogin(ctx, tc.name, tc.password); got != tc.want {
			t.Fatalf("CheckLogin(%q, %q) = %v; want %v", tc.name, tc.password, got, tc.want)
		}
	}
}

func TestMemoryStoreRatings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	s.AddUser(ctx, "alice", "pw", 1200)

	if r, err := s.GetRating(ctx, "alice"); err != nil || r != 1200 {
		t.Fatalf("GetRating = %d, %v", r, err)
	}
	if err := s.SetRating(ctx, "alice", 1250); err != nil {
		t.Fatal(err)
	}
	if r, _ := s.GetRating(ctx, "alice"); r != 1250 {
		t.Fatalf("rating after update = %d; want 1250", r)
	}

	if _, err := s.GetRating(ctx, "ghost"); err != ErrUserNotFound {
		t.Fatalf("GetRating(ghost) = %v; want ErrUserNotFound", err)
	}
	if err := s.SetRating(ctx, "ghost", 1); err != ErrUserNotFound {
		t.Fatalf("SetRating(ghost) = %v; want ErrUserNotFound", err)
	}
}

func TestMemoryStoreEnsure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	s.Ensure("guest")
	if r, err := s.GetRating(ctx, "guest"); err != nil || r != domain.DefaultRating {
		t.Fatalf("ensured guest rating = %d, %v; want %d", r, err, domain.DefaultRating)
	}

	// Ensure never resets an existing account.
	if err := s.SetRating(ctx, "guest", 1300); err != nil {
		t.Fatal(err)
	}
	s.Ensure("guest")
	if r, _ := s.GetRating(ctx, "guest"); r != 1300 {
		t.Fatalf("Ensure reset the rating to %d", r)
	}
}

func TestHashPasswordDependsOnSalt(t *testing.T) {
	a := hashPassword("pw", "salt-one")
	b := hashPassword("pw", "salt-two")
	if a == b {
		t.Fatal("same hash under different salts")
	}
	if len(a) != 64 {
		t.Fatalf("hash length %d; want 64 hex chars", len(a))
	}
}
