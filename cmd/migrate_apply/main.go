package main

import (
	"context"
	"os"

	"rainet_server/internal/db"
	"rainet_server/internal/logger"

	"github.com/joho/godotenv"
)

const usersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(32) NOT NULL UNIQUE,
	rating INT NOT NULL DEFAULT 1000,
	password_hash CHAR(64) NOT NULL,
	password_salt CHAR(64) NOT NULL,
	must_change_password BOOLEAN NOT NULL DEFAULT false,
	enabled BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_users_rating ON users (rating DESC);
`

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	if _, err := pool.Exec(context.Background(), usersTable); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	logger.Info("migration applied")
}
