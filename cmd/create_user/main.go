package main

import (
	"context"
	"flag"
	"os"

	"rainet_server/internal/db"
	"rainet_server/internal/domain"
	"rainet_server/internal/logger"
	"rainet_server/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	name := flag.String("name", "", "user name (1-32 visible ASCII chars)")
	password := flag.String("password", "", "password")
	rating := flag.Int("rating", domain.DefaultRating, "initial rating")
	flag.Parse()

	if *name == "" || *password == "" {
		logger.Fatal("usage: create_user -name <name> -password <password> [-rating n]")
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	if !users.AddUser(context.Background(), *name, *password, *rating) {
		logger.Fatal("user not added", "name", *name)
	}
	logger.Info("user created", "name", *name, "rating", *rating)
}
