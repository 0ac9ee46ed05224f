package config

import (
	"os"
	"strconv"
	"time"

	"rainet_server/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty means in-memory user store
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequireLogin  bool
	AllowedOrigin string

	// Session timing
	KeepAlive     time.Duration
	DeployTimeout time.Duration
	TurnTimeout   time.Duration
	IdleTimeout   time.Duration

	// Rule policy points
	FirewallStrength int
	StalemateLoses   bool // side to move with no legal move loses

	// Connect limits
	ConnRateLimit  int
	ConnRateWindow time.Duration
}

// Load reads the configuration from the environment. A .env file is
// honored when present.
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	requireLogin := os.Getenv("REQUIRE_LOGIN") == "true"
	if requireLogin && dbURL == "" {
		logger.Fatal("REQUIRE_LOGIN=true needs DATABASE_URL")
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:       port,
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RequireLogin:  requireLogin,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		KeepAlive:     envSeconds("KEEPALIVE_SECONDS", 30),
		DeployTimeout: envSeconds("DEPLOY_TIMEOUT_SECONDS", 60),
		TurnTimeout:   envSeconds("TURN_TIMEOUT_SECONDS", 120),
		IdleTimeout:   envSeconds("IDLE_TIMEOUT_SECONDS", 600),

		FirewallStrength: envInt("FIREWALL_STRENGTH", 2),
		StalemateLoses:   os.Getenv("STALEMATE_LOSES") != "false",

		ConnRateLimit:  envInt("CONN_RATE_LIMIT", 30),
		ConnRateWindow: envSeconds("CONN_RATE_WINDOW", 60),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}
