// Package config loads server settings from the environment, with a .env
// file honored in development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisAddr string
	RedisDB   int

	CORSAllow []string

	// Draft rules applied to every room.
	TurnTimeout    time.Duration
	PicksPerMember int

	// Market data feed.
	MarketBaseURL   string
	MarketAPIKey    string
	MarketAPISecret string
	ChunkMinutes    int
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		TurnTimeout:     time.Duration(getEnvInt("DRAFT_TURN_SECONDS", 30)) * time.Second,
		PicksPerMember:  getEnvInt("DRAFT_PICKS_PER_MEMBER", 5),
		MarketBaseURL:   getEnv("MARKET_BASE_URL", "https://data.alpaca.markets"),
		MarketAPIKey:    getEnv("MARKET_API_KEY", ""),
		MarketAPISecret: getEnv("MARKET_API_SECRET", ""),
		ChunkMinutes:    getEnvInt("TIME_CHUNK_SIZE", 5),
	}
	cfg.CORSAllow = splitCSV(getEnv("CORS_ALLOW", "http://localhost:5173"))
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
