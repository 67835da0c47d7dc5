package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// AppConfig carries everything the server reads from the environment.
type AppConfig struct {
	APIAddr string // fasthttp REST listener
	WSAddr  string // websocket listener

	RedisURL    string
	DatabaseURL string // optional; empty disables the archive

	GameTTLSec           int // how long idle sessions stay in redis
	DefaultMoveTimeLimit int // seconds per move when a game does not set one
	MaxOpenGames         int

	PresetDir string // optional layout override directory
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		APIAddr:              ":8080",
		WSAddr:               ":8081",
		GameTTLSec:           24 * 3600,
		DefaultMoveTimeLimit: 0,
		MaxOpenGames:         200,
	}

	if v := strings.TrimSpace(os.Getenv("API_ADDR")); v != "" {
		cfg.APIAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PresetDir = strings.TrimSpace(os.Getenv("PRESET_DIR"))

	if v := strings.TrimSpace(os.Getenv("GAME_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_MOVE_TIME_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultMoveTimeLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_OPEN_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxOpenGames = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}
