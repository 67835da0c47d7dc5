package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("API_ADDR", "")
	t.Setenv("WS_ADDR", "")
	t.Setenv("GAME_TTL_SEC", "")
	t.Setenv("MAX_OPEN_GAMES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIAddr != ":8080" || cfg.WSAddr != ":8081" {
		t.Fatalf("addrs = %s / %s", cfg.APIAddr, cfg.WSAddr)
	}
	if cfg.GameTTLSec != 86400 || cfg.MaxOpenGames != 200 {
		t.Fatalf("defaults: ttl=%d maxOpen=%d", cfg.GameTTLSec, cfg.MaxOpenGames)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://redis:6379/1")
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("WS_ADDR", ":9091")
	t.Setenv("GAME_TTL_SEC", "3600")
	t.Setenv("MAX_OPEN_GAMES", "50")
	t.Setenv("DEFAULT_MOVE_TIME_LIMIT", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIAddr != ":9090" || cfg.WSAddr != ":9091" {
		t.Fatalf("addrs = %s / %s", cfg.APIAddr, cfg.WSAddr)
	}
	if cfg.GameTTLSec != 3600 || cfg.MaxOpenGames != 50 || cfg.DefaultMoveTimeLimit != 30 {
		t.Fatalf("overrides lost: %+v", cfg)
	}
}

func TestLoadRequiresRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("missing REDIS_URL accepted")
	}
}

func TestLoadIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("GAME_TTL_SEC", "soon")
	t.Setenv("MAX_OPEN_GAMES", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GameTTLSec != 86400 || cfg.MaxOpenGames != 200 {
		t.Fatalf("garbage values accepted: %+v", cfg)
	}
}
