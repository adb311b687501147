package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REVIEW_CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.ReviewSettings()
	if s.Depth != 12 || s.PositionTimeout != 10*time.Second || s.CriticalCount != 3 {
		t.Fatalf("settings = %+v", s)
	}
	if s.Thresholds.Inaccuracy != 50 || s.Thresholds.Mistake != 150 || s.Thresholds.Blunder != 250 {
		t.Fatalf("thresholds = %+v", s.Thresholds)
	}
	if cfg.CacheTTL != 720*time.Hour {
		t.Fatalf("cache ttl = %s", cfg.CacheTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REVIEW_DEPTH", "15")
	t.Setenv("REVIEW_POSITION_TIMEOUT", "3s")
	t.Setenv("REVIEW_BLUNDER_CP", "300")
	t.Setenv("REVIEW_CRITICAL_MOMENTS", "0")
	t.Setenv("ENGINE_HASH_MB", "256")
	t.Setenv("REVIEW_CACHE_TTL", "60")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.ReviewSettings()
	if s.Depth != 15 || s.PositionTimeout != 3*time.Second || s.Thresholds.Blunder != 300 || s.CriticalCount != 0 {
		t.Fatalf("settings = %+v", s)
	}
	p, err := cfg.AnalysisPreset()
	if err != nil || p.HashMB != 256 || p.Depth != 15 {
		t.Fatalf("preset = %+v, %v", p, err)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("cache ttl = %s", cfg.CacheTTL)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	t.Setenv("REVIEW_MISTAKE_CP", "20")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-increasing thresholds")
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("REVIEW_WORKERS", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.yaml")
	body := `
stockfish_path: /usr/bin/stockfish
engine:
  preset: quick
review:
  position_timeout: 2s
  thresholds:
    inaccuracy: 20
    mistake: 75
    blunder: 300
  critical_moments: 5
chesscom:
  username: hikaru
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("REVIEW_CONFIG_FILE", path)
	t.Setenv("CHESS_USERNAME", "magnus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.ReviewSettings()
	if s.Depth != 8 {
		t.Fatalf("depth should come from the quick preset, got %d", s.Depth)
	}
	if s.Thresholds.Inaccuracy != 20 || s.Thresholds.Blunder != 300 || s.CriticalCount != 5 || s.PositionTimeout != 2*time.Second {
		t.Fatalf("settings = %+v", s)
	}
	if cfg.StockfishPath != "/usr/bin/stockfish" {
		t.Fatalf("stockfish path = %q", cfg.StockfishPath)
	}
	if cfg.ChessUsername != "magnus" {
		t.Fatalf("env should win over file, got %q", cfg.ChessUsername)
	}
}

func TestLoadUnknownPreset(t *testing.T) {
	t.Setenv("REVIEW_PRESET", "nope")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}
