package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/park285/cheese-review/internal/review"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-pgn", "games.pgn", "-format", "JSON", "-max", "4", "-moves"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.pgnPath != "games.pgn" || o.format != "json" || o.maxGames != 4 || !o.withMoves {
		t.Fatalf("options = %+v", o)
	}
	if o.games != 1 {
		t.Fatalf("default games = %d", o.games)
	}
	if _, err := parseFlags([]string{"-format", "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestLimit(t *testing.T) {
	games := []review.GameInput{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got, err := limit(games, nil)(2)
	if err != nil || len(got) != 2 || got[1].ID != "b" {
		t.Fatalf("limit = %+v, %v", got, err)
	}
	got, _ = limit(games, nil)(0)
	if len(got) != 3 {
		t.Fatalf("zero max should keep all, got %d", len(got))
	}
	if _, err := limit(nil, os.ErrNotExist)(1); err == nil {
		t.Fatalf("expected error passthrough")
	}
}

func TestImageWriter(t *testing.T) {
	if imageWriter("") != nil {
		t.Fatalf("empty dir should disable image output")
	}
	dir := filepath.Join(t.TempDir(), "moments")
	w := imageWriter(dir)
	if err := w("g-ply006.png", []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "g-ply006.png"))
	if err != nil || len(data) != 3 {
		t.Fatalf("read back = %v, %v", data, err)
	}
}
