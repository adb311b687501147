package gamesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const archive = `[Event "Club"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0

[Event "Endgame"]
[FEN "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"]
[SetUp "1"]
[Result "*"]

1. e4 Kd7 *

[Event "Short"]
[Result "0-1"]

1. d4 d5 0-1
`

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.pgn")
	if err := os.WriteFile(path, []byte(archive), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	games, err := ReadFile(context.Background(), writeArchive(t), 0, nil)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("games = %d, want 3", len(games))
	}
	first := games[0]
	if first.White.Name != "Alice" || first.Result != "1-0" || len(first.Moves) != 7 {
		t.Fatalf("first game = %+v", first)
	}
	if first.Moves[6] != "h5f7" {
		t.Fatalf("mate move = %s, want h5f7", first.Moves[6])
	}
	end := games[1]
	if end.InitialFEN != "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1" {
		t.Fatalf("initial fen = %q", end.InitialFEN)
	}
	if len(end.Moves) != 2 || end.Moves[0] != "e2e4" || end.Moves[1] != "e8d7" {
		t.Fatalf("endgame moves = %v", end.Moves)
	}
}

func TestReadFileMax(t *testing.T) {
	games, err := ReadFile(context.Background(), writeArchive(t), 1, nil)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games = %d, want 1", len(games))
	}
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pgn")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadFile(context.Background(), path, 0, nil); !errors.Is(err, ErrNoGames) {
		t.Fatalf("expected ErrNoGames, got %v", err)
	}
}
