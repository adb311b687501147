package gamesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/park285/cheese-review/internal/review"
)

const chessComGame = `[Event "Live Chess"]
[Site "Chess.com"]
[Date "2026.03.01"]
[White "alice"]
[Black "Bob \"the\" Builder"]
[Result "0-1"]
[WhiteElo "1510"]
[BlackElo "?"]
[TimeControl "600"]
[Link "https://www.chess.com/game/live/123456"]

%exported by the archive
1. e4 {[%clk 0:09:58]} 1... e5 2. Nf3?! (2. f4 exf4 3. Nf3) 2... Nc6 $6
3. Bc4 Nd4!? ; trap
4. Nxe5?? Qg5 0-1
`

func TestParsePGNStripsAnnotations(t *testing.T) {
	g, err := ParsePGN(chessComGame)
	if err != nil {
		t.Fatalf("ParsePGN: %v", err)
	}
	want := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "c6d4", "f3e5", "d8g5"}
	if !reflect.DeepEqual(g.Moves, want) {
		t.Fatalf("moves = %v", g.Moves)
	}
	if g.ID != "https://www.chess.com/game/live/123456" {
		t.Fatalf("id = %q", g.ID)
	}
	if g.White.Name != "alice" || g.White.Rating != 1510 || g.Black.Rating != 0 {
		t.Fatalf("players = %+v / %+v", g.White, g.Black)
	}
	if g.Black.Name != `Bob "the" Builder` {
		t.Fatalf("escaped tag = %q", g.Black.Name)
	}
	if g.Result != "0-1" || g.TimeControl != "600" {
		t.Fatalf("result/tc = %q %q", g.Result, g.TimeControl)
	}
}

func TestParseAllSplitsGames(t *testing.T) {
	text := `[White "a"]
[Black "b"]
[Result "1/2-1/2"]

1. d4 d5 1/2-1/2

[White "c"]
[Black "d"]
[SetUp "1"]
[FEN "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"]

1. e4 *
`
	games, err := ParseAll(text)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("games = %d", len(games))
	}
	if games[0].Result != "1/2-1/2" || len(games[0].Moves) != 2 {
		t.Fatalf("first = %+v", games[0])
	}
	if games[1].InitialFEN != "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1" || games[1].White.Name != "c" || games[1].Moves[0] != "e2e4" {
		t.Fatalf("second = %+v", games[1])
	}
	if _, err := ParsePGN(text); err == nil {
		t.Fatalf("ParsePGN should reject multiple games")
	}
}

func TestParseAllMovetextWithoutTags(t *testing.T) {
	games, err := ParseAll("1.e4 e5 2.Qh5 Nc6 3.Bc4 Nf6 4.Qxf7#")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(games) != 1 || len(games[0].Moves) != 7 || games[0].Moves[6] != "h5f7" {
		t.Fatalf("games = %+v", games)
	}
	if games[0].Result != "1-0" {
		t.Fatalf("checkmate should imply the result, got %q", games[0].Result)
	}
}

func TestParseAllZeroCastling(t *testing.T) {
	g, err := ParsePGN("1. e4 e5 2. Nf3 Nc6 3. Bc4 Nf6 4. 0-0 Be7 *")
	if err != nil {
		t.Fatalf("ParsePGN: %v", err)
	}
	if len(g.Moves) != 8 || g.Moves[6] != "e1g1" || g.Moves[7] != "f8e7" {
		t.Fatalf("moves = %v", g.Moves)
	}
	seq, err := review.Sequence(g)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if seq[6].SAN != "O-O" {
		t.Fatalf("castle san = %q", seq[6].SAN)
	}
}

func TestParseAllRejectsIllegalMove(t *testing.T) {
	_, err := ParseAll("[Event \"x\"]\n\n1. e4 Ke7 2. Qh5 Kxh5 *")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Game != 1 {
		t.Fatalf("expected ParseError for game 1, got %v", err)
	}
}

func TestParseAllErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated comment": "1. e4 { never closed",
		"unbalanced paren":     "1. e4 ) e5",
		"open variation":       "1. e4 (1. d4 d5",
		"bad tag":              "[White]\n1. e4",
		"null move":            "1. e4 -- 2. d4",
		"bad piece":            "1. e4 Z0 2. d4",
	}
	for name, text := range cases {
		_, err := ParseAll(text)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", name, err)
		}
	}
	if _, err := ParseAll("  \n "); !errors.Is(err, ErrNoGames) {
		t.Fatalf("empty input: %v", err)
	}
}

func TestReadFileSingleGame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.pgn")
	body := "[Event \"Casual\"]\n[White \"alice\"]\n[Black \"bob\"]\n[Result \"1-0\"]\n\n1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	games, err := ReadFile(context.Background(), path, 0, nil)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games = %d", len(games))
	}
	g := games[0]
	if g.White.Name != "alice" || len(g.Moves) != 7 || g.Moves[0] != "e2e4" || g.Moves[6] != "h5f7" {
		t.Fatalf("game = %+v", g)
	}
}
