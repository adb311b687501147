package review

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Sequence replays the game's move list and returns one Move per ply with the
// canonical positions before and after it. Moves may be given in SAN or UCI
// notation. It fails with *MalformedGameError on the first move that cannot
// be applied.
func Sequence(input GameInput) ([]Move, error) {
	game, err := newGame(input.InitialFEN)
	if err != nil {
		return nil, &MalformedGameError{Reason: "invalid initial position", Err: err}
	}

	moves := make([]Move, 0, len(input.Moves))
	before := snapshot(game)
	for i, raw := range input.Moves {
		ply := i + 1
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, &MalformedGameError{Ply: ply, Move: raw, Reason: "empty move"}
		}
		if before.Terminal() {
			return nil, &MalformedGameError{Ply: ply, Move: raw, Reason: "game already finished"}
		}

		pos := game.Position()
		mv, err := decodeMove(pos, text)
		if err != nil {
			return nil, &MalformedGameError{Ply: ply, Move: raw, Err: err}
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		uci := nchess.UCINotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return nil, &MalformedGameError{Ply: ply, Move: raw, Err: err}
		}

		after := snapshot(game)
		moves = append(moves, Move{
			Ply:    ply,
			Side:   before.SideToMove,
			SAN:    san,
			UCI:    uci,
			Before: before,
			After:  after,
		})
		before = after
	}
	return moves, nil
}

// Positions returns the N+1 positions of a sequenced game, initial position first.
func Positions(initial Position, moves []Move) []Position {
	out := make([]Position, 0, len(moves)+1)
	out = append(out, initial)
	for _, mv := range moves {
		out = append(out, mv.After)
	}
	return out
}

// InitialPosition returns the canonical starting position of the game.
func InitialPosition(initialFEN string) (Position, error) {
	game, err := newGame(initialFEN)
	if err != nil {
		return Position{}, &MalformedGameError{Reason: "invalid initial position", Err: err}
	}
	return snapshot(game), nil
}

func newGame(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return nchess.NewGame(option), nil
}

func decodeMove(pos *nchess.Position, text string) (*nchess.Move, error) {
	san := strings.TrimRight(text, "!?")
	if strings.HasPrefix(san, "0-0") {
		san = strings.ReplaceAll(san, "0", "O")
	}
	mv, sanErr := nchess.AlgebraicNotation{}.Decode(pos, san)
	if sanErr == nil {
		return mv, nil
	}
	if mv, err := (nchess.UCINotation{}).Decode(pos, strings.ToLower(text)); err == nil {
		return mv, nil
	}
	return nil, fmt.Errorf("decode move %q: %w", text, sanErr)
}

func snapshot(game *nchess.Game) Position {
	side := White
	if game.Position().Turn() == nchess.Black {
		side = Black
	}
	return Position{
		FEN:        game.FEN(),
		SideToMove: side,
		Checkmate:  game.Method() == nchess.Checkmate,
		Drawn:      game.Outcome() == nchess.Draw,
	}
}
