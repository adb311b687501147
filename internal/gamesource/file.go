package gamesource

import (
	"context"
	"fmt"

	"github.com/freeeve/pgn/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/review"
)

// ReadFile streams games from a PGN file (plain or .pgn.zst) and honors FEN
// start tags. The stream is lenient: unreadable moves and games are dropped
// rather than reported, so validated input goes through ParseAll instead.
// max <= 0 reads every game.
func ReadFile(ctx context.Context, path string, max int, logger *zap.Logger) ([]review.GameInput, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := pgn.Games(path)

	var (
		out     []review.GameInput
		stopped bool
	)
gameLoop:
	for game := range parser.Games {
		select {
		case <-ctx.Done():
			if !stopped {
				parser.Stop()
				stopped = true
			}
			break gameLoop
		default:
		}
		if max > 0 && len(out) >= max {
			parser.Stop()
			stopped = true
			break gameLoop
		}

		moves := make([]string, 0, len(game.Moves))
		for _, mv := range game.Moves {
			moves = append(moves, mv.String())
		}
		tags := game.Tags
		out = append(out, newGameInput(func(k string) string { return tags[k] }, moves))
	}

	if err := parser.Err(); err != nil {
		return nil, fmt.Errorf("read pgn file %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("pgn_file_read", zap.String("path", path), zap.Int("games", len(out)))
	if len(out) == 0 {
		return nil, ErrNoGames
	}
	return out, nil
}
