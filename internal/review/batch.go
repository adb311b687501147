package review

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult holds the outcome of one game in a batch. Exactly one of
// Evaluation and Err is set.
type BatchResult struct {
	Index      int
	GameID     string
	Evaluation *GameEvaluation
	Err        error
}

// EvaluateBatch evaluates games concurrently, each with its own evaluator.
// A failing game never affects the others. Results keep the input order.
func (a *Analyzer) EvaluateBatch(ctx context.Context, games []GameInput) []BatchResult {
	results := make([]BatchResult, len(games))
	workers := a.settings.Workers
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, game := range games {
		g.Go(func() error {
			res := BatchResult{Index: i, GameID: game.ID}
			res.Evaluation, res.Err = a.Evaluate(ctx, game)
			if res.Err != nil {
				res.Evaluation = nil
				a.logger.Warn("review_game_failed", zap.String("game_id", game.ID), zap.Int("index", i), zap.Error(res.Err))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
