package review

import "context"

// Evaluator is the engine capability the analyzer depends on. One Evaluator
// serves one game at a time: Start acquires the engine, Stop releases it.
// Evaluate should return ErrEvaluationTimeout or ErrEngineCrashed (wrapped is
// fine) so the analyzer can pick the right recovery path.
type Evaluator interface {
	Start(ctx context.Context) error
	Evaluate(ctx context.Context, pos Position, depth int) (Evaluation, error)
	Stop() error
}

// EvaluatorFactory creates an independent Evaluator for each game.
type EvaluatorFactory func() Evaluator

// EvalCache is an optional cross-game evaluation store. Implementations key
// entries by engine configuration as well as depth and FEN.
type EvalCache interface {
	Get(ctx context.Context, fen string, depth int) (Evaluation, bool, error)
	Put(ctx context.Context, fen string, depth int, eval Evaluation) error
}
