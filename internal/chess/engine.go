package chess

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/chess/uci"
	"github.com/park285/cheese-review/internal/review"
)

type EngineConfig struct {
	BinaryPath string
	Preset     AnalysisPreset
	// Capacity caps concurrently running engine processes.
	Capacity int
	Logger   *zap.Logger
}

// Engine owns the process pool and hands out one Evaluator per game.
type Engine struct {
	pool   *uci.Pool
	preset AnalysisPreset
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := ValidatePreset(cfg.Preset); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.BinaryPath,
		Capacity:   cfg.Capacity,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool, preset: cfg.Preset, logger: logger}, nil
}

func (e *Engine) Preset() AnalysisPreset { return e.preset }

func (e *Engine) Fingerprint() string { return Fingerprint(e.preset) }

// NewEvaluator satisfies review.EvaluatorFactory.
func (e *Engine) NewEvaluator() review.Evaluator {
	return &evaluator{pool: e.pool, preset: e.preset, logger: e.logger}
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

// evaluator holds one pooled session between Start and Stop.
type evaluator struct {
	pool    *uci.Pool
	preset  AnalysisPreset
	logger  *zap.Logger
	session *uci.Session
	failed  error
}

func (ev *evaluator) Start(ctx context.Context) error {
	if ev.session != nil {
		return nil
	}
	session, err := ev.pool.Acquire(ctx, optionsFromPreset(ev.preset))
	if err != nil {
		return fmt.Errorf("acquire engine: %w", err)
	}
	if err := session.NewGame(ctx); err != nil {
		ev.pool.Release(session, err)
		return fmt.Errorf("new game: %w", err)
	}
	ev.session = session
	ev.failed = nil
	return nil
}

func (ev *evaluator) Evaluate(ctx context.Context, pos review.Position, depth int) (review.Evaluation, error) {
	if ev.session == nil {
		return review.Evaluation{}, fmt.Errorf("evaluate before start: %w", review.ErrEngineCrashed)
	}
	score, err := ev.session.Evaluate(ctx, pos.FEN, limitsFor(ev.preset, depth))
	if err != nil {
		ev.failed = err
		return review.Evaluation{}, classifyError(err)
	}
	return ToEvaluation(score, pos.SideToMove), nil
}

// Stop returns the session to the pool, or kills it after a failure.
func (ev *evaluator) Stop() error {
	if ev.session == nil {
		return nil
	}
	ev.pool.Release(ev.session, ev.failed)
	ev.session = nil
	ev.failed = nil
	return nil
}

func classifyError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", review.ErrEvaluationTimeout, err)
	case errors.Is(err, uci.ErrProcessExited), errors.Is(err, uci.ErrSessionBroken):
		return fmt.Errorf("%w: %v", review.ErrEngineCrashed, err)
	default:
		return err
	}
}

// ToEvaluation converts a score relative to the side to move into a
// White-perspective evaluation.
func ToEvaluation(s uci.Score, sideToMove review.Side) review.Evaluation {
	if s.Mate {
		switch {
		case s.MateIn > 0:
			return review.MateFor(sideToMove, s.MateIn)
		default:
			// mate 0 or negative: the side to move is getting mated.
			return review.MateFor(sideToMove.Opponent(), -s.MateIn)
		}
	}
	if sideToMove == review.Black {
		return review.Centipawns(-s.CP)
	}
	return review.Centipawns(s.CP)
}
