package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Analyzer struct {
	settings     Settings
	newEvaluator EvaluatorFactory
	cache        EvalCache
	logger       *zap.Logger
}

type Option func(*Analyzer)

// WithCache consults c before the engine and stores fresh evaluations in it.
func WithCache(c EvalCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAnalyzer(settings Settings, factory EvaluatorFactory, opts ...Option) (*Analyzer, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("review settings: %w", err)
	}
	if factory == nil {
		return nil, ErrNoEvaluator
	}
	a := &Analyzer{settings: settings, newEvaluator: factory, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Analyzer) Settings() Settings { return a.settings }

// Evaluate replays the game, scores every position once and derives the
// per-move losses, critical moments and statistics. Either a complete result
// or an error is returned.
func (a *Analyzer) Evaluate(ctx context.Context, input GameInput) (*GameEvaluation, error) {
	start := time.Now()
	moves, err := Sequence(input)
	if err != nil {
		return nil, err
	}
	tracked, err := ResolveTracked(input)
	if err != nil {
		return nil, err
	}
	initial, err := initialOf(input, moves)
	if err != nil {
		return nil, err
	}

	run := &engineRun{
		ev:       a.newEvaluator(),
		settings: a.settings,
		logger:   a.logger.With(zap.String("game_id", input.ID)),
	}
	defer run.stop()

	evals, err := a.evaluatePositions(ctx, run, Positions(initial, moves))
	if err != nil {
		return nil, err
	}

	perMove := make([]MoveEvaluation, 0, len(moves))
	for _, mv := range moves {
		before := evals[mv.Before.FEN]
		after := evals[mv.After.FEN]
		loss, mated, err := CentipawnLoss(mv.Side, before, after, a.settings)
		if err != nil {
			var af *AssertionFailure
			if errors.As(err, &af) && af.Ply == 0 {
				af.Ply = mv.Ply
			}
			return nil, err
		}
		perMove = append(perMove, MoveEvaluation{
			Move:       mv,
			EvalBefore: before,
			EvalAfter:  after,
			CPLoss:     loss,
			Severity:   classifyMove(a.settings.Thresholds, loss, mated),
		})
	}

	result := &GameEvaluation{
		GameID:          input.ID,
		TrackedSide:     tracked,
		PerMove:         perMove,
		CriticalMoments: SelectCritical(perMove, tracked, a.settings.CriticalCount),
		Stats:           BuildStats(perMove),
	}
	a.logger.Info("review_game_done",
		zap.String("game_id", input.ID),
		zap.Int("plies", len(moves)),
		zap.Int("engine_calls", run.calls),
		zap.Int("restarts", run.restarts),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// evaluatePositions scores positions in ply order. Repeated positions are
// scored once.
func (a *Analyzer) evaluatePositions(ctx context.Context, run *engineRun, positions []Position) (map[string]Evaluation, error) {
	evals := make(map[string]Evaluation, len(positions))
	for ply, pos := range positions {
		if _, ok := evals[pos.FEN]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pos.Terminal() {
			evals[pos.FEN] = terminalEvaluation(pos)
			continue
		}
		if e, ok := a.cached(ctx, pos.FEN); ok {
			evals[pos.FEN] = e
			continue
		}
		e, err := run.evaluate(ctx, ply, pos)
		if err != nil {
			return nil, err
		}
		e = Normalize(e, a.settings.MateThreshold)
		evals[pos.FEN] = e
		a.store(ctx, pos.FEN, e)
	}
	return evals, nil
}

func (a *Analyzer) cached(ctx context.Context, fen string) (Evaluation, bool) {
	if a.cache == nil {
		return Evaluation{}, false
	}
	e, ok, err := a.cache.Get(ctx, fen, a.settings.Depth)
	if err != nil {
		a.logger.Warn("eval_cache_get_failed", zap.String("fen", fen), zap.Error(err))
		return Evaluation{}, false
	}
	return e, ok
}

func (a *Analyzer) store(ctx context.Context, fen string, e Evaluation) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Put(ctx, fen, a.settings.Depth, e); err != nil {
		a.logger.Warn("eval_cache_put_failed", zap.String("fen", fen), zap.Error(err))
	}
}

// ResolveTracked maps GameInput.TrackedPlayer to a side. An empty value
// tracks both sides and yields "".
func ResolveTracked(input GameInput) (Side, error) {
	raw := strings.TrimSpace(input.TrackedPlayer)
	if raw == "" {
		return "", nil
	}
	if side, ok := ParseSide(raw); ok {
		return side, nil
	}
	switch {
	case strings.EqualFold(raw, strings.TrimSpace(input.White.Name)):
		return White, nil
	case strings.EqualFold(raw, strings.TrimSpace(input.Black.Name)):
		return Black, nil
	}
	return "", &MalformedGameError{Reason: fmt.Sprintf("tracked player %q is not in this game", raw)}
}

func initialOf(input GameInput, moves []Move) (Position, error) {
	if len(moves) > 0 {
		return moves[0].Before, nil
	}
	return InitialPosition(input.InitialFEN)
}

func terminalEvaluation(pos Position) Evaluation {
	if pos.Checkmate {
		return MateFor(pos.SideToMove.Opponent(), 0)
	}
	return Centipawns(0)
}

// engineRun owns one Evaluator for the duration of a game and applies the
// timeout and crash recovery policy.
type engineRun struct {
	ev       Evaluator
	settings Settings
	logger   *zap.Logger
	started  bool
	calls    int
	restarts int
}

func (r *engineRun) ensureStarted(ctx context.Context) error {
	if r.started {
		return nil
	}
	if err := r.ev.Start(ctx); err != nil {
		return &EngineProcessError{Op: "start", Err: err}
	}
	r.started = true
	return nil
}

func (r *engineRun) evaluate(ctx context.Context, ply int, pos Position) (Evaluation, error) {
	if err := r.ensureStarted(ctx); err != nil {
		return Evaluation{}, err
	}
	var timeouts, crashes int
	for {
		e, err := r.once(ctx, pos)
		if err == nil {
			return e, nil
		}
		if ctx.Err() != nil {
			return Evaluation{}, ctx.Err()
		}
		switch {
		case errors.Is(err, ErrEvaluationTimeout):
			timeouts++
			if timeouts > 1 {
				return Evaluation{}, &EngineTimeoutError{Ply: ply, FEN: pos.FEN, Timeout: r.settings.PositionTimeout, Err: err}
			}
		case errors.Is(err, ErrEngineCrashed):
			crashes++
			if crashes > 1 {
				return Evaluation{}, &EngineProcessError{Op: "evaluate", Err: err}
			}
		default:
			return Evaluation{}, &EngineProcessError{Op: "evaluate", Err: err}
		}
		r.logger.Warn("engine_restart",
			zap.Int("ply", ply),
			zap.String("fen", pos.FEN),
			zap.Int("timeouts", timeouts),
			zap.Int("crashes", crashes),
			zap.Error(err),
		)
		if err := r.restart(ctx); err != nil {
			return Evaluation{}, err
		}
	}
}

func (r *engineRun) once(ctx context.Context, pos Position) (Evaluation, error) {
	evalCtx, cancel := context.WithTimeout(ctx, r.settings.PositionTimeout)
	defer cancel()
	r.calls++
	e, err := r.ev.Evaluate(evalCtx, pos, r.settings.Depth)
	if err == nil {
		return e, nil
	}
	if errors.Is(err, ErrEngineCrashed) || errors.Is(err, ErrEvaluationTimeout) {
		return Evaluation{}, err
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrEvaluationTimeout, err)
	}
	return Evaluation{}, err
}

func (r *engineRun) restart(ctx context.Context) error {
	r.restarts++
	if err := r.ev.Stop(); err != nil {
		r.logger.Debug("engine_stop_failed", zap.Error(err))
	}
	r.started = false
	if err := r.ev.Start(ctx); err != nil {
		return &EngineProcessError{Op: "restart", Err: err}
	}
	r.started = true
	return nil
}

func (r *engineRun) stop() {
	if !r.started {
		return
	}
	r.started = false
	if err := r.ev.Stop(); err != nil {
		r.logger.Warn("engine_stop_failed", zap.Error(err))
	}
}
