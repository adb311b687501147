package reviewsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/domain"
	"github.com/park285/cheese-review/internal/review"
)

var ErrNilAnalyzer = errors.New("review analyzer is required")

// MomentRenderer draws the position before a critical moment.
type MomentRenderer interface {
	RenderMoment(ctx context.Context, moment review.CriticalMoment) ([]byte, error)
}

type Config struct {
	EnginePreset string
	// RenderImages renders a board image for every critical moment.
	RenderImages bool
	// Persist stores a summary of each successful review.
	Persist bool
}

type Service struct {
	analyzer *review.Analyzer
	repo     Repository
	renderer MomentRenderer
	cfg      Config
	logger   *zap.Logger
}

// Report is the outcome of one reviewed game.
type Report struct {
	RunID      string
	ReviewUUID string
	Input      review.GameInput
	Evaluation *review.GameEvaluation
	// EnginePreset and Depth describe the engine settings used.
	EnginePreset string
	Depth        int
	// Images maps a critical moment's ply to its PNG board.
	Images   map[int][]byte
	ReviewID int64
	Stored   bool
	Duration time.Duration
}

type BatchReport struct {
	Index  int
	Report *Report
	Err    error
}

func NewService(analyzer *review.Analyzer, repo Repository, renderer MomentRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Service{
		analyzer: analyzer,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (s *Service) Review(ctx context.Context, input review.GameInput) (*Report, error) {
	runID := uuid.NewString()
	input.ID = gameKey(input)
	started := time.Now()

	ev, err := s.analyzer.Evaluate(ctx, input)
	if err != nil {
		s.logger.Warn("review_failed", zap.String("run_id", runID), zap.String("game_id", input.ID), zap.Error(err))
		return nil, err
	}
	return s.finish(ctx, runID, input, ev, time.Since(started))
}

// ReviewBatch reviews games concurrently. One failing game leaves the rest
// untouched; reports keep the input order.
func (s *Service) ReviewBatch(ctx context.Context, inputs []review.GameInput) []BatchReport {
	runID := uuid.NewString()
	games := make([]review.GameInput, len(inputs))
	for i, in := range inputs {
		in.ID = gameKey(in)
		games[i] = in
	}

	started := time.Now()
	results := s.analyzer.EvaluateBatch(ctx, games)
	elapsed := time.Since(started)

	out := make([]BatchReport, len(results))
	for i, res := range results {
		out[i] = BatchReport{Index: res.Index}
		if res.Err != nil {
			out[i].Err = res.Err
			continue
		}
		out[i].Report, out[i].Err = s.finish(ctx, runID, games[res.Index], res.Evaluation, elapsed)
	}
	s.logger.Info("review_batch_done",
		zap.String("run_id", runID),
		zap.Int("games", len(inputs)),
		zap.Int("failed", countFailed(out)),
		zap.Duration("elapsed", elapsed),
	)
	return out
}

func (s *Service) History(ctx context.Context, playerName string, limit int) ([]*domain.GameReview, error) {
	return s.repo.RecentReviews(ctx, playerName, limit)
}

func (s *Service) StoredReview(ctx context.Context, gameID string) (*domain.GameReview, error) {
	return s.repo.GetReview(ctx, gameID)
}

func (s *Service) finish(ctx context.Context, runID string, input review.GameInput, ev *review.GameEvaluation, elapsed time.Duration) (*Report, error) {
	rep := &Report{
		RunID:        runID,
		ReviewUUID:   uuid.NewString(),
		Input:        input,
		Evaluation:   ev,
		EnginePreset: s.cfg.EnginePreset,
		Depth:        s.analyzer.Settings().Depth,
		Duration:     elapsed,
	}

	if s.cfg.RenderImages && s.renderer != nil && len(ev.CriticalMoments) > 0 {
		rep.Images = make(map[int][]byte, len(ev.CriticalMoments))
		for _, cm := range ev.CriticalMoments {
			img, err := s.renderer.RenderMoment(ctx, cm)
			if err != nil {
				s.logger.Warn("moment_render_failed", zap.String("game_id", input.ID), zap.Int("ply", cm.Ply), zap.Error(err))
				continue
			}
			rep.Images[cm.Ply] = img
		}
	}

	if s.cfg.Persist {
		rv, err := ToGameReview(input, ev, rep.EnginePreset, rep.Depth, time.Now().UTC(), elapsed)
		if err != nil {
			return nil, err
		}
		rv.ReviewUUID = rep.ReviewUUID
		id, err := s.repo.SaveReview(ctx, rv)
		switch {
		case errors.Is(err, ErrDuplicateReview):
			s.logger.Info("review_already_stored", zap.String("game_id", input.ID))
		case err != nil:
			return nil, fmt.Errorf("save review: %w", err)
		default:
			rep.ReviewID = id
			rep.Stored = true
		}
	}
	return rep, nil
}

// ToGameReview summarizes an evaluation for storage. The tracked side becomes
// Player; untracked games are stored from White's seat.
func ToGameReview(input review.GameInput, ev *review.GameEvaluation, preset string, depth int, analyzedAt time.Time, elapsed time.Duration) (*domain.GameReview, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil evaluation")
	}
	moments := ev.CriticalMoments
	if moments == nil {
		moments = []review.CriticalMoment{}
	}
	raw, err := json.Marshal(moments)
	if err != nil {
		return nil, fmt.Errorf("encode critical moments: %w", err)
	}

	seat := ev.TrackedSide
	if !seat.Valid() {
		seat = review.White
	}
	return &domain.GameReview{
		GameID:          input.ID,
		TrackedSide:     string(ev.TrackedSide),
		Result:          input.Result,
		TimeControl:     input.TimeControl,
		EnginePreset:    preset,
		Depth:           depth,
		Player:          summarize(playerOn(input, seat), ev.Stats.For(seat)),
		Opponent:        summarize(playerOn(input, seat.Opponent()), ev.Stats.For(seat.Opponent())),
		CriticalMoments: raw,
		AnalyzedAt:      analyzedAt,
		Duration:        elapsed,
	}, nil
}

func summarize(p review.Player, st review.SideStats) domain.SideSummary {
	return domain.SideSummary{
		Name:         p.Name,
		Rating:       p.Rating,
		AvgCPLoss:    st.AverageCPLoss,
		Blunders:     st.Blunders,
		Mistakes:     st.Mistakes,
		Inaccuracies: st.Inaccuracies,
	}
}

func playerOn(input review.GameInput, side review.Side) review.Player {
	if side == review.Black {
		return input.Black
	}
	return input.White
}

// gameKey returns the game's own ID or a stable hash of its content.
func gameKey(input review.GameInput) string {
	if id := strings.TrimSpace(input.ID); id != "" {
		return id
	}
	h := sha256.New()
	h.Write([]byte(input.InitialFEN))
	h.Write([]byte{0})
	h.Write([]byte(input.White.Name + "|" + input.Black.Name))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(input.Moves, " ")))
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:24]
}

func countFailed(out []BatchReport) int {
	n := 0
	for _, r := range out {
		if r.Err != nil {
			n++
		}
	}
	return n
}
