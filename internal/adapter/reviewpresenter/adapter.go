package reviewpresenter

import (
	"context"
	"errors"

	"github.com/park285/cheese-review/internal/chesscom"
	"github.com/park285/cheese-review/internal/domain"
	"github.com/park285/cheese-review/internal/gamesource"
	"github.com/park285/cheese-review/internal/review"
	reviewsvc "github.com/park285/cheese-review/internal/service/review"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

func toScore(e review.Evaluation) reviewdto.Score {
	if e.IsMate() {
		return reviewdto.Score{Mating: string(e.Mating), MateIn: e.MateIn}
	}
	return reviewdto.Score{CP: e.Centipawns}
}

// ToDTOReport maps a service report. Per-move lines are included only when
// withMoves is set.
func ToDTOReport(r *reviewsvc.Report, withMoves bool) *reviewdto.GameReport {
	if r == nil || r.Evaluation == nil {
		return nil
	}
	ev := r.Evaluation
	severities := make(map[int]review.Severity, len(ev.PerMove))
	for _, m := range ev.PerMove {
		severities[m.Move.Ply] = m.Severity
	}

	out := &reviewdto.GameReport{
		ReviewUUID:      r.ReviewUUID,
		GameID:          r.Input.ID,
		White:           reviewdto.Player{Name: r.Input.White.Name, Rating: r.Input.White.Rating},
		Black:           reviewdto.Player{Name: r.Input.Black.Name, Rating: r.Input.Black.Rating},
		Result:          r.Input.Result,
		TimeControl:     r.Input.TimeControl,
		TrackedSide:     string(ev.TrackedSide),
		EnginePreset:    r.EnginePreset,
		Depth:           r.Depth,
		CriticalMoments: make([]reviewdto.Moment, 0, len(ev.CriticalMoments)),
		Stats: reviewdto.Stats{
			White: toSideStats(ev.Stats.White),
			Black: toSideStats(ev.Stats.Black),
		},
		StoredID: r.ReviewID,
		Duration: r.Duration,
	}
	for _, cm := range ev.CriticalMoments {
		out.CriticalMoments = append(out.CriticalMoments, reviewdto.Moment{
			MoveNum:        cm.MoveNum,
			Ply:            cm.Ply,
			Player:         string(cm.Player),
			Move:           cm.Move,
			UCI:            cm.UCI,
			CPLoss:         cm.CPLoss,
			Severity:       string(severities[cm.Ply]),
			PositionBefore: cm.PositionBefore,
			EvalBefore:     toScore(cm.EvalBefore),
			EvalAfter:      toScore(cm.EvalAfter),
		})
	}
	if withMoves {
		out.Moves = make([]reviewdto.MoveLine, 0, len(ev.PerMove))
		for _, m := range ev.PerMove {
			out.Moves = append(out.Moves, reviewdto.MoveLine{
				Ply:        m.Move.Ply,
				MoveNum:    m.Move.MoveNumber(),
				Side:       string(m.Move.Side),
				SAN:        m.Move.SAN,
				UCI:        m.Move.UCI,
				FENBefore:  m.Move.Before.FEN,
				EvalBefore: toScore(m.EvalBefore),
				EvalAfter:  toScore(m.EvalAfter),
				CPLoss:     m.CPLoss,
				Severity:   string(m.Severity),
			})
		}
	}
	return out
}

func toSideStats(s review.SideStats) reviewdto.SideStats {
	return reviewdto.SideStats{
		AvgCPLoss:    s.AverageCPLoss,
		Blunders:     s.Blunders,
		Mistakes:     s.Mistakes,
		Inaccuracies: s.Inaccuracies,
		Moves:        s.Moves,
	}
}

func ToDTOBatch(runID string, list []reviewsvc.BatchReport, withMoves bool) *reviewdto.BatchReport {
	out := &reviewdto.BatchReport{
		RunID: runID,
		Total: len(list),
		Games: make([]reviewdto.BatchEntry, 0, len(list)),
	}
	for _, b := range list {
		entry := reviewdto.BatchEntry{Index: b.Index}
		if b.Err != nil {
			de := ToDTOError(b.Err)
			entry.Error = &de
			out.Failed++
		} else {
			entry.Report = ToDTOReport(b.Report, withMoves)
			out.Succeeded++
		}
		out.Games = append(out.Games, entry)
	}
	return out
}

// ToDTOError classifies an error into a stable code.
func ToDTOError(err error) reviewdto.DomainError {
	if err == nil {
		return reviewdto.DomainError{}
	}
	var (
		malformed *review.MalformedGameError
		timeout   *review.EngineTimeoutError
		process   *review.EngineProcessError
		assertion *review.AssertionFailure
		parse     *gamesource.ParseError
		status    *chesscom.StatusError
	)
	switch {
	case errors.As(err, &malformed):
		return reviewdto.DomainError{Code: "malformed_game", Message: err.Error()}
	case errors.As(err, &parse):
		return reviewdto.DomainError{Code: "malformed_pgn", Message: err.Error()}
	case errors.As(err, &timeout):
		return reviewdto.DomainError{Code: "engine_timeout", Message: err.Error(), Retryable: true}
	case errors.As(err, &process):
		return reviewdto.DomainError{Code: "engine_process", Message: err.Error(), Retryable: true}
	case errors.As(err, &assertion):
		return reviewdto.DomainError{Code: "assertion_failure", Message: err.Error()}
	case errors.Is(err, chesscom.ErrNotFound):
		return reviewdto.DomainError{Code: "not_found", Message: err.Error()}
	case errors.As(err, &status):
		return reviewdto.DomainError{Code: "source_unavailable", Message: err.Error(), Retryable: status.Status >= 500 || status.Status == 429}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return reviewdto.DomainError{Code: "canceled", Message: err.Error(), Retryable: true}
	default:
		return reviewdto.DomainError{Code: "internal", Message: err.Error()}
	}
}

func ToDTOHistory(list []*domain.GameReview) []reviewdto.StoredReview {
	out := make([]reviewdto.StoredReview, 0, len(list))
	for _, rv := range list {
		if rv == nil {
			continue
		}
		out = append(out, reviewdto.StoredReview{
			ID:           rv.ID,
			ReviewUUID:   rv.ReviewUUID,
			GameID:       rv.GameID,
			TrackedSide:  rv.TrackedSide,
			Result:       rv.Result,
			Player:       rv.Player.Name,
			Opponent:     rv.Opponent.Name,
			AvgCPLoss:    rv.Player.AvgCPLoss,
			Blunders:     rv.Player.Blunders,
			Mistakes:     rv.Player.Mistakes,
			Inaccuracies: rv.Player.Inaccuracies,
			EnginePreset: rv.EnginePreset,
			Depth:        rv.Depth,
			AnalyzedAt:   rv.AnalyzedAt,
		})
	}
	return out
}
