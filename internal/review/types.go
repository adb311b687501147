package review

import "strings"

// Side identifies the player to move or the player who made a move.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) Valid() bool { return s == White || s == Black }

// ParseSide accepts "white"/"w" and "black"/"b" in any case.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// sideForPly maps a 1-based ply index to the mover, given who moved first.
func sideForPly(first Side, ply int) Side {
	if ply%2 == 1 {
		return first
	}
	return first.Opponent()
}

type Player struct {
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

// GameInput is what a game source hands to the analyzer.
type GameInput struct {
	ID          string   `json:"id,omitempty"`
	White       Player   `json:"white"`
	Black       Player   `json:"black"`
	Result      string   `json:"result,omitempty"`
	TimeControl string   `json:"time_control,omitempty"`
	// InitialFEN is empty for the standard starting position.
	InitialFEN string   `json:"initial_fen,omitempty"`
	Moves      []string `json:"moves"`
	// TrackedPlayer is a player name or "white"/"black". Empty tracks both sides.
	TrackedPlayer string `json:"tracked_player,omitempty"`
}

// Position is a canonical board state; the FEN string is its identity.
type Position struct {
	FEN        string `json:"fen"`
	SideToMove Side   `json:"side_to_move"`
	// Terminal positions are checkmate or a drawn end state.
	Checkmate bool `json:"checkmate,omitempty"`
	Drawn     bool `json:"drawn,omitempty"`
}

func (p Position) Equal(o Position) bool { return p.FEN == o.FEN }

func (p Position) Terminal() bool { return p.Checkmate || p.Drawn }

type Move struct {
	Ply    int      `json:"ply"`
	Side   Side     `json:"side"`
	SAN    string   `json:"san"`
	UCI    string   `json:"uci"`
	Before Position `json:"position_before"`
	After  Position `json:"position_after"`
}

// MoveNumber is the full-move number the ply belongs to.
func (m Move) MoveNumber() int { return (m.Ply + 1) / 2 }

// Evaluation is a score from White's point of view. When Mating is set the
// engine sees a forced mate for that side in MateIn moves and Centipawns is
// not meaningful.
type Evaluation struct {
	Centipawns int  `json:"cp"`
	Mating     Side `json:"mating,omitempty"`
	MateIn     int  `json:"mate_in,omitempty"`
}

func Centipawns(cp int) Evaluation { return Evaluation{Centipawns: cp} }

func MateFor(side Side, moves int) Evaluation {
	if moves < 0 {
		moves = -moves
	}
	return Evaluation{Mating: side, MateIn: moves}
}

func (e Evaluation) IsMate() bool { return e.Mating != "" }

// ForSide returns the centipawn score from the given side's point of view.
func (e Evaluation) ForSide(s Side) int {
	if s == Black {
		return -e.Centipawns
	}
	return e.Centipawns
}

type Severity string

const (
	SeverityNone       Severity = "none"
	SeverityInaccuracy Severity = "inaccuracy"
	SeverityMistake    Severity = "mistake"
	SeverityBlunder    Severity = "blunder"
)

// Rank orders severities: none < inaccuracy < mistake < blunder.
func (s Severity) Rank() int {
	switch s {
	case SeverityInaccuracy:
		return 1
	case SeverityMistake:
		return 2
	case SeverityBlunder:
		return 3
	default:
		return 0
	}
}

type MoveEvaluation struct {
	Move       Move       `json:"move"`
	EvalBefore Evaluation `json:"eval_before"`
	EvalAfter  Evaluation `json:"eval_after"`
	CPLoss     int        `json:"cp_loss"`
	Severity   Severity   `json:"severity"`
}

type CriticalMoment struct {
	MoveNum        int        `json:"move_num"`
	Ply            int        `json:"ply"`
	Player         Side       `json:"player"`
	Move           string     `json:"move"`
	UCI            string     `json:"uci"`
	CPLoss         int        `json:"cp_loss"`
	PositionBefore string     `json:"position_before"`
	EvalBefore     Evaluation `json:"eval_before"`
	EvalAfter      Evaluation `json:"eval_after"`
}

type SideStats struct {
	AverageCPLoss int `json:"average_cp_loss"`
	Blunders      int `json:"blunders"`
	Mistakes      int `json:"mistakes"`
	Inaccuracies  int `json:"inaccuracies"`
	Moves         int `json:"moves"`
}

type Stats struct {
	White SideStats `json:"white"`
	Black SideStats `json:"black"`
}

func (s Stats) For(side Side) SideStats {
	if side == Black {
		return s.Black
	}
	return s.White
}

// GameEvaluation is the complete result for one game. It is never returned
// partially filled.
type GameEvaluation struct {
	GameID          string           `json:"game_id,omitempty"`
	TrackedSide     Side             `json:"tracked_side,omitempty"`
	PerMove         []MoveEvaluation `json:"per_move"`
	CriticalMoments []CriticalMoment `json:"critical_moments"`
	Stats           Stats            `json:"stats"`
}
