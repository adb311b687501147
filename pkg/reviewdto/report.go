package reviewdto

import "time"

// Score is an engine evaluation from White's point of view. Mate is set
// instead of CP when a forced mate was found.
type Score struct {
	CP     int    `json:"cp"`
	Mating string `json:"mating,omitempty"`
	MateIn int    `json:"mate_in,omitempty"`
}

type Player struct {
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

type MoveLine struct {
	Ply        int    `json:"ply"`
	MoveNum    int    `json:"move_num"`
	Side       string `json:"side"`
	SAN        string `json:"san"`
	UCI        string `json:"uci"`
	FENBefore  string `json:"fen_before"`
	EvalBefore Score  `json:"eval_before"`
	EvalAfter  Score  `json:"eval_after"`
	CPLoss     int    `json:"cp_loss"`
	Severity   string `json:"severity"`
}

type Moment struct {
	MoveNum        int    `json:"move_num"`
	Ply            int    `json:"ply"`
	Player         string `json:"player"`
	Move           string `json:"move"`
	UCI            string `json:"uci"`
	CPLoss         int    `json:"cp_loss"`
	Severity       string `json:"severity"`
	PositionBefore string `json:"position_before"`
	EvalBefore     Score  `json:"eval_before"`
	EvalAfter      Score  `json:"eval_after"`
	// Image is the file name of the rendered board, when one was written.
	Image string `json:"image,omitempty"`
}

type SideStats struct {
	AvgCPLoss    int `json:"avg_cp_loss"`
	Blunders     int `json:"blunders"`
	Mistakes     int `json:"mistakes"`
	Inaccuracies int `json:"inaccuracies"`
	Moves        int `json:"moves"`
}

type Stats struct {
	White SideStats `json:"white"`
	Black SideStats `json:"black"`
}

// GameReport is the JSON contract for one reviewed game.
type GameReport struct {
	ReviewUUID      string        `json:"review_uuid"`
	GameID          string        `json:"game_id"`
	White           Player        `json:"white"`
	Black           Player        `json:"black"`
	Result          string        `json:"result,omitempty"`
	TimeControl     string        `json:"time_control,omitempty"`
	TrackedSide     string        `json:"tracked_side,omitempty"`
	EnginePreset    string        `json:"engine_preset,omitempty"`
	Depth           int           `json:"depth"`
	CriticalMoments []Moment      `json:"critical_moments"`
	Stats           Stats         `json:"stats"`
	Moves           []MoveLine    `json:"moves,omitempty"`
	StoredID        int64         `json:"stored_id,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
}

// BatchEntry holds either a report or an error for one input game.
type BatchEntry struct {
	Index  int          `json:"index"`
	Report *GameReport  `json:"report,omitempty"`
	Error  *DomainError `json:"error,omitempty"`
}

type BatchReport struct {
	RunID     string       `json:"run_id,omitempty"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Games     []BatchEntry `json:"games"`
}
