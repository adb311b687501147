package domain

import (
	"encoding/json"
	"time"
)

// SideSummary is one side's aggregate line in a stored review.
type SideSummary struct {
	Name         string
	Rating       int
	AvgCPLoss    int
	Blunders     int
	Mistakes     int
	Inaccuracies int
}

// GameReview is the persisted summary of one reviewed game. Player is the
// tracked side; when no side was tracked Player is White.
type GameReview struct {
	ID              int64
	ReviewUUID      string
	GameID          string
	TrackedSide     string
	Result          string
	TimeControl     string
	EnginePreset    string
	Depth           int
	Player          SideSummary
	Opponent        SideSummary
	CriticalMoments json.RawMessage
	AnalyzedAt      time.Time
	Duration        time.Duration
}
