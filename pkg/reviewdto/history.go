package reviewdto

import "time"

type StoredReview struct {
	ID           int64     `json:"id"`
	ReviewUUID   string    `json:"review_uuid"`
	GameID       string    `json:"game_id"`
	TrackedSide  string    `json:"tracked_side,omitempty"`
	Result       string    `json:"result,omitempty"`
	Player       string    `json:"player"`
	Opponent     string    `json:"opponent"`
	AvgCPLoss    int       `json:"avg_cp_loss"`
	Blunders     int       `json:"blunders"`
	Mistakes     int       `json:"mistakes"`
	Inaccuracies int       `json:"inaccuracies"`
	EnginePreset string    `json:"engine_preset,omitempty"`
	Depth        int       `json:"depth"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}
