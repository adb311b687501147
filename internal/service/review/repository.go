package reviewsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-review/internal/domain"
)

var ErrDuplicateReview = errors.New("game review already exists")

type Repository interface {
	SaveReview(ctx context.Context, rv *domain.GameReview) (int64, error)
	GetReview(ctx context.Context, gameID string) (*domain.GameReview, error)
	RecentReviews(ctx context.Context, playerName string, limit int) ([]*domain.GameReview, error)
}

// Schema creates the game_reviews table.
const Schema = `
CREATE TABLE IF NOT EXISTS game_reviews (
	id                  BIGSERIAL PRIMARY KEY,
	review_uuid         UUID NOT NULL UNIQUE,
	game_id             TEXT NOT NULL UNIQUE,
	tracked_side        TEXT NOT NULL DEFAULT '',
	result              TEXT NOT NULL DEFAULT '',
	time_control        TEXT NOT NULL DEFAULT '',
	engine_preset       TEXT NOT NULL DEFAULT '',
	depth               INTEGER NOT NULL,
	player_name         TEXT NOT NULL DEFAULT '',
	player_rating       INTEGER NOT NULL DEFAULT 0,
	player_avg_cpl      INTEGER NOT NULL,
	player_blunders     INTEGER NOT NULL,
	player_mistakes     INTEGER NOT NULL,
	player_inaccuracies INTEGER NOT NULL,
	opponent_name       TEXT NOT NULL DEFAULT '',
	opponent_rating     INTEGER NOT NULL DEFAULT 0,
	opponent_avg_cpl    INTEGER NOT NULL,
	opponent_blunders   INTEGER NOT NULL,
	opponent_mistakes   INTEGER NOT NULL,
	opponent_inaccuracies INTEGER NOT NULL,
	critical_moments    JSONB NOT NULL DEFAULT '[]'::jsonb,
	analyzed_at         TIMESTAMPTZ NOT NULL,
	duration_ms         BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS game_reviews_player_idx ON game_reviews (lower(player_name), analyzed_at DESC);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Open connects to Postgres with the pool settings used across the service.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema applies Schema; it is safe to run repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply game_reviews schema: %w", err)
	}
	return nil
}

func (r *repository) SaveReview(ctx context.Context, rv *domain.GameReview) (int64, error) {
	if rv == nil {
		return 0, fmt.Errorf("nil game review payload")
	}
	moments := rv.CriticalMoments
	if len(moments) == 0 {
		moments = []byte("[]")
	}

	const query = `
		INSERT INTO game_reviews (
			review_uuid,
			game_id,
			tracked_side,
			result,
			time_control,
			engine_preset,
			depth,
			player_name,
			player_rating,
			player_avg_cpl,
			player_blunders,
			player_mistakes,
			player_inaccuracies,
			opponent_name,
			opponent_rating,
			opponent_avg_cpl,
			opponent_blunders,
			opponent_mistakes,
			opponent_inaccuracies,
			critical_moments,
			analyzed_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20::jsonb, $21, $22)
		ON CONFLICT (game_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		query,
		rv.ReviewUUID,
		rv.GameID,
		rv.TrackedSide,
		rv.Result,
		rv.TimeControl,
		rv.EnginePreset,
		rv.Depth,
		rv.Player.Name,
		rv.Player.Rating,
		rv.Player.AvgCPLoss,
		rv.Player.Blunders,
		rv.Player.Mistakes,
		rv.Player.Inaccuracies,
		rv.Opponent.Name,
		rv.Opponent.Rating,
		rv.Opponent.AvgCPLoss,
		rv.Opponent.Blunders,
		rv.Opponent.Mistakes,
		rv.Opponent.Inaccuracies,
		string(moments),
		rv.AnalyzedAt,
		rv.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateReview
	}
	if err != nil {
		return 0, fmt.Errorf("insert game review: %w", err)
	}
	return id.Int64, nil
}

const selectColumns = `
			id,
			review_uuid,
			game_id,
			tracked_side,
			result,
			time_control,
			engine_preset,
			depth,
			player_name,
			player_rating,
			player_avg_cpl,
			player_blunders,
			player_mistakes,
			player_inaccuracies,
			opponent_name,
			opponent_rating,
			opponent_avg_cpl,
			opponent_blunders,
			opponent_mistakes,
			opponent_inaccuracies,
			critical_moments,
			analyzed_at,
			duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*domain.GameReview, error) {
	var (
		rv         domain.GameReview
		moments    []byte
		durationMS sql.NullInt64
	)
	if err := row.Scan(
		&rv.ID,
		&rv.ReviewUUID,
		&rv.GameID,
		&rv.TrackedSide,
		&rv.Result,
		&rv.TimeControl,
		&rv.EnginePreset,
		&rv.Depth,
		&rv.Player.Name,
		&rv.Player.Rating,
		&rv.Player.AvgCPLoss,
		&rv.Player.Blunders,
		&rv.Player.Mistakes,
		&rv.Player.Inaccuracies,
		&rv.Opponent.Name,
		&rv.Opponent.Rating,
		&rv.Opponent.AvgCPLoss,
		&rv.Opponent.Blunders,
		&rv.Opponent.Mistakes,
		&rv.Opponent.Inaccuracies,
		&moments,
		&rv.AnalyzedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}
	rv.CriticalMoments = append([]byte(nil), moments...)
	if durationMS.Valid {
		rv.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	return &rv, nil
}

func (r *repository) GetReview(ctx context.Context, gameID string) (*domain.GameReview, error) {
	query := `SELECT` + selectColumns + `
		FROM game_reviews
		WHERE game_id = $1`

	rv, err := scanReview(r.db.QueryRowContext(ctx, query, strings.TrimSpace(gameID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select game review: %w", err)
	}
	return rv, nil
}

func (r *repository) RecentReviews(ctx context.Context, playerName string, limit int) ([]*domain.GameReview, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + selectColumns + `
		FROM game_reviews
		WHERE lower(player_name) = lower($1)
		ORDER BY analyzed_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(playerName), limit)
	if err != nil {
		return nil, fmt.Errorf("select game reviews: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.GameReview, 0, limit)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game review: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game reviews: %w", err)
	}
	return out, nil
}
