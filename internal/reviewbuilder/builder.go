package reviewbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/boardimage"
	corechess "github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/chesscom"
	"github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/evalcache"
	"github.com/park285/cheese-review/internal/review"
	reviewsvc "github.com/park285/cheese-review/internal/service/review"
)

type Deps struct {
	Service  *reviewsvc.Service
	Engine   *corechess.Engine
	Cache    *evalcache.Store
	Repo     reviewsvc.Repository
	DB       *sql.DB
	Renderer *boardimage.Renderer
	ChessCom *chesscom.Client
}

type Options struct {
	RenderImages bool
	Persist      bool
}

// New wires the engine, optional Redis cache, repository and service. Redis
// and Postgres are optional; without DATABASE_URL reviews are kept in memory.
func New(ctx context.Context, cfg *config.AppConfig, opts Options, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for the review engine")
	}

	preset, err := cfg.AnalysisPreset()
	if err != nil {
		return nil, err
	}
	settings := cfg.ReviewSettings()

	capacity := cfg.EngineMaxProcs
	if capacity <= 0 {
		capacity = settings.Workers
	}

	deps := &Deps{}
	deps.Engine, err = corechess.NewEngine(corechess.EngineConfig{
		BinaryPath: cfg.StockfishPath,
		Preset:     preset,
		Capacity:   capacity,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	analyzerOpts := []review.Option{review.WithLogger(logger)}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		deps.Cache, err = evalcache.Open(ctx, cfg.RedisURL, deps.Engine.Fingerprint(), cfg.CacheTTL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init eval cache: %w", err)
		}
		analyzerOpts = append(analyzerOpts, review.WithCache(deps.Cache))
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		deps.DB, err = reviewsvc.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		if err := reviewsvc.EnsureSchema(ctx, deps.DB); err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.Repo = reviewsvc.NewRepository(deps.DB)
	} else {
		deps.Repo = reviewsvc.NewMemoryRepository()
	}

	analyzer, err := review.NewAnalyzer(settings, deps.Engine.NewEvaluator, analyzerOpts...)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	deps.Renderer = boardimage.NewRenderer(boardimage.WithThresholds(settings.Thresholds))
	deps.ChessCom = chesscom.NewClient(cfg.ChessComBaseURL,
		chesscom.WithTimeout(cfg.ChessComTimeout),
		chesscom.WithLogger(logger),
	)

	deps.Service, err = reviewsvc.NewService(analyzer, deps.Repo, deps.Renderer, reviewsvc.Config{
		EnginePreset: preset.Name,
		RenderImages: opts.RenderImages,
		Persist:      opts.Persist,
	}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	logger.Info("review_deps_ready",
		zap.String("preset", preset.Name),
		zap.Int("depth", settings.Depth),
		zap.Int("workers", settings.Workers),
		zap.Int("engine_capacity", capacity),
		zap.Bool("redis_cache", deps.Cache != nil),
		zap.Bool("postgres", deps.DB != nil),
	)
	return deps, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}
