package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/park285/cheese-review/internal/chess"
	"github.com/park285/cheese-review/internal/review"
)

const (
	defaultCacheTTL        = 720 * time.Hour
	defaultChessComBaseURL = "https://api.chess.com"
	defaultChessComTimeout = 15 * time.Second
)

type AppConfig struct {
	StockfishPath string
	EnginePreset  string

	// EngineThreads and EngineHashMB override the preset when positive.
	EngineThreads  int
	EngineHashMB   int
	EngineMaxProcs int

	Depth           int
	PositionTimeout time.Duration
	MateThreshold   int
	MatePenalty     int
	InaccuracyCP    int
	MistakeCP       int
	BlunderCP       int
	CriticalMoments int
	Workers         int

	RedisURL    string
	CacheTTL    time.Duration
	DatabaseURL string

	ChessUsername   string
	ChessComBaseURL string
	ChessComTimeout time.Duration
}

// fileConfig is the optional YAML overlay named by REVIEW_CONFIG_FILE.
type fileConfig struct {
	StockfishPath string `yaml:"stockfish_path"`
	Engine        struct {
		Preset   string `yaml:"preset"`
		Threads  int    `yaml:"threads"`
		HashMB   int    `yaml:"hash_mb"`
		MaxProcs int    `yaml:"max_procs"`
	} `yaml:"engine"`
	Review struct {
		Depth           int                `yaml:"depth"`
		PositionTimeout time.Duration      `yaml:"position_timeout"`
		MateThreshold   int                `yaml:"mate_threshold"`
		MatePenalty     int                `yaml:"mate_penalty"`
		Thresholds      *review.Thresholds `yaml:"thresholds"`
		CriticalMoments *int               `yaml:"critical_moments"`
		Workers         int                `yaml:"workers"`
	} `yaml:"review"`
	RedisURL    string        `yaml:"redis_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	DatabaseURL string        `yaml:"database_url"`
	ChessCom    struct {
		Username string        `yaml:"username"`
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"chesscom"`
}

func defaults() *AppConfig {
	th := review.DefaultThresholds()
	return &AppConfig{
		EnginePreset:    "standard",
		PositionTimeout: review.DefaultPositionTimeout,
		MateThreshold:   review.DefaultMateThreshold,
		MatePenalty:     review.DefaultMatePenalty,
		InaccuracyCP:    th.Inaccuracy,
		MistakeCP:       th.Mistake,
		BlunderCP:       th.Blunder,
		CriticalMoments: review.DefaultCriticalCount,
		Workers:         review.DefaultWorkers,
		CacheTTL:        defaultCacheTTL,
		ChessComBaseURL: defaultChessComBaseURL,
		ChessComTimeout: defaultChessComTimeout,
	}
}

// Load builds the configuration from defaults, then the YAML overlay file,
// then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("REVIEW_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if _, err := cfg.AnalysisPreset(); err != nil {
		return nil, err
	}
	if err := cfg.ReviewSettings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid review settings: %w", err)
	}
	return cfg, nil
}

func (cfg *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.StockfishPath, fc.StockfishPath)
	setString(&cfg.EnginePreset, fc.Engine.Preset)
	setInt(&cfg.EngineThreads, fc.Engine.Threads)
	setInt(&cfg.EngineHashMB, fc.Engine.HashMB)
	setInt(&cfg.EngineMaxProcs, fc.Engine.MaxProcs)
	setInt(&cfg.Depth, fc.Review.Depth)
	if fc.Review.PositionTimeout > 0 {
		cfg.PositionTimeout = fc.Review.PositionTimeout
	}
	setInt(&cfg.MateThreshold, fc.Review.MateThreshold)
	setInt(&cfg.MatePenalty, fc.Review.MatePenalty)
	if th := fc.Review.Thresholds; th != nil {
		setInt(&cfg.InaccuracyCP, th.Inaccuracy)
		setInt(&cfg.MistakeCP, th.Mistake)
		setInt(&cfg.BlunderCP, th.Blunder)
	}
	if fc.Review.CriticalMoments != nil {
		cfg.CriticalMoments = *fc.Review.CriticalMoments
	}
	setInt(&cfg.Workers, fc.Review.Workers)
	setString(&cfg.RedisURL, fc.RedisURL)
	if fc.CacheTTL > 0 {
		cfg.CacheTTL = fc.CacheTTL
	}
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.ChessUsername, fc.ChessCom.Username)
	setString(&cfg.ChessComBaseURL, fc.ChessCom.BaseURL)
	if fc.ChessCom.Timeout > 0 {
		cfg.ChessComTimeout = fc.ChessCom.Timeout
	}
	return nil
}

func (cfg *AppConfig) applyEnv() error {
	var errs []error

	envString(&cfg.StockfishPath, "STOCKFISH_PATH")
	envString(&cfg.EnginePreset, "REVIEW_PRESET")
	errs = append(errs,
		envInt(&cfg.EngineThreads, "ENGINE_THREADS"),
		envInt(&cfg.EngineHashMB, "ENGINE_HASH_MB"),
		envInt(&cfg.EngineMaxProcs, "ENGINE_MAX_PROCS"),
		envInt(&cfg.Depth, "REVIEW_DEPTH"),
		envDuration(&cfg.PositionTimeout, "REVIEW_POSITION_TIMEOUT"),
		envInt(&cfg.MateThreshold, "REVIEW_MATE_THRESHOLD"),
		envInt(&cfg.MatePenalty, "REVIEW_MATE_PENALTY"),
		envInt(&cfg.InaccuracyCP, "REVIEW_INACCURACY_CP"),
		envInt(&cfg.MistakeCP, "REVIEW_MISTAKE_CP"),
		envInt(&cfg.BlunderCP, "REVIEW_BLUNDER_CP"),
		envInt(&cfg.CriticalMoments, "REVIEW_CRITICAL_MOMENTS"),
		envInt(&cfg.Workers, "REVIEW_WORKERS"),
		envDuration(&cfg.CacheTTL, "REVIEW_CACHE_TTL"),
		envDuration(&cfg.ChessComTimeout, "CHESSCOM_TIMEOUT"),
	)
	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.ChessUsername, "CHESS_USERNAME")
	envString(&cfg.ChessComBaseURL, "CHESSCOM_BASE_URL")

	return errors.Join(errs...)
}

// AnalysisPreset resolves the named preset and applies engine overrides.
func (cfg *AppConfig) AnalysisPreset() (chess.AnalysisPreset, error) {
	p, err := chess.GetPreset(cfg.EnginePreset)
	if err != nil {
		return chess.AnalysisPreset{}, err
	}
	if cfg.EngineThreads > 0 {
		p.Threads = cfg.EngineThreads
	}
	if cfg.EngineHashMB > 0 {
		p.HashMB = cfg.EngineHashMB
	}
	if cfg.Depth > 0 {
		p.Depth = cfg.Depth
	}
	return p, nil
}

// ReviewSettings maps the configuration onto the analyzer's settings. Depth
// falls back to the preset's depth.
func (cfg *AppConfig) ReviewSettings() review.Settings {
	depth := cfg.Depth
	if depth <= 0 {
		if p, err := chess.GetPreset(cfg.EnginePreset); err == nil {
			depth = p.Depth
		}
	}
	return review.Settings{
		Depth:           depth,
		PositionTimeout: cfg.PositionTimeout,
		MateThreshold:   cfg.MateThreshold,
		MatePenalty:     cfg.MatePenalty,
		Thresholds: review.Thresholds{
			Inaccuracy: cfg.InaccuracyCP,
			Mistake:    cfg.MistakeCP,
			Blunder:    cfg.BlunderCP,
		},
		CriticalCount: cfg.CriticalMoments,
		Workers:       cfg.Workers,
	}
}

func setString(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func envString(dst *string, key string) {
	setString(dst, os.Getenv(key))
}

func envInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// envDuration accepts Go durations ("90s") or plain seconds.
func envDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
