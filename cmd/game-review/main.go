package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/adapter/reviewpresenter"
	"github.com/park285/cheese-review/internal/chesscom"
	appcfg "github.com/park285/cheese-review/internal/config"
	"github.com/park285/cheese-review/internal/gamesource"
	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/internal/obslog"
	"github.com/park285/cheese-review/internal/review"
	"github.com/park285/cheese-review/internal/reviewbuilder"
	reviewsvc "github.com/park285/cheese-review/internal/service/review"
)

type options struct {
	pgnPath   string
	user      string
	games     int
	maxGames  int
	player    string
	format    string
	withMoves bool
	imagesDir string
	persist   bool
	history   int
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("game-review", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.pgnPath, "pgn", "", "PGN file to review (- for stdin, .pgn.zst supported)")
	fs.StringVar(&o.user, "user", "", "chess.com username to fetch recent games for (default CHESS_USERNAME)")
	fs.IntVar(&o.games, "games", 1, "number of recent chess.com games to review")
	fs.IntVar(&o.maxGames, "max", 0, "maximum games to read from the PGN file (0 = all)")
	fs.StringVar(&o.player, "player", "", "tracked player name or side (white/black); empty tracks both")
	fs.StringVar(&o.format, "format", "text", "output format: text or json")
	fs.BoolVar(&o.withMoves, "moves", false, "include per-move evaluations in json output")
	fs.StringVar(&o.imagesDir, "images", "", "directory for critical moment board images")
	fs.BoolVar(&o.persist, "persist", false, "store review summaries")
	fs.IntVar(&o.history, "history", 0, "print the N most recent stored reviews for -player and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.format = strings.ToLower(strings.TrimSpace(o.format))
	if o.format != "text" && o.format != "json" {
		return nil, fmt.Errorf("unknown -format %q", o.format)
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		return 1
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Error("config_error", zap.Error(err))
		return 1
	}
	if opts.user == "" && opts.pgnPath == "" {
		opts.user = cfg.ChessUsername
	}
	if opts.player == "" && opts.user != "" {
		opts.player = opts.user
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := reviewbuilder.New(ctx, cfg, reviewbuilder.Options{
		RenderImages: opts.imagesDir != "",
		Persist:      opts.persist,
	}, logger)
	if err != nil {
		logger.Error("review_init_error", zap.Error(err))
		return 1
	}
	defer func() { _ = deps.Close() }()

	cat, err := msgcat.New(os.Getenv("REVIEW_MESSAGES_DIR"))
	if err != nil {
		logger.Error("message_catalog_error", zap.Error(err))
		return 1
	}
	formatter := reviewpresenter.NewFormatter(cat)
	presenter := reviewpresenter.NewPresenter(
		func(text string) error {
			_, err := fmt.Fprintln(stdout, text)
			return err
		},
		imageWriter(opts.imagesDir),
	)

	if opts.history > 0 {
		return printHistory(ctx, deps.Service, presenter, formatter, opts, logger)
	}

	games, err := loadGames(ctx, deps.ChessCom, opts, logger)
	if err != nil {
		logger.Error("load_games_error", zap.Error(err))
		return 1
	}
	for i := range games {
		if opts.player != "" {
			games[i].TrackedPlayer = opts.player
		}
	}

	if len(games) == 1 {
		rep, err := deps.Service.Review(ctx, games[0])
		if err != nil {
			de := reviewpresenter.ToDTOError(err)
			if opts.format == "json" {
				_ = presenter.JSON(de)
			} else {
				_ = presenter.Text(de.Error())
			}
			return 1
		}
		dto := reviewpresenter.ToDTOReport(rep, opts.withMoves)
		if err := presenter.Images(dto, rep.Images); err != nil {
			logger.Warn("image_write_failed", zap.Error(err))
		}
		if err := emit(presenter, opts.format, dto, func() (string, error) { return formatter.Report(dto) }); err != nil {
			logger.Error("output_error", zap.Error(err))
			return 1
		}
		return 0
	}

	results := deps.Service.ReviewBatch(ctx, games)
	batch := reviewpresenter.ToDTOBatch(runIDOf(results), results, opts.withMoves)
	for i, entry := range batch.Games {
		if entry.Report == nil || results[i].Report == nil {
			continue
		}
		if err := presenter.Images(entry.Report, results[i].Report.Images); err != nil {
			logger.Warn("image_write_failed", zap.Error(err))
		}
	}
	if err := emit(presenter, opts.format, batch, func() (string, error) { return formatter.Batch(batch) }); err != nil {
		logger.Error("output_error", zap.Error(err))
		return 1
	}
	if batch.Failed > 0 {
		return 1
	}
	return 0
}

func emit(p *reviewpresenter.Presenter, format string, v any, text func() (string, error)) error {
	if format == "json" {
		return p.JSON(v)
	}
	out, err := text()
	if err != nil {
		return err
	}
	return p.Text(out)
}

func loadGames(ctx context.Context, client *chesscom.Client, opts *options, logger *zap.Logger) ([]review.GameInput, error) {
	switch {
	case opts.pgnPath == "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return limit(gamesource.ParseAll(string(raw)))(opts.maxGames)
	case strings.HasSuffix(opts.pgnPath, ".zst"):
		return gamesource.ReadFile(ctx, opts.pgnPath, opts.maxGames, logger)
	case opts.pgnPath != "":
		raw, err := os.ReadFile(opts.pgnPath)
		if err != nil {
			return nil, fmt.Errorf("read pgn: %w", err)
		}
		return limit(gamesource.ParseAll(string(raw)))(opts.maxGames)
	case opts.user != "":
		fetched, err := client.RecentGames(ctx, opts.user, opts.games)
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			return nil, gamesource.ErrNoGames
		}
		out := make([]review.GameInput, 0, len(fetched))
		for _, g := range fetched {
			in, err := chesscom.ToGameInput(g, opts.user)
			if err != nil {
				logger.Warn("chesscom_game_skipped", zap.String("url", g.URL), zap.Error(err))
				continue
			}
			out = append(out, in)
		}
		if len(out) == 0 {
			return nil, gamesource.ErrNoGames
		}
		return out, nil
	default:
		return nil, errors.New("nothing to review: pass -pgn or -user (or set CHESS_USERNAME)")
	}
}

func limit(games []review.GameInput, err error) func(int) ([]review.GameInput, error) {
	return func(max int) ([]review.GameInput, error) {
		if err != nil {
			return nil, err
		}
		if max > 0 && len(games) > max {
			games = games[:max]
		}
		return games, nil
	}
}

func printHistory(ctx context.Context, svc *reviewsvc.Service, p *reviewpresenter.Presenter, f *reviewpresenter.Formatter, opts *options, logger *zap.Logger) int {
	if opts.player == "" {
		fmt.Fprintln(os.Stderr, "-history needs -player or -user")
		return 2
	}
	list, err := svc.History(ctx, opts.player, opts.history)
	if err != nil {
		logger.Error("history_error", zap.Error(err))
		return 1
	}
	dto := reviewpresenter.ToDTOHistory(list)
	if err := emit(p, opts.format, dto, func() (string, error) { return f.History(opts.player, dto) }); err != nil {
		logger.Error("output_error", zap.Error(err))
		return 1
	}
	return 0
}

func imageWriter(dir string) func(name string, png []byte) error {
	if dir == "" {
		return nil
	}
	return func(name string, png []byte) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, name), png, 0o644)
	}
}

func runIDOf(results []reviewsvc.BatchReport) string {
	for _, r := range results {
		if r.Report != nil {
			return r.Report.RunID
		}
	}
	return ""
}
