package boardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/cheese-review/internal/review"
)

const (
	defaultSquareSize = 64
	sideMargin        = 28
	headerHeight      = 44
	footerHeight      = 52
	panelRadius       = 8
)

type Highlight struct {
	From nchess.Square
	To   nchess.Square
}

type Options struct {
	Highlight *Highlight
	Header    string
	Footer    string
	// Flip draws the board from Black's side.
	Flip   bool
	Accent color.Color
}

// Renderer draws positions as PNG images.
type Renderer struct {
	squareSize int
	face       font.Face
	thresholds review.Thresholds
}

type Option func(*Renderer)

func WithSquareSize(n int) Option {
	return func(r *Renderer) {
		if n >= 16 {
			r.squareSize = n
		}
	}
}

// WithThresholds sets the thresholds used to color moment footers.
func WithThresholds(t review.Thresholds) Option {
	return func(r *Renderer) { r.thresholds = t }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		squareSize: defaultSquareSize,
		face:       basicfont.Face7x13,
		thresholds: review.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderMoment draws the position before a critical move, oriented for the
// player who made it, with the move marked by an arrow.
func (r *Renderer) RenderMoment(ctx context.Context, cm review.CriticalMoment) ([]byte, error) {
	game, err := gameFromFEN(cm.PositionBefore)
	if err != nil {
		return nil, err
	}
	opts := Options{
		Flip:   cm.Player == review.Black,
		Header: momentHeader(cm),
		Footer: fmt.Sprintf("lost %d cp   %s -> %s", cm.CPLoss, formatEval(cm.EvalBefore), formatEval(cm.EvalAfter)),
		Accent: severityColor(r.thresholds.Classify(cm.CPLoss)),
	}
	notation := nchess.UCINotation{}
	if mv, err := notation.Decode(game.Position(), cm.UCI); err == nil {
		opts.Highlight = &Highlight{From: mv.S1(), To: mv.S2()}
	}
	return r.render(ctx, game.Position().Board(), opts)
}

func (r *Renderer) RenderFEN(ctx context.Context, fen string, opts Options) ([]byte, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	return r.render(ctx, game.Position().Board(), opts)
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	if strings.TrimSpace(fen) == "" {
		return nil, fmt.Errorf("empty fen")
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return nchess.NewGame(opt), nil
}

func (r *Renderer) render(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	sq := r.squareSize
	boardSize := sq * 8
	width := boardSize + sideMargin*2
	height := boardSize + headerHeight + footerHeight + sideMargin
	origin := image.Point{X: sideMargin, Y: headerHeight + sideMargin/2}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	drawBoardShadow(img, boardRect)

	geo := geometry{squareSize: sq, origin: origin, flip: opts.Flip}
	drawSquares(img, geo)
	if h := opts.Highlight; h != nil {
		drawSquareOverlay(img, geo.rect(h.From), moveFromFill)
	}
	if err := drawPieces(img, board, geo); err != nil {
		return nil, err
	}
	if h := opts.Highlight; h != nil {
		accent := opts.Accent
		if accent == nil {
			accent = neutralArrow
		}
		drawArrow(img, geo.center(h.From), geo.center(h.To), sq, withAlpha(accent, 190))
	}
	drawCoordinates(img, r.face, geo)

	drawer := &font.Drawer{Dst: img, Face: r.face}
	if text := strings.TrimSpace(opts.Header); text != "" {
		panel := image.Rect(boardRect.Min.X, 8, boardRect.Max.X, headerHeight-4)
		drawRoundedPanel(img, panel, panelRadius, hudPanelColor)
		drawCenteredString(drawer, panel, truncateWithEllipsis(r.face, text, panel.Dx()-16), hudTextPrimary)
	}
	if text := strings.TrimSpace(opts.Footer); text != "" {
		top := boardRect.Max.Y + sideMargin - 4
		panel := image.Rect(boardRect.Min.X, top, boardRect.Max.X, top+footerHeight-16)
		fill := color.Color(hudPanelColor)
		if opts.Accent != nil {
			fill = withAlpha(opts.Accent, 235)
		}
		drawRoundedPanel(img, panel, panelRadius, fill)
		drawCenteredString(drawer, panel, truncateWithEllipsis(r.face, text, panel.Dx()-16), hudTextPrimary)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func momentHeader(cm review.CriticalMoment) string {
	dots := "."
	if cm.Player == review.Black {
		dots = "..."
	}
	return fmt.Sprintf("Move %d%s %s (%s)", cm.MoveNum, dots, cm.Move, cm.Player)
}

func formatEval(e review.Evaluation) string {
	if e.IsMate() {
		if e.Mating == review.Black {
			return fmt.Sprintf("#-%d", e.MateIn)
		}
		return fmt.Sprintf("#%d", e.MateIn)
	}
	return fmt.Sprintf("%+.2f", float64(e.Centipawns)/100)
}

func severityColor(s review.Severity) color.Color {
	switch s {
	case review.SeverityBlunder:
		return blunderColor
	case review.SeverityMistake:
		return mistakeColor
	case review.SeverityInaccuracy:
		return inaccuracyColor
	default:
		return neutralArrow
	}
}

func withAlpha(c color.Color, a uint8) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = a
	return n
}

type geometry struct {
	squareSize int
	origin     image.Point
	flip       bool
}

// cell maps a square to its on-screen column and row.
func (g geometry) cell(sq nchess.Square) (col, row int) {
	col, row = int(sq.File()), 7-int(sq.Rank())
	if g.flip {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (g geometry) rect(sq nchess.Square) image.Rectangle {
	col, row := g.cell(sq)
	x := g.origin.X + col*g.squareSize
	y := g.origin.Y + row*g.squareSize
	return image.Rect(x, y, x+g.squareSize, y+g.squareSize)
}

func (g geometry) center(sq nchess.Square) pointF {
	r := g.rect(sq)
	return pointF{X: float64(r.Min.X + g.squareSize/2), Y: float64(r.Min.Y + g.squareSize/2)}
}
