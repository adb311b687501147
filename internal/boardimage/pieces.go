package boardimage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyphs are drawn on a 45x45 view box; FILL and STROKE are substituted per color.
var pieceGlyphs = map[nchess.PieceType]string{
	nchess.Pawn: `<path d="M 22.5 9 C 19.5 9 17.5 11.5 17.5 14 C 17.5 15.7 18.3 17.1 19.5 18 C 16.5 19.5 15 22.5 15 26 L 18.5 26 C 17 29 14 31 12 36 L 33 36 C 31 31 28 29 26.5 26 L 30 26 C 30 22.5 28.5 19.5 25.5 18 C 26.7 17.1 27.5 15.7 27.5 14 C 27.5 11.5 25.5 9 22.5 9 Z"/>`,
	nchess.Rook: `<path d="M 11 9 L 16 9 L 16 12 L 20 12 L 20 9 L 25 9 L 25 12 L 29 12 L 29 9 L 34 9 L 34 15 L 31 18 L 31 29 L 34 32 L 34 36 L 11 36 L 11 32 L 14 29 L 14 18 L 11 15 Z"/>`,
	nchess.Knight: `<path d="M 22 10 C 32.5 11 38.5 18 38 36 L 15 36 C 15 27 25 29.5 23 20 C 21 23 17 25.5 14 27 C 12 28 11.5 30 10 30 C 8 30 7 27 8.5 25.5 C 10 24 14 17 14 17 C 14 17 15.5 14 17.5 12.5 C 17.5 11 17 10 17 9 C 18.5 8.5 20.5 9 22 10 Z"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8.5" r="2.5"/><path d="M 15 32 C 17.5 29 15 25 17 20 C 18.5 16 21 14 22.5 12 C 24 14 26.5 16 28 20 C 30 25 27.5 29 30 32 Z"/><path d="M 9 36 C 12 35 18 35.5 22.5 33 C 27 35.5 33 35 36 36 L 36 38 L 9 38 Z"/>`,
	nchess.Queen: `<circle cx="6" cy="12" r="2.5"/><circle cx="14" cy="9" r="2.5"/><circle cx="22.5" cy="8" r="2.5"/><circle cx="31" cy="9" r="2.5"/><circle cx="39" cy="12" r="2.5"/><path d="M 9 26 C 17.5 24.5 27.5 24.5 36 26 L 38 14 L 31 25 L 31 11 L 25.5 24.5 L 22.5 10 L 19.5 24.5 L 14 11 L 14 25 L 7 14 Z"/><path d="M 9 26 C 9 28 10.5 28 11.5 30 C 12.5 31.5 12.5 31 12 33.5 C 10.5 34.5 11 36 11 36 C 17.5 37.5 27.5 37.5 34 36 C 34 36 34.5 34.5 33 33.5 C 32.5 31 32.5 31.5 33.5 30 C 34.5 28 36 28 36 26 C 27.5 24.5 17.5 24.5 9 26 Z"/>`,
	nchess.King: `<path d="M 21 4 L 24 4 L 24 8 L 28 8 L 28 11 L 24 11 L 24 14 L 21 14 L 21 11 L 17 11 L 17 8 L 21 8 Z"/><path d="M 12.5 37 C 18 40.5 27 40.5 32.5 37 L 32.5 30 C 32.5 30 41.5 25.5 38.5 19.5 C 34.5 13 25 16 22.5 23.5 C 20 16 10.5 13 6.5 19.5 C 3.5 25.5 12.5 30 12.5 30 Z"/>`,
}

const glyphTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45"><g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(piece nchess.Piece) (string, error) {
	body, ok := pieceGlyphs[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no glyph for piece %v", piece)
	}
	fill, stroke := "#ffffff", "#000000"
	if piece.Color() == nchess.Black {
		fill, stroke = "#1f1f1f", "#000000"
	}
	svg := fmt.Sprintf(glyphTemplate, body)
	return strings.NewReplacer("FILL", fill, "STROKE", stroke).Replace(svg), nil
}

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
