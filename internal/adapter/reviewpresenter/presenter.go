package reviewpresenter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/cheese-review/pkg/reviewdto"
)

// Presenter delivers formatted reports and board images without coupling to the command layer.
type Presenter struct {
	writeText  func(text string) error
	writeImage func(name string, png []byte) error
}

func NewPresenter(writeText func(text string) error, writeImage func(name string, png []byte) error) *Presenter {
	return &Presenter{writeText: writeText, writeImage: writeImage}
}

// Images writes one PNG per critical moment and records the file name on it.
func (p *Presenter) Images(r *reviewdto.GameReport, images map[int][]byte) error {
	if p == nil || p.writeImage == nil || r == nil {
		return nil
	}
	for i := range r.CriticalMoments {
		m := &r.CriticalMoments[i]
		png, ok := images[m.Ply]
		if !ok || len(png) == 0 {
			continue
		}
		name := ImageName(r.GameID, m.Ply)
		if err := p.writeImage(name, png); err != nil {
			return err
		}
		m.Image = name
	}
	return nil
}

func (p *Presenter) Text(text string) error {
	if p == nil || p.writeText == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	return p.writeText(text)
}

func (p *Presenter) JSON(v any) error {
	if p == nil || p.writeText == nil {
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return p.writeText(string(b))
}

// ImageName builds a file-system safe name for a moment's board image.
func ImageName(gameID string, ply int) string {
	slug := gameID
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, slug)
	if slug == "" {
		slug = "game"
	}
	return fmt.Sprintf("%s-ply%03d.png", slug, ply)
}
