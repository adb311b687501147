package reviewpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

// Formatter renders review DTOs as plain text through the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) render(key string, data map[string]any) (string, error) {
	if f == nil || f.cat == nil {
		return "", fmt.Errorf("no message catalog")
	}
	return f.cat.Render(key, data)
}

func (f *Formatter) Report(r *reviewdto.GameReport) (string, error) {
	if r == nil {
		return "", nil
	}
	var sb strings.Builder

	header, err := f.render("report.header", map[string]any{
		"GameID":  r.GameID,
		"White":   displayName(r.White.Name, "White"),
		"Black":   displayName(r.Black.Name, "Black"),
		"Result":  r.Result,
		"Preset":  displayName(r.EnginePreset, "default"),
		"Depth":   r.Depth,
		"Tracked": r.TrackedSide,
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(header)
	sb.WriteString("\n\n")

	for _, side := range []struct {
		name  string
		stats reviewdto.SideStats
	}{{"white", r.Stats.White}, {"black", r.Stats.Black}} {
		line, err := f.render("report.side", map[string]any{
			"Side":         side.name,
			"AvgCPLoss":    side.stats.AvgCPLoss,
			"Blunders":     side.stats.Blunders,
			"Mistakes":     side.stats.Mistakes,
			"Inaccuracies": side.stats.Inaccuracies,
			"Moves":        side.stats.Moves,
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(r.CriticalMoments) == 0 {
		line, err := f.render("report.no_moments", nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	} else {
		line, err := f.render("report.moments_header", nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		for i, m := range r.CriticalMoments {
			line, err := f.render("report.moment", map[string]any{
				"Rank":     i + 1,
				"MoveNum":  m.MoveNum,
				"Move":     m.Move,
				"Player":   m.Player,
				"CPLoss":   m.CPLoss,
				"Severity": displayName(m.Severity, "none"),
				"Before":   FormatScore(m.EvalBefore),
				"After":    FormatScore(m.EvalAfter),
			})
			if err != nil {
				return "", err
			}
			sb.WriteString("\n")
			sb.WriteString(line)
			if m.Image != "" {
				sb.WriteString("  ")
				sb.WriteString(m.Image)
			}
		}
	}

	if r.StoredID > 0 {
		line, err := f.render("report.stored", map[string]any{"ID": r.StoredID})
		if err != nil {
			return "", err
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	return sb.String(), nil
}

func (f *Formatter) Batch(b *reviewdto.BatchReport) (string, error) {
	if b == nil {
		return "", nil
	}
	blocks := make([]string, 0, len(b.Games)+1)
	for _, g := range b.Games {
		if g.Error != nil {
			line, err := f.render("report.failed", map[string]any{"Index": g.Index + 1, "GameID": "", "Error": g.Error.Error()})
			if err != nil {
				return "", err
			}
			blocks = append(blocks, line)
			continue
		}
		text, err := f.Report(g.Report)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, text)
	}
	summary, err := f.render("batch.summary", map[string]any{"Total": b.Total, "Succeeded": b.Succeeded, "Failed": b.Failed})
	if err != nil {
		return "", err
	}
	blocks = append(blocks, summary)
	return strings.Join(blocks, "\n\n"), nil
}

func (f *Formatter) History(player string, list []reviewdto.StoredReview) (string, error) {
	if len(list) == 0 {
		return f.render("history.empty", map[string]any{"Player": player})
	}
	header, err := f.render("history.header", map[string]any{"Player": player})
	if err != nil {
		return "", err
	}
	lines := []string{header}
	for _, rv := range list {
		line, err := f.render("history.line", map[string]any{
			"AnalyzedAt": rv.AnalyzedAt.Format("2006-01-02 15:04"),
			"GameID":     rv.GameID,
			"AvgCPLoss":  rv.AvgCPLoss,
			"Blunders":   rv.Blunders,
			"Opponent":   displayName(rv.Opponent, "?"),
		})
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// FormatScore renders an evaluation as "+0.35", "#3" (White mates) or "#-2".
func FormatScore(s reviewdto.Score) string {
	if s.Mating != "" {
		if s.Mating == "black" {
			return fmt.Sprintf("#-%d", s.MateIn)
		}
		return fmt.Sprintf("#%d", s.MateIn)
	}
	sign := "+"
	cp := s.CP
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	return fmt.Sprintf("%s%d.%02d", sign, cp/100, cp%100)
}

func displayName(s, fallback string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return fallback
}
