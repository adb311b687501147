package gamesource

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-review/internal/review"
)

var ErrNoGames = errors.New("no games in pgn input")

// ParseError reports which game of a PGN document could not be read.
type ParseError struct {
	Game   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pgn game %d: %s: %v", e.Game, e.Reason, e.Err)
	}
	return fmt.Sprintf("pgn game %d: %s", e.Game, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Tag values keep escaped quotes and backslashes as control bytes while the
// scanner reads them; the lexer ends a tag value at the first quote.
const (
	quoteMark     = "\x01"
	backslashMark = "\x02"
)

var (
	zeroCastle  = regexp.MustCompile(`\b0-0(-0)?\b`)
	eventTag    = regexp.MustCompile(`^\[\s*Event\s`)
	tagEscapes  = strings.NewReplacer(`\\`, backslashMark, `\"`, quoteMark)
	tagRestores = strings.NewReplacer(backslashMark, `\`, quoteMark, `"`)
)

// ParsePGN reads exactly one game. Extra games after the first are an error.
func ParsePGN(text string) (review.GameInput, error) {
	games, err := ParseAll(text)
	if err != nil {
		return review.GameInput{}, err
	}
	if len(games) != 1 {
		return review.GameInput{}, fmt.Errorf("expected one game, found %d", len(games))
	}
	return games[0], nil
}

// ParseAll reads every game in a PGN document. Moves are replayed and
// checked for legality; only the main line is kept, as UCI text.
func ParseAll(text string) ([]review.GameInput, error) {
	scanner := nchess.NewScanner(strings.NewReader(prepare(text)))

	var out []review.GameInput
	for n := 1; ; n++ {
		scanned, err := scanner.ScanGame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Game: n, Reason: "scan", Err: err}
		}
		tokens, err := nchess.TokenizeGame(scanned)
		if err != nil {
			return nil, &ParseError{Game: n, Reason: "tokenize", Err: err}
		}
		if reason := checkTokens(tokens); reason != "" {
			return nil, &ParseError{Game: n, Reason: reason}
		}
		game, err := nchess.NewParser(tokens).Parse()
		if err != nil {
			return nil, &ParseError{Game: n, Reason: "movetext", Err: err}
		}
		out = append(out, toGameInput(game))
	}
	if len(out) == 0 {
		return nil, ErrNoGames
	}
	return out, nil
}

// prepare rewrites the parts of export PGN the library lexer does not read:
// escape lines, semicolon comments, zero-style castling and escaped tag
// quotes. Every tag section is started with an Event tag so the scanner
// splits games there.
func prepare(text string) string {
	var b strings.Builder
	inComment := false
	inTags := false
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inComment && strings.HasPrefix(trimmed, "%"):
			continue
		case !inComment && strings.HasPrefix(trimmed, "["):
			if !inTags && !eventTag.MatchString(trimmed) {
				b.WriteString("[Event \"?\"]\n")
			}
			inTags = true
			line = tagEscapes.Replace(line)
		default:
			if trimmed != "" {
				inTags = false
			}
			line, inComment = stripLineComment(line, inComment)
			line = zeroCastle.ReplaceAllStringFunc(line, func(s string) string {
				return strings.ReplaceAll(s, "0", "O")
			})
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// stripLineComment drops a ';' comment outside braces and reports whether the
// line ends inside a brace comment.
func stripLineComment(line string, inComment bool) (string, bool) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			inComment = true
		case '}':
			inComment = false
		case ';':
			if !inComment {
				return line[:i], false
			}
		}
	}
	return line, inComment
}

// checkTokens rejects input the parser would otherwise skip silently.
func checkTokens(tokens []nchess.Token) string {
	depth := 0
	comments := 0
	for _, tok := range tokens {
		if tok.Error != nil {
			return tok.Error.Error()
		}
		switch tok.Type {
		case nchess.CommentStart:
			comments++
		case nchess.CommentEnd:
			comments--
		case nchess.VariationStart:
			depth++
		case nchess.VariationEnd:
			if depth == 0 {
				return "unbalanced ')'"
			}
			depth--
		case nchess.MoveNumber:
			if strings.HasPrefix(tok.Value, "--") {
				return "null move is not supported"
			}
		}
	}
	switch {
	case comments > 0:
		return "unterminated comment"
	case depth > 0:
		return "unterminated variation"
	}
	return ""
}

func toGameInput(g *nchess.Game) review.GameInput {
	moves := g.Moves()
	uci := make([]string, 0, len(moves))
	for _, mv := range moves {
		uci = append(uci, mv.String())
	}
	in := newGameInput(func(k string) string { return tagRestores.Replace(g.GetTagPair(k)) }, uci)
	if o := g.Outcome(); in.Result == "" && o != nchess.UnknownOutcome && o != nchess.NoOutcome {
		in.Result = string(o)
	}
	return in
}

// newGameInput maps PGN tags onto a game. Unknown values ("?") read as empty.
func newGameInput(lookup func(string) string, moves []string) review.GameInput {
	tag := func(k string) string {
		v := strings.TrimSpace(lookup(k))
		if v == "?" {
			return ""
		}
		return v
	}
	return review.GameInput{
		ID:          gameID(tag("Link"), tag("Site")),
		White:       review.Player{Name: tag("White"), Rating: atoiOrZero(tag("WhiteElo"))},
		Black:       review.Player{Name: tag("Black"), Rating: atoiOrZero(tag("BlackElo"))},
		Result:      tag("Result"),
		TimeControl: tag("TimeControl"),
		InitialFEN:  tag("FEN"),
		Moves:       moves,
	}
}

// gameID prefers a permalink; a bare site name such as "Chess.com" is not unique.
func gameID(link, site string) string {
	for _, v := range []string{link, site} {
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	return ""
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
