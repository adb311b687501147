package chesscom

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-review/internal/gamesource"
	"github.com/park285/cheese-review/internal/review"
)

type Profile struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Country  string `json:"country,omitempty"`
	Joined   int64  `json:"joined,omitempty"`
	URL      string `json:"url,omitempty"`
}

type PlayerSide struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

type Game struct {
	URL         string     `json:"url"`
	PGN         string     `json:"pgn"`
	TimeControl string     `json:"time_control"`
	TimeClass   string     `json:"time_class"`
	EndTime     int64      `json:"end_time"`
	Rated       bool       `json:"rated"`
	Rules       string     `json:"rules"`
	White       PlayerSide `json:"white"`
	Black       PlayerSide `json:"black"`
}

type archivesResponse struct {
	Archives []string `json:"archives"`
}

type gamesResponse struct {
	Games []Game `json:"games"`
}

func playerPath(username string) string {
	return "/pub/player/" + url.PathEscape(strings.ToLower(strings.TrimSpace(username)))
}

func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, playerPath(username), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Archives lists monthly archive URLs, oldest first.
func (c *Client) Archives(ctx context.Context, username string) ([]string, error) {
	var resp archivesResponse
	if err := c.getJSON(ctx, playerPath(username)+"/games/archives", &resp); err != nil {
		return nil, err
	}
	return resp.Archives, nil
}

func (c *Client) ArchiveGames(ctx context.Context, archiveURL string) ([]Game, error) {
	var resp gamesResponse
	if err := c.getJSON(ctx, archiveURL, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// RecentGames walks archives from the newest month back until n standard
// chess games are collected. Results are newest first.
func (c *Client) RecentGames(ctx context.Context, username string, n int) ([]Game, error) {
	if n <= 0 {
		return []Game{}, nil
	}
	archives, err := c.Archives(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]Game, 0, n)
	for i := len(archives) - 1; i >= 0 && len(out) < n; i-- {
		games, err := c.ArchiveGames(ctx, archives[i])
		if err != nil {
			return nil, fmt.Errorf("fetch archive %s: %w", archives[i], err)
		}
		sort.SliceStable(games, func(a, b int) bool { return games[a].EndTime > games[b].EndTime })
		for _, g := range games {
			if len(out) >= n {
				break
			}
			if !isStandard(g) {
				continue
			}
			out = append(out, g)
		}
	}
	c.logger.Info("chesscom_games_fetched", zap.String("user", username), zap.Int("games", len(out)), zap.Int("archives", len(archives)))
	return out, nil
}

func isStandard(g Game) bool {
	return strings.TrimSpace(g.PGN) != "" && (g.Rules == "" || g.Rules == "chess")
}

// ToGameInput parses a fetched game and tracks the given user's side.
func ToGameInput(g Game, trackedUser string) (review.GameInput, error) {
	in, err := gamesource.ParsePGN(g.PGN)
	if err != nil {
		return review.GameInput{}, fmt.Errorf("parse game %s: %w", g.URL, err)
	}
	if g.URL != "" {
		in.ID = g.URL
	}
	if in.White.Name == "" {
		in.White.Name = g.White.Username
	}
	if in.Black.Name == "" {
		in.Black.Name = g.Black.Username
	}
	if g.White.Rating > 0 {
		in.White.Rating = g.White.Rating
	}
	if g.Black.Rating > 0 {
		in.Black.Rating = g.Black.Rating
	}
	if in.TimeControl == "" {
		in.TimeControl = g.TimeControl
	}
	in.TrackedPlayer = strings.TrimSpace(trackedUser)
	return in, nil
}
