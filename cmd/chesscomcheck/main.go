package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cheese-review/internal/chesscom"
)

func main() {
	baseURL := os.Getenv("CHESSCOM_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.chess.com"
	}
	user := os.Getenv("CHESS_USERNAME")
	if len(os.Args) > 1 {
		user = os.Args[1]
	}
	if user == "" {
		log.Fatal("usage: chesscomcheck <username> (or set CHESS_USERNAME)")
	}

	client := chesscom.NewClient(baseURL,
		chesscom.WithTimeout(8*time.Second),
		chesscom.WithRetry(1),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	profile, err := client.Profile(ctx, user)
	if err != nil {
		log.Fatalf("profile error: %v", err)
	}
	log.Printf("profile ok: username=%s name=%q country=%s", profile.Username, profile.Name, profile.Country)

	archives, err := client.Archives(ctx, user)
	if err != nil {
		log.Fatalf("archives error: %v", err)
	}
	log.Printf("archives ok: %d months", len(archives))

	games, err := client.RecentGames(ctx, user, 3)
	if err != nil {
		log.Printf("recent games error: %v", err)
		return
	}
	for _, g := range games {
		in, err := chesscom.ToGameInput(g, user)
		if err != nil {
			log.Printf("game %s: pgn error: %v", g.URL, err)
			continue
		}
		fmt.Printf("%s %s (%d) vs %s (%d) %s moves=%d\n",
			g.URL, g.White.Username, g.White.Rating, g.Black.Username, g.Black.Rating,
			g.TimeControl, len(in.Moves))
	}
}
