package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Text in a BGG play comment that equates to a cooperative game win.
const wonText = "Won"

// Text in a BGG play comment that equates to a cooperative game loss.
const lostText = "Lost"

// How many plays the latest-games list shows.
const latestGamesCount = 10

// Thumbnail lookups run against the thing endpoint per distinct game; cap
// the fan-out so a long play log doesn't hammer the API.
const thumbnailFanout = 4

// ErrNoPlays is returned when aggregation runs over an empty play log.
var ErrNoPlays = errors.New("no plays found; maybe the user has not logged any")

// Thumbnailer resolves a game id to its thumbnail URL. *BGGClient
// implements it; tests substitute a stub.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, gameID int) (string, error)
}

// GameSummary is one row of the latest-games list.
type GameSummary struct {
	Name      string
	Date      time.Time
	Thumbnail string
}

// CoopStats counts cooperative wins and losses parsed from play comments.
type CoopStats struct {
	Wins          int
	Losses        int
	WinPercentage int
}

// MostPlayed is the game with the most minutes logged against it.
type MostPlayed struct {
	Name      string
	Thumbnail string
	Minutes   int
}

// PlayLog aggregates a user's fetched plays. Plays are kept in the order
// the API returned them, newest first.
type PlayLog struct {
	Username string
	plays    []Play
	thumbs   Thumbnailer
}

// NewPlayLog wraps an already-fetched play list for aggregation.
func NewPlayLog(username string, plays []Play, thumbs Thumbnailer) *PlayLog {
	return &PlayLog{Username: username, plays: plays, thumbs: thumbs}
}

// LatestPlayedGames returns the most recent plays, each with its thumbnail.
// Thumbnail lookups run concurrently; a failed lookup leaves the URL empty
// rather than failing the whole list.
func (l *PlayLog) LatestPlayedGames(ctx context.Context) ([]GameSummary, error) {
	if len(l.plays) == 0 {
		return nil, ErrNoPlays
	}

	n := latestGamesCount
	if n > len(l.plays) {
		n = len(l.plays)
	}
	latest := l.plays[:n]

	thumbs, err := l.fetchThumbnails(ctx, latest)
	if err != nil {
		return nil, err
	}

	games := make([]GameSummary, 0, n)
	for _, play := range latest {
		games = append(games, GameSummary{
			Name:      play.GameName,
			Date:      play.Date,
			Thumbnail: thumbs[play.GameID],
		})
	}
	return games, nil
}

// fetchThumbnails resolves thumbnails for the distinct games in plays.
func (l *PlayLog) fetchThumbnails(ctx context.Context, plays []Play) (map[int]string, error) {
	ids := make([]int, 0, len(plays))
	seen := map[int]bool{}
	for _, play := range plays {
		if !seen[play.GameID] {
			seen[play.GameID] = true
			ids = append(ids, play.GameID)
		}
	}

	var mu sync.Mutex
	thumbs := make(map[int]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(thumbnailFanout)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			url, err := l.thumbs.Thumbnail(gctx, id)
			if err != nil {
				slog.DebugContext(gctx, "thumbnail lookup failed", "game_id", id, "err", err)
				return nil
			}
			mu.Lock()
			thumbs[id] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return thumbs, nil
}

// CooperativeStats counts wins and losses from play comments (a comment
// containing "Won" is a win, "Lost" a loss). A log with no cooperative
// plays yields all zeros.
func (l *PlayLog) CooperativeStats() (CoopStats, error) {
	if len(l.plays) == 0 {
		return CoopStats{}, ErrNoPlays
	}

	var stats CoopStats
	for _, play := range l.plays {
		if strings.Contains(play.Comment, wonText) {
			stats.Wins++
		}
		if strings.Contains(play.Comment, lostText) {
			stats.Losses++
		}
	}
	if total := stats.Wins + stats.Losses; total > 0 {
		stats.WinPercentage = stats.Wins * 100 / total
	}
	return stats, nil
}

// MostPlayedGame returns the game with the largest summed play length.
func (l *PlayLog) MostPlayedGame(ctx context.Context) (MostPlayed, error) {
	if len(l.plays) == 0 {
		return MostPlayed{}, ErrNoPlays
	}

	minutes := map[int]int{}
	for _, play := range l.plays {
		minutes[play.GameID] += play.Length
	}

	ids := make([]int, 0, len(minutes))
	for id := range minutes {
		ids = append(ids, id)
	}
	// Deterministic winner when two games tie on minutes.
	sort.Ints(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		if minutes[id] > minutes[best] {
			best = id
		}
	}

	info, err := l.GameInfoByID(ctx, best)
	if err != nil {
		return MostPlayed{}, err
	}
	return MostPlayed{Name: info.Name, Thumbnail: info.Thumbnail, Minutes: minutes[best]}, nil
}

// GameInfo is the name and thumbnail of a single game.
type GameInfo struct {
	Name      string
	Thumbnail string
}

// GameInfoByID returns info for the first play matching gameID.
func (l *PlayLog) GameInfoByID(ctx context.Context, gameID int) (GameInfo, error) {
	for _, play := range l.plays {
		if play.GameID == gameID {
			url, err := l.thumbs.Thumbnail(ctx, gameID)
			if err != nil {
				slog.DebugContext(ctx, "thumbnail lookup failed", "game_id", gameID, "err", err)
			}
			return GameInfo{Name: play.GameName, Thumbnail: url}, nil
		}
	}
	return GameInfo{}, fmt.Errorf("game %d not present in play log", gameID)
}
