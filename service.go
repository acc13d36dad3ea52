package main

import (
	"context"
	"fmt"
)

// UserStats is everything the statistics pages need for one user.
type UserStats struct {
	Username   string
	Games      []GameSummary
	Coop       CoopStats
	MostPlayed MostPlayed
}

// StatsProvider produces page-ready statistics for a username. Handlers
// depend on this rather than on the concrete service so tests can stub it.
type StatsProvider interface {
	FullStats(ctx context.Context, username string) (*UserStats, error)
}

// StatsService fetches a user's play log from the BGG API and aggregates it.
type StatsService struct {
	client *BGGClient
}

// NewStatsService returns a service backed by the given API client.
func NewStatsService(client *BGGClient) *StatsService {
	return &StatsService{client: client}
}

// FullStats fetches the play log for username and runs every aggregation
// the statistics pages render.
func (s *StatsService) FullStats(ctx context.Context, username string) (*UserStats, error) {
	plays, err := s.client.FetchPlays(ctx, username)
	if err != nil {
		return nil, err
	}

	log := NewPlayLog(username, plays, s.client)

	games, err := log.LatestPlayedGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest games for %q: %w", username, err)
	}
	coop, err := log.CooperativeStats()
	if err != nil {
		return nil, fmt.Errorf("coop statistics for %q: %w", username, err)
	}
	most, err := log.MostPlayedGame(ctx)
	if err != nil {
		return nil, fmt.Errorf("most played game for %q: %w", username, err)
	}

	return &UserStats{
		Username:   username,
		Games:      games,
		Coop:       coop,
		MostPlayed: most,
	}, nil
}
