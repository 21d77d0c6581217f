package internal

import (
	"context"
)

type RiotAPI interface {
	GetMatchIDsByPUUID(ctx context.Context, puuid, platform string, startEpoch, endEpoch int64, start, count int) ([]string, error)
	GetMatchByID(ctx context.Context, matchID, platform string) (*Match, error)
	GetChallengerLeague(ctx context.Context, platform string) (*RosterPage, error)
	GetGrandmasterLeague(ctx context.Context, platform string) (*RosterPage, error)
	GetMasterLeague(ctx context.Context, platform string) (*RosterPage, error)
	GetLeagueEntries(ctx context.Context, platform, tier, division string, page int) (*RosterPage, error)
}

type MatchStore interface {
	FilterUnseen(ctx context.Context, ids map[string]struct{}) (map[string]struct{}, error)
	UpsertMatches(ctx context.Context, matches []*Match) (int, error)
	Clear(ctx context.Context) error
}

type ProgressStore interface {
	GetStartIndex(ctx context.Context, qc QueryContext) (int, error)
	SetStartIndex(ctx context.Context, qc QueryContext, index int) error
	Clear(ctx context.Context) error
}

type RateLimiterInterface interface {
	Allow(ctx context.Context, key string) (bool, error)
}
